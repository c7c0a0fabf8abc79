package models

// MConfig Structure
type MConfig struct {
	Name      string            `yaml:"name"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	LogLevel  string            `yaml:"log_level"`
	LogFile   string            `yaml:"log_file"`
	Storage   MStorageConfig    `yaml:"storage"`
	Bridge    MBridgeConfig     `yaml:"bridge"`
	Scheduler MSchedulerConfig  `yaml:"scheduler"`
	Terminals []MTerminalConfig `yaml:"terminals"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

// MBridgeConfig configures the HTTP binding to per-terminal agent
// processes. When disabled, terminals run against the built-in simulator.
type MBridgeConfig struct {
	Enabled        bool             `yaml:"enabled"`
	AgentURLs      map[int64]string `yaml:"agent_urls"`
	RequestTimeout int              `yaml:"timeout"`
	MaxRetries     int              `yaml:"retries"`
}

type MSchedulerConfig struct {
	TickIntervalMs     int64 `yaml:"tick_interval_ms"`
	BackoffSeconds     int64 `yaml:"backoff_seconds"`
	DefaultFrequencyMs int64 `yaml:"default_frequency_ms"`
}

// MTerminalConfig is one terminal definition, loaded from YAML or from
// the terminal store. The password is never persisted; it comes from the
// environment or the login request.
type MTerminalConfig struct {
	ID           int64  `yaml:"id" json:"id"`
	TerminalPath string `yaml:"terminal_path" json:"terminal_path"`
	AccountID    int64  `yaml:"account_id" json:"account_id"`
	Server       string `yaml:"server" json:"server"`
}
