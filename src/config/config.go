package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Scheduler.TickIntervalMs == 0 {
		c.Scheduler.TickIntervalMs = 100
	}
	if c.Scheduler.BackoffSeconds == 0 {
		c.Scheduler.BackoffSeconds = 5
	}
	if c.Scheduler.DefaultFrequencyMs == 0 {
		c.Scheduler.DefaultFrequencyMs = 1000
	}
	if c.Bridge.RequestTimeout == 0 {
		c.Bridge.RequestTimeout = 10
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Scheduler configuration
	if c.Scheduler.TickIntervalMs <= 0 {
		return fmt.Errorf("scheduler tick interval must be greater than 0")
	}
	if c.Scheduler.BackoffSeconds <= 0 {
		return fmt.Errorf("scheduler backoff must be greater than 0")
	}
	if c.Scheduler.DefaultFrequencyMs <= 0 {
		return fmt.Errorf("default subscription frequency must be greater than 0")
	}

	// Validate Bridge configuration
	if c.Bridge.Enabled {
		if len(c.Bridge.AgentURLs) == 0 {
			return fmt.Errorf("bridge enabled but no agent urls configured")
		}
		if c.Bridge.RequestTimeout <= 0 {
			return fmt.Errorf("bridge request timeout must be greater than 0")
		}
		if c.Bridge.MaxRetries < 0 {
			return fmt.Errorf("bridge max retries cannot be negative")
		}
	}

	// Validate Terminal definitions
	seen := make(map[int64]bool)
	for i, t := range c.Terminals {
		if t.ID < 0 {
			return fmt.Errorf("terminal %d has a negative id", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate terminal id %d", t.ID)
		}
		seen[t.ID] = true
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
