package models

// MTerminalInfo is the externally visible state of one terminal handle.
type MTerminalInfo struct {
	ID           int64  `json:"terminal_id"`
	AccountID    int64  `json:"account_id,omitempty"`
	Server       string `json:"server,omitempty"`
	TerminalPath string `json:"terminal_path,omitempty"`
	Initialized  bool   `json:"initialized"`
	LoggedIn     bool   `json:"logged_in"`
}
