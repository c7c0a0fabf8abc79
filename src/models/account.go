package models

// MAccountInfo mirrors the terminal's account snapshot.
type MAccountInfo struct {
	AccountID  int64   `json:"account_id"`
	Server     string  `json:"server"`
	Currency   string  `json:"currency"`
	Leverage   int64   `json:"leverage"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	MarginFree float64 `json:"margin_free"`
	Profit     float64 `json:"profit"`
}
