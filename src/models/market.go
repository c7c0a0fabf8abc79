package models

// MBar represents one OHLCV interval sample as returned by the terminal.
type MBar struct {
	Symbol    string  `json:"symbol"`
	Interval  string  `json:"interval"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// -----------------------------------------------------------------------------

// MTick represents the latest quote for a symbol.
type MTick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Last      float64 `json:"last"`
	Volume    float64 `json:"volume"`
}

// -----------------------------------------------------------------------------

// MSymbolInfo carries the contract specification of a symbol.
type MSymbolInfo struct {
	Symbol    string  `json:"symbol"`
	Digits    int     `json:"digits"`
	Point     float64 `json:"point"`
	MinVolume float64 `json:"min_volume"`
	MaxVolume float64 `json:"max_volume"`
	Spread    int     `json:"spread"`
}
