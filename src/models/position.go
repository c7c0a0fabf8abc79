package models

// MPosition represents an open position.
type MPosition struct {
	PositionID    int64   `json:"position_id"`
	Symbol        string  `json:"symbol"`
	PositionType  string  `json:"position_type"`
	Time          int64   `json:"time"`
	TimeMsc       int64   `json:"time_msc"`
	TimeUpdate    int64   `json:"time_update"`
	TimeUpdateMsc int64   `json:"time_update_msc"`
	Volume        float64 `json:"volume"`
	OpenPrice     float64 `json:"open_price"`
	CurrentPrice  float64 `json:"current_price"`
	SL            float64 `json:"sl"`
	TP            float64 `json:"tp"`
	Swap          float64 `json:"swap"`
	Profit        float64 `json:"profit"`
	Magic         int64   `json:"magic"`
	Identifier    int64   `json:"identifier"`
	Reason        string  `json:"reason"`
	Comment       string  `json:"comment"`
	ExternalID    string  `json:"external_id"`
}
