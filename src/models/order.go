package models

// MOrder represents a pending or historical order.
type MOrder struct {
	OrderID        int64   `json:"order_id"`
	PositionID     int64   `json:"position_id"`
	Symbol         string  `json:"symbol"`
	OrderType      string  `json:"order_type"`
	Status         string  `json:"status"`
	TimeSetup      int64   `json:"time_setup"`
	TimeSetupMsc   int64   `json:"time_setup_msc"`
	TimeDone       int64   `json:"time_done"`
	TimeDoneMsc    int64   `json:"time_done_msc"`
	TimeExpiration int64   `json:"time_expiration"`
	VolumeInitial  float64 `json:"volume_initial"`
	VolumeCurrent  float64 `json:"volume_current"`
	OpenPrice      float64 `json:"open_price"`
	SL             float64 `json:"sl"`
	TP             float64 `json:"tp"`
	Magic          int64   `json:"magic"`
	Reason         string  `json:"reason"`
	Comment        string  `json:"comment"`
}
