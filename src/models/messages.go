package models

// -----------------------------------------------------------------------------
// WebSocket control protocol (JSON frames)
// -----------------------------------------------------------------------------

// MCommand is one inbound control message from a client.
// Params values are kept generic: clients send strings and numbers
// interchangeably (account ids in particular). Frequency is a pointer
// so an absent field can be told apart from an explicit zero.
type MCommand struct {
	Command   string                 `json:"command"`
	DataType  string                 `json:"data_type"`
	Params    map[string]interface{} `json:"params"`
	Frequency *int64                 `json:"frequency"`
}

// -----------------------------------------------------------------------------

// MAck is the command acknowledgement frame, success or error.
type MAck struct {
	Command string      `json:"command,omitempty"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// -----------------------------------------------------------------------------

// MWelcome is sent once, immediately after the upgrade.
type MWelcome struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// MPush is one data frame fanned out to subscribers of a key.
type MPush struct {
	DataType  string      `json:"data_type"`
	Symbol    string      `json:"symbol,omitempty"`
	Timeframe string      `json:"timeframe,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// MSubscriptionInfo is one entry of a list_subscriptions response.
type MSubscriptionInfo struct {
	DataType  string            `json:"data_type"`
	Params    map[string]string `json:"params"`
	Frequency int64             `json:"frequency"`
}

// -----------------------------------------------------------------------------

// MSubscriptionList is the payload of a list_subscriptions ack.
type MSubscriptionList struct {
	Subscriptions []MSubscriptionInfo `json:"subscriptions"`
	Count         int                 `json:"count"`
}
