package interfaces

import "mt5-gateway/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the terminal-definition store.
// Only terminal definitions are persisted; feed data is never stored.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveTerminal inserts or replaces one terminal definition.
	SaveTerminal(def models.MTerminalConfig) error

	// -----------------------------------------------------------------------------

	// DeleteTerminal removes a terminal definition if present.
	DeleteTerminal(id int64) error

	// -----------------------------------------------------------------------------

	// ListTerminals returns all stored terminal definitions.
	ListTerminals() ([]models.MTerminalConfig, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
