package interfaces

import (
	"context"

	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------
// ITerminalAPI is the contract of the external trading-terminal binding.
// Every implementation is an explicit per-instance handle: two terminals
// never share connection state through this interface.
// -----------------------------------------------------------------------------

type ITerminalAPI interface {

	// Initialize starts the underlying terminal process/session.
	Initialize(ctx context.Context, terminalPath string) error

	// -----------------------------------------------------------------------------

	// Login connects the terminal to a trading account.
	Login(ctx context.Context, accountID int64, password, server string) (*models.MAccountInfo, error)

	// -----------------------------------------------------------------------------

	// Ping probes terminal liveness.
	Ping(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Shutdown releases the session. Idempotent.
	Shutdown() error

	// -----------------------------------------------------------------------------
	// Market data accessors
	// -----------------------------------------------------------------------------

	GetSymbols(ctx context.Context) ([]string, error)

	GetSymbolInfo(ctx context.Context, symbol string) (*models.MSymbolInfo, error)

	GetTick(ctx context.Context, symbol string) (*models.MTick, error)

	GetLatestKline(ctx context.Context, symbol, interval string) (*models.MBar, error)

	GetKlineSeries(ctx context.Context, symbol, interval string, limit int) ([]models.MBar, error)

	// -----------------------------------------------------------------------------
	// Account state accessors
	// -----------------------------------------------------------------------------

	GetOrders(ctx context.Context) ([]models.MOrder, error)

	// GetPositions returns open positions, optionally filtered by symbol
	// (empty string means all).
	GetPositions(ctx context.Context, symbol string) ([]models.MPosition, error)

	GetAccountInfo(ctx context.Context) (*models.MAccountInfo, error)
}
