package terminal

import (
	"context"
	"sync"

	"mt5-gateway/src/interfaces"
	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Terminal Handle
//
// One handle owns one collaborator session. Credentials and connection
// state are visible only through this type; the registry is the sole
// owner of the handle itself.
// -----------------------------------------------------------------------------

type Handle struct {
	ID  int64
	API interfaces.ITerminalAPI

	// initMu serializes Initialize so the collaborator is hit at most
	// once; mu alone guards the state snapshot and is never held across
	// a collaborator call.
	initMu sync.Mutex

	mu           sync.RWMutex
	terminalPath string
	accountID    int64
	server       string
	initialized  bool
	loggedIn     bool
}

// -----------------------------------------------------------------------------

// Initialize starts the underlying session. Re-initializing an already
// initialized handle is a no-op, including for concurrent callers: a
// failed attempt stays retryable.
func (h *Handle) Initialize(ctx context.Context, terminalPath string) error {
	h.initMu.Lock()
	defer h.initMu.Unlock()

	if h.IsInitialized() {
		return nil
	}

	if err := h.API.Initialize(ctx, terminalPath); err != nil {
		return err
	}

	h.mu.Lock()
	h.terminalPath = terminalPath
	h.initialized = true
	h.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

// Login connects the session to a trading account and records the
// credentials' non-secret parts on success.
func (h *Handle) Login(ctx context.Context, accountID int64, password, server string) (*models.MAccountInfo, error) {
	info, err := h.API.Login(ctx, accountID, password, server)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.accountID = accountID
	h.server = server
	h.loggedIn = true
	h.mu.Unlock()
	return info, nil
}

// -----------------------------------------------------------------------------

// Ping delegates to the session's liveness probe.
func (h *Handle) Ping(ctx context.Context) error {
	return h.API.Ping(ctx)
}

// -----------------------------------------------------------------------------

// IsInitialized reports whether Initialize has succeeded.
func (h *Handle) IsInitialized() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.initialized
}

// -----------------------------------------------------------------------------

// Info returns a snapshot of the handle's externally visible state.
func (h *Handle) Info() models.MTerminalInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return models.MTerminalInfo{
		ID:           h.ID,
		AccountID:    h.accountID,
		Server:       h.server,
		TerminalPath: h.terminalPath,
		Initialized:  h.initialized,
		LoggedIn:     h.loggedIn,
	}
}
