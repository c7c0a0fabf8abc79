package terminal

import (
	"context"
	"errors"
	"sync"

	"mt5-gateway/src/interfaces"
	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Terminal Session Registry
//
// Identifier -> handle mapping. At most one live handle exists per
// identifier; operations on one terminal never observe another's state.
// -----------------------------------------------------------------------------

// ErrTerminalNotFound is returned when an identifier is unregistered.
var ErrTerminalNotFound = errors.New("terminal not found")

// APIFactory builds a fresh collaborator session for a terminal id.
type APIFactory func(id int64) interfaces.ITerminalAPI

// -----------------------------------------------------------------------------

type Registry struct {
	mu      sync.RWMutex
	handles map[int64]*Handle
	factory APIFactory
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRegistry(factory APIFactory, log *logger.Logger) *Registry {
	return &Registry{
		handles: make(map[int64]*Handle),
		factory: factory,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Create returns the existing handle for id, or allocates a new one
// bound to a fresh collaborator session. Idempotent: creating an
// existing identifier never replaces or re-initializes the handle.
func (r *Registry) Create(id int64) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[id]; ok {
		return h
	}

	h := &Handle{ID: id, API: r.factory(id)}
	r.handles[id] = h
	r.Logger.Info("Registered terminal %d", id)
	return h
}

// -----------------------------------------------------------------------------

// Get returns the handle for id, or false. No handle is implicitly
// created.
func (r *Registry) Get(id int64) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// -----------------------------------------------------------------------------

// Delete removes the handle if present; a no-op otherwise. In-flight
// operations already borrowing the handle are not cancelled: callers see
// their next fetch fail and treat it as transient. Returns true when a
// handle was removed.
func (r *Registry) Delete(id int64) bool {
	r.mu.Lock()
	h, ok := r.handles[id]
	if ok {
		delete(r.handles, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	if err := h.API.Shutdown(); err != nil {
		r.Logger.Warning("Terminal %d shutdown: %v", id, err)
	}
	r.Logger.Info("Removed terminal %d", id)
	return true
}

// -----------------------------------------------------------------------------

// Ping probes the handle's liveness, ErrTerminalNotFound when the
// identifier is unregistered.
func (r *Registry) Ping(ctx context.Context, id int64) error {
	h, ok := r.Get(id)
	if !ok {
		return ErrTerminalNotFound
	}
	return h.Ping(ctx)
}

// -----------------------------------------------------------------------------

// List snapshots the state of all registered terminals.
func (r *Registry) List() []models.MTerminalInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.MTerminalInfo, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h.Info())
	}
	return out
}
