package terminal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5-gateway/src/interfaces"
	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------

type stubAPI struct {
	id        int64
	initCalls int
	initDelay time.Duration
	shutdowns int
	pings     int
}

func (s *stubAPI) Initialize(_ context.Context, _ string) error {
	s.initCalls++
	if s.initDelay > 0 {
		time.Sleep(s.initDelay)
	}
	return nil
}

func (s *stubAPI) Login(_ context.Context, accountID int64, _, server string) (*models.MAccountInfo, error) {
	return &models.MAccountInfo{AccountID: accountID, Server: server}, nil
}

func (s *stubAPI) Ping(_ context.Context) error {
	s.pings++
	return nil
}

func (s *stubAPI) Shutdown() error {
	s.shutdowns++
	return nil
}

func (s *stubAPI) GetSymbols(_ context.Context) ([]string, error) { return nil, nil }
func (s *stubAPI) GetSymbolInfo(_ context.Context, _ string) (*models.MSymbolInfo, error) {
	return nil, nil
}
func (s *stubAPI) GetTick(_ context.Context, _ string) (*models.MTick, error) { return nil, nil }
func (s *stubAPI) GetLatestKline(_ context.Context, _, _ string) (*models.MBar, error) {
	return nil, nil
}
func (s *stubAPI) GetKlineSeries(_ context.Context, _, _ string, _ int) ([]models.MBar, error) {
	return nil, nil
}
func (s *stubAPI) GetOrders(_ context.Context) ([]models.MOrder, error) { return nil, nil }
func (s *stubAPI) GetPositions(_ context.Context, _ string) ([]models.MPosition, error) {
	return nil, nil
}
func (s *stubAPI) GetAccountInfo(_ context.Context) (*models.MAccountInfo, error) { return nil, nil }

// -----------------------------------------------------------------------------

func newTestRegistry() (*Registry, map[int64]*stubAPI) {
	stubs := make(map[int64]*stubAPI)
	factory := func(id int64) interfaces.ITerminalAPI {
		api := &stubAPI{id: id}
		stubs[id] = api
		return api
	}
	return NewRegistry(factory, logger.NewLogger(nil, "test")), stubs
}

// -----------------------------------------------------------------------------

func TestCreateIsIdempotent(t *testing.T) {
	reg, stubs := newTestRegistry()

	a := reg.Create(1)
	b := reg.Create(1)

	assert.Same(t, a, b)
	assert.Len(t, stubs, 1)
	assert.Len(t, reg.List(), 1)
}

func TestHandlesAreIsolated(t *testing.T) {
	reg, stubs := newTestRegistry()

	h1 := reg.Create(1)
	h2 := reg.Create(2)
	require.NoError(t, h1.Initialize(context.Background(), "/tmp/t1"))

	assert.True(t, h1.IsInitialized())
	assert.False(t, h2.IsInitialized())
	assert.Equal(t, 1, stubs[1].initCalls)
	assert.Equal(t, 0, stubs[2].initCalls)
}

func TestInitializeTwiceIsNoop(t *testing.T) {
	reg, stubs := newTestRegistry()
	h := reg.Create(1)

	require.NoError(t, h.Initialize(context.Background(), "/tmp/t1"))
	require.NoError(t, h.Initialize(context.Background(), "/tmp/other"))

	assert.Equal(t, 1, stubs[1].initCalls)
	assert.Equal(t, "/tmp/t1", h.Info().TerminalPath)
}

func TestConcurrentInitializeHitsSessionOnce(t *testing.T) {
	reg, stubs := newTestRegistry()
	h := reg.Create(1)
	stubs[1].initDelay = 5 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Initialize(context.Background(), "/tmp/t1"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, stubs[1].initCalls)
	assert.True(t, h.IsInitialized())
}

func TestGetDoesNotCreate(t *testing.T) {
	reg, stubs := newTestRegistry()

	_, ok := reg.Get(42)
	assert.False(t, ok)
	assert.Empty(t, stubs)
}

func TestDeleteShutsDownSession(t *testing.T) {
	reg, stubs := newTestRegistry()
	reg.Create(1)

	assert.True(t, reg.Delete(1))
	assert.Equal(t, 1, stubs[1].shutdowns)

	_, ok := reg.Get(1)
	assert.False(t, ok)
	assert.False(t, reg.Delete(1))
}

func TestRecreateAfterDeleteGetsFreshSession(t *testing.T) {
	reg, _ := newTestRegistry()

	h := reg.Create(1)
	require.NoError(t, h.Initialize(context.Background(), ""))
	reg.Delete(1)

	fresh := reg.Create(1)
	assert.NotSame(t, h, fresh)
	assert.False(t, fresh.IsInitialized())
}

func TestPingUnknownTerminal(t *testing.T) {
	reg, _ := newTestRegistry()

	err := reg.Ping(context.Background(), 99)
	assert.ErrorIs(t, err, ErrTerminalNotFound)

	reg.Create(1)
	assert.NoError(t, reg.Ping(context.Background(), 1))
}

func TestLoginRecordsAccountState(t *testing.T) {
	reg, _ := newTestRegistry()
	h := reg.Create(1)
	require.NoError(t, h.Initialize(context.Background(), ""))

	info, err := h.Login(context.Background(), 12345, "secret", "Broker-Demo")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), info.AccountID)

	snap := h.Info()
	assert.True(t, snap.LoggedIn)
	assert.Equal(t, int64(12345), snap.AccountID)
	assert.Equal(t, "Broker-Demo", snap.Server)
}
