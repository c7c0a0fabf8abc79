package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5-gateway/src/interfaces"
	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
	"mt5-gateway/src/subscription"
	"mt5-gateway/src/terminal"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeSub struct {
	id       string
	mu       sync.Mutex
	received []interface{}
	fail     bool
}

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Deliver(payload interface{}) error {
	if f.fail {
		return errors.New("send queue full")
	}
	f.mu.Lock()
	f.received = append(f.received, payload)
	f.mu.Unlock()
	return nil
}

func (f *fakeSub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

// -----------------------------------------------------------------------------

type fakeAPI struct {
	tickCalls    int
	klineCalls   int
	orderCalls   int
	accountCalls int
	failTicks    bool
	panicOnce    bool
}

func (f *fakeAPI) Initialize(_ context.Context, _ string) error { return nil }
func (f *fakeAPI) Login(_ context.Context, accountID int64, _, server string) (*models.MAccountInfo, error) {
	return &models.MAccountInfo{AccountID: accountID, Server: server}, nil
}
func (f *fakeAPI) Ping(_ context.Context) error { return nil }
func (f *fakeAPI) Shutdown() error              { return nil }

func (f *fakeAPI) GetSymbols(_ context.Context) ([]string, error) { return []string{"XAUUSD"}, nil }
func (f *fakeAPI) GetSymbolInfo(_ context.Context, symbol string) (*models.MSymbolInfo, error) {
	return &models.MSymbolInfo{Symbol: symbol}, nil
}

func (f *fakeAPI) GetTick(_ context.Context, symbol string) (*models.MTick, error) {
	f.tickCalls++
	if f.panicOnce {
		f.panicOnce = false
		panic("simulated terminal fault")
	}
	if f.failTicks {
		return nil, errors.New("terminal offline")
	}
	return &models.MTick{Symbol: symbol, Bid: 1999.5, Ask: 2000.5}, nil
}

func (f *fakeAPI) GetLatestKline(_ context.Context, symbol, interval string) (*models.MBar, error) {
	f.klineCalls++
	return &models.MBar{Symbol: symbol, Interval: interval, Close: 2000}, nil
}

func (f *fakeAPI) GetKlineSeries(_ context.Context, symbol, interval string, limit int) ([]models.MBar, error) {
	return make([]models.MBar, limit), nil
}

func (f *fakeAPI) GetOrders(_ context.Context) ([]models.MOrder, error) {
	f.orderCalls++
	return []models.MOrder{{Symbol: "XAUUSD"}}, nil
}

func (f *fakeAPI) GetPositions(_ context.Context, symbol string) ([]models.MPosition, error) {
	return []models.MPosition{}, nil
}

func (f *fakeAPI) GetAccountInfo(_ context.Context) (*models.MAccountInfo, error) {
	f.accountCalls++
	return &models.MAccountInfo{Balance: 10000}, nil
}

// -----------------------------------------------------------------------------

func newTestScheduler(t *testing.T) (*Scheduler, *subscription.Index, *fakeAPI) {
	t.Helper()

	api := &fakeAPI{}
	log := logger.NewLogger(nil, "test")
	reg := terminal.NewRegistry(func(int64) interfaces.ITerminalAPI { return api }, log)
	reg.Create(1)

	index := subscription.NewIndex()
	sched := &Scheduler{
		Index:    index,
		Registry: reg,
		Logger:   log,
	}
	return sched, index, api
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestRunTickRespectsFrequency(t *testing.T) {
	sched, index, api := newTestScheduler(t)
	sub := &fakeSub{id: "a"}

	key := subscription.Key("tick|1|XAUUSD")
	index.Subscribe(key, subscription.FeedTick, 1, map[string]string{"symbol": "XAUUSD"}, 1000, 0, sub)

	// no push until a full window has elapsed since subscribing
	sched.runTick(context.Background(), 500)
	assert.Equal(t, 0, api.tickCalls)
	assert.Empty(t, sub.received)

	sched.runTick(context.Background(), 1000)
	assert.Equal(t, 1, api.tickCalls)
	require.Len(t, sub.received, 1)

	// throttled until the next window
	sched.runTick(context.Background(), 1500)
	assert.Equal(t, 1, api.tickCalls)

	sched.runTick(context.Background(), 2000)
	assert.Equal(t, 2, api.tickCalls)

	push, ok := sub.received[0].(*models.MPush)
	require.True(t, ok)
	assert.Equal(t, "tick", push.DataType)
	assert.Equal(t, "XAUUSD", push.Symbol)
}

func TestRunTickFetchesOncePerKey(t *testing.T) {
	sched, index, api := newTestScheduler(t)
	a := &fakeSub{id: "a"}
	b := &fakeSub{id: "b"}

	key := subscription.Key("kline|1|XAUUSD|M5")
	params := map[string]string{"symbol": "XAUUSD", "interval": "M5"}
	index.Subscribe(key, subscription.FeedKline, 1, params, 1000, 0, a)
	index.Subscribe(key, subscription.FeedKline, 1, params, 1000, 0, b)

	sched.runTick(context.Background(), 1000)

	// one fetch, two deliveries
	assert.Equal(t, 1, api.klineCalls)
	assert.Len(t, a.received, 1)
	assert.Len(t, b.received, 1)
}

func TestRunTickFetchFailureRetriesNextTick(t *testing.T) {
	sched, index, api := newTestScheduler(t)
	sub := &fakeSub{id: "a"}

	key := subscription.Key("tick|1|XAUUSD")
	index.Subscribe(key, subscription.FeedTick, 1, map[string]string{"symbol": "XAUUSD"}, 1000, 0, sub)

	api.failTicks = true
	sched.runTick(context.Background(), 1000)
	assert.Empty(t, sub.received)

	// the window was not consumed by the failure
	api.failTicks = false
	sched.runTick(context.Background(), 1100)
	assert.Len(t, sub.received, 1)
}

func TestRunTickPrunesOnlyFailedConnection(t *testing.T) {
	sched, index, _ := newTestScheduler(t)
	healthy := &fakeSub{id: "healthy"}
	broken := &fakeSub{id: "broken", fail: true}

	key := subscription.Key("tick|1|XAUUSD")
	params := map[string]string{"symbol": "XAUUSD"}
	index.Subscribe(key, subscription.FeedTick, 1, params, 1000, 0, healthy)
	index.Subscribe(key, subscription.FeedTick, 1, params, 1000, 0, broken)

	sched.runTick(context.Background(), 1000)

	assert.Len(t, healthy.received, 1)
	assert.Equal(t, 1, index.SubscriberCount(key))

	// the healthy connection keeps receiving
	sched.runTick(context.Background(), 2000)
	assert.Len(t, healthy.received, 2)
}

func TestRunTickMissingTerminalSkipsKey(t *testing.T) {
	sched, index, _ := newTestScheduler(t)
	sub := &fakeSub{id: "a"}

	key := subscription.Key("tick|9|XAUUSD")
	index.Subscribe(key, subscription.FeedTick, 9, map[string]string{"symbol": "XAUUSD"}, 1000, 0, sub)

	sched.runTick(context.Background(), 1000)

	// no push, no prune: the terminal may be registered later
	assert.Empty(t, sub.received)
	assert.Equal(t, 1, index.SubscriberCount(key))
}

func TestRunRecoversFromPanicAndStopsOnCancel(t *testing.T) {
	sched, index, api := newTestScheduler(t)
	sched.TickInterval = 5 * time.Millisecond
	sched.Backoff = 20 * time.Millisecond

	sub := &fakeSub{id: "a"}
	key := subscription.Key("tick|1|XAUUSD")
	index.Subscribe(key, subscription.FeedTick, 1, map[string]string{"symbol": "XAUUSD"}, 1, 0, sub)

	// the first fetch blows up mid-tick
	api.panicOnce = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	// the loop survives the fault, backs off and resumes pushing
	require.Eventually(t, func() bool { return sub.count() > 0 },
		2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}

	// the panicked fetch plus at least one successful retry
	assert.GreaterOrEqual(t, api.tickCalls, 2)
}

func TestRunTickAccountFeeds(t *testing.T) {
	sched, index, api := newTestScheduler(t)
	sub := &fakeSub{id: "a"}

	params := map[string]string{"account_id": "777"}
	index.Subscribe(subscription.Key("order|1|777"), subscription.FeedOrder, 1, params, 1000, 0, sub)
	index.Subscribe(subscription.Key("account|1|777"), subscription.FeedAccount, 1, params, 1000, 0, sub)

	sched.runTick(context.Background(), 1000)

	assert.Equal(t, 1, api.orderCalls)
	assert.Equal(t, 1, api.accountCalls)
	assert.Len(t, sub.received, 2)
}
