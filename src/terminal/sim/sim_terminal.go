package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------
// SimTerminal
//
// In-process stand-in for a real terminal agent. Prices follow a random
// walk around fixed base levels; account state is settable so tests and
// local runs can exercise the order/position/account feeds.
// -----------------------------------------------------------------------------

var basePrices = map[string]float64{
	"XAUUSD": 2000.0,
	"EURUSD": 1.1,
	"GBPUSD": 1.3,
	"USDJPY": 150.0,
}

const defaultBasePrice = 100.0

const historyCapacity = 500

// -----------------------------------------------------------------------------

type SimTerminal struct {
	TerminalID int64

	mu          sync.Mutex
	rng         *rand.Rand
	initialized bool
	loggedIn    bool
	prices      map[string]float64
	history     map[string]*barRing
	account     models.MAccountInfo
	orders      []models.MOrder
	positions   []models.MPosition
}

// -----------------------------------------------------------------------------

func NewSimTerminal(id int64) *SimTerminal {
	prices := make(map[string]float64, len(basePrices))
	for sym, p := range basePrices {
		prices[sym] = p
	}
	return &SimTerminal{
		TerminalID: id,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano() + id)),
		prices:     prices,
		history:    make(map[string]*barRing),
		account: models.MAccountInfo{
			Currency: "USD",
			Leverage: 100,
			Balance:  10000,
			Equity:   10000,
		},
	}
}

// -----------------------------------------------------------------------------
// Session lifecycle
// -----------------------------------------------------------------------------

func (s *SimTerminal) Initialize(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *SimTerminal) Login(_ context.Context, accountID int64, _, server string) (*models.MAccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	s.loggedIn = true
	s.account.AccountID = accountID
	s.account.Server = server
	info := s.account
	return &info, nil
}

func (s *SimTerminal) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	return nil
}

func (s *SimTerminal) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.loggedIn = false
	for _, ring := range s.history {
		ring.Clear()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Market data
// -----------------------------------------------------------------------------

func (s *SimTerminal) GetSymbols(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	symbols := make([]string, 0, len(s.prices))
	for sym := range s.prices {
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

func (s *SimTerminal) GetSymbolInfo(_ context.Context, symbol string) (*models.MSymbolInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	return &models.MSymbolInfo{
		Symbol:    symbol,
		Digits:    5,
		Point:     0.00001,
		MinVolume: 0.01,
		MaxVolume: 1000000,
		Spread:    2,
	}, nil
}

func (s *SimTerminal) GetTick(_ context.Context, symbol string) (*models.MTick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	price := s.walk(symbol)
	spread := price * 0.0001
	return &models.MTick{
		Symbol:    symbol,
		Timestamp: time.Now().UnixMilli(),
		Bid:       price - spread/2,
		Ask:       price + spread/2,
		Last:      price,
		Volume:    float64(s.rng.Intn(900) + 100),
	}, nil
}

func (s *SimTerminal) GetLatestKline(_ context.Context, symbol, interval string) (*models.MBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	return s.makeBar(symbol, interval), nil
}

func (s *SimTerminal) GetKlineSeries(_ context.Context, symbol, interval string, limit int) ([]models.MBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	if limit <= 0 {
		limit = 1
	}

	// Generate until the rolling history covers the request, then serve
	// the window so repeated calls agree on past bars
	ring := s.ring(symbol, interval)
	for ring.Size() < limit && ring.Size() < ring.Capacity() {
		s.makeBar(symbol, interval)
	}
	return ring.Latest(limit), nil
}

// -----------------------------------------------------------------------------
// Account state
// -----------------------------------------------------------------------------

func (s *SimTerminal) GetOrders(_ context.Context) ([]models.MOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	return append([]models.MOrder(nil), s.orders...), nil
}

func (s *SimTerminal) GetPositions(_ context.Context, symbol string) ([]models.MPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	out := make([]models.MPosition, 0, len(s.positions))
	for _, p := range s.positions {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *SimTerminal) GetAccountInfo(_ context.Context) (*models.MAccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("terminal %d not initialized", s.TerminalID)
	}
	info := s.account
	return &info, nil
}

// -----------------------------------------------------------------------------
// Test/demo state injection
// -----------------------------------------------------------------------------

func (s *SimTerminal) SetOrders(orders []models.MOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append([]models.MOrder(nil), orders...)
}

func (s *SimTerminal) SetPositions(positions []models.MPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append([]models.MPosition(nil), positions...)
}

// -----------------------------------------------------------------------------
// Internals (mu held)
// -----------------------------------------------------------------------------

func (s *SimTerminal) walk(symbol string) float64 {
	price, ok := s.prices[symbol]
	if !ok {
		price = defaultBasePrice
		s.prices[symbol] = price
	}
	price += (s.rng.Float64() - 0.5) * 0.01 * price
	s.prices[symbol] = price
	return price
}

func (s *SimTerminal) ring(symbol, interval string) *barRing {
	key := symbol + "|" + interval
	ring, ok := s.history[key]
	if !ok {
		ring = newBarRing(historyCapacity)
		s.history[key] = ring
	}
	return ring
}

func (s *SimTerminal) makeBar(symbol, interval string) *models.MBar {
	price := s.walk(symbol)
	open := price - (s.rng.Float64()-0.5)*0.005*price
	high := maxFloat(open, price) + s.rng.Float64()*0.002*price
	low := minFloat(open, price) - s.rng.Float64()*0.002*price
	bar := models.MBar{
		Symbol:    symbol,
		Interval:  interval,
		Timestamp: time.Now().UnixMilli(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     price,
		Volume:    float64(s.rng.Intn(900) + 100),
	}
	s.ring(symbol, interval).Append(bar)
	return &bar
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
