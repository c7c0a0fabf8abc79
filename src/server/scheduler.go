package server

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
	"mt5-gateway/src/subscription"
	"mt5-gateway/src/terminal"
)

// -----------------------------------------------------------------------------
// Push Scheduler
//
// One goroutine drives all pushes. Every tick it asks the index for the
// keys whose frequency window has elapsed, fetches each feed once from
// the owning terminal, and fans the payload out to every connection on
// that key. A connection that unsubscribes between the snapshot and the
// fan-out may still receive that one in-flight push.
// -----------------------------------------------------------------------------

type Scheduler struct {
	Index    *subscription.Index
	Registry *terminal.Registry
	Logger   *logger.Logger

	TickInterval time.Duration
	Backoff      time.Duration
}

// -----------------------------------------------------------------------------

func (s *Scheduler) Run(ctx context.Context) {
	s.Logger.Info("Push scheduler started (tick %v)", s.TickInterval)

	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Push scheduler stopped")
			return

		case <-ticker.C:
			if !s.safeTick(ctx) {
				// Pause before resuming so a persistent fault cannot
				// spin the loop at full tick rate
				select {
				case <-ctx.Done():
					s.Logger.Info("Push scheduler stopped")
					return
				case <-time.After(s.Backoff):
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Scheduler) safeTick(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("Scheduler tick panicked: %v", r)
			ok = false
		}
	}()

	s.runTick(ctx, time.Now().UnixMilli())
	return true
}

// -----------------------------------------------------------------------------

// runTick pushes every due feed exactly once. Fetch failures leave the
// record's clock untouched so the next tick retries; delivery failures
// detach only the failing connection.
func (s *Scheduler) runTick(ctx context.Context, nowMs int64) {
	for _, due := range s.Index.Due(nowMs) {
		payload, err := s.fetch(ctx, due, nowMs)
		if err != nil {
			s.Logger.Debug("Fetch for %s skipped: %v", due.Key, err)
			continue
		}

		s.Index.MarkPushed(due.Key, nowMs)

		for _, sub := range due.Subscribers {
			if err := sub.Deliver(payload); err != nil {
				s.Logger.Warning("Dropping %s from %s: %v", sub.ID(), due.Key, err)
				s.Index.Unsubscribe(due.Key, sub.ID())
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Scheduler) fetch(ctx context.Context, due subscription.DueFeed, nowMs int64) (*models.MPush, error) {
	h, ok := s.Registry.Get(due.TerminalID)
	if !ok {
		return nil, errors.Wrapf(terminal.ErrTerminalNotFound, "terminal %d", due.TerminalID)
	}

	push := &models.MPush{
		DataType:  string(due.Feed),
		Timestamp: nowMs,
	}

	switch due.Feed {
	case subscription.FeedKline:
		symbol := due.Params["symbol"]
		interval := due.Params["interval"]
		bar, err := h.API.GetLatestKline(ctx, symbol, interval)
		if err != nil {
			return nil, err
		}
		push.Symbol = symbol
		push.Timeframe = interval
		push.Data = bar

	case subscription.FeedTick:
		symbol := due.Params["symbol"]
		tick, err := h.API.GetTick(ctx, symbol)
		if err != nil {
			return nil, err
		}
		push.Symbol = symbol
		push.Data = tick

	case subscription.FeedOrder:
		ords, err := h.API.GetOrders(ctx)
		if err != nil {
			return nil, err
		}
		push.Data = ords

	case subscription.FeedPosition:
		positions, err := h.API.GetPositions(ctx, due.Params["symbol"])
		if err != nil {
			return nil, err
		}
		push.Symbol = due.Params["symbol"]
		push.Data = positions

	case subscription.FeedAccount:
		info, err := h.API.GetAccountInfo(ctx)
		if err != nil {
			return nil, err
		}
		push.Data = info

	default:
		return nil, errors.Errorf("unsupported data type: %s", due.Feed)
	}

	return push, nil
}
