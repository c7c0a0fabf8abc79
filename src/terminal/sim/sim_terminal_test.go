package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5-gateway/src/models"
)

func TestRequiresInitialize(t *testing.T) {
	s := NewSimTerminal(1)
	ctx := context.Background()

	_, err := s.GetTick(ctx, "XAUUSD")
	assert.Error(t, err)
	_, err = s.Login(ctx, 1, "", "srv")
	assert.Error(t, err)
	assert.Error(t, s.Ping(ctx))

	require.NoError(t, s.Initialize(ctx, ""))
	assert.NoError(t, s.Ping(ctx))
}

func TestTickWalksAroundBase(t *testing.T) {
	s := NewSimTerminal(1)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx, ""))

	tick, err := s.GetTick(ctx, "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, "XAUUSD", tick.Symbol)
	assert.Greater(t, tick.Ask, tick.Bid)
	assert.InDelta(t, 2000.0, tick.Last, 100)

	// unknown symbols get the default base price
	other, err := s.GetTick(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, other.Last, 10)
}

func TestKlineSeriesIsConsistent(t *testing.T) {
	s := NewSimTerminal(1)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx, ""))

	first, err := s.GetKlineSeries(ctx, "EURUSD", "M5", 10)
	require.NoError(t, err)
	require.Len(t, first, 10)

	// the rolling history keeps earlier bars stable between calls
	second, err := s.GetKlineSeries(ctx, "EURUSD", "M5", 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, bar := range first {
		assert.GreaterOrEqual(t, bar.High, bar.Low)
		assert.Equal(t, "M5", bar.Interval)
	}
}

func TestLatestKlineExtendsHistory(t *testing.T) {
	s := NewSimTerminal(1)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx, ""))

	bar, err := s.GetLatestKline(ctx, "EURUSD", "M1")
	require.NoError(t, err)

	series, err := s.GetKlineSeries(ctx, "EURUSD", "M1", 1)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, *bar, series[0])
}

func TestPositionsFilter(t *testing.T) {
	s := NewSimTerminal(1)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx, ""))

	s.SetPositions([]models.MPosition{
		{PositionID: 1, Symbol: "XAUUSD"},
		{PositionID: 2, Symbol: "EURUSD"},
	})

	all, err := s.GetPositions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	gold, err := s.GetPositions(ctx, "XAUUSD")
	require.NoError(t, err)
	require.Len(t, gold, 1)
	assert.Equal(t, int64(1), gold[0].PositionID)
}

func TestShutdownClearsHistory(t *testing.T) {
	s := NewSimTerminal(1)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx, ""))

	_, err := s.GetKlineSeries(ctx, "EURUSD", "M5", 5)
	require.NoError(t, err)

	require.NoError(t, s.Shutdown())
	_, err = s.GetTick(ctx, "EURUSD")
	assert.Error(t, err)
}
