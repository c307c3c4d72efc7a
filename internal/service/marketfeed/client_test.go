package marketfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigForge/internal/domain/models"
	"SigForge/pkg/logger"
)

type captureSink struct {
	candles []models.Candle
}

func (s *captureSink) PublishCandle(_ context.Context, c models.Candle) error {
	s.candles = append(s.candles, c)
	return nil
}

func TestApplyTradeAggregatesWithinBucket(t *testing.T) {
	sink := &captureSink{}
	c := NewClient(Config{Timeframe: "1h"}, sink, logger.Nop())

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	c.applyTrade(ctx, "BTCUSDT", 100, 1, base.Add(time.Minute))
	c.applyTrade(ctx, "BTCUSDT", 105, 2, base.Add(10*time.Minute))
	c.applyTrade(ctx, "BTCUSDT", 95, 1, base.Add(20*time.Minute))
	c.applyTrade(ctx, "BTCUSDT", 102, 1, base.Add(30*time.Minute))

	// nothing flushed until the bucket rolls over
	assert.Empty(t, sink.candles)

	c.applyTrade(ctx, "BTCUSDT", 103, 1, base.Add(time.Hour+time.Minute))
	require.Len(t, sink.candles, 1)

	got := sink.candles[0]
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.Equal(t, base, got.Bucket)
	assert.Equal(t, 100.0, got.Open)
	assert.Equal(t, 105.0, got.High)
	assert.Equal(t, 95.0, got.Low)
	assert.Equal(t, 102.0, got.Close)
	assert.Equal(t, 5.0, got.Volume)
}

func TestApplyTradeTracksSymbolsIndependently(t *testing.T) {
	sink := &captureSink{}
	c := NewClient(Config{Timeframe: "1h"}, sink, logger.Nop())

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	c.applyTrade(ctx, "BTCUSDT", 100, 1, base)
	c.applyTrade(ctx, "ETHUSDT", 10, 1, base)
	c.applyTrade(ctx, "BTCUSDT", 101, 1, base.Add(time.Hour))

	require.Len(t, sink.candles, 1)
	assert.Equal(t, "BTCUSDT", sink.candles[0].Symbol)
	assert.Equal(t, 100.0, sink.candles[0].Close)
}
