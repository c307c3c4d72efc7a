package features

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/pkg/logger"
)

type stubMarketStore struct {
	candles map[string][]models.Candle // keyed by symbol+"/"+timeframe
}

func (s *stubMarketStore) InsertCandles(_ context.Context, _ []models.Candle) error { return nil }

func (s *stubMarketStore) CandlesBefore(_ context.Context, symbol string, tf repository.Timeframe, ts time.Time, limit int) ([]models.Candle, error) {
	all := s.candles[symbol+"/"+tf.String()]
	out := make([]models.Candle, 0, len(all))
	for _, c := range all {
		if !c.Bucket.After(ts) {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *stubMarketStore) CandlesRange(_ context.Context, symbol string, tf repository.Timeframe, from, to time.Time) ([]models.Candle, error) {
	all := s.candles[symbol+"/"+tf.String()]
	out := make([]models.Candle, 0, len(all))
	for _, c := range all {
		if !c.Bucket.Before(from) && !c.Bucket.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

type stubSentimentStore struct {
	snaps map[string]models.SentimentSnapshot
}

func (s *stubSentimentStore) InsertSnapshot(_ context.Context, _ models.SentimentSnapshot) error {
	return nil
}

func (s *stubSentimentStore) LatestBefore(_ context.Context, symbol string, _ time.Time) (models.SentimentSnapshot, error) {
	snap, ok := s.snaps[symbol]
	if !ok {
		return models.SentimentSnapshot{}, models.ErrNotFound
	}
	return snap, nil
}

// trendingCandles builds n bars ending at end, stepping price by drift per bar.
func trendingCandles(symbol string, tf repository.Timeframe, end time.Time, n int, start, drift float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		price := start + drift*float64(i)
		out[i] = models.Candle{
			Symbol:    symbol,
			Timeframe: tf.String(),
			Bucket:    end.Add(-time.Duration(n-1-i) * tf.Duration()),
			Open:      price - drift/2,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    10,
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		WorkingTimeframe: repository.TF1h,
		Timeframes:       []repository.Timeframe{repository.TF1h, repository.TF4h, repository.TF1d},
		HistoryBars:      120,
	}
}

func TestBuildProducesFullFeatureSet(t *testing.T) {
	end := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	market := &stubMarketStore{candles: map[string][]models.Candle{}}
	for _, tf := range []repository.Timeframe{repository.TF1h, repository.TF4h, repository.TF1d} {
		market.candles["BTCUSDT/"+tf.String()] = trendingCandles("BTCUSDT", tf, end, 120, 100, 0.5)
	}
	sentiment := &stubSentimentStore{snaps: map[string]models.SentimentSnapshot{
		"BTCUSDT": {Symbol: "BTCUSDT", Score: 0.7, Timestamp: end.Add(-time.Hour)},
	}}

	b := NewBuilder(market, sentiment, testConfig(), logger.Nop())
	fv, err := b.Build(context.Background(), "BTCUSDT", end)
	require.NoError(t, err)

	for _, tf := range []string{"1h", "4h", "1d"} {
		for _, feat := range []string{models.FeatEMAFast, models.FeatEMASlow, models.FeatRSI, models.FeatATR} {
			_, ok := fv.Get(models.TFKey(feat, tf))
			assert.True(t, ok, "missing %s_%s", feat, tf)
		}
	}

	sent, ok := fv.Get(models.FeatSentiment)
	require.True(t, ok)
	assert.Equal(t, 0.7, sent)
	assert.Equal(t, 1.0, fv.GetDefault(models.FeatSentimentFresh, -1))

	// uptrend on every timeframe: full confluence
	assert.Equal(t, 1.0, fv.GetDefault(models.FeatConfluence, -1))
	assert.Equal(t, models.DirectionLong, DominantBias(fv, testConfig().Timeframes))
}

func TestBuildInsufficientHistory(t *testing.T) {
	end := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	market := &stubMarketStore{candles: map[string][]models.Candle{
		"ETHUSDT/1h": trendingCandles("ETHUSDT", repository.TF1h, end, MinBars-1, 100, 0.5),
		"ETHUSDT/4h": trendingCandles("ETHUSDT", repository.TF4h, end, 120, 100, 0.5),
		"ETHUSDT/1d": trendingCandles("ETHUSDT", repository.TF1d, end, 120, 100, 0.5),
	}}
	sentiment := &stubSentimentStore{snaps: map[string]models.SentimentSnapshot{}}

	b := NewBuilder(market, sentiment, testConfig(), logger.Nop())
	_, err := b.Build(context.Background(), "ETHUSDT", end)
	require.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestBuildMissingSentimentIsNeutral(t *testing.T) {
	end := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	market := &stubMarketStore{candles: map[string][]models.Candle{}}
	for _, tf := range []repository.Timeframe{repository.TF1h, repository.TF4h, repository.TF1d} {
		market.candles["SOLUSDT/"+tf.String()] = trendingCandles("SOLUSDT", tf, end, 120, 50, -0.2)
	}
	sentiment := &stubSentimentStore{snaps: map[string]models.SentimentSnapshot{}}

	b := NewBuilder(market, sentiment, testConfig(), logger.Nop())
	fv, err := b.Build(context.Background(), "SOLUSDT", end)
	require.NoError(t, err)

	assert.Equal(t, 0.5, fv.GetDefault(models.FeatSentiment, -1))
	assert.Equal(t, 0.0, fv.GetDefault(models.FeatSentimentFresh, -1))
	assert.Equal(t, models.DirectionShort, DominantBias(fv, testConfig().Timeframes))
}

func TestConfluencePartialAgreement(t *testing.T) {
	fv := &models.FeatureVector{Values: map[string]float64{}}
	// 1h bearish, 4h and 1d bullish: dominant long, weights 2+3 of 6
	fv.Set(models.TFKey(models.FeatEMAFast, "1h"), 90)
	fv.Set(models.TFKey(models.FeatEMASlow, "1h"), 100)
	fv.Set(models.TFKey(models.FeatEMAFast, "4h"), 110)
	fv.Set(models.TFKey(models.FeatEMASlow, "4h"), 100)
	fv.Set(models.TFKey(models.FeatEMAFast, "1d"), 120)
	fv.Set(models.TFKey(models.FeatEMASlow, "1d"), 100)

	tfs := []repository.Timeframe{repository.TF1h, repository.TF4h, repository.TF1d}
	got := Confluence(fv, tfs)
	assert.InDelta(t, 5.0/6.0, got, 1e-9)
	assert.Equal(t, models.DirectionLong, DominantBias(fv, tfs))
}
