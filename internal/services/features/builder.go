package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/pkg/logger"
)

// Indicator periods used across the pipeline. The slowest window defines
// the minimum history required per timeframe.
const (
	PeriodSMA     = 20
	PeriodEMAFast = 20
	PeriodEMASlow = 50
	PeriodRSI     = 14
	PeriodBoll    = 20
	PeriodATR     = 14
	PeriodVol     = 20

	BollStdDevs = 2.0

	// MinBars is the minimum candle count per timeframe for a full
	// feature set (slowest window plus one for returns).
	MinBars = PeriodEMASlow + 1
)

// Config controls which timeframes the builder evaluates.
type Config struct {
	WorkingTimeframe repository.Timeframe
	Timeframes       []repository.Timeframe // confluence set, ascending
	HistoryBars      int
}

// Builder assembles feature vectors from candles and sentiment snapshots.
type Builder struct {
	market    repository.MarketStore
	sentiment repository.SentimentStore
	cfg       Config
	logger    *logger.Logger
}

// NewBuilder creates a feature builder.
func NewBuilder(market repository.MarketStore, sentiment repository.SentimentStore, cfg Config, lgr *logger.Logger) *Builder {
	if cfg.HistoryBars < MinBars {
		cfg.HistoryBars = MinBars
	}
	return &Builder{market: market, sentiment: sentiment, cfg: cfg, logger: lgr}
}

// Build computes the feature vector for a symbol at ts. It fails with
// models.ErrInsufficientHistory when any configured timeframe has fewer
// than MinBars candles; callers skip the symbol for the cycle.
func (b *Builder) Build(ctx context.Context, symbol string, ts time.Time) (*models.FeatureVector, error) {
	fv := &models.FeatureVector{
		Symbol:    symbol,
		Timeframe: b.cfg.WorkingTimeframe.String(),
		Timestamp: ts,
		Values:    make(map[string]float64),
	}

	series := make(map[repository.Timeframe][]models.Candle, len(b.cfg.Timeframes))
	for _, tf := range b.cfg.Timeframes {
		candles, err := b.market.CandlesBefore(ctx, symbol, tf, ts, b.cfg.HistoryBars)
		if err != nil {
			return nil, fmt.Errorf("load candles %s/%s: %w", symbol, tf, err)
		}
		if len(candles) < MinBars {
			return nil, fmt.Errorf("%s/%s has %d of %d bars: %w",
				symbol, tf, len(candles), MinBars, models.ErrInsufficientHistory)
		}
		series[tf] = candles
		b.applyIndicators(fv, tf, candles)
	}

	working, ok := series[b.cfg.WorkingTimeframe]
	if !ok {
		candles, err := b.market.CandlesBefore(ctx, symbol, b.cfg.WorkingTimeframe, ts, b.cfg.HistoryBars)
		if err != nil {
			return nil, fmt.Errorf("load working candles %s: %w", symbol, err)
		}
		if len(candles) < MinBars {
			return nil, fmt.Errorf("%s/%s has %d of %d bars: %w",
				symbol, b.cfg.WorkingTimeframe, len(candles), MinBars, models.ErrInsufficientHistory)
		}
		working = candles
		b.applyIndicators(fv, b.cfg.WorkingTimeframe, working)
	}
	fv.Set(models.FeatClose, working[len(working)-1].Close)

	fv.Set(models.FeatConfluence, Confluence(fv, b.cfg.Timeframes))

	if err := b.mergeSentiment(ctx, fv, symbol, ts); err != nil {
		return nil, err
	}
	return fv, nil
}

// applyIndicators computes the per-timeframe indicator block.
func (b *Builder) applyIndicators(fv *models.FeatureVector, tf repository.Timeframe, candles []models.Candle) {
	closes := Closes(candles)
	suffix := tf.String()

	fv.Set(models.TFKey(models.FeatSMA, suffix), SMA(closes, PeriodSMA))
	fv.Set(models.TFKey(models.FeatEMAFast, suffix), EMA(closes, PeriodEMAFast))
	fv.Set(models.TFKey(models.FeatEMASlow, suffix), EMA(closes, PeriodEMASlow))
	fv.Set(models.TFKey(models.FeatRSI, suffix), RSI(closes, PeriodRSI))

	upper, middle, lower := Bollinger(closes, PeriodBoll, BollStdDevs)
	fv.Set(models.TFKey(models.FeatBollUpper, suffix), upper)
	fv.Set(models.TFKey(models.FeatBollMiddle, suffix), middle)
	fv.Set(models.TFKey(models.FeatBollLower, suffix), lower)

	fv.Set(models.TFKey(models.FeatATR, suffix), ATR(candles, PeriodATR))

	returns := LogReturns(closes)
	if len(returns) > 0 {
		fv.Set(models.TFKey(models.FeatLogReturn, suffix), returns[len(returns)-1])
	}
	fv.Set(models.TFKey(models.FeatRealizedVol, suffix), RealizedVol(returns, PeriodVol))
}

// mergeSentiment folds in the latest snapshot at-or-before ts. A missing
// snapshot records neutral 0.5 with sentiment_fresh=0 so the scorer can
// treat the source as absent.
func (b *Builder) mergeSentiment(ctx context.Context, fv *models.FeatureVector, symbol string, ts time.Time) error {
	snap, err := b.sentiment.LatestBefore(ctx, symbol, ts)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			fv.Set(models.FeatSentiment, 0.5)
			fv.Set(models.FeatSentimentFresh, 0)
			return nil
		}
		return fmt.Errorf("load sentiment %s: %w", symbol, err)
	}
	fv.Set(models.FeatSentiment, snap.Score)
	fv.Set(models.FeatSentimentFresh, 1)
	return nil
}
