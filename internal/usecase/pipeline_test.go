package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/internal/services/entry"
	"SigForge/internal/services/features"
	"SigForge/internal/services/scoring"
	"SigForge/internal/services/strategy"
	"SigForge/pkg/cache"
	"SigForge/pkg/logger"
)

func newTestPipeline(market *memMarketStore, sentiment *memSentimentStore, signals *memSignalStore, predictor *stubPredictor) *Pipeline {
	tfs := []repository.Timeframe{repository.TF1h, repository.TF4h, repository.TF1d}
	builder := features.NewBuilder(market, sentiment, features.Config{
		WorkingTimeframe: repository.TF1h,
		Timeframes:       tfs,
		HistoryBars:      120,
	}, logger.Nop())

	engine := strategy.NewEngine(strategy.Config{
		Timeframes:    tfs,
		TakeProfitPct: 3.0,
		StopLossPct:   1.5,
		MinRewardRisk: 1.5,
	}, logger.Nop())

	selection := NewSelectionEngine(signals, cache.NewMemoryCache(), noopMetrics{}, selectionConfig(), logger.Nop())

	return NewPipeline(builder, engine, entry.NewDetector(0.3), predictor, selection,
		market, signals, noopMetrics{},
		PipelineConfig{
			Symbols:          []string{"AAA", "BBB"},
			WorkingTimeframe: repository.TF1h,
			HistoryBars:      120,
			Workers:          2,
			StrategyWeight:   0.6,
			SentimentWeight:  0.2,
			MLWeight:         0.2,
		}, logger.Nop())
}

func TestRunCycleFlagsIncompleteOnSkippedSymbols(t *testing.T) {
	market := newMemMarketStore()
	signals := newMemSignalStore()
	p := newTestPipeline(market, newMemSentimentStore(), signals, &stubPredictor{err: models.ErrInferenceUnavailable})

	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	result, err := p.RunCycle(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-10T14", result.PeriodKey)
	assert.False(t, result.Complete)
	assert.Equal(t, "insufficient_history", result.Skipped["AAA"])
	assert.Equal(t, "insufficient_history", result.Skipped["BBB"])
	assert.Empty(t, result.Selected)
}

func TestScoreCandidateRedistributesAbsentSources(t *testing.T) {
	market := newMemMarketStore()
	p := newTestPipeline(market, newMemSentimentStore(), newMemSignalStore(),
		&stubPredictor{err: models.ErrInferenceUnavailable})

	// sentiment present, ML unavailable: weights renormalize to
	// {strategy 0.75, sentiment 0.25} and 0.75*0.8 + 0.25*0.6 = 0.75
	fv := &models.FeatureVector{
		Symbol: "AAA", Timeframe: "1h",
		Timestamp: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		Values: map[string]float64{
			models.FeatSentiment:      0.6,
			models.FeatSentimentFresh: 1,
		},
	}
	sig := &models.CandidateSignal{
		Symbol:        "AAA",
		Direction:     models.DirectionLong,
		StrategyScore: 0.8,
	}
	p.scoreCandidate(context.Background(), sig, fv)

	assert.InDelta(t, 0.75, sig.QualityScore, 1e-9)
	require.NotNil(t, sig.SentimentScore)
	assert.Equal(t, 0.6, *sig.SentimentScore)
	assert.Nil(t, sig.MLScore)
	assert.Equal(t, scoring.Strength(sig.QualityScore), sig.Strength)
}

func TestScoreCandidateStrategyOnly(t *testing.T) {
	market := newMemMarketStore()
	p := newTestPipeline(market, newMemSentimentStore(), newMemSignalStore(),
		&stubPredictor{err: models.ErrInferenceUnavailable})

	fv := &models.FeatureVector{
		Symbol: "AAA", Timeframe: "1h",
		Timestamp: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		Values:    map[string]float64{},
	}
	sig := &models.CandidateSignal{
		Symbol:        "AAA",
		Direction:     models.DirectionLong,
		StrategyScore: 0.8,
	}
	p.scoreCandidate(context.Background(), sig, fv)

	// single present source carries full weight
	assert.InDelta(t, 0.8, sig.QualityScore, 1e-9)
	assert.Nil(t, sig.SentimentScore)
	assert.Nil(t, sig.MLScore)
}

func TestScoreCandidateShortInvertsSentiment(t *testing.T) {
	market := newMemMarketStore()
	p := newTestPipeline(market, newMemSentimentStore(), newMemSignalStore(),
		&stubPredictor{err: models.ErrInferenceUnavailable})

	fv := &models.FeatureVector{
		Symbol: "AAA", Timeframe: "1h",
		Timestamp: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		Values: map[string]float64{
			models.FeatSentiment:      0.2, // bearish supports a short
			models.FeatSentimentFresh: 1,
		},
	}
	sig := &models.CandidateSignal{
		Symbol:        "AAA",
		Direction:     models.DirectionShort,
		StrategyScore: 0.8,
	}
	p.scoreCandidate(context.Background(), sig, fv)

	// 0.75*0.8 + 0.25*(1-0.2) = 0.8
	assert.InDelta(t, 0.8, sig.QualityScore, 1e-9)
}

func TestSignalIDDeterministicPerPeriod(t *testing.T) {
	at := time.Date(2026, 3, 10, 14, 20, 0, 0, time.UTC)
	again := time.Date(2026, 3, 10, 14, 55, 0, 0, time.UTC)
	assert.Equal(t, signalID("AAA", at), signalID("AAA", again))
	assert.NotEqual(t, signalID("AAA", at), signalID("BBB", at))
}
