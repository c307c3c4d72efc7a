package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/internal/domain/service"
	"SigForge/internal/services/entry"
	"SigForge/internal/services/features"
	"SigForge/internal/services/scoring"
	"SigForge/internal/services/strategy"
	"SigForge/pkg/logger"
	"SigForge/pkg/util"
)

// PipelineConfig holds the evaluation cycle parameters.
type PipelineConfig struct {
	Symbols          []string
	WorkingTimeframe repository.Timeframe
	HistoryBars      int
	Workers          int

	StrategyWeight  float64
	SentimentWeight float64
	MLWeight        float64
}

// CycleResult summarizes one pipeline run. Skipped maps symbols to the
// reason they were not evaluated; Complete is false when any symbol was
// skipped, so callers never mistake a partial period for a full one.
type CycleResult struct {
	PeriodKey  string
	Evaluated  int
	Candidates int
	Skipped    map[string]string
	Selected   []models.SelectionRecord
	Complete   bool
}

// Pipeline runs the per-period evaluation cycle: features, strategy, ML,
// scoring and entry classification fan out per symbol through a bounded
// worker pool, then synchronize once at the selection engine.
type Pipeline struct {
	builder   *features.Builder
	strategy  *strategy.Engine
	detector  *entry.Detector
	predictor service.Predictor
	selection *SelectionEngine
	market    repository.MarketStore
	signals   repository.SignalStore
	metrics   repository.Metrics
	cfg       PipelineConfig
	logger    *logger.Logger
}

// NewPipeline creates the evaluation pipeline.
func NewPipeline(
	builder *features.Builder,
	strategyEngine *strategy.Engine,
	detector *entry.Detector,
	predictor service.Predictor,
	selection *SelectionEngine,
	market repository.MarketStore,
	signals repository.SignalStore,
	metrics repository.Metrics,
	cfg PipelineConfig,
	lgr *logger.Logger,
) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Pipeline{
		builder:   builder,
		strategy:  strategyEngine,
		detector:  detector,
		predictor: predictor,
		selection: selection,
		market:    market,
		signals:   signals,
		metrics:   metrics,
		cfg:       cfg,
		logger:    lgr,
	}
}

// RunCycle evaluates all configured symbols for the period containing now
// and closes the period's selection. Per-symbol failures are recorded and
// skipped; only selection-level failures abort the cycle.
func (p *Pipeline) RunCycle(ctx context.Context, now time.Time) (*CycleResult, error) {
	started := time.Now()
	periodKey := util.PeriodKey(now)
	period := NewPeriod(periodKey)

	result := &CycleResult{
		PeriodKey: periodKey,
		Skipped:   make(map[string]string),
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		symbols = make(chan string)
	)
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range symbols {
				sig, skipReason := p.evaluateSymbol(ctx, sym, now)

				mu.Lock()
				if skipReason != "" {
					result.Skipped[sym] = skipReason
				} else {
					result.Evaluated++
				}
				mu.Unlock()

				if sig != nil {
					if err := period.Add(*sig); err != nil {
						p.logger.Warn("candidate rejected", logger.String("symbol", sym), logger.Error(err))
					}
				}
			}
		}()
	}
	for _, sym := range p.cfg.Symbols {
		symbols <- sym
	}
	close(symbols)
	wg.Wait()

	candidates := period.snapshot()
	result.Candidates = len(candidates)
	if err := p.signals.InsertSignals(ctx, candidates); err != nil {
		p.metrics.RecordError("persist_signals")
		return result, fmt.Errorf("persist candidates %s: %w", periodKey, err)
	}

	records, err := p.selection.Close(ctx, period)
	if err != nil {
		return result, err
	}
	result.Selected = records
	result.Complete = len(result.Skipped) == 0

	p.metrics.RecordLatency("pipeline_cycle", time.Since(started).Seconds())
	p.logger.Info("pipeline cycle finished",
		logger.String("period", periodKey),
		logger.Int("evaluated", result.Evaluated),
		logger.Int("skipped", len(result.Skipped)),
		logger.Int("candidates", result.Candidates),
		logger.Int("selected", len(records)),
	)
	return result, nil
}

// evaluateSymbol produces at most one scored candidate. The returned skip
// reason is empty when the symbol was evaluated, whether or not it
// yielded a candidate.
func (p *Pipeline) evaluateSymbol(ctx context.Context, symbol string, now time.Time) (*models.CandidateSignal, string) {
	fv, err := p.builder.Build(ctx, symbol, now)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientHistory) {
			p.metrics.RecordSkip("insufficient_history")
			p.logger.Debug("skipping symbol", logger.String("symbol", symbol), logger.Error(err))
			return nil, "insufficient_history"
		}
		p.metrics.RecordError("feature_build")
		p.logger.Error("feature build failed", logger.String("symbol", symbol), logger.Error(err))
		return nil, "feature_build_failed"
	}

	candles, err := p.market.CandlesBefore(ctx, symbol, p.cfg.WorkingTimeframe, now, p.cfg.HistoryBars)
	if err != nil {
		p.metrics.RecordError("load_candles")
		return nil, "load_candles_failed"
	}

	stub := p.strategy.Evaluate(fv, candles)
	if stub == nil {
		return nil, ""
	}

	entryRes := p.detector.Detect(candles)
	stub.EntryPointType = entryRes.Type
	stub.EntryZoneLow = entryRes.ZoneLow
	stub.EntryZoneHigh = entryRes.ZoneHigh

	p.scoreCandidate(ctx, stub, fv)
	stub.ID = signalID(symbol, now)

	p.metrics.RecordCandidate(symbol, string(stub.Direction))
	p.metrics.RecordQualityScore(symbol, stub.QualityScore)
	return stub, ""
}

// scoreCandidate fills the sub-scores, composite quality, confidence and
// strength tier. Absent sources are dropped from the composite and their
// weight renormalized over the rest.
func (p *Pipeline) scoreCandidate(ctx context.Context, sig *models.CandidateSignal, fv *models.FeatureVector) {
	inputs := map[scoring.Source]scoring.Input{
		scoring.SourceStrategy: {Weight: p.cfg.StrategyWeight, Value: sig.StrategyScore, Present: true},
	}

	var sentimentPtr *float64
	if fv.GetDefault(models.FeatSentimentFresh, 0) == 1 {
		raw := fv.GetDefault(models.FeatSentiment, 0.5)
		sentimentPtr = &raw
		sig.SentimentScore = &raw
		inputs[scoring.SourceSentiment] = scoring.Input{
			Weight:  p.cfg.SentimentWeight,
			Value:   directionalSupport(raw, sig.Direction),
			Present: true,
		}
	}

	var mlPtr *service.Prediction
	pred, err := p.predictor.Predict(ctx, fv)
	switch {
	case err == nil:
		mlPtr = &pred
		mlScore := predictionSupport(pred, sig.Direction)
		sig.MLScore = &mlScore
		inputs[scoring.SourceML] = scoring.Input{
			Weight:  p.cfg.MLWeight,
			Value:   mlScore,
			Present: true,
		}
	case errors.Is(err, models.ErrInferenceUnavailable):
		p.metrics.RecordSkip("inference_unavailable")
	default:
		p.metrics.RecordError("inference")
		p.logger.Error("predictor failed", logger.String("symbol", sig.Symbol), logger.Error(err))
	}

	if score, ok := scoring.Composite(inputs); ok {
		sig.QualityScore = score
	}
	sig.Confidence = scoring.Confidence(sig.Direction, sentimentPtr, mlPtr, sig.EntryPointType)
	sig.Strength = scoring.Strength(sig.QualityScore)
}

// directionalSupport converts a bullish-is-high [0,1] score into support
// for the candidate's direction.
func directionalSupport(score float64, dir models.Direction) float64 {
	if dir == models.DirectionShort {
		return 1 - score
	}
	return score
}

// predictionSupport maps a prediction onto [0,1] support for the
// candidate's direction: agreement above 0.5, disagreement below.
func predictionSupport(pred service.Prediction, dir models.Direction) float64 {
	switch pred.Direction {
	case dir:
		return 0.5 + pred.Confidence/2
	case dir.Opposite():
		return 0.5 - pred.Confidence/2
	default:
		return 0.5
	}
}

// signalID is deterministic per (symbol, period) so re-evaluating a period
// rewrites the same logical signal.
func signalID(symbol string, now time.Time) string {
	return fmt.Sprintf("%s-%s", symbol, now.UTC().Format("20060102T15"))
}
