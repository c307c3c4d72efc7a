package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/internal/services/features"
	"SigForge/internal/services/strategy"
	"SigForge/pkg/logger"
	"SigForge/pkg/util"
)

// position is the backtester's state machine state.
type position int

const (
	posFlat position = iota
	posLong
	posShort
)

// EntryDecider decides whether to open a position at the bar closing at
// ts. history is the candle series up to and including that bar; deciders
// must never look past ts.
type EntryDecider interface {
	Decide(ctx context.Context, symbol string, ts time.Time, history []models.Candle) *models.CandidateSignal
}

// StrategyDecider reuses the live feature builder and strategy engine for
// point-in-time entry decisions. The builder queries the store at-or-before
// ts, so no future data leaks into a decision.
type StrategyDecider struct {
	builder  *features.Builder
	strategy *strategy.Engine
}

// NewStrategyDecider creates the production entry decider.
func NewStrategyDecider(builder *features.Builder, strategyEngine *strategy.Engine) *StrategyDecider {
	return &StrategyDecider{builder: builder, strategy: strategyEngine}
}

func (d *StrategyDecider) Decide(ctx context.Context, symbol string, ts time.Time, history []models.Candle) *models.CandidateSignal {
	fv, err := d.builder.Build(ctx, symbol, ts)
	if err != nil {
		return nil
	}
	return d.strategy.Evaluate(fv, history)
}

// BacktestEngine replays a strategy over a historical range. A single run
// processes its bars strictly sequentially; separate runs are independent.
type BacktestEngine struct {
	market  repository.MarketStore
	store   repository.BacktestStore
	decider EntryDecider
	metrics repository.Metrics
	logger  *logger.Logger
}

// NewBacktestEngine creates a backtest engine.
func NewBacktestEngine(market repository.MarketStore, store repository.BacktestStore, decider EntryDecider, metrics repository.Metrics, lgr *logger.Logger) *BacktestEngine {
	return &BacktestEngine{market: market, store: store, decider: decider, metrics: metrics, logger: lgr}
}

// Run executes a pending run end to end, persisting status transitions,
// trades and aggregate metrics. Failures mark the run FAILED with a
// human-readable reason; nothing partial is reported as complete.
func (e *BacktestEngine) Run(ctx context.Context, runID string) error {
	run, err := e.store.RunByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}

	run.Status = models.BacktestRunning
	if err := e.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}

	trades, metrics, simErr := e.simulate(ctx, &run)
	now := time.Now().UTC()
	run.FinishedAt = &now

	if simErr != nil {
		run.Status = models.BacktestFailed
		run.Reason = simErr.Error()
		e.metrics.RecordBacktestRun(string(models.BacktestFailed))
		if err := e.store.UpdateRun(ctx, run); err != nil {
			return fmt.Errorf("mark run failed: %w", err)
		}
		return fmt.Errorf("run %s: %w", runID, simErr)
	}

	if err := e.store.InsertTrades(ctx, trades); err != nil {
		return fmt.Errorf("persist trades %s: %w", runID, err)
	}
	run.Status = models.BacktestCompleted
	run.Metrics = metrics
	e.metrics.RecordBacktestRun(string(models.BacktestCompleted))
	if err := e.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}

	e.logger.Info("backtest completed",
		logger.String("run", runID),
		logger.String("symbol", run.Symbol),
		logger.Int("trades", metrics.Trades),
		logger.Float64("total_return", metrics.TotalReturn),
	)
	return nil
}

// simulate loads the range, applies the gap policy and walks the bars.
func (e *BacktestEngine) simulate(ctx context.Context, run *models.BacktestRun) ([]models.BacktestTrade, models.BacktestMetrics, error) {
	tf, err := repository.ParseTimeframe(run.Config.Timeframe)
	if err != nil {
		return nil, models.BacktestMetrics{}, err
	}

	from, to := util.AlignFromTo(run.From, run.To, tf.Duration())
	candles, err := e.market.CandlesRange(ctx, run.Symbol, tf, from, to)
	if err != nil {
		return nil, models.BacktestMetrics{}, fmt.Errorf("load range: %w", err)
	}
	if len(candles) == 0 {
		return nil, models.BacktestMetrics{}, nil
	}

	bars, err := FillGaps(candles, tf, run.Config.GapTolerance, run.Config.FillPolicy)
	if err != nil {
		return nil, models.BacktestMetrics{}, err
	}

	return Simulate(ctx, run, bars, e.decider)
}

// Simulate walks the bar series with an explicit FLAT/LONG/SHORT state
// machine. Exit triggers are evaluated in a fixed order per bar: stop
// first, then target, then max-hold expiry, so a bar spanning both stop
// and target resolves conservatively to the stop.
func Simulate(ctx context.Context, run *models.BacktestRun, bars []models.Candle, decider EntryDecider) ([]models.BacktestTrade, models.BacktestMetrics, error) {
	var (
		trades  []models.BacktestTrade
		pos     = posFlat
		entry   models.CandidateSignal
		entryAt time.Time
		barsIn  int
		equity  = run.InitialCapital
		curve   = make([]float64, 0, len(bars))
	)

	closePosition := func(bar models.Candle, price float64, reason models.ExitReason) {
		var ret float64
		if pos == posLong {
			ret = (price - entry.Entry) / entry.Entry
		} else {
			ret = (entry.Entry - price) / entry.Entry
		}
		pnl := equity * ret
		equity += pnl
		trades = append(trades, models.BacktestTrade{
			RunID:      run.ID,
			Seq:        len(trades) + 1,
			Direction:  entry.Direction,
			EntryTime:  entryAt,
			EntryPrice: entry.Entry,
			ExitTime:   bar.Bucket,
			ExitPrice:  price,
			PnL:        pnl,
			ExitReason: reason,
		})
		pos = posFlat
		barsIn = 0
	}

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, models.BacktestMetrics{}, err
		}

		if pos != posFlat {
			barsIn++
			switch {
			case pos == posLong && bar.Low <= entry.Stop:
				closePosition(bar, entry.Stop, models.ExitStop)
			case pos == posShort && bar.High >= entry.Stop:
				closePosition(bar, entry.Stop, models.ExitStop)
			case pos == posLong && bar.High >= entry.Target:
				closePosition(bar, entry.Target, models.ExitTarget)
			case pos == posShort && bar.Low <= entry.Target:
				closePosition(bar, entry.Target, models.ExitTarget)
			case barsIn >= run.Config.MaxHoldBars:
				closePosition(bar, bar.Close, models.ExitTimeout)
			}
		}

		if pos == posFlat {
			if sig := decider.Decide(ctx, run.Symbol, bar.Bucket, bars[:i+1]); sig != nil {
				switch sig.Direction {
				case models.DirectionLong:
					pos = posLong
				case models.DirectionShort:
					pos = posShort
				}
				if pos != posFlat {
					entry = *sig
					entry.Entry = bar.Close
					applyRiskPrices(&entry, run.Config)
					entryAt = bar.Bucket
					barsIn = 0
				}
			}
		}

		curve = append(curve, markToMarket(equity, pos, entry, bar))
	}

	return trades, computeMetrics(run.InitialCapital, equity, trades, curve, barsPerYear(run.Config.Timeframe)), nil
}

// applyRiskPrices recomputes target and stop from the fill price so the
// run's configured percentages apply to the actual entry.
func applyRiskPrices(sig *models.CandidateSignal, cfg models.BacktestConfig) {
	switch sig.Direction {
	case models.DirectionLong:
		sig.Target = sig.Entry * (1 + cfg.TakeProfitPct/100)
		sig.Stop = sig.Entry * (1 - cfg.StopLossPct/100)
	case models.DirectionShort:
		sig.Target = sig.Entry * (1 - cfg.TakeProfitPct/100)
		sig.Stop = sig.Entry * (1 + cfg.StopLossPct/100)
	}
}

// markToMarket values open positions at the bar close for the equity curve.
func markToMarket(equity float64, pos position, entry models.CandidateSignal, bar models.Candle) float64 {
	switch pos {
	case posLong:
		return equity * (1 + (bar.Close-entry.Entry)/entry.Entry)
	case posShort:
		return equity * (1 + (entry.Entry-bar.Close)/entry.Entry)
	default:
		return equity
	}
}

// FillGaps validates bucket continuity. Gaps of at most tolerance missing
// bars are forward-filled from the last known close; longer gaps fail with
// models.ErrDataGap unless the run opted into forward_fill, which fills
// them as well.
func FillGaps(candles []models.Candle, tf repository.Timeframe, tolerance int, policy models.FillPolicy) ([]models.Candle, error) {
	if len(candles) == 0 {
		return nil, nil
	}
	step := tf.Duration()
	out := make([]models.Candle, 0, len(candles))
	out = append(out, candles[0])

	for i := 1; i < len(candles); i++ {
		prev := out[len(out)-1]
		missing := 0
		for next := prev.Bucket.Add(step); next.Before(candles[i].Bucket); next = next.Add(step) {
			missing++
		}
		if missing > tolerance && policy != models.FillForward {
			return nil, fmt.Errorf("%d bars missing before %s: %w",
				missing, candles[i].Bucket.Format(time.RFC3339), models.ErrDataGap)
		}
		for next := prev.Bucket.Add(step); next.Before(candles[i].Bucket); next = next.Add(step) {
			out = append(out, models.Candle{
				Symbol:    prev.Symbol,
				Timeframe: prev.Timeframe,
				Bucket:    next,
				Open:      prev.Close,
				High:      prev.Close,
				Low:       prev.Close,
				Close:     prev.Close,
			})
		}
		out = append(out, candles[i])
	}
	return out, nil
}

// computeMetrics aggregates the run's results. Zero trades produce zeroed
// metrics; profit factor is defined as zero when there is no gross loss.
func computeMetrics(initial, final float64, trades []models.BacktestTrade, curve []float64, periodsPerYear float64) models.BacktestMetrics {
	m := models.BacktestMetrics{Trades: len(trades)}
	if initial > 0 {
		m.TotalReturn = final/initial - 1
	}
	if len(trades) == 0 {
		return m
	}

	var wins int
	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else {
			grossLoss -= t.PnL
		}
	}
	m.WinRate = float64(wins) / float64(len(trades))
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}
	m.Sharpe = sharpe(curve, periodsPerYear)
	m.MaxDrawdown = maxDrawdown(curve)
	return m
}

// sharpe annualizes the mean/std of per-bar equity returns.
func sharpe(curve []float64, periodsPerYear float64) float64 {
	if len(curve) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] <= 0 {
			return 0
		}
		returns = append(returns, curve[i]/curve[i-1]-1)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(len(returns)))
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(periodsPerYear)
}

// maxDrawdown is the largest peak-to-trough decline of the equity curve.
func maxDrawdown(curve []float64) float64 {
	var peak, worst float64
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

func barsPerYear(timeframe string) float64 {
	tf, err := repository.ParseTimeframe(timeframe)
	if err != nil {
		return 24 * 365
	}
	return float64(365*24*time.Hour) / float64(tf.Duration())
}

// errIsCancelled helps callers distinguish cancellation from data errors.
func errIsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
