package usecase

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

// enterAt opens a LONG at the bar closing at the configured timestamp.
type enterAt struct {
	ts time.Time
}

func (d *enterAt) Decide(_ context.Context, symbol string, ts time.Time, _ []models.Candle) *models.CandidateSignal {
	if !ts.Equal(d.ts) {
		return nil
	}
	return &models.CandidateSignal{
		Symbol:    symbol,
		Direction: models.DirectionLong,
		Valid:     true,
	}
}

type neverEnter struct{}

func (neverEnter) Decide(_ context.Context, _ string, _ time.Time, _ []models.Candle) *models.CandidateSignal {
	return nil
}

func btRun(cfg models.BacktestConfig) *models.BacktestRun {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return &models.BacktestRun{
		ID:             "run-1",
		Strategy:       "trend-breakout",
		Symbol:         "BTCUSDT",
		From:           base,
		To:             base.Add(48 * time.Hour),
		InitialCapital: 10000,
		Config:         cfg,
		Status:         models.BacktestPending,
	}
}

func btConfig() models.BacktestConfig {
	return models.BacktestConfig{
		Timeframe:     "1h",
		TakeProfitPct: 3.0,
		StopLossPct:   1.5,
		MaxHoldBars:   48,
		GapTolerance:  3,
		FillPolicy:    models.FillFail,
	}
}

func hourBars(start time.Time, ohlc [][4]float64) []models.Candle {
	out := make([]models.Candle, len(ohlc))
	for i, v := range ohlc {
		out[i] = models.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			Bucket:    start.Add(time.Duration(i) * time.Hour),
			Open:      v[0],
			High:      v[1],
			Low:       v[2],
			Close:     v[3],
			Volume:    10,
		}
	}
	return out
}

func TestSimulateSingleStopOut(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := hourBars(start, [][4]float64{
		{99, 100, 98, 99},
		{99, 100, 98, 99.5},
		{99.5, 100.5, 99, 99.8},
		{99.8, 100.2, 99.5, 100}, // entry bar: close 100
		{100, 102, 99.5, 101},    // no trigger: stop 98.5, target 103
		{101, 101.5, 98, 98.2},   // low hits the stop
		{98.2, 99, 97.5, 98},
	})
	run := btRun(btConfig())
	decider := &enterAt{ts: start.Add(3 * time.Hour)}

	trades, metrics, err := Simulate(context.Background(), run, bars, decider)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, models.DirectionLong, tr.Direction)
	assert.Equal(t, 100.0, tr.EntryPrice)
	assert.Equal(t, start.Add(3*time.Hour), tr.EntryTime)
	assert.Equal(t, 98.5, tr.ExitPrice)
	assert.Equal(t, models.ExitStop, tr.ExitReason)
	assert.InDelta(t, -150.0, tr.PnL, 1e-9)

	assert.Equal(t, 1, metrics.Trades)
	assert.Equal(t, 0.0, metrics.WinRate)
	assert.Equal(t, 0.0, metrics.ProfitFactor) // no wins: undefined-as-zero
	assert.InDelta(t, -0.015, metrics.TotalReturn, 1e-9)
	assert.Greater(t, metrics.MaxDrawdown, 0.0)
}

func TestSimulateStopBeatsTargetOnSameBar(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := hourBars(start, [][4]float64{
		{100, 101, 99, 100}, // entry bar
		{100, 104, 98, 103}, // spans both stop 98.5 and target 103
	})
	run := btRun(btConfig())
	decider := &enterAt{ts: start}

	trades, _, err := Simulate(context.Background(), run, bars, decider)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitStop, trades[0].ExitReason)
	assert.Equal(t, 98.5, trades[0].ExitPrice)
}

func TestSimulateTargetHit(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := hourBars(start, [][4]float64{
		{100, 101, 99, 100},
		{100, 102, 99.5, 101.5},
		{101.5, 103.5, 101, 103}, // high reaches target 103, low stays above stop
	})
	run := btRun(btConfig())
	decider := &enterAt{ts: start}

	trades, metrics, err := Simulate(context.Background(), run, bars, decider)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitTarget, trades[0].ExitReason)
	assert.Equal(t, 103.0, trades[0].ExitPrice)
	assert.InDelta(t, 300.0, trades[0].PnL, 1e-9)
	assert.Equal(t, 1.0, metrics.WinRate)
}

func TestSimulateMaxHoldTimeout(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg := btConfig()
	cfg.MaxHoldBars = 2
	bars := hourBars(start, [][4]float64{
		{100, 101, 99, 100},
		{100, 101, 99.5, 100.5},
		{100.5, 101, 99.5, 100.2}, // second bar in position: timeout
	})
	run := btRun(cfg)
	decider := &enterAt{ts: start}

	trades, _, err := Simulate(context.Background(), run, bars, decider)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitTimeout, trades[0].ExitReason)
	assert.Equal(t, 100.2, trades[0].ExitPrice)
}

func TestSimulateZeroTradesHasZeroMetrics(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := hourBars(start, [][4]float64{
		{100, 101, 99, 100},
		{100, 101, 99, 100},
	})
	run := btRun(btConfig())

	trades, metrics, err := Simulate(context.Background(), run, bars, neverEnter{})
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, models.BacktestMetrics{}, metrics)
}

func TestSimulateDeterminism(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := hourBars(start, [][4]float64{
		{99, 100, 98, 99},
		{99.8, 100.2, 99.5, 100},
		{100, 102, 99.5, 101},
		{101, 101.5, 98, 98.2},
		{98.2, 99, 97.5, 98},
	})
	run := btRun(btConfig())
	decider := &enterAt{ts: start.Add(time.Hour)}

	trades1, metrics1, err := Simulate(context.Background(), run, bars, decider)
	require.NoError(t, err)
	trades2, metrics2, err := Simulate(context.Background(), run, bars, decider)
	require.NoError(t, err)

	assert.Equal(t, trades1, trades2)
	assert.Equal(t, metrics1, metrics2)
}

func TestFillGapsWithinTolerance(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	candles := []models.Candle{
		{Symbol: "BTCUSDT", Timeframe: "1h", Bucket: start, Close: 100, Open: 100, High: 100, Low: 100},
		{Symbol: "BTCUSDT", Timeframe: "1h", Bucket: start.Add(3 * time.Hour), Close: 101, Open: 101, High: 101, Low: 101},
	}

	out, err := FillGaps(candles, repository.TF1h, 3, models.FillFail)
	require.NoError(t, err)
	require.Len(t, out, 4)
	// filled bars are flat at the last known close
	assert.Equal(t, 100.0, out[1].Close)
	assert.Equal(t, 100.0, out[2].High)
	assert.Equal(t, start.Add(time.Hour), out[1].Bucket)
	assert.Equal(t, start.Add(2*time.Hour), out[2].Bucket)
}

func TestFillGapsEmptySeries(t *testing.T) {
	out, err := FillGaps(nil, repository.TF1h, 3, models.FillFail)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFillGapsBeyondToleranceFails(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	candles := []models.Candle{
		{Symbol: "BTCUSDT", Timeframe: "1h", Bucket: start, Close: 100},
		{Symbol: "BTCUSDT", Timeframe: "1h", Bucket: start.Add(6 * time.Hour), Close: 101},
	}

	_, err := FillGaps(candles, repository.TF1h, 3, models.FillFail)
	require.ErrorIs(t, err, models.ErrDataGap)

	out, err := FillGaps(candles, repository.TF1h, 3, models.FillForward)
	require.NoError(t, err)
	assert.Len(t, out, 7)
}

func TestEngineRunLifecycle(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	market := newMemMarketStore()
	require.NoError(t, market.InsertCandles(context.Background(), hourBars(start, [][4]float64{
		{100, 101, 99, 100},
		{100, 102, 99.5, 101.5},
		{101.5, 103.5, 101, 103},
	})))

	store := newMemBacktestStore()
	run := btRun(btConfig())
	run.From = start
	run.To = start.Add(3 * time.Hour)
	require.NoError(t, store.CreateRun(context.Background(), *run))

	engine := NewBacktestEngine(market, store, &enterAt{ts: start}, noopMetrics{}, logger.Nop())
	require.NoError(t, engine.Run(context.Background(), run.ID))

	final, err := store.RunByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BacktestCompleted, final.Status)
	assert.Equal(t, 1, final.Metrics.Trades)
	assert.NotNil(t, final.FinishedAt)

	trades, err := store.TradesByRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitTarget, trades[0].ExitReason)
}

func TestEngineRunFailsOnDataGap(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	market := newMemMarketStore()
	require.NoError(t, market.InsertCandles(context.Background(), []models.Candle{
		{Symbol: "BTCUSDT", Timeframe: "1h", Bucket: start, Close: 100},
		{Symbol: "BTCUSDT", Timeframe: "1h", Bucket: start.Add(10 * time.Hour), Close: 101},
	}))

	store := newMemBacktestStore()
	run := btRun(btConfig())
	require.NoError(t, store.CreateRun(context.Background(), *run))

	engine := NewBacktestEngine(market, store, neverEnter{}, noopMetrics{}, logger.Nop())
	err := engine.Run(context.Background(), run.ID)
	require.ErrorIs(t, err, models.ErrDataGap)

	final, err := store.RunByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BacktestFailed, final.Status)
	assert.NotEmpty(t, final.Reason)
}
