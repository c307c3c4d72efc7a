package repository

import (
	"context"
	"time"

	"SigForge/internal/domain/models"
)

// MarketStore persists and serves OHLCV candles. Inserts are idempotent on
// duplicate (symbol, timeframe, bucket).
type MarketStore interface {
	InsertCandles(ctx context.Context, candles []models.Candle) error

	// CandlesBefore returns up to limit bars at or before ts, ascending.
	CandlesBefore(ctx context.Context, symbol string, tf Timeframe, ts time.Time, limit int) ([]models.Candle, error)

	// CandlesRange returns bars in [from, to], ascending.
	CandlesRange(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) ([]models.Candle, error)
}

// SentimentStore persists and serves sentiment snapshots.
type SentimentStore interface {
	InsertSnapshot(ctx context.Context, snap models.SentimentSnapshot) error

	// LatestBefore returns the most recent snapshot at or before ts, or
	// models.ErrNotFound when none exists.
	LatestBefore(ctx context.Context, symbol string, ts time.Time) (models.SentimentSnapshot, error)
}

// SignalStore persists candidate signals and per-period selection records.
type SignalStore interface {
	InsertSignals(ctx context.Context, signals []models.CandidateSignal) error
	SignalByID(ctx context.Context, id string) (models.CandidateSignal, error)

	// SignalsSince returns signals generated at or after ts, ascending.
	SignalsSince(ctx context.Context, ts time.Time) ([]models.CandidateSignal, error)

	// ReplaceSelections atomically replaces the selection set for a period.
	ReplaceSelections(ctx context.Context, periodKey string, records []models.SelectionRecord) error
	SelectionsByPeriod(ctx context.Context, periodKey string) ([]models.SelectionRecord, error)

	// SelectionsOn returns all selection records for the given day.
	SelectionsOn(ctx context.Context, dayKey string) ([]models.SelectionRecord, error)
}

// BacktestStore persists backtest runs and their trades.
type BacktestStore interface {
	CreateRun(ctx context.Context, run models.BacktestRun) error
	UpdateRun(ctx context.Context, run models.BacktestRun) error
	RunByID(ctx context.Context, id string) (models.BacktestRun, error)
	InsertTrades(ctx context.Context, trades []models.BacktestTrade) error

	// TradesByRun returns trades ordered by sequence.
	TradesByRun(ctx context.Context, runID string) ([]models.BacktestTrade, error)
}

// Metrics records operational counters for the pipeline and backtester.
type Metrics interface {
	RecordCandidate(symbol, direction string)
	RecordSelection(period string)
	RecordSkip(reason string)
	RecordError(kind string)
	RecordQualityScore(symbol string, score float64)
	RecordLatency(op string, seconds float64)
	RecordBacktestRun(status string)
	SetBacktestQueueDepth(n int)
}
