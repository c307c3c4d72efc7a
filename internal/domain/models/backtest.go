package models

import "time"

// BacktestStatus is the lifecycle state of a backtest run.
type BacktestStatus string

const (
	BacktestPending   BacktestStatus = "PENDING"
	BacktestRunning   BacktestStatus = "RUNNING"
	BacktestCompleted BacktestStatus = "COMPLETED"
	BacktestFailed    BacktestStatus = "FAILED"
)

// ExitReason explains why a backtest position was closed.
type ExitReason string

const (
	ExitTarget  ExitReason = "target"
	ExitStop    ExitReason = "stop"
	ExitTimeout ExitReason = "timeout"
)

// FillPolicy decides how the backtester treats gaps in the candle series.
type FillPolicy string

const (
	FillFail    FillPolicy = "fail"
	FillForward FillPolicy = "forward_fill"
)

// BacktestConfig carries the per-run strategy parameters. It is persisted
// with the run so results stay reproducible.
type BacktestConfig struct {
	Timeframe     string     `json:"timeframe"`
	TakeProfitPct float64    `json:"take_profit_pct"`
	StopLossPct   float64    `json:"stop_loss_pct"`
	MinRewardRisk float64    `json:"min_reward_risk"`
	MaxHoldBars   int        `json:"max_hold_bars"`
	HistoryBars   int        `json:"history_bars"`
	GapTolerance  int        `json:"gap_tolerance"`
	FillPolicy    FillPolicy `json:"fill_policy"`
}

// BacktestMetrics are the aggregate results of a run. A run with zero
// trades reports all metrics as zero.
type BacktestMetrics struct {
	TotalReturn  float64 `json:"total_return"`
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	Trades       int     `json:"trades"`
}

// BacktestRun is one strategy replay over a historical range.
type BacktestRun struct {
	ID             string          `json:"id"`
	Strategy       string          `json:"strategy"`
	Symbol         string          `json:"symbol"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	InitialCapital float64         `json:"initial_capital"`
	Config         BacktestConfig  `json:"config"`
	Status         BacktestStatus  `json:"status"`
	Reason         string          `json:"reason,omitempty"`
	Metrics        BacktestMetrics `json:"metrics"`
	CreatedAt      time.Time       `json:"created_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
}

// BacktestTrade is one closed position inside a run. Seq orders trades by
// entry time for equity-curve reconstruction.
type BacktestTrade struct {
	RunID      string     `json:"run_id"`
	Seq        int        `json:"seq"`
	Direction  Direction  `json:"direction"`
	EntryTime  time.Time  `json:"entry_time"`
	EntryPrice float64    `json:"entry_price"`
	ExitTime   time.Time  `json:"exit_time"`
	ExitPrice  float64    `json:"exit_price"`
	PnL        float64    `json:"pnl"`
	ExitReason ExitReason `json:"exit_reason"`
}
