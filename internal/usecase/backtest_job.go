package usecase

import (
	"context"
	"fmt"
	"time"

	"SigForge/pkg/logger"
	"SigForge/pkg/queue"
)

// BacktestMessageType is the queue message type for backtest runs.
const BacktestMessageType = "backtest.run"

// BacktestJobPayload carries the run to execute.
type BacktestJobPayload struct {
	RunID string `json:"run_id"`
}

// BacktestJob executes queued backtest runs on the queue's worker pool.
type BacktestJob struct {
	engine  *BacktestEngine
	timeout time.Duration
	logger  *logger.Logger
}

// NewBacktestJob creates the queue job for backtest runs.
func NewBacktestJob(engine *BacktestEngine, timeout time.Duration, lgr *logger.Logger) *BacktestJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &BacktestJob{engine: engine, timeout: timeout, logger: lgr}
}

func (j *BacktestJob) Name() string { return "backtest-runner" }

func (j *BacktestJob) Type() string { return BacktestMessageType }

func (j *BacktestJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[BacktestJobPayload](payload)
	if err != nil {
		return fmt.Errorf("parse backtest payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if err := j.engine.Run(ctx, p.RunID); err != nil {
		if errIsCancelled(err) {
			j.logger.Warn("backtest run cancelled", logger.String("run", p.RunID))
			return nil
		}
		return err
	}
	return nil
}
