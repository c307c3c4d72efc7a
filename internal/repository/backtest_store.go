package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/pkg/clickhouse"
)

// BacktestStore persists backtest runs and trades in ClickHouse. Run rows
// are versioned by updated_at so status updates replace earlier rows.
type BacktestStore struct {
	client *clickhouse.Client
}

var _ repository.BacktestStore = (*BacktestStore)(nil)

// NewBacktestStore creates a ClickHouse-backed backtest store.
func NewBacktestStore(client *clickhouse.Client) *BacktestStore {
	return &BacktestStore{client: client}
}

func (s *BacktestStore) CreateRun(ctx context.Context, run models.BacktestRun) error {
	return s.writeRun(ctx, run)
}

func (s *BacktestStore) UpdateRun(ctx context.Context, run models.BacktestRun) error {
	return s.writeRun(ctx, run)
}

func (s *BacktestStore) writeRun(ctx context.Context, run models.BacktestRun) error {
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal run config: %w", err)
	}

	_, err = s.client.DB().ExecContext(ctx,
		`INSERT INTO backtest_runs (id, strategy, symbol, from_ts, to_ts, initial_capital,
			config, status, reason, total_return, sharpe, max_drawdown, win_rate,
			profit_factor, trades, created_at, finished_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.Symbol, run.From, run.To, run.InitialCapital,
		string(cfg), string(run.Status), run.Reason,
		run.Metrics.TotalReturn, run.Metrics.Sharpe, run.Metrics.MaxDrawdown,
		run.Metrics.WinRate, run.Metrics.ProfitFactor, uint32(run.Metrics.Trades),
		run.CreatedAt, run.FinishedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	return nil
}

func (s *BacktestStore) RunByID(ctx context.Context, id string) (models.BacktestRun, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT id, strategy, symbol, from_ts, to_ts, initial_capital, config, status,
			reason, total_return, sharpe, max_drawdown, win_rate, profit_factor,
			trades, created_at, finished_at
		 FROM backtest_runs FINAL
		 WHERE id = ?`, id)

	var run models.BacktestRun
	var cfg, status string
	var trades uint32
	err := row.Scan(&run.ID, &run.Strategy, &run.Symbol, &run.From, &run.To,
		&run.InitialCapital, &cfg, &status, &run.Reason,
		&run.Metrics.TotalReturn, &run.Metrics.Sharpe, &run.Metrics.MaxDrawdown,
		&run.Metrics.WinRate, &run.Metrics.ProfitFactor, &trades,
		&run.CreatedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BacktestRun{}, models.ErrNotFound
	}
	if err != nil {
		return models.BacktestRun{}, fmt.Errorf("query run %s: %w", id, err)
	}

	run.Status = models.BacktestStatus(status)
	run.Metrics.Trades = int(trades)
	if err := json.Unmarshal([]byte(cfg), &run.Config); err != nil {
		return models.BacktestRun{}, fmt.Errorf("unmarshal run config %s: %w", id, err)
	}
	return run, nil
}

func (s *BacktestStore) InsertTrades(ctx context.Context, trades []models.BacktestTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO backtest_trades (run_id, seq, direction, entry_time, entry_price,
			exit_time, exit_price, pnl, exit_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx,
			t.RunID, uint32(t.Seq), string(t.Direction), t.EntryTime, t.EntryPrice,
			t.ExitTime, t.ExitPrice, t.PnL, string(t.ExitReason)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append trade %s/%d: %w", t.RunID, t.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *BacktestStore) TradesByRun(ctx context.Context, runID string) ([]models.BacktestTrade, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT run_id, seq, direction, entry_time, entry_price, exit_time, exit_price, pnl, exit_reason
		 FROM backtest_trades FINAL
		 WHERE run_id = ?
		 ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades %s: %w", runID, err)
	}
	defer rows.Close()

	var out []models.BacktestTrade
	for rows.Next() {
		var t models.BacktestTrade
		var seq uint32
		var direction, reason string
		if err := rows.Scan(&t.RunID, &seq, &direction, &t.EntryTime, &t.EntryPrice,
			&t.ExitTime, &t.ExitPrice, &t.PnL, &reason); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Seq = int(seq)
		t.Direction = models.Direction(direction)
		t.ExitReason = models.ExitReason(reason)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return out, nil
}
