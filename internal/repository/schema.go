package repository

import (
	"context"

	"SigForge/pkg/clickhouse"
)

// Schema statements are idempotent; ReplacingMergeTree keys make inserts
// safe to repeat for the same logical row.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS candles (
		symbol     LowCardinality(String),
		timeframe  LowCardinality(String),
		bucket     DateTime,
		open       Float64,
		high       Float64,
		low        Float64,
		close      Float64,
		volume     Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (symbol, timeframe, bucket)`,

	`CREATE TABLE IF NOT EXISTS sentiment_snapshots (
		symbol     LowCardinality(String),
		timeframe  LowCardinality(String),
		score      Float64,
		timestamp  DateTime
	) ENGINE = ReplacingMergeTree
	ORDER BY (symbol, timestamp)`,

	`CREATE TABLE IF NOT EXISTS signals (
		id               String,
		symbol           LowCardinality(String),
		generated_at     DateTime,
		direction        LowCardinality(String),
		entry            Float64,
		target           Float64,
		stop             Float64,
		strategy_score   Float64,
		sentiment_score  Nullable(Float64),
		ml_score         Nullable(Float64),
		quality_score    Float64,
		confidence       Float64,
		strength         LowCardinality(String),
		entry_point_type LowCardinality(String),
		entry_zone_low   Float64,
		entry_zone_high  Float64,
		valid            UInt8
	) ENGINE = ReplacingMergeTree
	ORDER BY (id)`,

	`CREATE TABLE IF NOT EXISTS selections (
		period_key    String,
		rank          UInt8,
		signal_id     String,
		symbol        LowCardinality(String),
		quality_score Float64,
		selected_at   DateTime
	) ENGINE = ReplacingMergeTree(selected_at)
	ORDER BY (period_key, rank)`,

	`CREATE TABLE IF NOT EXISTS backtest_runs (
		id              String,
		strategy        LowCardinality(String),
		symbol          LowCardinality(String),
		from_ts         DateTime,
		to_ts           DateTime,
		initial_capital Float64,
		config          String,
		status          LowCardinality(String),
		reason          String,
		total_return    Float64,
		sharpe          Float64,
		max_drawdown    Float64,
		win_rate        Float64,
		profit_factor   Float64,
		trades          UInt32,
		created_at      DateTime,
		finished_at     Nullable(DateTime),
		updated_at      DateTime
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY (id)`,

	`CREATE TABLE IF NOT EXISTS backtest_trades (
		run_id      String,
		seq         UInt32,
		direction   LowCardinality(String),
		entry_time  DateTime,
		entry_price Float64,
		exit_time   DateTime,
		exit_price  Float64,
		pnl         Float64,
		exit_reason LowCardinality(String)
	) ENGINE = ReplacingMergeTree
	ORDER BY (run_id, seq)`,
}

// InitSchema creates all tables if they do not exist.
func InitSchema(ctx context.Context, client *clickhouse.Client) error {
	return client.InitSchema(ctx, schemaStatements)
}
