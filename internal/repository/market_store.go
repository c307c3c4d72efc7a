package repository

import (
	"context"
	"fmt"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/pkg/clickhouse"
)

// MarketStore persists OHLCV candles in ClickHouse. The ReplacingMergeTree
// key (symbol, timeframe, bucket) makes duplicate inserts idempotent.
type MarketStore struct {
	client *clickhouse.Client
}

var _ repository.MarketStore = (*MarketStore)(nil)

// NewMarketStore creates a ClickHouse-backed market store.
func NewMarketStore(client *clickhouse.Client) *MarketStore {
	return &MarketStore{client: client}
}

func (s *MarketStore) InsertCandles(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO candles (symbol, timeframe, bucket, open, high, low, close, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx,
			c.Symbol, c.Timeframe, c.Bucket, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append candle %s/%s: %w", c.Symbol, c.Timeframe, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *MarketStore) CandlesBefore(ctx context.Context, symbol string, tf repository.Timeframe, ts time.Time, limit int) ([]models.Candle, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT symbol, timeframe, bucket, open, high, low, close, volume
		 FROM candles FINAL
		 WHERE symbol = ? AND timeframe = ? AND bucket <= ?
		 ORDER BY bucket DESC
		 LIMIT ?`,
		symbol, tf.String(), ts, limit)
	if err != nil {
		return nil, fmt.Errorf("query candles before: %w", err)
	}
	defer rows.Close()

	candles, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}
	// query is newest-first; callers expect ascending order
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

func (s *MarketStore) CandlesRange(ctx context.Context, symbol string, tf repository.Timeframe, from, to time.Time) ([]models.Candle, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT symbol, timeframe, bucket, open, high, low, close, volume
		 FROM candles FINAL
		 WHERE symbol = ? AND timeframe = ? AND bucket >= ? AND bucket <= ?
		 ORDER BY bucket ASC`,
		symbol, tf.String(), from, to)
	if err != nil {
		return nil, fmt.Errorf("query candles range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCandles(rows rowScanner) ([]models.Candle, error) {
	var out []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.Bucket,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candles: %w", err)
	}
	return out, nil
}
