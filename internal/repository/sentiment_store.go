package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/pkg/clickhouse"
)

// SentimentStore persists sentiment snapshots in ClickHouse.
type SentimentStore struct {
	client *clickhouse.Client
}

var _ repository.SentimentStore = (*SentimentStore)(nil)

// NewSentimentStore creates a ClickHouse-backed sentiment store.
func NewSentimentStore(client *clickhouse.Client) *SentimentStore {
	return &SentimentStore{client: client}
}

func (s *SentimentStore) InsertSnapshot(ctx context.Context, snap models.SentimentSnapshot) error {
	_, err := s.client.DB().ExecContext(ctx,
		`INSERT INTO sentiment_snapshots (symbol, timeframe, score, timestamp) VALUES (?, ?, ?, ?)`,
		snap.Symbol, snap.Timeframe, snap.Score, snap.Timestamp)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.Symbol, err)
	}
	return nil
}

func (s *SentimentStore) LatestBefore(ctx context.Context, symbol string, ts time.Time) (models.SentimentSnapshot, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT symbol, timeframe, score, timestamp
		 FROM sentiment_snapshots FINAL
		 WHERE symbol = ? AND timestamp <= ?
		 ORDER BY timestamp DESC
		 LIMIT 1`,
		symbol, ts)

	var snap models.SentimentSnapshot
	err := row.Scan(&snap.Symbol, &snap.Timeframe, &snap.Score, &snap.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SentimentSnapshot{}, models.ErrNotFound
	}
	if err != nil {
		return models.SentimentSnapshot{}, fmt.Errorf("query latest snapshot %s: %w", symbol, err)
	}
	return snap, nil
}
