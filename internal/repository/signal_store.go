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

// SignalStore persists candidate signals and per-period selection records.
type SignalStore struct {
	client *clickhouse.Client
}

var _ repository.SignalStore = (*SignalStore)(nil)

// NewSignalStore creates a ClickHouse-backed signal store.
func NewSignalStore(client *clickhouse.Client) *SignalStore {
	return &SignalStore{client: client}
}

func (s *SignalStore) InsertSignals(ctx context.Context, signals []models.CandidateSignal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO signals (id, symbol, generated_at, direction, entry, target, stop,
			strategy_score, sentiment_score, ml_score, quality_score, confidence,
			strength, entry_point_type, entry_zone_low, entry_zone_high, valid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sig := range signals {
		valid := uint8(0)
		if sig.Valid {
			valid = 1
		}
		if _, err := stmt.ExecContext(ctx,
			sig.ID, sig.Symbol, sig.GeneratedAt, string(sig.Direction),
			sig.Entry, sig.Target, sig.Stop,
			sig.StrategyScore, sig.SentimentScore, sig.MLScore,
			sig.QualityScore, sig.Confidence,
			string(sig.Strength), string(sig.EntryPointType),
			sig.EntryZoneLow, sig.EntryZoneHigh, valid); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append signal %s: %w", sig.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *SignalStore) SignalByID(ctx context.Context, id string) (models.CandidateSignal, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT id, symbol, generated_at, direction, entry, target, stop,
			strategy_score, sentiment_score, ml_score, quality_score, confidence,
			strength, entry_point_type, entry_zone_low, entry_zone_high, valid
		 FROM signals FINAL
		 WHERE id = ?`, id)

	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CandidateSignal{}, models.ErrNotFound
	}
	if err != nil {
		return models.CandidateSignal{}, fmt.Errorf("query signal %s: %w", id, err)
	}
	return sig, nil
}

func (s *SignalStore) SignalsSince(ctx context.Context, ts time.Time) ([]models.CandidateSignal, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT id, symbol, generated_at, direction, entry, target, stop,
			strategy_score, sentiment_score, ml_score, quality_score, confidence,
			strength, entry_point_type, entry_zone_low, entry_zone_high, valid
		 FROM signals FINAL
		 WHERE generated_at >= ?
		 ORDER BY generated_at ASC`, ts)
	if err != nil {
		return nil, fmt.Errorf("query signals since: %w", err)
	}
	defer rows.Close()

	var out []models.CandidateSignal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return out, nil
}

// ReplaceSelections clears the period's records before writing the new set
// so a re-run leaves exactly the records it computed.
func (s *SignalStore) ReplaceSelections(ctx context.Context, periodKey string, records []models.SelectionRecord) error {
	if _, err := s.client.DB().ExecContext(ctx,
		`ALTER TABLE selections DELETE WHERE period_key = ?`, periodKey); err != nil {
		return fmt.Errorf("clear selections %s: %w", periodKey, err)
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO selections (period_key, rank, signal_id, symbol, quality_score, selected_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.PeriodKey, uint8(r.Rank), r.SignalID, r.Symbol, r.QualityScore, r.SelectedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append selection %s/%d: %w", r.PeriodKey, r.Rank, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *SignalStore) SelectionsByPeriod(ctx context.Context, periodKey string) ([]models.SelectionRecord, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT period_key, rank, signal_id, symbol, quality_score, selected_at
		 FROM selections FINAL
		 WHERE period_key = ?
		 ORDER BY rank ASC`, periodKey)
	if err != nil {
		return nil, fmt.Errorf("query selections %s: %w", periodKey, err)
	}
	defer rows.Close()

	var out []models.SelectionRecord
	for rows.Next() {
		var r models.SelectionRecord
		var rank uint8
		if err := rows.Scan(&r.PeriodKey, &rank, &r.SignalID, &r.Symbol, &r.QualityScore, &r.SelectedAt); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		r.Rank = int(rank)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return out, nil
}

func (s *SignalStore) SelectionsOn(ctx context.Context, dayKey string) ([]models.SelectionRecord, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT period_key, rank, signal_id, symbol, quality_score, selected_at
		 FROM selections FINAL
		 WHERE startsWith(period_key, ?)
		 ORDER BY period_key ASC, rank ASC`, dayKey)
	if err != nil {
		return nil, fmt.Errorf("query day selections %s: %w", dayKey, err)
	}
	defer rows.Close()

	var out []models.SelectionRecord
	for rows.Next() {
		var r models.SelectionRecord
		var rank uint8
		if err := rows.Scan(&r.PeriodKey, &rank, &r.SignalID, &r.Symbol, &r.QualityScore, &r.SelectedAt); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		r.Rank = int(rank)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return out, nil
}

type signalScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row signalScanner) (models.CandidateSignal, error) {
	var sig models.CandidateSignal
	var direction, strength, entryType string
	var valid uint8
	err := row.Scan(&sig.ID, &sig.Symbol, &sig.GeneratedAt, &direction,
		&sig.Entry, &sig.Target, &sig.Stop,
		&sig.StrategyScore, &sig.SentimentScore, &sig.MLScore,
		&sig.QualityScore, &sig.Confidence,
		&strength, &entryType, &sig.EntryZoneLow, &sig.EntryZoneHigh, &valid)
	if err != nil {
		return models.CandidateSignal{}, err
	}
	sig.Direction = models.Direction(direction)
	sig.Strength = models.Strength(strength)
	sig.EntryPointType = models.EntryPointType(entryType)
	sig.Valid = valid == 1
	return sig, nil
}
