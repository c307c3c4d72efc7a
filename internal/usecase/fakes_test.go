package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/internal/domain/service"
)

type memSignalStore struct {
	mu         sync.Mutex
	signals    map[string]models.CandidateSignal
	selections map[string][]models.SelectionRecord // by period key
}

func newMemSignalStore() *memSignalStore {
	return &memSignalStore{
		signals:    make(map[string]models.CandidateSignal),
		selections: make(map[string][]models.SelectionRecord),
	}
}

func (s *memSignalStore) InsertSignals(_ context.Context, signals []models.CandidateSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range signals {
		s.signals[sig.ID] = sig
	}
	return nil
}

func (s *memSignalStore) SignalByID(_ context.Context, id string) (models.CandidateSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[id]
	if !ok {
		return models.CandidateSignal{}, models.ErrNotFound
	}
	return sig, nil
}

func (s *memSignalStore) SignalsSince(_ context.Context, ts time.Time) ([]models.CandidateSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CandidateSignal
	for _, sig := range s.signals {
		if !sig.GeneratedAt.Before(ts) {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *memSignalStore) ReplaceSelections(_ context.Context, periodKey string, records []models.SelectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SelectionRecord, len(records))
	copy(out, records)
	s.selections[periodKey] = out
	return nil
}

func (s *memSignalStore) SelectionsByPeriod(_ context.Context, periodKey string) ([]models.SelectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SelectionRecord, len(s.selections[periodKey]))
	copy(out, s.selections[periodKey])
	return out, nil
}

func (s *memSignalStore) SelectionsOn(_ context.Context, dayKey string) ([]models.SelectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SelectionRecord
	for period, records := range s.selections {
		if strings.HasPrefix(period, dayKey) {
			out = append(out, records...)
		}
	}
	return out, nil
}

type memMarketStore struct {
	mu      sync.Mutex
	candles map[string][]models.Candle // symbol+"/"+timeframe
}

func newMemMarketStore() *memMarketStore {
	return &memMarketStore{candles: make(map[string][]models.Candle)}
}

func (s *memMarketStore) InsertCandles(_ context.Context, candles []models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range candles {
		key := c.Symbol + "/" + c.Timeframe
		s.candles[key] = append(s.candles[key], c)
	}
	return nil
}

func (s *memMarketStore) CandlesBefore(_ context.Context, symbol string, tf repository.Timeframe, ts time.Time, limit int) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Candle
	for _, c := range s.candles[symbol+"/"+tf.String()] {
		if !c.Bucket.After(ts) {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memMarketStore) CandlesRange(_ context.Context, symbol string, tf repository.Timeframe, from, to time.Time) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Candle
	for _, c := range s.candles[symbol+"/"+tf.String()] {
		if !c.Bucket.Before(from) && !c.Bucket.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

type memSentimentStore struct {
	mu    sync.Mutex
	snaps map[string][]models.SentimentSnapshot
}

func newMemSentimentStore() *memSentimentStore {
	return &memSentimentStore{snaps: make(map[string][]models.SentimentSnapshot)}
}

func (s *memSentimentStore) InsertSnapshot(_ context.Context, snap models.SentimentSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.Symbol] = append(s.snaps[snap.Symbol], snap)
	return nil
}

func (s *memSentimentStore) LatestBefore(_ context.Context, symbol string, ts time.Time) (models.SentimentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.SentimentSnapshot
	for i, snap := range s.snaps[symbol] {
		if snap.Timestamp.After(ts) {
			continue
		}
		if best == nil || snap.Timestamp.After(best.Timestamp) {
			best = &s.snaps[symbol][i]
		}
	}
	if best == nil {
		return models.SentimentSnapshot{}, models.ErrNotFound
	}
	return *best, nil
}

type memBacktestStore struct {
	mu     sync.Mutex
	runs   map[string]models.BacktestRun
	trades map[string][]models.BacktestTrade
}

func newMemBacktestStore() *memBacktestStore {
	return &memBacktestStore{
		runs:   make(map[string]models.BacktestRun),
		trades: make(map[string][]models.BacktestTrade),
	}
}

func (s *memBacktestStore) CreateRun(_ context.Context, run models.BacktestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *memBacktestStore) UpdateRun(_ context.Context, run models.BacktestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *memBacktestStore) RunByID(_ context.Context, id string) (models.BacktestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return models.BacktestRun{}, models.ErrNotFound
	}
	return run, nil
}

func (s *memBacktestStore) InsertTrades(_ context.Context, trades []models.BacktestTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range trades {
		s.trades[t.RunID] = append(s.trades[t.RunID], t)
	}
	return nil
}

func (s *memBacktestStore) TradesByRun(_ context.Context, runID string) ([]models.BacktestTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BacktestTrade, len(s.trades[runID]))
	copy(out, s.trades[runID])
	return out, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordCandidate(_, _ string)                {}
func (noopMetrics) RecordSelection(_ string)                   {}
func (noopMetrics) RecordSkip(_ string)                        {}
func (noopMetrics) RecordError(_ string)                       {}
func (noopMetrics) RecordQualityScore(_ string, _ float64)     {}
func (noopMetrics) RecordLatency(_ string, _ float64)          {}
func (noopMetrics) RecordBacktestRun(_ string)                 {}
func (noopMetrics) SetBacktestQueueDepth(_ int)                {}

type stubPredictor struct {
	pred service.Prediction
	err  error
}

func (p *stubPredictor) Name() string { return "stub" }

func (p *stubPredictor) Predict(_ context.Context, _ *models.FeatureVector) (service.Prediction, error) {
	return p.pred, p.err
}
