package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/pkg/logger"
)

// CandleIngestHandler consumes the candle topic into the market store.
// Store inserts are idempotent, so redelivered messages are harmless.
type CandleIngestHandler struct {
	topic  string
	market repository.MarketStore
	logger *logger.Logger
}

// NewCandleIngestHandler creates the candle topic handler.
func NewCandleIngestHandler(topic string, market repository.MarketStore, lgr *logger.Logger) *CandleIngestHandler {
	return &CandleIngestHandler{topic: topic, market: market, logger: lgr}
}

func (h *CandleIngestHandler) Topic() string { return h.topic }

func (h *CandleIngestHandler) Handle(ctx context.Context, data []byte) error {
	var candle models.Candle
	if err := json.Unmarshal(data, &candle); err != nil {
		// malformed payloads are dropped, not retried
		h.logger.Warn("dropping malformed candle message", logger.Error(err))
		return nil
	}
	if candle.Symbol == "" || candle.Bucket.IsZero() {
		h.logger.Warn("dropping incomplete candle message", logger.String("symbol", candle.Symbol))
		return nil
	}

	if err := h.market.InsertCandles(ctx, []models.Candle{candle}); err != nil {
		return fmt.Errorf("ingest candle %s/%s: %w", candle.Symbol, candle.Timeframe, err)
	}
	return nil
}

// SentimentIngestHandler consumes the sentiment snapshot topic.
type SentimentIngestHandler struct {
	topic     string
	sentiment repository.SentimentStore
	logger    *logger.Logger
}

// NewSentimentIngestHandler creates the sentiment topic handler.
func NewSentimentIngestHandler(topic string, sentiment repository.SentimentStore, lgr *logger.Logger) *SentimentIngestHandler {
	return &SentimentIngestHandler{topic: topic, sentiment: sentiment, logger: lgr}
}

func (h *SentimentIngestHandler) Topic() string { return h.topic }

func (h *SentimentIngestHandler) Handle(ctx context.Context, data []byte) error {
	var snap models.SentimentSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		h.logger.Warn("dropping malformed sentiment message", logger.Error(err))
		return nil
	}
	if snap.Symbol == "" || snap.Timestamp.IsZero() {
		h.logger.Warn("dropping incomplete sentiment message", logger.String("symbol", snap.Symbol))
		return nil
	}
	if snap.Score < 0 || snap.Score > 1 {
		h.logger.Warn("dropping out-of-range sentiment score",
			logger.String("symbol", snap.Symbol),
			logger.Float64("score", snap.Score),
		)
		return nil
	}

	if err := h.sentiment.InsertSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("ingest sentiment %s: %w", snap.Symbol, err)
	}
	return nil
}
