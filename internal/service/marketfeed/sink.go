package marketfeed

import (
	"context"
	"fmt"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/pkg/kafka"
)

// KafkaSink publishes completed candles to the candle topic.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaSink creates a Kafka-backed sink.
func NewKafkaSink(producer *kafka.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) PublishCandle(ctx context.Context, candle models.Candle) error {
	key := []byte(candle.Symbol + "/" + candle.Timeframe)
	if err := s.producer.Publish(ctx, s.topic, key, candle); err != nil {
		return fmt.Errorf("publish candle: %w", err)
	}
	return nil
}

// StoreSink writes completed candles straight to the market store.
type StoreSink struct {
	market repository.MarketStore
}

// NewStoreSink creates a store-backed sink.
func NewStoreSink(market repository.MarketStore) *StoreSink {
	return &StoreSink{market: market}
}

func (s *StoreSink) PublishCandle(ctx context.Context, candle models.Candle) error {
	return s.market.InsertCandles(ctx, []models.Candle{candle})
}
