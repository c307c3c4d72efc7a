package marketfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"SigForge/internal/domain/models"
	"SigForge/pkg/logger"
)

// Sink receives completed candles from the feed.
type Sink interface {
	PublishCandle(ctx context.Context, candle models.Candle) error
}

// Config holds the exchange stream settings.
type Config struct {
	URL            string
	APIKey         string
	Symbols        []string
	Timeframe      string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// Client consumes an exchange trade stream over WebSocket and aggregates
// trades into candles, flushing each bar to the sink when its bucket rolls
// over.
type Client struct {
	cfg    Config
	sink   Sink
	logger *logger.Logger

	builders map[string]*candleBuilder
}

type subscribeMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type tradeMessage struct {
	Type string `json:"type"`
	Data []struct {
		Symbol string  `json:"s"`
		Price  float64 `json:"p"`
		Volume float64 `json:"v"`
		TimeMS int64   `json:"t"`
	} `json:"data"`
}

// NewClient creates a market feed client.
func NewClient(cfg Config, sink Sink, lgr *logger.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1h"
	}
	return &Client{
		cfg:      cfg,
		sink:     sink,
		logger:   lgr,
		builders: make(map[string]*candleBuilder),
	}
}

// Run connects and consumes the stream until ctx is cancelled, reconnecting
// on transport errors.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.consume(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("feed disconnected, reconnecting",
				logger.Error(err),
				logger.Duration("delay", c.cfg.ReconnectDelay),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Client) consume(ctx context.Context) error {
	url := c.cfg.URL
	if c.cfg.APIKey != "" {
		url += "?token=" + c.cfg.APIKey
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close()

	for _, sym := range c.cfg.Symbols {
		if err := conn.WriteJSON(subscribeMessage{Type: "subscribe", Symbol: sym}); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	c.logger.Info("feed connected", logger.Int("symbols", len(c.cfg.Symbols)))

	done := make(chan struct{})
	defer close(done)
	go c.keepAlive(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read feed: %w", err)
		}

		var msg tradeMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "trade" {
			continue
		}
		for _, tr := range msg.Data {
			c.applyTrade(ctx, tr.Symbol, tr.Price, tr.Volume, time.UnixMilli(tr.TimeMS).UTC())
		}
	}
}

func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// applyTrade folds one trade into the symbol's current bar; a trade in a
// newer bucket flushes the finished bar first.
func (c *Client) applyTrade(ctx context.Context, symbol string, price, volume float64, ts time.Time) {
	bucket := ts.Truncate(bucketSize(c.cfg.Timeframe))

	b, ok := c.builders[symbol]
	if !ok {
		c.builders[symbol] = newCandleBuilder(symbol, c.cfg.Timeframe, bucket, price, volume)
		return
	}

	if bucket.After(b.bucket) {
		c.flush(ctx, b)
		c.builders[symbol] = newCandleBuilder(symbol, c.cfg.Timeframe, bucket, price, volume)
		return
	}
	b.apply(price, volume)
}

func (c *Client) flush(ctx context.Context, b *candleBuilder) {
	candle := b.candle()
	if err := c.sink.PublishCandle(ctx, candle); err != nil {
		c.logger.Error("failed to publish candle",
			logger.String("symbol", candle.Symbol),
			logger.Time("bucket", candle.Bucket),
			logger.Error(err),
		)
	}
}

func bucketSize(timeframe string) time.Duration {
	switch timeframe {
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// candleBuilder accumulates trades into one OHLCV bar.
type candleBuilder struct {
	symbol    string
	timeframe string
	bucket    time.Time
	open      float64
	high      float64
	low       float64
	close     float64
	volume    float64
}

func newCandleBuilder(symbol, timeframe string, bucket time.Time, price, volume float64) *candleBuilder {
	return &candleBuilder{
		symbol:    symbol,
		timeframe: timeframe,
		bucket:    bucket,
		open:      price,
		high:      price,
		low:       price,
		close:     price,
		volume:    volume,
	}
}

func (b *candleBuilder) apply(price, volume float64) {
	if price > b.high {
		b.high = price
	}
	if price < b.low {
		b.low = price
	}
	b.close = price
	b.volume += volume
}

func (b *candleBuilder) candle() models.Candle {
	return models.Candle{
		Symbol:    b.symbol,
		Timeframe: b.timeframe,
		Bucket:    b.bucket,
		Open:      b.open,
		High:      b.high,
		Low:       b.low,
		Close:     b.close,
		Volume:    b.volume,
	}
}
