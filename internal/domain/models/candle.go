package models

import "time"

// Candle is one OHLCV bar. Bars are unique per (symbol, timeframe, bucket)
// and append-only; duplicate inserts for the same bucket are idempotent.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Bucket    time.Time `json:"bucket"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Bullish reports whether the bar closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Range returns the high-low span of the bar.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// SentimentSnapshot is one normalized sentiment reading for a symbol.
// Score is in [0,1] with 0.5 meaning neutral.
type SentimentSnapshot struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}
