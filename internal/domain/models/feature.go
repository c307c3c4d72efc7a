package models

import "time"

// Well-known feature names produced by the feature builder. Per-timeframe
// indicator features are suffixed with the timeframe, e.g. "ema_fast_4h".
const (
	FeatClose          = "close"
	FeatSMA            = "sma"
	FeatEMAFast        = "ema_fast"
	FeatEMASlow        = "ema_slow"
	FeatRSI            = "rsi"
	FeatBollUpper      = "boll_upper"
	FeatBollMiddle     = "boll_middle"
	FeatBollLower      = "boll_lower"
	FeatATR            = "atr"
	FeatLogReturn      = "log_return"
	FeatRealizedVol    = "realized_vol"
	FeatSentiment      = "sentiment"
	FeatSentimentFresh = "sentiment_fresh"
	FeatConfluence     = "confluence"
)

// FeatureVector is the assembled per-symbol input for the strategy engine
// and the ML predictors. It must be reproducible deterministically from the
// candle series plus the sentiment snapshot at-or-before Timestamp.
type FeatureVector struct {
	Symbol    string             `json:"symbol"`
	Timeframe string             `json:"timeframe"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// Get returns a named feature value, and whether it is present.
func (f *FeatureVector) Get(name string) (float64, bool) {
	v, ok := f.Values[name]
	return v, ok
}

// GetDefault returns a named feature value, or def when absent.
func (f *FeatureVector) GetDefault(name string, def float64) float64 {
	if v, ok := f.Values[name]; ok {
		return v
	}
	return def
}

// Set stores a named feature value.
func (f *FeatureVector) Set(name string, v float64) {
	if f.Values == nil {
		f.Values = make(map[string]float64)
	}
	f.Values[name] = v
}

// TFKey builds the per-timeframe feature name, e.g. TFKey("ema_fast", "4h").
func TFKey(name, timeframe string) string {
	return name + "_" + timeframe
}
