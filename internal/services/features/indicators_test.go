package features

import (
	"math"
	"testing"
	"time"

	"SigForge/internal/domain/models"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := SMA(values, 3)
	if got != 4 {
		t.Fatalf("SMA(3) = %v, want 4", got)
	}
	if SMA(values, 6) != 0 {
		t.Fatalf("expected 0 for insufficient data")
	}
}

func TestEMAFlatSeries(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100
	}
	got := EMA(values, 20)
	if math.Abs(got-100) > 1e-9 {
		t.Fatalf("EMA of flat series = %v, want 100", got)
	}
}

func TestRSIBounds(t *testing.T) {
	up := make([]float64, 30)
	for i := range up {
		up[i] = float64(100 + i)
	}
	if got := RSI(up, 14); got != 100 {
		t.Fatalf("RSI of monotonic up series = %v, want 100", got)
	}

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	if got := RSI(flat, 14); got != 50 {
		t.Fatalf("RSI of flat series = %v, want 50", got)
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 50
	}
	upper, middle, lower := Bollinger(values, 20, 2)
	if upper != 50 || middle != 50 || lower != 50 {
		t.Fatalf("Bollinger of flat series = %v/%v/%v, want 50/50/50", upper, middle, lower)
	}
}

func TestATR(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 20)
	for i := range candles {
		candles[i] = models.Candle{
			Symbol: "BTCUSDT", Timeframe: "1h",
			Bucket: base.Add(time.Duration(i) * time.Hour),
			Open:   100, High: 102, Low: 98, Close: 100,
		}
	}
	got := ATR(candles, 14)
	if math.Abs(got-4) > 1e-9 {
		t.Fatalf("ATR of constant-range bars = %v, want 4", got)
	}
}

func TestLogReturnsAndRealizedVol(t *testing.T) {
	returns := LogReturns([]float64{100, 110, 121})
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	want := math.Log(1.1)
	if math.Abs(returns[0]-want) > 1e-9 || math.Abs(returns[1]-want) > 1e-9 {
		t.Fatalf("returns = %v, want both %v", returns, want)
	}
	// constant returns have zero dispersion
	series := make([]float64, 30)
	for i := range series {
		series[i] = 0.01
	}
	if got := RealizedVol(series, 20); math.Abs(got) > 1e-12 {
		t.Fatalf("RealizedVol of constant returns = %v, want ~0", got)
	}
}
