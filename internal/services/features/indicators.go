package features

import (
	"math"

	"SigForge/internal/domain/models"
)

// SMA returns the simple moving average of the last period values.
// Returns 0 when there is not enough data.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average over the full series, seeded
// with the SMA of the first period values.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	ema := SMA(values[:period], period)
	k := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// RSI returns the Wilder-smoothed relative strength index.
// Requires at least period+1 values; returns 50 on flat series.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 0
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		diff := values[i] - values[i-1]
		if diff > 0 {
			avgGain += diff
		} else {
			avgLoss -= diff
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		diff := values[i] - values[i-1]
		var gain, loss float64
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Bollinger returns the upper, middle and lower bands over the last period
// values using stdDevs standard deviations.
func Bollinger(values []float64, period int, stdDevs float64) (upper, middle, lower float64) {
	if period <= 0 || len(values) < period {
		return 0, 0, 0
	}
	middle = SMA(values, period)
	var variance float64
	for _, v := range values[len(values)-period:] {
		d := v - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))
	return middle + stdDevs*sd, middle, middle - stdDevs*sd
}

// ATR returns the Wilder-smoothed average true range over the last bars.
// Requires at least period+1 candles.
func ATR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		tr := trueRange(candles[i], candles[i-1].Close)
		trs = append(trs, tr)
	}
	atr := SMA(trs[:period], period)
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr
}

func trueRange(c models.Candle, prevClose float64) float64 {
	hl := c.High - c.Low
	hc := math.Abs(c.High - prevClose)
	lc := math.Abs(c.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// LogReturns returns the series of log close-to-close returns.
func LogReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 || values[i] <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(values[i]/values[i-1]))
	}
	return out
}

// RealizedVol returns the sample standard deviation of the last period log
// returns.
func RealizedVol(returns []float64, period int) float64 {
	if period <= 1 || len(returns) < period {
		return 0
	}
	window := returns[len(returns)-period:]
	mean := SMA(window, period)
	var variance float64
	for _, r := range window {
		d := r - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(period-1))
}

// Closes extracts the close series from candles.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
