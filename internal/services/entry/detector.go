package entry

import (
	"sort"

	"SigForge/internal/domain/models"
)

// pivotLookback is the number of bars on each side confirming a pivot.
const pivotLookback = 2

// Result is the classified entry condition for the latest bar.
type Result struct {
	Type     models.EntryPointType
	Level    float64 // the level the classification refers to, 0 for NONE
	ZoneLow  float64
	ZoneHigh float64
}

// Detector classifies entry conditions against pivot-derived support and
// resistance levels.
type Detector struct {
	// TolerancePct is the half-width of the entry zone around a level,
	// in percent of the level price.
	TolerancePct float64
}

// NewDetector creates a detector with the given tolerance band.
func NewDetector(tolerancePct float64) *Detector {
	return &Detector{TolerancePct: tolerancePct}
}

// Detect classifies the last bar of the series. Levels are derived from
// pivots in the preceding bars; the last bar never confirms its own level.
//
// Tie-break policy: a close exactly at a support level counts as holding
// the level, so it classifies as SUPPORT_BOUNCE rather than SUPPORT_BREAK.
func (d *Detector) Detect(candles []models.Candle) Result {
	if len(candles) < 2*pivotLookback+2 {
		return d.none(candles)
	}

	history := candles[:len(candles)-1]
	supports, resistances := Levels(history)
	if len(supports) == 0 && len(resistances) == 0 {
		return d.none(candles)
	}

	price := candles[len(candles)-1].Close
	prev := candles[len(candles)-2].Close

	if len(resistances) > 0 {
		top := resistances[len(resistances)-1]
		if price > top {
			return d.at(models.EntryBreakout, top)
		}
		for i := len(resistances) - 1; i >= 0; i-- {
			r := resistances[i]
			if prev <= r && price > r {
				return d.at(models.EntryResistanceBreak, r)
			}
		}
	}

	if len(supports) > 0 {
		bottom := supports[0]
		if price < bottom {
			return d.at(models.EntryBreakdown, bottom)
		}
		for _, s := range supports {
			// holding the level, including an exact touch
			if price >= s && price <= s*(1+d.TolerancePct/100) {
				return d.at(models.EntrySupportBounce, s)
			}
			if prev >= s && price < s {
				return d.at(models.EntrySupportBreak, s)
			}
		}
	}

	return d.none(candles)
}

func (d *Detector) at(t models.EntryPointType, level float64) Result {
	band := level * d.TolerancePct / 100
	return Result{Type: t, Level: level, ZoneLow: level - band, ZoneHigh: level + band}
}

func (d *Detector) none(candles []models.Candle) Result {
	var price float64
	if len(candles) > 0 {
		price = candles[len(candles)-1].Close
	}
	band := price * d.TolerancePct / 100
	return Result{Type: models.EntryNone, ZoneLow: price - band, ZoneHigh: price + band}
}

// Levels extracts pivot-based support and resistance prices, ascending.
func Levels(candles []models.Candle) (supports, resistances []float64) {
	for i := pivotLookback; i < len(candles)-pivotLookback; i++ {
		isHigh, isLow := true, true
		for j := 1; j <= pivotLookback; j++ {
			if candles[i].High <= candles[i-j].High || candles[i].High < candles[i+j].High {
				isHigh = false
			}
			if candles[i].Low >= candles[i-j].Low || candles[i].Low > candles[i+j].Low {
				isLow = false
			}
		}
		if isHigh {
			resistances = append(resistances, candles[i].High)
		}
		if isLow {
			supports = append(supports, candles[i].Low)
		}
	}
	sort.Float64s(supports)
	sort.Float64s(resistances)
	return supports, resistances
}
