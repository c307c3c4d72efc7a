package strategy

import (
	"math"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/internal/services/features"
	"SigForge/pkg/logger"
)

// StructureEvent is a market-structure break on the working timeframe.
type StructureEvent string

const (
	StructureNone StructureEvent = "NONE"
	// StructureBOS is a break of structure: close beyond the prior swing
	// extreme in the direction of the prevailing move.
	StructureBOS StructureEvent = "BOS"
	// StructureCHoCH is a change of character: close beyond the prior
	// swing extreme against the prevailing move.
	StructureCHoCH StructureEvent = "CHOCH"
)

// swingLookback is the number of bars on each side required to confirm a
// swing high or low pivot.
const swingLookback = 2

// Config holds the engine's risk parameters.
type Config struct {
	Timeframes    []repository.Timeframe // confluence set, ascending
	TakeProfitPct float64
	StopLossPct   float64
	MinRewardRisk float64
}

// Engine turns feature vectors and recent price structure into candidate
// signal stubs. It emits at most one candidate per symbol per evaluation;
// ties in directional evidence resolve to no candidate.
type Engine struct {
	cfg    Config
	logger *logger.Logger
}

// NewEngine creates a strategy engine.
func NewEngine(cfg Config, lgr *logger.Logger) *Engine {
	return &Engine{cfg: cfg, logger: lgr}
}

// Evaluate returns a candidate stub (direction, prices, strategy score) or
// nil when the evidence does not line up. candles are the working-timeframe
// bars ascending, ending at the evaluation timestamp.
func (e *Engine) Evaluate(fv *models.FeatureVector, candles []models.Candle) *models.CandidateSignal {
	bias := features.DominantBias(fv, e.cfg.Timeframes)
	if bias == models.DirectionHold {
		return nil
	}

	event, eventDir := DetectStructure(candles)
	if event == StructureNone || eventDir != bias {
		return nil
	}

	if !e.oscillatorConfirms(fv, bias) {
		return nil
	}

	entry := candles[len(candles)-1].Close
	var target, stop float64
	switch bias {
	case models.DirectionLong:
		target = entry * (1 + e.cfg.TakeProfitPct/100)
		stop = entry * (1 - e.cfg.StopLossPct/100)
	case models.DirectionShort:
		target = entry * (1 - e.cfg.TakeProfitPct/100)
		stop = entry * (1 + e.cfg.StopLossPct/100)
	}

	sig := &models.CandidateSignal{
		Symbol:        fv.Symbol,
		GeneratedAt:   fv.Timestamp,
		Direction:     bias,
		Entry:         entry,
		Target:        target,
		Stop:          stop,
		StrategyScore: e.score(fv, event),
		Valid:         true,
	}
	if sig.RewardRisk() < e.cfg.MinRewardRisk {
		return nil
	}
	return sig
}

// oscillatorConfirms requires the working-timeframe RSI to sit on the bias
// side of 50 without being stretched past the exhaustion band.
func (e *Engine) oscillatorConfirms(fv *models.FeatureVector, bias models.Direction) bool {
	rsi, ok := fv.Get(models.TFKey(models.FeatRSI, fv.Timeframe))
	if !ok {
		return false
	}
	switch bias {
	case models.DirectionLong:
		return rsi > 50 && rsi < 80
	case models.DirectionShort:
		return rsi < 50 && rsi > 20
	}
	return false
}

// score blends confluence, structure type and oscillator positioning into
// the raw strategy sub-score in [0,1].
func (e *Engine) score(fv *models.FeatureVector, event StructureEvent) float64 {
	confluence := fv.GetDefault(models.FeatConfluence, 0)

	structure := 0.6
	if event == StructureBOS {
		structure = 1.0
	}

	rsi := fv.GetDefault(models.TFKey(models.FeatRSI, fv.Timeframe), 50)
	// distance from neutral, capped at the 30-point exhaustion band
	osc := math.Min(math.Abs(rsi-50)/30, 1)

	s := 0.5*confluence + 0.3*structure + 0.2*osc
	return math.Max(0, math.Min(1, s))
}

// DetectStructure scans the working-timeframe bars for the most recent
// structure break. The last close is compared against the two most recent
// confirmed swing extremes: a close beyond the swing in the direction of
// the prevailing move is a BOS, against it a CHoCH.
func DetectStructure(candles []models.Candle) (StructureEvent, models.Direction) {
	if len(candles) < 2*swingLookback+2 {
		return StructureNone, models.DirectionHold
	}

	highs, lows := swingPoints(candles[:len(candles)-1])
	if len(highs) == 0 && len(lows) == 0 {
		return StructureNone, models.DirectionHold
	}
	last := candles[len(candles)-1].Close

	upMove := prevailingUp(highs, lows)

	if len(highs) > 0 && last > highs[len(highs)-1].High {
		if upMove {
			return StructureBOS, models.DirectionLong
		}
		return StructureCHoCH, models.DirectionLong
	}
	if len(lows) > 0 && last < lows[len(lows)-1].Low {
		if !upMove {
			return StructureBOS, models.DirectionShort
		}
		return StructureCHoCH, models.DirectionShort
	}
	return StructureNone, models.DirectionHold
}

// swingPoints returns confirmed swing highs and lows in bar order.
func swingPoints(candles []models.Candle) (highs, lows []models.Candle) {
	for i := swingLookback; i < len(candles)-swingLookback; i++ {
		isHigh, isLow := true, true
		for j := 1; j <= swingLookback; j++ {
			if candles[i].High <= candles[i-j].High || candles[i].High < candles[i+j].High {
				isHigh = false
			}
			if candles[i].Low >= candles[i-j].Low || candles[i].Low > candles[i+j].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, candles[i])
		}
		if isLow {
			lows = append(lows, candles[i])
		}
	}
	return highs, lows
}

// prevailingUp reports whether the last two swing extremes step upward.
func prevailingUp(highs, lows []models.Candle) bool {
	if len(highs) >= 2 {
		return highs[len(highs)-1].High > highs[len(highs)-2].High
	}
	if len(lows) >= 2 {
		return lows[len(lows)-1].Low > lows[len(lows)-2].Low
	}
	return len(highs) >= len(lows)
}
