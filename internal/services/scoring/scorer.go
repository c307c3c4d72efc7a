package scoring

import (
	"math"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/service"
)

// Source identifies one scoring input.
type Source string

const (
	SourceStrategy  Source = "strategy"
	SourceSentiment Source = "sentiment"
	SourceML        Source = "ml"
)

// Input is one weighted source value. Absent sources keep their configured
// weight but are excluded from the composite; the remaining weights are
// renormalized so scores stay comparable across candidates with different
// source availability.
type Input struct {
	Weight  float64
	Value   float64
	Present bool
}

// Composite renormalizes the weights of present sources and returns their
// weighted average. ok is false when no source is present or the present
// weights sum to zero.
func Composite(inputs map[Source]Input) (score float64, ok bool) {
	var total, weighted float64
	for _, in := range inputs {
		if !in.Present || in.Weight <= 0 {
			continue
		}
		total += in.Weight
		weighted += in.Weight * in.Value
	}
	if total == 0 {
		return 0, false
	}
	return clamp01(weighted / total), true
}

// Confidence adjustment magnitudes per source.
const (
	sentimentAgreeDelta = 0.15
	mlAgreeDelta        = 0.2
	entryAlignedDelta   = 0.15
	entryNoneDelta      = 0.05
	entryOpposedDelta   = -0.1

	// sentiment neutral band around 0.5
	sentimentBand = 0.05
)

// Confidence derives a separate [0,1] figure from cross-source agreement
// with the candidate direction. A NONE entry classification contributes a
// reduced entry weight rather than zero.
func Confidence(dir models.Direction, sentiment *float64, ml *service.Prediction, entryType models.EntryPointType) float64 {
	conf := 0.5

	if sentiment != nil {
		switch sentimentBias(*sentiment) {
		case dir:
			conf += sentimentAgreeDelta
		case dir.Opposite():
			conf -= sentimentAgreeDelta
		}
	}

	if ml != nil {
		switch ml.Direction {
		case dir:
			conf += mlAgreeDelta * ml.Confidence
		case dir.Opposite():
			conf -= mlAgreeDelta * ml.Confidence
		}
	}

	switch {
	case entryType == models.EntryNone:
		conf += entryNoneDelta
	case entryBias(entryType) == dir:
		conf += entryAlignedDelta
	default:
		conf += entryOpposedDelta
	}

	return clamp01(conf)
}

// Strength buckets a quality score into its fixed tier.
func Strength(score float64) models.Strength {
	switch {
	case score < 0.45:
		return models.StrengthWeak
	case score < 0.65:
		return models.StrengthModerate
	case score < 0.8:
		return models.StrengthStrong
	default:
		return models.StrengthVeryStrong
	}
}

// sentimentBias maps a normalized sentiment score to a direction, with a
// neutral band around 0.5.
func sentimentBias(score float64) models.Direction {
	switch {
	case score > 0.5+sentimentBand:
		return models.DirectionLong
	case score < 0.5-sentimentBand:
		return models.DirectionShort
	default:
		return models.DirectionHold
	}
}

// entryBias maps an entry classification to the direction it supports.
func entryBias(t models.EntryPointType) models.Direction {
	switch t {
	case models.EntryBreakout, models.EntryResistanceBreak, models.EntrySupportBounce:
		return models.DirectionLong
	case models.EntryBreakdown, models.EntrySupportBreak:
		return models.DirectionShort
	default:
		return models.DirectionHold
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
