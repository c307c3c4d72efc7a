package models

import "time"

// Direction is the recommended trade direction of a signal.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionHold  Direction = "HOLD"
)

// Opposite returns the inverse direction; HOLD maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionHold
	}
}

// Strength is the fixed bucketing of the composite quality score.
type Strength string

const (
	StrengthWeak       Strength = "WEAK"
	StrengthModerate   Strength = "MODERATE"
	StrengthStrong     Strength = "STRONG"
	StrengthVeryStrong Strength = "VERY_STRONG"
)

// EntryPointType classifies the entry condition around a detected level.
type EntryPointType string

const (
	EntrySupportBreak    EntryPointType = "SUPPORT_BREAK"
	EntryResistanceBreak EntryPointType = "RESISTANCE_BREAK"
	EntrySupportBounce   EntryPointType = "SUPPORT_BOUNCE"
	EntryBreakout        EntryPointType = "BREAKOUT"
	EntryBreakdown       EntryPointType = "BREAKDOWN"
	EntryNone            EntryPointType = "NONE"
)

// CandidateSignal is one scored trading recommendation for a symbol at one
// evaluation timestamp. It is never mutated after persistence except for
// the Valid flag.
type CandidateSignal struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	GeneratedAt time.Time `json:"generated_at"`
	Direction   Direction `json:"direction"`

	Entry  float64 `json:"entry"`
	Target float64 `json:"target"`
	Stop   float64 `json:"stop"`

	StrategyScore  float64  `json:"strategy_score"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	MLScore        *float64 `json:"ml_score,omitempty"`

	QualityScore float64  `json:"quality_score"`
	Confidence   float64  `json:"confidence"`
	Strength     Strength `json:"strength"`

	EntryPointType EntryPointType `json:"entry_point_type"`
	EntryZoneLow   float64        `json:"entry_zone_low"`
	EntryZoneHigh  float64        `json:"entry_zone_high"`

	Valid bool `json:"valid"`
}

// RewardRisk returns (target-entry)/(entry-stop) for longs and the mirrored
// ratio for shorts. Returns 0 when the risk leg is not positive.
func (s *CandidateSignal) RewardRisk() float64 {
	var reward, risk float64
	switch s.Direction {
	case DirectionLong:
		reward = s.Target - s.Entry
		risk = s.Entry - s.Stop
	case DirectionShort:
		reward = s.Entry - s.Target
		risk = s.Stop - s.Entry
	default:
		return 0
	}
	if risk <= 0 {
		return 0
	}
	return reward / risk
}

// PeriodStatus is the lifecycle state of a selection period.
type PeriodStatus string

const (
	PeriodOpen       PeriodStatus = "OPEN"
	PeriodCollecting PeriodStatus = "COLLECTING"
	PeriodClosed     PeriodStatus = "CLOSED"
)

// SelectionRecord pins one chosen signal to a rank within a period.
// At most one record exists per (period_key, symbol).
type SelectionRecord struct {
	PeriodKey    string    `json:"period_key"`
	Rank         int       `json:"rank"`
	SignalID     string    `json:"signal_id"`
	Symbol       string    `json:"symbol"`
	QualityScore float64   `json:"quality_score"`
	SelectedAt   time.Time `json:"selected_at"`
}
