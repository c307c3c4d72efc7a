package repository

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is a candle aggregation interval.
type Timeframe string

const (
	TF1h Timeframe = "1h"
	TF4h Timeframe = "4h"
	TF1d Timeframe = "1d"
)

// ParseTimeframe normalizes and validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(strings.ToLower(strings.TrimSpace(s))) {
	case TF1h:
		return TF1h, nil
	case TF4h:
		return TF4h, nil
	case TF1d:
		return TF1d, nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", s)
	}
}

// Duration returns the bar interval of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

func (tf Timeframe) String() string { return string(tf) }
