package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// PeriodKey formats an evaluation period key (UTC date + hour).
// Selection records and period leases are keyed by this value.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01-02T15")
}

// ParsePeriodKey parses a period key back to the hour it opens.
func ParsePeriodKey(key string) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02T15", key, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DayKey formats the UTC calendar day a timestamp falls into.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// AlignFromTo rounds the time range to bucket boundaries for the timeframe duration.
func AlignFromTo(from, to time.Time, d time.Duration) (time.Time, time.Time) {
	if d <= 0 {
		d = time.Minute
	}
	return from.Truncate(d), to.Truncate(d)
}
