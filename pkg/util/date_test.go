package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestPeriodKeyRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 3, 14, 37, 12, 0, time.UTC)
	key := PeriodKey(at)
	if key != "2025-06-03T14" {
		t.Fatalf("unexpected key %q", key)
	}
	back, ok := ParsePeriodKey(key)
	if !ok {
		t.Fatalf("expected parse ok")
	}
	if !back.Equal(at.Truncate(time.Hour)) {
		t.Fatalf("unexpected round trip %v", back)
	}
}

func TestDayKey(t *testing.T) {
	at := time.Date(2025, 6, 3, 23, 59, 0, 0, time.UTC)
	if DayKey(at) != "2025-06-03" {
		t.Fatalf("unexpected day key %q", DayKey(at))
	}
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2025, 6, 3, 14, 37, 12, 0, time.UTC)
	to := time.Date(2025, 6, 3, 18, 2, 59, 0, time.UTC)
	af, at := AlignFromTo(from, to, time.Hour)
	if af.Minute() != 0 || at.Minute() != 0 {
		t.Fatalf("expected hour alignment, got %v %v", af, at)
	}
}
