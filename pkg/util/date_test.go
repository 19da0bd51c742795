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

func TestParseTimePlainDate(t *testing.T) {
	got, ok := ParseTime("2024-03-01")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("unexpected date %v", got)
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

func TestParseTimeUnixMillis(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got, ok := ParseTime(strconv.FormatInt(ts.UnixMilli(), 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(ts) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestBusinessDaysSkipsWeekend(t *testing.T) {
	// Friday 2024-03-01 .. Monday 2024-03-04
	from := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	days := BusinessDays(from, to)
	if len(days) != 2 {
		t.Fatalf("expected 2 business days, got %d", len(days))
	}
	if days[0].Weekday() != time.Friday || days[1].Weekday() != time.Monday {
		t.Fatalf("unexpected days %v", days)
	}
	if days[0].Hour() != 0 {
		t.Fatalf("expected dates truncated to midnight")
	}
}
