package util

import (
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, plain dates and unix seconds (or millis). Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, DateLayout, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return UnixAuto(ts), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// UnixAuto interprets ts as seconds, or milliseconds when it is too large to be seconds.
func UnixAuto(ts int64) time.Time {
	if ts > 1e11 { // ms
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}

// DateOnly truncates t to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether t falls Monday to Friday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDays lists the Mon-Fri calendar dates in [from, to], both truncated to dates.
func BusinessDays(from, to time.Time) []time.Time {
	from, to = DateOnly(from), DateOnly(to)
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			out = append(out, d)
		}
	}
	return out
}
