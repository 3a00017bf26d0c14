package util

import "time"

// DateLayout is the YYYY-MM-DD period format used by the FX source.
const DateLayout = "2006-01-02"

// FormatDate renders a time as a YYYY-MM-DD period string in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD period string. Returns (t, true) if it parsed.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysAgo returns now shifted back by n days.
func DaysAgo(now time.Time, n int) time.Time {
	return now.AddDate(0, 0, -n)
}
