package util

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	ts := time.Date(2024, 10, 10, 23, 59, 59, 0, time.UTC)
	if got := FormatDate(ts); got != "2024-10-10" {
		t.Fatalf("unexpected date %q", got)
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2024 || got.Month() != time.October || got.Day() != 10 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseDateInvalid(t *testing.T) {
	if _, ok := ParseDate(""); ok {
		t.Fatalf("expected not ok for empty")
	}
	if _, ok := ParseDate("10/10/2024"); ok {
		t.Fatalf("expected not ok for wrong layout")
	}
}

func TestDaysAgo(t *testing.T) {
	now := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)
	got := DaysAgo(now, 90)
	if FormatDate(got) != "2024-07-12" {
		t.Fatalf("unexpected %v", got)
	}
}
