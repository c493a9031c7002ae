package utils

import (
	"testing"
	"time"
)

func TestWeekKeyOf_FixedWidth(t *testing.T) {
	cases := []struct {
		date     time.Time
		expected string
	}{
		{time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC), "2026-W05"},
		{time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "2026-W05"}, // sunday closes the week
		{time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), "2026-W06"},
		// Jan 1 2027 falls in the last ISO week of 2026
		{time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W53"},
		{time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC), "2026-W53"},
	}
	for _, tc := range cases {
		if got := WeekKeyOf(tc.date); got != tc.expected {
			t.Fatalf("WeekKeyOf(%s) expected %s, got %s", tc.date.Format("2006-01-02"), tc.expected, got)
		}
	}
}

func TestWeekKeys_CompareChronologically(t *testing.T) {
	// string order must match time order, including across years
	keys := []string{"2025-W52", "2026-W01", "2026-W05", "2026-W39", "2027-W02"}
	for i := 1; i < len(keys); i++ {
		if !(keys[i-1] < keys[i]) {
			t.Fatalf("expected %s < %s as strings", keys[i-1], keys[i])
		}
	}
}

func TestParseWeekKey(t *testing.T) {
	year, week, err := ParseWeekKey("2026-W05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if year != 2026 || week != 5 {
		t.Fatalf("expected 2026/5, got %d/%d", year, week)
	}

	for _, bad := range []string{"", "2026", "2026-05", "2026-W00", "2026-W54", "garbage"} {
		if _, _, err := ParseWeekKey(bad); err == nil {
			t.Fatalf("ParseWeekKey(%q) expected error", bad)
		}
	}
}

func TestWeekRange_MondayThroughSunday(t *testing.T) {
	start, end, err := WeekRange("2026-W05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Weekday() != time.Monday {
		t.Fatalf("range must start on Monday, got %s", start.Weekday())
	}
	wantStart := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %s, got %s", wantStart, start)
	}
	wantEnd := time.Date(2026, 2, 1, 23, 59, 59, 0, time.UTC)
	if !end.Equal(wantEnd) {
		t.Fatalf("expected end %s, got %s", wantEnd, end)
	}
}

func TestWeekRange_RoundTripsWithWeekKeyOf(t *testing.T) {
	for _, key := range []string{"2025-W01", "2026-W05", "2026-W53", "2027-W10"} {
		start, end, err := WeekRange(key)
		if err != nil {
			t.Fatalf("WeekRange(%s): %v", key, err)
		}
		if got := WeekKeyOf(start); got != key {
			t.Fatalf("start of %s maps back to %s", key, got)
		}
		if got := WeekKeyOf(end); got != key {
			t.Fatalf("end of %s maps back to %s", key, got)
		}
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2026, 3, 15, 17, 45, 12, 999, time.FixedZone("MMT", 6*3600+1800))
	got := DateOnly(in)
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestValidateReason(t *testing.T) {
	if err := ValidateReason("correcting depot typo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "   ", "four", "  ab  "} {
		if err := ValidateReason(bad); err == nil {
			t.Fatalf("ValidateReason(%q) expected error", bad)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("expected [3 1 2], got %v", got)
	}
}
