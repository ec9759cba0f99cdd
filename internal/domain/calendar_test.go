package domain

import (
	"testing"

	"cloud.google.com/go/civil"
)

func date(t *testing.T, raw string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(raw)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", raw, err)
	}
	return d
}

// TestCalendarIsBusinessDay verifies weekday, weekend, and holiday classification.
func TestCalendarIsBusinessDay(t *testing.T) {
	cal := NewCalendar([]Holiday{{Date: date(t, "2025-06-09"), Title: "Whit Monday"}})
	cases := []struct {
		day  string
		want bool
	}{
		{day: "2025-06-06", want: true},
		{day: "2025-06-07", want: false},
		{day: "2025-06-08", want: false},
		{day: "2025-06-09", want: false},
		{day: "2025-06-10", want: true},
	}
	for _, tc := range cases {
		if got := cal.IsBusinessDay(date(t, tc.day)); got != tc.want {
			t.Fatalf("IsBusinessDay(%s) = %t, want %t", tc.day, got, tc.want)
		}
	}
	if !cal.IsHoliday(date(t, "2025-06-09")) {
		t.Fatal("expected 2025-06-09 to be a holiday")
	}
}

// TestCalendarCountBusinessDays verifies half-open counting with holidays and empty ranges.
func TestCalendarCountBusinessDays(t *testing.T) {
	cal := NewCalendar([]Holiday{{Date: date(t, "2025-06-09"), Title: "Whit Monday"}})
	cases := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{name: "full week with holiday", start: "2025-06-09", end: "2025-06-16", want: 4},
		{name: "full week", start: "2025-06-02", end: "2025-06-09", want: 5},
		{name: "weekend only", start: "2025-06-07", end: "2025-06-09", want: 0},
		{name: "empty range", start: "2025-06-10", end: "2025-06-10", want: 0},
		{name: "inverted range", start: "2025-06-12", end: "2025-06-10", want: 0},
		{name: "partial week", start: "2025-06-09", end: "2025-06-13", want: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cal.CountBusinessDays(date(t, tc.start), date(t, tc.end)); got != tc.want {
				t.Fatalf("CountBusinessDays() = %d, want %d", got, tc.want)
			}
		})
	}
}

// TestWeekAndMonthBoundaries verifies ISO week starts and month edges.
func TestWeekAndMonthBoundaries(t *testing.T) {
	if got := StartOfWeek(date(t, "2025-06-05")); got != date(t, "2025-06-02") {
		t.Fatalf("StartOfWeek(thursday) = %s", got)
	}
	if got := StartOfWeek(date(t, "2025-06-08")); got != date(t, "2025-06-02") {
		t.Fatalf("StartOfWeek(sunday) = %s", got)
	}
	if got := StartOfWeek(date(t, "2025-06-02")); got != date(t, "2025-06-02") {
		t.Fatalf("StartOfWeek(monday) = %s", got)
	}
	if got := StartOfMonth(date(t, "2025-06-05")); got != date(t, "2025-06-01") {
		t.Fatalf("StartOfMonth() = %s", got)
	}
	if got := StartOfNextMonth(date(t, "2025-12-31")); got != date(t, "2026-01-01") {
		t.Fatalf("StartOfNextMonth() = %s", got)
	}
}

func TestNewHolidayValidation(t *testing.T) {
	if _, err := NewHoliday(date(t, "2025-12-25"), "  "); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := NewHoliday(civil.Date{Year: 2025, Month: 2, Day: 30}, "bad"); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	h, err := NewHoliday(date(t, "2025-12-25"), " Christmas ")
	if err != nil {
		t.Fatalf("NewHoliday() error = %v", err)
	}
	if h.Title != "Christmas" {
		t.Fatalf("unexpected title %q", h.Title)
	}
}
