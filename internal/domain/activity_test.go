package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewActivityLoggedNormalizes(t *testing.T) {
	ts := time.Date(2024, 12, 18, 9, 30, 0, 750_000_000, time.FixedZone("CET", 3600))
	event, err := NewActivityLogged(ts, 30*time.Minute+500*time.Millisecond, " ACME Inc. ", "Foobar", "Do something", " ")
	if err != nil {
		t.Fatalf("NewActivityLogged() error = %v", err)
	}
	want := time.Date(2024, 12, 18, 8, 30, 0, 0, time.UTC)
	if !event.Timestamp.Equal(want) || event.Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected timestamp %s", event.Timestamp)
	}
	if event.Duration != 30*time.Minute {
		t.Fatalf("unexpected duration %s", event.Duration)
	}
	if event.Client != "ACME Inc." || event.Notes != "" {
		t.Fatalf("unexpected normalized fields %#v", event)
	}

	notes := "  - reviewed PR\n  - paired with Ana "
	event, err = NewActivityLogged(ts, time.Hour, "ACME", "Foobar", "Code", notes)
	if err != nil {
		t.Fatalf("NewActivityLogged() error = %v", err)
	}
	if event.Notes != notes {
		t.Fatalf("notes = %q, want %q", event.Notes, notes)
	}
}

func TestNewActivityLoggedValidation(t *testing.T) {
	ts := time.Date(2024, 12, 18, 8, 30, 0, 0, time.UTC)
	cases := []struct {
		name string
		fn   func() error
		want error
	}{
		{"zero timestamp", func() error {
			_, err := NewActivityLogged(time.Time{}, time.Minute, "c", "p", "t", "")
			return err
		}, ErrInvalidTimestamp},
		{"zero duration", func() error {
			_, err := NewActivityLogged(ts, 0, "c", "p", "t", "")
			return err
		}, ErrInvalidDuration},
		{"sub-second duration", func() error {
			_, err := NewActivityLogged(ts, 500*time.Millisecond, "c", "p", "t", "")
			return err
		}, ErrInvalidDuration},
		{"blank client", func() error {
			_, err := NewActivityLogged(ts, time.Minute, " ", "p", "t", "")
			return err
		}, ErrInvalidClient},
		{"blank project", func() error {
			_, err := NewActivityLogged(ts, time.Minute, "c", "", "t", "")
			return err
		}, ErrInvalidProject},
		{"blank task", func() error {
			_, err := NewActivityLogged(ts, time.Minute, "c", "p", "\t", "")
			return err
		}, ErrInvalidTask},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fn()
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

// TestMapActivityResolvesZone verifies the local view keeps fields and shifts the clock.
func TestMapActivityResolvesZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	event := ActivityLogged{
		Timestamp: time.Date(2025, 6, 4, 22, 30, 0, 0, time.UTC),
		Duration:  time.Hour,
		Client:    "ACME Inc.",
		Project:   "Foobar",
		Task:      "Do something",
		Notes:     "late",
	}
	activity := MapActivity(event, berlin)
	if got := activity.DateTime.Format("2006-01-02T15:04:05"); got != "2025-06-05T00:30:00" {
		t.Fatalf("unexpected local date time %q", got)
	}
	if got := activity.Date().String(); got != "2025-06-05" {
		t.Fatalf("unexpected local date %q", got)
	}
	if activity.Client != event.Client || activity.Notes != event.Notes || activity.Duration != event.Duration {
		t.Fatalf("fields not copied %#v", activity)
	}
}

func TestDuplicateEventError(t *testing.T) {
	err := error(&DuplicateEventError{Timestamp: time.Date(2024, 12, 18, 8, 30, 0, 0, time.UTC)})
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Fatal("expected errors.Is(ErrDuplicateEvent)")
	}
	want := "Activity not logged because another one already exists with timestamp 2024-12-18T08:30:00Z."
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestParseScope(t *testing.T) {
	for raw, want := range map[string]Scope{"clients": ScopeClients, "Projects": ScopeProjects, " TASKS ": ScopeTasks} {
		got, err := ParseScope(raw)
		if err != nil {
			t.Fatalf("ParseScope(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseScope(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseScope("teams"); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
	if got := strings.Join(ScopeNames(), ","); got != "clients,projects,tasks" {
		t.Fatalf("ScopeNames() = %q", got)
	}
}

func TestReplayRangeContains(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	r := ReplayBetween(from, to)
	if !r.Contains(from) {
		t.Fatal("expected inclusive lower bound")
	}
	if r.Contains(to) {
		t.Fatal("expected exclusive upper bound")
	}
	if !ReplayFrom(from).Contains(to.Add(1000 * time.Hour)) {
		t.Fatal("expected unbounded upper side")
	}
	if !ReplayAll().Contains(time.Time{}) {
		t.Fatal("expected unbounded range to contain everything")
	}
}
