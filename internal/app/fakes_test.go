package app

import (
	"context"
	"iter"
	"testing"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/domain"
)

// fakeStore is a slice-backed event store with optional failure injection.
type fakeStore struct {
	events    []domain.ActivityLogged
	unique    bool
	recordErr error
	replayErr error
	lastRange domain.ReplayRange
	released  int
}

// Record appends one event, rejecting duplicate timestamps when unique is set.
func (f *fakeStore) Record(_ context.Context, event domain.ActivityLogged) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	if f.unique {
		for _, existing := range f.events {
			if existing.Timestamp.Equal(event.Timestamp) {
				return &domain.DuplicateEventError{Timestamp: event.Timestamp}
			}
		}
	}
	f.events = append(f.events, event)
	return nil
}

// Replay yields stored events inside r and counts iterator exits.
func (f *fakeStore) Replay(ctx context.Context, r domain.ReplayRange) iter.Seq2[domain.ActivityLogged, error] {
	f.lastRange = r
	return func(yield func(domain.ActivityLogged, error) bool) {
		defer func() { f.released++ }()
		for _, event := range f.events {
			if err := ctx.Err(); err != nil {
				yield(domain.ActivityLogged{}, err)
				return
			}
			if !r.Contains(event.Timestamp) {
				continue
			}
			if !yield(event, nil) {
				return
			}
		}
		if f.replayErr != nil {
			yield(domain.ActivityLogged{}, f.replayErr)
		}
	}
}

// fakeHolidays is an in-memory holiday repository.
type fakeHolidays struct {
	holidays []domain.Holiday
	findErr  error
}

// FindAllByDate returns holidays in [start, end).
func (f *fakeHolidays) FindAllByDate(_ context.Context, start, end civil.Date) ([]domain.Holiday, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := []domain.Holiday{}
	for _, h := range f.holidays {
		if !h.Date.Before(start) && h.Date.Before(end) {
			out = append(out, h)
		}
	}
	return out, nil
}

// SaveHolidays appends holidays.
func (f *fakeHolidays) SaveHolidays(_ context.Context, holidays []domain.Holiday) error {
	f.holidays = append(f.holidays, holidays...)
	return nil
}

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	return loc
}

func fixedClock(raw string) Clock {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

func day(t *testing.T, raw string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(raw)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", raw, err)
	}
	return d
}

func event(t *testing.T, ts string, duration time.Duration, client, project, task string) domain.ActivityLogged {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", ts, err)
	}
	out, err := domain.NewActivityLogged(parsed, duration, client, project, task, "")
	if err != nil {
		t.Fatalf("NewActivityLogged() error = %v", err)
	}
	return out
}

// seq turns a slice into a replay sequence.
func seq(events ...domain.ActivityLogged) iter.Seq2[domain.ActivityLogged, error] {
	return func(yield func(domain.ActivityLogged, error) bool) {
		for _, e := range events {
			if !yield(e, nil) {
				return
			}
		}
	}
}
