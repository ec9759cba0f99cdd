package memory

import (
	"context"
	"iter"
	"slices"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/app"
	"github.com/hylla/timelog/internal/domain"
)

var (
	_ app.EventStore        = (*Store)(nil)
	_ app.HolidayRepository = (*Store)(nil)
)

// Store is a process-local event log and holiday table for tests and throwaway sessions.
type Store struct {
	mu       sync.RWMutex
	events   []domain.ActivityLogged
	holidays map[civil.Date]domain.Holiday
}

// NewStore seeds the store with events, ignoring later duplicates of a timestamp.
func NewStore(seed ...domain.ActivityLogged) *Store {
	s := &Store{holidays: map[civil.Date]domain.Holiday{}}
	for _, event := range seed {
		if s.indexOf(event) < 0 {
			s.events = append(s.events, event)
		}
	}
	return s
}

// Record appends one event. A second event at the same timestamp returns *domain.DuplicateEventError.
func (s *Store) Record(ctx context.Context, event domain.ActivityLogged) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(event) >= 0 {
		return &domain.DuplicateEventError{Timestamp: event.Timestamp}
	}
	s.events = append(s.events, event)
	return nil
}

// Replay yields a copy of the events inside rng in timestamp order.
func (s *Store) Replay(ctx context.Context, rng domain.ReplayRange) iter.Seq2[domain.ActivityLogged, error] {
	return func(yield func(domain.ActivityLogged, error) bool) {
		s.mu.RLock()
		cloned := make([]domain.ActivityLogged, 0, len(s.events))
		for _, event := range s.events {
			if rng.Contains(event.Timestamp) {
				cloned = append(cloned, event)
			}
		}
		s.mu.RUnlock()

		slices.SortStableFunc(cloned, func(a, b domain.ActivityLogged) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		for _, event := range cloned {
			if err := ctx.Err(); err != nil {
				yield(domain.ActivityLogged{}, err)
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

// FindAllByDate returns holidays in [startInclusive, endExclusive) ordered by date.
func (s *Store) FindAllByDate(_ context.Context, startInclusive, endExclusive civil.Date) ([]domain.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Holiday, 0)
	for date, holiday := range s.holidays {
		if !date.Before(startInclusive) && date.Before(endExclusive) {
			out = append(out, holiday)
		}
	}
	slices.SortFunc(out, func(a, b domain.Holiday) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

// SaveHolidays upserts holidays by date.
func (s *Store) SaveHolidays(_ context.Context, holidays []domain.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, holiday := range holidays {
		s.holidays[holiday.Date] = holiday
	}
	return nil
}

// indexOf returns the position of the event sharing event's timestamp, or -1.
func (s *Store) indexOf(event domain.ActivityLogged) int {
	return slices.IndexFunc(s.events, func(existing domain.ActivityLogged) bool {
		return existing.Timestamp.Equal(event.Timestamp)
	})
}
