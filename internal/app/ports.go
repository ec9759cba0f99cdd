package app

import (
	"context"
	"iter"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/domain"
)

// EventStore appends activity events and replays them lazily.
//
// Record returns a *domain.DuplicateEventError when the store enforces unique timestamps and the
// timestamp is already taken. Replay yields every event inside the range in a store-defined but
// stable order; the underlying handle is released when the sequence completes, the consumer stops
// early, or an error is yielded.
type EventStore interface {
	Record(context.Context, domain.ActivityLogged) error
	Replay(context.Context, domain.ReplayRange) iter.Seq2[domain.ActivityLogged, error]
}

// HolidayRepository stores named non-working dates.
type HolidayRepository interface {
	FindAllByDate(ctx context.Context, startInclusive, endExclusive civil.Date) ([]domain.Holiday, error)
	SaveHolidays(context.Context, []domain.Holiday) error
}
