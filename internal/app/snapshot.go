package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "timelog.snapshot.v1"

// Snapshot is a portable JSON dump of the event log and holidays.
type Snapshot struct {
	Version    string            `json:"version"`
	ID         string            `json:"id,omitempty"`
	ExportedAt time.Time         `json:"exported_at"`
	Events     []SnapshotEvent   `json:"events"`
	Holidays   []SnapshotHoliday `json:"holidays,omitempty"`
}

// SnapshotEvent represents one recorded activity in a snapshot.
type SnapshotEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Duration  string    `json:"duration"`
	Client    string    `json:"client"`
	Project   string    `json:"project"`
	Task      string    `json:"task"`
	Notes     string    `json:"notes,omitempty"`
}

// SnapshotHoliday represents one holiday in a snapshot.
type SnapshotHoliday struct {
	Date  civil.Date `json:"date"`
	Title string     `json:"title"`
}

// ImportSummary reports what an import changed.
type ImportSummary struct {
	Recorded   int `json:"recorded"`
	Duplicates int `json:"duplicates"`
	Holidays   int `json:"holidays"`
}

// ExportSnapshot replays the whole log into a snapshot.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	if s.store == nil {
		return Snapshot{}, ErrStoreNotConfigured
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ID:         s.idGen(),
		ExportedAt: s.clock().UTC(),
		Events:     make([]SnapshotEvent, 0),
	}
	for event, err := range s.store.Replay(ctx, domain.ReplayAll()) {
		if err != nil {
			s.logger.Error("export snapshot failed", "err", err)
			return Snapshot{}, fmt.Errorf("export snapshot: %w", err)
		}
		snap.Events = append(snap.Events, snapshotEventFromDomain(event))
	}

	if s.holidays != nil {
		holidays, err := s.holidays.FindAllByDate(ctx, civil.Date{Year: 1, Month: time.January, Day: 1}, civil.Date{Year: 9999, Month: time.December, Day: 31})
		if err != nil {
			s.logger.Error("export snapshot holidays failed", "err", err)
			return Snapshot{}, fmt.Errorf("export snapshot holidays: %w", err)
		}
		for _, holiday := range holidays {
			snap.Holidays = append(snap.Holidays, SnapshotHoliday{Date: holiday.Date, Title: holiday.Title})
		}
	}

	snap.sort()
	return snap, nil
}

// ImportSnapshot appends every snapshot event. Events already present are counted as duplicates and left untouched.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) (ImportSummary, error) {
	if s.store == nil {
		return ImportSummary{}, ErrStoreNotConfigured
	}
	if err := snap.Validate(); err != nil {
		return ImportSummary{}, err
	}
	snap.sort()

	var summary ImportSummary
	for i, in := range snap.Events {
		event, err := in.toDomain()
		if err != nil {
			return summary, fmt.Errorf("events[%d]: %w", i, err)
		}
		if err := s.store.Record(ctx, event); err != nil {
			if errors.Is(err, domain.ErrDuplicateEvent) {
				summary.Duplicates++
				continue
			}
			s.logger.Error("import snapshot failed", "timestamp", event.Timestamp, "err", err)
			return summary, fmt.Errorf("import snapshot: %w", err)
		}
		summary.Recorded++
	}

	if len(snap.Holidays) > 0 {
		holidays := make([]domain.Holiday, 0, len(snap.Holidays))
		for _, h := range snap.Holidays {
			holidays = append(holidays, domain.Holiday{Date: h.Date, Title: h.Title})
		}
		if err := s.SaveHolidays(ctx, holidays); err != nil {
			return summary, err
		}
		summary.Holidays = len(holidays)
	}
	return summary, nil
}

// Validate validates the requested operation.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}
	for i, event := range s.Events {
		if event.Timestamp.IsZero() {
			return fmt.Errorf("events[%d].timestamp is required", i)
		}
		if strings.TrimSpace(event.Duration) == "" {
			return fmt.Errorf("events[%d].duration is required", i)
		}
	}
	seenHoliday := map[civil.Date]struct{}{}
	for i, holiday := range s.Holidays {
		if !holiday.Date.IsValid() {
			return fmt.Errorf("holidays[%d].date is invalid", i)
		}
		if _, ok := seenHoliday[holiday.Date]; ok {
			return fmt.Errorf("duplicate holiday date: %s", holiday.Date)
		}
		seenHoliday[holiday.Date] = struct{}{}
	}
	return nil
}

// sort orders events by timestamp and holidays by date.
func (s *Snapshot) sort() {
	slices.SortStableFunc(s.Events, func(a, b SnapshotEvent) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	slices.SortFunc(s.Holidays, func(a, b SnapshotHoliday) int {
		return compareDates(a.Date, b.Date)
	})
}

func snapshotEventFromDomain(event domain.ActivityLogged) SnapshotEvent {
	return SnapshotEvent{
		Timestamp: event.Timestamp.UTC(),
		Duration:  domain.FormatDuration(event.Duration),
		Client:    event.Client,
		Project:   event.Project,
		Task:      event.Task,
		Notes:     event.Notes,
	}
}

func (e SnapshotEvent) toDomain() (domain.ActivityLogged, error) {
	duration, err := domain.ParseDuration(e.Duration)
	if err != nil {
		return domain.ActivityLogged{}, err
	}
	return domain.NewActivityLogged(e.Timestamp, duration, e.Client, e.Project, e.Task, e.Notes)
}
