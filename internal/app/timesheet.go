package app

import (
	"cmp"
	"iter"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/domain"
)

// DefaultCapacityPerWeek is the nominal weekly workload.
const DefaultCapacityPerWeek = 40 * time.Hour

// TimesheetProjectionInput holds the values one timesheet run depends on.
type TimesheetProjectionInput struct {
	From            civil.Date
	To              civil.Date
	Today           civil.Date
	TimeZone        *time.Location
	CapacityPerWeek time.Duration
	Calendar        domain.Calendar
}

// TimesheetProjection folds a date range into per-day rows plus capacity accounting.
type TimesheetProjection struct {
	in TimesheetProjectionInput
}

// timesheetKey identifies one timesheet row.
type timesheetKey struct {
	date    civil.Date
	client  string
	project string
	task    string
}

// NewTimesheetProjection constructs a projection over [in.From, in.To].
func NewTimesheetProjection(in TimesheetProjectionInput) TimesheetProjection {
	if in.TimeZone == nil {
		in.TimeZone = time.Local
	}
	if in.CapacityPerWeek <= 0 {
		in.CapacityPerWeek = DefaultCapacityPerWeek
	}
	return TimesheetProjection{in: in}
}

// ReplayRange covers local midnight of From up to local midnight after To.
func (p TimesheetProjection) ReplayRange() domain.ReplayRange {
	return dayWindow(p.in.From, p.in.To, p.in.TimeZone)
}

// Project consumes events and builds the timesheet read model.
func (p TimesheetProjection) Project(events iter.Seq2[domain.ActivityLogged, error]) (TimesheetQueryResult, error) {
	entries := make([]domain.TimesheetEntry, 0)
	index := map[timesheetKey]int{}
	var total time.Duration
	for event, err := range events {
		if err != nil {
			return TimesheetQueryResult{}, err
		}
		activity := domain.MapActivity(event, p.in.TimeZone)
		key := timesheetKey{
			date:    activity.Date(),
			client:  activity.Client,
			project: activity.Project,
			task:    activity.Task,
		}
		if i, ok := index[key]; ok {
			entries[i].Hours += activity.Duration
		} else {
			index[key] = len(entries)
			entries = append(entries, domain.TimesheetEntry{
				Date:    key.date,
				Client:  key.client,
				Project: key.project,
				Task:    key.task,
				Hours:   activity.Duration,
			})
		}
		total += activity.Duration
	}

	slices.SortFunc(entries, func(a, b domain.TimesheetEntry) int {
		return cmp.Or(
			compareDates(a.Date, b.Date),
			cmp.Compare(a.Client, b.Client),
			cmp.Compare(a.Project, b.Project),
			cmp.Compare(a.Task, b.Task),
		)
	})

	return TimesheetQueryResult{
		Entries: entries,
		WorkingHoursSummary: domain.WorkingHoursSummary{
			TotalHours: total,
			Capacity:   p.capacity(),
			Offset:     total - time.Duration(p.elapsedBusinessDays())*domain.NominalWorkingDay,
		},
	}, nil
}

// capacity pro-rates weekly capacity over the business days of the whole range.
func (p TimesheetProjection) capacity() time.Duration {
	businessDays := p.in.Calendar.CountBusinessDays(p.in.From, p.in.To.AddDays(1))
	return time.Duration(businessDays) * p.in.CapacityPerWeek / domain.BusinessDaysPerWeek
}

// elapsedBusinessDays counts business days from From up to and including today, clamped to the range.
func (p TimesheetProjection) elapsedBusinessDays() int {
	return p.in.Calendar.CountBusinessDays(p.in.From, p.endForOffset())
}

// endForOffset returns the exclusive end date used for the offset baseline.
func (p TimesheetProjection) endForOffset() civil.Date {
	endExclusive := p.in.To.AddDays(1)
	tomorrow := p.in.Today.AddDays(1)
	switch {
	case p.in.Today.Before(p.in.From):
		return p.in.From
	case tomorrow.After(endExclusive):
		return endExclusive
	default:
		return tomorrow
	}
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
