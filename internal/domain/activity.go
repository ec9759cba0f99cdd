package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ActivityLogged is the immutable log record appended to the event store.
type ActivityLogged struct {
	Timestamp time.Time
	Duration  time.Duration
	Client    string
	Project   string
	Task      string
	Notes     string
}

// NewActivityLogged validates and normalizes one event. Timestamps and durations are kept at second precision.
// Blank notes are dropped; other notes are kept as given.
func NewActivityLogged(timestamp time.Time, duration time.Duration, client, project, task, notes string) (ActivityLogged, error) {
	if timestamp.IsZero() {
		return ActivityLogged{}, ErrInvalidTimestamp
	}
	duration = duration.Truncate(time.Second)
	if duration <= 0 {
		return ActivityLogged{}, ErrInvalidDuration
	}
	client = strings.TrimSpace(client)
	if client == "" {
		return ActivityLogged{}, ErrInvalidClient
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ActivityLogged{}, ErrInvalidProject
	}
	task = strings.TrimSpace(task)
	if task == "" {
		return ActivityLogged{}, ErrInvalidTask
	}
	if strings.TrimSpace(notes) == "" {
		notes = ""
	}

	return ActivityLogged{
		Timestamp: timestamp.UTC().Truncate(time.Second),
		Duration:  duration,
		Client:    client,
		Project:   project,
		Task:      task,
		Notes:     notes,
	}, nil
}

// Activity is an event resolved into one time zone. It is never stored.
type Activity struct {
	DateTime time.Time
	Duration time.Duration
	Client   string
	Project  string
	Task     string
	Notes    string
}

// Date returns the local calendar date of the activity.
func (a Activity) Date() civil.Date {
	return civil.DateOf(a.DateTime)
}

// MapActivity converts one stored event into its local view in loc.
func MapActivity(event ActivityLogged, loc *time.Location) Activity {
	if loc == nil {
		loc = time.Local
	}
	return Activity{
		DateTime: event.Timestamp.In(loc),
		Duration: event.Duration,
		Client:   event.Client,
		Project:  event.Project,
		Task:     event.Task,
		Notes:    event.Notes,
	}
}

// WorkingDay groups the activities of one local date, most recent first.
type WorkingDay struct {
	Date       civil.Date
	Activities []Activity
}

// TimeSummary holds the four recent-activity counters.
type TimeSummary struct {
	HoursToday     time.Duration
	HoursYesterday time.Duration
	HoursThisWeek  time.Duration
	HoursThisMonth time.Duration
}

// TimesheetEntry aggregates hours for one (date, client, project, task) tuple.
type TimesheetEntry struct {
	Date    civil.Date
	Client  string
	Project string
	Task    string
	Hours   time.Duration
}

// WorkingHoursSummary reports recorded hours against capacity.
type WorkingHoursSummary struct {
	TotalHours time.Duration
	Capacity   time.Duration
	Offset     time.Duration
}

// ReportEntry aggregates hours for one client, project, or task name.
// Client is only set for project scope and lists every client seen for the project.
type ReportEntry struct {
	Name   string
	Client string
	Hours  time.Duration
}
