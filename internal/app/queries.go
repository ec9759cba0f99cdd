package app

import (
	"context"
	"iter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/domain"
)

// LogActivityCommand holds input values for one activity append.
type LogActivityCommand struct {
	Timestamp time.Time
	Duration  time.Duration
	Client    string
	Project   string
	Task      string
	Notes     string
}

// CommandStatus reports whether a command was applied.
type CommandStatus struct {
	Success      bool
	ErrorMessage string
}

// CommandSucceeded returns a successful status.
func CommandSucceeded() CommandStatus {
	return CommandStatus{Success: true}
}

// CommandFailed returns a failed status carrying a human-readable message.
func CommandFailed(message string) CommandStatus {
	return CommandStatus{Success: false, ErrorMessage: message}
}

// RecentActivitiesQuery selects the rolling recent-activities view.
// A zero Today resolves to the current date in the query zone; a nil TimeZone uses the service default.
type RecentActivitiesQuery struct {
	Today    civil.Date
	TimeZone *time.Location
}

// RecentActivitiesQueryResult is the recent-activities read model.
type RecentActivitiesQueryResult struct {
	LastActivity *domain.Activity
	WorkingDays  []domain.WorkingDay
	TimeSummary  domain.TimeSummary
	TimeZone     *time.Location
}

// TimesheetQuery selects the inclusive local date range [From, To].
type TimesheetQuery struct {
	From     civil.Date
	To       civil.Date
	TimeZone *time.Location
}

// TimesheetQueryResult is the timesheet read model.
type TimesheetQueryResult struct {
	Entries             []domain.TimesheetEntry
	WorkingHoursSummary domain.WorkingHoursSummary
}

// ReportQuery selects the report scope and inclusive local date range [From, To].
type ReportQuery struct {
	Scope    domain.Scope
	From     civil.Date
	To       civil.Date
	TimeZone *time.Location
}

// ReportQueryResult is the report read model.
type ReportQueryResult struct {
	Entries    []domain.ReportEntry
	TotalHours time.Duration
}

// projection folds one bounded replay into a read model.
type projection[R any] interface {
	ReplayRange() domain.ReplayRange
	Project(iter.Seq2[domain.ActivityLogged, error]) (R, error)
}

// runProjection replays the projection's window from store and folds it.
func runProjection[R any](ctx context.Context, store EventStore, p projection[R]) (R, error) {
	return p.Project(store.Replay(ctx, p.ReplayRange()))
}

// dayWindow converts the inclusive local date range [from, to] into instants [from 00:00, to+1 00:00).
func dayWindow(from, to civil.Date, loc *time.Location) domain.ReplayRange {
	return domain.ReplayBetween(from.In(loc), to.AddDays(1).In(loc))
}
