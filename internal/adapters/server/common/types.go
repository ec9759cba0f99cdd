// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
)

// LocalDateTimeLayout formats zone-local date-times without an offset.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

// ErrInvalidRequest reports malformed or rejected transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrServiceUnavailable reports a missing backing service.
var ErrServiceUnavailable = errors.New("activities service unavailable")

// ActivitiesService is the transport-facing surface shared by HTTP and MCP adapters.
type ActivitiesService interface {
	LogActivity(context.Context, LogActivityRequest) (LogActivityResponse, error)
	RecentActivities(context.Context, RecentActivitiesRequest) (RecentActivitiesResponse, error)
	Timesheet(context.Context, TimesheetRequest) (TimesheetResponse, error)
	Report(context.Context, ReportRequest) (ReportResponse, error)
}

// LogActivityRequest carries one activity to append. Timestamp is RFC 3339; Duration is ISO-8601.
type LogActivityRequest struct {
	Timestamp string `json:"timestamp"`
	Duration  string `json:"duration"`
	Client    string `json:"client"`
	Project   string `json:"project"`
	Task      string `json:"task"`
	Notes     string `json:"notes,omitempty"`
}

// LogActivityResponse reports whether the activity was recorded.
type LogActivityResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// RecentActivitiesRequest selects the recent view. Both fields are optional.
type RecentActivitiesRequest struct {
	Today    string
	TimeZone string
}

// Activity is one activity rendered in the query zone.
type Activity struct {
	DateTime string `json:"dateTime"`
	Duration string `json:"duration"`
	Client   string `json:"client"`
	Project  string `json:"project"`
	Task     string `json:"task"`
	Notes    string `json:"notes,omitempty"`
}

// WorkingDay groups activities of one local date, newest first.
type WorkingDay struct {
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
}

// TimeSummary holds the four rolling counters of the recent view.
type TimeSummary struct {
	HoursToday     string `json:"hoursToday"`
	HoursYesterday string `json:"hoursYesterday"`
	HoursThisWeek  string `json:"hoursThisWeek"`
	HoursThisMonth string `json:"hoursThisMonth"`
}

// RecentActivitiesResponse is the wire shape of the recent view.
type RecentActivitiesResponse struct {
	LastActivity *Activity    `json:"lastActivity,omitempty"`
	WorkingDays  []WorkingDay `json:"workingDays"`
	TimeSummary  TimeSummary  `json:"timeSummary"`
	TimeZone     string       `json:"timeZone"`
}

// TimesheetRequest selects an inclusive date range. From and To are required.
type TimesheetRequest struct {
	From     string
	To       string
	TimeZone string
}

// TimesheetEntry is one timesheet row.
type TimesheetEntry struct {
	Date    string `json:"date"`
	Client  string `json:"client"`
	Project string `json:"project"`
	Task    string `json:"task"`
	Hours   string `json:"hours"`
}

// WorkingHoursSummary holds timesheet totals.
type WorkingHoursSummary struct {
	TotalHours string `json:"totalHours"`
	Capacity   string `json:"capacity"`
	Offset     string `json:"offset"`
}

// TimesheetResponse is the wire shape of a timesheet.
type TimesheetResponse struct {
	Entries             []TimesheetEntry    `json:"entries"`
	WorkingHoursSummary WorkingHoursSummary `json:"workingHoursSummary"`
}

// ReportRequest selects a scope and inclusive date range. All but TimeZone are required.
type ReportRequest struct {
	Scope    string
	From     string
	To       string
	TimeZone string
}

// ReportEntry is one report row. Client is only set for project reports.
type ReportEntry struct {
	Name   string `json:"name"`
	Client string `json:"client,omitempty"`
	Hours  string `json:"hours"`
}

// ReportResponse is the wire shape of a report.
type ReportResponse struct {
	Entries    []ReportEntry `json:"entries"`
	TotalHours string        `json:"totalHours"`
}
