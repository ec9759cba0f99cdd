package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/app"
	"github.com/hylla/timelog/internal/domain"
)

var _ ActivitiesService = (*AppServiceAdapter)(nil)

// AppServiceAdapter maps transport contracts onto app.Service commands and queries.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// LogActivity parses and appends one activity.
func (a *AppServiceAdapter) LogActivity(ctx context.Context, in LogActivityRequest) (LogActivityResponse, error) {
	if a == nil || a.service == nil {
		return LogActivityResponse{}, ErrServiceUnavailable
	}
	timestamp, err := parseTimestamp(in.Timestamp)
	if err != nil {
		return LogActivityResponse{}, err
	}
	duration, err := parseDuration(in.Duration)
	if err != nil {
		return LogActivityResponse{}, err
	}

	status, err := a.service.LogActivity(ctx, app.LogActivityCommand{
		Timestamp: timestamp,
		Duration:  duration,
		Client:    in.Client,
		Project:   in.Project,
		Task:      in.Task,
		Notes:     in.Notes,
	})
	if err != nil {
		return LogActivityResponse{}, mapAppError("log activity", err)
	}
	return LogActivityResponse{Success: status.Success, ErrorMessage: status.ErrorMessage}, nil
}

// RecentActivities returns the recent view for the optional today and time zone.
func (a *AppServiceAdapter) RecentActivities(ctx context.Context, in RecentActivitiesRequest) (RecentActivitiesResponse, error) {
	if a == nil || a.service == nil {
		return RecentActivitiesResponse{}, ErrServiceUnavailable
	}
	var (
		today civil.Date
		err   error
	)
	if strings.TrimSpace(in.Today) != "" {
		today, err = parseDate("today", in.Today)
		if err != nil {
			return RecentActivitiesResponse{}, err
		}
	}
	loc, err := parseTimeZone(in.TimeZone)
	if err != nil {
		return RecentActivitiesResponse{}, err
	}

	result, err := a.service.QueryRecentActivities(ctx, app.RecentActivitiesQuery{Today: today, TimeZone: loc})
	if err != nil {
		return RecentActivitiesResponse{}, mapAppError("recent activities", err)
	}
	return MapRecentActivities(result), nil
}

// Timesheet returns timesheet rows and totals for the requested range.
func (a *AppServiceAdapter) Timesheet(ctx context.Context, in TimesheetRequest) (TimesheetResponse, error) {
	if a == nil || a.service == nil {
		return TimesheetResponse{}, ErrServiceUnavailable
	}
	from, to, loc, err := parseRange(in.From, in.To, in.TimeZone)
	if err != nil {
		return TimesheetResponse{}, err
	}

	result, err := a.service.QueryTimesheet(ctx, app.TimesheetQuery{From: from, To: to, TimeZone: loc})
	if err != nil {
		return TimesheetResponse{}, mapAppError("timesheet", err)
	}
	return MapTimesheet(result), nil
}

// Report returns rows aggregated by the requested scope.
func (a *AppServiceAdapter) Report(ctx context.Context, in ReportRequest) (ReportResponse, error) {
	if a == nil || a.service == nil {
		return ReportResponse{}, ErrServiceUnavailable
	}
	if strings.TrimSpace(in.Scope) == "" {
		return ReportResponse{}, fmt.Errorf("scope is required: %w", ErrInvalidRequest)
	}
	scope, err := domain.ParseScope(in.Scope)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("scope %q must be one of %s: %w", in.Scope, strings.Join(domain.ScopeNames(), ", "), errors.Join(ErrInvalidRequest, err))
	}
	from, to, loc, err := parseRange(in.From, in.To, in.TimeZone)
	if err != nil {
		return ReportResponse{}, err
	}

	result, err := a.service.QueryReport(ctx, app.ReportQuery{Scope: scope, From: from, To: to, TimeZone: loc})
	if err != nil {
		return ReportResponse{}, mapAppError("report", err)
	}
	return MapReport(result), nil
}

// MapRecentActivities converts the recent read model into its wire shape.
func MapRecentActivities(result app.RecentActivitiesQueryResult) RecentActivitiesResponse {
	out := RecentActivitiesResponse{
		WorkingDays: make([]WorkingDay, 0, len(result.WorkingDays)),
		TimeSummary: TimeSummary{
			HoursToday:     domain.FormatDuration(result.TimeSummary.HoursToday),
			HoursYesterday: domain.FormatDuration(result.TimeSummary.HoursYesterday),
			HoursThisWeek:  domain.FormatDuration(result.TimeSummary.HoursThisWeek),
			HoursThisMonth: domain.FormatDuration(result.TimeSummary.HoursThisMonth),
		},
	}
	if result.TimeZone != nil {
		out.TimeZone = result.TimeZone.String()
	}
	if result.LastActivity != nil {
		last := mapActivity(*result.LastActivity)
		out.LastActivity = &last
	}
	for _, day := range result.WorkingDays {
		activities := make([]Activity, 0, len(day.Activities))
		for _, activity := range day.Activities {
			activities = append(activities, mapActivity(activity))
		}
		out.WorkingDays = append(out.WorkingDays, WorkingDay{Date: day.Date.String(), Activities: activities})
	}
	return out
}

// MapTimesheet converts the timesheet read model into its wire shape.
func MapTimesheet(result app.TimesheetQueryResult) TimesheetResponse {
	out := TimesheetResponse{
		Entries: make([]TimesheetEntry, 0, len(result.Entries)),
		WorkingHoursSummary: WorkingHoursSummary{
			TotalHours: domain.FormatDuration(result.WorkingHoursSummary.TotalHours),
			Capacity:   domain.FormatDuration(result.WorkingHoursSummary.Capacity),
			Offset:     domain.FormatDuration(result.WorkingHoursSummary.Offset),
		},
	}
	for _, entry := range result.Entries {
		out.Entries = append(out.Entries, TimesheetEntry{
			Date:    entry.Date.String(),
			Client:  entry.Client,
			Project: entry.Project,
			Task:    entry.Task,
			Hours:   domain.FormatDuration(entry.Hours),
		})
	}
	return out
}

// MapReport converts the report read model into its wire shape.
func MapReport(result app.ReportQueryResult) ReportResponse {
	out := ReportResponse{
		Entries:    make([]ReportEntry, 0, len(result.Entries)),
		TotalHours: domain.FormatDuration(result.TotalHours),
	}
	for _, entry := range result.Entries {
		out.Entries = append(out.Entries, ReportEntry{
			Name:   entry.Name,
			Client: entry.Client,
			Hours:  domain.FormatDuration(entry.Hours),
		})
	}
	return out
}

func mapActivity(activity domain.Activity) Activity {
	return Activity{
		DateTime: activity.DateTime.Format(LocalDateTimeLayout),
		Duration: domain.FormatDuration(activity.Duration),
		Client:   activity.Client,
		Project:  activity.Project,
		Task:     activity.Task,
		Notes:    activity.Notes,
	}
}

// parseRange parses the required from/to dates and the optional zone.
func parseRange(rawFrom, rawTo, rawZone string) (civil.Date, civil.Date, *time.Location, error) {
	from, err := parseDate("from", rawFrom)
	if err != nil {
		return civil.Date{}, civil.Date{}, nil, err
	}
	to, err := parseDate("to", rawTo)
	if err != nil {
		return civil.Date{}, civil.Date{}, nil, err
	}
	loc, err := parseTimeZone(rawZone)
	if err != nil {
		return civil.Date{}, civil.Date{}, nil, err
	}
	return from, to, loc, nil
}

// parseDate parses one required YYYY-MM-DD value.
func parseDate(field, raw string) (civil.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return civil.Date{}, fmt.Errorf("%s is required: %w", field, ErrInvalidRequest)
	}
	d, err := civil.ParseDate(raw)
	if err != nil || !d.IsValid() {
		return civil.Date{}, fmt.Errorf("%s %q must be YYYY-MM-DD: %w", field, raw, errors.Join(ErrInvalidRequest, domain.ErrInvalidDate))
	}
	return d, nil
}

// parseTimeZone resolves an optional IANA zone; empty returns nil so the service default applies.
func parseTimeZone(raw string) (*time.Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		return nil, fmt.Errorf("timeZone %q is not a known IANA zone: %w", raw, errors.Join(ErrInvalidRequest, domain.ErrInvalidTimeZone))
	}
	return loc, nil
}

// parseTimestamp parses one required RFC 3339 instant.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("timestamp is required: %w", errors.Join(ErrInvalidRequest, domain.ErrInvalidTimestamp))
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q must be RFC 3339: %w", raw, errors.Join(ErrInvalidRequest, domain.ErrInvalidTimestamp))
	}
	return ts, nil
}

// parseDuration parses one required ISO-8601 duration.
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("duration is required: %w", errors.Join(ErrInvalidRequest, domain.ErrInvalidDuration))
	}
	d, err := domain.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("duration: %w", errors.Join(ErrInvalidRequest, err))
	}
	return d, nil
}

// mapAppError maps app and domain failures onto transport sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	case errors.Is(err, app.ErrStoreNotConfigured):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrServiceUnavailable, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
