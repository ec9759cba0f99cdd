package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/civil"
	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/timelog/internal/domain"
)

// Logger is the structured logging surface the service reports failures through.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	CapacityPerWeek time.Duration
	DefaultTimeZone *time.Location
	Logger          Logger
}

// IDGenerator returns unique identifiers for exported snapshots.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service orchestrates activity commands and projection queries.
type Service struct {
	store           EventStore
	holidays        HolidayRepository
	idGen           IDGenerator
	clock           Clock
	capacityPerWeek time.Duration
	defaultZone     *time.Location
	logger          Logger
}

// NewService constructs a new value for this package. A nil holiday repository means no holidays.
func NewService(store EventStore, holidays HolidayRepository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.CapacityPerWeek <= 0 {
		cfg.CapacityPerWeek = DefaultCapacityPerWeek
	}
	if cfg.DefaultTimeZone == nil {
		cfg.DefaultTimeZone = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = charmLog.New(io.Discard)
	}
	return &Service{
		store:           store,
		holidays:        holidays,
		idGen:           idGen,
		clock:           clock,
		capacityPerWeek: cfg.CapacityPerWeek,
		defaultZone:     cfg.DefaultTimeZone,
		logger:          cfg.Logger,
	}
}

// LogActivity validates and appends one activity. A duplicate timestamp yields a failed status, not an error.
func (s *Service) LogActivity(ctx context.Context, cmd LogActivityCommand) (CommandStatus, error) {
	if s.store == nil {
		return CommandStatus{}, ErrStoreNotConfigured
	}
	event, err := domain.NewActivityLogged(cmd.Timestamp, cmd.Duration, cmd.Client, cmd.Project, cmd.Task, cmd.Notes)
	if err != nil {
		s.logger.Warn("log activity rejected", "timestamp", cmd.Timestamp, "err", err)
		return CommandStatus{}, err
	}

	if err := s.store.Record(ctx, event); err != nil {
		var duplicate *domain.DuplicateEventError
		if errors.As(err, &duplicate) {
			s.logger.Debug("log activity skipped duplicate", "timestamp", event.Timestamp)
			return CommandFailed(duplicate.Error()), nil
		}
		s.logger.Error("log activity failed", "timestamp", event.Timestamp, "err", err)
		return CommandStatus{}, fmt.Errorf("record activity: %w", err)
	}
	return CommandSucceeded(), nil
}

// QueryRecentActivities returns the last 30 days grouped by working day.
func (s *Service) QueryRecentActivities(ctx context.Context, q RecentActivitiesQuery) (RecentActivitiesQueryResult, error) {
	if s.store == nil {
		return RecentActivitiesQueryResult{}, ErrStoreNotConfigured
	}
	loc := s.zone(q.TimeZone)
	today := q.Today
	if today == (civil.Date{}) {
		today = s.today(loc)
	} else if !today.IsValid() {
		return RecentActivitiesQueryResult{}, domain.ErrInvalidDate
	}

	result, err := runProjection(ctx, s.store, NewRecentActivitiesProjection(today, loc))
	if err != nil {
		s.logger.Error("query recent activities failed", "today", today.String(), "time_zone", loc.String(), "err", err)
		return RecentActivitiesQueryResult{}, fmt.Errorf("query recent activities: %w", err)
	}
	return result, nil
}

// QueryTimesheet returns per-day rows and the working-hours summary for [q.From, q.To].
func (s *Service) QueryTimesheet(ctx context.Context, q TimesheetQuery) (TimesheetQueryResult, error) {
	if s.store == nil {
		return TimesheetQueryResult{}, ErrStoreNotConfigured
	}
	if err := validateDateRange(q.From, q.To); err != nil {
		s.logger.Warn("query timesheet rejected", "from", q.From.String(), "to", q.To.String(), "err", err)
		return TimesheetQueryResult{}, err
	}
	loc := s.zone(q.TimeZone)

	calendar, err := s.calendar(ctx, q.From, q.To.AddDays(1))
	if err != nil {
		s.logger.Error("query timesheet holidays failed", "from", q.From.String(), "to", q.To.String(), "err", err)
		return TimesheetQueryResult{}, fmt.Errorf("query timesheet: %w", err)
	}
	result, err := runProjection(ctx, s.store, NewTimesheetProjection(TimesheetProjectionInput{
		From:            q.From,
		To:              q.To,
		Today:           s.today(loc),
		TimeZone:        loc,
		CapacityPerWeek: s.capacityPerWeek,
		Calendar:        calendar,
	}))
	if err != nil {
		s.logger.Error("query timesheet failed", "from", q.From.String(), "to", q.To.String(), "time_zone", loc.String(), "err", err)
		return TimesheetQueryResult{}, fmt.Errorf("query timesheet: %w", err)
	}
	return result, nil
}

// QueryReport returns rows aggregated by q.Scope for [q.From, q.To].
func (s *Service) QueryReport(ctx context.Context, q ReportQuery) (ReportQueryResult, error) {
	if s.store == nil {
		return ReportQueryResult{}, ErrStoreNotConfigured
	}
	if !q.Scope.Valid() {
		s.logger.Warn("query report rejected", "scope", q.Scope, "err", domain.ErrInvalidScope)
		return ReportQueryResult{}, fmt.Errorf("%w %q", domain.ErrInvalidScope, q.Scope)
	}
	if err := validateDateRange(q.From, q.To); err != nil {
		s.logger.Warn("query report rejected", "from", q.From.String(), "to", q.To.String(), "err", err)
		return ReportQueryResult{}, err
	}
	loc := s.zone(q.TimeZone)

	result, err := runProjection(ctx, s.store, NewReportProjection(q.Scope, q.From, q.To, loc))
	if err != nil {
		s.logger.Error("query report failed", "scope", q.Scope, "from", q.From.String(), "to", q.To.String(), "err", err)
		return ReportQueryResult{}, fmt.Errorf("query report: %w", err)
	}
	return result, nil
}

// ListHolidays returns holidays in [startInclusive, endExclusive).
func (s *Service) ListHolidays(ctx context.Context, startInclusive, endExclusive civil.Date) ([]domain.Holiday, error) {
	if s.holidays == nil {
		return []domain.Holiday{}, nil
	}
	holidays, err := s.holidays.FindAllByDate(ctx, startInclusive, endExclusive)
	if err != nil {
		s.logger.Error("list holidays failed", "from", startInclusive.String(), "to", endExclusive.String(), "err", err)
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// SaveHolidays validates and stores holidays.
func (s *Service) SaveHolidays(ctx context.Context, holidays []domain.Holiday) error {
	if s.holidays == nil {
		return fmt.Errorf("holiday repository is not configured")
	}
	normalized := make([]domain.Holiday, 0, len(holidays))
	for i, holiday := range holidays {
		h, err := domain.NewHoliday(holiday.Date, holiday.Title)
		if err != nil {
			return fmt.Errorf("holidays[%d]: %w", i, err)
		}
		normalized = append(normalized, h)
	}
	if err := s.holidays.SaveHolidays(ctx, normalized); err != nil {
		s.logger.Error("save holidays failed", "count", len(normalized), "err", err)
		return fmt.Errorf("save holidays: %w", err)
	}
	return nil
}

// zone resolves the query zone, falling back to the configured default.
func (s *Service) zone(loc *time.Location) *time.Location {
	if loc != nil {
		return loc
	}
	return s.defaultZone
}

// today returns the current local date in loc.
func (s *Service) today(loc *time.Location) civil.Date {
	return civil.DateOf(s.clock().In(loc))
}

// calendar loads holidays for [startInclusive, endExclusive) into a business calendar.
func (s *Service) calendar(ctx context.Context, startInclusive, endExclusive civil.Date) (domain.Calendar, error) {
	if s.holidays == nil {
		return domain.NewCalendar(nil), nil
	}
	holidays, err := s.holidays.FindAllByDate(ctx, startInclusive, endExclusive)
	if err != nil {
		return domain.Calendar{}, fmt.Errorf("load holidays: %w", err)
	}
	return domain.NewCalendar(holidays), nil
}

// validateDateRange rejects invalid dates and ranges with from after to.
func validateDateRange(from, to civil.Date) error {
	if !from.IsValid() || !to.IsValid() {
		return domain.ErrInvalidDate
	}
	if from.After(to) {
		return fmt.Errorf("%w: from %s is after to %s", domain.ErrInvalidDateRange, from, to)
	}
	return nil
}
