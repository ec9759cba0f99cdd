package app

import (
	"iter"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/domain"
)

// recentActivitiesWindowDays bounds how far back the recent view replays.
const recentActivitiesWindowDays = 30

// RecentActivitiesProjection folds the last 30 days into working days and a time summary.
type RecentActivitiesProjection struct {
	today civil.Date
	loc   *time.Location
}

// NewRecentActivitiesProjection constructs a projection anchored at today in loc.
func NewRecentActivitiesProjection(today civil.Date, loc *time.Location) RecentActivitiesProjection {
	if loc == nil {
		loc = time.Local
	}
	return RecentActivitiesProjection{today: today, loc: loc}
}

// ReplayRange starts at local midnight 30 days before today and is open-ended.
func (p RecentActivitiesProjection) ReplayRange() domain.ReplayRange {
	return domain.ReplayFrom(p.today.AddDays(-recentActivitiesWindowDays).In(p.loc))
}

// Project consumes events and builds the recent-activities read model.
func (p RecentActivitiesProjection) Project(events iter.Seq2[domain.ActivityLogged, error]) (RecentActivitiesQueryResult, error) {
	collected := make([]domain.ActivityLogged, 0)
	for event, err := range events {
		if err != nil {
			return RecentActivitiesQueryResult{}, err
		}
		collected = append(collected, event)
	}
	slices.SortStableFunc(collected, func(a, b domain.ActivityLogged) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	yesterday := p.today.AddDays(-1)
	weekStart := domain.StartOfWeek(p.today)
	weekEnd := weekStart.AddDays(6)
	monthStart := domain.StartOfMonth(p.today)
	nextMonthStart := domain.StartOfNextMonth(p.today)

	result := RecentActivitiesQueryResult{
		WorkingDays: []domain.WorkingDay{},
		TimeZone:    p.loc,
	}
	for _, event := range collected {
		activity := domain.MapActivity(event, p.loc)
		day := activity.Date()

		last := len(result.WorkingDays) - 1
		if last < 0 || result.WorkingDays[last].Date != day {
			result.WorkingDays = append(result.WorkingDays, domain.WorkingDay{Date: day})
			last++
		}
		result.WorkingDays[last].Activities = append(result.WorkingDays[last].Activities, activity)

		if day == p.today {
			result.TimeSummary.HoursToday += activity.Duration
		}
		if day == yesterday {
			result.TimeSummary.HoursYesterday += activity.Duration
		}
		if domain.Between(day, weekStart, weekEnd) {
			result.TimeSummary.HoursThisWeek += activity.Duration
		}
		if !day.Before(monthStart) && day.Before(nextMonthStart) {
			result.TimeSummary.HoursThisMonth += activity.Duration
		}
	}

	if len(result.WorkingDays) > 0 {
		lastActivity := result.WorkingDays[0].Activities[0]
		result.LastActivity = &lastActivity
	}
	return result, nil
}
