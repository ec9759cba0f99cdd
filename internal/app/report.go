package app

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/domain"
)

// ReportProjection folds a date range into rows grouped by client, project, or task.
type ReportProjection struct {
	scope domain.Scope
	from  civil.Date
	to    civil.Date
	loc   *time.Location
}

// NewReportProjection constructs a projection over [from, to] grouped by scope.
func NewReportProjection(scope domain.Scope, from, to civil.Date, loc *time.Location) ReportProjection {
	if loc == nil {
		loc = time.Local
	}
	return ReportProjection{scope: scope, from: from, to: to, loc: loc}
}

// ReplayRange covers local midnight of from up to local midnight after to.
func (p ReportProjection) ReplayRange() domain.ReplayRange {
	return dayWindow(p.from, p.to, p.loc)
}

// Project consumes events and builds the report read model.
func (p ReportProjection) Project(events iter.Seq2[domain.ActivityLogged, error]) (ReportQueryResult, error) {
	if !p.scope.Valid() {
		return ReportQueryResult{}, fmt.Errorf("%w: %q", ErrUnknownScope, p.scope)
	}

	entries := make([]domain.ReportEntry, 0)
	index := map[string]int{}
	var total time.Duration
	for event, err := range events {
		if err != nil {
			return ReportQueryResult{}, err
		}
		activity := domain.MapActivity(event, p.loc)
		name := p.keyOf(activity)
		i, ok := index[name]
		if !ok {
			entry := domain.ReportEntry{Name: name}
			if p.scope == domain.ScopeProjects {
				entry.Client = activity.Client
			}
			index[name] = len(entries)
			entries = append(entries, entry)
			i = len(entries) - 1
		} else if p.scope == domain.ScopeProjects && !strings.Contains(entries[i].Client, activity.Client) {
			// Substring containment: a client whose name is contained in an earlier one is not re-appended.
			entries[i].Client += ", " + activity.Client
		}
		entries[i].Hours += activity.Duration
		total += activity.Duration
	}

	slices.SortStableFunc(entries, func(a, b domain.ReportEntry) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return ReportQueryResult{Entries: entries, TotalHours: total}, nil
}

// keyOf returns the grouping key of activity for the projection scope.
func (p ReportProjection) keyOf(activity domain.Activity) string {
	switch p.scope {
	case domain.ScopeClients:
		return activity.Client
	case domain.ScopeProjects:
		return activity.Project
	default:
		return activity.Task
	}
}
