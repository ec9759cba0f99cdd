package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	servercommon "github.com/hylla/timelog/internal/adapters/server/common"
	"github.com/hylla/timelog/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// newTable returns a bordered table with the shared header styling.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// writeJSON prints one wire payload as indented JSON.
func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	return nil
}

func renderRecent(w io.Writer, recent servercommon.RecentActivitiesResponse) error {
	var b strings.Builder
	summary := newTable("Today", "Yesterday", "This week", "This month").
		Row(
			recent.TimeSummary.HoursToday,
			recent.TimeSummary.HoursYesterday,
			recent.TimeSummary.HoursThisWeek,
			recent.TimeSummary.HoursThisMonth,
		)
	b.WriteString(titleStyle.Render("Recent activities (" + recent.TimeZone + ")"))
	b.WriteString("\n")
	b.WriteString(summary.String())
	b.WriteString("\n")

	if len(recent.WorkingDays) == 0 {
		b.WriteString(mutedStyle.Render("No activities in the last 30 days."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	for _, day := range recent.WorkingDays {
		rows := newTable("Time", "Duration", "Client", "Project", "Task", "Notes")
		for _, activity := range day.Activities {
			rows.Row(clockTime(activity.DateTime), activity.Duration, activity.Client, activity.Project, activity.Task, activity.Notes)
		}
		b.WriteString("\n")
		b.WriteString(titleStyle.Render(day.Date))
		b.WriteString("\n")
		b.WriteString(rows.String())
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderTimesheet(w io.Writer, timesheet servercommon.TimesheetResponse) error {
	rows := newTable("Date", "Client", "Project", "Task", "Hours")
	for _, entry := range timesheet.Entries {
		rows.Row(entry.Date, entry.Client, entry.Project, entry.Task, entry.Hours)
	}
	summary := newTable("Total", "Capacity", "Offset").Row(
		timesheet.WorkingHoursSummary.TotalHours,
		timesheet.WorkingHoursSummary.Capacity,
		timesheet.WorkingHoursSummary.Offset,
	)
	_, err := fmt.Fprintf(w, "%s\n%s\n", rows.String(), summary.String())
	return err
}

func renderReport(w io.Writer, rawScope string, report servercommon.ReportResponse) error {
	name := "Name"
	scope, err := domain.ParseScope(rawScope)
	if err == nil {
		switch scope {
		case domain.ScopeClients:
			name = "Client"
		case domain.ScopeProjects:
			name = "Project"
		case domain.ScopeTasks:
			name = "Task"
		}
	}
	headers := []string{name, "Hours"}
	if scope == domain.ScopeProjects {
		headers = []string{name, "Client", "Hours"}
	}
	rows := newTable(headers...)
	for _, entry := range report.Entries {
		if scope == domain.ScopeProjects {
			rows.Row(entry.Name, entry.Client, entry.Hours)
			continue
		}
		rows.Row(entry.Name, entry.Hours)
	}
	_, err = fmt.Fprintf(w, "%s\n%s %s\n", rows.String(), titleStyle.Render("Total:"), report.TotalHours)
	return err
}

func renderHolidays(w io.Writer, holidays []domain.Holiday) error {
	if len(holidays) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("No holidays in range."))
		return err
	}
	rows := newTable("Date", "Title")
	for _, holiday := range holidays {
		rows.Row(holiday.Date.String(), holiday.Title)
	}
	_, err := fmt.Fprintln(w, rows.String())
	return err
}

// clockTime trims a local date-time to its HH:MM part.
func clockTime(dateTime string) string {
	if _, clock, ok := strings.Cut(dateTime, "T"); ok && len(clock) >= 5 {
		return clock[:5]
	}
	return dateTime
}
