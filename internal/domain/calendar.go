package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// NominalWorkingDay is the daily baseline used by the timesheet offset.
const NominalWorkingDay = 8 * time.Hour

// BusinessDaysPerWeek divides weekly capacity into a daily share.
const BusinessDaysPerWeek = 5

// Holiday is a named non-working date.
type Holiday struct {
	Date  civil.Date
	Title string
}

// NewHoliday validates one holiday row.
func NewHoliday(date civil.Date, title string) (Holiday, error) {
	if !date.IsValid() {
		return Holiday{}, ErrInvalidDate
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Holiday{}, ErrInvalidTitle
	}
	return Holiday{Date: date, Title: title}, nil
}

// Calendar classifies dates as business days, weekends, or holidays.
type Calendar struct {
	holidays map[civil.Date]struct{}
}

// NewCalendar builds a calendar over the given holidays.
func NewCalendar(holidays []Holiday) Calendar {
	set := make(map[civil.Date]struct{}, len(holidays))
	for _, holiday := range holidays {
		set[holiday.Date] = struct{}{}
	}
	return Calendar{holidays: set}
}

// IsBusinessDay reports whether d is Monday through Friday and not a holiday.
func (c Calendar) IsBusinessDay(d civil.Date) bool {
	switch Weekday(d) {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(d)
}

// IsHoliday reports whether d is a configured holiday.
func (c Calendar) IsHoliday(d civil.Date) bool {
	_, ok := c.holidays[d]
	return ok
}

// CountBusinessDays counts business days in [startInclusive, endExclusive).
func (c Calendar) CountBusinessDays(startInclusive, endExclusive civil.Date) int {
	count := 0
	for d := startInclusive; d.Before(endExclusive); d = d.AddDays(1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return count
}

// Weekday returns the day of the week of d.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// StartOfWeek returns the Monday of the ISO week containing d.
func StartOfWeek(d civil.Date) civil.Date {
	offset := int(Weekday(d)) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return d.AddDays(-offset)
}

// StartOfMonth returns the first day of the month containing d.
func StartOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// StartOfNextMonth returns the first day of the month after d.
func StartOfNextMonth(d civil.Date) civil.Date {
	return civil.DateOf(StartOfMonth(d).In(time.UTC).AddDate(0, 1, 0))
}

// Between reports whether d lies in the closed range [first, last].
func Between(d, first, last civil.Date) bool {
	return !d.Before(first) && !d.After(last)
}
