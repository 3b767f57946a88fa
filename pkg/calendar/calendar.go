// Package calendar defines the ordered, immutable set of days a monthly
// target is broken down over.
package calendar

import (
	"fmt"
	"time"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/datetime"
)

// Day is one calendar day of the target month.
type Day struct {
	Date       time.Time
	Label      string // external identifier, e.g. a non-Gregorian date string
	Weekday    int    // 0-6, relative to the calendar's week start
	DayOfMonth int    // 1-31
	LastDay    bool   // true for the final day of the month
}

// Calendar is an ordered sequence of days covering one month.
type Calendar struct {
	year      int
	month     time.Month
	weekStart time.Weekday
	days      []Day
}

// New builds the Gregorian calendar for the given month. Weekday indices are
// computed relative to weekStart.
func New(year int, month time.Month, weekStart time.Weekday) *Calendar {
	n := datetime.DaysInMonth(year, month)
	days := make([]Day, n)
	for i := 0; i < n; i++ {
		date := time.Date(year, month, i+1, 0, 0, 0, 0, time.UTC)
		days[i] = Day{
			Date:       date,
			Label:      date.Format(constants.DateLayout),
			Weekday:    datetime.WeekdayIndex(date, weekStart),
			DayOfMonth: i + 1,
			LastDay:    i == n-1,
		}
	}
	return &Calendar{year: year, month: month, weekStart: weekStart, days: days}
}

// FromDays builds a calendar from externally supplied days, for months that
// are not Gregorian months (e.g. a date dimension keyed by another calendar
// system). Days must be in chronological order with day-of-month running
// 1..n without gaps; weekday indices are recomputed from the dates.
func FromDays(year int, month time.Month, weekStart time.Weekday, days []Day) (*Calendar, error) {
	copied := make([]Day, len(days))
	for i, d := range days {
		if d.DayOfMonth != i+1 {
			return nil, fmt.Errorf("calendar %s: day %d has day-of-month %d, expected %d",
				datetime.MonthKey(year, month), i+1, d.DayOfMonth, i+1)
		}
		if d.DayOfMonth > constants.MaxDaysPerMonth {
			return nil, fmt.Errorf("calendar %s: more than %d days", datetime.MonthKey(year, month), constants.MaxDaysPerMonth)
		}
		if i > 0 && !d.Date.After(days[i-1].Date) {
			return nil, fmt.Errorf("calendar %s: day %s is not after %s",
				datetime.MonthKey(year, month), d.Date.Format(constants.DateLayout), days[i-1].Date.Format(constants.DateLayout))
		}
		d.Weekday = datetime.WeekdayIndex(d.Date, weekStart)
		d.LastDay = i == len(days)-1
		if d.Label == "" {
			d.Label = d.Date.Format(constants.DateLayout)
		}
		copied[i] = d
	}
	return &Calendar{year: year, month: month, weekStart: weekStart, days: copied}, nil
}

// Year returns the calendar's year.
func (c *Calendar) Year() int { return c.year }

// Month returns the calendar's month.
func (c *Calendar) Month() time.Month { return c.month }

// Key returns the "2006-01" month key.
func (c *Calendar) Key() string { return datetime.MonthKey(c.year, c.month) }

// WeekStart returns the weekday mapped to weekly index 0.
func (c *Calendar) WeekStart() time.Weekday { return c.weekStart }

// Len returns the number of days.
func (c *Calendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.days)
}

// Day returns the i-th day.
func (c *Calendar) Day(i int) Day { return c.days[i] }

// Days returns a copy of the days.
func (c *Calendar) Days() []Day {
	out := make([]Day, len(c.days))
	copy(out, c.days)
	return out
}
