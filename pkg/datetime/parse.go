// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
)

const (
	// MonthLayout is the format of target months in config files and output.
	MonthLayout = constants.MonthLayout

	// DateLayout is the format of a single day in config files and output.
	DateLayout = constants.DateLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseMonth parses a "2006-01" month key into its year and month.
func ParseMonth(month string) (int, time.Month, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(month))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return t.Year(), t.Month(), nil
}

// MonthKey formats a year and month as a "2006-01" key.
func MonthKey(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format(MonthLayout)
}

// DaysInMonth returns the number of days in the Gregorian month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseWeekday resolves an English weekday name (full or three-letter,
// case-insensitive) to a time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if trimmed == full || trimmed == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}

// WeekdayIndex returns the position of t's weekday in a week that begins on
// start, in the range 0-6.
func WeekdayIndex(t time.Time, start time.Weekday) int {
	return (int(t.Weekday()) - int(start) + 7) % 7
}
