package dataload

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/daily-breakdown/pkg/calendar"
	"github.com/iwvelando/daily-breakdown/pkg/constants"
)

var (
	calendarColumns         = []string{"year", "month", "date"}
	calendarOptionalColumns = []string{"label"}
)

// LoadCalendar reads a date dimension CSV file.
func LoadCalendar(path string, weekStart time.Weekday) (map[string]*calendar.Calendar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("date dimension file: %w", err)
	}
	defer f.Close()
	return ReadCalendar(f, weekStart)
}

// ReadCalendar parses a date dimension with columns year,month,date and an
// optional label. year and month name the planning month the day belongs to,
// which need not be a Gregorian month; date is the Gregorian day. One
// calendar is built per month key, with days ordered by date.
func ReadCalendar(r io.Reader, weekStart time.Weekday) (map[string]*calendar.Calendar, error) {
	records, index, err := readTable(r, calendarColumns, calendarOptionalColumns)
	if err != nil {
		return nil, fmt.Errorf("error loading date dimension data: %w", err)
	}

	type month struct {
		year, month int
		days        []calendar.Day
	}
	months := make(map[string]*month)

	for n, rec := range records {
		line := n + 2
		year, err := strconv.Atoi(field(rec, index, "year"))
		if err != nil {
			return nil, fmt.Errorf("date dimension line %d: invalid year %q", line, field(rec, index, "year"))
		}
		m, err := strconv.Atoi(field(rec, index, "month"))
		if err != nil || m < 1 || m > 12 {
			return nil, fmt.Errorf("date dimension line %d: invalid month %q", line, field(rec, index, "month"))
		}
		date, err := time.Parse(constants.DateLayout, field(rec, index, "date"))
		if err != nil {
			return nil, fmt.Errorf("date dimension line %d: invalid date %q", line, field(rec, index, "date"))
		}

		key := MonthKey(year, m)
		entry, ok := months[key]
		if !ok {
			entry = &month{year: year, month: m}
			months[key] = entry
		}
		entry.days = append(entry.days, calendar.Day{Date: date, Label: field(rec, index, "label")})
	}

	calendars := make(map[string]*calendar.Calendar, len(months))
	for key, entry := range months {
		sort.SliceStable(entry.days, func(i, j int) bool { return entry.days[i].Date.Before(entry.days[j].Date) })
		for i := range entry.days {
			entry.days[i].DayOfMonth = i + 1
		}
		cal, err := calendar.FromDays(entry.year, time.Month(entry.month), weekStart, entry.days)
		if err != nil {
			return nil, fmt.Errorf("date dimension month %s: %w", key, err)
		}
		calendars[key] = cal
	}
	return calendars, nil
}

// ValidateCompatibility checks that every plan month is covered by the date
// dimension.
func ValidateCompatibility(plan []PlanRow, calendars map[string]*calendar.Calendar) error {
	var missing []string
	for _, key := range PlanMonths(plan) {
		if _, ok := calendars[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing date dimension data for months: %s", strings.Join(missing, ", "))
	}
	return nil
}
