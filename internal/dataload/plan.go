// Package dataload reads the business plan, historical actuals and date
// dimension files that feed a breakdown run.
package dataload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/daily-breakdown/pkg/calendar"
	"github.com/iwvelando/daily-breakdown/pkg/datetime"
	"github.com/iwvelando/daily-breakdown/pkg/history"
	"github.com/shopspring/decimal"
)

var planColumns = []string{"year", "month", "line", "metric", "sub_metric", "target", "unit"}

// PlanRow is one monthly target of the business plan.
type PlanRow struct {
	Year      int
	Month     int
	Line      string
	Metric    string
	SubMetric string
	Target    float64
	Unit      string
}

// SeriesKey identifies the line/metric/sub-metric series the row belongs to.
func (r PlanRow) SeriesKey() string {
	return SeriesKey(r.Line, r.Metric, r.SubMetric)
}

// MonthKey returns the row's month as YYYY-MM.
func (r PlanRow) MonthKey() string {
	return MonthKey(r.Year, r.Month)
}

// Key identifies the row within a plan. A plan holds one target per month
// and series.
func (r PlanRow) Key() string {
	return r.MonthKey() + " " + r.SeriesKey()
}

// SeriesKey joins the series identifiers. All-empty identifiers give the
// empty key, which matches every series.
func SeriesKey(line, metric, subMetric string) string {
	if line == "" && metric == "" && subMetric == "" {
		return ""
	}
	return line + "/" + metric + "/" + subMetric
}

// MonthKey formats a year and month number as YYYY-MM. Month numbers are not
// tied to the Gregorian calendar.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// LoadPlan reads a business plan CSV file.
func LoadPlan(path string) ([]PlanRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("business plan file: %w", err)
	}
	defer f.Close()
	return ReadPlan(f)
}

// ReadPlan parses business plan rows. Targets may carry thousands separators
// ("1,200,000"). Rows are returned sorted by year, month and series.
func ReadPlan(r io.Reader) ([]PlanRow, error) {
	records, index, err := readTable(r, planColumns, nil)
	if err != nil {
		return nil, fmt.Errorf("error loading business plan data: %w", err)
	}

	rows := make([]PlanRow, 0, len(records))
	seen := make(map[string]int, len(records))
	for n, rec := range records {
		line := n + 2
		year, err := strconv.Atoi(field(rec, index, "year"))
		if err != nil {
			return nil, fmt.Errorf("business plan line %d: invalid year %q", line, field(rec, index, "year"))
		}
		month, err := strconv.Atoi(field(rec, index, "month"))
		if err != nil || month < 1 || month > 12 {
			return nil, fmt.Errorf("business plan line %d: invalid month %q", line, field(rec, index, "month"))
		}
		target, err := ParseAmount(field(rec, index, "target"))
		if err != nil {
			return nil, fmt.Errorf("business plan line %d: %w", line, err)
		}
		row := PlanRow{
			Year:      year,
			Month:     month,
			Line:      field(rec, index, "line"),
			Metric:    field(rec, index, "metric"),
			SubMetric: field(rec, index, "sub_metric"),
			Target:    target,
			Unit:      field(rec, index, "unit"),
		}
		if first, ok := seen[row.Key()]; ok {
			return nil, fmt.Errorf("business plan line %d: duplicate target for %s %s (first on line %d)",
				line, row.MonthKey(), DisplayKey(row.SeriesKey()), first)
		}
		seen[row.Key()] = line
		rows = append(rows, row)
	}
	SortPlan(rows)
	return rows, nil
}

// SortPlan orders rows by year, month and series key.
func SortPlan(rows []PlanRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		return rows[i].SeriesKey() < rows[j].SeriesKey()
	})
}

// ParseAmount parses a decimal amount, ignoring thousands separators and
// surrounding whitespace.
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return d.InexactFloat64(), nil
}

// readTable reads a headed CSV and checks the required columns are present.
// Header names are matched case-insensitively.
func readTable(r io.Reader, required, optional []string) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("file is empty")
		}
		return nil, nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	known := make(map[string]int, len(required)+len(optional))
	for _, col := range append(append([]string{}, required...), optional...) {
		if i, ok := index[col]; ok {
			known[col] = i
		}
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if blank(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, known, nil
}

func field(rec []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// PlanMonths returns the distinct month keys present in the plan, in order.
func PlanMonths(rows []PlanRow) []string {
	seen := make(map[string]struct{})
	var months []string
	for _, r := range rows {
		key := r.MonthKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		months = append(months, key)
	}
	sort.Strings(months)
	return months
}

// ParseMonthKey splits a YYYY-MM key into year and month number.
func ParseMonthKey(key string) (int, int, error) {
	year, month, err := datetime.ParseMonth(key)
	if err != nil {
		return 0, 0, err
	}
	return year, int(month), nil
}

// Inputs is everything a run reads besides its configuration.
type Inputs struct {
	Plan    []PlanRow
	History map[string]history.Series
	// Calendars is keyed by month key. A nil map means Gregorian months.
	Calendars map[string]*calendar.Calendar
}
