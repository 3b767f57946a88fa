package dataload

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/history"
)

var (
	historyColumns         = []string{"date", "value"}
	historyOptionalColumns = []string{"line", "metric", "sub_metric"}
)

// LoadHistory reads a historical actuals CSV file.
func LoadHistory(path string) (map[string]history.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("history file: %w", err)
	}
	defer f.Close()
	return ReadHistory(f)
}

// ReadHistory parses daily actuals with columns date,value and optionally
// line,metric,sub_metric. Rows are grouped by series key, sorted by date and
// checked for duplicate or missing days. Rows without series columns share
// the empty key.
func ReadHistory(r io.Reader) (map[string]history.Series, error) {
	records, index, err := readTable(r, historyColumns, historyOptionalColumns)
	if err != nil {
		return nil, fmt.Errorf("error loading history data: %w", err)
	}

	grouped := make(map[string]history.Series)
	for n, rec := range records {
		line := n + 2
		date, err := time.Parse(constants.DateLayout, field(rec, index, "date"))
		if err != nil {
			return nil, fmt.Errorf("history line %d: invalid date %q", line, field(rec, index, "date"))
		}
		value, err := ParseAmount(field(rec, index, "value"))
		if err != nil {
			return nil, fmt.Errorf("history line %d: %w", line, err)
		}
		key := SeriesKey(field(rec, index, "line"), field(rec, index, "metric"), field(rec, index, "sub_metric"))
		grouped[key] = append(grouped[key], history.Observation{Date: date, Value: value})
	}

	for key, series := range grouped {
		sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		if err := series.Validate(); err != nil {
			return nil, fmt.Errorf("history series %q: %w", DisplayKey(key), err)
		}
	}
	return grouped, nil
}

// HistoryFor returns the series for key, falling back to the shared series
// stored under the empty key.
func HistoryFor(all map[string]history.Series, key string) history.Series {
	if s, ok := all[key]; ok {
		return s
	}
	return all[""]
}

// DisplayKey renders a series key for messages.
func DisplayKey(key string) string {
	if key == "" {
		return "(all)"
	}
	return key
}
