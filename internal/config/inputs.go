package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/iwvelando/daily-breakdown/internal/dataload"
	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/history"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
)

// LoadInputs gathers the plan, history and optional date dimension. Files
// named under data take precedence over inline targets and history. When
// allowFiles is false any file reference is rejected.
func (c *Configuration) LoadInputs(allowFiles bool) (dataload.Inputs, error) {
	var inputs dataload.Inputs
	if !allowFiles && c.UsesFiles() {
		return inputs, validation.NewConfigError("data", "", "file data sources are not allowed here; supply targets and history inline")
	}

	var err error
	if c.Data.PlanFile != "" {
		inputs.Plan, err = dataload.LoadPlan(c.Data.PlanFile)
		if err != nil {
			return inputs, err
		}
	} else {
		inputs.Plan, err = c.PlanRows()
		if err != nil {
			return inputs, err
		}
	}
	if len(inputs.Plan) == 0 {
		return inputs, validation.NewConfigError("targets", "", "no monthly targets supplied")
	}

	if c.Data.HistoryFile != "" {
		inputs.History, err = dataload.LoadHistory(c.Data.HistoryFile)
	} else {
		inputs.History, err = c.HistorySeries()
	}
	if err != nil {
		return inputs, err
	}

	if c.Data.CalendarFile != "" {
		weekStart, err := c.WeekStartDay()
		if err != nil {
			return inputs, err
		}
		inputs.Calendars, err = dataload.LoadCalendar(c.Data.CalendarFile, weekStart)
		if err != nil {
			return inputs, err
		}
		if err := dataload.ValidateCompatibility(inputs.Plan, inputs.Calendars); err != nil {
			return inputs, err
		}
	}
	return inputs, nil
}

// PlanRows converts the inline targets into plan rows.
func (c *Configuration) PlanRows() ([]dataload.PlanRow, error) {
	rows := make([]dataload.PlanRow, 0, len(c.Targets))
	seen := make(map[string]int, len(c.Targets))
	for i, t := range c.Targets {
		year, month, err := dataload.ParseMonthKey(t.Month)
		if err != nil {
			return nil, validation.NewConfigError(fmt.Sprintf("targets[%d].month", i), t.Month, "%v", err)
		}
		row := dataload.PlanRow{
			Year:      year,
			Month:     month,
			Line:      t.Line,
			Metric:    t.Metric,
			SubMetric: t.SubMetric,
			Target:    t.Target,
			Unit:      t.Unit,
		}
		if first, ok := seen[row.Key()]; ok {
			return nil, validation.NewConfigError(fmt.Sprintf("targets[%d]", i), t.Month,
				"duplicate target for series %s (first at targets[%d])", dataload.DisplayKey(row.SeriesKey()), first)
		}
		seen[row.Key()] = i
		rows = append(rows, row)
	}
	dataload.SortPlan(rows)
	return rows, nil
}

// HistorySeries groups the inline history by series key, sorted by date and
// checked for contiguity.
func (c *Configuration) HistorySeries() (map[string]history.Series, error) {
	grouped := make(map[string]history.Series)
	for i, h := range c.History {
		date, err := parseDate(h.Date)
		if err != nil {
			return nil, validation.NewConfigError(fmt.Sprintf("history[%d].date", i), h.Date, "%v", err)
		}
		key := dataload.SeriesKey(h.Line, h.Metric, h.SubMetric)
		grouped[key] = append(grouped[key], history.Observation{Date: date, Value: h.Value})
	}
	for key, series := range grouped {
		sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		if err := series.Validate(); err != nil {
			return nil, &validation.ValidationError{
				Field:  "history",
				Reason: fmt.Sprintf("series %s: %v", dataload.DisplayKey(key), err),
			}
		}
	}
	return grouped, nil
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(constants.DateLayout, value)
}
