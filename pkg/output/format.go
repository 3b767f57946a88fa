// Package output provides utilities for formatting and displaying breakdown results.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/daily-breakdown/internal/dataload"
	"github.com/iwvelando/daily-breakdown/internal/forecast"
	"github.com/iwvelando/daily-breakdown/pkg/breakdown"
	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/format"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// csvPlaces is the number of decimals written for daily values.
const csvPlaces = 4

var csvHeader = []string{
	"scenario", "year", "month", "line", "metric", "sub_metric", "unit",
	"date", "label", "daily_target", "mode", "growth_rate",
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, results []forecast.Forecast) error {
	p := message.NewPrinter(language.English)
	for i, result := range results {
		if _, err := fmt.Fprintf(w, "--- Results for scenario %s ---\n", result.Name); err != nil {
			return err
		}
		for _, m := range result.Months {
			fmt.Fprintf(w, "%s %s | target %s | %s growth %.4f\n",
				m.Row.MonthKey(), dataload.DisplayKey(m.Row.SeriesKey()), format.Amount(m.Row.Target, m.Row.Unit), m.Mode, m.GrowthRate)
			fmt.Fprintf(w, "Date       | Label        | Daily target\n")
			fmt.Fprintf(w, "__________ | ____________ | ____________\n")
			for _, e := range m.Breakdown.Entries {
				_, _ = p.Fprintf(w, "%s | %-12s | %.2f\n", e.Date.Format(constants.DateLayout), e.Label, e.Value)
			}
			_, _ = p.Fprintf(w, "Total %.2f | smooth days %.1f%% | max day change %.2f%%\n",
				m.Metrics.Total, m.Metrics.SmoothDayPct, m.Metrics.MaxDayChangePct)
			for _, note := range result.Notes[m.Row.MonthKey()] {
				if !strings.HasPrefix(note, dataload.DisplayKey(m.Row.SeriesKey())+":") {
					continue
				}
				fmt.Fprintf(w, "Note: %s\n", note)
			}
			fmt.Fprintf(w, "\n")
		}
		if i < len(results)-1 {
			fmt.Fprintf(w, "\n")
		}
	}
	return nil
}

// CsvFormat outputs in comma-separated value format, one row per scenario
// and day.
func CsvFormat(w io.Writer, results []forecast.Forecast) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, result := range results {
		for _, m := range result.Months {
			rate := decimal.NewFromFloat(m.GrowthRate).StringFixed(6)
			for _, e := range m.Breakdown.Entries {
				record := []string{
					result.Name,
					fmt.Sprint(m.Row.Year),
					fmt.Sprint(m.Row.Month),
					m.Row.Line,
					m.Row.Metric,
					m.Row.SubMetric,
					m.Row.Unit,
					e.Date.Format(constants.DateLayout),
					e.Label,
					decimal.NewFromFloat(e.Value).StringFixed(csvPlaces),
					string(m.Mode),
					rate,
				}
				if err := cw.Write(record); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// CsvString returns the CSV output as a string.
func CsvString(results []forecast.Forecast) (string, error) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, results); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// JSONDay is one day of a breakdown in JSON output.
type JSONDay struct {
	Date  string  `json:"date"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// JSONMonth is one plan row of a scenario in JSON output.
type JSONMonth struct {
	Month      string                   `json:"month"`
	Series     string                   `json:"series"`
	Target     float64                  `json:"target"`
	Unit       string                   `json:"unit,omitempty"`
	Mode       string                   `json:"mode"`
	GrowthRate float64                  `json:"growthRate"`
	Fallback   bool                     `json:"fallback,omitempty"`
	Days       []JSONDay                `json:"days"`
	Metrics    breakdown.QualityMetrics `json:"metrics"`
	Notes      []string                 `json:"notes,omitempty"`
}

// JSONScenario is one scenario in JSON output.
type JSONScenario struct {
	Name           string           `json:"name"`
	RunID          string           `json:"runId"`
	Mode           string           `json:"mode"`
	WeeklyPattern  string           `json:"weeklyPattern"`
	MonthlyPattern string           `json:"monthlyPattern"`
	Months         []JSONMonth      `json:"months"`
	Summary        forecast.Summary `json:"summary"`
}

// JSONResults converts forecasts into their JSON representation.
func JSONResults(results []forecast.Forecast) []JSONScenario {
	out := make([]JSONScenario, 0, len(results))
	for _, result := range results {
		scenario := JSONScenario{
			Name:           result.Name,
			RunID:          result.RunID,
			Mode:           result.Mode,
			WeeklyPattern:  result.WeeklyPattern,
			MonthlyPattern: result.MonthlyPattern,
			Months:         make([]JSONMonth, 0, len(result.Months)),
			Summary:        result.Summary,
		}
		for _, m := range result.Months {
			key := dataload.DisplayKey(m.Row.SeriesKey())
			month := JSONMonth{
				Month:      m.Row.MonthKey(),
				Series:     key,
				Target:     m.Row.Target,
				Unit:       m.Row.Unit,
				Mode:       string(m.Mode),
				GrowthRate: m.GrowthRate,
				Fallback:   m.Fallback,
				Days:       make([]JSONDay, len(m.Breakdown.Entries)),
				Metrics:    m.Metrics,
			}
			for i, e := range m.Breakdown.Entries {
				month.Days[i] = JSONDay{Date: e.Date.Format(constants.DateLayout), Label: e.Label, Value: e.Value}
			}
			for _, note := range result.Notes[month.Month] {
				if strings.HasPrefix(note, key+":") {
					month.Notes = append(month.Notes, note)
				}
			}
			scenario.Months = append(scenario.Months, month)
		}
		out = append(out, scenario)
	}
	return out
}

// JSONFormat outputs the results as indented JSON.
func JSONFormat(w io.Writer, results []forecast.Forecast) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONResults(results))
}

// SummaryFormat outputs the aggregated quality metrics of each scenario.
func SummaryFormat(w io.Writer, results []forecast.Forecast) error {
	for _, result := range results {
		s := result.Summary
		lines := []string{
			fmt.Sprintf("--- Summary for scenario %s ---", result.Name),
			fmt.Sprintf("Months: %d, days: %d", s.Months, s.Days),
			fmt.Sprintf("Average day-to-day change: %s", format.Number(s.AvgDayChange)),
			fmt.Sprintf("Maximum day-to-day change: %s", format.Number(s.MaxDayChange)),
			fmt.Sprintf("Average day-to-day change %%: %s", format.Percent(s.AvgDayChangePct, 2)),
			fmt.Sprintf("Maximum day-to-day change %%: %s", format.Percent(s.MaxDayChangePct, 2)),
			fmt.Sprintf("Smooth days: %s", format.Percent(s.SmoothDayPct, 1)),
			fmt.Sprintf("Average difference from monthly targets: %s", format.Percent(s.AvgTargetDeviationPct, 4)),
			fmt.Sprintf("Max difference: %s", format.Percent(s.MaxTargetDeviationPct, 4)),
		}
		if s.NonMonotonicMonths > 0 {
			lines = append(lines, fmt.Sprintf("Months with non-monotonic growth: %d", s.NonMonotonicMonths))
		}
		if s.FallbackMonths > 0 {
			lines = append(lines, fmt.Sprintf("Months using smooth fallback: %d", s.FallbackMonths))
		}
		if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")+"\n"); err != nil {
			return err
		}
	}
	return nil
}
