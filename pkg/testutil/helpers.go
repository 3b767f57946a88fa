// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/daily-breakdown/internal/forecast"
)

// FindScenario finds a scenario by name in the results slice.
// Returns a pointer to the forecast if found, nil otherwise.
func FindScenario(results []forecast.Forecast, name string) *forecast.Forecast {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// FindMonth returns the month result for a YYYY-MM key and series key, or
// nil if the forecast has none.
func FindMonth(result *forecast.Forecast, month, series string) *forecast.MonthResult {
	if result == nil {
		return nil
	}
	for i := range result.Months {
		m := &result.Months[i]
		if m.Row.MonthKey() == month && m.Row.SeriesKey() == series {
			return m
		}
	}
	return nil
}
