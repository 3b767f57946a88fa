package config

import (
	"fmt"
	"strings"

	"github.com/iwvelando/daily-breakdown/internal/dataload"
	"github.com/iwvelando/daily-breakdown/pkg/breakdown"
	"github.com/iwvelando/daily-breakdown/pkg/configprocessor"
	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/growth"
	"github.com/iwvelando/daily-breakdown/pkg/seasonality"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
)

// Registry returns a seasonality registry holding the built-in patterns plus
// the custom patterns of this configuration.
func (c *Configuration) Registry() (*seasonality.Registry, error) {
	registry := seasonality.NewRegistry()
	for _, p := range c.Patterns.Weekly {
		if err := registry.RegisterWeekly(p.Name, p.Coefficients); err != nil {
			return nil, err
		}
	}
	for _, p := range c.Patterns.Monthly {
		if err := registry.RegisterMonthly(p.Name, p.Coefficients); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// SmoothOptions returns the smooth growth curve options.
func (c *Configuration) SmoothOptions() growth.SmoothOptions {
	return growth.SmoothOptions{
		Rate:      c.Common.Growth.Rate,
		Exponent:  c.Common.Growth.Exponent,
		Smoothing: c.Common.Growth.Smoothing,
	}
}

// EstimatorOptions returns the regression options for a scenario.
func (c *Configuration) EstimatorOptions(s Scenario) growth.EstimatorOptions {
	opts := growth.EstimatorOptions{
		MinGrowthRate: c.Common.Regression.MinGrowthRate,
		MaxGrowthRate: c.Common.Regression.MaxGrowthRate,
		Smoothing:     c.Common.Regression.Smoothing,
	}
	if len(s.WindowWeights) > 0 {
		opts.WindowWeights = make(map[int]float64, len(s.WindowWeights))
		for _, w := range s.WindowWeights {
			opts.WindowWeights[w.Window] = w.Weight
		}
	}
	return opts
}

// CalculatorOptions returns the breakdown calculator options.
func (c *Configuration) CalculatorOptions() breakdown.Options {
	return breakdown.Options{
		SmoothDayThreshold: c.Common.Quality.SmoothDayThreshold,
		WeeklySmoothing:    c.Common.Seasonality.WeeklySmoothing,
		MonthlySmoothing:   c.Common.Seasonality.MonthlySmoothing,
	}
}

// Validate checks the whole configuration once, before any computation.
// Every failure is a *validation.ConfigError naming the offending setting.
func (c *Configuration) Validate() error {
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return validation.NewConfigError("output.format", c.Output.Format, "%v", err)
		}
	}
	if _, err := c.WeekStartDay(); err != nil {
		return validation.NewConfigError("common.weekStart", c.Common.WeekStart, "%v", err)
	}
	if _, err := growth.NewProvider(nil, c.SmoothOptions(), nil); err != nil {
		return err
	}
	if _, err := breakdown.NewCalculator(nil, c.CalculatorOptions()); err != nil {
		return err
	}

	registry, err := c.Registry()
	if err != nil {
		return err
	}

	if len(c.Scenarios) == 0 {
		return validation.NewConfigError("scenarios", "", "at least one scenario is required")
	}
	for _, s := range c.Scenarios {
		if err := c.validateScenario(s, registry); err != nil {
			return err
		}
	}

	for i, t := range c.Targets {
		if _, _, err := dataload.ParseMonthKey(t.Month); err != nil {
			return validation.NewConfigError(fmt.Sprintf("targets[%d].month", i), t.Month, "%v", err)
		}
	}
	for i, h := range c.History {
		if _, err := parseDate(h.Date); err != nil {
			return validation.NewConfigError(fmt.Sprintf("history[%d].date", i), h.Date, "%v", err)
		}
	}
	return nil
}

func (c *Configuration) validateScenario(s Scenario, registry *seasonality.Registry) error {
	if strings.TrimSpace(s.Name) == "" {
		return validation.NewConfigError("scenarios.name", "", "scenario name is required")
	}
	wrap := func(err error) error {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	if err := validation.ValidateMode(s.Mode); err != nil {
		return wrap(err)
	}
	if _, err := registry.Weekly(s.WeeklyPattern); err != nil {
		return wrap(err)
	}
	if _, err := registry.Monthly(s.MonthlyPattern); err != nil {
		return wrap(err)
	}
	if s.Fallback != "" && s.Fallback != constants.ModeSmooth {
		return wrap(validation.NewConfigError("fallback", s.Fallback, "only %s is supported", constants.ModeSmooth))
	}
	if s.Mode != constants.ModeRegression {
		return nil
	}

	if err := validation.ValidateWindows(s.Windows); err != nil {
		return wrap(err)
	}
	if _, err := growth.NewEstimator(nil, c.EstimatorOptions(s)); err != nil {
		return wrap(err)
	}
	windows := make(map[int]struct{}, len(s.Windows))
	for _, w := range s.Windows {
		windows[w] = struct{}{}
	}
	for _, w := range s.WindowWeights {
		if _, ok := windows[w.Window]; !ok {
			return wrap(validation.NewConfigError("windowWeights", fmt.Sprint(w.Window), "weight given for a window that is not requested"))
		}
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration
// against its inputs and returns warnings.
func (c *Configuration) ValidateConfiguration(inputs dataload.Inputs) []string {
	var scenarios []configprocessor.ScenarioInfo
	for _, s := range c.Scenarios {
		scenarios = append(scenarios, configprocessor.ScenarioInfo{
			Name:           s.Name,
			Active:         s.Active,
			Mode:           s.Mode,
			Windows:        s.Windows,
			RollingHistory: s.RollingHistory,
			Fallback:       s.Fallback,
		})
	}

	months := make(map[string][]string)
	var keys []string
	for _, row := range inputs.Plan {
		key := row.SeriesKey()
		if _, ok := months[key]; !ok {
			keys = append(keys, key)
		}
		months[key] = append(months[key], row.MonthKey())
	}

	var series []configprocessor.SeriesInfo
	for _, key := range keys {
		series = append(series, configprocessor.SeriesInfo{
			Key:           key,
			Months:        months[key],
			HistoryPoints: len(dataload.HistoryFor(inputs.History, key)),
		})
	}

	processor := configprocessor.NewProcessor()
	return processor.ValidateConfiguration(scenarios, series)
}
