// Package forecast defines the data structures related to a given forecast and
// includes functions for computing the forecasts.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/daily-breakdown/internal/config"
	"github.com/iwvelando/daily-breakdown/internal/dataload"
	"github.com/iwvelando/daily-breakdown/pkg/breakdown"
	"github.com/iwvelando/daily-breakdown/pkg/calendar"
	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/growth"
	"github.com/iwvelando/daily-breakdown/pkg/history"
	"github.com/iwvelando/daily-breakdown/pkg/seasonality"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MonthResult is the breakdown of one plan row.
type MonthResult struct {
	Row        dataload.PlanRow
	Breakdown  breakdown.DailyBreakdown
	Metrics    breakdown.QualityMetrics
	Mode       growth.Mode // mode actually used, after any fallback
	GrowthRate float64
	Monotonic  bool
	Fallback   bool
}

// Forecast holds all information related to a specific scenario run.
type Forecast struct {
	Name           string
	RunID          string
	Mode           string
	WeeklyPattern  string
	MonthlyPattern string
	Months         []MonthResult
	Summary        Summary
	// Notes are keyed by month (YYYY-MM).
	Notes map[string][]string
}

// GetForecast processes the Forecasts for all active Scenarios. Scenarios run
// concurrently; each keeps its own regression smoothing state per series, so
// results do not depend on scheduling. Results follow configuration order.
func GetForecast(ctx context.Context, logger *zap.Logger, conf *config.Configuration, inputs dataload.Inputs) ([]Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry, err := conf.Registry()
	if err != nil {
		return nil, err
	}
	weekStart, err := conf.WeekStartDay()
	if err != nil {
		return nil, validation.NewConfigError("common.weekStart", conf.Common.WeekStart, "%v", err)
	}
	calculator, err := breakdown.NewCalculator(logger, conf.CalculatorOptions())
	if err != nil {
		return nil, err
	}

	var active []config.Scenario
	for _, scenario := range conf.Scenarios {
		if !scenario.Active {
			logger.Debug(fmt.Sprintf("skipping scenario %s because it is inactive", scenario.Name),
				zap.String("op", "forecast.GetForecast"),
			)
			continue
		}
		active = append(active, scenario)
	}

	runID := uuid.NewString()
	results := make([]Forecast, len(active))
	g, ctx := errgroup.WithContext(ctx)
	for i, scenario := range active {
		i, scenario := i, scenario
		g.Go(func() error {
			r := &runner{
				logger:     logger.With(zap.String("scenario", scenario.Name), zap.String("run_id", runID)),
				conf:       conf,
				registry:   registry,
				calculator: calculator,
				weekStart:  weekStart,
				inputs:     inputs,
			}
			result, err := r.run(ctx, scenario)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", scenario.Name, err)
			}
			result.RunID = runID
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// runner computes one scenario. It is not shared between goroutines.
type runner struct {
	logger     *zap.Logger
	conf       *config.Configuration
	registry   *seasonality.Registry
	calculator *breakdown.Calculator
	weekStart  time.Weekday
	inputs     dataload.Inputs
}

func (r *runner) run(ctx context.Context, scenario config.Scenario) (Forecast, error) {
	result := Forecast{
		Name:           scenario.Name,
		Mode:           scenario.Mode,
		WeeklyPattern:  scenario.WeeklyPattern,
		MonthlyPattern: scenario.MonthlyPattern,
		Notes:          make(map[string][]string),
	}

	weekly, err := r.registry.Weekly(scenario.WeeklyPattern)
	if err != nil {
		return result, err
	}
	monthly, err := r.registry.Monthly(scenario.MonthlyPattern)
	if err != nil {
		return result, err
	}

	var estimator *growth.Estimator
	if scenario.Mode == constants.ModeRegression {
		estimator, err = growth.NewEstimator(r.logger, r.conf.EstimatorOptions(scenario))
		if err != nil {
			return result, err
		}
	}
	provider, err := growth.NewProvider(r.logger, r.conf.SmoothOptions(), estimator)
	if err != nil {
		return result, err
	}

	states := make(map[string]growth.State)
	rolling := make(map[string]history.Series)
	for _, row := range r.inputs.Plan {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		key := row.SeriesKey()
		month := row.MonthKey()
		cal, err := r.calendarFor(row)
		if err != nil {
			return result, err
		}

		hist, ok := rolling[key]
		if !ok {
			hist = dataload.HistoryFor(r.inputs.History, key)
		}
		req := growth.Request{
			Mode:    growth.Mode(scenario.Mode),
			History: hist,
			Windows: scenario.Windows,
			Prior:   states[key],
		}

		fallback := false
		curve, err := provider.Build(cal, req)
		if err != nil && canFallBack(scenario, err) {
			result.Notes[month] = append(result.Notes[month],
				fmt.Sprintf("%s: regression unavailable (%v); smooth growth used", dataload.DisplayKey(key), err))
			r.logger.Warn("falling back to smooth growth",
				zap.String("op", "forecast.run"),
				zap.String("month", month),
				zap.String("series", dataload.DisplayKey(key)),
				zap.Error(err),
			)
			req.Mode = growth.ModeSmooth
			fallback = true
			curve, err = provider.Build(cal, req)
		}
		if err != nil {
			return result, fmt.Errorf("%s %s: %w", month, dataload.DisplayKey(key), err)
		}
		states[key] = curve.State

		if curve.Estimate != nil {
			for _, w := range curve.Estimate.Windows {
				if w.Skipped {
					result.Notes[month] = append(result.Notes[month],
						fmt.Sprintf("%s: %d-day window skipped (%s)", dataload.DisplayKey(key), w.Size, w.Reason))
				}
			}
			if curve.Estimate.Clamped {
				result.Notes[month] = append(result.Notes[month],
					fmt.Sprintf("%s: growth rate %.4f clamped to %.4f", dataload.DisplayKey(key), curve.Estimate.Combined, curve.Estimate.Bounded))
			}
		}
		if !curve.Monotonic {
			result.Notes[month] = append(result.Notes[month],
				fmt.Sprintf("%s: growth curve is not monotonic", dataload.DisplayKey(key)))
		}

		daily, metrics, err := r.calculator.Compute(row.Target, cal, weekly, monthly, curve.Multipliers)
		if err != nil {
			return result, fmt.Errorf("%s %s: %w", month, dataload.DisplayKey(key), err)
		}

		r.logger.Debug("computed daily breakdown",
			zap.String("op", "forecast.run"),
			zap.String("month", month),
			zap.String("series", dataload.DisplayKey(key)),
			zap.String("mode", string(curve.Mode)),
			zap.Float64("rate", curve.Rate),
			zap.Float64("smooth_day_pct", metrics.SmoothDayPct),
		)

		result.Months = append(result.Months, MonthResult{
			Row:        row,
			Breakdown:  daily,
			Metrics:    metrics,
			Mode:       curve.Mode,
			GrowthRate: curve.Rate,
			Monotonic:  curve.Monotonic,
			Fallback:   fallback,
		})

		if scenario.RollingHistory {
			rolled, err := appendBreakdown(hist, daily)
			if err != nil {
				return result, fmt.Errorf("%s %s: %w", month, dataload.DisplayKey(key), err)
			}
			rolling[key] = rolled
		}
	}

	result.Summary = Summarize(result.Months, r.conf.Common.Quality.SmoothDayThreshold)
	for month, notes := range result.Notes {
		if len(notes) == 0 {
			delete(result.Notes, month)
		}
	}
	return result, nil
}

// calendarFor returns the date dimension month for row when one was loaded,
// otherwise the Gregorian month.
func (r *runner) calendarFor(row dataload.PlanRow) (*calendar.Calendar, error) {
	if r.inputs.Calendars == nil {
		if row.Month < 1 || row.Month > 12 {
			return nil, &validation.ValidationError{Field: "month", Reason: fmt.Sprintf("month %d is not a Gregorian month", row.Month)}
		}
		return calendar.New(row.Year, time.Month(row.Month), r.weekStart), nil
	}
	cal, ok := r.inputs.Calendars[row.MonthKey()]
	if !ok {
		return nil, validation.NewConfigError("calendarFile", row.MonthKey(), "month missing from date dimension")
	}
	return cal, nil
}

// canFallBack reports whether a failed regression curve may be replaced by
// the smooth curve for this scenario.
func canFallBack(scenario config.Scenario, err error) bool {
	if scenario.Mode != constants.ModeRegression || scenario.Fallback != constants.ModeSmooth {
		return false
	}
	return validation.IsEstimationError(err) || validation.IsConfigError(err)
}

// appendBreakdown extends s with the computed days of b. The result must be
// contiguous by day.
func appendBreakdown(s history.Series, b breakdown.DailyBreakdown) (history.Series, error) {
	obs := make([]history.Observation, len(b.Entries))
	for i, e := range b.Entries {
		obs[i] = history.Observation{Date: e.Date, Value: e.Value}
	}
	rolled := s.Append(obs...)
	if err := rolled.Validate(); err != nil {
		return nil, &validation.ValidationError{
			Field:  "rollingHistory",
			Reason: err.Error(),
		}
	}
	return rolled, nil
}
