// Package breakdown splits a monthly target into daily values weighted by
// seasonality and growth, and measures the quality of the result.
package breakdown

import (
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/daily-breakdown/pkg/calendar"
	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/mathutil"
	"github.com/iwvelando/daily-breakdown/pkg/seasonality"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
	"go.uber.org/zap"
)

// Entry is the value assigned to one calendar day.
type Entry struct {
	Date  time.Time
	Label string
	Value float64
}

// DailyBreakdown is the ordered daily split of one monthly target.
type DailyBreakdown struct {
	Month   string
	Target  float64
	Entries []Entry
	// Residual is the correction added to the last day to restore the exact sum.
	Residual float64
}

// Values returns the daily values in calendar order.
func (b DailyBreakdown) Values() []float64 {
	values := make([]float64, len(b.Entries))
	for i, e := range b.Entries {
		values[i] = e.Value
	}
	return values
}

// Total returns the sum of the daily values.
func (b DailyBreakdown) Total() float64 {
	return mathutil.Sum(b.Values())
}

// Options tunes the calculator.
type Options struct {
	// SmoothDayThreshold is the relative day-over-day change under which a
	// day counts as smooth.
	SmoothDayThreshold float64
	// WeeklySmoothing and MonthlySmoothing blend the per-day seasonal weights
	// with their neighbours before they are combined (0 disables).
	WeeklySmoothing  float64
	MonthlySmoothing float64
}

// DefaultOptions returns the stock calculator options.
func DefaultOptions() Options {
	return Options{SmoothDayThreshold: constants.DefaultSmoothDayThreshold}
}

// Calculator computes daily breakdowns. It holds no per-call state.
type Calculator struct {
	logger *zap.Logger
	opts   Options
}

// NewCalculator validates opts and returns a calculator.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewCalculator(logger *zap.Logger, opts Options) (*Calculator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validation.ValidatePositive("smoothDayThreshold", opts.SmoothDayThreshold); err != nil {
		return nil, err
	}
	if err := validation.ValidateFraction("weeklySmoothing", opts.WeeklySmoothing); err != nil {
		return nil, err
	}
	if err := validation.ValidateFraction("monthlySmoothing", opts.MonthlySmoothing); err != nil {
		return nil, err
	}
	return &Calculator{logger: logger, opts: opts}, nil
}

// Compute splits target over cal. Each day's weight is
// weekly[weekday] * monthly[dayOfMonth] * growth[i]; values are the target
// shared in proportion to weight. If floating-point drift leaves the sum
// outside the relative tolerance, the residual is added to the last day.
func (c *Calculator) Compute(target float64, cal *calendar.Calendar, weekly, monthly, growth []float64) (DailyBreakdown, QualityMetrics, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= 0 {
		return DailyBreakdown{}, QualityMetrics{}, &validation.ValidationError{
			Field:  "target",
			Reason: fmt.Sprintf("monthly target must be positive, got %v", target),
		}
	}
	days := cal.Len()
	if days == 0 {
		return DailyBreakdown{}, QualityMetrics{}, &validation.ValidationError{Field: "calendar", Reason: "calendar has no days"}
	}
	if len(weekly) != constants.DaysPerWeek {
		return DailyBreakdown{}, QualityMetrics{}, validation.NewConfigError("weeklyPattern", "",
			"expected %d coefficients, got %d", constants.DaysPerWeek, len(weekly))
	}
	if len(monthly) == 0 {
		return DailyBreakdown{}, QualityMetrics{}, validation.NewConfigError("monthlyPattern", "", "no coefficients supplied")
	}
	if len(growth) != days {
		return DailyBreakdown{}, QualityMetrics{}, &validation.ValidationError{
			Field:  "growthCurve",
			Reason: fmt.Sprintf("curve has %d entries for a %d-day calendar", len(growth), days),
		}
	}

	weeklyWeights := make([]float64, days)
	monthlyWeights := make([]float64, days)
	for i := 0; i < days; i++ {
		d := cal.Day(i)
		weeklyWeights[i] = weekly[d.Weekday]
		monthlyWeights[i] = seasonality.MonthlyCoefficient(monthly, d.DayOfMonth)
	}
	weeklyWeights = mathutil.SmoothNeighbors(weeklyWeights, c.opts.WeeklySmoothing)
	monthlyWeights = mathutil.SmoothNeighbors(monthlyWeights, c.opts.MonthlySmoothing)

	weights := make([]float64, days)
	for i := range weights {
		w := weeklyWeights[i] * monthlyWeights[i] * growth[i]
		if !(w > 0) || math.IsInf(w, 0) {
			return DailyBreakdown{}, QualityMetrics{}, &validation.ValidationError{
				Field:  "weight",
				Date:   cal.Day(i).Label,
				Reason: fmt.Sprintf("non-positive day weight %v (weekly %v, monthly %v, growth %v)", w, weeklyWeights[i], monthlyWeights[i], growth[i]),
			}
		}
		weights[i] = w
	}

	total := mathutil.Sum(weights)
	result := DailyBreakdown{
		Month:   cal.Key(),
		Target:  target,
		Entries: make([]Entry, days),
	}
	for i, w := range weights {
		d := cal.Day(i)
		result.Entries[i] = Entry{Date: d.Date, Label: d.Label, Value: target * w / total}
	}

	residual, err := applyResidual(&result, target)
	if err != nil {
		return DailyBreakdown{}, QualityMetrics{}, err
	}
	if residual != 0 {
		c.logger.Debug("applied renormalisation residual",
			zap.String("op", "breakdown.Compute"),
			zap.String("month", result.Month),
			zap.Float64("residual", residual),
		)
	}

	metrics := ComputeMetrics(result, c.opts.SmoothDayThreshold)
	c.logger.Debug("computed daily breakdown",
		zap.String("op", "breakdown.Compute"),
		zap.String("month", result.Month),
		zap.Int("days", days),
		zap.Float64("target", target),
		zap.Float64("deviationPct", metrics.MaxTargetDeviationPct),
	)
	return result, metrics, nil
}

// applyResidual moves the difference between target and the sum of b onto
// the last day when the sum has drifted past the tolerance, and records it in
// b.Residual. A correction that would take the last day below zero is
// rejected and b is left untouched.
func applyResidual(b *DailyBreakdown, target float64) (float64, error) {
	if len(b.Entries) == 0 {
		return 0, nil
	}
	sum := b.Total()
	if mathutil.WithinRelativeTolerance(sum, target, constants.SumTolerance) {
		return 0, nil
	}
	residual := target - sum
	last := &b.Entries[len(b.Entries)-1]
	if last.Value+residual < 0 {
		return 0, &validation.ValidationError{
			Field:  "residual",
			Date:   last.Label,
			Reason: fmt.Sprintf("correction %v would make the last day negative (value %v)", residual, last.Value),
		}
	}
	last.Value += residual
	b.Residual = residual
	return residual, nil
}
