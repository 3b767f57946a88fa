package breakdown

import (
	"math"
	"testing"
	"time"

	"github.com/iwvelando/daily-breakdown/pkg/calendar"
	"github.com/iwvelando/daily-breakdown/pkg/growth"
	"github.com/iwvelando/daily-breakdown/pkg/mathutil"
	"github.com/iwvelando/daily-breakdown/pkg/seasonality"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func newTestCalculator(t testing.TB) *Calculator {
	t.Helper()
	c, err := NewCalculator(zap.NewNop(), DefaultOptions())
	require.NoError(t, err)
	return c
}

func TestComputeUniformScenario(t *testing.T) {
	c := newTestCalculator(t)
	cal := calendar.New(2025, time.June, time.Saturday)
	require.Equal(t, 30, cal.Len())

	result, metrics, err := c.Compute(300000, cal, ones(7), ones(31), ones(30))
	require.NoError(t, err)
	require.Len(t, result.Entries, 30)

	for _, e := range result.Entries {
		assert.InDelta(t, 10000.0, e.Value, 1e-6, "day %s", e.Label)
	}
	assert.Equal(t, 100.0, metrics.SmoothDayPct)
	assert.Equal(t, 29, metrics.SmoothDays)
	assert.InDelta(t, 0.0, metrics.AvgDayChangePct, 1e-9)
	assert.InDelta(t, 0.0, metrics.StdDev, 1e-9)
	assert.InDelta(t, 10000.0, metrics.Mean, 1e-9)
	assert.InDelta(t, 0.0, metrics.MaxTargetDeviationPct, 1e-9)
	assert.Equal(t, "2025-06", result.Month)
}

func TestComputeWeekendWeightedScenario(t *testing.T) {
	c := newTestCalculator(t)
	cal := calendar.New(2025, time.June, time.Saturday)
	// Saturday and Sunday lead a Saturday-start week.
	weekly := []float64{1.2, 1.2, 0.94, 0.94, 0.94, 0.94, 0.94}

	result, _, err := c.Compute(300000, cal, weekly, ones(31), ones(30))
	require.NoError(t, err)

	var weekend, weekday []float64
	for _, e := range result.Entries {
		switch e.Date.Weekday() {
		case time.Saturday, time.Sunday:
			weekend = append(weekend, e.Value)
		default:
			weekday = append(weekday, e.Value)
		}
	}
	minWeekend, _ := mathutil.MinMax(weekend)
	_, maxWeekday := mathutil.MinMax(weekday)
	assert.Greater(t, minWeekend, maxWeekday)
	assert.InDelta(t, 1.2/0.94, weekend[0]/weekday[0], 1e-12)
	assert.True(t, mathutil.WithinRelativeTolerance(result.Total(), 300000, 1e-9))
}

func TestComputeExactSumAndNonNegativity(t *testing.T) {
	c := newTestCalculator(t)
	registry := seasonality.NewRegistry()
	provider, err := growth.NewProvider(zap.NewNop(), growth.DefaultSmoothOptions(), nil)
	require.NoError(t, err)

	targets := []float64{1, 123.456, 300000, 9876543.21, 1e12}
	weeklyNames := registry.WeeklyNames()
	monthlyNames := registry.MonthlyNames()

	for month := time.January; month <= time.December; month++ {
		cal := calendar.New(2024, month, time.Saturday)
		curve, err := provider.Build(cal, growth.Request{Mode: growth.ModeSmooth})
		require.NoError(t, err)

		for i, target := range targets {
			weekly, err := registry.Weekly(weeklyNames[i%len(weeklyNames)])
			require.NoError(t, err)
			monthly, err := registry.Monthly(monthlyNames[int(month)%len(monthlyNames)])
			require.NoError(t, err)

			result, metrics, err := c.Compute(target, cal, weekly, monthly, curve.Multipliers)
			require.NoError(t, err)
			require.Len(t, result.Entries, cal.Len())

			assert.True(t, mathutil.WithinRelativeTolerance(result.Total(), target, 1e-9),
				"%s target %v summed to %v", cal.Key(), target, result.Total())
			for _, e := range result.Entries {
				assert.GreaterOrEqual(t, e.Value, 0.0)
			}
			assert.LessOrEqual(t, metrics.MaxTargetDeviationPct, 1e-7)
		}
	}
}

func TestComputeShortMonthlyPatternReusesLastEntry(t *testing.T) {
	c := newTestCalculator(t)
	cal := calendar.New(2025, time.July, time.Saturday)
	monthly := ones(28)
	monthly[27] = 2

	result, _, err := c.Compute(3400, cal, ones(7), monthly, ones(31))
	require.NoError(t, err)
	// Days 28..31 all take weight 2, giving 27 + 4*2 = 35 units.
	unit := 3400.0 / 35
	assert.InDelta(t, unit, result.Entries[0].Value, 1e-9)
	for _, e := range result.Entries[27:] {
		assert.InDelta(t, 2*unit, e.Value, 1e-9)
	}
}

func TestComputeValidationErrors(t *testing.T) {
	c := newTestCalculator(t)
	cal := calendar.New(2025, time.June, time.Saturday)
	empty, err := calendar.FromDays(2025, time.June, time.Saturday, nil)
	require.NoError(t, err)

	zeroGrowth := ones(30)
	zeroGrowth[14] = 0

	tests := []struct {
		name    string
		target  float64
		cal     *calendar.Calendar
		growth  []float64
		wantMsg string
	}{
		{"Zero target", 0, cal, ones(30), "target"},
		{"Negative target", -5, cal, ones(30), "target"},
		{"NaN target", math.NaN(), cal, ones(30), "target"},
		{"Empty calendar", 100, empty, nil, "calendar"},
		{"Nil calendar", 100, nil, nil, "calendar"},
		{"Curve length mismatch", 100, cal, ones(29), "growthCurve"},
		{"Zero growth entry", 100, cal, zeroGrowth, "2025-06-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Compute(tt.target, tt.cal, ones(7), ones(31), tt.growth)
			require.Error(t, err)
			assert.True(t, validation.IsValidationError(err), "got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestComputeConfigErrors(t *testing.T) {
	c := newTestCalculator(t)
	cal := calendar.New(2025, time.June, time.Saturday)

	_, _, err := c.Compute(100, cal, ones(6), ones(31), ones(30))
	assert.True(t, validation.IsConfigError(err))

	_, _, err = c.Compute(100, cal, ones(7), nil, ones(30))
	assert.True(t, validation.IsConfigError(err))
}

func TestComputeNegativeCoefficientNamesDate(t *testing.T) {
	c := newTestCalculator(t)
	cal := calendar.New(2025, time.June, time.Saturday)
	weekly := ones(7)
	weekly[3] = -1 // Tuesday

	_, _, err := c.Compute(100, cal, weekly, ones(31), ones(30))
	require.Error(t, err)
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "2025-06-03", verr.Date)
}

func TestComputeWithSeasonalSmoothing(t *testing.T) {
	c, err := NewCalculator(zap.NewNop(), Options{
		SmoothDayThreshold: 0.05,
		WeeklySmoothing:    0.5,
	})
	require.NoError(t, err)
	cal := calendar.New(2025, time.June, time.Saturday)
	weekly := []float64{1.5, 1.5, 0.8, 0.8, 0.8, 0.8, 0.8}

	plain := newTestCalculator(t)
	_, rough, err := plain.Compute(300000, cal, weekly, ones(31), ones(30))
	require.NoError(t, err)
	result, smoothed, err := c.Compute(300000, cal, weekly, ones(31), ones(30))
	require.NoError(t, err)

	assert.Less(t, smoothed.MaxDayChangePct, rough.MaxDayChangePct)
	assert.True(t, mathutil.WithinRelativeTolerance(result.Total(), 300000, 1e-9))
}

func TestNewCalculatorValidatesOptions(t *testing.T) {
	_, err := NewCalculator(nil, Options{})
	assert.True(t, validation.IsConfigError(err))

	_, err = NewCalculator(nil, Options{SmoothDayThreshold: 0.05, MonthlySmoothing: 1.5})
	assert.True(t, validation.IsConfigError(err))
}

func TestComputeIsPure(t *testing.T) {
	c := newTestCalculator(t)
	cal := calendar.New(2025, time.February, time.Saturday)
	weekly := []float64{1.2, 1.2, 0.94, 0.94, 0.94, 0.94, 0.94}
	monthly := ones(31)
	curve := ones(28)

	first, _, err := c.Compute(5000, cal, weekly, monthly, curve)
	require.NoError(t, err)
	second, _, err := c.Compute(5000, cal, weekly, monthly, curve)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []float64{1.2, 1.2, 0.94, 0.94, 0.94, 0.94, 0.94}, weekly, "inputs are not mutated")
}

func TestApplyResidualCorrectsLastDay(t *testing.T) {
	b := breakdownOf(6.5, 1, 2, 3)

	residual, err := applyResidual(&b, b.Target)
	require.NoError(t, err)
	assert.Equal(t, 0.5, residual)
	assert.Equal(t, 0.5, b.Residual)
	assert.Equal(t, []float64{1, 2, 3.5}, b.Values(), "only the last day moves")
	assert.Equal(t, 6.5, b.Total())
}

func TestApplyResidualWithinTolerance(t *testing.T) {
	b := breakdownOf(6, 1, 2, 3)

	residual, err := applyResidual(&b, 6*(1+1e-12))
	require.NoError(t, err)
	assert.Zero(t, residual)
	assert.Zero(t, b.Residual)
	assert.Equal(t, []float64{1, 2, 3}, b.Values())
}

func TestApplyResidualRejectsNegativeLastDay(t *testing.T) {
	b := breakdownOf(9, 5, 5, 0.25)
	b.Entries[2].Label = "2025-03-03"

	_, err := applyResidual(&b, b.Target)
	require.Error(t, err)
	assert.True(t, validation.IsValidationError(err))
	assert.Contains(t, err.Error(), "residual on 2025-03-03")
	assert.Equal(t, []float64{5, 5, 0.25}, b.Values())
	assert.Zero(t, b.Residual)
}

func BenchmarkCompute(b *testing.B) {
	c := newTestCalculator(b)
	registry := seasonality.NewRegistry()
	weekly, _ := registry.Weekly(seasonality.PatternDefault)
	monthly, _ := registry.Monthly(seasonality.PatternSalaryCycle)
	cal := calendar.New(2025, time.July, time.Saturday)
	curve := ones(cal.Len())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := c.Compute(1250000, cal, weekly, monthly, curve); err != nil {
			b.Fatal(err)
		}
	}
}
