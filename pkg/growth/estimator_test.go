package growth

import (
	"math"
	"testing"
	"time"

	"github.com/iwvelando/daily-breakdown/pkg/history"
	"github.com/iwvelando/daily-breakdown/pkg/mathutil"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// compounding returns n daily observations growing at a constant rate g.
func compounding(n int, start, g float64) history.Series {
	day0 := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s := make(history.Series, n)
	v := start
	for i := range s {
		s[i] = history.Observation{Date: day0.AddDate(0, 0, i), Value: v}
		v *= 1 + g
	}
	return s
}

func newTestEstimator(t *testing.T, opts EstimatorOptions) *Estimator {
	t.Helper()
	e, err := NewEstimator(zap.NewNop(), opts)
	require.NoError(t, err)
	return e
}

func TestFitLogLinear(t *testing.T) {
	values := []float64{100, 110, 121, 133.1}
	slope, err := FitLogLinear(values)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.1), slope, 1e-12)

	flat, err := FitLogLinear([]float64{5, 5, 5, 5, 5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, flat)

	_, err = FitLogLinear([]float64{5})
	assert.Error(t, err)

	_, err = FitLogLinear([]float64{5, 0, 5})
	assert.Error(t, err)
}

func TestEstimateRecoversGrowthInsideBounds(t *testing.T) {
	e := newTestEstimator(t, DefaultEstimatorOptions())

	tests := []struct {
		name string
		g    float64
	}{
		{"One percent", 0.01},
		{"Two and a half percent", 0.025},
		{"Four percent", 0.04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := e.Estimate(compounding(40, 1000, tt.g), []int{30}, State{})
			require.NoError(t, err)
			assert.InDelta(t, tt.g, est.Rate, 1e-9)
			assert.False(t, est.Clamped)
			assert.True(t, est.State.HasPrior)
			assert.Equal(t, est.Rate, est.State.PriorRate)
		})
	}
}

func TestEstimateClampsToNearestBound(t *testing.T) {
	e := newTestEstimator(t, DefaultEstimatorOptions())

	high, err := e.Estimate(compounding(30, 1000, 0.20), []int{30}, State{})
	require.NoError(t, err)
	assert.Equal(t, 0.05, high.Rate, "a 20%% daily growth clamps to exactly the upper bound")
	assert.True(t, high.Clamped)
	assert.InDelta(t, 0.20, high.Combined, 1e-9)

	low, err := e.Estimate(compounding(30, 1000, -0.02), []int{30}, State{})
	require.NoError(t, err)
	assert.Equal(t, 0.001, low.Rate)
	assert.True(t, low.Clamped)
}

func TestEstimateWeightsWindowsBySize(t *testing.T) {
	e := newTestEstimator(t, EstimatorOptions{MinGrowthRate: -0.5, MaxGrowthRate: 0.5})

	// 23 days at 1% followed by 7 days at 3%: the 7-day window only sees 3%.
	series := compounding(24, 1000, 0.01)
	last := series[len(series)-1]
	for i := 1; i <= 6; i++ {
		v := last.Value * math.Pow(1.03, float64(i))
		series = append(series, history.Observation{Date: last.Date.AddDate(0, 0, i), Value: v})
	}
	require.Len(t, series, 30)

	est, err := e.Estimate(series, []int{7, 30}, State{})
	require.NoError(t, err)
	require.Len(t, est.Windows, 2)
	assert.Equal(t, 30, est.Windows[0].Size, "windows are evaluated largest first")
	assert.Equal(t, 30.0, est.Windows[0].Weight)
	assert.Equal(t, 7.0, est.Windows[1].Weight)
	assert.InDelta(t, 0.03, est.Windows[1].Rate, 1e-9)

	expected := (est.Windows[0].Rate*30 + est.Windows[1].Rate*7) / 37
	assert.InDelta(t, expected, est.Combined, 1e-12)
}

func TestEstimateCallerWeightsOverrideSize(t *testing.T) {
	e := newTestEstimator(t, EstimatorOptions{
		MinGrowthRate: -0.5,
		MaxGrowthRate: 0.5,
		WindowWeights: map[int]float64{7: 3, 30: 1},
	})

	series := compounding(30, 1000, 0.02)
	est, err := e.Estimate(series, []int{30, 7}, State{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, est.Windows[0].Weight)
	assert.Equal(t, 3.0, est.Windows[1].Weight)
	assert.InDelta(t, 0.02, est.Combined, 1e-9)
}

func TestEstimateSkipsShortWindows(t *testing.T) {
	e := newTestEstimator(t, DefaultEstimatorOptions())

	est, err := e.Estimate(compounding(10, 1000, 0.02), []int{30, 7}, State{})
	require.NoError(t, err)
	require.Len(t, est.Windows, 2)
	assert.True(t, est.Windows[0].Skipped)
	assert.False(t, est.Windows[1].Skipped)
	assert.InDelta(t, 0.02, est.Rate, 1e-9)
}

func TestEstimateInsufficientData(t *testing.T) {
	e := newTestEstimator(t, DefaultEstimatorOptions())

	_, err := e.Estimate(compounding(10, 1000, 0.02), []int{30}, State{})
	require.Error(t, err)
	assert.True(t, validation.IsEstimationError(err))
	assert.Contains(t, err.Error(), "30-day window")
}

func TestEstimateRejectsNonPositiveActuals(t *testing.T) {
	e := newTestEstimator(t, DefaultEstimatorOptions())

	zeros := compounding(10, 1000, 0)
	for i := range zeros {
		zeros[i].Value = 0
	}
	_, err := e.Estimate(zeros, []int{7}, State{})
	require.Error(t, err)
	assert.True(t, validation.IsEstimationError(err))

	negative := compounding(10, 1000, 0.01)
	negative[8].Value = -5
	_, err = e.Estimate(negative, []int{7}, State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive")

	_, err = e.Estimate(nil, []int{7}, State{})
	assert.True(t, validation.IsEstimationError(err))
}

func TestEstimateIdenticalValuesGiveZeroRate(t *testing.T) {
	e := newTestEstimator(t, EstimatorOptions{MinGrowthRate: -0.05, MaxGrowthRate: 0.05})

	est, err := e.Estimate(compounding(14, 500, 0), []int{7}, State{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, est.Windows[0].Slope)
	assert.Equal(t, 0.0, est.Rate)
}

func TestEstimateSmoothingWithPrior(t *testing.T) {
	e := newTestEstimator(t, DefaultEstimatorOptions())
	series := compounding(30, 1000, 0.02)

	first, err := e.Estimate(series, []int{30}, State{})
	require.NoError(t, err)
	assert.InDelta(t, 0.02, first.Rate, 1e-9, "no prior means smoothing is a no-op")

	second, err := e.Estimate(series, []int{30}, State{PriorRate: 0.04, HasPrior: true})
	require.NoError(t, err)
	assert.InDelta(t, 0.7*0.02+0.3*0.04, second.Rate, 1e-9)
	assert.InDelta(t, 0.02, second.Bounded, 1e-9)
	assert.Equal(t, second.Rate, second.State.PriorRate)
}

func TestEstimateRejectsBadWindows(t *testing.T) {
	e := newTestEstimator(t, DefaultEstimatorOptions())
	series := compounding(30, 1000, 0.02)

	_, err := e.Estimate(series, nil, State{})
	assert.True(t, validation.IsConfigError(err))

	_, err = e.Estimate(series, []int{1}, State{})
	assert.True(t, validation.IsConfigError(err))
}

func TestNewEstimatorValidatesOptions(t *testing.T) {
	_, err := NewEstimator(nil, EstimatorOptions{MinGrowthRate: 0.05, MaxGrowthRate: 0.01})
	assert.True(t, validation.IsConfigError(err))

	_, err = NewEstimator(nil, EstimatorOptions{MinGrowthRate: 0, MaxGrowthRate: 0.05, Smoothing: 2})
	assert.True(t, validation.IsConfigError(err))

	_, err = NewEstimator(nil, EstimatorOptions{MaxGrowthRate: 0.05, WindowWeights: map[int]float64{7: -1}})
	assert.True(t, validation.IsConfigError(err))
}

func TestCurve(t *testing.T) {
	e := newTestEstimator(t, DefaultEstimatorOptions())

	curve := e.Curve(30, 0.02)
	require.Len(t, curve, 30)
	assert.InDelta(t, 1.0, mathutil.Mean(curve), 1e-12)
	for i := 1; i < len(curve); i++ {
		assert.InDelta(t, 1.02, curve[i]/curve[i-1], 1e-12)
	}

	flat := e.Curve(5, 0)
	for _, v := range flat {
		assert.InDelta(t, 1.0, v, 1e-15)
	}
}
