package growth

import (
	"fmt"
	"math"
	"sort"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/history"
	"github.com/iwvelando/daily-breakdown/pkg/mathutil"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
	"go.uber.org/zap"
)

// EstimatorOptions bounds and smooths the regression growth rate.
type EstimatorOptions struct {
	MinGrowthRate float64
	MaxGrowthRate float64
	// Smoothing is the share of the prior period's rate kept when blending.
	Smoothing float64
	// WindowWeights overrides the default size-proportional weight of a window.
	WindowWeights map[int]float64
}

// DefaultEstimatorOptions returns the stock clamp bounds and smoothing.
func DefaultEstimatorOptions() EstimatorOptions {
	return EstimatorOptions{
		MinGrowthRate: constants.DefaultMinGrowthRate,
		MaxGrowthRate: constants.DefaultMaxGrowthRate,
		Smoothing:     constants.DefaultRegressionSmoothing,
	}
}

// State is the caller-owned smoothing history carried between consecutive
// estimates of the same series.
type State struct {
	PriorRate float64
	HasPrior  bool
}

// WindowRate is the outcome of one sliding window.
type WindowRate struct {
	Size    int
	Slope   float64
	Rate    float64
	Weight  float64
	Skipped bool
	Reason  string
}

// Estimate is the full trace of a regression growth estimate.
type Estimate struct {
	Windows  []WindowRate
	Combined float64 // weighted average before clamping
	Clamped  bool    // Combined fell outside the bounds
	Bounded  float64 // Combined after clamping
	Rate     float64 // Bounded after smoothing with the prior state
	State    State
}

// Estimator derives a daily growth rate from historical actuals by
// log-linear regression over one or more trailing windows.
type Estimator struct {
	logger *zap.Logger
	opts   EstimatorOptions
}

// NewEstimator validates opts and returns an estimator.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewEstimator(logger *zap.Logger, opts EstimatorOptions) (*Estimator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validation.ValidateGrowthBounds(opts.MinGrowthRate, opts.MaxGrowthRate); err != nil {
		return nil, err
	}
	if err := validation.ValidateFraction("regressionSmoothing", opts.Smoothing); err != nil {
		return nil, err
	}
	if err := validation.ValidateWindowWeights(opts.WindowWeights); err != nil {
		return nil, err
	}
	return &Estimator{logger: logger, opts: opts}, nil
}

// Estimate computes the growth rate for series over the given windows.
// Windows longer than the series are skipped; if every window is skipped the
// call fails with an EstimationError. Non-positive values inside a used
// window also fail, since their logarithm is undefined.
func (e *Estimator) Estimate(series history.Series, windows []int, prior State) (Estimate, error) {
	if err := validation.ValidateWindows(windows); err != nil {
		return Estimate{}, err
	}
	if len(series) == 0 {
		return Estimate{}, &validation.EstimationError{Reason: "historical series is empty"}
	}

	ordered := append([]int(nil), windows...)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))

	var est Estimate
	var weighted, totalWeight float64
	for _, size := range ordered {
		wr := WindowRate{Size: size}
		if len(series) < size {
			wr.Skipped = true
			wr.Reason = fmt.Sprintf("needs %d points, have %d", size, len(series))
			e.logger.Debug("skipping regression window",
				zap.String("op", "growth.Estimate"),
				zap.Int("window", size),
				zap.Int("points", len(series)),
			)
			est.Windows = append(est.Windows, wr)
			continue
		}

		window := series.Tail(size)
		for _, obs := range window {
			if !(obs.Value > 0) {
				return Estimate{}, &validation.EstimationError{
					Window: size,
					Reason: fmt.Sprintf("non-positive actual %v on %s", obs.Value, obs.Date.Format(constants.DateLayout)),
				}
			}
		}

		slope, err := FitLogLinear(window.Values())
		if err != nil {
			return Estimate{}, &validation.EstimationError{Window: size, Reason: err.Error()}
		}
		wr.Slope = slope
		wr.Rate = math.Exp(slope) - 1
		wr.Weight = e.weight(size)
		weighted += wr.Rate * wr.Weight
		totalWeight += wr.Weight
		est.Windows = append(est.Windows, wr)

		e.logger.Debug("regression window fitted",
			zap.String("op", "growth.Estimate"),
			zap.Int("window", size),
			zap.Float64("slope", slope),
			zap.Float64("rate", wr.Rate),
		)
	}

	if totalWeight == 0 {
		return Estimate{}, &validation.EstimationError{
			Window: ordered[len(ordered)-1],
			Reason: fmt.Sprintf("no window fits a history of %d points", len(series)),
		}
	}

	est.Combined = weighted / totalWeight
	est.Bounded = mathutil.Clamp(est.Combined, e.opts.MinGrowthRate, e.opts.MaxGrowthRate)
	est.Clamped = est.Bounded != est.Combined
	est.Rate = e.smooth(est.Bounded, prior)
	est.State = State{PriorRate: est.Rate, HasPrior: true}

	if est.Clamped {
		e.logger.Info("regression growth rate clamped",
			zap.String("op", "growth.Estimate"),
			zap.Float64("combined", est.Combined),
			zap.Float64("bounded", est.Bounded),
		)
	}
	return est, nil
}

// Curve expands a daily rate into a per-day multiplier (1+rate)^i for
// i = 0..days-1, normalised so its mean is 1.
func (e *Estimator) Curve(days int, rate float64) []float64 {
	curve := make([]float64, days)
	for i := range curve {
		curve[i] = math.Pow(1+rate, float64(i))
	}
	return mathutil.NormalizeMean(curve)
}

func (e *Estimator) weight(size int) float64 {
	if w, ok := e.opts.WindowWeights[size]; ok {
		return w
	}
	return float64(size)
}

func (e *Estimator) smooth(rate float64, prior State) float64 {
	if !prior.HasPrior || e.opts.Smoothing == 0 {
		return rate
	}
	return (1-e.opts.Smoothing)*rate + e.opts.Smoothing*prior.PriorRate
}

// FitLogLinear fits ordinary least squares of log(value) against the index
// 0..n-1 and returns the slope. Values must be strictly positive.
func FitLogLinear(values []float64) (float64, error) {
	n := len(values)
	if n < constants.MinRegressionWindow {
		return 0, fmt.Errorf("least squares needs at least %d points, got %d", constants.MinRegressionWindow, n)
	}

	meanX := float64(n-1) / 2
	logs := make([]float64, n)
	for i, v := range values {
		if !(v > 0) {
			return 0, fmt.Errorf("cannot take log of %v at index %d", v, i)
		}
		logs[i] = math.Log(v)
	}
	// The x deviations sum to zero, so y may be centred on any constant;
	// the first log keeps a flat window at an exact zero slope.
	base := logs[0]

	var sxy, sxx float64
	for i, y := range logs {
		dx := float64(i) - meanX
		sxy += dx * (y - base)
		sxx += dx * dx
	}
	return sxy / sxx, nil
}
