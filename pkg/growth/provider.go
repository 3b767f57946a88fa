// Package growth builds the per-day growth multipliers applied on top of
// seasonality, either from a closed-form smooth curve or from a regression
// on historical actuals.
package growth

import (
	"fmt"
	"math"

	"github.com/iwvelando/daily-breakdown/pkg/calendar"
	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/history"
	"github.com/iwvelando/daily-breakdown/pkg/mathutil"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
	"go.uber.org/zap"
)

// Mode selects how the growth curve is produced.
type Mode string

const (
	ModeSmooth     Mode = constants.ModeSmooth
	ModeRegression Mode = constants.ModeRegression
)

// SmoothOptions shapes the closed-form curve.
type SmoothOptions struct {
	// Rate is the total lift reached on the last day of the month.
	Rate float64
	// Exponent applied to the cumulative month fraction; values below 1 ease in.
	Exponent float64
	// Smoothing blends each multiplier with its neighbours (0 disables).
	Smoothing float64
}

// DefaultSmoothOptions returns the stock smooth curve shape.
func DefaultSmoothOptions() SmoothOptions {
	return SmoothOptions{
		Rate:     constants.DefaultGrowthRate,
		Exponent: constants.DefaultGrowthExponent,
	}
}

// Request describes one curve to build.
type Request struct {
	Mode    Mode
	History history.Series
	Windows []int
	Prior   State
}

// Curve is the growth multiplier sequence for one calendar plus how it was
// derived.
type Curve struct {
	Mode        Mode
	Multipliers []float64
	Rate        float64
	Estimate    *Estimate
	State       State
	// Monotonic is false when a multiplier drops below its predecessor.
	Monotonic bool
}

// Provider builds growth curves.
type Provider struct {
	logger    *zap.Logger
	smooth    SmoothOptions
	estimator *Estimator
}

// NewProvider returns a provider. If logger is nil, it will use a no-op
// logger to prevent panics.
func NewProvider(logger *zap.Logger, smooth SmoothOptions, estimator *Estimator) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if math.IsNaN(smooth.Rate) || smooth.Rate <= -1 {
		return nil, validation.NewConfigError("growth.rate", fmt.Sprint(smooth.Rate), "must be greater than -1")
	}
	if smooth.Exponent <= 0 || smooth.Exponent >= 1 {
		return nil, validation.NewConfigError("growth.exponent", fmt.Sprint(smooth.Exponent), "must be in (0, 1)")
	}
	if err := validation.ValidateFraction("growth.smoothing", smooth.Smoothing); err != nil {
		return nil, err
	}
	if estimator == nil {
		var err error
		estimator, err = NewEstimator(logger, DefaultEstimatorOptions())
		if err != nil {
			return nil, err
		}
	}
	return &Provider{logger: logger, smooth: smooth, estimator: estimator}, nil
}

// Build produces one multiplier per calendar day. Regression mode requires a
// history at least as long as the smallest requested window and returns the
// updated smoothing state; smooth mode passes the prior state through.
func (p *Provider) Build(cal *calendar.Calendar, req Request) (Curve, error) {
	days := cal.Len()
	if days == 0 {
		return Curve{}, &validation.ValidationError{Field: "calendar", Reason: "calendar has no days"}
	}

	switch req.Mode {
	case ModeSmooth:
		multipliers := p.smoothCurve(days)
		return Curve{
			Mode:        ModeSmooth,
			Multipliers: multipliers,
			Rate:        p.smooth.Rate,
			State:       req.Prior,
			Monotonic:   isMonotonic(multipliers),
		}, nil

	case ModeRegression:
		if err := validation.ValidateWindows(req.Windows); err != nil {
			return Curve{}, err
		}
		smallest := req.Windows[0]
		for _, w := range req.Windows[1:] {
			if w < smallest {
				smallest = w
			}
		}
		if len(req.History) == 0 {
			return Curve{}, validation.NewConfigError("history", "", "regression mode requires historical actuals")
		}
		if len(req.History) < smallest {
			return Curve{}, validation.NewConfigError("history", fmt.Sprintf("%d points", len(req.History)),
				"shorter than the smallest regression window of %d", smallest)
		}

		est, err := p.estimator.Estimate(req.History, req.Windows, req.Prior)
		if err != nil {
			return Curve{}, err
		}
		multipliers := p.estimator.Curve(days, est.Rate)
		monotonic := isMonotonic(multipliers)
		if !monotonic {
			p.logger.Info("regression growth curve is not monotonic",
				zap.String("op", "growth.Build"),
				zap.String("month", cal.Key()),
				zap.Float64("rate", est.Rate),
			)
		}
		return Curve{
			Mode:        ModeRegression,
			Multipliers: multipliers,
			Rate:        est.Rate,
			Estimate:    &est,
			State:       est.State,
			Monotonic:   monotonic,
		}, nil
	}

	return Curve{}, validation.NewConfigError("mode", string(req.Mode), "expected %s or %s", ModeSmooth, ModeRegression)
}

// smoothCurve is 1 + rate * ((i+1)/n)^exponent: the lift accumulates with
// the elapsed fraction of the month and reaches rate on the last day.
func (p *Provider) smoothCurve(days int) []float64 {
	curve := make([]float64, days)
	for i := range curve {
		fraction := float64(i+1) / float64(days)
		curve[i] = 1 + p.smooth.Rate*math.Pow(fraction, p.smooth.Exponent)
	}
	return mathutil.SmoothNeighbors(curve, p.smooth.Smoothing)
}

func isMonotonic(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return false
		}
	}
	return true
}
