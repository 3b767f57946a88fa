package validation

import (
	"fmt"
	"math"
	"strconv"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
)

// ValidateMode checks the growth curve mode.
func ValidateMode(mode string) error {
	if mode != constants.ModeSmooth && mode != constants.ModeRegression {
		return NewConfigError("mode", mode, "expected %s or %s", constants.ModeSmooth, constants.ModeRegression)
	}
	return nil
}

// ValidateWindows checks a regression window list: non-empty, every size at
// least the minimum a least-squares fit needs, no duplicates.
func ValidateWindows(windows []int) error {
	if len(windows) == 0 {
		return NewConfigError("windows", "", "at least one regression window is required")
	}
	seen := make(map[int]struct{}, len(windows))
	for _, w := range windows {
		if w < constants.MinRegressionWindow {
			return NewConfigError("windows", strconv.Itoa(w), "window size must be at least %d", constants.MinRegressionWindow)
		}
		if _, dup := seen[w]; dup {
			return NewConfigError("windows", strconv.Itoa(w), "duplicate window size")
		}
		seen[w] = struct{}{}
	}
	return nil
}

// ValidateWindowWeights checks caller-supplied per-window weights.
func ValidateWindowWeights(weights map[int]float64) error {
	for w, weight := range weights {
		if !(weight > 0) || math.IsInf(weight, 0) {
			return NewConfigError("windowWeights", strconv.Itoa(w), "weight must be a positive number, got %v", weight)
		}
	}
	return nil
}

// ValidateGrowthBounds checks the regression clamp interval.
func ValidateGrowthBounds(minRate, maxRate float64) error {
	if math.IsNaN(minRate) || math.IsNaN(maxRate) {
		return NewConfigError("growthBounds", "", "bounds must be numbers")
	}
	if minRate <= -1 {
		return NewConfigError("minGrowthRate", formatFloat(minRate), "must be greater than -1")
	}
	if minRate > maxRate {
		return NewConfigError("minGrowthRate", formatFloat(minRate), "must not exceed maxGrowthRate %s", formatFloat(maxRate))
	}
	return nil
}

// ValidateFraction checks that a blending factor lies in [0, 1].
func ValidateFraction(field string, value float64) error {
	if math.IsNaN(value) || value < 0 || value > 1 {
		return NewConfigError(field, formatFloat(value), "must be between 0 and 1")
	}
	return nil
}

// ValidatePositive checks that a numeric setting is strictly positive and finite.
func ValidatePositive(field string, value float64) error {
	if !(value > 0) || math.IsInf(value, 0) {
		return NewConfigError(field, formatFloat(value), "must be a positive number")
	}
	return nil
}

// ValidateCoefficients checks that every seasonality coefficient is a
// positive finite number.
func ValidateCoefficients(field string, coefficients []float64) error {
	if len(coefficients) == 0 {
		return NewConfigError(field, "", "no coefficients supplied")
	}
	for i, c := range coefficients {
		if !(c > 0) || math.IsInf(c, 0) {
			return NewConfigError(field, fmt.Sprintf("index %d", i), "coefficient must be positive, got %v", c)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
