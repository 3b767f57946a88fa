// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
)

// WithinTolerance checks if two values are within a specified absolute tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// WithinRelativeTolerance checks if val is within tolerance of reference,
// measured relative to the magnitude of reference. A zero reference falls
// back to an absolute comparison.
func WithinRelativeTolerance(val, reference, tolerance float64) bool {
	scale := math.Abs(reference)
	if scale == 0 {
		return math.Abs(val) <= tolerance
	}
	return math.Abs(val-reference) <= tolerance*scale
}

// Clamp bounds a value to the closed interval [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// Sum adds values with Neumaier compensation so long series of similar
// magnitudes do not accumulate rounding drift.
func Sum(values []float64) float64 {
	sum := 0.0
	compensation := 0.0
	for _, v := range values {
		t := sum + v
		if math.Abs(sum) >= math.Abs(v) {
			compensation += (sum - t) + v
		} else {
			compensation += (v - t) + sum
		}
		sum = t
	}
	return sum + compensation
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator). Fewer than
// two values yield 0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	squares := make([]float64, len(values))
	for i, v := range values {
		d := v - mean
		squares[i] = d * d
	}
	return math.Sqrt(Sum(squares) / float64(len(values)-1))
}

// MinMax returns the smallest and largest value. Both are 0 for an empty slice.
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// PercentChange returns the relative change from previous to current in
// percent. ok is false when previous is zero and the change is undefined.
func PercentChange(previous, current float64) (pct float64, ok bool) {
	if previous == 0 {
		return 0, false
	}
	return (current - previous) / previous * constants.PercentageMultiplier, true
}

// SmoothNeighbors blends every weight with the mean of itself and its direct
// neighbours: w'[i] = w[i]*(1-factor) + mean(w[i-1..i+1])*factor. Edges
// average over the two available points. A factor of 0 returns a copy.
func SmoothNeighbors(weights []float64, factor float64) []float64 {
	smoothed := make([]float64, len(weights))
	if factor == 0 || len(weights) < 2 {
		copy(smoothed, weights)
		return smoothed
	}

	last := len(weights) - 1
	for i, w := range weights {
		var local float64
		switch i {
		case 0:
			local = (w + weights[1]) / 2
		case last:
			local = (weights[i-1] + w) / 2
		default:
			local = (weights[i-1] + w + weights[i+1]) / 3
		}
		smoothed[i] = w*(1-factor) + local*factor
	}
	return smoothed
}

// NormalizeMean rescales values so their mean equals 1. A slice with a zero
// mean is returned unchanged as a copy.
func NormalizeMean(values []float64) []float64 {
	normalized := make([]float64, len(values))
	mean := Mean(values)
	if mean == 0 {
		copy(normalized, values)
		return normalized
	}
	for i, v := range values {
		normalized[i] = v / mean
	}
	return normalized
}
