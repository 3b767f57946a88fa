package validation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMode(t *testing.T) {
	assert.NoError(t, ValidateMode("smooth"))
	assert.NoError(t, ValidateMode("regression"))

	err := ValidateMode("linear")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "linear")
}

func TestValidateWindows(t *testing.T) {
	tests := []struct {
		name      string
		windows   []int
		expectErr bool
	}{
		{"Single window", []int{30}, false},
		{"Multiple windows", []int{30, 7, 2}, false},
		{"Empty", nil, true},
		{"Window of one", []int{30, 1}, true},
		{"Zero window", []int{0}, true},
		{"Negative window", []int{-7}, true},
		{"Duplicate", []int{7, 7}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindows(tt.windows)
			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateWindowWeights(t *testing.T) {
	assert.NoError(t, ValidateWindowWeights(nil))
	assert.NoError(t, ValidateWindowWeights(map[int]float64{30: 2, 7: 1}))
	assert.Error(t, ValidateWindowWeights(map[int]float64{7: 0}))
	assert.Error(t, ValidateWindowWeights(map[int]float64{7: math.NaN()}))
}

func TestValidateGrowthBounds(t *testing.T) {
	assert.NoError(t, ValidateGrowthBounds(0.001, 0.05))
	assert.NoError(t, ValidateGrowthBounds(-0.01, 0.05))
	assert.NoError(t, ValidateGrowthBounds(0.02, 0.02))
	assert.Error(t, ValidateGrowthBounds(0.05, 0.001))
	assert.Error(t, ValidateGrowthBounds(-1, 0.05))
	assert.Error(t, ValidateGrowthBounds(math.NaN(), 0.05))
}

func TestValidateFractionAndPositive(t *testing.T) {
	assert.NoError(t, ValidateFraction("smoothing", 0))
	assert.NoError(t, ValidateFraction("smoothing", 1))
	assert.Error(t, ValidateFraction("smoothing", 1.5))
	assert.Error(t, ValidateFraction("smoothing", -0.1))

	assert.NoError(t, ValidatePositive("smoothDayThreshold", 0.05))
	assert.Error(t, ValidatePositive("smoothDayThreshold", 0))
	assert.Error(t, ValidatePositive("smoothDayThreshold", math.Inf(1)))
}

func TestValidateCoefficients(t *testing.T) {
	assert.NoError(t, ValidateCoefficients("weekly", []float64{1, 1, 1}))

	err := ValidateCoefficients("weekly", []float64{1, 0, 1})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "index 1", cfgErr.Value)

	assert.Error(t, ValidateCoefficients("weekly", []float64{1, -0.5}))
	assert.Error(t, ValidateCoefficients("weekly", nil))
}

func TestErrorMessagesNameTheInput(t *testing.T) {
	unknown := UnknownPattern("weekly", "nope")
	assert.True(t, errors.Is(unknown, ErrUnknownPattern))
	assert.Contains(t, unknown.Error(), "nope")
	assert.Contains(t, unknown.Error(), "unknown pattern")

	valErr := &ValidationError{Field: "weight", Date: "2025-06-03", Reason: "non-positive weight"}
	assert.Contains(t, valErr.Error(), "2025-06-03")
	assert.True(t, IsValidationError(valErr))

	estErr := &EstimationError{Window: 30, Reason: "insufficient data"}
	assert.Contains(t, estErr.Error(), "30-day window")
	assert.True(t, IsEstimationError(estErr))
	assert.False(t, IsEstimationError(valErr))
}
