// Package constants provides shared constants for the daily-breakdown application.
package constants

import "time"

// MonthLayout is the format expected in config files for target months and is
// also the month format used in output.
const MonthLayout = "2006-01"

// DateLayout is the format of a single calendar day in inputs and outputs.
const DateLayout = "2006-01-02"

// Calendar constants
const (
	// DaysPerWeek is the number of coefficients in a weekly pattern
	DaysPerWeek = 7

	// MaxDaysPerMonth is the largest day-of-month a monthly pattern can address
	MaxDaysPerMonth = 31

	// DefaultWeekStart is the weekday mapped to weekly index 0. The built-in
	// weekly patterns are ordered Saturday through Friday.
	DefaultWeekStart = "saturday"
)

// Growth constants
const (
	// DefaultGrowthRate is the daily growth rate used by the smooth curve
	DefaultGrowthRate = 0.012

	// DefaultGrowthExponent shapes the smooth curve's cumulative fraction
	DefaultGrowthExponent = 0.8

	// DefaultMinGrowthRate is the lower clamp for regression growth rates
	DefaultMinGrowthRate = 0.001

	// DefaultMaxGrowthRate is the upper clamp for regression growth rates
	DefaultMaxGrowthRate = 0.05

	// DefaultRegressionSmoothing blends a new regression rate with the prior one
	DefaultRegressionSmoothing = 0.3

	// MinRegressionWindow is the smallest window a least-squares fit accepts
	MinRegressionWindow = 2
)

// DefaultRegressionWindows are the window sizes used when a regression
// scenario does not list any.
var DefaultRegressionWindows = []int{30, 7}

// Growth modes
const (
	// ModeSmooth builds the closed-form growth curve
	ModeSmooth = "smooth"

	// ModeRegression estimates growth from historical actuals
	ModeRegression = "regression"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultReadTimeout bounds reading a request, body included
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout bounds computing and writing a response
	DefaultWriteTimeout = 60 * time.Second

	// DefaultShutdownTimeout is how long in-flight requests get on shutdown
	DefaultShutdownTimeout = 10 * time.Second

	// RequestIDHeader carries the per-request correlation ID
	RequestIDHeader = "X-Request-ID"
)

// Validation constants
const (
	// SumTolerance is the relative tolerance between a breakdown's sum and its target
	SumTolerance = 1e-9

	// DefaultSmoothDayThreshold is the day-over-day relative change below which a day counts as smooth
	DefaultSmoothDayThreshold = 0.05

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
