// Package validation provides the error taxonomy of the breakdown engine and
// the boundary checks applied to user-supplied configuration.
package validation

import (
	"errors"
	"fmt"
)

// ErrUnknownPattern is wrapped by ConfigError when a pattern lookup misses.
var ErrUnknownPattern = errors.New("unknown pattern")

// ConfigError reports a bad or unknown pattern, mode or numeric setting.
type ConfigError struct {
	Field  string // e.g. "weeklyPattern", "windows", "maxGrowthRate"
	Value  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "config error"
	if e.Field != "" {
		msg += " in " + e.Field
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (%s)", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError reports an invalid target, calendar or weight at compute time.
type ValidationError struct {
	Field  string
	Date   string // set when a specific calendar day is at fault
	Reason string
}

func (e *ValidationError) Error() string {
	msg := "validation error"
	if e.Field != "" {
		msg += " in " + e.Field
	}
	if e.Date != "" {
		msg += " on " + e.Date
	}
	return msg + ": " + e.Reason
}

// EstimationError reports that a growth rate could not be derived from history.
// Window is 0 when the failure is not tied to one window.
type EstimationError struct {
	Window int
	Reason string
}

func (e *EstimationError) Error() string {
	if e.Window > 0 {
		return fmt.Sprintf("estimation error in %d-day window: %s", e.Window, e.Reason)
	}
	return "estimation error: " + e.Reason
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(field, value, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// UnknownPattern builds the ConfigError returned for a missing pattern name.
func UnknownPattern(kind, name string) *ConfigError {
	return &ConfigError{Field: kind + "Pattern", Value: name, Err: ErrUnknownPattern}
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsEstimationError reports whether err is or wraps an EstimationError.
func IsEstimationError(err error) bool {
	var target *EstimationError
	return errors.As(err, &target)
}
