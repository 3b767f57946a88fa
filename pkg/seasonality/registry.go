// Package seasonality holds the named weekly and monthly coefficient patterns
// applied to daily weights.
package seasonality

import (
	"sort"
	"sync"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
)

// Registry is a name → coefficients store seeded with the built-in patterns.
// Built-in entries are fixed; custom entries may be added or replaced at
// runtime. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	weekly   map[string][]float64
	monthly  map[string][]float64
	builtinW map[string]struct{}
	builtinM map[string]struct{}
}

// NewRegistry returns a registry holding the built-in patterns.
func NewRegistry() *Registry {
	r := &Registry{
		weekly:   builtinWeekly(),
		monthly:  builtinMonthly(),
		builtinW: make(map[string]struct{}),
		builtinM: make(map[string]struct{}),
	}
	for name := range r.weekly {
		r.builtinW[name] = struct{}{}
	}
	for name := range r.monthly {
		r.builtinM[name] = struct{}{}
	}
	return r
}

// Weekly returns a copy of the 7 coefficients of the named weekly pattern.
func (r *Registry) Weekly(name string) ([]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	coefficients, ok := r.weekly[name]
	if !ok {
		return nil, validation.UnknownPattern("weekly", name)
	}
	return clone(coefficients), nil
}

// Monthly returns a copy of the coefficients of the named monthly pattern.
func (r *Registry) Monthly(name string) ([]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	coefficients, ok := r.monthly[name]
	if !ok {
		return nil, validation.UnknownPattern("monthly", name)
	}
	return clone(coefficients), nil
}

// RegisterWeekly adds a custom weekly pattern of exactly 7 positive
// coefficients, ordered from the calendar's week start.
func (r *Registry) RegisterWeekly(name string, coefficients []float64) error {
	if name == "" {
		return validation.NewConfigError("weeklyPattern", name, "pattern name is required")
	}
	if len(coefficients) != constants.DaysPerWeek {
		return validation.NewConfigError("weeklyPattern", name, "expected %d coefficients, got %d",
			constants.DaysPerWeek, len(coefficients))
	}
	if err := validation.ValidateCoefficients("weeklyPattern "+name, coefficients); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, builtin := r.builtinW[name]; builtin {
		return validation.NewConfigError("weeklyPattern", name, "built-in pattern cannot be replaced")
	}
	r.weekly[name] = clone(coefficients)
	return nil
}

// RegisterMonthly adds a custom monthly pattern of 1 to 31 positive
// coefficients indexed by day of month.
func (r *Registry) RegisterMonthly(name string, coefficients []float64) error {
	if name == "" {
		return validation.NewConfigError("monthlyPattern", name, "pattern name is required")
	}
	if len(coefficients) == 0 || len(coefficients) > constants.MaxDaysPerMonth {
		return validation.NewConfigError("monthlyPattern", name, "expected 1 to %d coefficients, got %d",
			constants.MaxDaysPerMonth, len(coefficients))
	}
	if err := validation.ValidateCoefficients("monthlyPattern "+name, coefficients); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, builtin := r.builtinM[name]; builtin {
		return validation.NewConfigError("monthlyPattern", name, "built-in pattern cannot be replaced")
	}
	r.monthly[name] = clone(coefficients)
	return nil
}

// WeeklyNames lists the registered weekly pattern names in sorted order.
func (r *Registry) WeeklyNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.weekly)
}

// MonthlyNames lists the registered monthly pattern names in sorted order.
func (r *Registry) MonthlyNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.monthly)
}

// MonthlyCoefficient returns the coefficient for a 1-based day of month.
// Days beyond the pattern's length reuse its last entry.
func MonthlyCoefficient(coefficients []float64, dayOfMonth int) float64 {
	if len(coefficients) == 0 {
		return 0
	}
	if dayOfMonth > len(coefficients) {
		return coefficients[len(coefficients)-1]
	}
	if dayOfMonth < 1 {
		return coefficients[0]
	}
	return coefficients[dayOfMonth-1]
}

func clone(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	return out
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
