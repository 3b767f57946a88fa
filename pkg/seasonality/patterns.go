package seasonality

import "github.com/iwvelando/daily-breakdown/pkg/constants"

// Built-in pattern names.
const (
	PatternDefault         = "default"
	PatternBusinessFocused = "business_focused"
	PatternWeekendHeavy    = "weekend_heavy"
	PatternBalanced        = "balanced"
	PatternSalaryCycle     = "salary_cycle"
	PatternMonthEndHeavy   = "month_end_heavy"
)

// Weekly vectors are ordered Saturday through Friday.
func builtinWeekly() map[string][]float64 {
	return map[string][]float64{
		PatternDefault:         {0.85, 0.90, 0.95, 1.05, 1.10, 1.10, 0.85},
		PatternBusinessFocused: {0.70, 0.80, 1.15, 1.20, 1.25, 1.20, 0.70},
		PatternWeekendHeavy:    {1.20, 1.30, 0.80, 0.85, 0.90, 0.85, 1.15},
		PatternBalanced:        {1.00, 1.00, 1.00, 1.00, 1.00, 1.00, 1.00},
	}
}

func builtinMonthly() map[string][]float64 {
	balanced := make([]float64, constants.MaxDaysPerMonth)
	for i := range balanced {
		balanced[i] = 1.0
	}
	return map[string][]float64{
		PatternDefault:       defaultMonthly(),
		PatternSalaryCycle:   salaryCycleMonthly(),
		PatternMonthEndHeavy: monthEndHeavyMonthly(),
		PatternBalanced:      balanced,
	}
}

// defaultMonthly rises gently through the first half of the month and eases
// off towards the end.
func defaultMonthly() []float64 {
	coefficients := make([]float64, constants.MaxDaysPerMonth)
	for i := range coefficients {
		pos := float64(i) / 30
		switch {
		case pos < 0.25:
			coefficients[i] = 0.90 + pos*0.4
		case pos < 0.5:
			coefficients[i] = 1.00 + (pos-0.25)*0.4
		case pos < 0.75:
			coefficients[i] = 1.05 - (pos-0.5)*0.2
		default:
			coefficients[i] = 1.00 - (pos-0.75)*0.2
		}
	}
	return coefficients
}

// salaryCycleMonthly front-loads the month around pay days.
func salaryCycleMonthly() []float64 {
	coefficients := make([]float64, constants.MaxDaysPerMonth)
	for i := range coefficients {
		day := i + 1
		switch {
		case day <= 5:
			coefficients[i] = 1.30
		case day <= 10:
			coefficients[i] = 1.15
		case day <= 20:
			coefficients[i] = 0.95
		case day <= 25:
			coefficients[i] = 0.85
		default:
			coefficients[i] = 0.75
		}
	}
	return coefficients
}

func monthEndHeavyMonthly() []float64 {
	coefficients := make([]float64, constants.MaxDaysPerMonth)
	for i := range coefficients {
		pos := float64(i) / 30
		switch {
		case pos < 0.3:
			coefficients[i] = 0.80 + pos*0.4
		case pos < 0.7:
			coefficients[i] = 0.92 + (pos-0.3)*0.2
		default:
			coefficients[i] = 1.00 + (pos-0.7)*0.5
		}
	}
	return coefficients
}
