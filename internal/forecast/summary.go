package forecast

import (
	"math"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/mathutil"
)

// Summary aggregates the quality of every month of a scenario. Day-over-day
// changes are pooled across months but never span a month boundary.
type Summary struct {
	Months int `json:"months"`
	Days   int `json:"days"`

	AvgDayChange    float64 `json:"avgDayChange"`
	MaxDayChange    float64 `json:"maxDayChange"`
	AvgDayChangePct float64 `json:"avgDayChangePct"`
	MaxDayChangePct float64 `json:"maxDayChangePct"`
	SmoothDayPct    float64 `json:"smoothDayPct"`

	AvgTargetDeviationPct float64 `json:"avgTargetDeviationPct"`
	MaxTargetDeviationPct float64 `json:"maxTargetDeviationPct"`
	MinTargetDeviationPct float64 `json:"minTargetDeviationPct"`
	StdTargetDeviationPct float64 `json:"stdTargetDeviationPct"`

	NonMonotonicMonths int `json:"nonMonotonicMonths"`
	FallbackMonths     int `json:"fallbackMonths"`
}

// Summarize pools the per-month breakdowns. threshold is the relative change
// under which a day counts as smooth.
func Summarize(months []MonthResult, threshold float64) Summary {
	s := Summary{Months: len(months)}
	if len(months) == 0 {
		return s
	}

	var changes, changePcts, deviations []float64
	smooth := 0
	for _, m := range months {
		values := m.Breakdown.Values()
		s.Days += len(values)
		for i := 1; i < len(values); i++ {
			changes = append(changes, math.Abs(values[i]-values[i-1]))
			pct, ok := mathutil.PercentChange(values[i-1], values[i])
			if !ok {
				continue
			}
			pct = math.Abs(pct)
			changePcts = append(changePcts, pct)
			if pct < threshold*constants.PercentageMultiplier {
				smooth++
			}
		}
		deviations = append(deviations, math.Abs(mathutil.CalculatePercentage(m.Metrics.Total-m.Row.Target, m.Row.Target)))
		if !m.Monotonic {
			s.NonMonotonicMonths++
		}
		if m.Fallback {
			s.FallbackMonths++
		}
	}

	if len(changes) == 0 {
		s.SmoothDayPct = constants.PercentageMultiplier
	} else {
		s.SmoothDayPct = mathutil.CalculatePercentage(float64(smooth), float64(len(changes)))
		s.AvgDayChange = mathutil.Mean(changes)
		_, s.MaxDayChange = mathutil.MinMax(changes)
	}
	if len(changePcts) > 0 {
		s.AvgDayChangePct = mathutil.Mean(changePcts)
		_, s.MaxDayChangePct = mathutil.MinMax(changePcts)
	}

	s.AvgTargetDeviationPct = mathutil.Mean(deviations)
	s.MinTargetDeviationPct, s.MaxTargetDeviationPct = mathutil.MinMax(deviations)
	s.StdTargetDeviationPct = mathutil.StdDev(deviations)
	return s
}
