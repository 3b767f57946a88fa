package breakdown

import (
	"math"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/mathutil"
)

// QualityMetrics is a read-only snapshot describing a breakdown.
type QualityMetrics struct {
	Days   int     `json:"days"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`

	SmoothDays      int     `json:"smoothDays"`
	SmoothDayPct    float64 `json:"smoothDayPct"`
	AvgDayChange    float64 `json:"avgDayChange"`
	MaxDayChange    float64 `json:"maxDayChange"`
	AvgDayChangePct float64 `json:"avgDayChangePct"`
	MaxDayChangePct float64 `json:"maxDayChangePct"`

	Total                 float64 `json:"total"`
	AvgTargetDeviationPct float64 `json:"avgTargetDeviationPct"`
	MaxTargetDeviationPct float64 `json:"maxTargetDeviationPct"`
}

// ComputeMetrics derives quality metrics from a breakdown. Day-over-day
// changes and target deviations are absolute; a day is smooth when its relative change from the
// previous day is below threshold. A single-day breakdown has no transitions
// and counts as fully smooth.
func ComputeMetrics(b DailyBreakdown, threshold float64) QualityMetrics {
	values := b.Values()
	m := QualityMetrics{Days: len(values)}
	if len(values) == 0 {
		return m
	}

	m.Min, m.Max = mathutil.MinMax(values)
	m.Mean = mathutil.Mean(values)
	m.StdDev = mathutil.StdDev(values)

	var changes, changePcts []float64
	for i := 1; i < len(values); i++ {
		changes = append(changes, math.Abs(values[i]-values[i-1]))
		pct, ok := mathutil.PercentChange(values[i-1], values[i])
		if !ok {
			continue
		}
		pct = math.Abs(pct)
		changePcts = append(changePcts, pct)
		if pct < threshold*constants.PercentageMultiplier {
			m.SmoothDays++
		}
	}

	if len(changes) == 0 {
		m.SmoothDayPct = constants.PercentageMultiplier
	} else {
		m.SmoothDayPct = mathutil.CalculatePercentage(float64(m.SmoothDays), float64(len(changes)))
		m.AvgDayChange = mathutil.Mean(changes)
		_, m.MaxDayChange = mathutil.MinMax(changes)
	}
	if len(changePcts) > 0 {
		m.AvgDayChangePct = mathutil.Mean(changePcts)
		_, m.MaxDayChangePct = mathutil.MinMax(changePcts)
	}

	m.Total = mathutil.Sum(values)
	deviation := math.Abs(mathutil.CalculatePercentage(m.Total-b.Target, b.Target))
	m.AvgTargetDeviationPct = deviation
	m.MaxTargetDeviationPct = deviation
	return m
}
