// Package configprocessor provides shared configuration processing utilities.
package configprocessor

import (
	"fmt"
	"sort"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
)

// ScenarioInfo represents scenario configuration information
type ScenarioInfo struct {
	Name           string
	Active         bool
	Mode           string
	Windows        []int
	RollingHistory bool
	Fallback       string
}

// SeriesInfo describes one planned series and the history available for it.
type SeriesInfo struct {
	Key           string
	Months        []string // planned months, YYYY-MM
	HistoryPoints int
}

// Processor handles configuration processing and validation
type Processor struct{}

// NewProcessor creates a new configuration processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ValidateConfiguration inspects a configuration that has already passed
// strict validation and returns non-fatal warnings.
func (p *Processor) ValidateConfiguration(scenarios []ScenarioInfo, series []SeriesInfo) []string {
	var warnings []string

	active := 0
	names := make(map[string]int)
	for _, scenario := range scenarios {
		names[scenario.Name]++
		if scenario.Active {
			active++
		}
	}
	if len(scenarios) > 0 && active == 0 {
		warnings = append(warnings, "No active scenarios; nothing will be computed")
	}
	dupes := make([]string, 0)
	for name, n := range names {
		if n > 1 {
			dupes = append(dupes, name)
		}
	}
	sort.Strings(dupes)
	for _, name := range dupes {
		warnings = append(warnings, fmt.Sprintf("Scenario name '%s' is used %d times", name, names[name]))
	}

	for _, scenario := range scenarios {
		if !scenario.Active || scenario.Mode != constants.ModeRegression || len(scenario.Windows) == 0 {
			continue
		}
		smallest, largest := scenario.Windows[0], scenario.Windows[0]
		for _, w := range scenario.Windows[1:] {
			if w < smallest {
				smallest = w
			}
			if w > largest {
				largest = w
			}
		}

		for _, s := range series {
			label := s.Key
			if label == "" {
				label = "(all)"
			}
			switch {
			case s.HistoryPoints < smallest && scenario.Fallback != constants.ModeSmooth:
				warnings = append(warnings, fmt.Sprintf(
					"Scenario '%s' series '%s' has %d history points, fewer than the smallest window of %d; the run will fail",
					scenario.Name, label, s.HistoryPoints, smallest))
			case s.HistoryPoints < smallest:
				warnings = append(warnings, fmt.Sprintf(
					"Scenario '%s' series '%s' has %d history points, fewer than the smallest window of %d; smooth growth will be used",
					scenario.Name, label, s.HistoryPoints, smallest))
			case s.HistoryPoints < largest && !scenario.RollingHistory:
				warnings = append(warnings, fmt.Sprintf(
					"Scenario '%s' series '%s' has %d history points; the %d-day window will be skipped",
					scenario.Name, label, s.HistoryPoints, largest))
			}

			if scenario.RollingHistory && !contiguousMonths(s.Months) {
				warnings = append(warnings, fmt.Sprintf(
					"Scenario '%s' series '%s' rolls history across non-consecutive months; the run will fail",
					scenario.Name, label))
			}
		}
	}

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

// contiguousMonths reports whether sorted YYYY-MM keys follow each other
// without gaps. Month numbers wrap from 12 to 1.
func contiguousMonths(months []string) bool {
	for i := 1; i < len(months); i++ {
		var py, pm, cy, cm int
		if _, err := fmt.Sscanf(months[i-1], "%d-%d", &py, &pm); err != nil {
			return false
		}
		if _, err := fmt.Sscanf(months[i], "%d-%d", &cy, &cm); err != nil {
			return false
		}
		next := py*12 + pm
		if cy*12+cm != next+1 {
			return false
		}
	}
	return true
}
