package config

import (
	"strings"
	"testing"

	"github.com/iwvelando/daily-breakdown/internal/dataload"
	"github.com/iwvelando/daily-breakdown/pkg/history"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
)

func validConfiguration() Configuration {
	return Configuration{
		Common: Common{
			WeekStart:  "saturday",
			Growth:     GrowthConfig{Rate: 0.012, Exponent: 0.8},
			Regression: RegressionConfig{MinGrowthRate: 0.001, MaxGrowthRate: 0.05, Smoothing: 0.3},
			Quality:    QualityConfig{SmoothDayThreshold: 0.05},
		},
		Targets: []Target{
			{Month: "2025-01", Target: 300000},
		},
		Scenarios: []Scenario{
			{Name: "original", Active: true, WeeklyPattern: "default", MonthlyPattern: "default", Mode: "smooth"},
			{Name: "regression", Active: true, WeeklyPattern: "balanced", MonthlyPattern: "salary_cycle", Mode: "regression", Windows: []int{30, 7}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Configuration)
		wantErr  bool
		contains string
	}{
		{
			name:   "Valid configuration",
			mutate: func(c *Configuration) {},
		},
		{
			name:     "Unknown weekly pattern",
			mutate:   func(c *Configuration) { c.Scenarios[0].WeeklyPattern = "nope" },
			wantErr:  true,
			contains: `scenario "original"`,
		},
		{
			name:     "Unknown monthly pattern",
			mutate:   func(c *Configuration) { c.Scenarios[1].MonthlyPattern = "nope" },
			wantErr:  true,
			contains: "monthlyPattern",
		},
		{
			name:     "Bad mode",
			mutate:   func(c *Configuration) { c.Scenarios[0].Mode = "linear" },
			wantErr:  true,
			contains: "mode",
		},
		{
			name:     "Window too small",
			mutate:   func(c *Configuration) { c.Scenarios[1].Windows = []int{30, 1} },
			wantErr:  true,
			contains: "window size must be at least 2",
		},
		{
			name:     "Duplicate window",
			mutate:   func(c *Configuration) { c.Scenarios[1].Windows = []int{7, 7} },
			wantErr:  true,
			contains: "duplicate window size",
		},
		{
			name: "Weight for an unrequested window",
			mutate: func(c *Configuration) {
				c.Scenarios[1].WindowWeights = []WindowWeight{{Window: 14, Weight: 1}}
			},
			wantErr:  true,
			contains: "not requested",
		},
		{
			name: "Non-positive window weight",
			mutate: func(c *Configuration) {
				c.Scenarios[1].WindowWeights = []WindowWeight{{Window: 7, Weight: 0}}
			},
			wantErr:  true,
			contains: "windowWeights",
		},
		{
			name:     "Unsupported fallback",
			mutate:   func(c *Configuration) { c.Scenarios[1].Fallback = "regression" },
			wantErr:  true,
			contains: "fallback",
		},
		{
			name:     "Bad week start",
			mutate:   func(c *Configuration) { c.Common.WeekStart = "someday" },
			wantErr:  true,
			contains: "common.weekStart",
		},
		{
			name:     "Inverted growth bounds",
			mutate:   func(c *Configuration) { c.Common.Regression.MinGrowthRate = 0.1 },
			wantErr:  true,
			contains: "minGrowthRate",
		},
		{
			name:     "Bad growth exponent",
			mutate:   func(c *Configuration) { c.Common.Growth.Exponent = 1.5 },
			wantErr:  true,
			contains: "growth.exponent",
		},
		{
			name:     "Zero smooth day threshold",
			mutate:   func(c *Configuration) { c.Common.Quality.SmoothDayThreshold = 0 },
			wantErr:  true,
			contains: "smoothDayThreshold",
		},
		{
			name:     "Bad output format",
			mutate:   func(c *Configuration) { c.Output.Format = "xml" },
			wantErr:  true,
			contains: "output.format",
		},
		{
			name: "Custom pattern shadows a built-in",
			mutate: func(c *Configuration) {
				c.Patterns.Weekly = []NamedPattern{{Name: "default", Coefficients: []float64{1, 1, 1, 1, 1, 1, 1}}}
			},
			wantErr:  true,
			contains: "built-in",
		},
		{
			name: "Custom pattern in use",
			mutate: func(c *Configuration) {
				c.Patterns.Weekly = []NamedPattern{{Name: "flat", Coefficients: []float64{1, 1, 1, 1, 1, 1, 1}}}
				c.Scenarios[0].WeeklyPattern = "flat"
			},
		},
		{
			name:     "No scenarios",
			mutate:   func(c *Configuration) { c.Scenarios = nil },
			wantErr:  true,
			contains: "at least one scenario",
		},
		{
			name:     "Unnamed scenario",
			mutate:   func(c *Configuration) { c.Scenarios[0].Name = " " },
			wantErr:  true,
			contains: "scenario name is required",
		},
		{
			name:     "Bad target month",
			mutate:   func(c *Configuration) { c.Targets[0].Month = "2025-13" },
			wantErr:  true,
			contains: "targets[0].month",
		},
		{
			name:     "Bad history date",
			mutate:   func(c *Configuration) { c.History = []HistoryPoint{{Date: "2025/01/01", Value: 1}} },
			wantErr:  true,
			contains: "history[0].date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := validConfiguration()
			tt.mutate(&conf)

			err := conf.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected an error")
			}
			if !validation.IsConfigError(err) {
				t.Errorf("expected a ConfigError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestEstimatorOptions(t *testing.T) {
	conf := validConfiguration()
	s := conf.Scenarios[1]

	opts := conf.EstimatorOptions(s)
	if opts.WindowWeights != nil {
		t.Errorf("expected size-proportional weights, got %v", opts.WindowWeights)
	}

	s.WindowWeights = []WindowWeight{{Window: 7, Weight: 2}, {Window: 30, Weight: 0.5}}
	opts = conf.EstimatorOptions(s)
	if opts.WindowWeights[7] != 2 || opts.WindowWeights[30] != 0.5 {
		t.Errorf("WindowWeights = %v", opts.WindowWeights)
	}
	if opts.MaxGrowthRate != 0.05 || opts.Smoothing != 0.3 {
		t.Errorf("unexpected estimator options %+v", opts)
	}
}

func TestValidateConfigurationWarnings(t *testing.T) {
	conf := validConfiguration()
	conf.Scenarios[1].Fallback = "smooth"

	inputs := dataload.Inputs{
		Plan: []dataload.PlanRow{
			{Year: 2025, Month: 1, Line: "retail", Metric: "revenue", SubMetric: "total", Target: 1},
		},
		History: map[string]history.Series{
			"retail/revenue/total": make(history.Series, 5),
		},
	}

	warnings := conf.ValidateConfiguration(inputs)
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], "smooth growth will be used") {
		t.Errorf("unexpected warning %q", warnings[0])
	}

	// Shared history under the empty key covers every series.
	inputs.History = map[string]history.Series{"": make(history.Series, 40)}
	if warnings := conf.ValidateConfiguration(inputs); warnings != nil {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}
