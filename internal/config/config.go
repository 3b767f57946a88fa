// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating the config.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/datetime"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for a daily-breakdown run.
type Configuration struct {
	Logging   LoggingConfig  `yaml:"logging,omitempty"`
	Output    OutputConfig   `yaml:"output,omitempty"`
	Data      DataConfig     `yaml:"data,omitempty"`
	Common    Common         `yaml:"common"`
	Patterns  Patterns       `yaml:"patterns,omitempty"`
	Targets   []Target       `yaml:"targets,omitempty"`
	History   []HistoryPoint `yaml:"history,omitempty"`
	Scenarios []Scenario     `yaml:"scenarios"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format  string `yaml:"format,omitempty"` // pretty, csv, json
	Summary bool   `yaml:"summary,omitempty"`
}

// DataConfig points at the input files. Relative paths are resolved against
// the directory of the configuration file. Inline Targets and History are
// used when the matching file is not set.
type DataConfig struct {
	PlanFile     string `yaml:"planFile,omitempty"`
	HistoryFile  string `yaml:"historyFile,omitempty"`
	CalendarFile string `yaml:"calendarFile,omitempty"`
}

// resolve makes relative data paths relative to dir.
func (d *DataConfig) resolve(dir string) {
	for _, p := range []*string{&d.PlanFile, &d.HistoryFile, &d.CalendarFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Common holds the numeric parameters shared by every scenario.
type Common struct {
	WeekStart   string            `yaml:"weekStart,omitempty"`
	Growth      GrowthConfig      `yaml:"growth"`
	Regression  RegressionConfig  `yaml:"regression"`
	Quality     QualityConfig     `yaml:"quality"`
	Seasonality SeasonalityConfig `yaml:"seasonality"`
}

// GrowthConfig shapes the smooth growth curve.
type GrowthConfig struct {
	Rate      float64 `yaml:"rate"`
	Exponent  float64 `yaml:"exponent"`
	Smoothing float64 `yaml:"smoothing"`
}

// RegressionConfig bounds and smooths the regression growth rate.
type RegressionConfig struct {
	MinGrowthRate float64 `yaml:"minGrowthRate"`
	MaxGrowthRate float64 `yaml:"maxGrowthRate"`
	Smoothing     float64 `yaml:"smoothing"`
}

// QualityConfig tunes the quality metrics.
type QualityConfig struct {
	SmoothDayThreshold float64 `yaml:"smoothDayThreshold"`
}

// SeasonalityConfig blends seasonal weights with their neighbours.
type SeasonalityConfig struct {
	WeeklySmoothing  float64 `yaml:"weeklySmoothing"`
	MonthlySmoothing float64 `yaml:"monthlySmoothing"`
}

// Patterns holds custom seasonality patterns registered on top of the
// built-in ones.
type Patterns struct {
	Weekly  []NamedPattern `yaml:"weekly,omitempty"`
	Monthly []NamedPattern `yaml:"monthly,omitempty"`
}

// NamedPattern is one custom coefficient vector.
type NamedPattern struct {
	Name         string    `yaml:"name"`
	Coefficients []float64 `yaml:"coefficients"`
}

// Target is an inline monthly target.
type Target struct {
	Month     string  `yaml:"month"` // YYYY-MM
	Line      string  `yaml:"line,omitempty"`
	Metric    string  `yaml:"metric,omitempty"`
	SubMetric string  `yaml:"subMetric,omitempty"`
	Target    float64 `yaml:"target"`
	Unit      string  `yaml:"unit,omitempty"`
}

// HistoryPoint is one inline day of historical actuals.
type HistoryPoint struct {
	Date      string  `yaml:"date"` // YYYY-MM-DD
	Value     float64 `yaml:"value"`
	Line      string  `yaml:"line,omitempty"`
	Metric    string  `yaml:"metric,omitempty"`
	SubMetric string  `yaml:"subMetric,omitempty"`
}

// Scenario is one breakdown method applied to every planned month.
type Scenario struct {
	Name           string         `yaml:"name"`
	Active         bool           `yaml:"active"`
	WeeklyPattern  string         `yaml:"weeklyPattern,omitempty"`
	MonthlyPattern string         `yaml:"monthlyPattern,omitempty"`
	Mode           string         `yaml:"mode,omitempty"` // smooth, regression
	Windows        []int          `yaml:"windows,omitempty"`
	WindowWeights  []WindowWeight `yaml:"windowWeights,omitempty"`
	// RollingHistory appends each computed month to the regression history
	// used for the following months of the same series.
	RollingHistory bool `yaml:"rollingHistory,omitempty"`
	// Fallback names the mode used when regression cannot estimate a rate.
	Fallback string `yaml:"fallback,omitempty"`
}

// WindowWeight overrides the size-proportional weight of one window.
type WindowWeight struct {
	Window int     `yaml:"window"`
	Weight float64 `yaml:"weight"`
}

// setDefaults registers the defaults viper applies before decoding.
func setDefaults(v *viper.Viper) {
	v.SetDefault("common.weekStart", constants.DefaultWeekStart)
	v.SetDefault("common.growth.rate", constants.DefaultGrowthRate)
	v.SetDefault("common.growth.exponent", constants.DefaultGrowthExponent)
	v.SetDefault("common.growth.smoothing", 0.0)
	v.SetDefault("common.regression.minGrowthRate", constants.DefaultMinGrowthRate)
	v.SetDefault("common.regression.maxGrowthRate", constants.DefaultMaxGrowthRate)
	v.SetDefault("common.regression.smoothing", constants.DefaultRegressionSmoothing)
	v.SetDefault("common.quality.smoothDayThreshold", constants.DefaultSmoothDayThreshold)
	v.SetDefault("common.seasonality.weeklySmoothing", 0.0)
	v.SetDefault("common.seasonality.monthlySmoothing", 0.0)
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()

	v.SetConfigType("yml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	configuration, err := decode(v)
	if err != nil {
		return nil, err
	}
	configuration.Data.resolve(filepath.Dir(configPath))
	return configuration, nil
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")
	setDefaults(v)

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.applyScenarioDefaults()
	return &configuration, nil
}

// applyScenarioDefaults fills the per-scenario fields left empty.
func (c *Configuration) applyScenarioDefaults() {
	for i := range c.Scenarios {
		s := &c.Scenarios[i]
		s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
		if s.Mode == "" {
			s.Mode = constants.ModeSmooth
		}
		if s.WeeklyPattern == "" {
			s.WeeklyPattern = "default"
		}
		if s.MonthlyPattern == "" {
			s.MonthlyPattern = "default"
		}
		if s.Mode == constants.ModeRegression && len(s.Windows) == 0 {
			s.Windows = append([]int(nil), constants.DefaultRegressionWindows...)
		}
	}
}

// WeekStartDay resolves the configured week start.
func (c *Configuration) WeekStartDay() (time.Weekday, error) {
	name := c.Common.WeekStart
	if name == "" {
		name = constants.DefaultWeekStart
	}
	return datetime.ParseWeekday(name)
}

// ActiveScenarios returns the scenarios marked active, in configuration order.
func (c *Configuration) ActiveScenarios() []Scenario {
	var active []Scenario
	for _, s := range c.Scenarios {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

// UsesFiles reports whether any input is read from disk.
func (c *Configuration) UsesFiles() bool {
	return c.Data.PlanFile != "" || c.Data.HistoryFile != "" || c.Data.CalendarFile != ""
}
