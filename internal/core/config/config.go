// Package config handles configuration loading and validation for daybook.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/daybook/internal/core/day"
)

// Scorer names accepted by allocation.scorer.
const (
	ScorerPriority = "priority"
	ScorerFlat     = "flat"
)

// Color modes accepted by render.color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds the application configuration.
type Config struct {
	Day        DayConfig        `yaml:"day"`
	Allocation AllocationConfig `yaml:"allocation"`
	Chunks     ChunksConfig     `yaml:"chunks"`
	Recurrence RecurrenceConfig `yaml:"recurrence"`
	Database   DatabaseConfig   `yaml:"database"`
	Render     RenderConfig     `yaml:"render"`
	DataDir    string           `yaml:"-"` // set by caller, not from config file
}

// DayConfig configures the scheduling day.
type DayConfig struct {
	Start string `yaml:"start"` // HH:MM boundary where a scheduling day begins
}

// DayStart returns the parsed day boundary. Load has already validated it.
func (d DayConfig) DayStart() day.Clock {
	c, err := day.ParseClock(d.Start)
	if err != nil {
		return day.DefaultDayStart
	}
	return c
}

// AllocationConfig tunes the allocation engine.
type AllocationConfig struct {
	Scale           int           `yaml:"scale"`
	TimeLimit       time.Duration `yaml:"time_limit"`
	NodeLimit       int           `yaml:"node_limit"`
	Scorer          string        `yaml:"scorer"`
	PriorityWeights []float64     `yaml:"priority_weights"`
	HeadroomBonus   *float64      `yaml:"headroom_bonus"` // nil = default, 0 disables
	HeadroomCap     float64       `yaml:"headroom_cap"`
	CountUnitHours  float64       `yaml:"count_unit_hours"`
}

// ChunksConfig holds the default minimum chunk sizes.
type ChunksConfig struct {
	MinTime  float64 `yaml:"min_time"`  // hours
	MinCount float64 `yaml:"min_count"` // items
}

// RecurrenceConfig controls recurring-task rollover.
type RecurrenceConfig struct {
	CatchUpOnStart *bool `yaml:"catch_up_on_start"`
}

// CatchUp reports whether due recurring tasks roll over at startup.
func (r RecurrenceConfig) CatchUp() bool {
	return r.CatchUpOnStart == nil || *r.CatchUpOnStart
}

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	Color string `yaml:"color"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	bonus := 1.0
	return Config{
		Day: DayConfig{Start: day.DefaultDayStart.String()},
		Allocation: AllocationConfig{
			Scale:           10,
			TimeLimit:       2 * time.Second,
			NodeLimit:       20000,
			Scorer:          ScorerPriority,
			PriorityWeights: []float64{1, 2, 3, 5, 8, 13},
			HeadroomBonus:   &bonus,
			HeadroomCap:     2,
			CountUnitHours:  0.5,
		},
		Chunks: ChunksConfig{
			MinTime:  0.25,
			MinCount: 1,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 2,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
		Render: RenderConfig{Color: ColorAuto},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	var cfg Config
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Day.Start == "" {
		c.Day.Start = defaults.Day.Start
	}

	a, da := &c.Allocation, defaults.Allocation
	if a.Scale == 0 {
		a.Scale = da.Scale
	}
	if a.TimeLimit == 0 {
		a.TimeLimit = da.TimeLimit
	}
	if a.NodeLimit == 0 {
		a.NodeLimit = da.NodeLimit
	}
	if a.Scorer == "" {
		a.Scorer = da.Scorer
	}
	if len(a.PriorityWeights) == 0 {
		a.PriorityWeights = da.PriorityWeights
	}
	if a.HeadroomBonus == nil {
		a.HeadroomBonus = da.HeadroomBonus
	}
	if a.HeadroomCap == 0 {
		a.HeadroomCap = da.HeadroomCap
	}
	if a.CountUnitHours == 0 {
		a.CountUnitHours = da.CountUnitHours
	}

	if c.Chunks.MinTime == 0 {
		c.Chunks.MinTime = defaults.Chunks.MinTime
	}
	if c.Chunks.MinCount == 0 {
		c.Chunks.MinCount = defaults.Chunks.MinCount
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}

	if c.Render.Color == "" {
		c.Render.Color = defaults.Render.Color
	}
}

// Validate checks that the configuration is valid. It stops at the first
// problem; ValidateDeep reports every field.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if _, err := day.ParseClock(c.Day.Start); err != nil {
		return fmt.Errorf("day.start: %w", err)
	}

	if c.Allocation.Scale < 1 {
		return fmt.Errorf("allocation.scale must be at least 1")
	}
	if c.Allocation.TimeLimit < 0 {
		return fmt.Errorf("allocation.time_limit cannot be negative")
	}
	if c.Allocation.NodeLimit < 0 {
		return fmt.Errorf("allocation.node_limit cannot be negative")
	}
	if !isValidScorer(c.Allocation.Scorer) {
		return fmt.Errorf("allocation.scorer %q is not one of %s, %s", c.Allocation.Scorer, ScorerPriority, ScorerFlat)
	}
	for i, w := range c.Allocation.PriorityWeights {
		if w < 0 {
			return fmt.Errorf("allocation.priority_weights[%d] cannot be negative", i)
		}
	}
	if c.Allocation.HeadroomBonus != nil && *c.Allocation.HeadroomBonus < 0 {
		return fmt.Errorf("allocation.headroom_bonus cannot be negative")
	}
	if c.Allocation.HeadroomCap < 0 {
		return fmt.Errorf("allocation.headroom_cap cannot be negative")
	}
	if c.Allocation.CountUnitHours < 0 {
		return fmt.Errorf("allocation.count_unit_hours cannot be negative")
	}

	if c.Chunks.MinTime < 0 || c.Chunks.MinCount < 0 {
		return fmt.Errorf("chunks minimums cannot be negative")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout cannot be negative")
	}

	if !isValidColor(c.Render.Color) {
		return fmt.Errorf("render.color %q is not one of %s, %s, %s", c.Render.Color, ColorAuto, ColorAlways, ColorNever)
	}

	return nil
}

func isValidScorer(name string) bool {
	return name == ScorerPriority || name == ScorerFlat
}

func isValidColor(mode string) bool {
	switch mode {
	case ColorAuto, ColorAlways, ColorNever:
		return true
	}
	return false
}
