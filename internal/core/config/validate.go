package config

import (
	"fmt"
	"os"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/daybook/internal/core/day"
	"github.com/colonyops/daybook/internal/core/task"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep checks every field and the files the configuration refers
// to, reporting all problems as criterio.FieldErrors instead of stopping at
// the first one. The configPath argument is the config file location to
// check (empty string skips the config file check).
func (c *Config) ValidateDeep(configPath string) error {
	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateDay(),
		c.validateAllocation(),
		c.validateChunks(),
		c.validateDatabase(),
		criterio.Run("render.color", c.Render.Color, func(mode string) error {
			if !isValidColor(mode) {
				return fmt.Errorf("%q is not one of %s, %s, %s", mode, ColorAuto, ColorAlways, ColorNever)
			}
			return nil
		}),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	a := c.Allocation
	if a.Scorer == ScorerPriority && len(a.PriorityWeights) < task.MaxPriority+1 {
		warnings = append(warnings, ValidationWarning{
			Category: "Allocation",
			Item:     "priority_weights",
			Message: fmt.Sprintf("%d weights for %d priority levels, higher priorities reuse the last weight",
				len(a.PriorityWeights), task.MaxPriority+1),
		})
	}
	if a.Scorer == ScorerFlat && a.HeadroomBonus != nil && *a.HeadroomBonus > 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Allocation",
			Item:     "headroom_bonus",
			Message:  "the flat scorer ignores headroom_bonus",
		})
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		warnings = append(warnings, ValidationWarning{
			Category: "Database",
			Item:     "max_idle_conns",
			Message:  "max_idle_conns exceeds max_open_conns and is capped",
		})
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, func(path string) error {
			if path == "" {
				return fmt.Errorf("cannot be empty")
			}
			return isDirectoryOrNotExist(path)
		}),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateDay() error {
	return criterio.Run("day.start", c.Day.Start, func(s string) error {
		_, err := day.ParseClock(s)
		return err
	})
}

func (c *Config) validateAllocation() error {
	a := c.Allocation
	var errs criterio.FieldErrorsBuilder

	if a.Scale < 1 {
		errs = errs.Append("allocation.scale", fmt.Errorf("must be at least 1, got %d", a.Scale))
	}
	if a.TimeLimit < 0 {
		errs = errs.Append("allocation.time_limit", fmt.Errorf("cannot be negative"))
	}
	if a.NodeLimit < 0 {
		errs = errs.Append("allocation.node_limit", fmt.Errorf("cannot be negative"))
	}
	if !isValidScorer(a.Scorer) {
		errs = errs.Append("allocation.scorer", fmt.Errorf("%q is not one of %s, %s", a.Scorer, ScorerPriority, ScorerFlat))
	}
	for i, w := range a.PriorityWeights {
		if w < 0 {
			errs = errs.Append(fmt.Sprintf("allocation.priority_weights[%d]", i), fmt.Errorf("cannot be negative"))
		}
	}
	if a.HeadroomBonus != nil && *a.HeadroomBonus < 0 {
		errs = errs.Append("allocation.headroom_bonus", fmt.Errorf("cannot be negative"))
	}
	if a.HeadroomCap < 0 {
		errs = errs.Append("allocation.headroom_cap", fmt.Errorf("cannot be negative"))
	}
	if a.CountUnitHours < 0 {
		errs = errs.Append("allocation.count_unit_hours", fmt.Errorf("cannot be negative"))
	}

	return errs.ToError()
}

func (c *Config) validateChunks() error {
	var errs criterio.FieldErrorsBuilder
	if c.Chunks.MinTime < 0 {
		errs = errs.Append("chunks.min_time", fmt.Errorf("cannot be negative"))
	}
	if c.Chunks.MinCount < 0 {
		errs = errs.Append("chunks.min_count", fmt.Errorf("cannot be negative"))
	}
	return errs.ToError()
}

func (c *Config) validateDatabase() error {
	var errs criterio.FieldErrorsBuilder
	if c.Database.MaxOpenConns < 1 {
		errs = errs.Append("database.max_open_conns", fmt.Errorf("must be at least 1"))
	}
	if c.Database.MaxIdleConns < 0 {
		errs = errs.Append("database.max_idle_conns", fmt.Errorf("cannot be negative"))
	}
	if c.Database.BusyTimeout < 0 {
		errs = errs.Append("database.busy_timeout", fmt.Errorf("cannot be negative"))
	}
	return errs.ToError()
}
