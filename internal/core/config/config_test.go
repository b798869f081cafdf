package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daybook/internal/core/day"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()

	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path, dataDir)
		require.NoError(t, err)

		want := DefaultConfig()
		want.DataDir = dataDir
		assert.Equal(t, &want, cfg)
		assert.Equal(t, day.DefaultDayStart, cfg.Day.DayStart())
		assert.True(t, cfg.Recurrence.CatchUp())
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
day:
  start: "05:30"
allocation:
  scale: 4
  time_limit: 3s
  scorer: flat
  headroom_bonus: 0
recurrence:
  catch_up_on_start: false
render:
  color: never
`)

	cfg, err := Load(path, "/tmp/daybook")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/daybook", cfg.DataDir)
	assert.Equal(t, day.MustClock("05:30"), cfg.Day.DayStart())
	assert.Equal(t, 4, cfg.Allocation.Scale)
	assert.Equal(t, 3*time.Second, cfg.Allocation.TimeLimit)
	assert.Equal(t, ScorerFlat, cfg.Allocation.Scorer)
	require.NotNil(t, cfg.Allocation.HeadroomBonus)
	assert.Zero(t, *cfg.Allocation.HeadroomBonus)
	assert.False(t, cfg.Recurrence.CatchUp())
	assert.Equal(t, ColorNever, cfg.Render.Color)

	// Untouched sections keep their defaults.
	assert.Equal(t, 20000, cfg.Allocation.NodeLimit)
	assert.Equal(t, 0.25, cfg.Chunks.MinTime)
	assert.Equal(t, 5000, cfg.Database.BusyTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "day: [unclosed"},
		{"bad day start", "day:\n  start: \"4pm\"\n"},
		{"unknown scorer", "allocation:\n  scorer: random\n"},
		{"negative weight", "allocation:\n  priority_weights: [1, -1]\n"},
		{"unknown color", "render:\n  color: rainbow\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), t.TempDir())
			assert.Error(t, err)
		})
	}
}

func TestLoad_EmptyDataDir(t *testing.T) {
	_, err := Load("", "")
	assert.Error(t, err)
}
