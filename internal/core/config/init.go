package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultYAML renders the default configuration as a commented config file.
func DefaultYAML() string {
	d := DefaultConfig()
	a := d.Allocation

	weights := make([]string, len(a.PriorityWeights))
	for i, w := range a.PriorityWeights {
		weights[i] = strconv.FormatFloat(w, 'g', -1, 64)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `# daybook configuration

day:
  # Time of day where a scheduling day begins and ends.
  start: %q

allocation:
  # Split resolution: pieces are multiples of 1/scale of an hour or item.
  scale: %d
  time_limit: %s
  node_limit: %d
  # priority or flat
  scorer: %s
  # Rating per task priority level, lowest first.
  priority_weights: [%s]
  headroom_bonus: %g
  headroom_cap: %g
  # Block hours taken by one counted item.
  count_unit_hours: %g

chunks:
  min_time: %g
  min_count: %g

recurrence:
  catch_up_on_start: true

database:
  max_open_conns: %d
  max_idle_conns: %d
  busy_timeout: %d

render:
  # auto, always or never
  color: %s
`,
		d.Day.Start,
		a.Scale, a.TimeLimit, a.NodeLimit, a.Scorer, strings.Join(weights, ", "),
		*a.HeadroomBonus, a.HeadroomCap, a.CountUnitHours,
		d.Chunks.MinTime, d.Chunks.MinCount,
		d.Database.MaxOpenConns, d.Database.MaxIdleConns, d.Database.BusyTimeout,
		d.Render.Color,
	)
	return sb.String()
}

// WriteDefault writes DefaultYAML to configPath. An existing file is only
// replaced when force is set, after being copied to configPath + ".bak".
// The backup path is returned, or "" when there was nothing to back up.
func WriteDefault(configPath string, force bool) (string, error) {
	backup, err := backupConfig(configPath, force)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultYAML()), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return backup, nil
}

func backupConfig(configPath string, force bool) (string, error) {
	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read existing config: %w", err)
	}
	if !force {
		return "", fmt.Errorf("%s already exists (use --force to replace it)", configPath)
	}

	backupPath := configPath + ".bak"
	if err := os.WriteFile(backupPath, content, 0o644); err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	return backupPath, nil
}
