package fileloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/see-armada/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFileLoader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewFileLoader("").Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, 128, cfg.MaxSignalWidth)
	assert.Equal(t, 1, cfg.RoundsPerGoalCheck)
	assert.Equal(t, config.TimerKindExponential, cfg.Timer.Kind)
	assert.Equal(t, time.Microsecond, cfg.Timer.Mean)
	assert.Equal(t, config.GoalKindTotalFaults, cfg.Goal.Kind)
	assert.Equal(t, 100, cfg.Goal.Count)
	assert.Nil(t, cfg.Transient)
	assert.True(t, cfg.Observability.Events)
}

func TestFileLoader_ReadsFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
name: uart
max_signal_width: 64
rounds_per_goal_check: 4
pulse_mode: rmw
filters:
  exclude_names: ["^clk$", "^rst"]
  exclude_modules: ["debug_unit"]
timer:
  kind: bounded
  min: 100ns
  max: 2us
  seed: 9
transient:
  kind: fixed
  min: 5ns
strategy:
  faults_per_round: 2
  seu_ratio: 0.25
goal:
  kind: coverage
  coverage: 0.5
observability:
  count_signal: see_count
  name_signal: see_name
  events: false
`)

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "uart", cfg.Name)
	assert.Equal(t, 64, cfg.MaxSignalWidth)
	assert.Equal(t, 4, cfg.RoundsPerGoalCheck)
	assert.Equal(t, []string{"^clk$", "^rst"}, cfg.Filters.ExcludeNames)
	assert.Equal(t, []string{"debug_unit"}, cfg.Filters.ExcludeModules)
	assert.Equal(t, config.TimerSpec{Kind: config.TimerKindBounded, Min: 100 * time.Nanosecond, Max: 2 * time.Microsecond, Seed: 9}, cfg.Timer)
	require.NotNil(t, cfg.Transient)
	assert.Equal(t, 5*time.Nanosecond, cfg.Transient.Min)
	assert.Equal(t, 2, cfg.Strategy.FaultsPerRound)
	assert.InDelta(t, 0.25, cfg.Strategy.SEURatio, 1e-9)
	assert.Equal(t, config.GoalKindCoverage, cfg.Goal.Kind)
	assert.Equal(t, "see_count", cfg.Observability.CountSignal)
	assert.False(t, cfg.Observability.Events)
	assert.Equal(t, "rmw", string(cfg.ResolvePulseMode("xcelium")))
}

func TestFileLoader_EnvOverrides(t *testing.T) {
	t.Setenv("SEE_GOAL_COUNT", "7")
	t.Setenv("SEE_NAME", "from-env")

	cfg, err := NewFileLoader(writeConfig(t, "name: from-file\n")).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 7, cfg.Goal.Count)
}

func TestFileLoader_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown timer kind", body: "timer:\n  kind: poisson\n", want: "Kind"},
		{name: "inverted bounds", body: "timer:\n  kind: bounded\n  min: 2us\n  max: 1us\n", want: "Max"},
		{name: "ratio out of range", body: "strategy:\n  seu_ratio: 1.5\n", want: "SEURatio"},
		{name: "zero rounds per check", body: "rounds_per_goal_check: 0\n", want: "RoundsPerGoalCheck"},
		{name: "unknown pulse mode", body: "pulse_mode: laser\n", want: "PulseMode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewFileLoader(writeConfig(t, tt.body)).Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFileLoader_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewFileLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load(context.Background())
	assert.Error(t, err)
}
