package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ahrav/see-armada/internal/domain/injection"
)

func TestLoadEnvFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		vars map[string]string
		want Env
	}{
		{
			name: "defaults",
			vars: map[string]string{},
			want: Env{Enabled: true, LogLevel: "info"},
		},
		{
			name: "kill switch and netlist",
			vars: map[string]string{"SEE": "0", "NETLIST": "1", "SIM": "Icarus Verilog", "SEE_LOG_LEVEL": "debug"},
			want: Env{Enabled: false, Netlist: true, Simulator: "Icarus Verilog", LogLevel: "debug"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := LoadEnvFrom(tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadEnvFrom_OnlyZeroDisables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		enabled bool
	}{
		{"0", false},
		{" 0 ", false},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", true},
		{"maybe", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			got, err := LoadEnvFrom(map[string]string{"SEE": tt.value})
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, bool(got.Enabled))
		})
	}
}

func TestCampaign_ResolvePulseMode(t *testing.T) {
	t.Parallel()

	var c Campaign
	assert.Equal(t, domain.PulseModeRMW, c.ResolvePulseMode("Icarus Verilog"))
	assert.Equal(t, domain.PulseModeForce, c.ResolvePulseMode("Verilator"))

	c.PulseMode = "force"
	assert.Equal(t, domain.PulseModeForce, c.ResolvePulseMode("icarus"))
}
