package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// KillSwitch is on unless its variable is exactly "0". Any other value,
// including ones that are not booleans, leaves injection enabled.
type KillSwitch bool

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *KillSwitch) UnmarshalText(text []byte) error {
	*k = KillSwitch(strings.TrimSpace(string(text)) != "0")
	return nil
}

// Env holds the process-level switches read from the environment.
type Env struct {
	// Enabled is the kill switch. SEE=0 turns every injector into a no-op;
	// any other value keeps injection on.
	Enabled KillSwitch `env:"SEE" envDefault:"1"`
	// Netlist marks a gate-level simulation.
	Netlist bool `env:"NETLIST" envDefault:"false"`
	// Simulator is the simulator product name, used once to pick the pulse protocol.
	Simulator string `env:"SIM"`
	// LogLevel is the minimum level of the campaign logger.
	LogLevel string `env:"SEE_LOG_LEVEL" envDefault:"info"`
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	e, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}

// LoadEnvFrom parses Env from the given variables instead of the process
// environment.
func LoadEnvFrom(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}
