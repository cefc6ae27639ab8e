package config

import (
	"time"

	domain "github.com/ahrav/see-armada/internal/domain/injection"
)

// TimerKind enumerates the supported delay distributions.
type TimerKind string

const (
	TimerKindExponential TimerKind = "exponential" // mean-time-to-failure law
	TimerKindBounded     TimerKind = "bounded"     // uniform in [min, max]
	TimerKindFixed       TimerKind = "fixed"       // always min
)

// GoalKind enumerates the supported campaign goals.
type GoalKind string

const (
	GoalKindTotalFaults GoalKind = "total_faults"
	GoalKindCoverage    GoalKind = "coverage"
)

// Campaign represents the configuration of one injection campaign.
type Campaign struct {
	Name               string `mapstructure:"name" yaml:"name" validate:"required"`
	MaxSignalWidth     int    `mapstructure:"max_signal_width" yaml:"max_signal_width" validate:"gte=1"`
	RoundsPerGoalCheck int    `mapstructure:"rounds_per_goal_check" yaml:"rounds_per_goal_check" validate:"gte=1"`

	// PulseMode overrides the protocol derived from the simulator name.
	// Empty means derive it.
	PulseMode string `mapstructure:"pulse_mode" yaml:"pulse_mode,omitempty" validate:"omitempty,oneof=force rmw"`

	Filters  FilterSpec   `mapstructure:"filters" yaml:"filters"`
	Timer    TimerSpec    `mapstructure:"timer" yaml:"timer"`
	Strategy StrategySpec `mapstructure:"strategy" yaml:"strategy"`
	Goal     GoalSpec     `mapstructure:"goal" yaml:"goal"`

	// Transient bounds SET pulse lifetimes. Without it pulses are not reverted.
	Transient *TimerSpec `mapstructure:"transient" yaml:"transient,omitempty"`

	Observability ObservabilitySpec `mapstructure:"observability" yaml:"observability"`
}

// FilterSpec lists the regular expressions restricting the signal catalog.
type FilterSpec struct {
	ExcludeNames   []string `mapstructure:"exclude_names" yaml:"exclude_names,omitempty"`
	ExcludePaths   []string `mapstructure:"exclude_paths" yaml:"exclude_paths,omitempty"`
	ExcludeModules []string `mapstructure:"exclude_modules" yaml:"exclude_modules,omitempty"`
	IncludeNames   []string `mapstructure:"include_names" yaml:"include_names,omitempty"`
}

// TimerSpec describes a randomized timer.
type TimerSpec struct {
	Kind TimerKind     `mapstructure:"kind" yaml:"kind" validate:"oneof=exponential bounded fixed"`
	Mean time.Duration `mapstructure:"mean" yaml:"mean,omitempty" validate:"required_if=Kind exponential"`
	Min  time.Duration `mapstructure:"min" yaml:"min,omitempty" validate:"gte=0"`
	Max  time.Duration `mapstructure:"max" yaml:"max,omitempty" validate:"gtefield=Min"`
	Seed uint64        `mapstructure:"seed" yaml:"seed,omitempty"`
}

// StrategySpec configures the random injection strategy.
type StrategySpec struct {
	FaultsPerRound int     `mapstructure:"faults_per_round" yaml:"faults_per_round" validate:"gte=1"`
	SEURatio       float64 `mapstructure:"seu_ratio" yaml:"seu_ratio" validate:"gte=0,lte=1"`
	Seed           uint64  `mapstructure:"seed" yaml:"seed,omitempty"`
}

// GoalSpec configures when a campaign ends.
type GoalSpec struct {
	Kind     GoalKind `mapstructure:"kind" yaml:"kind" validate:"oneof=total_faults coverage"`
	Count    int      `mapstructure:"count" yaml:"count,omitempty" validate:"gte=0"`
	Coverage float64  `mapstructure:"coverage" yaml:"coverage,omitempty" validate:"gte=0,lte=1"`
}

// ObservabilitySpec names the design handles that mirror each round and
// toggles campaign event publishing.
type ObservabilitySpec struct {
	CountSignal string `mapstructure:"count_signal" yaml:"count_signal,omitempty"`
	NameSignal  string `mapstructure:"name_signal" yaml:"name_signal,omitempty"`
	Events      bool   `mapstructure:"events" yaml:"events"`
}

// ResolvePulseMode returns the configured pulse mode, or the one suited to
// simulator when none is configured.
func (c *Campaign) ResolvePulseMode(simulator string) domain.PulseMode {
	if c.PulseMode != "" {
		return domain.PulseMode(c.PulseMode)
	}
	return domain.PulseModeForSimulator(simulator)
}
