package main

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ahrav/see-armada/internal/app/injection"
	"github.com/ahrav/see-armada/internal/config"
	"github.com/ahrav/see-armada/internal/domain/events"
	domain "github.com/ahrav/see-armada/internal/domain/injection"
	"github.com/ahrav/see-armada/internal/infra/sim/memory"
	"github.com/ahrav/see-armada/internal/infra/sink"
	"github.com/ahrav/see-armada/internal/infra/strategy"
	"github.com/ahrav/see-armada/internal/infra/timer"
)

func newTimer(spec config.TimerSpec, clk timer.Clock) (*timer.RandomTimer, error) {
	switch spec.Kind {
	case config.TimerKindExponential:
		return timer.NewExponentialTimer(clk, spec.Mean, spec.Seed)
	case config.TimerKindBounded:
		return timer.NewBoundedRandomTimer(clk, spec.Min, spec.Max, spec.Seed)
	case config.TimerKindFixed:
		return timer.New(clk, timer.FixedSampler(spec.Min)), nil
	default:
		return nil, fmt.Errorf("unknown timer kind %q", spec.Kind)
	}
}

func newGoal(spec config.GoalSpec) (domain.Goal, error) {
	switch spec.Kind {
	case config.GoalKindTotalFaults:
		return strategy.TotalFaults(spec.Count), nil
	case config.GoalKindCoverage:
		return strategy.NewCandidateCoverage(spec.Coverage)
	default:
		return nil, fmt.Errorf("unknown goal kind %q", spec.Kind)
	}
}

// newSink mirrors rounds to the design handles named in the config and, when
// enabled, to the event bus.
func newSink(
	spec config.ObservabilitySpec,
	tb *memory.Scope,
	campaignID uuid.UUID,
	publisher events.DomainEventPublisher,
) domain.ObservabilitySink {
	var sinks sink.MultiSink

	var count, name domain.Signal
	if s, ok := tb.SignalByName(spec.CountSignal); ok {
		count = s
	}
	if s, ok := tb.SignalByName(spec.NameSignal); ok {
		name = s
	}
	if count != nil || name != nil {
		sinks = append(sinks, sink.NewSignalSink(count, name))
	}
	if spec.Events && publisher != nil {
		sinks = append(sinks, sink.NewEventSink(campaignID, publisher))
	}

	if len(sinks) == 0 {
		return nil
	}
	return sinks
}

// newInjectorConfig translates file and environment configuration into the
// injector's configuration.
func newInjectorConfig(
	cfg *config.Campaign,
	env config.Env,
	clk timer.Clock,
	obs domain.ObservabilitySink,
	campaignID uuid.UUID,
) (injection.InjectorConfig, error) {
	interArrival, err := newTimer(cfg.Timer, clk)
	if err != nil {
		return injection.InjectorConfig{}, fmt.Errorf("inter-arrival timer: %w", err)
	}

	strat, err := strategy.NewRandom(strategy.RandomConfig{
		FaultsPerRound: cfg.Strategy.FaultsPerRound,
		SEURatio:       cfg.Strategy.SEURatio,
		Seed:           cfg.Strategy.Seed,
	})
	if err != nil {
		return injection.InjectorConfig{}, fmt.Errorf("strategy: %w", err)
	}

	goal, err := newGoal(cfg.Goal)
	if err != nil {
		return injection.InjectorConfig{}, fmt.Errorf("goal: %w", err)
	}

	engine := injection.EngineConfig{
		CampaignID:         campaignID,
		Name:               cfg.Name,
		InterArrivalTimer:  interArrival,
		Strategy:           strat,
		Goal:               goal,
		MaxSignalWidth:     cfg.MaxSignalWidth,
		Sink:               obs,
		RoundsPerGoalCheck: cfg.RoundsPerGoalCheck,
		PulseMode:          cfg.ResolvePulseMode(env.Simulator),
	}
	if cfg.Transient != nil {
		transient, err := newTimer(*cfg.Transient, clk)
		if err != nil {
			return injection.InjectorConfig{}, fmt.Errorf("transient timer: %w", err)
		}
		engine.TransientTimer = transient
	}

	return injection.InjectorConfig{
		Engine: engine,
		Filters: injection.Filters{
			ExcludeNames:   cfg.Filters.ExcludeNames,
			ExcludePaths:   cfg.Filters.ExcludePaths,
			ExcludeModules: cfg.Filters.ExcludeModules,
			IncludeNames:   cfg.Filters.IncludeNames,
		},
		Disabled: !bool(env.Enabled),
		Netlist:  env.Netlist,
	}, nil
}
