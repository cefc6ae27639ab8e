// Package injection implements fault-injection campaigns against a simulated
// design: building the candidate catalog, applying persistent and transient
// perturbations, and driving the campaign loop through its lifecycle.
package injection

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/see-armada/internal/domain/events"
	domain "github.com/ahrav/see-armada/internal/domain/injection"
	"github.com/ahrav/see-armada/pkg/common/logger"
)

// InjectorConfig configures an Injector.
type InjectorConfig struct {
	Engine  EngineConfig
	Filters Filters
	// Disabled turns the injector into a no-op, the environment kill switch.
	Disabled bool
	// Netlist marks a gate-level simulation. It is reported at startup.
	Netlist bool
}

// Summary is a point-in-time view of campaign progress.
type Summary struct {
	CampaignID         uuid.UUID
	Name               string
	Status             domain.CampaignStatus
	FaultsInjected     int64
	Rounds             int64
	EventID            int64
	Skipped            int64
	TransientsReverted int64
	SEUCandidates      int
	SETCandidates      int
}

// Injector is the lifecycle controller of one campaign. Start launches the
// campaign on its own goroutine, Stop requests termination and Join waits for
// the goroutine to exit.
type Injector struct {
	cfg    InjectorConfig
	engine *Engine

	mu   sync.Mutex
	done chan struct{}
	err  error

	logger *logger.Logger
}

// NewInjector creates an injector over an already built catalog.
func NewInjector(
	cfg InjectorConfig,
	catalog Catalog,
	publisher events.DomainEventPublisher,
	logger *logger.Logger,
	tracer trace.Tracer,
	metrics InjectionMetrics,
) (*Injector, error) {
	engine, err := NewEngine(cfg.Engine, catalog, publisher, logger, tracer, metrics)
	if err != nil {
		return nil, err
	}
	return &Injector{
		cfg:    cfg,
		engine: engine,
		logger: logger.With("component", "injector", "injector", engine.cfg.Name),
	}, nil
}

// NewHierarchyInjector builds the catalog from roots and creates an injector
// over it. A disabled injector skips the traversal.
func NewHierarchyInjector(
	ctx context.Context,
	cfg InjectorConfig,
	roots []domain.Node,
	publisher events.DomainEventPublisher,
	logger *logger.Logger,
	tracer trace.Tracer,
	metrics InjectionMetrics,
) (*Injector, error) {
	var catalog Catalog
	if !cfg.Disabled {
		builder, err := NewCatalogBuilder(cfg.Filters, cfg.Engine.MaxSignalWidth, logger, tracer)
		if err != nil {
			return nil, err
		}
		if catalog, err = builder.Build(ctx, roots...); err != nil {
			return nil, err
		}
	}
	return NewInjector(cfg, catalog, publisher, logger, tracer, metrics)
}

// ID returns the campaign id.
func (i *Injector) ID() uuid.UUID { return i.engine.ID() }

// Start validates the configuration and launches the campaign. It returns
// immediately; the campaign runs until its goal is met, Stop is called or ctx
// is cancelled. Cancelling ctx interrupts the round in flight, while Stop lets
// it finish.
func (i *Injector) Start(ctx context.Context) error {
	if i.cfg.Disabled {
		i.logger.Info(ctx, "fault injection disabled by environment")
		return nil
	}
	if i.cfg.Netlist {
		i.logger.Info(ctx, "netlist simulation detected")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.engine.begin(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	i.done = done
	go func() {
		defer close(done)
		err := i.engine.run(ctx)
		i.mu.Lock()
		i.err = err
		i.mu.Unlock()
	}()
	return nil
}

// Stop requests the campaign to end after the current round. It never blocks;
// use Join to wait.
func (i *Injector) Stop() {
	if i.cfg.Disabled {
		return
	}
	i.engine.RequestStop()
}

// Join blocks until the campaign goroutine has exited and returns the error
// that terminated it, if any. It returns immediately when the campaign was
// never started or is disabled.
func (i *Injector) Join(ctx context.Context) error {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		i.mu.Lock()
		defer i.mu.Unlock()
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Summary returns the current campaign counters.
func (i *Injector) Summary() Summary {
	e := i.engine
	return Summary{
		CampaignID:         e.cfg.CampaignID,
		Name:               e.cfg.Name,
		Status:             e.Status(),
		FaultsInjected:     e.faultsInjected.Load(),
		Rounds:             e.rounds.Load(),
		EventID:            e.eventID.Load(),
		Skipped:            e.skipped.Load(),
		TransientsReverted: e.reverted.Load(),
		SEUCandidates:      len(e.catalog.SEU),
		SETCandidates:      len(e.catalog.SET),
	}
}

// PrintSummary logs the campaign counters.
func (i *Injector) PrintSummary(ctx context.Context) {
	s := i.Summary()
	i.logger.Info(ctx, "campaign summary",
		"campaign_id", s.CampaignID.String(),
		"status", s.Status.String(),
		"faults_injected", s.FaultsInjected,
		"rounds", s.Rounds,
		"skipped", s.Skipped,
		"transients_reverted", s.TransientsReverted,
		"seu_candidates", s.SEUCandidates,
		"set_candidates", s.SETCandidates,
	)
}
