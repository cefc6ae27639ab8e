package injection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/see-armada/internal/domain/events"
	domain "github.com/ahrav/see-armada/internal/domain/injection"
	"github.com/ahrav/see-armada/pkg/common/logger"
)

// EngineConfig carries every option a campaign recognizes.
type EngineConfig struct {
	// CampaignID identifies the campaign in events and logs. A zero value is
	// replaced by a random id.
	CampaignID uuid.UUID
	// Name labels the injector in logs. Defaults to "default".
	Name string

	// InterArrivalTimer spaces injection rounds. Required.
	InterArrivalTimer domain.Timer
	// TransientTimer bounds the lifetime of SET pulses. When nil, pulses are
	// never reverted by the engine.
	TransientTimer domain.Timer

	// Strategy produces fault batches. Required.
	Strategy domain.Strategy
	// Goal ends the campaign once satisfied. Required.
	Goal domain.Goal

	// MaxSignalWidth drops events targeting wider signals. Defaults to
	// DefaultMaxSignalWidth.
	MaxSignalWidth int
	// Sink receives the event id and label of every round. Optional.
	Sink domain.ObservabilitySink
	// RoundsPerGoalCheck is how many rounds run between goal evaluations.
	// Zero means one; negative values are rejected.
	RoundsPerGoalCheck int
	// PulseMode selects the transient pulse protocol. Defaults to force.
	PulseMode domain.PulseMode
}

func (c *EngineConfig) applyDefaults() {
	if c.CampaignID == uuid.Nil {
		c.CampaignID = uuid.New()
	}
	if c.Name == "" {
		c.Name = "default"
	}
	if c.MaxSignalWidth <= 0 {
		c.MaxSignalWidth = DefaultMaxSignalWidth
	}
	if c.RoundsPerGoalCheck == 0 {
		c.RoundsPerGoalCheck = 1
	}
	if c.PulseMode == "" {
		c.PulseMode = domain.PulseModeForce
	}
}

func (c *EngineConfig) validate(cat Catalog) error {
	switch {
	case c.Strategy == nil:
		return domain.ErrNilStrategy
	case c.Goal == nil:
		return domain.ErrNilGoal
	case c.InterArrivalTimer == nil:
		return domain.ErrNilTimer
	case c.RoundsPerGoalCheck < 1:
		return fmt.Errorf("%w: got %d", domain.ErrInvalidRoundsPerCheck, c.RoundsPerGoalCheck)
	case cat.Size() == 0:
		return fmt.Errorf("%w: %d seu, %d set", domain.ErrNoCandidates, len(cat.SEU), len(cat.SET))
	}
	return nil
}

// Engine runs the injection loop of one campaign. It is driven by an Injector.
type Engine struct {
	cfg     EngineConfig
	catalog Catalog
	pulser  Pulser

	statusMu sync.Mutex
	status   domain.CampaignStatus

	running        atomic.Bool
	eventID        atomic.Int64
	faultsInjected atomic.Int64
	rounds         atomic.Int64
	skipped        atomic.Int64
	reverted       atomic.Int64

	publisher events.DomainEventPublisher
	metrics   InjectionMetrics

	logger *logger.Logger
	// seeLog is the per-event injection stream.
	seeLog *logger.Logger
	tracer trace.Tracer
}

// NewEngine creates an idle engine over catalog. publisher and metrics may be nil.
func NewEngine(
	cfg EngineConfig,
	catalog Catalog,
	publisher events.DomainEventPublisher,
	logger *logger.Logger,
	tracer trace.Tracer,
	metrics InjectionMetrics,
) (*Engine, error) {
	cfg.applyDefaults()
	pulser, err := NewPulser(cfg.PulseMode)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	log := logger.With("component", "injection_engine", "injector", cfg.Name, "campaign_id", cfg.CampaignID.String())
	return &Engine{
		cfg:       cfg,
		catalog:   catalog,
		pulser:    pulser,
		status:    domain.CampaignStatusIdle,
		publisher: publisher,
		metrics:   metrics,
		logger:    log,
		seeLog:    log.With("stream", "see"),
		tracer:    tracer,
	}, nil
}

// ID returns the campaign id.
func (e *Engine) ID() uuid.UUID { return e.cfg.CampaignID }

// Status returns the current lifecycle state.
func (e *Engine) Status() domain.CampaignStatus {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.status
}

// begin validates the configuration, moves the engine to running and hands the
// candidate sets to the strategy.
func (e *Engine) begin(ctx context.Context) error {
	spanCtx, span := e.tracer.Start(ctx, "injection_engine.injection.begin",
		trace.WithAttributes(
			attribute.String("campaign_id", e.cfg.CampaignID.String()),
			attribute.String("pulse_mode", e.cfg.PulseMode.String()),
		))
	defer span.End()

	if err := e.transitionToRunning(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start campaign")
		return err
	}

	e.metrics.SetCampaignActive(spanCtx, true)
	e.logger.Info(spanCtx, "campaign started",
		"seu_candidates", len(e.catalog.SEU),
		"set_candidates", len(e.catalog.SET),
		"pulse_mode", e.cfg.PulseMode.String(),
	)
	e.publish(spanCtx, domain.NewCampaignStartedEvent(e.cfg.CampaignID, e.cfg.Name, len(e.catalog.SEU), len(e.catalog.SET)))
	span.SetStatus(codes.Ok, "campaign started")

	return nil
}

func (e *Engine) transitionToRunning() error {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	if e.status != domain.CampaignStatusIdle {
		return fmt.Errorf("%w: status %s", domain.ErrCampaignAlreadyStarted, e.status)
	}
	if err := e.cfg.validate(e.catalog); err != nil {
		return err
	}
	if err := e.status.ValidateTransition(domain.CampaignStatusRunning); err != nil {
		return err
	}
	e.status = domain.CampaignStatusRunning

	e.cfg.Strategy.Initialize(e.catalog.SEU, e.catalog.SET)
	e.running.Store(true)
	return nil
}

// RequestStop asks the loop to exit at the next round boundary. A round in
// flight, including a pulse waiting on its transient timer, runs to completion.
// It never blocks. An idle engine moves straight to stopped.
func (e *Engine) RequestStop() {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	e.running.Store(false)
	if e.status == domain.CampaignStatusIdle {
		e.status = domain.CampaignStatusStopped
	}
}

// run executes rounds until the goal is met, a stop is requested or a fatal
// error occurs. The running flag is only checked between rounds; cancelling ctx
// interrupts the current round. It always leaves the engine stopped.
func (e *Engine) run(ctx context.Context) (err error) {
	defer func() { e.finish(ctx, err) }()

	candidates := e.catalog.Size()
	for e.running.Load() && !e.cfg.Goal.Evaluate(int(e.faultsInjected.Load()), candidates) {
		for range e.cfg.RoundsPerGoalCheck {
			if !e.running.Load() {
				break
			}
			if err := e.round(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) finish(ctx context.Context, err error) {
	ctx = context.WithoutCancel(ctx)

	e.statusMu.Lock()
	e.running.Store(false)
	if e.status == domain.CampaignStatusRunning {
		e.status = domain.CampaignStatusStopped
	}
	e.statusMu.Unlock()

	e.metrics.SetCampaignActive(ctx, false)
	if err != nil {
		e.logger.Error(ctx, "campaign terminated", "error", err)
	} else {
		e.logger.Info(ctx, "campaign finished",
			"faults_injected", e.faultsInjected.Load(),
			"rounds", e.rounds.Load(),
		)
	}
	e.publish(ctx, domain.NewCampaignCompletedEvent(e.cfg.CampaignID, e.faultsInjected.Load(), e.rounds.Load(), err))
}

// round performs one injection round: draw a batch, wait, apply, report,
// hold transients and revert them.
func (e *Engine) round(ctx context.Context) error {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "injection_engine.injection.inject_round")
	defer span.End()

	batch, err := e.cfg.Strategy.NextBatch()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to draw batch")
		return fmt.Errorf("draw fault batch: %w", err)
	}
	seus, sets := e.partition(ctx, batch)

	if err := e.cfg.InterArrivalTimer.Wait(ctx); err != nil {
		return waitFailed(span, "inter-arrival wait", err)
	}

	eventID := e.eventID.Add(1)
	span.SetAttributes(attribute.Int64("event_id", eventID))

	// Faults are counted as they land so a fatal error later in the round
	// does not hide corruptions already applied.
	var label strings.Builder
	applied := 0
	for _, ev := range seus {
		ok, err := e.apply(ctx, eventID, ev, func() error { return FlipPersistent(ev) })
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to apply seu")
			return err
		}
		if ok {
			applied++
			e.faultsInjected.Add(1)
			label.WriteString(ev.Label())
			label.WriteByte(' ')
		}
	}

	pulses := make([]*domain.SET, 0, len(sets))
	for _, ev := range sets {
		ok, err := e.apply(ctx, eventID, ev, func() error { return e.pulser.Apply(ctx, ev) })
		if err != nil {
			e.revert(context.WithoutCancel(ctx), eventID, pulses)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to apply set")
			return err
		}
		if ok {
			applied++
			e.faultsInjected.Add(1)
			pulses = append(pulses, ev)
			label.WriteString(ev.Label())
			label.WriteByte(' ')
		}
	}

	e.rounds.Add(1)
	e.metrics.IncRounds(ctx)
	span.SetAttributes(attribute.Int("faults_applied", applied))

	// The round has landed on the design; report it even if ctx is cancelled.
	if e.cfg.Sink != nil {
		if err := e.cfg.Sink.Record(context.WithoutCancel(ctx), eventID, label.String()); err != nil {
			e.logger.Warn(ctx, "failed to record round", "event_id", eventID, "error", err)
		}
	}

	if e.cfg.TransientTimer != nil {
		waitErr := e.cfg.TransientTimer.Wait(ctx)
		e.revert(context.WithoutCancel(ctx), eventID, pulses)
		if waitErr != nil {
			return waitFailed(span, "transient wait", waitErr)
		}
	}

	e.metrics.ObserveRoundDuration(ctx, time.Since(start))
	span.SetStatus(codes.Ok, "round injected")
	return nil
}

// waitFailed records a failed timer wait on span and wraps err with the step.
func waitFailed(span trace.Span, step string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, step+" failed")
	return fmt.Errorf("%s: %w", step, err)
}

// partition splits a batch by kind, dropping events whose target exceeds the
// width guard.
func (e *Engine) partition(ctx context.Context, batch []domain.FaultEvent) ([]*domain.SEU, []*domain.SET) {
	seus := make([]*domain.SEU, 0, len(batch))
	sets := make([]*domain.SET, 0, len(batch))
	for _, ev := range batch {
		if ev == nil {
			continue
		}
		if w := ev.Target().Width(); w > e.cfg.MaxSignalWidth {
			e.skipped.Add(1)
			e.metrics.IncSkipped(ctx, ev.Kind(), SkipReasonWidth)
			e.logger.Debug(ctx, "fault dropped by width guard",
				"path", ev.Target().Path(), "width", w, "max_width", e.cfg.MaxSignalWidth)
			continue
		}
		switch v := ev.(type) {
		case *domain.SEU:
			seus = append(seus, v)
		case *domain.SET:
			sets = append(sets, v)
		default:
			e.logger.Warn(ctx, "unknown fault event dropped", "kind", ev.Kind().String())
		}
	}
	return seus, sets
}

// apply runs fn for ev. Undefined values and out-of-range bits skip the event;
// any other error is returned as fatal.
func (e *Engine) apply(ctx context.Context, eventID int64, ev domain.FaultEvent, fn func() error) (bool, error) {
	path := ev.Target().Path()
	err := fn()
	switch {
	case err == nil:
		e.metrics.IncFaultsInjected(ctx, ev.Kind())
		e.seeLog.Info(ctx, "fault injected",
			"event_id", eventID, "kind", ev.Kind().String(), "path", path, "bit", ev.Bit())
		return true, nil

	case errors.Is(err, domain.ErrUndefinedValue):
		e.skip(ctx, eventID, ev, SkipReasonUndefined, err)
		return false, nil

	case errors.Is(err, domain.ErrBitOutOfRange):
		e.skip(ctx, eventID, ev, SkipReasonRange, err)
		return false, nil

	default:
		return false, fmt.Errorf("inject %s %s[%d]: %w", ev.Kind(), path, ev.Bit(), err)
	}
}

func (e *Engine) skip(ctx context.Context, eventID int64, ev domain.FaultEvent, reason string, err error) {
	e.skipped.Add(1)
	e.metrics.IncSkipped(ctx, ev.Kind(), reason)
	e.seeLog.Warn(ctx, "fault skipped",
		"event_id", eventID,
		"kind", ev.Kind().String(),
		"path", ev.Target().Path(),
		"bit", ev.Bit(),
		"reason", reason,
		"error", err,
	)
}

// revert ends every applied pulse in application order. Failures are logged;
// the remaining pulses are still reverted.
func (e *Engine) revert(ctx context.Context, eventID int64, pulses []*domain.SET) {
	if len(pulses) == 0 {
		return
	}
	ctx, span := e.tracer.Start(ctx, "injection_engine.injection.revert_transients",
		trace.WithAttributes(attribute.Int("pulses", len(pulses))))
	defer span.End()

	for _, ev := range pulses {
		if err := e.pulser.Revert(ctx, ev); err != nil {
			span.RecordError(err)
			e.seeLog.Warn(ctx, "failed to revert transient",
				"event_id", eventID, "path", ev.Signal.Path(), "bit", ev.BitIndex, "error", err)
			continue
		}
		e.reverted.Add(1)
		e.metrics.IncTransientsReverted(ctx)
	}
}

func (e *Engine) publish(ctx context.Context, evt events.DomainEvent) {
	if e.publisher == nil {
		return
	}
	err := e.publisher.PublishDomainEvent(ctx, evt, events.WithKey(e.cfg.CampaignID.String()))
	if err != nil {
		e.logger.Warn(ctx, "failed to publish campaign event", "event_type", string(evt.EventType()), "error", err)
	}
}
