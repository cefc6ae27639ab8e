// Package metrics provides the OpenTelemetry instruments recorded by
// fault-injection campaigns.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/ahrav/see-armada/internal/domain/injection"
)

// Injection implements injection.InjectionMetrics.
type Injection struct {
	// Fault metrics
	faultsInjected metric.Int64Counter // labels: kind
	faultsSkipped  metric.Int64Counter // labels: kind, reason

	// Round metrics
	rounds        metric.Int64Counter
	roundDuration metric.Float64Histogram

	// Transient metrics
	transientsReverted metric.Int64Counter

	// Campaign metrics
	activeCampaigns metric.Int64UpDownCounter
}

const namespace = "injection"

// New creates the campaign instruments on mp.
func New(mp metric.MeterProvider) (*Injection, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(Injection)
	var err error

	if m.faultsInjected, err = meter.Int64Counter(
		"faults_injected_total",
		metric.WithDescription("Total number of faults applied to the design"),
	); err != nil {
		return nil, err
	}

	if m.faultsSkipped, err = meter.Int64Counter(
		"faults_skipped_total",
		metric.WithDescription("Total number of faults dropped or skipped without being applied"),
	); err != nil {
		return nil, err
	}

	if m.rounds, err = meter.Int64Counter(
		"injection_rounds_total",
		metric.WithDescription("Total number of injection rounds"),
	); err != nil {
		return nil, err
	}

	if m.roundDuration, err = meter.Float64Histogram(
		"round_duration_seconds",
		metric.WithDescription("Wall-clock time spent per injection round, including waits"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.transientsReverted, err = meter.Int64Counter(
		"transients_reverted_total",
		metric.WithDescription("Total number of transient pulses reverted"),
	); err != nil {
		return nil, err
	}

	if m.activeCampaigns, err = meter.Int64UpDownCounter(
		"active_campaigns",
		metric.WithDescription("Number of campaigns currently running"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Injection) IncFaultsInjected(ctx context.Context, kind domain.FaultKind) {
	m.faultsInjected.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}

func (m *Injection) IncSkipped(ctx context.Context, kind domain.FaultKind, reason string) {
	m.faultsSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.String("reason", reason),
	))
}

func (m *Injection) IncRounds(ctx context.Context) { m.rounds.Add(ctx, 1) }

func (m *Injection) ObserveRoundDuration(ctx context.Context, d time.Duration) {
	m.roundDuration.Record(ctx, d.Seconds())
}

func (m *Injection) IncTransientsReverted(ctx context.Context) { m.transientsReverted.Add(ctx, 1) }

func (m *Injection) SetCampaignActive(ctx context.Context, active bool) {
	if active {
		m.activeCampaigns.Add(ctx, 1)
		return
	}
	m.activeCampaigns.Add(ctx, -1)
}
