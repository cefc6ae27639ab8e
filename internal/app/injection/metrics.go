package injection

import (
	"context"
	"time"

	domain "github.com/ahrav/see-armada/internal/domain/injection"
)

// Skip reasons reported to InjectionMetrics.IncSkipped.
const (
	SkipReasonWidth     = "width"
	SkipReasonUndefined = "undefined"
	SkipReasonRange     = "range"
)

// InjectionMetrics defines the metrics recorded by a campaign.
type InjectionMetrics interface {
	IncFaultsInjected(ctx context.Context, kind domain.FaultKind)
	IncRounds(ctx context.Context)
	IncSkipped(ctx context.Context, kind domain.FaultKind, reason string)
	IncTransientsReverted(ctx context.Context)
	ObserveRoundDuration(ctx context.Context, d time.Duration)
	SetCampaignActive(ctx context.Context, active bool)
}

type noopMetrics struct{}

func (noopMetrics) IncFaultsInjected(context.Context, domain.FaultKind)  {}
func (noopMetrics) IncRounds(context.Context)                            {}
func (noopMetrics) IncSkipped(context.Context, domain.FaultKind, string) {}
func (noopMetrics) IncTransientsReverted(context.Context)                {}
func (noopMetrics) ObserveRoundDuration(context.Context, time.Duration)  {}
func (noopMetrics) SetCampaignActive(context.Context, bool)              {}
