package injection

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/see-armada/internal/domain/events"
)

// Campaign event types published for external monitors.
const (
	EventTypeCampaignStarted    events.EventType = "CampaignStarted"
	EventTypeFaultRoundInjected events.EventType = "FaultRoundInjected"
	EventTypeCampaignCompleted  events.EventType = "CampaignCompleted"
)

// CampaignStartedEvent is published when the injection loop begins.
type CampaignStartedEvent struct {
	CampaignID    uuid.UUID
	Name          string
	SEUCandidates int
	SETCandidates int
	occurredAt    time.Time
}

// NewCampaignStartedEvent creates a CampaignStartedEvent.
func NewCampaignStartedEvent(id uuid.UUID, name string, seu, set int) CampaignStartedEvent {
	return CampaignStartedEvent{
		CampaignID:    id,
		Name:          name,
		SEUCandidates: seu,
		SETCandidates: set,
		occurredAt:    time.Now(),
	}
}

func (e CampaignStartedEvent) EventType() events.EventType { return EventTypeCampaignStarted }
func (e CampaignStartedEvent) OccurredAt() time.Time       { return e.occurredAt }

// FaultRoundInjectedEvent mirrors one injection round: its event id and the
// composite label of every fault applied in it.
type FaultRoundInjectedEvent struct {
	CampaignID uuid.UUID
	EventID    int64
	Label      string
	occurredAt time.Time
}

// NewFaultRoundInjectedEvent creates a FaultRoundInjectedEvent.
func NewFaultRoundInjectedEvent(id uuid.UUID, eventID int64, label string) FaultRoundInjectedEvent {
	return FaultRoundInjectedEvent{CampaignID: id, EventID: eventID, Label: label, occurredAt: time.Now()}
}

func (e FaultRoundInjectedEvent) EventType() events.EventType { return EventTypeFaultRoundInjected }
func (e FaultRoundInjectedEvent) OccurredAt() time.Time       { return e.occurredAt }

// CampaignCompletedEvent is published when the injection loop exits.
type CampaignCompletedEvent struct {
	CampaignID     uuid.UUID
	FaultsInjected int64
	Rounds         int64
	Err            string
	occurredAt     time.Time
}

// NewCampaignCompletedEvent creates a CampaignCompletedEvent. err may be nil.
func NewCampaignCompletedEvent(id uuid.UUID, faults, rounds int64, err error) CampaignCompletedEvent {
	evt := CampaignCompletedEvent{CampaignID: id, FaultsInjected: faults, Rounds: rounds, occurredAt: time.Now()}
	if err != nil {
		evt.Err = err.Error()
	}
	return evt
}

func (e CampaignCompletedEvent) EventType() events.EventType { return EventTypeCampaignCompleted }
func (e CampaignCompletedEvent) OccurredAt() time.Time       { return e.occurredAt }
