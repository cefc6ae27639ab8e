package events

import "time"

// DomainEvent is implemented by every event the domain publishes. It lets the
// event bus route events by type without knowing their concrete payloads.
type DomainEvent interface {
	// EventType identifies the category of this event for routing and handling.
	EventType() EventType
	// OccurredAt records when the event happened.
	OccurredAt() time.Time
}

// EventEnvelope wraps a DomainEvent with the routing metadata attached when it
// was published.
type EventEnvelope struct {
	// Type identifies the category of this event for routing and handling.
	Type EventType

	// Key enables consistent event routing, typically containing a business identifier
	// like a CampaignID that events can be grouped or partitioned by.
	Key string

	// Headers contain metadata key-value pairs attached to the event.
	Headers map[string]string

	// Timestamp records when this event was created, enabling temporal tracking
	// and debugging of event flows.
	Timestamp time.Time

	// Payload contains the actual event data (e.g., FaultRoundInjectedEvent).
	// The concrete type depends on the EventType.
	Payload DomainEvent
}
