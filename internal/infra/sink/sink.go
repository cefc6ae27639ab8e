// Package sink provides observability sinks that mirror each injection round
// to an external monitor: handles on the simulated design or the domain event
// bus.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ahrav/see-armada/internal/domain/events"
	"github.com/ahrav/see-armada/internal/domain/injection"
)

var (
	_ injection.ObservabilitySink = (*SignalSink)(nil)
	_ injection.ObservabilitySink = (*EventSink)(nil)
	_ injection.ObservabilitySink = MultiSink(nil)
)

// SignalSink writes the event id to a count handle and the round label to a
// name handle so waveform viewers can correlate injections with behavior.
// Either handle may be nil.
type SignalSink struct {
	count injection.Signal
	name  injection.Signal
}

// NewSignalSink creates a SignalSink.
func NewSignalSink(count, name injection.Signal) *SignalSink {
	return &SignalSink{count: count, name: name}
}

// Record writes eventID and label to the configured handles.
func (s *SignalSink) Record(_ context.Context, eventID int64, label string) error {
	if s.count != nil {
		v := injection.ValueFromUint64(uint(s.count.Width()), uint64(eventID))
		if err := s.count.Write(v); err != nil {
			return fmt.Errorf("write event count to %s: %w", s.count.Path(), err)
		}
	}
	if s.name != nil {
		v := injection.ValueFromBytes(uint(s.name.Width()), []byte(label))
		if err := s.name.Write(v); err != nil {
			return fmt.Errorf("write event label to %s: %w", s.name.Path(), err)
		}
	}
	return nil
}

// EventSink publishes every round as a FaultRoundInjectedEvent keyed by the
// campaign id.
type EventSink struct {
	campaignID uuid.UUID
	publisher  events.DomainEventPublisher
}

// NewEventSink creates an EventSink.
func NewEventSink(campaignID uuid.UUID, publisher events.DomainEventPublisher) *EventSink {
	return &EventSink{campaignID: campaignID, publisher: publisher}
}

// Record publishes the round.
func (s *EventSink) Record(ctx context.Context, eventID int64, label string) error {
	evt := injection.NewFaultRoundInjectedEvent(s.campaignID, eventID, label)
	if err := s.publisher.PublishDomainEvent(ctx, evt, events.WithKey(s.campaignID.String())); err != nil {
		return fmt.Errorf("publish fault round %d: %w", eventID, err)
	}
	return nil
}

// MultiSink fans a record out to every sink and joins their errors.
type MultiSink []injection.ObservabilitySink

// Record implements injection.ObservabilitySink.
func (m MultiSink) Record(ctx context.Context, eventID int64, label string) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, eventID, label); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
