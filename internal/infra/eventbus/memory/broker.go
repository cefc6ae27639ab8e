// Package memory provides an in-memory implementation of the event bus.
// It offers a lightweight, non-persistent broker suitable for in-process
// campaign monitors, tests and development runs where durability is not required.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/see-armada/internal/domain/events"
)

var _ events.EventBus = (*Broker)(nil)

// ErrBrokerClosed is returned when publishing to or subscribing on a closed broker.
var ErrBrokerClosed = errors.New("broker closed")

type subscription struct {
	id      uuid.UUID
	types   map[events.EventType]struct{}
	handler events.HandlerFunc
}

// Broker provides an in-memory implementation of the events.EventBus interface.
// Handlers run synchronously on the publisher's goroutine, in subscription order.
type Broker struct {
	mu     sync.RWMutex
	subs   []subscription
	closed bool
}

// NewBroker creates and initializes a new in-memory broker with no subscribers.
func NewBroker() *Broker { return &Broker{subs: make([]subscription, 0)} }

// Subscribe registers handler for the given event types. The subscription is
// removed once ctx is done.
func (b *Broker) Subscribe(ctx context.Context, eventTypes []events.EventType, handler events.HandlerFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	types := make(map[events.EventType]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}
	sub := subscription{id: uuid.New(), types: types, handler: handler}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBrokerClosed
	}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	context.AfterFunc(ctx, func() { b.unsubscribe(sub.id) })

	return nil
}

func (b *Broker) unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// PublishDomainEvent broadcasts evt to every handler subscribed to its type,
// stopping at the first error. The handlers are copied before iteration to
// prevent deadlocks when a handler publishes or subscribes.
func (b *Broker) PublishDomainEvent(ctx context.Context, evt events.DomainEvent, opts ...events.PublishOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := events.ApplyOptions(opts)
	env := events.EventEnvelope{
		Type:      evt.EventType(),
		Key:       params.Key,
		Headers:   params.Headers,
		Timestamp: time.Now(),
		Payload:   evt,
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	handlers := make([]events.HandlerFunc, 0, len(b.subs))
	for _, s := range b.subs {
		if _, ok := s.types[env.Type]; ok {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

// Close drops every subscription. Further publishes and subscribes fail.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
	return nil
}
