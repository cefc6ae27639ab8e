// Package eventdispatcher routes campaign events received from an event bus to
// the single handler registered for their type.
package eventdispatcher

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/see-armada/internal/domain/events"
	"github.com/ahrav/see-armada/pkg/common/logger"
)

// Dispatcher maps each event type to exactly one handler.
//
// Typical usage:
//
//	d := eventdispatcher.New(tracer, log)
//	d.RegisterHandler(ctx, injection.EventTypeFaultRoundInjected, onRound)
//	err := bus.Subscribe(ctx, d.EventTypes(), d.Dispatch)
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[events.EventType]events.HandlerFunc
	tracer   trace.Tracer
	logger   *logger.Logger
}

// New constructs a Dispatcher with an empty handler registry.
func New(tracer trace.Tracer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[events.EventType]events.HandlerFunc),
		tracer:   tracer,
		logger:   log.With("component", "event_dispatcher"),
	}
}

// RegisterHandler associates handler with eventType, replacing any handler
// already registered for it. It is safe to call concurrently.
func (d *Dispatcher) RegisterHandler(ctx context.Context, eventType events.EventType, handler events.HandlerFunc) {
	ctx, span := d.tracer.Start(ctx, "event_dispatcher.register_handler",
		trace.WithAttributes(attribute.String("event_type", string(eventType))))
	defer span.End()

	d.mu.Lock()
	d.handlers[eventType] = handler
	d.mu.Unlock()

	d.logger.Debug(ctx, "handler registered", "event_type", eventType)
	span.SetStatus(codes.Ok, "handler registered")
}

// EventTypes returns the registered event types in lexical order, ready to be
// passed to an event bus subscription.
func (d *Dispatcher) EventTypes() []events.EventType {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]events.EventType, 0, len(d.handlers))
	for t := range d.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HandlerNotFoundError indicates that no handler is registered for an event type.
type HandlerNotFoundError struct {
	EventType events.EventType
	Key       string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no handler registered for event type: %s (key: %s)", e.EventType, e.Key)
}

// Dispatch hands evt to the handler registered for its type. Its signature
// matches events.HandlerFunc so a Dispatcher can be subscribed to a bus as is.
func (d *Dispatcher) Dispatch(ctx context.Context, evt events.EventEnvelope) error {
	ctx, span := d.tracer.Start(ctx, "event_dispatcher.handle_event",
		trace.WithAttributes(
			attribute.String("event_type", string(evt.Type)),
			attribute.String("key", evt.Key),
		))
	defer span.End()

	d.mu.RLock()
	handler, exists := d.handlers[evt.Type]
	d.mu.RUnlock()
	if !exists {
		err := &HandlerNotFoundError{EventType: evt.Type, Key: evt.Key}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := handler(ctx, evt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to dispatch event type %s: %w", evt.Type, err)
	}

	span.SetStatus(codes.Ok, "event dispatched")
	d.logger.Debug(ctx, "event dispatched", "event_type", evt.Type, "key", evt.Key)
	return nil
}
