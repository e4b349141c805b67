package events

import (
	"context"

	"github.com/rs/zerolog"
)

// HandlerFunc consumes one event. Handlers are independent units of failure:
// they log their own errors and never return them to the publisher.
type HandlerFunc func(ctx context.Context, evt Event)

// Bus is a single-process, synchronous event dispatcher. Publish runs after
// the triggering aggregate is durably stored, so handlers observe a created
// record; ordering across different events or users is not guaranteed.
type Bus struct {
	handlers map[string][]HandlerFunc
	logger   zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for the named event type. Not safe for
// concurrent use with Publish; wiring happens once at startup.
func (b *Bus) Subscribe(name string, fn HandlerFunc) {
	b.handlers[name] = append(b.handlers[name], fn)
}

// Publish delivers the event to every subscriber. A panicking handler is
// recovered and logged so it cannot take down unrelated handlers or the
// publishing request.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	subscribers := b.handlers[evt.Name()]
	if len(subscribers) == 0 {
		b.logger.Debug().Str("event", evt.Name()).Msg("no subscribers for event")
		return
	}
	for _, fn := range subscribers {
		b.invoke(ctx, evt, fn)
	}
}

func (b *Bus) invoke(ctx context.Context, evt Event, fn HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Str("event", evt.Name()).Msg("event handler panicked")
		}
	}()
	fn(ctx, evt)
}
