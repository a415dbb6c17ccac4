// Package dispatcher fans domain events out to in-process handlers.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/invoice-desk/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type subscription struct {
	name    string
	types   map[event.Type]bool
	handler Handler
}

func (s subscription) wants(t event.Type) bool {
	return len(s.types) == 0 || s.types[t]
}

// Dispatcher delivers each published event to every subscribed handler on its
// own goroutine. It satisfies port.EventPublisher.
type Dispatcher struct {
	mu   sync.RWMutex
	subs []subscription

	logger Logger
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates an empty dispatcher
func New(logger Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Subscribe registers handler for the given event types, or for all types
// when none are given
func (d *Dispatcher) Subscribe(name string, handler Handler, types ...event.Type) {
	set := make(map[event.Type]bool, len(types))
	for _, t := range types {
		set[t] = true
	}

	d.mu.Lock()
	d.subs = append(d.subs, subscription{name: name, types: set, handler: handler})
	d.mu.Unlock()

	d.logger.Info("Handler registered", "handler_name", name, "event_types", len(types))
}

// Handlers returns the names of handlers receiving events of type t
func (d *Dispatcher) Handlers(t event.Type) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var names []string
	for _, s := range d.subs {
		if s.wants(t) {
			names = append(names, s.name)
		}
	}
	return names
}

// Publish hands evt to the matching handlers and returns without waiting.
// Handlers outlive the caller's context cancellation.
func (d *Dispatcher) Publish(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}
	if !evt.Type.IsValid() {
		return fmt.Errorf("invalid event type %q", evt.Type)
	}

	d.mu.RLock()
	subs := make([]subscription, 0, len(d.subs))
	for _, s := range d.subs {
		if s.wants(evt.Type) {
			subs = append(subs, s)
		}
	}
	d.mu.RUnlock()

	hctx := context.WithoutCancel(ctx)
	for _, s := range subs {
		d.wg.Add(1)
		go func(s subscription) {
			defer d.wg.Done()
			if err := d.safeExecute(hctx, evt, s); err != nil {
				d.logger.Error("Event handler failed",
					"event_type", evt.Type.String(),
					"event_id", evt.ID,
					"handler_name", s.name,
					"error", err)
			}
		}(s)
	}
	return nil
}

// Close rejects new events and waits for running handlers
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}
	d.wg.Wait()
	d.logger.Info("Dispatcher closed")
	return nil
}

func (d *Dispatcher) safeExecute(ctx context.Context, evt *event.Event, s subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler(ctx, evt)
}
