package dispatcher

import (
	"context"

	"github.com/garyjia/invoice-desk/internal/domain/event"
)

// Handler processes one event
type Handler func(ctx context.Context, evt *event.Event) error

// Sink receives forwarded events, typically a message broker publisher
type Sink interface {
	Publish(ctx context.Context, evt *event.Event) error
}

// ForwardTo returns a handler that passes events on to sink
func ForwardTo(sink Sink) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		return sink.Publish(ctx, evt)
	}
}

// AuditLog returns a handler that records every event in the log
func AuditLog(logger Logger) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Invoice event",
			"event_type", evt.Type.String(),
			"event_id", evt.ID,
			"invoice_id", evt.InvoiceID,
			"month", evt.Month,
			"payload", evt.Payload)
		return nil
	}
}
