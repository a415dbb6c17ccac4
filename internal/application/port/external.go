package port

import (
	"context"

	"github.com/garyjia/invoice-desk/internal/domain/event"
)

// EventPublisher delivers domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, e *event.Event) error
	Close() error
}

// DocumentInfo describes an uploaded invoice document
type DocumentInfo struct {
	ContentType string
	Extension   string
	PageCount   int
}

// DocumentInspector sniffs uploaded content and rejects unreadable documents
type DocumentInspector interface {
	Inspect(ctx context.Context, content []byte) (*DocumentInfo, error)
}
