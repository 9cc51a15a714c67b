package ports

import (
	"context"
	"warehouse-allocation-service/internal/domain"
)

// Port: the ordered, append-only shipment log.
type EventLog interface {
	// Append events in order. Implementations assign Seq and RecordedAt.
	Append(ctx context.Context, events ...domain.Event) error
	// Return every event ordered by Seq.
	List(ctx context.Context) ([]domain.Event, error)
	// Remove every event. Used by fixture reset tooling only.
	Truncate(ctx context.Context) error
}
