package domain

import "time"

type EventType string

const (
	EventBinsReset  EventType = "bins_reset"
	EventIngested   EventType = "ingested"
	EventStored     EventType = "stored"
	EventRotated    EventType = "rotated"
	EventEjected    EventType = "ejected"
	EventLoaded     EventType = "loaded"
	EventShipped    EventType = "shipped"
	EventReturned   EventType = "returned"
	EventOrphaned   EventType = "orphaned"
	EventRequeued   EventType = "requeued"
	EventDispatched EventType = "dispatched"
)

// Event is one entry of the shipment log.
// The log is the audit trail of every state transition and carries enough
// detail to rebuild the engine by replaying it in Seq order.
type Event struct {
	Seq           int64     `json:"-"`
	Type          EventType `json:"type"`
	TrackingID    string    `json:"tracking_id,omitempty"`
	BinID         int       `json:"bin_id,omitempty"`
	Size          int       `json:"size,omitempty"`
	Destination   string    `json:"destination,omitempty"`
	IsFragile     bool      `json:"is_fragile,omitempty"`
	CapacityLimit int       `json:"capacity_limit,omitempty"`
	Bins          []BinSpec `json:"bins,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	RecordedAt    time.Time `json:"-"`
}
