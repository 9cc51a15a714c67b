package repositories

import (
	"context"
	"slices"
	"sync"
	"time"
	"warehouse-allocation-service/internal/domain"
)

// MemoryEventLog keeps the shipment log in process memory.
// Used by tests and by the server when no durable log is wanted.
type MemoryEventLog struct {
	mu      sync.Mutex
	events  []domain.Event
	nextSeq int64
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{nextSeq: 1}
}

func (m *MemoryEventLog) Append(ctx context.Context, events ...domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, ev := range events {
		ev.Seq = m.nextSeq
		ev.RecordedAt = now
		ev.Bins = slices.Clone(ev.Bins)
		m.nextSeq++
		m.events = append(m.events, ev)
	}
	return nil
}

func (m *MemoryEventLog) List(ctx context.Context) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events), nil
}

func (m *MemoryEventLog) Truncate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	m.nextSeq = 1
	return nil
}
