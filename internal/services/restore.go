package services

import (
	"context"
	"fmt"
	"warehouse-allocation-service/internal/domain"
	"warehouse-allocation-service/internal/ports"
)

// Restore brings the engine up from persisted state. A non-empty shipment
// log is replayed. An empty log starts a fresh session from the stored bin
// layout, or from fallback when no layout is stored yet; that layout is
// persisted and recorded as the first event.
func Restore(
	ctx context.Context,
	engine *AllocationEngine,
	events ports.EventLog,
	bins ports.BinRepository,
	fallback func() ([]domain.BinSpec, error),
) (replayed int, err error) {
	log, err := events.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore: read shipment log: %w", err)
	}
	if len(log) > 0 {
		if err := engine.Replay(ctx, log); err != nil {
			return 0, fmt.Errorf("restore: %w", err)
		}
		return len(log), nil
	}

	layout, err := bins.ListBins(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore: read bin layout: %w", err)
	}
	if len(layout) == 0 {
		if layout, err = fallback(); err != nil {
			return 0, fmt.Errorf("restore: default bin layout: %w", err)
		}
		if err := bins.ReplaceBins(ctx, layout); err != nil {
			return 0, fmt.Errorf("restore: store bin layout: %w", err)
		}
	}

	if err := engine.ResetBins(ctx, layout); err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}
	return 0, nil
}
