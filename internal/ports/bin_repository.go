package ports

import (
	"context"
	"warehouse-allocation-service/internal/domain"
)

// Port: the persisted bin layout used to bootstrap an empty engine.
type BinRepository interface {
	// Return the layout ordered by bin id.
	ListBins(ctx context.Context) ([]domain.BinSpec, error)
	// Replace the whole layout.
	ReplaceBins(ctx context.Context, layout []domain.BinSpec) error
}
