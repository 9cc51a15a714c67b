package repositories

import (
	"context"
	"slices"
	"sync"
	"warehouse-allocation-service/internal/domain"
)

// MemoryBinRepository keeps the bin layout in process memory.
type MemoryBinRepository struct {
	mu     sync.Mutex
	layout []domain.BinSpec
}

func NewMemoryBinRepository() *MemoryBinRepository {
	return &MemoryBinRepository{}
}

func (m *MemoryBinRepository) ListBins(ctx context.Context) ([]domain.BinSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.layout), nil
}

func (m *MemoryBinRepository) ReplaceBins(ctx context.Context, layout []domain.BinSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layout = slices.Clone(layout)
	return nil
}
