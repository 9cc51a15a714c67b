package services

import (
	"context"
	"errors"
	"testing"
	"warehouse-allocation-service/internal/adapters/repositories"
	"warehouse-allocation-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestore_BootstrapsFromFallback(t *testing.T) {
	ctx := context.Background()
	log := repositories.NewMemoryEventLog()
	repo := repositories.NewMemoryBinRepository()
	e := NewAllocationEngine(EngineConfig{}, log)

	n, err := Restore(ctx, e, log, repo, func() ([]domain.BinSpec, error) { return bins(10, 20), nil })
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, e.Status().BinCount)

	stored, err := repo.ListBins(ctx)
	require.NoError(t, err)
	assert.Equal(t, bins(10, 20), stored)

	events, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventBinsReset, events[0].Type)
}

func TestRestore_PrefersStoredLayout(t *testing.T) {
	ctx := context.Background()
	log := repositories.NewMemoryEventLog()
	repo := repositories.NewMemoryBinRepository()
	require.NoError(t, repo.ReplaceBins(ctx, bins(5, 5, 5)))
	e := NewAllocationEngine(EngineConfig{}, log)

	_, err := Restore(ctx, e, log, repo, func() ([]domain.BinSpec, error) {
		return nil, errors.New("fallback must not be used")
	})
	require.NoError(t, err)
	assert.Equal(t, 3, e.Status().BinCount)
}

func TestRestore_ReplaysExistingLog(t *testing.T) {
	ctx := context.Background()
	live, events := recordSession(t)

	log := repositories.NewMemoryEventLog()
	require.NoError(t, log.Append(ctx, events...))

	e := NewAllocationEngine(EngineConfig{TruckCapacity: 2000}, log)
	n, err := Restore(ctx, e, log, repositories.NewMemoryBinRepository(), nil)
	require.NoError(t, err)
	assert.Equal(t, len(events), n)
	assert.Equal(t, live.Snapshot(), e.Snapshot())
}
