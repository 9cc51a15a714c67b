package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"warehouse-allocation-service/internal/adapters/repositories"
	"warehouse-allocation-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("PKG-%08d", n)
	}
}

func newTestEngine(t *testing.T, truckCapacity int, layout ...domain.BinSpec) (*AllocationEngine, *repositories.MemoryEventLog) {
	t.Helper()

	log := repositories.NewMemoryEventLog()
	e := NewAllocationEngine(EngineConfig{TruckCapacity: truckCapacity}, log, WithIDGenerator(sequentialIDs()))
	require.NoError(t, e.ResetBins(context.Background(), layout))
	return e, log
}

func bins(capacities ...int) []domain.BinSpec {
	out := make([]domain.BinSpec, 0, len(capacities))
	for i, c := range capacities {
		out = append(out, domain.BinSpec{LocationCode: fmt.Sprintf("Aisle-01-Sect-%02d-Lvl-1", i+1), Capacity: c})
	}
	return out
}

func ingest(t *testing.T, e *AllocationEngine, size int, fragile bool) domain.Package {
	t.Helper()
	p, err := e.Ingest(context.Background(), IngestRequest{Size: size, Destination: "Zone A", IsFragile: fragile})
	require.NoError(t, err)
	return p
}

func TestEngine_IngestProcessOptimizeDispatch(t *testing.T) {
	ctx := context.Background()
	e, log := newTestEngine(t, 2000, bins(10, 50)...)

	// GIVEN two packages stored in their best-fit bins
	p1 := ingest(t, e, 5, false)
	p2 := ingest(t, e, 40, false)
	assert.Equal(t, domain.StatusQueued, p1.Status)

	reports, err := e.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, domain.OutcomePlaced, reports[0].Outcome)
	assert.Equal(t, "Aisle-01-Sect-01-Lvl-1", reports[0].LocationCode)
	assert.Equal(t, 2, reports[1].BinID)

	// WHEN the truck is optimized for 100
	res, err := e.OptimizeLoad(ctx, 100)
	require.NoError(t, err)

	// THEN both go on the truck in tracking id order
	assert.Equal(t, 45, res.FilledSize)
	assert.InDelta(t, 45.0, res.Utilization, 1e-9)
	require.Len(t, res.Selection, 2)
	assert.Equal(t, p1.TrackingID, res.Selection[0].TrackingID)
	assert.Equal(t, p2.TrackingID, res.Selection[1].TrackingID)
	assert.Equal(t, p1.TrackingID+": Moved from Bin Aisle-01-Sect-01-Lvl-1 to Truck", res.ExecutionLogs[0])

	st := e.Status()
	assert.Equal(t, Status{ManifestSize: 2, ManifestUsed: 45, ManifestLimit: 100, FreeBinCount: 2, BinCount: 2}, st)

	snap := e.Snapshot()
	require.Len(t, snap.Manifest, 2)
	assert.Equal(t, p2.TrackingID, snap.Manifest[1].TrackingID, "last loaded is on top")

	// AND dispatch empties the truck
	shipped, err := e.DispatchTruck(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{p1.TrackingID, p2.TrackingID}, shipped)
	assert.Equal(t, 0, e.Status().ManifestSize)
	_, ok := e.Package(p1.TrackingID)
	assert.False(t, ok)

	events, err := log.List(ctx)
	require.NoError(t, err)
	var types []domain.EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []domain.EventType{
		domain.EventBinsReset,
		domain.EventIngested, domain.EventIngested,
		domain.EventStored, domain.EventStored,
		domain.EventLoaded, domain.EventLoaded,
		domain.EventDispatched,
	}, types)
}

func TestEngine_OptimizeEmptyWarehouse(t *testing.T) {
	e, _ := newTestEngine(t, 2000, bins(10)...)

	res, err := e.OptimizeLoad(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, res.Selection)
	assert.Equal(t, 0, res.FilledSize)
	assert.Equal(t, []string{"No packages loaded: warehouse is empty or truck is full."}, res.ExecutionLogs)
}

func TestEngine_OptimizeCapacityBelowLoad(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 2000, bins(50)...)
	ingest(t, e, 30, false)
	_, err := e.ProcessNext(ctx)
	require.NoError(t, err)
	_, err = e.OptimizeLoad(ctx, 100)
	require.NoError(t, err)

	_, err = e.OptimizeLoad(ctx, 20)
	assert.True(t, errors.Is(err, domain.ErrInvalidCapacity), "err = %v", err)

	_, err = e.OptimizeLoad(ctx, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidCapacity), "err = %v", err)
	assert.Equal(t, 1, e.Status().ManifestSize)
}

func TestEngine_UnloadBuriedRollback(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 2000, bins(10, 10, 10)...)

	// GIVEN A, B, C loaded in that order
	a, b, c := ingest(t, e, 5, false), ingest(t, e, 5, false), ingest(t, e, 5, false)
	_, err := e.ProcessBatch(ctx, 3)
	require.NoError(t, err)
	for _, p := range []domain.Package{a, b, c} {
		_, err := e.LoadPackage(ctx, p.TrackingID)
		require.NoError(t, err)
	}

	// WHEN A is unloaded
	rep, err := e.Unload(ctx, a.TrackingID)
	require.NoError(t, err)

	// THEN C and B come off and return to storage
	assert.Equal(t, a.TrackingID, rep.Shipped.TrackingID)
	assert.Equal(t, domain.StatusShipped, rep.Shipped.Status)
	require.Len(t, rep.Returned, 2)
	assert.Equal(t, c.TrackingID, rep.Returned[0].TrackingID)
	assert.Equal(t, b.TrackingID, rep.Returned[1].TrackingID)
	assert.Empty(t, rep.Orphaned)
	assert.Empty(t, rep.Errors)

	st := e.Status()
	assert.Equal(t, 0, st.ManifestSize)
	assert.Equal(t, 1, st.FreeBinCount)

	pb, ok := e.Package(b.TrackingID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusBinned, pb.Status)
	_, ok = e.Package(a.TrackingID)
	assert.False(t, ok)
}

func TestEngine_UnloadOrphansToBacklog(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 2000, bins(10, 50)...)

	// GIVEN A (5) and B (40) on the truck, B on top
	a, b := ingest(t, e, 5, false), ingest(t, e, 40, false)
	_, err := e.ProcessBatch(ctx, 2)
	require.NoError(t, err)
	_, err = e.OptimizeLoad(ctx, 100)
	require.NoError(t, err)

	// AND C (45) now occupies the only bin large enough for B
	c := ingest(t, e, 45, false)
	r, err := e.ProcessNext(ctx)
	require.NoError(t, err)
	require.Equal(t, c.TrackingID, r.TrackingID)
	require.Equal(t, 2, r.BinID)

	// WHEN A is unloaded
	rep, err := e.Unload(ctx, a.TrackingID)

	// THEN the unload succeeds but B is orphaned
	require.NoError(t, err)
	assert.Equal(t, a.TrackingID, rep.Shipped.TrackingID)
	assert.Empty(t, rep.Returned)
	assert.Equal(t, []string{b.TrackingID}, rep.Orphaned)
	require.Len(t, rep.Errors, 1)
	assert.True(t, errors.Is(rep.Errors[0], domain.ErrOrphanedPackage))

	pb, _ := e.Package(b.TrackingID)
	assert.Equal(t, domain.StatusBacklogged, pb.Status)
	assert.Equal(t, 1, e.Status().BacklogLength)

	n, err := e.RequeueBacklog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	pb, _ = e.Package(b.TrackingID)
	assert.Equal(t, domain.StatusQueued, pb.Status)
	assert.Equal(t, Status{QueueLength: 1, ManifestLimit: 100, FreeBinCount: 1, BinCount: 2}, e.Status())
}

func TestEngine_UnplaceableGoesToBacklog(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 2000, bins(10)...)
	big := ingest(t, e, 20, false)

	r, err := e.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRotated, r.Outcome)

	r, err = e.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnplaceable, r.Outcome)
	assert.Equal(t, big.TrackingID, r.TrackingID)

	st := e.Status()
	assert.Equal(t, 0, st.QueueLength)
	assert.Equal(t, 1, st.BacklogLength)

	r, err = e.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIdle, r.Outcome)
}

func TestEngine_LoadPackageErrors(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 10, bins(50)...)
	p := ingest(t, e, 20, false)

	_, err := e.LoadPackage(ctx, p.TrackingID)
	assert.True(t, errors.Is(err, domain.ErrPackageNotBinned), "err = %v", err)

	_, err = e.ProcessNext(ctx)
	require.NoError(t, err)
	_, err = e.LoadPackage(ctx, p.TrackingID)
	assert.True(t, errors.Is(err, domain.ErrCapacityExceeded), "err = %v", err)

	_, err = e.LoadPackage(ctx, "PKG-MISSING")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "err = %v", err)

	_, err = e.Unload(ctx, p.TrackingID)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "err = %v", err)
}

func TestEngine_IngestValidation(t *testing.T) {
	e, _ := newTestEngine(t, 2000, bins(10)...)

	_, err := e.Ingest(context.Background(), IngestRequest{Size: 0, Destination: "Zone A"})
	assert.True(t, errors.Is(err, domain.ErrInvalidPackage))
	_, err = e.Ingest(context.Background(), IngestRequest{Size: 3, Destination: "  "})
	assert.True(t, errors.Is(err, domain.ErrInvalidPackage))
	assert.Equal(t, 0, e.Status().QueueLength)
}

func TestEngine_TrackingIDCollision(t *testing.T) {
	e := NewAllocationEngine(EngineConfig{}, nil, WithIDGenerator(func() string { return "PKG-SAME0000" }))
	require.NoError(t, e.ResetBins(context.Background(), bins(10)))

	_, err := e.Ingest(context.Background(), IngestRequest{Size: 1, Destination: "Zone A"})
	require.NoError(t, err)
	_, err = e.Ingest(context.Background(), IngestRequest{Size: 1, Destination: "Zone A"})
	assert.True(t, errors.Is(err, domain.ErrDuplicateTrackingID), "err = %v", err)
	assert.Equal(t, 1, e.Status().QueueLength)
}

func TestEngine_StatusIsStable(t *testing.T) {
	e, _ := newTestEngine(t, 2000, bins(10, 20)...)
	ingest(t, e, 5, false)

	first := e.Status()
	second := e.Status()
	assert.Equal(t, first, second)
	assert.Equal(t, e.Snapshot(), e.Snapshot())
}

func TestEngine_ResetBinsClearsState(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 2000, bins(10)...)
	ingest(t, e, 5, false)
	_, _ = e.ProcessNext(ctx)
	ingest(t, e, 50, false)

	require.NoError(t, e.ResetBins(ctx, bins(5, 5, 5)))
	assert.Equal(t, Status{ManifestLimit: 2000, FreeBinCount: 3, BinCount: 3}, e.Status())
	assert.Empty(t, e.Packages())

	err := e.ResetBins(ctx, []domain.BinSpec{{LocationCode: "X", Capacity: -1}})
	assert.True(t, errors.Is(err, domain.ErrInvalidBinLayout))
	assert.Equal(t, 3, e.Status().BinCount)
}

// flakyLog rejects the next `failures` appends, then behaves normally.
type flakyLog struct {
	*repositories.MemoryEventLog
	failures int
}

func (f *flakyLog) Append(ctx context.Context, events ...domain.Event) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("disk full")
	}
	return f.MemoryEventLog.Append(ctx, events...)
}

func TestEngine_LogFailureLeavesStateUntouched(t *testing.T) {
	log := &flakyLog{MemoryEventLog: repositories.NewMemoryEventLog(), failures: 1}
	e := NewAllocationEngine(EngineConfig{}, log)

	err := e.ResetBins(context.Background(), bins(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, e.Status().BinCount)
}

func TestEngine_FailedAppendKeepsLogReplayable(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{MemoryEventLog: repositories.NewMemoryEventLog()}
	e := NewAllocationEngine(EngineConfig{TruckCapacity: 2000}, log, WithIDGenerator(sequentialIDs()))
	require.NoError(t, e.ResetBins(ctx, bins(10, 50)))

	// GIVEN an ingest whose log append fails once
	log.failures = 1
	_, err := e.Ingest(ctx, IngestRequest{Size: 5, Destination: "Zone A"})
	require.Error(t, err)

	// THEN nothing about the package reached memory
	assert.Equal(t, 0, e.Status().QueueLength)
	assert.Empty(t, e.Packages())

	// WHEN the client retries and the conveyor runs
	p := ingest(t, e, 5, false)
	r, err := e.ProcessNext(ctx)
	require.NoError(t, err)
	require.Equal(t, p.TrackingID, r.TrackingID)

	// THEN a single package exists and the log replays to the same state
	assert.Len(t, e.Packages(), 1)
	events, err := log.List(ctx)
	require.NoError(t, err)
	replayed := NewAllocationEngine(EngineConfig{TruckCapacity: 2000}, nil)
	require.NoError(t, replayed.Replay(ctx, events))
	assert.Equal(t, e.Snapshot(), replayed.Snapshot())
}

func TestEngine_FailedUnloadChangesNothing(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{MemoryEventLog: repositories.NewMemoryEventLog()}
	e := NewAllocationEngine(EngineConfig{TruckCapacity: 2000}, log, WithIDGenerator(sequentialIDs()))
	require.NoError(t, e.ResetBins(ctx, bins(10, 10)))

	a, b := ingest(t, e, 5, false), ingest(t, e, 5, false)
	_, err := e.ProcessBatch(ctx, 2)
	require.NoError(t, err)
	_, err = e.LoadPackage(ctx, a.TrackingID)
	require.NoError(t, err)
	_, err = e.LoadPackage(ctx, b.TrackingID)
	require.NoError(t, err)
	before := e.Snapshot()

	log.failures = 1
	_, err = e.Unload(ctx, a.TrackingID)
	require.Error(t, err)
	assert.Equal(t, before, e.Snapshot())

	rep, err := e.Unload(ctx, a.TrackingID)
	require.NoError(t, err)
	require.Len(t, rep.Returned, 1)
	assert.Equal(t, b.TrackingID, rep.Returned[0].TrackingID)
	assert.Equal(t, 0, e.Status().ManifestSize)
}

func TestEngine_LoadThenUnloadShipsPackage(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 2000, bins(10, 20, 50)...)

	// GIVEN two stored packages
	p := ingest(t, e, 15, false)
	other := ingest(t, e, 40, false)
	_, err := e.ProcessBatch(ctx, 2)
	require.NoError(t, err)
	stored, _ := e.Package(p.TrackingID)
	require.Equal(t, 2, stored.BinID)
	before := e.Bins()

	// WHEN one is loaded and immediately unloaded by id
	_, err = e.LoadPackage(ctx, p.TrackingID)
	require.NoError(t, err)
	rep, err := e.Unload(ctx, p.TrackingID)
	require.NoError(t, err)

	// THEN it ships, the manifest is empty and only its bin changed
	assert.Equal(t, domain.StatusShipped, rep.Shipped.Status)
	assert.Empty(t, rep.Returned)
	assert.Equal(t, 0, e.Status().ManifestSize)
	assert.Equal(t, 0, e.Status().ManifestUsed)
	_, ok := e.Package(p.TrackingID)
	assert.False(t, ok)

	after := e.Bins()
	require.Len(t, after, len(before))
	for i := range before {
		want := before[i]
		if want.BinID == stored.BinID {
			want.Occupant, want.OccupantSize = "", 0
		}
		assert.Equal(t, want, after[i])
	}
	kept, _ := e.Package(other.TrackingID)
	assert.Equal(t, domain.StatusBinned, kept.Status)
}

func TestEngine_ResetBinsRetiresTrackingIDs(t *testing.T) {
	ctx := context.Background()
	ids := []string{"PKG-00000001", "PKG-00000001", "PKG-00000002"}
	next := func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	e := NewAllocationEngine(EngineConfig{}, nil, WithIDGenerator(next))
	require.NoError(t, e.ResetBins(ctx, bins(10)))

	first, err := e.Ingest(ctx, IngestRequest{Size: 5, Destination: "Zone A"})
	require.NoError(t, err)
	require.NoError(t, e.ResetBins(ctx, bins(10)))

	second, err := e.Ingest(ctx, IngestRequest{Size: 5, Destination: "Zone A"})
	require.NoError(t, err)
	assert.Equal(t, "PKG-00000001", first.TrackingID)
	assert.Equal(t, "PKG-00000002", second.TrackingID)
}

func TestEngine_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	layout := make([]domain.BinSpec, 0, 100)
	for i := range 100 {
		layout = append(layout, domain.BinSpec{LocationCode: fmt.Sprintf("B-%03d", i), Capacity: 100})
	}
	e, _ := newTestEngine(t, 100000, layout...)

	const workers, perWorker = 4, 5
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				_, err := e.Ingest(ctx, IngestRequest{Size: 10, Destination: "Zone A"})
				assert.NoError(t, err)
				_, err = e.ProcessNext(ctx)
				assert.NoError(t, err)
				_ = e.Status()
				_ = e.Snapshot()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 10 {
			_, err := e.OptimizeLoad(ctx, 100000)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	_, err := e.ProcessBatch(ctx, workers*perWorker)
	require.NoError(t, err)
	_, err = e.OptimizeLoad(ctx, 100000)
	require.NoError(t, err)

	st := e.Status()
	assert.Equal(t, 0, st.QueueLength)
	assert.Equal(t, workers*perWorker, st.ManifestSize)
	assert.Equal(t, workers*perWorker*10, st.ManifestUsed)
	assert.Equal(t, 100, st.FreeBinCount)
}
