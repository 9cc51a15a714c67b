package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"warehouse-allocation-service/internal/domain"
	"warehouse-allocation-service/internal/platform/metrics"
	"warehouse-allocation-service/internal/ports"

	"github.com/sirupsen/logrus"
)

const DefaultTruckCapacity = 2000

type EngineConfig struct {
	TruckCapacity int
	MaxCandidates int
}

type EngineOption func(*AllocationEngine)

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *AllocationEngine) { e.metrics = m }
}

// WithIDGenerator replaces the random tracking id source.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *AllocationEngine) { e.newID = fn }
}

type IngestRequest struct {
	Size        int
	Destination string
	IsFragile   bool
}

type ProcessReport struct {
	Outcome      domain.Outcome
	TrackingID   string
	BinID        int
	LocationCode string
}

type LoadedItem struct {
	TrackingID   string
	Size         int
	IsFragile    bool
	BinID        int
	LocationCode string
}

type LoadResult struct {
	CapacityLimit   int
	FilledSize      int
	Selection       []LoadedItem
	FragileIncluded bool
	// Percentage of CapacityLimit in use after the load.
	Utilization   float64
	NodesVisited  int
	ExecutionLogs []string
}

type ReturnedItem struct {
	TrackingID   string
	BinID        int
	LocationCode string
}

// UnloadReport may carry Errors alongside a successful unload: each one is a
// displaced package that could not be returned to storage.
type UnloadReport struct {
	Shipped  domain.Package
	Returned []ReturnedItem
	Orphaned []string
	Errors   []error
}

type Status struct {
	QueueLength   int
	BacklogLength int
	ManifestSize  int
	ManifestUsed  int
	ManifestLimit int
	FreeBinCount  int
	BinCount      int
}

type Snapshot struct {
	Status
	Queue    []domain.Package
	Backlog  []domain.Package
	Manifest []domain.Package
	Bins     []domain.StorageBin
}

// AllocationEngine is the single owner of bins, conveyor, backlog and truck.
//
// Every mutating operation runs under the write lock. It first works out the
// events describing the transition, appends them to the shipment log, and
// only then applies them to memory, the same way Replay does. Read operations
// share the read lock and always see a fully applied state.
type AllocationEngine struct {
	mu sync.RWMutex

	bins     *domain.BinIndex
	queue    *domain.ArrivalQueue
	truck    *domain.TruckManifest
	backlog  []*domain.Package
	packages map[string]*domain.Package
	retired  map[string]struct{}

	// dock holds packages dug out of the truck while a shipped event is
	// replayed, until their returned/orphaned events arrive.
	dock []*domain.Package

	events        ports.EventLog
	metrics       *metrics.Metrics
	newID         func() string
	log           *logrus.Entry
	truckCapacity int
	maxCandidates int
}

func NewAllocationEngine(cfg EngineConfig, events ports.EventLog, opts ...EngineOption) *AllocationEngine {
	if cfg.TruckCapacity <= 0 {
		cfg.TruckCapacity = DefaultTruckCapacity
	}
	if cfg.MaxCandidates <= 0 || cfg.MaxCandidates > HardMaxCandidates {
		cfg.MaxCandidates = DefaultMaxCandidates
	}

	e := &AllocationEngine{
		events:        events,
		newID:         NewTrackingID,
		log:           logrus.WithField("component", "engine"),
		truckCapacity: cfg.TruckCapacity,
		maxCandidates: cfg.MaxCandidates,
		retired:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetState(domain.NewBinIndex())
	return e
}

func (e *AllocationEngine) resetState(bins *domain.BinIndex) {
	for id := range e.packages {
		e.retired[id] = struct{}{}
	}
	e.bins = bins
	e.queue = domain.NewArrivalQueue()
	e.truck = domain.NewTruckManifest(e.truckCapacity)
	e.backlog = nil
	e.dock = nil
	e.packages = make(map[string]*domain.Package)
}

// ResetBins replaces the bin layout and clears every other structure.
func (e *AllocationEngine) ResetBins(ctx context.Context, layout []domain.BinSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := domain.NewBinIndex().Reset(layout); err != nil {
		return err
	}
	err := e.commit(ctx, domain.Event{
		Type:   domain.EventBinsReset,
		Bins:   slices.Clone(layout),
		Detail: fmt.Sprintf("Created %d bins", len(layout)),
	})
	if err != nil {
		return err
	}
	e.observeLevels()

	e.log.WithField("bins", len(layout)).Info("bin layout reset")
	return nil
}

// Ingest creates a package with a fresh tracking id and puts it on the conveyor.
func (e *AllocationEngine) Ingest(ctx context.Context, req IngestRequest) (domain.Package, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.uniqueID()
	if err != nil {
		return domain.Package{}, err
	}

	pkg, err := domain.NewPackage(id, req.Size, req.Destination, req.IsFragile)
	if err != nil {
		return domain.Package{}, fmt.Errorf("ingest: %w", err)
	}

	err = e.commit(ctx, domain.Event{
		Type:        domain.EventIngested,
		TrackingID:  pkg.TrackingID,
		Size:        pkg.Size,
		Destination: pkg.Destination,
		IsFragile:   pkg.IsFragile,
		Detail:      fmt.Sprintf("Size: %d, Fragile: %t", pkg.Size, pkg.IsFragile),
	})
	if err != nil {
		return domain.Package{}, err
	}
	e.metrics.Ingested()
	e.observeLevels()

	return *e.packages[id], nil
}

func (e *AllocationEngine) uniqueID() (string, error) {
	const maxAttempts = 8
	for range maxAttempts {
		id := e.newID()
		if _, ok := e.packages[id]; ok {
			continue
		}
		if _, ok := e.retired[id]; ok {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("ingest: %w: no unused tracking id after %d attempts", domain.ErrDuplicateTrackingID, maxAttempts)
}

// ProcessNext runs one step of the conveyor: the front package is stored,
// rotated to the back, or ejected to the backlog.
func (e *AllocationEngine) ProcessNext(ctx context.Context) (ProcessReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.processOne(ctx)
}

// ProcessBatch runs up to limit conveyor steps and stops early on an empty queue.
func (e *AllocationEngine) ProcessBatch(ctx context.Context, limit int) ([]ProcessReport, error) {
	if limit < 1 {
		limit = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	reports := make([]ProcessReport, 0, min(limit, e.queue.Len()))
	for range limit {
		if e.queue.Len() == 0 {
			break
		}
		r, err := e.processOne(ctx)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (e *AllocationEngine) processOne(ctx context.Context) (ProcessReport, error) {
	res, err := e.queue.Decide(e.bins)
	if err != nil {
		invariant(err)
		return ProcessReport{}, fmt.Errorf("process next: %w", err)
	}
	if res.Outcome == domain.OutcomeIdle {
		return ProcessReport{Outcome: domain.OutcomeIdle}, nil
	}

	pkg := res.Package
	report := ProcessReport{Outcome: res.Outcome, TrackingID: pkg.TrackingID}
	ev := domain.Event{TrackingID: pkg.TrackingID}

	switch res.Outcome {
	case domain.OutcomePlaced:
		b, _ := e.bins.Bin(res.BinID)
		report.BinID = b.BinID
		report.LocationCode = b.LocationCode
		ev.Type = domain.EventStored
		ev.BinID = b.BinID
		ev.Detail = "Stored in " + b.LocationCode
	case domain.OutcomeRotated:
		ev.Type = domain.EventRotated
		ev.Detail = fmt.Sprintf("No suitable bin found for size %d", pkg.Size)
	case domain.OutcomeUnplaceable:
		ev.Type = domain.EventEjected
		ev.Detail = fmt.Sprintf("No bin fits size %d after a full lap", pkg.Size)
	}

	if err := e.commit(ctx, ev); err != nil {
		return ProcessReport{}, err
	}
	if res.Outcome == domain.OutcomeUnplaceable {
		e.log.WithFields(logrus.Fields{"tracking_id": pkg.TrackingID, "size": pkg.Size}).
			Warn("package unplaceable, moved to backlog")
	}

	e.metrics.QueueOutcome(string(res.Outcome))
	e.observeLevels()
	return report, nil
}

// OptimizeLoad moves the best-filling selection of bin-resident packages onto
// the truck. capacityLimit is the truck limit for the session and must cover
// what is already loaded; the search runs against the remaining room.
func (e *AllocationEngine) OptimizeLoad(ctx context.Context, capacityLimit int) (LoadResult, error) {
	if capacityLimit <= 0 {
		return LoadResult{}, fmt.Errorf("optimize load: %w: capacity must be positive, got %d", domain.ErrInvalidCapacity, capacityLimit)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if capacityLimit < e.truck.Used {
		return LoadResult{}, fmt.Errorf("optimize load: %w: capacity %d below loaded volume %d", domain.ErrInvalidCapacity, capacityLimit, e.truck.Used)
	}

	slots := e.bins.ListOccupied()
	candidates := make([]LoadCandidate, 0, len(slots))
	for _, s := range slots {
		pkg, ok := e.packages[s.TrackingID]
		if !ok {
			panic(fmt.Sprintf("allocation engine: bin %d holds unknown package %s", s.BinID, s.TrackingID))
		}
		candidates = append(candidates, LoadCandidate{
			TrackingID: s.TrackingID,
			Size:       s.Size,
			IsFragile:  pkg.IsFragile,
			BinID:      s.BinID,
		})
	}

	res := LoadResult{
		CapacityLimit: capacityLimit,
		Selection:     []LoadedItem{},
		ExecutionLogs: []string{},
	}

	residual := capacityLimit - e.truck.Used
	if len(candidates) == 0 || residual == 0 {
		res.Utilization = utilization(e.truck.Used, capacityLimit)
		res.ExecutionLogs = append(res.ExecutionLogs, "No packages loaded: warehouse is empty or truck is full.")
		return res, nil
	}

	start := time.Now()
	plan, err := OptimizeLoad(residual, candidates, e.maxCandidates)
	if err != nil {
		return LoadResult{}, err
	}
	e.metrics.Optimized(time.Since(start), plan.NodesVisited)

	res.FilledSize = plan.TotalSize
	res.FragileIncluded = plan.FragileIncluded
	res.NodesVisited = plan.NodesVisited

	events := make([]domain.Event, 0, len(plan.Items))
	for _, item := range plan.Items {
		b, _ := e.bins.Bin(item.BinID)
		res.Selection = append(res.Selection, LoadedItem{
			TrackingID:   item.TrackingID,
			Size:         item.Size,
			IsFragile:    item.IsFragile,
			BinID:        item.BinID,
			LocationCode: b.LocationCode,
		})
		res.ExecutionLogs = append(res.ExecutionLogs, fmt.Sprintf("%s: Moved from Bin %s to Truck", item.TrackingID, b.LocationCode))
		events = append(events, domain.Event{
			Type:          domain.EventLoaded,
			TrackingID:    item.TrackingID,
			BinID:         item.BinID,
			CapacityLimit: capacityLimit,
			Detail:        "Moved from Bin to Truck (Optimization)",
		})
	}
	if len(events) > 0 {
		if err := e.commit(ctx, events...); err != nil {
			return LoadResult{}, err
		}
	}
	res.Utilization = utilization(e.truck.Used, capacityLimit)
	e.observeLevels()

	e.log.WithFields(logrus.Fields{
		"capacity":         capacityLimit,
		"filled":           plan.TotalSize,
		"packages":         len(plan.Items),
		"fragile_included": plan.FragileIncluded,
		"nodes":            plan.NodesVisited,
	}).Info("truck load optimized")

	return res, nil
}

// LoadPackage moves one binned package onto the truck, outside of optimization.
func (e *AllocationEngine) LoadPackage(ctx context.Context, trackingID string) (LoadedItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pkg, ok := e.packages[trackingID]
	if !ok {
		return LoadedItem{}, fmt.Errorf("load package %s: %w", trackingID, domain.ErrNotFound)
	}
	if pkg.Status != domain.StatusBinned {
		return LoadedItem{}, fmt.Errorf("load package %s: %w (status=%s)", trackingID, domain.ErrPackageNotBinned, pkg.Status)
	}
	if e.truck.Used+pkg.Size > e.truck.CapacityLimit {
		return LoadedItem{}, fmt.Errorf("load package %s: %w (size=%d used=%d limit=%d)",
			trackingID, domain.ErrCapacityExceeded, pkg.Size, e.truck.Used, e.truck.CapacityLimit)
	}

	b, _ := e.bins.Bin(pkg.BinID)
	err := e.commit(ctx, domain.Event{
		Type:          domain.EventLoaded,
		TrackingID:    pkg.TrackingID,
		BinID:         b.BinID,
		CapacityLimit: e.truck.CapacityLimit,
		Detail:        "Loaded to Truck",
	})
	if err != nil {
		return LoadedItem{}, err
	}
	e.observeLevels()

	return LoadedItem{
		TrackingID:   pkg.TrackingID,
		Size:         pkg.Size,
		IsFragile:    pkg.IsFragile,
		BinID:        b.BinID,
		LocationCode: b.LocationCode,
	}, nil
}

// Unload removes one package from the truck and ships it. Packages loaded
// after it are returned to storage by best fit; those that find no bin are
// orphaned to the backlog and reported in the Errors list.
func (e *AllocationEngine) Unload(ctx context.Context, trackingID string) (UnloadReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	plan, err := e.truck.PlanUnload(trackingID, e.bins)
	if err != nil {
		return UnloadReport{}, err
	}

	report := UnloadReport{
		Returned: make([]ReturnedItem, 0, len(plan.Returned)),
		Orphaned: make([]string, 0, len(plan.Orphaned)),
		Errors:   plan.Errors,
	}
	events := []domain.Event{{
		Type:       domain.EventShipped,
		TrackingID: trackingID,
		Detail:     "Target item removed via rollback",
	}}

	for _, p := range plan.Returned {
		b, _ := e.bins.Bin(p.BinID)
		report.Returned = append(report.Returned, ReturnedItem{
			TrackingID:   p.Package.TrackingID,
			BinID:        b.BinID,
			LocationCode: b.LocationCode,
		})
		events = append(events, domain.Event{
			Type:       domain.EventReturned,
			TrackingID: p.Package.TrackingID,
			BinID:      b.BinID,
			Detail:     "Returned to " + b.LocationCode + " after rollback",
		})
	}

	for _, p := range plan.Orphaned {
		report.Orphaned = append(report.Orphaned, p.TrackingID)
		events = append(events, domain.Event{
			Type:       domain.EventOrphaned,
			TrackingID: p.TrackingID,
			Detail:     "No bin available after rollback",
		})
	}

	if err := e.commit(ctx, events...); err != nil {
		return UnloadReport{}, err
	}
	if len(e.dock) > 0 {
		panic(fmt.Sprintf("allocation engine: unload %s left %d packages on the dock", trackingID, len(e.dock)))
	}
	report.Shipped = *plan.Shipped

	for i, p := range plan.Orphaned {
		e.log.WithError(plan.Errors[i]).WithField("tracking_id", p.TrackingID).Error("displaced package orphaned")
	}
	e.metrics.Shipped(1)
	e.metrics.Orphaned(len(plan.Orphaned))
	e.observeLevels()

	e.log.WithFields(logrus.Fields{
		"tracking_id": trackingID,
		"returned":    len(plan.Returned),
		"orphaned":    len(plan.Orphaned),
	}).Info("package unloaded")

	return report, nil
}

// DispatchTruck ships everything on the truck and ends the load session.
func (e *AllocationEngine) DispatchTruck(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.truck.Items()
	shipped := make([]string, 0, len(items))
	for _, p := range items {
		shipped = append(shipped, p.TrackingID)
	}
	if len(shipped) == 0 {
		return shipped, nil
	}

	err := e.commit(ctx, domain.Event{
		Type:   domain.EventDispatched,
		Detail: fmt.Sprintf("Dispatched %d packages", len(shipped)),
	})
	if err != nil {
		return nil, err
	}
	e.metrics.Shipped(len(shipped))
	e.observeLevels()

	e.log.WithField("packages", len(shipped)).Info("truck dispatched")
	return shipped, nil
}

func (e *AllocationEngine) dispatch() {
	for _, p := range e.truck.Clear() {
		e.retire(p)
	}
}

// RequeueBacklog puts every backlog package back at the tail of the conveyor.
func (e *AllocationEngine) RequeueBacklog(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.backlog) == 0 {
		return 0, nil
	}

	events := make([]domain.Event, 0, len(e.backlog))
	for _, p := range e.backlog {
		events = append(events, domain.Event{
			Type:       domain.EventRequeued,
			TrackingID: p.TrackingID,
			Detail:     "Returned from backlog to conveyor",
		})
	}
	if err := e.commit(ctx, events...); err != nil {
		return 0, err
	}
	e.observeLevels()

	return len(events), nil
}

func (e *AllocationEngine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.status()
}

func (e *AllocationEngine) status() Status {
	return Status{
		QueueLength:   e.queue.Len(),
		BacklogLength: len(e.backlog),
		ManifestSize:  e.truck.Len(),
		ManifestUsed:  e.truck.Used,
		ManifestLimit: e.truck.CapacityLimit,
		FreeBinCount:  e.bins.FreeCount(),
		BinCount:      e.bins.Len(),
	}
}

func (e *AllocationEngine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Snapshot{
		Status:   e.status(),
		Queue:    copyPackages(e.queue.Items()),
		Backlog:  copyPackages(e.backlog),
		Manifest: copyPackages(e.truck.Items()),
		Bins:     e.bins.Bins(),
	}
}

// Packages returns every tracked package sorted by tracking id.
func (e *AllocationEngine) Packages() []domain.Package {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.Package, 0, len(e.packages))
	for _, p := range e.packages {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b domain.Package) int { return strings.Compare(a.TrackingID, b.TrackingID) })
	return out
}

func (e *AllocationEngine) Package(trackingID string) (domain.Package, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.packages[trackingID]
	if !ok {
		return domain.Package{}, false
	}
	return *p, true
}

func (e *AllocationEngine) Bins() []domain.StorageBin {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.bins.Bins()
}

func (e *AllocationEngine) retire(p *domain.Package) {
	p.Status = domain.StatusShipped
	delete(e.packages, p.TrackingID)
	e.retired[p.TrackingID] = struct{}{}
}

// commit appends events to the shipment log and then applies them. A failed
// append leaves memory untouched, so the log never falls behind the engine.
// An event that cannot be applied after the engine itself produced it means
// the engine's own bookkeeping is broken.
func (e *AllocationEngine) commit(ctx context.Context, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	if e.events != nil {
		if err := e.events.Append(ctx, events...); err != nil {
			e.log.WithError(err).WithField("events", len(events)).Error("shipment log append failed; transition not applied")
			return fmt.Errorf("record %s: %w", events[0].Type, err)
		}
	}
	for _, ev := range events {
		if err := e.apply(ev); err != nil {
			panic(fmt.Sprintf("allocation engine: apply %s event for %q: %v", ev.Type, ev.TrackingID, err))
		}
	}
	return nil
}

func (e *AllocationEngine) observeLevels() {
	e.metrics.Levels(e.queue.Len(), len(e.backlog), e.truck.Len(), e.truck.Used, e.bins.FreeCount())
}

// invariant panics on structural errors that the engine's own checks rule out.
func invariant(err error) {
	if errors.Is(err, domain.ErrBinOccupied) || errors.Is(err, domain.ErrBinNotFound) {
		panic(fmt.Sprintf("allocation engine: %v", err))
	}
}

func utilization(used, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}

func copyPackages(in []*domain.Package) []domain.Package {
	out := make([]domain.Package, 0, len(in))
	for _, p := range in {
		out = append(out, *p)
	}
	return out
}
