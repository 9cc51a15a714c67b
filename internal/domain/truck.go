package domain

import (
	"fmt"
	"slices"
)

// TruckManifest is the LIFO load stack of the delivery truck.
// The last package pushed is the first one reachable at the door; removing a
// buried package means digging out everything loaded after it.
type TruckManifest struct {
	CapacityLimit int
	Used          int
	stack         []*Package
}

// Placement records a package put into a bin.
type Placement struct {
	Package *Package
	BinID   int
}

// Outcome of removing one package from the truck.
// Returned and Orphaned are in pop order (top of the stack first).
type UnloadResult struct {
	Shipped  *Package
	Returned []Placement
	Orphaned []*Package
	Errors   []error
}

func NewTruckManifest(capacityLimit int) *TruckManifest {
	return &TruckManifest{CapacityLimit: capacityLimit}
}

// SetCapacityLimit changes the limit for the current session.
// The limit cannot drop below what is already loaded.
func (m *TruckManifest) SetCapacityLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("set truck capacity: %w: limit must be positive, got %d", ErrInvalidCapacity, limit)
	}
	if limit < m.Used {
		return fmt.Errorf("set truck capacity: %w: limit %d below loaded volume %d", ErrInvalidCapacity, limit, m.Used)
	}
	m.CapacityLimit = limit
	return nil
}

// Load a single package on top of the stack.
func (m *TruckManifest) Push(pkg *Package) error {
	if m.Used+pkg.Size > m.CapacityLimit {
		return fmt.Errorf("load truck: %s size %d: %w (used=%d limit=%d)", pkg.TrackingID, pkg.Size, ErrCapacityExceeded, m.Used, m.CapacityLimit)
	}
	m.stack = append(m.stack, pkg)
	m.Used += pkg.Size
	pkg.Status = StatusLoaded
	pkg.BinID = 0
	return nil
}

// Pop removes the top package, or returns nil on an empty truck.
func (m *TruckManifest) Pop() *Package {
	if len(m.stack) == 0 {
		return nil
	}
	top := m.stack[len(m.stack)-1]
	m.stack[len(m.stack)-1] = nil
	m.stack = m.stack[:len(m.stack)-1]
	m.Used -= top.Size
	return top
}

// PopUntil pops packages until trackingID has been popped.
// displaced holds every package popped before the target, top first.
func (m *TruckManifest) PopUntil(trackingID string) (target *Package, displaced []*Package, err error) {
	if !m.Contains(trackingID) {
		return nil, nil, fmt.Errorf("unload %s: %w on truck", trackingID, ErrNotFound)
	}

	for {
		p := m.Pop()
		if p.TrackingID == trackingID {
			return p, displaced, nil
		}
		displaced = append(displaced, p)
	}
}

// Unload removes a package from the truck. Packages loaded after it are dug
// out and returned to storage by best fit, in the order they came off. A
// displaced package that no bin can take is reported as orphaned; the rest
// are still processed.
func (m *TruckManifest) Unload(trackingID string, bins *BinIndex) (UnloadResult, error) {
	plan, err := m.PlanUnload(trackingID, bins)
	if err != nil {
		return UnloadResult{}, err
	}

	target, _, err := m.PopUntil(trackingID)
	if err != nil {
		return UnloadResult{}, err
	}
	target.Status = StatusShipped

	for _, r := range plan.Returned {
		if err := bins.Assign(r.BinID, r.Package.TrackingID, r.Package.Size); err != nil {
			panic(fmt.Sprintf("truck manifest: planned return of %s: %v", r.Package.TrackingID, err))
		}
		r.Package.Status = StatusBinned
		r.Package.BinID = r.BinID
	}
	return plan, nil
}

// PlanUnload works out what Unload would do without touching the truck, the
// bins or any package.
func (m *TruckManifest) PlanUnload(trackingID string, bins *BinIndex) (UnloadResult, error) {
	i := slices.IndexFunc(m.stack, func(p *Package) bool { return p.TrackingID == trackingID })
	if i < 0 {
		return UnloadResult{}, fmt.Errorf("unload %s: %w on truck", trackingID, ErrNotFound)
	}

	scratch := bins.Clone()
	res := UnloadResult{Shipped: m.stack[i]}
	for j := len(m.stack) - 1; j > i; j-- {
		p := m.stack[j]
		binID, err := scratch.BestFit(p.Size)
		if err == nil {
			err = scratch.Assign(binID, p.TrackingID, p.Size)
		}
		if err != nil {
			res.Orphaned = append(res.Orphaned, p)
			res.Errors = append(res.Errors, fmt.Errorf("unload %s: return %s to storage: %w: %w", trackingID, p.TrackingID, ErrOrphanedPackage, err))
			continue
		}
		res.Returned = append(res.Returned, Placement{Package: p, BinID: binID})
	}
	return res, nil
}

// Clear empties the truck and returns its contents bottom to top.
func (m *TruckManifest) Clear() []*Package {
	out := m.stack
	m.stack = nil
	m.Used = 0
	return out
}

func (m *TruckManifest) Contains(trackingID string) bool {
	for _, p := range m.stack {
		if p.TrackingID == trackingID {
			return true
		}
	}
	return false
}

// Items returns the stack bottom to top.
func (m *TruckManifest) Items() []*Package {
	out := make([]*Package, len(m.stack))
	copy(out, m.stack)
	return out
}

func (m *TruckManifest) Len() int     { return len(m.stack) }
func (m *TruckManifest) IsIdle() bool { return len(m.stack) == 0 }
