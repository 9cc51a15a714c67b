package domain

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// BinIndex owns the capacity/occupancy relation of every storage bin.
//
// Free bins are kept in a slice ordered by (capacity, location code, id) so a
// best-fit lookup is a single binary search. Occupied bins leave that slice
// and are re-inserted at their ordered position when released.
type BinIndex struct {
	bins map[int]*StorageBin
	free []*StorageBin
}

func NewBinIndex() *BinIndex {
	return &BinIndex{bins: make(map[int]*StorageBin)}
}

// Reset replaces every bin with the given layout. Ids are assigned 1..n in
// layout order, so the same layout always produces the same ids.
func (x *BinIndex) Reset(layout []BinSpec) error {
	seen := make(map[string]struct{}, len(layout))
	bins := make(map[int]*StorageBin, len(layout))
	free := make([]*StorageBin, 0, len(layout))

	for i, entry := range layout {
		code := strings.TrimSpace(entry.LocationCode)
		if code == "" {
			return fmt.Errorf("reset bins: %w: entry %d has empty location code", ErrInvalidBinLayout, i+1)
		}
		if entry.Capacity <= 0 {
			return fmt.Errorf("reset bins: %w: %s capacity must be positive, got %d", ErrInvalidBinLayout, code, entry.Capacity)
		}
		if _, ok := seen[code]; ok {
			return fmt.Errorf("reset bins: %w: duplicate location code %s", ErrInvalidBinLayout, code)
		}
		seen[code] = struct{}{}

		b := &StorageBin{BinID: i + 1, LocationCode: code, Capacity: entry.Capacity}
		bins[b.BinID] = b
		free = append(free, b)
	}

	slices.SortFunc(free, binLess)
	x.bins = bins
	x.free = free
	return nil
}

// BestFit returns the smallest free bin whose capacity holds size.
// Equal capacities resolve to the lowest location code.
func (x *BinIndex) BestFit(size int) (int, error) {
	i := sort.Search(len(x.free), func(i int) bool { return x.free[i].Capacity >= size })
	if i == len(x.free) {
		return 0, fmt.Errorf("best fit size=%d: %w", size, ErrNoFitFound)
	}
	return x.free[i].BinID, nil
}

func (x *BinIndex) Assign(binID int, trackingID string, size int) error {
	b, ok := x.bins[binID]
	if !ok {
		return fmt.Errorf("assign bin %d: %w", binID, ErrBinNotFound)
	}
	if !b.IsFree() {
		return fmt.Errorf("assign bin %d to %s: %w by %s", binID, trackingID, ErrBinOccupied, b.Occupant)
	}
	if size > b.Capacity {
		return fmt.Errorf("assign bin %d to %s: size %d exceeds capacity %d: %w", binID, trackingID, size, b.Capacity, ErrNoFitFound)
	}

	i, found := slices.BinarySearchFunc(x.free, b, binLess)
	if !found {
		panic(fmt.Sprintf("bin index: free bin %d missing from ordered index", binID))
	}
	x.free = slices.Delete(x.free, i, i+1)

	b.Occupant = trackingID
	b.OccupantSize = size
	return nil
}

// Release frees the bin and returns the evicted tracking id.
func (x *BinIndex) Release(binID int) (string, error) {
	b, ok := x.bins[binID]
	if !ok {
		return "", fmt.Errorf("release bin %d: %w", binID, ErrBinNotFound)
	}
	if b.IsFree() {
		return "", fmt.Errorf("release bin %d: %w", binID, ErrBinEmpty)
	}

	evicted := b.Occupant
	b.Occupant = ""
	b.OccupantSize = 0

	i, _ := slices.BinarySearchFunc(x.free, b, binLess)
	x.free = slices.Insert(x.free, i, b)
	return evicted, nil
}

// ListOccupied returns every occupied bin sorted by tracking id.
func (x *BinIndex) ListOccupied() []OccupiedSlot {
	out := make([]OccupiedSlot, 0, len(x.bins)-len(x.free))
	for _, b := range x.bins {
		if b.IsFree() {
			continue
		}
		out = append(out, OccupiedSlot{TrackingID: b.Occupant, Size: b.OccupantSize, BinID: b.BinID})
	}
	slices.SortFunc(out, func(a, b OccupiedSlot) int { return strings.Compare(a.TrackingID, b.TrackingID) })
	return out
}

// Bin returns a copy of the bin with the given id.
func (x *BinIndex) Bin(binID int) (StorageBin, bool) {
	b, ok := x.bins[binID]
	if !ok {
		return StorageBin{}, false
	}
	return *b, true
}

// Bins returns copies of all bins in capacity order.
func (x *BinIndex) Bins() []StorageBin {
	out := make([]StorageBin, 0, len(x.bins))
	for _, b := range x.bins {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b StorageBin) int { return binLess(&a, &b) })
	return out
}

// Clone returns an independent copy of the index.
func (x *BinIndex) Clone() *BinIndex {
	c := &BinIndex{
		bins: make(map[int]*StorageBin, len(x.bins)),
		free: make([]*StorageBin, 0, len(x.free)),
	}
	for id, b := range x.bins {
		cp := *b
		c.bins[id] = &cp
	}
	for _, b := range x.free {
		c.free = append(c.free, c.bins[b.BinID])
	}
	return c
}

func (x *BinIndex) Len() int       { return len(x.bins) }
func (x *BinIndex) FreeCount() int { return len(x.free) }
