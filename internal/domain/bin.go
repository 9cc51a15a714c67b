package domain

import "strings"

// Represents a physical storage bin. Capacity is fixed at creation and a bin
// holds at most one package.
type StorageBin struct {
	BinID        int
	LocationCode string
	Capacity     int
	Occupant     string
	OccupantSize int
}

func (b *StorageBin) IsFree() bool { return b.Occupant == "" }

// One entry of a bin layout, as supplied by bootstrap fixtures.
type BinSpec struct {
	LocationCode string `json:"location_code" yaml:"location_code"`
	Capacity     int    `json:"capacity" yaml:"capacity"`
}

// An occupied bin as seen by the load optimizer.
type OccupiedSlot struct {
	TrackingID string
	Size       int
	BinID      int
}

// binLess orders bins by capacity, then location code, then id.
func binLess(a, b *StorageBin) int {
	if a.Capacity != b.Capacity {
		if a.Capacity < b.Capacity {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.LocationCode, b.LocationCode); c != 0 {
		return c
	}
	switch {
	case a.BinID < b.BinID:
		return -1
	case a.BinID > b.BinID:
		return 1
	}
	return 0
}
