package domain

import (
	"fmt"
	"strings"
)

type PackageStatus string

const (
	StatusQueued     PackageStatus = "queued"
	StatusBinned     PackageStatus = "binned"
	StatusLoaded     PackageStatus = "loaded"
	StatusBacklogged PackageStatus = "backlogged"
	StatusShipped    PackageStatus = "shipped"
)

// Represents a single unit moving through the fulfillment center.
// Identity fields never change after creation; Status and BinID track which
// structure currently holds the package.
type Package struct {
	TrackingID  string
	Size        int
	Destination string
	IsFragile   bool
	Status      PackageStatus
	BinID       int
}

func NewPackage(trackingID string, size int, destination string, isFragile bool) (*Package, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, fmt.Errorf("new package: %w: tracking id must not be empty", ErrInvalidPackage)
	}
	if size <= 0 {
		return nil, fmt.Errorf("new package %s: %w: size must be positive, got %d", trackingID, ErrInvalidPackage, size)
	}

	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("new package %s: %w: destination must not be empty", trackingID, ErrInvalidPackage)
	}

	return &Package{
		TrackingID:  trackingID,
		Size:        size,
		Destination: destination,
		IsFragile:   isFragile,
	}, nil
}

func (p *Package) String() string {
	return fmt.Sprintf("%s (size=%d status=%s)", p.TrackingID, p.Size, p.Status)
}
