package domain

import "errors"

var (
	ErrNoFitFound          = errors.New("no free bin fits package")
	ErrBinOccupied         = errors.New("bin is occupied")
	ErrBinEmpty            = errors.New("bin is empty")
	ErrBinNotFound         = errors.New("bin not found")
	ErrInvalidBinLayout    = errors.New("invalid bin layout")
	ErrInvalidCapacity     = errors.New("invalid capacity")
	ErrCapacityExceeded    = errors.New("truck capacity exceeded")
	ErrNotFound            = errors.New("package not found")
	ErrInvalidPackage      = errors.New("invalid package")
	ErrDuplicateTrackingID = errors.New("duplicate tracking id")
	ErrPackageNotBinned    = errors.New("package is not in a bin")
	ErrOrphanedPackage     = errors.New("orphaned package")
	ErrTooManyCandidates   = errors.New("too many load candidates")
	ErrReplayMismatch      = errors.New("event does not match engine state")
)
