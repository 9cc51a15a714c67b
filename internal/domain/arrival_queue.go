package domain

import (
	"errors"
	"fmt"
)

type Outcome string

const (
	OutcomeIdle        Outcome = "idle"
	OutcomePlaced      Outcome = "placed"
	OutcomeRotated     Outcome = "rotated"
	OutcomeUnplaceable Outcome = "unplaceable"
)

// Result of one processing step of the arrival queue.
// BinID is set only for OutcomePlaced.
type ProcessResult struct {
	Outcome Outcome
	Package *Package
	BinID   int
}

// ArrivalQueue is the FIFO conveyor of packages waiting for a bin.
//
// A front package that fits nowhere is rotated to the back instead of
// blocking the queue. Packages rotated since the last successful placement
// are tracked in the stalled set; a stalled package that fails again is
// ejected as unplaceable, so a queue where nothing fits drains within two
// laps instead of spinning forever.
type ArrivalQueue struct {
	items   []*Package
	index   map[string]struct{}
	stalled map[string]struct{}
}

func NewArrivalQueue() *ArrivalQueue {
	return &ArrivalQueue{
		index:   make(map[string]struct{}),
		stalled: make(map[string]struct{}),
	}
}

// Enqueue appends a package to the back of the queue.
func (q *ArrivalQueue) Enqueue(pkg *Package) error {
	if pkg == nil {
		return fmt.Errorf("enqueue: %w: package is nil", ErrInvalidPackage)
	}
	if _, ok := q.index[pkg.TrackingID]; ok {
		return fmt.Errorf("enqueue %s: %w", pkg.TrackingID, ErrDuplicateTrackingID)
	}

	q.items = append(q.items, pkg)
	q.index[pkg.TrackingID] = struct{}{}
	pkg.Status = StatusQueued
	pkg.BinID = 0
	return nil
}

// ProcessOne attempts to place the front package.
func (q *ArrivalQueue) ProcessOne(bins *BinIndex) (ProcessResult, error) {
	res, err := q.Decide(bins)
	if err != nil {
		return ProcessResult{}, err
	}
	if err := q.Apply(res, bins); err != nil {
		return ProcessResult{}, err
	}
	return res, nil
}

// Decide computes the next processing step without mutating anything.
func (q *ArrivalQueue) Decide(bins *BinIndex) (ProcessResult, error) {
	front := q.Peek()
	if front == nil {
		return ProcessResult{Outcome: OutcomeIdle}, nil
	}

	binID, err := bins.BestFit(front.Size)
	switch {
	case err == nil:
		return ProcessResult{Outcome: OutcomePlaced, Package: front, BinID: binID}, nil
	case errors.Is(err, ErrNoFitFound):
		if _, ok := q.stalled[front.TrackingID]; ok {
			return ProcessResult{Outcome: OutcomeUnplaceable, Package: front}, nil
		}
		return ProcessResult{Outcome: OutcomeRotated, Package: front}, nil
	default:
		return ProcessResult{}, fmt.Errorf("process %s: %w", front.TrackingID, err)
	}
}

// Apply performs a processing step previously produced by Decide, or read
// back from the shipment log. The step must name the current front package.
func (q *ArrivalQueue) Apply(res ProcessResult, bins *BinIndex) error {
	if res.Outcome == OutcomeIdle {
		return nil
	}

	front := q.Peek()
	if front == nil || res.Package == nil || front.TrackingID != res.Package.TrackingID {
		want := "<nil>"
		if res.Package != nil {
			want = res.Package.TrackingID
		}
		return fmt.Errorf("apply %s of %s: %w: queue front is %v", res.Outcome, want, ErrReplayMismatch, front)
	}

	switch res.Outcome {
	case OutcomePlaced:
		if err := bins.Assign(res.BinID, front.TrackingID, front.Size); err != nil {
			return fmt.Errorf("apply placement of %s: %w", front.TrackingID, err)
		}
		q.popFront()
		front.Status = StatusBinned
		front.BinID = res.BinID
		q.ResetPasses()
	case OutcomeRotated:
		q.items = append(q.items[1:], front)
		q.stalled[front.TrackingID] = struct{}{}
	case OutcomeUnplaceable:
		q.popFront()
	default:
		return fmt.Errorf("apply %s: unknown outcome %q", front.TrackingID, res.Outcome)
	}

	return nil
}

// ResetPasses forgets which packages have already lapped the queue.
func (q *ArrivalQueue) ResetPasses() {
	clear(q.stalled)
}

func (q *ArrivalQueue) popFront() *Package {
	front := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	delete(q.index, front.TrackingID)
	delete(q.stalled, front.TrackingID)
	return front
}

// Peek returns the front package, or nil when the queue is empty.
func (q *ArrivalQueue) Peek() *Package {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *ArrivalQueue) Len() int { return len(q.items) }

func (q *ArrivalQueue) Contains(trackingID string) bool {
	_, ok := q.index[trackingID]
	return ok
}

// Items returns the queue contents front to back.
func (q *ArrivalQueue) Items() []*Package {
	out := make([]*Package, len(q.items))
	copy(out, q.items)
	return out
}
