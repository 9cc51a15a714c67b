package services

import (
	"context"
	"fmt"
	"slices"
	"warehouse-allocation-service/internal/domain"
)

// Replay rebuilds the engine from an ordered shipment log. Events are applied
// directly rather than re-decided, so the rebuilt queue order, bin occupancy
// and truck stack match the recorded session exactly. Nothing is appended to
// the log while replaying.
func (e *AllocationEngine) Replay(ctx context.Context, events []domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetState(domain.NewBinIndex())

	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.apply(ev); err != nil {
			return fmt.Errorf("replay event #%d (seq=%d type=%s tracking_id=%s): %w", i+1, ev.Seq, ev.Type, ev.TrackingID, err)
		}
	}

	// A log cut short in the middle of a rollback leaves packages on the dock.
	for _, p := range e.dock {
		p.Status = domain.StatusBacklogged
		e.backlog = append(e.backlog, p)
		e.log.WithField("tracking_id", p.TrackingID).Warn("replay: package left on dock, moved to backlog")
	}
	e.dock = nil
	e.observeLevels()

	e.log.WithField("events", len(events)).Info("shipment log replayed")
	return nil
}

func (e *AllocationEngine) apply(ev domain.Event) error {
	switch ev.Type {
	case domain.EventBinsReset:
		bins := domain.NewBinIndex()
		if err := bins.Reset(ev.Bins); err != nil {
			return err
		}
		e.resetState(bins)

	case domain.EventIngested:
		if _, ok := e.packages[ev.TrackingID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateTrackingID, ev.TrackingID)
		}
		pkg, err := domain.NewPackage(ev.TrackingID, ev.Size, ev.Destination, ev.IsFragile)
		if err != nil {
			return err
		}
		if err := e.queue.Enqueue(pkg); err != nil {
			return err
		}
		e.packages[pkg.TrackingID] = pkg

	case domain.EventStored, domain.EventRotated, domain.EventEjected:
		pkg, err := e.lookup(ev.TrackingID)
		if err != nil {
			return err
		}
		res := domain.ProcessResult{Package: pkg, BinID: ev.BinID}
		switch ev.Type {
		case domain.EventStored:
			res.Outcome = domain.OutcomePlaced
		case domain.EventRotated:
			res.Outcome = domain.OutcomeRotated
		default:
			res.Outcome = domain.OutcomeUnplaceable
		}
		if err := e.queue.Apply(res, e.bins); err != nil {
			return err
		}
		if res.Outcome == domain.OutcomeUnplaceable {
			pkg.Status = domain.StatusBacklogged
			e.backlog = append(e.backlog, pkg)
		}

	case domain.EventLoaded:
		pkg, err := e.lookup(ev.TrackingID)
		if err != nil {
			return err
		}
		if pkg.Status != domain.StatusBinned || pkg.BinID != ev.BinID {
			return fmt.Errorf("%w: package is %s in bin %d, event names bin %d", domain.ErrReplayMismatch, pkg.Status, pkg.BinID, ev.BinID)
		}
		if ev.CapacityLimit > 0 {
			if err := e.truck.SetCapacityLimit(ev.CapacityLimit); err != nil {
				return err
			}
		}
		if evicted, err := e.bins.Release(ev.BinID); err != nil {
			return err
		} else if evicted != pkg.TrackingID {
			return fmt.Errorf("%w: bin %d held %s", domain.ErrReplayMismatch, ev.BinID, evicted)
		}
		if err := e.truck.Push(pkg); err != nil {
			return err
		}
		e.queue.ResetPasses()

	case domain.EventShipped:
		target, displaced, err := e.truck.PopUntil(ev.TrackingID)
		if err != nil {
			return err
		}
		e.retire(target)
		e.dock = append(e.dock, displaced...)

	case domain.EventReturned, domain.EventOrphaned:
		i := slices.IndexFunc(e.dock, func(p *domain.Package) bool { return p.TrackingID == ev.TrackingID })
		if i < 0 {
			return fmt.Errorf("%w: %s is not on the dock", domain.ErrReplayMismatch, ev.TrackingID)
		}
		pkg := e.dock[i]
		e.dock = slices.Delete(e.dock, i, i+1)

		if ev.Type == domain.EventOrphaned {
			pkg.Status = domain.StatusBacklogged
			e.backlog = append(e.backlog, pkg)
			break
		}
		if err := e.bins.Assign(ev.BinID, pkg.TrackingID, pkg.Size); err != nil {
			return err
		}
		pkg.Status = domain.StatusBinned
		pkg.BinID = ev.BinID

	case domain.EventRequeued:
		i := slices.IndexFunc(e.backlog, func(p *domain.Package) bool { return p.TrackingID == ev.TrackingID })
		if i < 0 {
			return fmt.Errorf("%w: %s is not in the backlog", domain.ErrReplayMismatch, ev.TrackingID)
		}
		pkg := e.backlog[i]
		e.backlog = slices.Delete(e.backlog, i, i+1)
		if err := e.queue.Enqueue(pkg); err != nil {
			return err
		}
		e.queue.ResetPasses()

	case domain.EventDispatched:
		e.dispatch()

	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	return nil
}

func (e *AllocationEngine) lookup(trackingID string) (*domain.Package, error) {
	pkg, ok := e.packages[trackingID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, trackingID)
	}
	return pkg, nil
}
