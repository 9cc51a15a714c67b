package domain

import (
	"errors"
	"testing"
)

func loadTruck(t *testing.T, m *TruckManifest, pkgs ...*Package) {
	t.Helper()
	for _, p := range pkgs {
		if err := m.Push(p); err != nil {
			t.Fatalf("Push(%s): %v", p.TrackingID, err)
		}
	}
}

func TestTruckPushRespectsCapacity(t *testing.T) {
	m := NewTruckManifest(10)
	loadTruck(t, m, mustPackage(t, "PKG-1", 6))

	err := m.Push(mustPackage(t, "PKG-2", 5))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Push err = %v, want ErrCapacityExceeded", err)
	}
	if m.Used != 6 || m.Len() != 1 {
		t.Fatalf("Used = %d Len = %d, want 6 and 1", m.Used, m.Len())
	}

	if err := m.SetCapacityLimit(5); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("SetCapacityLimit below load err = %v", err)
	}
	if err := m.SetCapacityLimit(0); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("SetCapacityLimit(0) err = %v", err)
	}
}

func TestTruckUnloadBuriedItem(t *testing.T) {
	// build test data
	bins := newIndex(t,
		BinSpec{LocationCode: "A", Capacity: 10},
		BinSpec{LocationCode: "B", Capacity: 10},
	)
	a := mustPackage(t, "PKG-A", 5)
	b := mustPackage(t, "PKG-B", 5)
	c := mustPackage(t, "PKG-C", 5)
	m := NewTruckManifest(100)
	loadTruck(t, m, a, b, c)

	// call the method under test
	res, err := m.Unload("PKG-A", bins)
	if err != nil {
		t.Fatalf("Unload: %v", err)
	}

	// verify behavior
	if res.Shipped != a || a.Status != StatusShipped {
		t.Fatalf("shipped = %v", res.Shipped)
	}
	if len(res.Returned) != 2 {
		t.Fatalf("returned = %d, want 2", len(res.Returned))
	}
	if res.Returned[0].Package != c || res.Returned[1].Package != b {
		t.Errorf("returned order = %s, %s; want PKG-C, PKG-B",
			res.Returned[0].Package.TrackingID, res.Returned[1].Package.TrackingID)
	}
	if res.Returned[0].BinID != 1 || res.Returned[1].BinID != 2 {
		t.Errorf("returned bins = %d, %d; want 1, 2", res.Returned[0].BinID, res.Returned[1].BinID)
	}
	if b.Status != StatusBinned || c.Status != StatusBinned {
		t.Errorf("statuses = %s, %s; want binned", b.Status, c.Status)
	}
	if !m.IsIdle() || m.Used != 0 {
		t.Fatalf("truck not empty: len=%d used=%d", m.Len(), m.Used)
	}
}

func TestTruckUnloadTopItemLeavesRest(t *testing.T) {
	bins := newIndex(t)
	a := mustPackage(t, "PKG-A", 5)
	b := mustPackage(t, "PKG-B", 7)
	m := NewTruckManifest(100)
	loadTruck(t, m, a, b)

	res, err := m.Unload("PKG-B", bins)
	if err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if len(res.Returned) != 0 || len(res.Orphaned) != 0 {
		t.Fatalf("unexpected displacement: %+v", res)
	}
	items := m.Items()
	if len(items) != 1 || items[0] != a || m.Used != 5 {
		t.Fatalf("manifest = %v used %d", items, m.Used)
	}
}

func TestTruckUnloadOrphansWhenNoBinFits(t *testing.T) {
	bins := newIndex(t, BinSpec{LocationCode: "A", Capacity: 10})
	a := mustPackage(t, "PKG-A", 5)
	big := mustPackage(t, "PKG-BIG", 40)
	small := mustPackage(t, "PKG-SMALL", 3)
	m := NewTruckManifest(100)
	loadTruck(t, m, a, big, small)

	res, err := m.Unload("PKG-A", bins)
	if err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if len(res.Returned) != 1 || res.Returned[0].Package != small {
		t.Fatalf("returned = %+v, want PKG-SMALL", res.Returned)
	}
	if len(res.Orphaned) != 1 || res.Orphaned[0] != big {
		t.Fatalf("orphaned = %+v, want PKG-BIG", res.Orphaned)
	}
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], ErrOrphanedPackage) || !errors.Is(res.Errors[0], ErrNoFitFound) {
		t.Fatalf("errors = %v", res.Errors)
	}
}

func TestTruckUnloadNotFound(t *testing.T) {
	m := NewTruckManifest(10)
	loadTruck(t, m, mustPackage(t, "PKG-A", 5))

	if _, err := m.Unload("PKG-X", newIndex(t)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Unload err = %v, want ErrNotFound", err)
	}
	if m.Len() != 1 {
		t.Fatalf("failed unload changed the manifest")
	}
}

func TestTruckPlanUnloadLeavesStateAlone(t *testing.T) {
	// build test data
	bins := newIndex(t, BinSpec{LocationCode: "A", Capacity: 10})
	a := mustPackage(t, "PKG-A", 5)
	b := mustPackage(t, "PKG-B", 5)
	c := mustPackage(t, "PKG-C", 5)
	m := NewTruckManifest(100)
	loadTruck(t, m, a, b, c)

	// call the method under test
	plan, err := m.PlanUnload("PKG-A", bins)
	if err != nil {
		t.Fatalf("PlanUnload: %v", err)
	}

	// verify behavior
	if len(plan.Returned) != 1 || plan.Returned[0].Package != c || plan.Returned[0].BinID != 1 {
		t.Fatalf("returned = %+v, want PKG-C in bin 1", plan.Returned)
	}
	if len(plan.Orphaned) != 1 || plan.Orphaned[0] != b {
		t.Fatalf("orphaned = %+v, want PKG-B", plan.Orphaned)
	}
	if m.Len() != 3 || m.Used != 15 {
		t.Fatalf("truck changed: len=%d used=%d", m.Len(), m.Used)
	}
	if bins.FreeCount() != 1 {
		t.Fatalf("FreeCount = %d, want 1", bins.FreeCount())
	}
	if a.Status != StatusLoaded || c.Status != StatusLoaded {
		t.Fatalf("statuses = %s, %s; want loaded", a.Status, c.Status)
	}

	if _, err := m.PlanUnload("PKG-X", bins); !errors.Is(err, ErrNotFound) {
		t.Fatalf("PlanUnload(unknown) err = %v, want ErrNotFound", err)
	}
}
