package repositories

import (
	"context"
	"database/sql"
	"testing"
	"warehouse-allocation-service/internal/domain"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return db
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := InitSchema(db); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}
}

func TestSqliteEventLog_AppendListTruncate(t *testing.T) {
	ctx := context.Background()
	log := NewSqliteEventLog(openTestDB(t))

	events := []domain.Event{
		{Type: domain.EventBinsReset, Bins: []domain.BinSpec{{LocationCode: "A", Capacity: 10}}},
		{Type: domain.EventIngested, TrackingID: "PKG-1", Size: 5, Destination: "Zone B", IsFragile: true},
		{Type: domain.EventStored, TrackingID: "PKG-1", BinID: 1},
		{Type: domain.EventLoaded, TrackingID: "PKG-1", BinID: 1, CapacityLimit: 100},
	}
	if err := log.Append(ctx, events[:2]...); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Append(ctx, events[2:]...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := log.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("len(events) = %d, want %d", len(got), len(events))
	}
	for i, ev := range got {
		if ev.Seq != int64(i+1) {
			t.Fatalf("events[%d].Seq = %d, want %d", i, ev.Seq, i+1)
		}
		if ev.Type != events[i].Type || ev.TrackingID != events[i].TrackingID || ev.BinID != events[i].BinID {
			t.Fatalf("events[%d] = %+v, want %+v", i, ev, events[i])
		}
		if ev.RecordedAt.IsZero() {
			t.Fatalf("events[%d].RecordedAt is zero", i)
		}
	}
	if got[0].Bins[0] != events[0].Bins[0] {
		t.Fatalf("bins = %+v, want %+v", got[0].Bins, events[0].Bins)
	}
	if !got[1].IsFragile || got[1].Destination != "Zone B" || got[1].Size != 5 {
		t.Fatalf("ingested payload = %+v", got[1])
	}
	if got[3].CapacityLimit != 100 {
		t.Fatalf("CapacityLimit = %d, want 100", got[3].CapacityLimit)
	}

	if err := log.Truncate(ctx); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	got, err = log.List(ctx)
	if err != nil {
		t.Fatalf("List after truncate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(events) after truncate = %d, want 0", len(got))
	}

	if err := log.Append(ctx, events[0]); err != nil {
		t.Fatalf("Append after truncate: %v", err)
	}
	got, _ = log.List(ctx)
	if got[0].Seq != 1 {
		t.Fatalf("Seq after truncate = %d, want 1", got[0].Seq)
	}
}

func TestSqliteBinRepository_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteBinRepository(openTestDB(t))

	first := []domain.BinSpec{{LocationCode: "A", Capacity: 10}, {LocationCode: "B", Capacity: 20}}
	if err := repo.ReplaceBins(ctx, first); err != nil {
		t.Fatalf("ReplaceBins: %v", err)
	}

	second := []domain.BinSpec{{LocationCode: "C", Capacity: 5}}
	if err := repo.ReplaceBins(ctx, second); err != nil {
		t.Fatalf("ReplaceBins: %v", err)
	}

	got, err := repo.ListBins(ctx)
	if err != nil {
		t.Fatalf("ListBins: %v", err)
	}
	if len(got) != 1 || got[0] != second[0] {
		t.Fatalf("ListBins = %+v, want %+v", got, second)
	}
}

func TestSqliteBinRepository_DuplicateCodeRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteBinRepository(openTestDB(t))

	if err := repo.ReplaceBins(ctx, []domain.BinSpec{{LocationCode: "A", Capacity: 10}}); err != nil {
		t.Fatalf("ReplaceBins: %v", err)
	}

	dup := []domain.BinSpec{{LocationCode: "X", Capacity: 10}, {LocationCode: "X", Capacity: 20}}
	if err := repo.ReplaceBins(ctx, dup); err == nil {
		t.Fatalf("ReplaceBins with duplicate codes: expected error")
	}

	got, err := repo.ListBins(ctx)
	if err != nil {
		t.Fatalf("ListBins: %v", err)
	}
	if len(got) != 1 || got[0].LocationCode != "A" {
		t.Fatalf("ListBins = %+v, want previous layout", got)
	}
}
