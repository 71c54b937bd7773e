package logging

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func sampleRecords(base time.Time) []Record {
	return []Record{
		{Timestamp: base, OrderID: "o1", OrderNo: "41", Actor: "cli", ItemsSent: 2,
			PerTarget: map[string]bool{"grill": true}, Success: true, Message: "sent"},
		{Timestamp: base.Add(time.Minute), OrderID: "o2", OrderNo: "42", Actor: "system", ItemsSent: 1,
			PerTarget: map[string]bool{"bar": false}, Success: false, Message: "failed"},
		{Timestamp: base.Add(2 * time.Minute), OrderID: "o3", OrderNo: "43", Actor: "cli", ItemsSent: 3,
			PerTarget: map[string]bool{"grill": true, "bar": true}, Success: true, Message: "sent"},
	}
}

func runStoreTests(t *testing.T, store LogStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Truncate(time.Second)
	for _, r := range sampleRecords(base) {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := store.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	byOrder, err := store.Query(ctx, Query{OrderID: "o2"})
	if err != nil {
		t.Fatalf("query by order: %v", err)
	}
	if len(byOrder) != 1 || byOrder[0].OrderNo != "42" || byOrder[0].Success {
		t.Fatalf("order filter wrong: %+v", byOrder)
	}

	window, err := store.Query(ctx, Query{Start: base.Add(30 * time.Second), End: base.Add(90 * time.Second)})
	if err != nil {
		t.Fatalf("query window: %v", err)
	}
	if len(window) != 1 || window[0].OrderID != "o2" {
		t.Fatalf("time window filter wrong: %+v", window)
	}
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	runStoreTests(t, store)
}

func TestJSONLStore_PrinterFilter(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	for _, r := range sampleRecords(time.Now()) {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	byPrinter, err := store.Query(ctx, Query{Printer: "bar"})
	if err != nil {
		t.Fatalf("query by printer: %v", err)
	}
	if len(byPrinter) != 2 {
		t.Fatalf("printer filter wrong: %+v", byPrinter)
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	runStoreTests(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	rec := sampleRecords(time.Now())[0]
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = store2.Close() }()
	got, err := store2.Query(ctx, Query{OrderID: rec.OrderID})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Message != rec.Message {
		t.Fatalf("records must survive reopen: %+v", got)
	}
}
