package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

func TestMemoryApplyDelta_NeverNegative(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	key := domain.InventoryKey{ProductID: "p1", LocationID: "wh1", SublocationID: "A-01"}
	m.AddInventory(domain.InventoryLine{InventoryKey: key, OnHand: 5})

	err := m.ApplyDelta(ctx, domain.InventoryDelta{Key: key, QtyChange: -6, TransactionType: domain.TxnPick, ReferenceType: domain.RefTask, ReferenceID: "t1"})
	if !errors.Is(err, domain.ErrInsufficientInventory) {
		t.Fatalf("expected ErrInsufficientInventory, got %v", err)
	}

	if err := m.ApplyDelta(ctx, domain.InventoryDelta{Key: key, QtyChange: -5, TransactionType: domain.TxnPick, ReferenceType: domain.RefTask, ReferenceID: "t1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	onHand, _ := m.OnHand(ctx, key)
	if onHand != 0 {
		t.Errorf("expected 0 on hand, got %d", onHand)
	}
	if n := len(m.Transactions()); n != 1 {
		t.Errorf("expected 1 transaction, got %d", n)
	}
}

func TestMemoryApplyDelta_CreatesRow(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	key := domain.InventoryKey{ProductID: "p1", LocationID: "wh1", SublocationID: "B-02"}

	if err := m.ApplyDelta(ctx, domain.InventoryDelta{Key: key, QtyChange: 12, TransactionType: domain.TxnPutaway, ReferenceType: domain.RefTask, ReferenceID: "t1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	avail, _ := m.QueryAvailable(ctx, "p1", "wh1", "")
	if avail != 12 {
		t.Errorf("expected 12 available, got %d", avail)
	}
}

func TestMemorySetStatus_PartialRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	m.AddInventory(domain.InventoryLine{
		InventoryKey: domain.InventoryKey{ProductID: "p1", LocationID: "dock"},
		Status:       domain.InventoryStatusQuarantine,
		OnHand:       30,
	})

	moved, err := m.SetStatus(ctx, domain.StatusChange{
		ProductID: "p1", LocationID: "dock",
		From: domain.InventoryStatusQuarantine, To: domain.InventoryStatusAvailable,
		MaxQty: 20, ReferenceType: domain.RefTask, ReferenceID: "ins-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved != 20 {
		t.Errorf("expected 20 moved, got %d", moved)
	}

	avail, _ := m.QueryAvailable(ctx, "p1", "dock", "")
	if avail != 20 {
		t.Errorf("expected 20 available, got %d", avail)
	}
	var quarantined int
	for _, row := range m.Inventory() {
		if row.Status == domain.InventoryStatusQuarantine {
			quarantined += row.OnHand
		}
	}
	if quarantined != 10 {
		t.Errorf("expected 10 still in quarantine, got %d", quarantined)
	}
}

func TestMemoryListLotInventory_FEFO(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	late := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	m.AddInventory(domain.InventoryLine{InventoryKey: domain.InventoryKey{ProductID: "p1", LocationID: "wh1", LotID: "no-expiry"}, OnHand: 1})
	m.AddInventory(domain.InventoryLine{InventoryKey: domain.InventoryKey{ProductID: "p1", LocationID: "wh1", LotID: "late"}, OnHand: 1, LotExpiresAt: &late})
	m.AddInventory(domain.InventoryLine{InventoryKey: domain.InventoryKey{ProductID: "p1", LocationID: "wh1", LotID: "early"}, OnHand: 1, LotExpiresAt: &early})
	m.AddInventory(domain.InventoryLine{InventoryKey: domain.InventoryKey{ProductID: "p1", LocationID: "wh1"}, OnHand: 1})

	lots, err := m.ListLotInventory(ctx, "p1", "wh1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"early", "late", "no-expiry"}
	if len(lots) != len(want) {
		t.Fatalf("expected %d lots, got %d", len(want), len(lots))
	}
	for i, w := range want {
		if lots[i].LotID != w {
			t.Errorf("position %d: expected %s, got %s", i, w, lots[i].LotID)
		}
	}

	unlotted, _ := m.ListUnlottedInventory(ctx, "p1", "wh1")
	if len(unlotted) != 1 {
		t.Errorf("expected 1 unlotted row, got %d", len(unlotted))
	}
}

func TestMemoryUpdateTask_VersionCheck(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	task := domain.Task{ID: "t1", Type: domain.TaskTypePick, Status: domain.TaskStatusPending}
	if err := m.CreateTask(ctx, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.UpdateTask(ctx, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.UpdateTask(ctx, task); !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Errorf("expected ErrConcurrentUpdate, got %v", err)
	}

	got, _ := m.GetTask(ctx, "t1")
	if got.Version != 1 {
		t.Errorf("expected version 1, got %d", got.Version)
	}
}

func TestMemoryNextSequence_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	const n = 200
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := m.NextSequence(ctx, "task:PCK:2026")
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("expected %d distinct values, got %d", n, len(seen))
	}
}

func TestMemoryProductSublocations(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	m.AddInventory(domain.InventoryLine{InventoryKey: domain.InventoryKey{ProductID: "p1", LocationID: "wh1", SublocationID: "B"}, OnHand: 2})
	m.AddInventory(domain.InventoryLine{InventoryKey: domain.InventoryKey{ProductID: "p1", LocationID: "wh1", SublocationID: "A"}, OnHand: 0})
	m.AddInventory(domain.InventoryLine{InventoryKey: domain.InventoryKey{ProductID: "p2", LocationID: "wh1", SublocationID: "C"}, OnHand: 4})

	subs, _ := m.ProductSublocations(ctx, "p1", "wh1")
	if len(subs) != 1 || subs[0] != "B" {
		t.Errorf("expected [B], got %v", subs)
	}

	used, _ := m.SublocationUsage(ctx, []string{"A", "B", "C"})
	if used["B"] != 2 || used["C"] != 4 || used["A"] != 0 {
		t.Errorf("unexpected usage: %v", used)
	}
}

func TestMemoryClaim_Release(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	if ok, _ := m.Claim(ctx, "k1"); !ok {
		t.Fatal("expected first claim")
	}
	if ok, _ := m.Claim(ctx, "k1"); ok {
		t.Fatal("expected repeat claim refused")
	}
	m.Release(ctx, "k1")
	if ok, _ := m.Claim(ctx, "k1"); !ok {
		t.Error("expected claim after release")
	}
}
