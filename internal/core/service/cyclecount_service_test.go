package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

var (
	binA = domain.InventoryKey{ProductID: "widget", LocationID: "wh1", SublocationID: "A-01"}
	binB = domain.InventoryKey{ProductID: "gadget", LocationID: "wh1", SublocationID: "B-01"}
)

func newCount(t *testing.T, env *testEnv, blind bool) (*domain.CycleCount, []domain.CycleCountItem) {
	t.Helper()
	count, items, err := env.engine.Counts.CreateCount(context.Background(), domain.CountRequest{
		LocationID: "wh1",
		Blind:      blind,
		ActorID:    "supervisor",
		Lines: []domain.CountLine{
			{ProductID: binA.ProductID, SublocationID: binA.SublocationID},
			{ProductID: binB.ProductID, SublocationID: binB.SublocationID},
		},
	})
	if err != nil {
		t.Fatalf("create count: %v", err)
	}
	return count, items
}

func seedBins(env *testEnv) {
	env.mem.AddInventory(domain.InventoryLine{InventoryKey: binA, OnHand: 50})
	env.mem.AddInventory(domain.InventoryLine{InventoryKey: binB, OnHand: 10})
}

func TestCreateCount_FreezesExpected(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, false)

	if count.CountNumber != "CC-2026-00001" {
		t.Errorf("expected CC-2026-00001, got %s", count.CountNumber)
	}
	if count.Status != domain.CountStatusPending {
		t.Errorf("expected pending, got %s", count.Status)
	}
	if items[0].ExpectedQty != 50 || items[1].ExpectedQty != 10 {
		t.Errorf("expected 50 and 10, got %d and %d", items[0].ExpectedQty, items[1].ExpectedQty)
	}

	// Later stock movement does not change the frozen expectation.
	env.mem.ApplyDelta(context.Background(), domain.InventoryDelta{Key: binA, QtyChange: 5, TransactionType: domain.TxnPutaway, ReferenceType: domain.RefTask, ReferenceID: "t1"})
	_, stored, _ := env.engine.Counts.GetCount(context.Background(), count.ID)
	for _, it := range stored {
		if it.ProductID == binA.ProductID && it.ExpectedQty != 50 {
			t.Errorf("expected frozen 50, got %d", it.ExpectedQty)
		}
	}
}

func TestRecordCount_Variance(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, false)
	ctx := context.Background()

	item, err := env.engine.Counts.RecordCount(ctx, items[0].ID, 47, "counter-1")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if *item.CountedQty != 47 || *item.Variance != -3 {
		t.Errorf("expected counted 47 variance -3, got %d and %d", *item.CountedQty, *item.Variance)
	}
	if item.VariancePercent.String() != "-6" {
		t.Errorf("expected -6%%, got %s", item.VariancePercent.String())
	}

	// First record starts a pending count.
	started, _, _ := env.engine.Counts.GetCount(ctx, count.ID)
	if started.Status != domain.CountStatusInProgress {
		t.Errorf("expected in_progress, got %s", started.Status)
	}

	// Recounting overwrites.
	item, _ = env.engine.Counts.RecordCount(ctx, items[0].ID, 52, "counter-2")
	if *item.Variance != 2 || item.CountedBy != "counter-2" {
		t.Errorf("expected variance 2 by counter-2, got %d by %s", *item.Variance, item.CountedBy)
	}

	if _, err := env.engine.Counts.RecordCount(ctx, items[0].ID, -1, "counter-1"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation on negative count, got %v", err)
	}
}

func TestApprove_PostsVariance(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, false)
	ctx := context.Background()

	env.engine.Counts.RecordCount(ctx, items[0].ID, 47, "counter-1")
	env.engine.Counts.RecordCount(ctx, items[1].ID, 10, "counter-1")
	if _, err := env.engine.Counts.SubmitCount(ctx, count.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	summary, err := env.engine.Counts.Approve(ctx, count.ID, "manager")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if summary.Adjusted != 1 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary.Count.Status != domain.CountStatusCompleted || summary.Count.ApprovedBy != "manager" {
		t.Errorf("expected completed by manager, got %s by %s", summary.Count.Status, summary.Count.ApprovedBy)
	}

	onHand, _ := env.mem.OnHand(ctx, binA)
	if onHand != 47 {
		t.Errorf("expected on hand 47, got %d", onHand)
	}

	txns := env.mem.Transactions()
	if len(txns) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(txns))
	}
	if txns[0].TransactionType != domain.TxnAdjustment || txns[0].QtyChange != -3 ||
		txns[0].ReferenceType != domain.RefCycleCount || txns[0].ReferenceID != count.ID {
		t.Errorf("unexpected adjustment %+v", txns[0])
	}

	_, stored, _ := env.engine.Counts.GetCount(ctx, count.ID)
	for _, it := range stored {
		if it.ProductID == binA.ProductID && !it.AdjustmentApproved {
			t.Error("expected adjusted item flagged approved")
		}
	}

	if _, err := env.engine.Counts.Approve(ctx, count.ID, "manager"); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition on re-approve, got %v", err)
	}
}

func TestApprove_PartialFailure(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, false)
	ctx := context.Background()

	env.engine.Counts.RecordCount(ctx, items[0].ID, 0, "counter-1")
	env.engine.Counts.RecordCount(ctx, items[1].ID, 15, "counter-1")
	env.engine.Counts.SubmitCount(ctx, count.ID)

	// Bin A is drawn down after counting, so the -50 adjustment no longer fits.
	env.mem.ApplyDelta(ctx, domain.InventoryDelta{Key: binA, QtyChange: -20, TransactionType: domain.TxnPick, ReferenceType: domain.RefTask, ReferenceID: "t1"})

	summary, err := env.engine.Counts.Approve(ctx, count.ID, "manager")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if summary.Adjusted != 1 || summary.Failed != 1 {
		t.Errorf("expected 1 adjusted and 1 failed, got %+v", summary)
	}
	if summary.Count.Status != domain.CountStatusCompleted {
		t.Errorf("expected count completed despite failure, got %s", summary.Count.Status)
	}

	a, _ := env.mem.OnHand(ctx, binA)
	b, _ := env.mem.OnHand(ctx, binB)
	if a != 30 || b != 15 {
		t.Errorf("expected A 30 and B 15, got %d and %d", a, b)
	}
}

func TestApprove_ConcurrentApproversAdjustOnce(t *testing.T) {
	env := newTestEnv(func(d *Dependencies) {
		d.Ledger = &slowLedger{InventoryLedger: d.Ledger, delay: 5 * time.Millisecond}
	})
	seedBins(env)
	count, items := newCount(t, env, false)
	ctx := context.Background()

	env.engine.Counts.RecordCount(ctx, items[0].ID, 40, "counter-1")
	env.engine.Counts.RecordCount(ctx, items[1].ID, 10, "counter-1")
	if _, err := env.engine.Counts.SubmitCount(ctx, count.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.engine.Counts.Approve(ctx, count.ID, "manager"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one approval, got %d", wins.Load())
	}
	if onHand, _ := env.mem.OnHand(ctx, binA); onHand != 40 {
		t.Errorf("expected on hand 40, got %d", onHand)
	}
	if txns := env.mem.Transactions(); len(txns) != 1 {
		t.Errorf("expected 1 adjustment, got %d", len(txns))
	}
}

func TestApprove_FailedAdjustmentClearsFlag(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, false)
	ctx := context.Background()

	env.engine.Counts.RecordCount(ctx, items[0].ID, 0, "counter-1")
	env.engine.Counts.RecordCount(ctx, items[1].ID, 10, "counter-1")
	env.engine.Counts.SubmitCount(ctx, count.ID)
	env.mem.ApplyDelta(ctx, domain.InventoryDelta{Key: binA, QtyChange: -20, TransactionType: domain.TxnPick, ReferenceType: domain.RefTask, ReferenceID: "t1"})

	summary, err := env.engine.Counts.Approve(ctx, count.ID, "manager")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected 1 failed, got %+v", summary)
	}
	_, stored, _ := env.engine.Counts.GetCount(ctx, count.ID)
	for _, it := range stored {
		if it.ProductID == binA.ProductID && it.AdjustmentApproved {
			t.Error("expected failed item left unapproved")
		}
	}
}

func TestReject_OnlyAwaitingApproval(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, false)
	ctx := context.Background()

	env.engine.Counts.RecordCount(ctx, items[0].ID, 40, "counter-1")
	if _, err := env.engine.Counts.Reject(ctx, count.ID); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	_, stored, _ := env.engine.Counts.GetCount(ctx, count.ID)
	for _, it := range stored {
		if it.ProductID == binA.ProductID && (it.CountedQty == nil || *it.CountedQty != 40) {
			t.Errorf("expected recorded count kept, got %v", it.CountedQty)
		}
	}
}

func TestSubmitCount_RequiresEveryItem(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, false)
	ctx := context.Background()

	env.engine.Counts.RecordCount(ctx, items[0].ID, 50, "counter-1")
	if _, err := env.engine.Counts.SubmitCount(ctx, count.ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestReject_ClearsForRecount(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, false)
	ctx := context.Background()

	env.engine.Counts.RecordCount(ctx, items[0].ID, 40, "counter-1")
	env.engine.Counts.RecordCount(ctx, items[1].ID, 10, "counter-1")
	env.engine.Counts.SubmitCount(ctx, count.ID)

	rejected, err := env.engine.Counts.Reject(ctx, count.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.CountStatusInProgress {
		t.Errorf("expected in_progress, got %s", rejected.Status)
	}
	_, stored, _ := env.engine.Counts.GetCount(ctx, count.ID)
	for _, it := range stored {
		if it.CountedQty != nil || it.Variance != nil {
			t.Errorf("expected item %s cleared", it.ID)
		}
	}

	env.engine.Counts.RecordCount(ctx, items[0].ID, 50, "counter-2")
	env.engine.Counts.RecordCount(ctx, items[1].ID, 10, "counter-2")
	env.engine.Counts.SubmitCount(ctx, count.ID)
	summary, err := env.engine.Counts.Approve(ctx, count.ID, "manager")
	if err != nil {
		t.Fatalf("approve after recount: %v", err)
	}
	if summary.Adjusted != 0 || summary.Skipped != 2 {
		t.Errorf("expected nothing to adjust after matching recount, got %+v", summary)
	}
}

func TestBlindCount_HidesExpected(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, true)
	ctx := context.Background()

	if items[0].ExpectedQty != 50 {
		t.Errorf("expected real expected qty stored, got %d", items[0].ExpectedQty)
	}
	if got := items[0].VisibleExpected(*count); got != 0 {
		t.Errorf("expected expected qty hidden while pending, got %d", got)
	}

	env.engine.Counts.RecordCount(ctx, items[0].ID, 48, "counter-1")
	env.engine.Counts.RecordCount(ctx, items[1].ID, 10, "counter-1")
	inProgress, _, _ := env.engine.Counts.GetCount(ctx, count.ID)
	if !inProgress.ExpectedHidden() {
		t.Error("expected expected qty hidden while in progress")
	}

	submitted, err := env.engine.Counts.SubmitCount(ctx, count.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := items[0].VisibleExpected(*submitted); got != 50 {
		t.Errorf("expected expected qty revealed for approval, got %d", got)
	}
}

func TestCancelCount(t *testing.T) {
	env := newTestEnv(nil)
	seedBins(env)
	count, items := newCount(t, env, false)
	ctx := context.Background()

	cancelled, err := env.engine.Counts.CancelCount(ctx, count.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.CountStatusCancelled || cancelled.CompletedAt == nil {
		t.Errorf("expected cancelled with timestamp, got %s", cancelled.Status)
	}
	if _, err := env.engine.Counts.RecordCount(ctx, items[0].ID, 1, "counter-1"); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
	if _, err := env.engine.Counts.Approve(ctx, count.ID, "manager"); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestCreateCount_Invalid(t *testing.T) {
	env := newTestEnv(nil)
	_, _, err := env.engine.Counts.CreateCount(context.Background(), domain.CountRequest{LocationID: "wh1"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
