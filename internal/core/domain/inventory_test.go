package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSortFEFO(t *testing.T) {
	soon := at.AddDate(0, 0, 3)
	later := at.AddDate(0, 1, 0)
	lines := []InventoryLine{
		{ID: "no-expiry-new", CreatedAt: at.Add(2 * time.Hour)},
		{ID: "later", LotExpiresAt: &later, CreatedAt: at},
		{ID: "no-expiry-old", CreatedAt: at},
		{ID: "soon-new", LotExpiresAt: &soon, CreatedAt: at.Add(time.Hour)},
		{ID: "soon-old", LotExpiresAt: &soon, CreatedAt: at},
	}

	SortFEFO(lines)

	want := []string{"soon-old", "soon-new", "later", "no-expiry-old", "no-expiry-new"}
	for i, id := range want {
		if lines[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, lines[i].ID)
		}
	}
}

func TestAvailable_FloorsAtZero(t *testing.T) {
	if got := (InventoryLine{OnHand: 3, Reserved: 5}).Available(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := (InventoryLine{OnHand: 8, Reserved: 5}).Available(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestInventoryDeltaValidate(t *testing.T) {
	key := InventoryKey{ProductID: "p", LocationID: "wh1"}
	tests := []struct {
		name  string
		delta InventoryDelta
		ok    bool
	}{
		{"valid", InventoryDelta{Key: key, QtyChange: -1, TransactionType: TxnPick, ReferenceID: "t1"}, true},
		{"no product", InventoryDelta{Key: InventoryKey{LocationID: "wh1"}, QtyChange: 1, TransactionType: TxnPick, ReferenceID: "t1"}, false},
		{"zero change", InventoryDelta{Key: key, TransactionType: TxnPick, ReferenceID: "t1"}, false},
		{"no reference", InventoryDelta{Key: key, QtyChange: 1, TransactionType: TxnPick}, false},
	}
	for _, tt := range tests {
		err := tt.delta.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tt.name, err)
		}
	}
}

func TestSortWalkOrder(t *testing.T) {
	subs := []Sublocation{
		{ID: "4", Zone: "B", Aisle: "1", Rack: "1", Code: "a"},
		{ID: "2", Zone: "A", Aisle: "1", Rack: "2", Code: "a"},
		{ID: "3", Zone: "A", Aisle: "2", Rack: "1", Code: "a"},
		{ID: "1", Zone: "A", Aisle: "1", Rack: "1", Code: "a"},
	}
	SortWalkOrder(subs)
	for i, s := range subs {
		if want := string(rune('1' + i)); s.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, s.ID)
		}
	}
}

func TestVariancePercent(t *testing.T) {
	tests := []struct {
		expected, counted int
		want              string
	}{
		{50, 47, "-6"},
		{4, 3, "-25"},
		{3, 4, "33.33"},
		{7, 7, "0"},
		{0, 5, "100"},
		{0, 0, "0"},
	}
	for _, tt := range tests {
		got := VariancePercent(tt.expected, tt.counted)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("VariancePercent(%d, %d) = %s, want %s", tt.expected, tt.counted, got, tt.want)
		}
	}
}

func TestCountItemRecordAndReset(t *testing.T) {
	item := CycleCountItem{ExpectedQty: 10}
	if err := item.Record(12, "c1", at); err != nil {
		t.Fatalf("record: %v", err)
	}
	if *item.Variance != 2 || !item.NeedsAdjustment() {
		t.Errorf("expected variance 2 needing adjustment, got %d", *item.Variance)
	}
	item.Reset()
	if item.CountedQty != nil || item.NeedsAdjustment() {
		t.Error("expected reset item to need nothing")
	}
}

func TestCycleCountTransitions(t *testing.T) {
	c := &CycleCount{ID: "c1", Status: CountStatusPending}
	if err := c.Submit(); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("expected submit from pending rejected, got %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := c.Approve("", at); !errors.Is(err, ErrValidation) {
		t.Errorf("expected approver required, got %v", err)
	}
	if err := c.Approve("mgr", at); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := c.Cancel(at); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("expected cancel of completed count rejected, got %v", err)
	}
}

func TestPickItemMarks(t *testing.T) {
	item := PickListItem{ID: "i1", QtyAllocated: 5, Status: PickItemPending}
	if err := item.MarkPicked(6, "p1", at); !errors.Is(err, ErrInsufficientInventory) {
		t.Errorf("expected over-pick to be an inventory error, got %v", err)
	}
	if err := item.MarkPicked(0, "p1", at); !errors.Is(err, ErrValidation) {
		t.Errorf("expected zero pick rejected, got %v", err)
	}
	if err := item.MarkPicked(5, "p1", at); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if err := item.MarkSkipped("late", "p1", at); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("expected skip of picked item rejected, got %v", err)
	}
}

func TestAllTerminal(t *testing.T) {
	items := []PickListItem{
		{Status: PickItemPicked, QtyPicked: 4},
		{Status: PickItemShort, QtyShort: 2},
		{Status: PickItemSkipped},
	}
	done, picked := AllTerminal(items)
	if !done || picked != 4 {
		t.Errorf("expected done with 4, got %v with %d", done, picked)
	}
	if done, _ := AllTerminal(append(items, PickListItem{Status: PickItemPending})); done {
		t.Error("expected pending item to block completion")
	}
	if done, _ := AllTerminal(nil); done {
		t.Error("expected empty list not to count as done")
	}
}
