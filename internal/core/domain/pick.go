package domain

import (
	"fmt"
	"time"
)

type PickItemStatus string

const (
	PickItemPending PickItemStatus = "pending"
	PickItemPicked  PickItemStatus = "picked"
	PickItemShort   PickItemStatus = "short"
	PickItemSkipped PickItemStatus = "skipped"
)

func (s PickItemStatus) IsTerminal() bool { return s != PickItemPending }

// PickListItem is one allocation line of a pick task. Sequence is the walk
// order and never changes after allocation.
type PickListItem struct {
	ID            string
	TaskID        string
	DemandLineID  string
	ProductID     string
	LotID         string
	LocationID    string
	SublocationID string
	QtyAllocated  int
	QtyPicked     int
	QtyShort      int
	Sequence      int
	Status        PickItemStatus
	ShortReason   string
	PickedBy      string
	PickedAt      *time.Time
	Version       int
	CreatedAt     time.Time
}

func (p PickListItem) Key() InventoryKey {
	return InventoryKey{
		ProductID:     p.ProductID,
		LocationID:    p.LocationID,
		SublocationID: p.SublocationID,
		LotID:         p.LotID,
	}
}

func (p *PickListItem) transitionError(op string) error {
	return &TransitionError{Entity: "pick item", ID: p.ID, From: string(p.Status), Op: op}
}

// MarkPicked records qty picked. Picking more than allocated is an
// inventory error, not a validation one.
func (p *PickListItem) MarkPicked(qty int, actorID string, at time.Time) error {
	if p.Status.IsTerminal() {
		return p.transitionError("pick")
	}
	if qty <= 0 {
		return invalid("qty_picked", "must be positive")
	}
	if qty > p.QtyAllocated {
		return fmt.Errorf("pick item %s: picking %d of %d allocated: %w", p.ID, qty, p.QtyAllocated, ErrInsufficientInventory)
	}
	p.QtyPicked = qty
	p.Status = PickItemPicked
	p.PickedBy = actorID
	p.PickedAt = &at
	return nil
}

func (p *PickListItem) MarkShort(qty int, reason, actorID string, at time.Time) error {
	if p.Status.IsTerminal() {
		return p.transitionError("short pick")
	}
	if qty <= 0 {
		return invalid("qty_short", "must be positive")
	}
	if p.QtyPicked+qty > p.QtyAllocated {
		return invalid("qty_short", fmt.Sprintf("%d exceeds allocated %d", qty, p.QtyAllocated))
	}
	p.QtyShort = qty
	p.ShortReason = reason
	p.Status = PickItemShort
	p.PickedBy = actorID
	p.PickedAt = &at
	return nil
}

func (p *PickListItem) MarkSkipped(reason, actorID string, at time.Time) error {
	if p.Status.IsTerminal() {
		return p.transitionError("skip")
	}
	p.Status = PickItemSkipped
	p.ShortReason = reason
	p.PickedBy = actorID
	p.PickedAt = &at
	return nil
}

// AllTerminal reports whether every item reached a terminal per-item
// state, and the total picked across them.
func AllTerminal(items []PickListItem) (bool, int) {
	picked := 0
	for _, it := range items {
		if !it.Status.IsTerminal() {
			return false, 0
		}
		picked += it.QtyPicked
	}
	return len(items) > 0, picked
}
