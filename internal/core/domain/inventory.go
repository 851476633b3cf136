package domain

import (
	"sort"
	"time"
)

type InventoryStatus string

const (
	InventoryStatusAvailable  InventoryStatus = "available"
	InventoryStatusQuarantine InventoryStatus = "quarantine"
	InventoryStatusDamaged    InventoryStatus = "damaged"
	InventoryStatusOnHold     InventoryStatus = "on_hold"
)

// InventoryKey identifies one ledger row before status. Empty SublocationID
// and LotID mean "none".
type InventoryKey struct {
	ProductID     string
	LocationID    string
	SublocationID string
	LotID         string
}

// InventoryLine is the normalized view of a ledger row joined with its lot.
// Adapters flatten whatever their store returns into this shape.
type InventoryLine struct {
	ID string
	InventoryKey
	Status       InventoryStatus
	OnHand       int
	Reserved     int
	LotNumber    string
	LotExpiresAt *time.Time
	CreatedAt    time.Time
}

// Available is on-hand minus reserved, floored at zero.
func (l InventoryLine) Available() int {
	if a := l.OnHand - l.Reserved; a > 0 {
		return a
	}
	return 0
}

// SortFEFO orders lot-bearing lines by expiration ascending with
// unknown expirations last. Ties keep the oldest record first.
func SortFEFO(lines []InventoryLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].LotExpiresAt, lines[j].LotExpiresAt
		switch {
		case a == nil && b == nil:
			return lines[i].CreatedAt.Before(lines[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return lines[i].CreatedAt.Before(lines[j].CreatedAt)
	})
}

// SortFIFO orders lines oldest record first.
func SortFIFO(lines []InventoryLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].CreatedAt.Before(lines[j].CreatedAt)
	})
}

// Ledger transaction types.
const (
	TxnPick          = "pick"
	TxnPutaway       = "putaway"
	TxnAdjustment    = "cycle_count_adjustment"
	TxnStatusRelease = "status_change"
)

// Ledger reference types.
const (
	RefTask       = "task"
	RefCycleCount = "cycle_count"
)

// InventoryDelta is a signed quantity change applied atomically to the
// available row at Key, recorded with a transaction log entry.
type InventoryDelta struct {
	Key             InventoryKey
	QtyChange       int
	TransactionType string
	ReferenceType   string
	ReferenceID     string
	ActorID         string
	Notes           string
}

func (d InventoryDelta) Validate() error {
	if d.Key.ProductID == "" || d.Key.LocationID == "" {
		return invalid("key", "product and location are required")
	}
	if d.QtyChange == 0 {
		return invalid("qty_change", "must not be zero")
	}
	if d.TransactionType == "" || d.ReferenceID == "" {
		return invalid("reference", "transaction type and reference id are required")
	}
	return nil
}

// StatusChange moves up to MaxQty units of (product, location) from one
// status to another. MaxQty <= 0 moves everything that matches.
type StatusChange struct {
	ProductID     string
	LocationID    string
	From          InventoryStatus
	To            InventoryStatus
	MaxQty        int
	ReferenceType string
	ReferenceID   string
	Notes         string
}

// Sublocation is a capacity-bounded slot within a location.
type Sublocation struct {
	ID         string
	LocationID string
	Code       string
	Zone       string
	Aisle      string
	Rack       string
	Capacity   *int
	Active     bool
}

// SortWalkOrder orders sub-locations by zone, aisle, rack, code.
func SortWalkOrder(subs []Sublocation) {
	sort.SliceStable(subs, func(i, j int) bool {
		a, b := subs[i], subs[j]
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		if a.Aisle != b.Aisle {
			return a.Aisle < b.Aisle
		}
		if a.Rack != b.Rack {
			return a.Rack < b.Rack
		}
		return a.Code < b.Code
	})
}
