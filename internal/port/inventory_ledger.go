package port

import (
	"context"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

// InventoryLedger is the single write path into stock quantities. Reads are
// snapshots and are never cached by the engine.
type InventoryLedger interface {
	// ApplyDelta atomically adds QtyChange to the available row at the key and
	// appends a transaction log entry. Returns domain.ErrInsufficientInventory
	// if the row would go negative.
	ApplyDelta(ctx context.Context, delta domain.InventoryDelta) error

	// QueryAvailable sums on-hand minus reserved of available stock for a
	// product at a location, optionally restricted to one lot
	QueryAvailable(ctx context.Context, productID, locationID, lotID string) (int, error)

	// OnHand returns the on-hand quantity of the available row at the key
	OnHand(ctx context.Context, key domain.InventoryKey) (int, error)

	// SetStatus moves matching stock between statuses and returns the quantity moved
	SetStatus(ctx context.Context, change domain.StatusChange) (int, error)

	// ListLotInventory returns available lot-bearing rows for a product at a
	// location, ordered by lot expiration ascending, nulls last
	ListLotInventory(ctx context.Context, productID, locationID string) ([]domain.InventoryLine, error)

	// ListUnlottedInventory returns available rows without a lot, oldest first
	ListUnlottedInventory(ctx context.Context, productID, locationID string) ([]domain.InventoryLine, error)
}
