package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

// sqlExecer is satisfied by *sql.DB and *sql.Tx.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (m *MySQLAdapter) ApplyDelta(ctx context.Context, delta domain.InventoryDelta) error {
	if err := delta.Validate(); err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	k := delta.Key
	if delta.QtyChange < 0 {
		result, err := tx.ExecContext(ctx, `
			UPDATE inventory
			SET on_hand = on_hand + ?, updated_at = NOW()
			WHERE product_id = ? AND location_id = ? AND sublocation_id = ? AND lot_id = ?
				AND status = ? AND on_hand + ? >= 0`,
			delta.QtyChange, k.ProductID, k.LocationID, k.SublocationID, k.LotID,
			domain.InventoryStatusAvailable, delta.QtyChange,
		)
		if err != nil {
			return fmt.Errorf("update inventory: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("deduct %d at %+v: %w", -delta.QtyChange, k, domain.ErrInsufficientInventory)
		}
	} else {
		if err := upsertStock(ctx, tx, k, domain.InventoryStatusAvailable, delta.QtyChange); err != nil {
			return err
		}
	}

	if err := insertTransaction(ctx, tx, delta); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertStock(ctx context.Context, ex sqlExecer, k domain.InventoryKey, status domain.InventoryStatus, qty int) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO inventory (id, product_id, location_id, sublocation_id, lot_id, status, on_hand, reserved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, NOW(), NOW())
		ON DUPLICATE KEY UPDATE on_hand = on_hand + VALUES(on_hand), updated_at = NOW()`,
		uuid.NewString(), k.ProductID, k.LocationID, k.SublocationID, k.LotID, status, qty,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, ex sqlExecer, d domain.InventoryDelta) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO inventory_transactions (id, product_id, location_id, sublocation_id, lot_id, qty_change,
			transaction_type, reference_type, reference_id, actor_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), d.Key.ProductID, d.Key.LocationID, d.Key.SublocationID, d.Key.LotID, d.QtyChange,
		d.TransactionType, d.ReferenceType, d.ReferenceID, d.ActorID, d.Notes, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert inventory transaction: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) QueryAvailable(ctx context.Context, productID, locationID, lotID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(GREATEST(on_hand - reserved, 0)), 0) FROM inventory
		WHERE product_id = ? AND location_id = ? AND status = ?`
	args := []any{productID, locationID, domain.InventoryStatusAvailable}
	if lotID != "" {
		query += " AND lot_id = ?"
		args = append(args, lotID)
	}

	var total int
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("query available: %w", err)
	}
	return total, nil
}

func (m *MySQLAdapter) OnHand(ctx context.Context, key domain.InventoryKey) (int, error) {
	var qty int
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(on_hand), 0) FROM inventory
		WHERE product_id = ? AND location_id = ? AND sublocation_id = ? AND lot_id = ? AND status = ?`,
		key.ProductID, key.LocationID, key.SublocationID, key.LotID, domain.InventoryStatusAvailable,
	).Scan(&qty)
	if err != nil {
		return 0, fmt.Errorf("query on hand: %w", err)
	}
	return qty, nil
}

// SetStatus moves stock row by row, oldest first, inside one transaction.
func (m *MySQLAdapter) SetStatus(ctx context.Context, change domain.StatusChange) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, sublocation_id, lot_id, on_hand FROM inventory
		WHERE product_id = ? AND location_id = ? AND status = ? AND on_hand > 0
		ORDER BY created_at
		FOR UPDATE`,
		change.ProductID, change.LocationID, change.From,
	)
	if err != nil {
		return 0, fmt.Errorf("lock inventory: %w", err)
	}

	type source struct {
		id     string
		key    domain.InventoryKey
		onHand int
	}
	var sources []source
	for rows.Next() {
		s := source{key: domain.InventoryKey{ProductID: change.ProductID, LocationID: change.LocationID}}
		if err := rows.Scan(&s.id, &s.key.SublocationID, &s.key.LotID, &s.onHand); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan inventory: %w", err)
		}
		sources = append(sources, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	moved := 0
	for _, s := range sources {
		qty := s.onHand
		if change.MaxQty > 0 {
			qty = min(qty, change.MaxQty-moved)
		}
		if qty <= 0 {
			break
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE inventory SET on_hand = on_hand - ?, updated_at = NOW() WHERE id = ?`, qty, s.id); err != nil {
			return 0, fmt.Errorf("deduct %s stock: %w", change.From, err)
		}
		if err := upsertStock(ctx, tx, s.key, change.To, qty); err != nil {
			return 0, err
		}
		if err := insertTransaction(ctx, tx, domain.InventoryDelta{
			Key:             s.key,
			QtyChange:       qty,
			TransactionType: domain.TxnStatusRelease,
			ReferenceType:   change.ReferenceType,
			ReferenceID:     change.ReferenceID,
			Notes:           fmt.Sprintf("%s -> %s: %s", change.From, change.To, change.Notes),
		}); err != nil {
			return 0, err
		}
		moved += qty
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM inventory
		WHERE product_id = ? AND location_id = ? AND status = ? AND on_hand = 0 AND reserved = 0`,
		change.ProductID, change.LocationID, change.From); err != nil {
		return 0, fmt.Errorf("drop empty rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return moved, nil
}

const inventoryLineSelect = `
	SELECT i.id, i.product_id, i.location_id, i.sublocation_id, i.lot_id, i.status, i.on_hand, i.reserved,
		COALESCE(l.lot_number, ''), l.expires_at, i.created_at
	FROM inventory i
	LEFT JOIN lots l ON l.id = i.lot_id
	WHERE i.product_id = ? AND i.location_id = ? AND i.status = ?`

func (m *MySQLAdapter) ListLotInventory(ctx context.Context, productID, locationID string) ([]domain.InventoryLine, error) {
	return m.queryLines(ctx, inventoryLineSelect+`
		AND i.lot_id <> ''
		ORDER BY l.expires_at IS NULL, l.expires_at ASC, i.created_at ASC`, productID, locationID)
}

func (m *MySQLAdapter) ListUnlottedInventory(ctx context.Context, productID, locationID string) ([]domain.InventoryLine, error) {
	return m.queryLines(ctx, inventoryLineSelect+`
		AND i.lot_id = ''
		ORDER BY i.created_at ASC`, productID, locationID)
}

func (m *MySQLAdapter) queryLines(ctx context.Context, query, productID, locationID string) ([]domain.InventoryLine, error) {
	rows, err := m.db.QueryContext(ctx, query, productID, locationID, domain.InventoryStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("query inventory lines: %w", err)
	}
	defer rows.Close()

	var out []domain.InventoryLine
	for rows.Next() {
		var (
			l       domain.InventoryLine
			expires sql.NullTime
		)
		if err := rows.Scan(&l.ID, &l.ProductID, &l.LocationID, &l.SublocationID, &l.LotID, &l.Status,
			&l.OnHand, &l.Reserved, &l.LotNumber, &expires, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory line: %w", err)
		}
		l.LotExpiresAt = timePtr(expires)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ── Locations ────────────────────────────────────────────────────────────────

func (m *MySQLAdapter) ListSublocations(ctx context.Context, locationID string) ([]domain.Sublocation, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, location_id, code, zone, aisle, rack, capacity, active
		FROM sublocations WHERE location_id = ?
		ORDER BY zone, aisle, rack, code`, locationID)
	if err != nil {
		return nil, fmt.Errorf("list sublocations: %w", err)
	}
	defer rows.Close()

	var out []domain.Sublocation
	for rows.Next() {
		var (
			s        domain.Sublocation
			capacity sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.LocationID, &s.Code, &s.Zone, &s.Aisle, &s.Rack, &capacity, &s.Active); err != nil {
			return nil, fmt.Errorf("scan sublocation: %w", err)
		}
		s.Capacity = intPtr(capacity)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) SublocationUsage(ctx context.Context, sublocationIDs []string) (map[string]int, error) {
	used := make(map[string]int, len(sublocationIDs))
	if len(sublocationIDs) == 0 {
		return used, nil
	}
	args := make([]any, len(sublocationIDs))
	for i, id := range sublocationIDs {
		args[i] = id
	}
	rows, err := m.db.QueryContext(ctx, `
		SELECT sublocation_id, SUM(on_hand) FROM inventory
		WHERE sublocation_id IN (`+placeholders(len(args))+`)
		GROUP BY sublocation_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("sublocation usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			qty int
		)
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		used[id] = qty
	}
	return used, rows.Err()
}

func (m *MySQLAdapter) ProductSublocations(ctx context.Context, productID, locationID string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT sublocation_id FROM inventory
		WHERE product_id = ? AND location_id = ? AND sublocation_id <> '' AND on_hand > 0
		GROUP BY sublocation_id
		ORDER BY MIN(created_at)`, productID, locationID)
	if err != nil {
		return nil, fmt.Errorf("product sublocations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sublocation id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
