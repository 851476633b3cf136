package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

// PostgresLedger keeps the inventory ledger in PostgreSQL for deployments
// where stock lives next to the accounting books rather than in MySQL.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// NewPgxPool opens and pings a pool for the given connection string.
func NewPgxPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	if connStr == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

func (p *PostgresLedger) ApplyDelta(ctx context.Context, delta domain.InventoryDelta) error {
	if err := delta.Validate(); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	k := delta.Key
	if delta.QtyChange < 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE inventory
			SET on_hand = on_hand + $1, updated_at = NOW()
			WHERE product_id = $2 AND location_id = $3 AND sublocation_id = $4 AND lot_id = $5
				AND status = $6 AND on_hand + $1 >= 0`,
			delta.QtyChange, k.ProductID, k.LocationID, k.SublocationID, k.LotID, string(domain.InventoryStatusAvailable),
		)
		if err != nil {
			return fmt.Errorf("update inventory: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("deduct %d at %+v: %w", -delta.QtyChange, k, domain.ErrInsufficientInventory)
		}
	} else if err := pgUpsertStock(ctx, tx, k, domain.InventoryStatusAvailable, delta.QtyChange); err != nil {
		return err
	}

	if err := pgInsertTransaction(ctx, tx, delta); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func pgUpsertStock(ctx context.Context, tx pgx.Tx, k domain.InventoryKey, status domain.InventoryStatus, qty int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory (id, product_id, location_id, sublocation_id, lot_id, status, on_hand, reserved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, NOW(), NOW())
		ON CONFLICT (product_id, location_id, sublocation_id, lot_id, status)
		DO UPDATE SET on_hand = inventory.on_hand + EXCLUDED.on_hand, updated_at = NOW()`,
		uuid.NewString(), k.ProductID, k.LocationID, k.SublocationID, k.LotID, string(status), qty,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

func pgInsertTransaction(ctx context.Context, tx pgx.Tx, d domain.InventoryDelta) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_transactions (id, product_id, location_id, sublocation_id, lot_id, qty_change,
			transaction_type, reference_type, reference_id, actor_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.NewString(), d.Key.ProductID, d.Key.LocationID, d.Key.SublocationID, d.Key.LotID, d.QtyChange,
		d.TransactionType, d.ReferenceType, d.ReferenceID, d.ActorID, d.Notes, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert inventory transaction: %w", err)
	}
	return nil
}

func (p *PostgresLedger) QueryAvailable(ctx context.Context, productID, locationID, lotID string) (int, error) {
	var total int
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(GREATEST(on_hand - reserved, 0)), 0)::int FROM inventory
		WHERE product_id = $1 AND location_id = $2 AND status = $3 AND ($4 = '' OR lot_id = $4)`,
		productID, locationID, string(domain.InventoryStatusAvailable), lotID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query available: %w", err)
	}
	return total, nil
}

func (p *PostgresLedger) OnHand(ctx context.Context, key domain.InventoryKey) (int, error) {
	var qty int
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(on_hand), 0)::int FROM inventory
		WHERE product_id = $1 AND location_id = $2 AND sublocation_id = $3 AND lot_id = $4 AND status = $5`,
		key.ProductID, key.LocationID, key.SublocationID, key.LotID, string(domain.InventoryStatusAvailable),
	).Scan(&qty)
	if err != nil {
		return 0, fmt.Errorf("query on hand: %w", err)
	}
	return qty, nil
}

func (p *PostgresLedger) SetStatus(ctx context.Context, change domain.StatusChange) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, sublocation_id, lot_id, on_hand FROM inventory
		WHERE product_id = $1 AND location_id = $2 AND status = $3 AND on_hand > 0
		ORDER BY created_at
		FOR UPDATE`,
		change.ProductID, change.LocationID, string(change.From),
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
		if _, err := tx.Exec(ctx, `UPDATE inventory SET on_hand = on_hand - $1, updated_at = NOW() WHERE id = $2`, qty, s.id); err != nil {
			return 0, fmt.Errorf("deduct %s stock: %w", change.From, err)
		}
		if err := pgUpsertStock(ctx, tx, s.key, change.To, qty); err != nil {
			return 0, err
		}
		if err := pgInsertTransaction(ctx, tx, domain.InventoryDelta{
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

	if _, err := tx.Exec(ctx, `
		DELETE FROM inventory
		WHERE product_id = $1 AND location_id = $2 AND status = $3 AND on_hand = 0 AND reserved = 0`,
		change.ProductID, change.LocationID, string(change.From)); err != nil {
		return 0, fmt.Errorf("drop empty rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return moved, nil
}

const pgInventoryLineSelect = `
	SELECT i.id, i.product_id, i.location_id, i.sublocation_id, i.lot_id, i.status, i.on_hand, i.reserved,
		COALESCE(l.lot_number, ''), l.expires_at, i.created_at
	FROM inventory i
	LEFT JOIN lots l ON l.id = i.lot_id
	WHERE i.product_id = $1 AND i.location_id = $2 AND i.status = $3`

func (p *PostgresLedger) ListLotInventory(ctx context.Context, productID, locationID string) ([]domain.InventoryLine, error) {
	return p.queryLines(ctx, pgInventoryLineSelect+`
		AND i.lot_id <> ''
		ORDER BY l.expires_at ASC NULLS LAST, i.created_at ASC`, productID, locationID)
}

func (p *PostgresLedger) ListUnlottedInventory(ctx context.Context, productID, locationID string) ([]domain.InventoryLine, error) {
	return p.queryLines(ctx, pgInventoryLineSelect+`
		AND i.lot_id = ''
		ORDER BY i.created_at ASC`, productID, locationID)
}

func (p *PostgresLedger) queryLines(ctx context.Context, query, productID, locationID string) ([]domain.InventoryLine, error) {
	rows, err := p.pool.Query(ctx, query, productID, locationID, string(domain.InventoryStatusAvailable))
	if err != nil {
		return nil, fmt.Errorf("query inventory lines: %w", err)
	}
	defer rows.Close()

	var out []domain.InventoryLine
	for rows.Next() {
		var (
			l      domain.InventoryLine
			status string
		)
		if err := rows.Scan(&l.ID, &l.ProductID, &l.LocationID, &l.SublocationID, &l.LotID, &status,
			&l.OnHand, &l.Reserved, &l.LotNumber, &l.LotExpiresAt, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory line: %w", err)
		}
		l.Status = domain.InventoryStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ── Locations ────────────────────────────────────────────────────────────────

// The sublocation queries live next to the ledger so putaway capacity is
// measured against the same inventory rows the ledger moves.

func (p *PostgresLedger) ListSublocations(ctx context.Context, locationID string) ([]domain.Sublocation, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, location_id, code, zone, aisle, rack, capacity, active
		FROM sublocations WHERE location_id = $1
		ORDER BY zone, aisle, rack, code`, locationID)
	if err != nil {
		return nil, fmt.Errorf("list sublocations: %w", err)
	}
	defer rows.Close()

	var out []domain.Sublocation
	for rows.Next() {
		var s domain.Sublocation
		if err := rows.Scan(&s.ID, &s.LocationID, &s.Code, &s.Zone, &s.Aisle, &s.Rack, &s.Capacity, &s.Active); err != nil {
			return nil, fmt.Errorf("scan sublocation: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresLedger) SublocationUsage(ctx context.Context, sublocationIDs []string) (map[string]int, error) {
	used := make(map[string]int, len(sublocationIDs))
	if len(sublocationIDs) == 0 {
		return used, nil
	}
	rows, err := p.pool.Query(ctx, `
		SELECT sublocation_id, SUM(on_hand)::int FROM inventory
		WHERE sublocation_id = ANY($1)
		GROUP BY sublocation_id`, sublocationIDs)
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

func (p *PostgresLedger) ProductSublocations(ctx context.Context, productID, locationID string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT sublocation_id FROM inventory
		WHERE product_id = $1 AND location_id = $2 AND sublocation_id <> '' AND on_hand > 0
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
