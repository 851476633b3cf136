package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

const pickColumns = `id, task_id, demand_line_id, product_id, lot_id, location_id, sublocation_id,
	qty_allocated, qty_picked, qty_short, sequence, status, short_reason, picked_by, picked_at,
	version, created_at`

func (m *MySQLAdapter) CreatePickItems(ctx context.Context, items []domain.PickListItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pick_list_items (`+pickColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare pick item insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		_, err := stmt.ExecContext(ctx, it.ID, it.TaskID, it.DemandLineID, it.ProductID, it.LotID,
			it.LocationID, it.SublocationID, it.QtyAllocated, it.QtyPicked, it.QtyShort, it.Sequence,
			it.Status, it.ShortReason, it.PickedBy, nullTime(it.PickedAt), it.Version, it.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert pick item %d: %w", it.Sequence, err)
		}
	}
	return tx.Commit()
}

func (m *MySQLAdapter) GetPickItem(ctx context.Context, id string) (*domain.PickListItem, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+pickColumns+` FROM pick_list_items WHERE id = ?`, id)
	item, err := scanPickItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pick item: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) UpdatePickItem(ctx context.Context, item domain.PickListItem) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE pick_list_items
		SET qty_picked = ?, qty_short = ?, status = ?, short_reason = ?, picked_by = ?, picked_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		item.QtyPicked, item.QtyShort, item.Status, item.ShortReason, item.PickedBy, nullTime(item.PickedAt),
		item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("update pick item: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (m *MySQLAdapter) ListPickItems(ctx context.Context, taskID string) ([]domain.PickListItem, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+pickColumns+` FROM pick_list_items WHERE task_id = ? ORDER BY sequence`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list pick items: %w", err)
	}
	defer rows.Close()

	var out []domain.PickListItem
	for rows.Next() {
		item, err := scanPickItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pick item: %w", err)
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func scanPickItem(s scanner) (*domain.PickListItem, error) {
	var (
		p        domain.PickListItem
		pickedAt sql.NullTime
	)
	err := s.Scan(&p.ID, &p.TaskID, &p.DemandLineID, &p.ProductID, &p.LotID, &p.LocationID, &p.SublocationID,
		&p.QtyAllocated, &p.QtyPicked, &p.QtyShort, &p.Sequence, &p.Status, &p.ShortReason, &p.PickedBy,
		&pickedAt, &p.Version, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.PickedAt = timePtr(pickedAt)
	return &p, nil
}

// ── Inspections ──────────────────────────────────────────────────────────────

const mysqlDuplicateEntry = 1062

func (m *MySQLAdapter) SaveInspectionResult(ctx context.Context, result domain.InspectionResult) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO inspection_results (id, task_id, answers, overall, inspector_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.TaskID, answers, result.Overall, result.InspectorID, result.Notes, result.CreatedAt)

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return &domain.TransitionError{Entity: "inspection result", ID: result.TaskID, From: "recorded", Op: "record"}
	}
	if err != nil {
		return fmt.Errorf("insert inspection result: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetInspectionResult(ctx context.Context, taskID string) (*domain.InspectionResult, error) {
	var (
		r       domain.InspectionResult
		answers []byte
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, task_id, answers, overall, inspector_id, notes, created_at
		FROM inspection_results WHERE task_id = ?`, taskID,
	).Scan(&r.ID, &r.TaskID, &answers, &r.Overall, &r.InspectorID, &r.Notes, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inspection result: %w", err)
	}
	if err := json.Unmarshal(answers, &r.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &r, nil
}
