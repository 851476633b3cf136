package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

const countColumns = `id, count_number, location_id, status, blind, notes, created_by, approved_by,
	approved_at, completed_at, version, created_at, updated_at`

const countItemColumns = `id, count_id, product_id, location_id, sublocation_id, lot_id, expected_qty,
	counted_qty, variance, variance_percent, adjustment_approved, counted_by, counted_at, version`

func (m *MySQLAdapter) CreateCount(ctx context.Context, count domain.CycleCount, items []domain.CycleCountItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cycle_counts (`+countColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		count.ID, count.CountNumber, count.LocationID, count.Status, count.Blind, count.Notes,
		count.CreatedBy, count.ApprovedBy, nullTime(count.ApprovedAt), nullTime(count.CompletedAt),
		count.Version, count.CreatedAt, count.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cycle count: %w", err)
	}

	for _, it := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cycle_count_items (`+countItemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.CountID, it.ProductID, it.LocationID, it.SublocationID, it.LotID, it.ExpectedQty,
			nullInt(it.CountedQty), nullInt(it.Variance), it.VariancePercent, it.AdjustmentApproved,
			it.CountedBy, nullTime(it.CountedAt), it.Version,
		)
		if err != nil {
			return fmt.Errorf("insert cycle count item: %w", err)
		}
	}
	return tx.Commit()
}

func (m *MySQLAdapter) GetCount(ctx context.Context, id string) (*domain.CycleCount, error) {
	var (
		c                     domain.CycleCount
		approvedAt, completed sql.NullTime
	)
	err := m.db.QueryRowContext(ctx, `SELECT `+countColumns+` FROM cycle_counts WHERE id = ?`, id).Scan(
		&c.ID, &c.CountNumber, &c.LocationID, &c.Status, &c.Blind, &c.Notes, &c.CreatedBy, &c.ApprovedBy,
		&approvedAt, &completed, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cycle count: %w", err)
	}
	c.ApprovedAt = timePtr(approvedAt)
	c.CompletedAt = timePtr(completed)
	return &c, nil
}

func (m *MySQLAdapter) UpdateCount(ctx context.Context, count domain.CycleCount) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE cycle_counts
		SET status = ?, approved_by = ?, approved_at = ?, completed_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		count.Status, count.ApprovedBy, nullTime(count.ApprovedAt), nullTime(count.CompletedAt), count.UpdatedAt,
		count.ID, count.Version,
	)
	if err != nil {
		return fmt.Errorf("update cycle count: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (m *MySQLAdapter) GetCountItem(ctx context.Context, id string) (*domain.CycleCountItem, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+countItemColumns+` FROM cycle_count_items WHERE id = ?`, id)
	item, err := scanCountItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cycle count item: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) UpdateCountItem(ctx context.Context, item domain.CycleCountItem) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE cycle_count_items
		SET counted_qty = ?, variance = ?, variance_percent = ?, adjustment_approved = ?, counted_by = ?,
			counted_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		nullInt(item.CountedQty), nullInt(item.Variance), item.VariancePercent, item.AdjustmentApproved,
		item.CountedBy, nullTime(item.CountedAt),
		item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("update cycle count item: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (m *MySQLAdapter) ListCountItems(ctx context.Context, countID string) ([]domain.CycleCountItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+countItemColumns+` FROM cycle_count_items
		WHERE count_id = ? ORDER BY sublocation_id, product_id`, countID)
	if err != nil {
		return nil, fmt.Errorf("list cycle count items: %w", err)
	}
	defer rows.Close()

	var out []domain.CycleCountItem
	for rows.Next() {
		item, err := scanCountItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cycle count item: %w", err)
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func scanCountItem(s scanner) (*domain.CycleCountItem, error) {
	var (
		it                domain.CycleCountItem
		counted, variance sql.NullInt64
		pct               decimal.NullDecimal
		countedAt         sql.NullTime
	)
	err := s.Scan(&it.ID, &it.CountID, &it.ProductID, &it.LocationID, &it.SublocationID, &it.LotID,
		&it.ExpectedQty, &counted, &variance, &pct, &it.AdjustmentApproved, &it.CountedBy, &countedAt,
		&it.Version)
	if err != nil {
		return nil, err
	}
	it.CountedQty = intPtr(counted)
	it.Variance = intPtr(variance)
	if pct.Valid {
		it.VariancePercent = &pct.Decimal
	}
	it.CountedAt = timePtr(countedAt)
	return &it, nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
