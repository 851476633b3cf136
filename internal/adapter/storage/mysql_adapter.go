package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

var ErrOptimisticLock = fmt.Errorf("optimistic lock conflict: %w", domain.ErrConcurrentUpdate)

// MySQLAdapter persists tasks, pick lists, inspections, counts and the
// inventory ledger in MySQL. The DSN must set parseTime=true.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// NextSequence bumps a per-key counter in a single statement using the
// LAST_INSERT_ID(expr) idiom, so concurrent callers never share a value.
func (m *MySQLAdapter) NextSequence(ctx context.Context, key string) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO task_sequences (seq_key, last_value) VALUES (?, LAST_INSERT_ID(1))
		ON DUPLICATE KEY UPDATE last_value = LAST_INSERT_ID(last_value + 1)`, key)
	if err != nil {
		return 0, fmt.Errorf("bump sequence %s: %w", key, err)
	}
	n, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", key, err)
	}
	return n, nil
}

// Sequences returns the last issued value of every counter, used to seed a
// Redis sequence generator that takes over numbering.
func (m *MySQLAdapter) Sequences(ctx context.Context) (map[string]int64, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT seq_key, last_value FROM task_sequences`)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

const taskColumns = `id, task_number, type, status, priority, client_id, product_id, order_id, order_kind,
	source_location_id, source_sublocation_id, destination_location_id, destination_sublocation_id,
	container_id, lot_id, qty_requested, qty_completed, metadata, notes, assigned_to, assigned_at,
	started_at, completed_by, completed_at, version, created_at, updated_at`

func (m *MySQLAdapter) CreateTask(ctx context.Context, task domain.Task) error {
	meta, err := encodeMetadata(task.Metadata)
	if err != nil {
		return err
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.TaskNumber, task.Type, task.Status, task.Priority, task.ClientID, task.ProductID,
		task.OrderID, task.OrderKind, task.SourceLocationID, task.SourceSublocationID,
		task.DestinationLocationID, task.DestinationSublocationID, task.ContainerID, task.LotID,
		task.QtyRequested, task.QtyCompleted, meta, task.Notes, task.AssignedTo, nullTime(task.AssignedAt),
		nullTime(task.StartedAt), task.CompletedBy, nullTime(task.CompletedAt), task.Version,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

func (m *MySQLAdapter) UpdateTask(ctx context.Context, task domain.Task) error {
	meta, err := encodeMetadata(task.Metadata)
	if err != nil {
		return err
	}
	result, err := m.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, priority = ?, destination_location_id = ?, destination_sublocation_id = ?,
			qty_completed = ?, metadata = ?, notes = ?, assigned_to = ?, assigned_at = ?, started_at = ?,
			completed_by = ?, completed_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		task.Status, task.Priority, task.DestinationLocationID, task.DestinationSublocationID,
		task.QtyCompleted, meta, task.Notes, task.AssignedTo, nullTime(task.AssignedAt), nullTime(task.StartedAt),
		task.CompletedBy, nullTime(task.CompletedAt), task.UpdatedAt,
		task.ID, task.Version,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (m *MySQLAdapter) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.LocationID != "" {
		where = append(where, "(source_location_id = ? OR destination_location_id = ?)")
		args = append(args, filter.LocationID, filter.LocationID)
	}
	if filter.AssignedTo != "" {
		where = append(where, "assigned_to = ?")
		args = append(args, filter.AssignedTo)
	}
	if filter.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []domain.TaskStatus{domain.TaskStatusPending, domain.TaskStatusAssigned, domain.TaskStatusInProgress}
	}
	where = append(where, "status IN ("+placeholders(len(statuses))+")")
	for _, s := range statuses {
		args = append(args, s)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY priority DESC, created_at ASC, task_number ASC`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*domain.Task, error) {
	var (
		t                               domain.Task
		meta                            []byte
		assignedAt, startedAt, complete sql.NullTime
	)
	err := s.Scan(&t.ID, &t.TaskNumber, &t.Type, &t.Status, &t.Priority, &t.ClientID, &t.ProductID,
		&t.OrderID, &t.OrderKind, &t.SourceLocationID, &t.SourceSublocationID,
		&t.DestinationLocationID, &t.DestinationSublocationID, &t.ContainerID, &t.LotID,
		&t.QtyRequested, &t.QtyCompleted, &meta, &t.Notes, &t.AssignedTo, &assignedAt,
		&startedAt, &t.CompletedBy, &complete, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of task %s: %w", t.ID, err)
		}
	}
	t.AssignedAt = timePtr(assignedAt)
	t.StartedAt = timePtr(startedAt)
	t.CompletedAt = timePtr(complete)
	return &t, nil
}

// ── Collaborators ────────────────────────────────────────────────────────────

func (m *MySQLAdapter) AddFulfilled(ctx context.Context, demandLineID string, qty int) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE order_lines SET qty_fulfilled = qty_fulfilled + ?, updated_at = NOW()
		WHERE id = ?`, qty, demandLineID)
	if err != nil {
		return fmt.Errorf("update order line: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NotFoundError("order line", demandLineID)
	}
	return nil
}

func (m *MySQLAdapter) ReportDamage(ctx context.Context, orderID, productID string, qty int, cause, notes string) (*domain.DamageReport, error) {
	r := domain.DamageReport{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		ProductID: productID,
		Qty:       qty,
		Cause:     cause,
		Notes:     notes,
		CreatedAt: time.Now(),
	}
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO damage_reports (id, order_id, product_id, qty, cause, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OrderID, r.ProductID, r.Qty, r.Cause, r.Notes, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert damage report: %w", err)
	}
	return &r, nil
}

func (m *MySQLAdapter) ProductType(ctx context.Context, productID string) (string, error) {
	var pt string
	err := m.db.QueryRowContext(ctx, `SELECT product_type FROM products WHERE id = ?`, productID).Scan(&pt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query product type: %w", err)
	}
	return pt, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func encodeMetadata(meta map[string]string) ([]byte, error) {
	if len(meta) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
