package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

// MemoryAdapter implements every engine port in process memory behind one
// mutex. It backs local runs without a database and the service tests.
type MemoryAdapter struct {
	mu           sync.Mutex
	tasks        map[string]domain.Task
	picks        map[string]domain.PickListItem
	inspections  map[string]domain.InspectionResult
	counts       map[string]domain.CycleCount
	countItems   map[string]domain.CycleCountItem
	inventory    []*domain.InventoryLine
	sublocations map[string]domain.Sublocation
	productTypes map[string]string
	sequences    map[string]int64
	claims       map[string]bool
	fulfilled    map[string]int
	damage       []domain.DamageReport
	transactions []domain.InventoryDelta
	now          func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		tasks:        make(map[string]domain.Task),
		picks:        make(map[string]domain.PickListItem),
		inspections:  make(map[string]domain.InspectionResult),
		counts:       make(map[string]domain.CycleCount),
		countItems:   make(map[string]domain.CycleCountItem),
		sublocations: make(map[string]domain.Sublocation),
		productTypes: make(map[string]string),
		sequences:    make(map[string]int64),
		claims:       make(map[string]bool),
		fulfilled:    make(map[string]int),
		now:          time.Now,
	}
}

// ── Sequences ────────────────────────────────────────────────────────────────

func (m *MemoryAdapter) NextSequence(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[key]++
	return m.sequences[key], nil
}

func (m *MemoryAdapter) Claim(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims[key] {
		return false, nil
	}
	m.claims[key] = true
	return true, nil
}

func (m *MemoryAdapter) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, key)
	return nil
}

// ── Tasks ────────────────────────────────────────────────────────────────────

func (m *MemoryAdapter) CreateTask(ctx context.Context, task domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	m.tasks[task.ID] = task.Clone()
	return nil
}

func (m *MemoryAdapter) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	c := t.Clone()
	return &c, nil
}

func (m *MemoryAdapter) UpdateTask(ctx context.Context, task domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tasks[task.ID]
	if !ok || stored.Version != task.Version {
		return ErrOptimisticLock
	}
	next := task.Clone()
	next.Version++
	m.tasks[task.ID] = next
	return nil
}

func (m *MemoryAdapter) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if filter.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].TaskNumber < out[j].TaskNumber
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ── Pick lists ───────────────────────────────────────────────────────────────

func (m *MemoryAdapter) CreatePickItems(ctx context.Context, items []domain.PickListItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.picks[it.ID] = it
	}
	return nil
}

func (m *MemoryAdapter) GetPickItem(ctx context.Context, id string) (*domain.PickListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.picks[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (m *MemoryAdapter) UpdatePickItem(ctx context.Context, item domain.PickListItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.picks[item.ID]
	if !ok || stored.Version != item.Version {
		return ErrOptimisticLock
	}
	item.Version++
	m.picks[item.ID] = item
	return nil
}

func (m *MemoryAdapter) ListPickItems(ctx context.Context, taskID string) ([]domain.PickListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PickListItem
	for _, it := range m.picks {
		if it.TaskID == taskID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// ── Inspections ──────────────────────────────────────────────────────────────

func (m *MemoryAdapter) SaveInspectionResult(ctx context.Context, result domain.InspectionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inspections[result.TaskID]; ok {
		return &domain.TransitionError{Entity: "inspection result", ID: result.TaskID, From: "recorded", Op: "record"}
	}
	m.inspections[result.TaskID] = result
	return nil
}

func (m *MemoryAdapter) GetInspectionResult(ctx context.Context, taskID string) (*domain.InspectionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.inspections[taskID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// ── Cycle counts ─────────────────────────────────────────────────────────────

func (m *MemoryAdapter) CreateCount(ctx context.Context, count domain.CycleCount, items []domain.CycleCountItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[count.ID] = count
	for _, it := range items {
		m.countItems[it.ID] = it
	}
	return nil
}

func (m *MemoryAdapter) GetCount(ctx context.Context, id string) (*domain.CycleCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryAdapter) UpdateCount(ctx context.Context, count domain.CycleCount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.counts[count.ID]
	if !ok || stored.Version != count.Version {
		return ErrOptimisticLock
	}
	count.Version++
	m.counts[count.ID] = count
	return nil
}

func (m *MemoryAdapter) GetCountItem(ctx context.Context, id string) (*domain.CycleCountItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.countItems[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (m *MemoryAdapter) UpdateCountItem(ctx context.Context, item domain.CycleCountItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.countItems[item.ID]
	if !ok || stored.Version != item.Version {
		return ErrOptimisticLock
	}
	item.Version++
	m.countItems[item.ID] = item
	return nil
}

func (m *MemoryAdapter) ListCountItems(ctx context.Context, countID string) ([]domain.CycleCountItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CycleCountItem
	for _, it := range m.countItems {
		if it.CountID == countID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SublocationID != out[j].SublocationID {
			return out[i].SublocationID < out[j].SublocationID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// ── Inventory ledger ─────────────────────────────────────────────────────────

// AddInventory seeds a ledger row. Missing ID, status and CreatedAt are filled in.
func (m *MemoryAdapter) AddInventory(line domain.InventoryLine) domain.InventoryLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	if line.Status == "" {
		line.Status = domain.InventoryStatusAvailable
	}
	if line.CreatedAt.IsZero() {
		line.CreatedAt = m.now().Add(time.Duration(len(m.inventory)) * time.Millisecond)
	}
	l := line
	m.inventory = append(m.inventory, &l)
	return l
}

func (m *MemoryAdapter) findRow(key domain.InventoryKey, status domain.InventoryStatus) *domain.InventoryLine {
	for _, row := range m.inventory {
		if row.InventoryKey == key && row.Status == status {
			return row
		}
	}
	return nil
}

func (m *MemoryAdapter) ApplyDelta(ctx context.Context, delta domain.InventoryDelta) error {
	if err := delta.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	row := m.findRow(delta.Key, domain.InventoryStatusAvailable)
	if row == nil {
		if delta.QtyChange < 0 {
			return fmt.Errorf("no stock at %+v: %w", delta.Key, domain.ErrInsufficientInventory)
		}
		row = &domain.InventoryLine{
			ID:           uuid.NewString(),
			InventoryKey: delta.Key,
			Status:       domain.InventoryStatusAvailable,
			CreatedAt:    m.now(),
		}
		m.inventory = append(m.inventory, row)
	}
	if row.OnHand+delta.QtyChange < 0 {
		return fmt.Errorf("on hand %d, change %d: %w", row.OnHand, delta.QtyChange, domain.ErrInsufficientInventory)
	}
	row.OnHand += delta.QtyChange
	m.transactions = append(m.transactions, delta)
	return nil
}

func (m *MemoryAdapter) QueryAvailable(ctx context.Context, productID, locationID, lotID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, row := range m.inventory {
		if row.ProductID != productID || row.LocationID != locationID || row.Status != domain.InventoryStatusAvailable {
			continue
		}
		if lotID != "" && row.LotID != lotID {
			continue
		}
		total += row.Available()
	}
	return total, nil
}

func (m *MemoryAdapter) OnHand(ctx context.Context, key domain.InventoryKey) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row := m.findRow(key, domain.InventoryStatusAvailable); row != nil {
		return row.OnHand, nil
	}
	return 0, nil
}

func (m *MemoryAdapter) SetStatus(ctx context.Context, change domain.StatusChange) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matching []*domain.InventoryLine
	for _, row := range m.inventory {
		if row.ProductID == change.ProductID && row.LocationID == change.LocationID &&
			row.Status == change.From && row.OnHand > 0 {
			matching = append(matching, row)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool { return matching[i].CreatedAt.Before(matching[j].CreatedAt) })

	moved := 0
	for _, row := range matching {
		qty := row.OnHand
		if change.MaxQty > 0 {
			qty = min(qty, change.MaxQty-moved)
		}
		if qty <= 0 {
			break
		}
		target := m.findRow(row.InventoryKey, change.To)
		if target == nil {
			target = &domain.InventoryLine{
				ID:           uuid.NewString(),
				InventoryKey: row.InventoryKey,
				Status:       change.To,
				LotNumber:    row.LotNumber,
				LotExpiresAt: row.LotExpiresAt,
				CreatedAt:    row.CreatedAt,
			}
			m.inventory = append(m.inventory, target)
		}
		row.OnHand -= qty
		target.OnHand += qty
		moved += qty
		m.transactions = append(m.transactions, domain.InventoryDelta{
			Key:             row.InventoryKey,
			QtyChange:       qty,
			TransactionType: domain.TxnStatusRelease,
			ReferenceType:   change.ReferenceType,
			ReferenceID:     change.ReferenceID,
			Notes:           fmt.Sprintf("%s -> %s: %s", change.From, change.To, change.Notes),
		})
	}
	m.compact()
	return moved, nil
}

// compact drops emptied non-available rows.
func (m *MemoryAdapter) compact() {
	kept := m.inventory[:0]
	for _, row := range m.inventory {
		if row.OnHand == 0 && row.Reserved == 0 && row.Status != domain.InventoryStatusAvailable {
			continue
		}
		kept = append(kept, row)
	}
	m.inventory = kept
}

func (m *MemoryAdapter) availableRows(productID, locationID string, lotted bool) []domain.InventoryLine {
	var out []domain.InventoryLine
	for _, row := range m.inventory {
		if row.ProductID != productID || row.LocationID != locationID || row.Status != domain.InventoryStatusAvailable {
			continue
		}
		if (row.LotID != "") != lotted {
			continue
		}
		out = append(out, *row)
	}
	return out
}

func (m *MemoryAdapter) ListLotInventory(ctx context.Context, productID, locationID string) ([]domain.InventoryLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.availableRows(productID, locationID, true)
	domain.SortFEFO(rows)
	return rows, nil
}

func (m *MemoryAdapter) ListUnlottedInventory(ctx context.Context, productID, locationID string) ([]domain.InventoryLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.availableRows(productID, locationID, false)
	domain.SortFIFO(rows)
	return rows, nil
}

// Inventory returns a copy of every ledger row.
func (m *MemoryAdapter) Inventory() []domain.InventoryLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.InventoryLine, len(m.inventory))
	for i, row := range m.inventory {
		out[i] = *row
	}
	return out
}

// Transactions returns the ledger log in write order.
func (m *MemoryAdapter) Transactions() []domain.InventoryDelta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.InventoryDelta(nil), m.transactions...)
}

// ── Locations and catalog ────────────────────────────────────────────────────

func (m *MemoryAdapter) AddSublocation(sub domain.Sublocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sublocations[sub.ID] = sub
}

func (m *MemoryAdapter) SetProductType(productID, productType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.productTypes[productID] = productType
}

func (m *MemoryAdapter) ListSublocations(ctx context.Context, locationID string) ([]domain.Sublocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Sublocation
	for _, sub := range m.sublocations {
		if sub.LocationID == locationID {
			out = append(out, sub)
		}
	}
	domain.SortWalkOrder(out)
	return out, nil
}

func (m *MemoryAdapter) SublocationUsage(ctx context.Context, sublocationIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(sublocationIDs))
	for _, id := range sublocationIDs {
		want[id] = true
	}
	used := make(map[string]int, len(sublocationIDs))
	for _, row := range m.inventory {
		if want[row.SublocationID] {
			used[row.SublocationID] += row.OnHand
		}
	}
	return used, nil
}

func (m *MemoryAdapter) ProductSublocations(ctx context.Context, productID, locationID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []domain.InventoryLine
	for _, row := range m.inventory {
		if row.ProductID == productID && row.LocationID == locationID && row.SublocationID != "" && row.OnHand > 0 {
			rows = append(rows, *row)
		}
	}
	domain.SortFIFO(rows)
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		if !seen[row.SublocationID] {
			seen[row.SublocationID] = true
			out = append(out, row.SublocationID)
		}
	}
	return out, nil
}

func (m *MemoryAdapter) ProductType(ctx context.Context, productID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.productTypes[productID], nil
}

// ── Collaborators ────────────────────────────────────────────────────────────

func (m *MemoryAdapter) AddFulfilled(ctx context.Context, demandLineID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fulfilled[demandLineID] += qty
	return nil
}

// Fulfilled returns the fulfilled-so-far counter of a demand line.
func (m *MemoryAdapter) Fulfilled(demandLineID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fulfilled[demandLineID]
}

func (m *MemoryAdapter) ReportDamage(ctx context.Context, orderID, productID string, qty int, cause, notes string) (*domain.DamageReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := domain.DamageReport{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		ProductID: productID,
		Qty:       qty,
		Cause:     cause,
		Notes:     notes,
		CreatedAt: m.now(),
	}
	m.damage = append(m.damage, r)
	return &r, nil
}

func (m *MemoryAdapter) DamageReports() []domain.DamageReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DamageReport(nil), m.damage...)
}
