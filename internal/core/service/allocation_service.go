package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/port"
)

// PickListResult is the outcome of GeneratePickList. Task is nil when no
// stock at all could be allocated.
type PickListResult struct {
	Task  *domain.Task
	Items []domain.PickListItem
	Lines []domain.LineAllocation
}

// Partial reports whether any demand line was under-allocated.
func (r *PickListResult) Partial() bool {
	for _, l := range r.Lines {
		if l.Shortfall > 0 {
			return true
		}
	}
	return false
}

// AllocationService turns outbound demand into FEFO-ordered pick lists and
// records picks against the ledger.
type AllocationService struct {
	base
	tasks  *TaskService
	picks  port.PickListRepository
	ledger port.InventoryLedger
	demand port.DemandTracker
}

func NewAllocationService(tasks *TaskService, picks port.PickListRepository, ledger port.InventoryLedger, demand port.DemandTracker, opts ...Option) *AllocationService {
	return &AllocationService{
		base:   newBase(opts),
		tasks:  tasks,
		picks:  picks,
		ledger: ledger,
		demand: demand,
	}
}

// GeneratePickList plans allocation from a snapshot of the ledger, creates a
// pick task and persists its items. Nothing is written to inventory.
func (s *AllocationService) GeneratePickList(ctx context.Context, req domain.PickListRequest) (*PickListResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &PickListResult{Lines: plan.lines}
	for _, l := range plan.lines {
		s.metrics.PickUnits("allocated", l.Allocated)
		s.metrics.PickUnits("shortfall", l.Shortfall)
	}
	if len(plan.items) == 0 {
		return result, nil
	}

	spec := domain.TaskSpec{
		Type:             domain.TaskTypePick,
		Priority:         req.Priority,
		ClientID:         req.ClientID,
		OrderID:          req.OrderID,
		OrderKind:        domain.OrderKindOutbound,
		SourceLocationID: req.LocationID,
		QtyRequested:     plan.requested,
	}
	if p, ok := singleProduct(req.Lines); ok {
		spec.ProductID = p
	}

	task, err := s.tasks.Create(ctx, spec)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range plan.items {
		plan.items[i].ID = uuid.NewString()
		plan.items[i].TaskID = task.ID
		plan.items[i].CreatedAt = now
	}
	if err := s.picks.CreatePickItems(ctx, plan.items); err != nil {
		return nil, fmt.Errorf("create pick items for task %s: %w", task.ID, err)
	}

	result.Task = task
	result.Items = plan.items
	return result, nil
}

type allocationPlan struct {
	items     []domain.PickListItem
	lines     []domain.LineAllocation
	requested int
}

// plan walks each demand line through lot stock in FEFO order and then
// unlotted stock oldest first. Rows already drawn by an earlier line of the
// same request are not drawn again.
func (s *AllocationService) plan(ctx context.Context, req domain.PickListRequest) (allocationPlan, error) {
	var p allocationPlan
	consumed := make(map[string]int)
	seq := 0

	for _, line := range req.Lines {
		p.requested += line.QtyNeeded
		remaining := line.QtyNeeded

		lots, err := s.ledger.ListLotInventory(ctx, line.ProductID, req.LocationID)
		if err != nil {
			return p, fmt.Errorf("list lot inventory for %s: %w", line.ProductID, err)
		}
		domain.SortFEFO(lots)
		remaining = s.allocateFrom(lots, line, remaining, consumed, &seq, &p.items)

		if remaining > 0 {
			loose, err := s.ledger.ListUnlottedInventory(ctx, line.ProductID, req.LocationID)
			if err != nil {
				return p, fmt.Errorf("list inventory for %s: %w", line.ProductID, err)
			}
			domain.SortFIFO(loose)
			remaining = s.allocateFrom(loose, line, remaining, consumed, &seq, &p.items)
		}

		p.lines = append(p.lines, domain.LineAllocation{
			DemandLineID: line.DemandLineID,
			ProductID:    line.ProductID,
			Requested:    line.QtyNeeded,
			Allocated:    line.QtyNeeded - remaining,
			Shortfall:    remaining,
		})
	}
	return p, nil
}

func (s *AllocationService) allocateFrom(rows []domain.InventoryLine, line domain.DemandLine, remaining int,
	consumed map[string]int, seq *int, items *[]domain.PickListItem) int {

	for _, row := range rows {
		if remaining <= 0 {
			break
		}
		rowID := inventoryRowID(row)
		available := row.Available() - consumed[rowID]
		if available <= 0 {
			continue
		}

		qty := min(remaining, available)
		consumed[rowID] += qty
		remaining -= qty
		*seq++

		*items = append(*items, domain.PickListItem{
			DemandLineID:  line.DemandLineID,
			ProductID:     line.ProductID,
			LotID:         row.LotID,
			LocationID:    row.LocationID,
			SublocationID: row.SublocationID,
			QtyAllocated:  qty,
			Sequence:      *seq,
			Status:        domain.PickItemPending,
		})
	}
	return remaining
}

func inventoryRowID(row domain.InventoryLine) string {
	if row.ID != "" {
		return row.ID
	}
	k := row.InventoryKey
	return k.ProductID + "|" + k.LocationID + "|" + k.SublocationID + "|" + k.LotID
}

func singleProduct(lines []domain.DemandLine) (string, bool) {
	product := lines[0].ProductID
	for _, l := range lines[1:] {
		if l.ProductID != product {
			return "", false
		}
	}
	return product, true
}

func (s *AllocationService) ListPickItems(ctx context.Context, taskID string) ([]domain.PickListItem, error) {
	if _, err := s.tasks.Get(ctx, taskID); err != nil {
		return nil, err
	}
	items, err := s.picks.ListPickItems(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list pick items: %w", err)
	}
	return items, nil
}

// RecordPick marks the item picked, deducts exactly qtyPicked from the
// item's inventory row and credits the originating demand line.
func (s *AllocationService) RecordPick(ctx context.Context, itemID string, qtyPicked int, actorID string) (*domain.PickListItem, error) {
	item, task, err := s.loadOpenItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	next := *item
	if err := next.MarkPicked(qtyPicked, actorID, s.now()); err != nil {
		return nil, err
	}
	if err := s.picks.UpdatePickItem(ctx, next); err != nil {
		return nil, fmt.Errorf("update pick item %s: %w", itemID, err)
	}
	next.Version++

	err = s.ledger.ApplyDelta(ctx, domain.InventoryDelta{
		Key:             next.Key(),
		QtyChange:       -qtyPicked,
		TransactionType: domain.TxnPick,
		ReferenceType:   domain.RefTask,
		ReferenceID:     task.ID,
		ActorID:         actorID,
		Notes:           fmt.Sprintf("pick %s seq %d", task.TaskNumber, next.Sequence),
	})
	if err != nil {
		s.revertPick(ctx, *item, next)
		return nil, fmt.Errorf("deduct inventory for pick item %s: %w", itemID, err)
	}
	s.metrics.PickUnits("picked", qtyPicked)

	if next.DemandLineID != "" && s.demand != nil {
		if err := s.demand.AddFulfilled(ctx, next.DemandLineID, qtyPicked); err != nil {
			s.metrics.SideEffectFailed("demand_fulfilled")
			s.logger.Printf("pick item %s: credit demand line %s with %d failed: %v", itemID, next.DemandLineID, qtyPicked, err)
		}
	}

	s.afterItemClosed(ctx, task, actorID)
	return &next, nil
}

// revertPick restores the pending item after the ledger refused the delta.
func (s *AllocationService) revertPick(ctx context.Context, original, updated domain.PickListItem) {
	original.Version = updated.Version
	if err := s.picks.UpdatePickItem(ctx, original); err != nil {
		s.logger.Printf("pick item %s: revert to pending failed: %v", original.ID, err)
	}
}

// RecordShortPick records a shortfall on the item without touching inventory.
func (s *AllocationService) RecordShortPick(ctx context.Context, itemID string, qtyShort int, reason, actorID string) (*domain.PickListItem, error) {
	item, task, err := s.loadOpenItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	next := *item
	if err := next.MarkShort(qtyShort, reason, actorID, s.now()); err != nil {
		return nil, err
	}
	if err := s.picks.UpdatePickItem(ctx, next); err != nil {
		return nil, fmt.Errorf("update pick item %s: %w", itemID, err)
	}
	next.Version++
	s.metrics.PickUnits("short", qtyShort)
	s.logger.Printf("short pick on %s item %s: %d short, reason: %s", task.TaskNumber, itemID, qtyShort, reason)

	s.afterItemClosed(ctx, task, actorID)
	return &next, nil
}

func (s *AllocationService) SkipPick(ctx context.Context, itemID, reason, actorID string) (*domain.PickListItem, error) {
	item, task, err := s.loadOpenItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	next := *item
	if err := next.MarkSkipped(reason, actorID, s.now()); err != nil {
		return nil, err
	}
	if err := s.picks.UpdatePickItem(ctx, next); err != nil {
		return nil, fmt.Errorf("update pick item %s: %w", itemID, err)
	}
	next.Version++

	s.afterItemClosed(ctx, task, actorID)
	return &next, nil
}

// loadOpenItem resolves the item and its task, promoting the task to
// in_progress on its first recorded pick.
func (s *AllocationService) loadOpenItem(ctx context.Context, itemID string) (*domain.PickListItem, *domain.Task, error) {
	item, err := s.picks.GetPickItem(ctx, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("get pick item: %w", err)
	}
	if item == nil {
		return nil, nil, domain.NotFoundError("pick item", itemID)
	}

	task, err := s.tasks.Get(ctx, item.TaskID)
	if err != nil {
		return nil, nil, err
	}
	if task.Status.IsTerminal() {
		return nil, nil, &domain.TransitionError{Entity: "task", ID: task.ID, From: string(task.Status), Op: "record pick"}
	}
	if task.Status != domain.TaskStatusInProgress {
		started, err := s.tasks.Start(ctx, task.ID)
		if err != nil && !errors.Is(err, domain.ErrConcurrentUpdate) {
			return nil, nil, err
		}
		if started != nil {
			task = started
		}
	}
	return item, task, nil
}

// afterItemClosed completes the task once every item is picked, short or skipped.
func (s *AllocationService) afterItemClosed(ctx context.Context, task *domain.Task, actorID string) {
	items, err := s.picks.ListPickItems(ctx, task.ID)
	if err != nil {
		s.logger.Printf("task %s: list pick items for completion check failed: %v", task.ID, err)
		return
	}
	done, picked := domain.AllTerminal(items)
	if !done {
		return
	}

	notes := fmt.Sprintf("auto-completed: %d of %d picked", picked, task.QtyRequested)
	for attempt := 0; attempt < maxCompleteAttempts; attempt++ {
		_, err = s.tasks.finish(ctx, task.ID, picked, notes, actorID)
		if err == nil || errors.Is(err, domain.ErrInvalidStateTransition) {
			return
		}
		if !errors.Is(err, domain.ErrConcurrentUpdate) {
			break
		}
	}
	s.logger.Printf("task %s: auto-complete failed: %v", task.ID, err)
}

const maxCompleteAttempts = 3
