package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/port"
)

// ApprovalSummary reports how many items were adjusted during approval.
// Failed items are only logged; the count still completes.
type ApprovalSummary struct {
	Count    *domain.CycleCount
	Adjusted int
	Failed   int
	Skipped  int
}

// CycleCountService captures counts and posts approved variances to the ledger.
type CycleCountService struct {
	base
	counts port.CycleCountRepository
	ledger port.InventoryLedger
	seq    port.SequenceGenerator
}

func NewCycleCountService(counts port.CycleCountRepository, ledger port.InventoryLedger, seq port.SequenceGenerator, opts ...Option) *CycleCountService {
	return &CycleCountService{
		base:   newBase(opts),
		counts: counts,
		ledger: ledger,
		seq:    seq,
	}
}

// CreateCount freezes the expected quantity of every line from the ledger.
func (s *CycleCountService) CreateCount(ctx context.Context, req domain.CountRequest) (*domain.CycleCount, []domain.CycleCountItem, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	year := s.now().Year()
	n, err := s.seq.NextSequence(ctx, fmt.Sprintf("count:CC:%d", year))
	if err != nil {
		return nil, nil, fmt.Errorf("count number sequence: %w", err)
	}

	now := s.now()
	count := domain.CycleCount{
		ID:          uuid.NewString(),
		CountNumber: fmt.Sprintf("CC-%d-%05d", year, n),
		LocationID:  req.LocationID,
		Status:      domain.CountStatusPending,
		Blind:       req.Blind,
		Notes:       req.Notes,
		CreatedBy:   req.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	items := make([]domain.CycleCountItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		item := domain.CycleCountItem{
			ID:            uuid.NewString(),
			CountID:       count.ID,
			ProductID:     line.ProductID,
			LocationID:    req.LocationID,
			SublocationID: line.SublocationID,
			LotID:         line.LotID,
		}
		expected, err := s.ledger.OnHand(ctx, item.Key())
		if err != nil {
			return nil, nil, fmt.Errorf("expected quantity for product %s: %w", line.ProductID, err)
		}
		item.ExpectedQty = expected
		items = append(items, item)
	}

	if err := s.counts.CreateCount(ctx, count, items); err != nil {
		return nil, nil, fmt.Errorf("create count: %w", err)
	}
	return &count, items, nil
}

func (s *CycleCountService) GetCount(ctx context.Context, id string) (*domain.CycleCount, []domain.CycleCountItem, error) {
	count, err := s.getCount(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.counts.ListCountItems(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list count items: %w", err)
	}
	return count, items, nil
}

func (s *CycleCountService) StartCount(ctx context.Context, id string) (*domain.CycleCount, error) {
	return s.mutateCount(ctx, id, (*domain.CycleCount).Start)
}

// RecordCount stores the counted quantity and recomputes variance from it.
// Counting a pending count starts it.
func (s *CycleCountService) RecordCount(ctx context.Context, itemID string, countedQty int, counterID string) (*domain.CycleCountItem, error) {
	item, err := s.counts.GetCountItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get count item: %w", err)
	}
	if item == nil {
		return nil, domain.NotFoundError("cycle count item", itemID)
	}

	count, err := s.getCount(ctx, item.CountID)
	if err != nil {
		return nil, err
	}
	switch count.Status {
	case domain.CountStatusPending:
		if _, err := s.StartCount(ctx, count.ID); err != nil {
			return nil, err
		}
	case domain.CountStatusInProgress:
	default:
		return nil, &domain.TransitionError{Entity: "cycle count", ID: count.ID, From: string(count.Status), Op: "record count"}
	}

	next := *item
	if err := next.Record(countedQty, counterID, s.now()); err != nil {
		return nil, err
	}
	if err := s.counts.UpdateCountItem(ctx, next); err != nil {
		return nil, fmt.Errorf("update count item %s: %w", itemID, err)
	}
	next.Version++
	return &next, nil
}

// SubmitCount hands an in-progress count to approval once every line is counted.
func (s *CycleCountService) SubmitCount(ctx context.Context, id string) (*domain.CycleCount, error) {
	items, err := s.counts.ListCountItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list count items: %w", err)
	}
	for _, it := range items {
		if it.CountedQty == nil {
			return nil, &domain.ValidationError{Field: "items", Reason: fmt.Sprintf("item %s not counted", it.ID)}
		}
	}
	return s.mutateCount(ctx, id, (*domain.CycleCount).Submit)
}

// Approve completes the count, then posts each non-zero variance as a signed
// ledger adjustment referencing it. Only the approver whose completion wins
// the version check adjusts. An item whose adjustment fails is logged and
// skipped.
func (s *CycleCountService) Approve(ctx context.Context, id, approverID string) (*ApprovalSummary, error) {
	count, err := s.getCount(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.counts.ListCountItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list count items: %w", err)
	}

	approved, err := s.mutateCountFrom(ctx, *count, func(c *domain.CycleCount) error {
		return c.Approve(approverID, s.now())
	})
	if err != nil {
		return nil, err
	}

	summary := &ApprovalSummary{Count: approved}
	for _, item := range items {
		if !item.NeedsAdjustment() || item.AdjustmentApproved {
			summary.Skipped++
			continue
		}
		if err := s.adjust(ctx, approved, item, approverID); err != nil {
			summary.Failed++
			s.metrics.Adjustment("failed")
			s.logger.Printf("cycle count %s item %s: adjustment of %d failed: %v", count.CountNumber, item.ID, *item.Variance, err)
			continue
		}
		summary.Adjusted++
		s.metrics.Adjustment("applied")
	}
	return summary, nil
}

// adjust flags the item approved before posting its variance so an item is
// adjusted at most once. The flag is cleared again if the ledger refuses.
func (s *CycleCountService) adjust(ctx context.Context, count *domain.CycleCount, item domain.CycleCountItem, approverID string) error {
	flagged := item
	flagged.AdjustmentApproved = true
	if err := s.counts.UpdateCountItem(ctx, flagged); err != nil {
		return fmt.Errorf("flag item approved: %w", err)
	}
	flagged.Version++

	err := s.ledger.ApplyDelta(ctx, domain.InventoryDelta{
		Key:             item.Key(),
		QtyChange:       *item.Variance,
		TransactionType: domain.TxnAdjustment,
		ReferenceType:   domain.RefCycleCount,
		ReferenceID:     count.ID,
		ActorID:         approverID,
		Notes:           fmt.Sprintf("cycle count %s: expected %d, counted %d", count.CountNumber, item.ExpectedQty, *item.CountedQty),
	})
	if err == nil {
		return nil
	}

	flagged.AdjustmentApproved = false
	if uerr := s.counts.UpdateCountItem(ctx, flagged); uerr != nil {
		s.logger.Printf("cycle count %s item %s: clearing approval flag failed: %v", count.CountNumber, item.ID, uerr)
	}
	return err
}

// Reject returns a count awaiting approval to in_progress and clears every
// recorded count for a full recount.
func (s *CycleCountService) Reject(ctx context.Context, id string) (*domain.CycleCount, error) {
	count, err := s.getCount(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.counts.ListCountItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list count items: %w", err)
	}

	rejected, err := s.mutateCountFrom(ctx, *count, (*domain.CycleCount).Reject)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		item.Reset()
		if err := s.counts.UpdateCountItem(ctx, item); err != nil {
			return nil, fmt.Errorf("reset count item %s: %w", item.ID, err)
		}
	}
	return rejected, nil
}

func (s *CycleCountService) CancelCount(ctx context.Context, id string) (*domain.CycleCount, error) {
	return s.mutateCount(ctx, id, func(c *domain.CycleCount) error {
		return c.Cancel(s.now())
	})
}

func (s *CycleCountService) getCount(ctx context.Context, id string) (*domain.CycleCount, error) {
	count, err := s.counts.GetCount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get count: %w", err)
	}
	if count == nil {
		return nil, domain.NotFoundError("cycle count", id)
	}
	return count, nil
}

func (s *CycleCountService) mutateCount(ctx context.Context, id string, fn func(*domain.CycleCount) error) (*domain.CycleCount, error) {
	count, err := s.getCount(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.mutateCountFrom(ctx, *count, fn)
}

// mutateCountFrom applies fn to a snapshot the caller already loaded; the
// write fails with ErrConcurrentUpdate if the count changed since.
func (s *CycleCountService) mutateCountFrom(ctx context.Context, current domain.CycleCount, fn func(*domain.CycleCount) error) (*domain.CycleCount, error) {
	next := current
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	if err := s.counts.UpdateCount(ctx, next); err != nil {
		return nil, fmt.Errorf("update count %s: %w", current.ID, err)
	}
	next.Version++
	return &next, nil
}
