package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/port"
)

const DefaultPerishablePriorityBoost = 5

// Suggestion is a non-binding destination proposal. SublocationID is empty
// when nothing could be suggested.
type Suggestion struct {
	SublocationID string
	Reason        string
}

// PutawaySpec describes stock waiting in staging for a putaway task.
type PutawaySpec struct {
	ClientID            string
	ProductID           string
	OrderID             string
	LocationID          string
	SourceSublocationID string // receiving bin; empty for the location's staging row
	LotID               string
	ContainerID         string
	Qty                 int
	Priority            int
	Metadata            map[string]string
	Notes               string
}

// PutawayService suggests storage sub-locations and creates and confirms
// putaway tasks.
type PutawayService struct {
	base
	tasks           *TaskService
	locations       port.LocationRepository
	catalog         port.ProductCatalog
	ledger          port.InventoryLedger
	perishableTypes map[string]bool
	priorityBoost   int
}

func NewPutawayService(tasks *TaskService, locations port.LocationRepository, catalog port.ProductCatalog,
	ledger port.InventoryLedger, perishableTypes []string, priorityBoost int, opts ...Option) *PutawayService {

	types := make(map[string]bool, len(perishableTypes))
	for _, t := range perishableTypes {
		types[strings.ToLower(strings.TrimSpace(t))] = true
	}
	if priorityBoost <= 0 {
		priorityBoost = DefaultPerishablePriorityBoost
	}
	return &PutawayService{
		base:            newBase(opts),
		tasks:           tasks,
		locations:       locations,
		catalog:         catalog,
		ledger:          ledger,
		perishableTypes: types,
		priorityBoost:   priorityBoost,
	}
}

// Suggest proposes a sub-location: one already holding the product, else
// the first in walk order with enough room, else the roomiest.
func (s *PutawayService) Suggest(ctx context.Context, productID, locationID string, qty int) (*Suggestion, error) {
	if productID == "" || locationID == "" {
		return nil, &domain.ValidationError{Field: "product_id/location_id", Reason: "required"}
	}
	if qty <= 0 {
		return nil, &domain.ValidationError{Field: "qty", Reason: "must be positive"}
	}

	subs, err := s.locations.ListSublocations(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("list sublocations: %w", err)
	}
	byID := make(map[string]domain.Sublocation, len(subs))
	for _, sub := range subs {
		byID[sub.ID] = sub
	}

	holding, err := s.locations.ProductSublocations(ctx, productID, locationID)
	if err != nil {
		return nil, fmt.Errorf("find product sublocations: %w", err)
	}
	for _, id := range holding {
		if sub, ok := byID[id]; ok && sub.Active {
			return &Suggestion{SublocationID: sub.ID, Reason: "same product already stored here"}, nil
		}
	}

	var tracked []domain.Sublocation
	for _, sub := range subs {
		if sub.Active && sub.Capacity != nil {
			tracked = append(tracked, sub)
		}
	}
	if len(tracked) == 0 {
		return &Suggestion{Reason: "no sub-locations configured"}, nil
	}
	domain.SortWalkOrder(tracked)

	ids := make([]string, len(tracked))
	for i, sub := range tracked {
		ids[i] = sub.ID
	}
	used, err := s.locations.SublocationUsage(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("sublocation usage: %w", err)
	}

	best, bestRemaining := -1, 0
	for i, sub := range tracked {
		remaining := *sub.Capacity - used[sub.ID]
		if remaining >= qty {
			return &Suggestion{
				SublocationID: sub.ID,
				Reason:        fmt.Sprintf("capacity available (%d free)", remaining),
			}, nil
		}
		if best < 0 || remaining > bestRemaining {
			best, bestRemaining = i, remaining
		}
	}

	sub := tracked[best]
	return &Suggestion{
		SublocationID: sub.ID,
		Reason:        fmt.Sprintf("insufficient capacity everywhere; best available has %d free of %d needed", max(bestRemaining, 0), qty),
	}, nil
}

// IsPerishable reports whether the product's type is configured as
// spoilage-sensitive.
func (s *PutawayService) IsPerishable(ctx context.Context, productID string) (bool, error) {
	if s.catalog == nil || len(s.perishableTypes) == 0 {
		return false, nil
	}
	pt, err := s.catalog.ProductType(ctx, productID)
	if err != nil {
		return false, err
	}
	return s.perishableTypes[strings.ToLower(pt)], nil
}

// CreatePutawayTask creates a putaway task with the suggested destination
// pre-filled and priority raised for perishable products. Suggestion and
// catalog failures only drop the enrichment.
func (s *PutawayService) CreatePutawayTask(ctx context.Context, spec PutawaySpec) (*domain.Task, error) {
	if spec.ProductID == "" || spec.LocationID == "" {
		return nil, &domain.ValidationError{Field: "product_id/location_id", Reason: "required"}
	}
	if spec.Qty <= 0 {
		return nil, &domain.ValidationError{Field: "qty", Reason: "must be positive"}
	}

	meta := copyMetadata(spec.Metadata)
	priority := spec.Priority

	if perishable, err := s.IsPerishable(ctx, spec.ProductID); err != nil {
		s.logger.Printf("putaway for product %s: product type lookup failed: %v", spec.ProductID, err)
	} else if perishable {
		priority += s.priorityBoost
	}

	var destSub string
	if sug, err := s.Suggest(ctx, spec.ProductID, spec.LocationID, spec.Qty); err != nil {
		s.logger.Printf("putaway for product %s: suggestion failed: %v", spec.ProductID, err)
	} else {
		destSub = sug.SublocationID
		meta[domain.MetaPutawayReason] = sug.Reason
	}

	return s.tasks.Create(ctx, domain.TaskSpec{
		Type:                     domain.TaskTypePutaway,
		Priority:                 priority,
		ClientID:                 spec.ClientID,
		ProductID:                spec.ProductID,
		OrderID:                  spec.OrderID,
		OrderKind:                domain.OrderKindInbound,
		SourceLocationID:         spec.LocationID,
		SourceSublocationID:      spec.SourceSublocationID,
		DestinationLocationID:    spec.LocationID,
		DestinationSublocationID: destSub,
		ContainerID:              spec.ContainerID,
		LotID:                    spec.LotID,
		QtyRequested:             spec.Qty,
		Metadata:                 meta,
		Notes:                    spec.Notes,
	})
}

// ConfirmPutaway completes the task and then moves qty from staging into
// the chosen sub-location. Completion is the version-checked claim, so
// concurrent confirmations move stock once; a failed move reopens the task.
// An empty sublocationID keeps the task's suggestion.
func (s *PutawayService) ConfirmPutaway(ctx context.Context, taskID, sublocationID string, qty int, actorID string) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Type != domain.TaskTypePutaway {
		return nil, &domain.ValidationError{Field: "type", Reason: "not a putaway task"}
	}
	if task.Status.IsTerminal() {
		return nil, &domain.TransitionError{Entity: "task", ID: task.ID, From: string(task.Status), Op: "confirm putaway"}
	}
	if sublocationID == "" {
		sublocationID = task.DestinationSublocationID
	}
	if sublocationID == "" {
		return nil, &domain.ValidationError{Field: "sublocation_id", Reason: "required"}
	}
	if qty <= 0 || qty > task.QtyRequested {
		return nil, &domain.ValidationError{Field: "qty", Reason: fmt.Sprintf("must be between 1 and %d", task.QtyRequested)}
	}

	destLocation := task.DestinationLocationID
	if destLocation == "" {
		destLocation = task.SourceLocationID
	}

	claimed, err := s.tasks.mutateFrom(ctx, *task, func(t *domain.Task) error {
		t.DestinationLocationID = destLocation
		t.DestinationSublocationID = sublocationID
		return t.Complete(qty, t.Notes, actorID, s.now())
	})
	if err != nil {
		return nil, err
	}

	from := domain.InventoryKey{
		ProductID:     task.ProductID,
		LocationID:    task.SourceLocationID,
		SublocationID: task.SourceSublocationID,
		LotID:         task.LotID,
	}
	to := domain.InventoryKey{
		ProductID:     task.ProductID,
		LocationID:    destLocation,
		SublocationID: sublocationID,
		LotID:         task.LotID,
	}
	delta := domain.InventoryDelta{
		TransactionType: domain.TxnPutaway,
		ReferenceType:   domain.RefTask,
		ReferenceID:     task.ID,
		ActorID:         actorID,
		Notes:           fmt.Sprintf("putaway %s", task.TaskNumber),
	}

	out := delta
	out.Key, out.QtyChange = from, -qty
	if err := s.ledger.ApplyDelta(ctx, out); err != nil {
		s.tasks.restore(ctx, *task, claimed)
		return nil, fmt.Errorf("remove %d from staging: %w", qty, err)
	}
	in := delta
	in.Key, in.QtyChange = to, qty
	if err := s.ledger.ApplyDelta(ctx, in); err != nil {
		out.QtyChange = qty
		out.Notes += " (reversal)"
		if rerr := s.ledger.ApplyDelta(ctx, out); rerr != nil {
			s.logger.Printf("putaway %s: reversal of staging deduction failed: %v", task.ID, rerr)
		}
		s.tasks.restore(ctx, *task, claimed)
		return nil, fmt.Errorf("add %d to sublocation %s: %w", qty, sublocationID, err)
	}
	return claimed, nil
}
