package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/core/service"
)

type TaskView struct {
	ID                       string            `json:"id"`
	TaskNumber               string            `json:"task_number"`
	Type                     domain.TaskType   `json:"type"`
	Status                   domain.TaskStatus `json:"status"`
	Priority                 int               `json:"priority"`
	ClientID                 string            `json:"client_id,omitempty"`
	ProductID                string            `json:"product_id,omitempty"`
	OrderID                  string            `json:"order_id,omitempty"`
	OrderKind                domain.OrderKind  `json:"order_kind,omitempty"`
	SourceLocationID         string            `json:"source_location_id,omitempty"`
	SourceSublocationID      string            `json:"source_sublocation_id,omitempty"`
	DestinationLocationID    string            `json:"destination_location_id,omitempty"`
	DestinationSublocationID string            `json:"destination_sublocation_id,omitempty"`
	ContainerID              string            `json:"container_id,omitempty"`
	LotID                    string            `json:"lot_id,omitempty"`
	QtyRequested             int               `json:"qty_requested"`
	QtyCompleted             int               `json:"qty_completed"`
	Metadata                 map[string]string `json:"metadata,omitempty"`
	Notes                    string            `json:"notes,omitempty"`
	AssignedTo               string            `json:"assigned_to,omitempty"`
	AssignedAt               *time.Time        `json:"assigned_at,omitempty"`
	StartedAt                *time.Time        `json:"started_at,omitempty"`
	CompletedBy              string            `json:"completed_by,omitempty"`
	CompletedAt              *time.Time        `json:"completed_at,omitempty"`
	Version                  int               `json:"version"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

func taskView(t *domain.Task) *TaskView {
	if t == nil {
		return nil
	}
	return &TaskView{
		ID:                       t.ID,
		TaskNumber:               t.TaskNumber,
		Type:                     t.Type,
		Status:                   t.Status,
		Priority:                 t.Priority,
		ClientID:                 t.ClientID,
		ProductID:                t.ProductID,
		OrderID:                  t.OrderID,
		OrderKind:                t.OrderKind,
		SourceLocationID:         t.SourceLocationID,
		SourceSublocationID:      t.SourceSublocationID,
		DestinationLocationID:    t.DestinationLocationID,
		DestinationSublocationID: t.DestinationSublocationID,
		ContainerID:              t.ContainerID,
		LotID:                    t.LotID,
		QtyRequested:             t.QtyRequested,
		QtyCompleted:             t.QtyCompleted,
		Metadata:                 t.Metadata,
		Notes:                    t.Notes,
		AssignedTo:               t.AssignedTo,
		AssignedAt:               t.AssignedAt,
		StartedAt:                t.StartedAt,
		CompletedBy:              t.CompletedBy,
		CompletedAt:              t.CompletedAt,
		Version:                  t.Version,
		CreatedAt:                t.CreatedAt,
		UpdatedAt:                t.UpdatedAt,
	}
}

type PickItemView struct {
	ID            string                `json:"id"`
	TaskID        string                `json:"task_id"`
	DemandLineID  string                `json:"demand_line_id,omitempty"`
	ProductID     string                `json:"product_id"`
	LotID         string                `json:"lot_id,omitempty"`
	LocationID    string                `json:"location_id"`
	SublocationID string                `json:"sublocation_id,omitempty"`
	QtyAllocated  int                   `json:"qty_allocated"`
	QtyPicked     int                   `json:"qty_picked"`
	QtyShort      int                   `json:"qty_short"`
	Sequence      int                   `json:"sequence"`
	Status        domain.PickItemStatus `json:"status"`
	ShortReason   string                `json:"short_reason,omitempty"`
	PickedBy      string                `json:"picked_by,omitempty"`
	PickedAt      *time.Time            `json:"picked_at,omitempty"`
}

func pickItemView(p domain.PickListItem) PickItemView {
	return PickItemView{
		ID:            p.ID,
		TaskID:        p.TaskID,
		DemandLineID:  p.DemandLineID,
		ProductID:     p.ProductID,
		LotID:         p.LotID,
		LocationID:    p.LocationID,
		SublocationID: p.SublocationID,
		QtyAllocated:  p.QtyAllocated,
		QtyPicked:     p.QtyPicked,
		QtyShort:      p.QtyShort,
		Sequence:      p.Sequence,
		Status:        p.Status,
		ShortReason:   p.ShortReason,
		PickedBy:      p.PickedBy,
		PickedAt:      p.PickedAt,
	}
}

func pickItemViews(items []domain.PickListItem) []PickItemView {
	out := make([]PickItemView, len(items))
	for i, it := range items {
		out[i] = pickItemView(it)
	}
	return out
}

type LineAllocationView struct {
	DemandLineID string `json:"demand_line_id,omitempty"`
	ProductID    string `json:"product_id"`
	Requested    int    `json:"requested"`
	Allocated    int    `json:"allocated"`
	Shortfall    int    `json:"shortfall"`
}

type PickListView struct {
	Task    *TaskView            `json:"task"`
	Items   []PickItemView       `json:"items"`
	Lines   []LineAllocationView `json:"lines"`
	Partial bool                 `json:"partial"`
}

func pickListView(r *service.PickListResult) PickListView {
	lines := make([]LineAllocationView, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = LineAllocationView{
			DemandLineID: l.DemandLineID,
			ProductID:    l.ProductID,
			Requested:    l.Requested,
			Allocated:    l.Allocated,
			Shortfall:    l.Shortfall,
		}
	}
	return PickListView{
		Task:    taskView(r.Task),
		Items:   pickItemViews(r.Items),
		Lines:   lines,
		Partial: r.Partial(),
	}
}

type CountView struct {
	ID          string             `json:"id"`
	CountNumber string             `json:"count_number"`
	LocationID  string             `json:"location_id"`
	Status      domain.CountStatus `json:"status"`
	Blind       bool               `json:"blind"`
	Notes       string             `json:"notes,omitempty"`
	CreatedBy   string             `json:"created_by,omitempty"`
	ApprovedBy  string             `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time         `json:"approved_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Items       []CountItemView    `json:"items,omitempty"`
}

type CountItemView struct {
	ID                 string           `json:"id"`
	ProductID          string           `json:"product_id"`
	SublocationID      string           `json:"sublocation_id,omitempty"`
	LotID              string           `json:"lot_id,omitempty"`
	ExpectedQty        int              `json:"expected_qty"`
	CountedQty         *int             `json:"counted_qty,omitempty"`
	Variance           *int             `json:"variance,omitempty"`
	VariancePercent    *decimal.Decimal `json:"variance_percent,omitempty"`
	AdjustmentApproved bool             `json:"adjustment_approved"`
	CountedBy          string           `json:"counted_by,omitempty"`
	CountedAt          *time.Time       `json:"counted_at,omitempty"`
}

// countItemView masks what a blind count must not reveal to counters.
func countItemView(c domain.CycleCount, it domain.CycleCountItem) CountItemView {
	v := CountItemView{
		ID:                 it.ID,
		ProductID:          it.ProductID,
		SublocationID:      it.SublocationID,
		LotID:              it.LotID,
		ExpectedQty:        it.VisibleExpected(c),
		CountedQty:         it.CountedQty,
		Variance:           it.Variance,
		VariancePercent:    it.VariancePercent,
		AdjustmentApproved: it.AdjustmentApproved,
		CountedBy:          it.CountedBy,
		CountedAt:          it.CountedAt,
	}
	if c.ExpectedHidden() {
		v.Variance = nil
		v.VariancePercent = nil
	}
	return v
}

func countView(c *domain.CycleCount, items []domain.CycleCountItem) CountView {
	v := CountView{
		ID:          c.ID,
		CountNumber: c.CountNumber,
		LocationID:  c.LocationID,
		Status:      c.Status,
		Blind:       c.Blind,
		Notes:       c.Notes,
		CreatedBy:   c.CreatedBy,
		ApprovedBy:  c.ApprovedBy,
		ApprovedAt:  c.ApprovedAt,
		CompletedAt: c.CompletedAt,
	}
	for _, it := range items {
		v.Items = append(v.Items, countItemView(*c, it))
	}
	return v
}
