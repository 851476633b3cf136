package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CountStatus string

const (
	CountStatusPending         CountStatus = "pending"
	CountStatusInProgress      CountStatus = "in_progress"
	CountStatusPendingApproval CountStatus = "pending_approval"
	CountStatusCompleted       CountStatus = "completed"
	CountStatusCancelled       CountStatus = "cancelled"
)

func (s CountStatus) IsTerminal() bool {
	return s == CountStatusCompleted || s == CountStatusCancelled
}

// CycleCount is a physical recount of one location.
type CycleCount struct {
	ID          string
	CountNumber string
	LocationID  string
	Status      CountStatus
	Blind       bool
	Notes       string
	CreatedBy   string
	ApprovedBy  string
	ApprovedAt  *time.Time
	CompletedAt *time.Time
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *CycleCount) transitionError(op string) error {
	return &TransitionError{Entity: "cycle count", ID: c.ID, From: string(c.Status), Op: op}
}

func (c *CycleCount) Start() error {
	if c.Status != CountStatusPending {
		return c.transitionError("start")
	}
	c.Status = CountStatusInProgress
	return nil
}

func (c *CycleCount) Submit() error {
	if c.Status != CountStatusInProgress {
		return c.transitionError("submit")
	}
	c.Status = CountStatusPendingApproval
	return nil
}

func (c *CycleCount) Approve(approverID string, at time.Time) error {
	if c.Status != CountStatusPendingApproval {
		return c.transitionError("approve")
	}
	if approverID == "" {
		return invalid("approver_id", "required")
	}
	c.Status = CountStatusCompleted
	c.ApprovedBy = approverID
	c.ApprovedAt = &at
	c.CompletedAt = &at
	return nil
}

// Reject sends a count awaiting approval back for a full recount.
func (c *CycleCount) Reject() error {
	if c.Status != CountStatusPendingApproval {
		return c.transitionError("reject")
	}
	c.Status = CountStatusInProgress
	return nil
}

func (c *CycleCount) Cancel(at time.Time) error {
	if c.Status.IsTerminal() {
		return c.transitionError("cancel")
	}
	c.Status = CountStatusCancelled
	c.CompletedAt = &at
	return nil
}

// CycleCountItem is one counted product/sub-location line. ExpectedQty is
// frozen when the count is created.
type CycleCountItem struct {
	ID                 string
	CountID            string
	ProductID          string
	LocationID         string
	SublocationID      string
	LotID              string
	ExpectedQty        int
	CountedQty         *int
	Variance           *int
	VariancePercent    *decimal.Decimal
	AdjustmentApproved bool
	CountedBy          string
	CountedAt          *time.Time
	Version            int
}

func (i CycleCountItem) Key() InventoryKey {
	return InventoryKey{
		ProductID:     i.ProductID,
		LocationID:    i.LocationID,
		SublocationID: i.SublocationID,
		LotID:         i.LotID,
	}
}

var hundred = decimal.NewFromInt(100)

// VariancePercent is variance/expected as a percentage rounded to two
// places; 100 when nothing was expected but something was found.
func VariancePercent(expected, counted int) decimal.Decimal {
	variance := counted - expected
	if expected == 0 {
		if counted > 0 {
			return hundred
		}
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(variance)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(expected))).
		Round(2)
}

// Record stores a count and recomputes the variance fields from it.
func (i *CycleCountItem) Record(counted int, counterID string, at time.Time) error {
	if counted < 0 {
		return invalid("counted_qty", "must not be negative")
	}
	variance := counted - i.ExpectedQty
	pct := VariancePercent(i.ExpectedQty, counted)
	i.CountedQty = &counted
	i.Variance = &variance
	i.VariancePercent = &pct
	i.AdjustmentApproved = false
	i.CountedBy = counterID
	i.CountedAt = &at
	return nil
}

// Reset clears everything recorded so the line can be recounted.
func (i *CycleCountItem) Reset() {
	i.CountedQty = nil
	i.Variance = nil
	i.VariancePercent = nil
	i.AdjustmentApproved = false
	i.CountedBy = ""
	i.CountedAt = nil
}

// NeedsAdjustment reports whether approval should post a ledger delta.
func (i CycleCountItem) NeedsAdjustment() bool {
	return i.Variance != nil && *i.Variance != 0
}

// ExpectedHidden reports whether counters must not see expected quantities yet.
func (c CycleCount) ExpectedHidden() bool {
	return c.Blind && (c.Status == CountStatusPending || c.Status == CountStatusInProgress)
}

// VisibleExpected hides the frozen expectation from counters on blind counts.
func (i CycleCountItem) VisibleExpected(c CycleCount) int {
	if c.ExpectedHidden() {
		return 0
	}
	return i.ExpectedQty
}

// CountLine requests one line of a new count.
type CountLine struct {
	ProductID     string
	SublocationID string
	LotID         string
}

type CountRequest struct {
	LocationID string
	Blind      bool
	Notes      string
	Lines      []CountLine
	ActorID    string
}

func (r CountRequest) Validate() error {
	if r.LocationID == "" {
		return invalid("location_id", "required")
	}
	if len(r.Lines) == 0 {
		return invalid("lines", "at least one line is required")
	}
	for _, l := range r.Lines {
		if l.ProductID == "" {
			return invalid("lines.product_id", "required")
		}
	}
	return nil
}
