package domain

import (
	"fmt"
	"time"
)

type TaskType string

const (
	TaskTypeInspection TaskType = "inspection"
	TaskTypePutaway    TaskType = "putaway"
	TaskTypePick       TaskType = "pick"
)

// Prefix is the task-number prefix for the type.
func (t TaskType) Prefix() string {
	switch t {
	case TaskTypeInspection:
		return "INS"
	case TaskTypePutaway:
		return "PUT"
	case TaskTypePick:
		return "PCK"
	}
	return ""
}

func (t TaskType) Valid() bool { return t.Prefix() != "" }

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

type OrderKind string

const (
	OrderKindInbound  OrderKind = "inbound"
	OrderKindOutbound OrderKind = "outbound"
)

// Metadata keys written by the engine.
const (
	MetaInspectionTaskID = "inspection_task_id"
	MetaPutawayReason    = "putaway_reason"
	MetaFailureReason    = "failure_reason"
	MetaInspectionResult = "inspection_result"
)

// Task is a warehouse unit of work. Tasks are never deleted; cancelled and
// failed are terminal statuses.
type Task struct {
	ID                       string
	TaskNumber               string
	Type                     TaskType
	Status                   TaskStatus
	Priority                 int
	ClientID                 string
	ProductID                string
	OrderID                  string
	OrderKind                OrderKind
	SourceLocationID         string
	SourceSublocationID      string
	DestinationLocationID    string
	DestinationSublocationID string
	ContainerID              string // LPN
	LotID                    string
	QtyRequested             int
	QtyCompleted             int
	Metadata                 map[string]string
	Notes                    string
	AssignedTo               string
	AssignedAt               *time.Time
	StartedAt                *time.Time
	CompletedBy              string
	CompletedAt              *time.Time
	Version                  int // optimistic locking
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// TaskSpec is the caller-supplied shape of a new task.
type TaskSpec struct {
	Type                     TaskType
	Priority                 int
	ClientID                 string
	ProductID                string
	OrderID                  string
	OrderKind                OrderKind
	SourceLocationID         string
	SourceSublocationID      string
	DestinationLocationID    string
	DestinationSublocationID string
	ContainerID              string
	LotID                    string
	QtyRequested             int
	Metadata                 map[string]string
	Notes                    string
}

func (s TaskSpec) Validate() error {
	if !s.Type.Valid() {
		return invalid("type", fmt.Sprintf("unknown task type %q", s.Type))
	}
	if s.QtyRequested < 0 {
		return invalid("qty_requested", "must not be negative")
	}
	if s.OrderKind != "" && s.OrderKind != OrderKindInbound && s.OrderKind != OrderKindOutbound {
		return invalid("order_kind", fmt.Sprintf("unknown order kind %q", s.OrderKind))
	}
	return nil
}

// TaskFilter narrows ListPending queries. Zero values match everything;
// Statuses defaults to the non-terminal set.
type TaskFilter struct {
	Type       TaskType
	Statuses   []TaskStatus
	LocationID string
	AssignedTo string
	ClientID   string
	Limit      int
}

// Matches reports whether the task satisfies the filter.
func (f TaskFilter) Matches(t Task) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.LocationID != "" && t.SourceLocationID != f.LocationID && t.DestinationLocationID != f.LocationID {
		return false
	}
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	if f.ClientID != "" && t.ClientID != f.ClientID {
		return false
	}
	if len(f.Statuses) == 0 {
		return !t.Status.IsTerminal()
	}
	for _, s := range f.Statuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

func (t *Task) transitionError(op string) error {
	return &TransitionError{Entity: "task", ID: t.ID, From: string(t.Status), Op: op}
}

// Assign sets the assignee. Re-assignment of a non-terminal task is allowed.
func (t *Task) Assign(assignee string, at time.Time) error {
	if t.Status.IsTerminal() {
		return t.transitionError("assign")
	}
	if assignee == "" {
		return invalid("assignee", "required")
	}
	t.AssignedTo = assignee
	t.AssignedAt = &at
	if t.Status == TaskStatusPending {
		t.Status = TaskStatusAssigned
	}
	return nil
}

// Start moves the task to in_progress. Starting an in-progress task keeps the
// original start time.
func (t *Task) Start(at time.Time) error {
	if t.Status.IsTerminal() {
		return t.transitionError("start")
	}
	t.Status = TaskStatusInProgress
	if t.StartedAt == nil {
		t.StartedAt = &at
	}
	return nil
}

// Complete moves a non-terminal task to completed and freezes its quantities.
func (t *Task) Complete(qty int, notes, actorID string, at time.Time) error {
	if t.Status.IsTerminal() {
		return t.transitionError("complete")
	}
	if qty < 0 {
		return invalid("qty_completed", "must not be negative")
	}
	if qty > t.QtyRequested {
		return invalid("qty_completed", fmt.Sprintf("%d exceeds requested %d", qty, t.QtyRequested))
	}
	t.finish(TaskStatusCompleted, actorID, at)
	t.QtyCompleted = qty
	if notes != "" {
		t.Notes = notes
	}
	return nil
}

func (t *Task) Fail(reason, actorID string, at time.Time) error {
	if t.Status.IsTerminal() {
		return t.transitionError("fail")
	}
	if reason == "" {
		return invalid("reason", "required")
	}
	t.finish(TaskStatusFailed, actorID, at)
	if t.Metadata == nil {
		t.Metadata = map[string]string{}
	}
	t.Metadata[MetaFailureReason] = reason
	return nil
}

func (t *Task) Cancel(actorID string, at time.Time) error {
	if t.Status.IsTerminal() {
		return t.transitionError("cancel")
	}
	t.finish(TaskStatusCancelled, actorID, at)
	return nil
}

func (t *Task) finish(status TaskStatus, actorID string, at time.Time) {
	if t.StartedAt == nil && status != TaskStatusCancelled {
		t.StartedAt = &at
	}
	t.Status = status
	t.CompletedBy = actorID
	t.CompletedAt = &at
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t Task) Clone() Task {
	if t.Metadata != nil {
		m := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			m[k] = v
		}
		t.Metadata = m
	}
	t.AssignedAt = cloneTime(t.AssignedAt)
	t.StartedAt = cloneTime(t.StartedAt)
	t.CompletedAt = cloneTime(t.CompletedAt)
	return t
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
