package domain

import (
	"errors"
	"testing"
	"time"
)

var at = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestTaskTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TaskStatus
		op      func(*Task) error
		wantErr error
		want    TaskStatus
	}{
		{"assign pending", TaskStatusPending, func(t *Task) error { return t.Assign("w1", at) }, nil, TaskStatusAssigned},
		{"reassign in progress", TaskStatusInProgress, func(t *Task) error { return t.Assign("w2", at) }, nil, TaskStatusInProgress},
		{"start pending", TaskStatusPending, func(t *Task) error { return t.Start(at) }, nil, TaskStatusInProgress},
		{"start assigned", TaskStatusAssigned, func(t *Task) error { return t.Start(at) }, nil, TaskStatusInProgress},
		{"complete pending", TaskStatusPending, func(t *Task) error { return t.Complete(1, "", "w1", at) }, nil, TaskStatusCompleted},
		{"fail in progress", TaskStatusInProgress, func(t *Task) error { return t.Fail("broken", "w1", at) }, nil, TaskStatusFailed},
		{"cancel assigned", TaskStatusAssigned, func(t *Task) error { return t.Cancel("w1", at) }, nil, TaskStatusCancelled},
		{"assign completed", TaskStatusCompleted, func(t *Task) error { return t.Assign("w1", at) }, ErrInvalidStateTransition, TaskStatusCompleted},
		{"start failed", TaskStatusFailed, func(t *Task) error { return t.Start(at) }, ErrInvalidStateTransition, TaskStatusFailed},
		{"complete cancelled", TaskStatusCancelled, func(t *Task) error { return t.Complete(1, "", "w1", at) }, ErrInvalidStateTransition, TaskStatusCancelled},
		{"cancel completed", TaskStatusCompleted, func(t *Task) error { return t.Cancel("w1", at) }, ErrInvalidStateTransition, TaskStatusCompleted},
		{"assign nobody", TaskStatusPending, func(t *Task) error { return t.Assign("", at) }, ErrValidation, TaskStatusPending},
		{"complete over requested", TaskStatusPending, func(t *Task) error { return t.Complete(9, "", "w1", at) }, ErrValidation, TaskStatusPending},
		{"fail without reason", TaskStatusPending, func(t *Task) error { return t.Fail("", "w1", at) }, ErrValidation, TaskStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{ID: "t1", Status: tt.from, QtyRequested: 5}
			err := tt.op(task)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if task.Status != tt.want {
				t.Errorf("expected status %s, got %s", tt.want, task.Status)
			}
		})
	}
}

func TestTaskStart_KeepsFirstStart(t *testing.T) {
	task := &Task{Status: TaskStatusPending}
	task.Start(at)
	task.Start(at.Add(time.Hour))
	if !task.StartedAt.Equal(at) {
		t.Errorf("expected original start time, got %v", task.StartedAt)
	}
}

func TestTaskCancel_LeavesStartEmpty(t *testing.T) {
	task := &Task{Status: TaskStatusPending}
	task.Cancel("w1", at)
	if task.StartedAt != nil {
		t.Error("expected cancelled pending task to have no start time")
	}
	if task.CompletedAt == nil || task.CompletedBy != "w1" {
		t.Error("expected terminal stamp on cancel")
	}
}

func TestTaskClone_Isolated(t *testing.T) {
	task := Task{Metadata: map[string]string{"k": "v"}, StartedAt: &at}
	clone := task.Clone()
	clone.Metadata["k"] = "changed"
	*clone.StartedAt = at.Add(time.Hour)

	if task.Metadata["k"] != "v" {
		t.Error("clone shares metadata")
	}
	if !task.StartedAt.Equal(at) {
		t.Error("clone shares timestamps")
	}
}

func TestTaskTypePrefix(t *testing.T) {
	for typ, want := range map[TaskType]string{
		TaskTypeInspection: "INS",
		TaskTypePutaway:    "PUT",
		TaskTypePick:       "PCK",
		"bogus":            "",
	} {
		if got := typ.Prefix(); got != want {
			t.Errorf("%s: expected %q, got %q", typ, want, got)
		}
	}
}

func TestTaskFilterMatches(t *testing.T) {
	task := Task{Type: TaskTypePick, Status: TaskStatusAssigned, SourceLocationID: "wh1", AssignedTo: "w1", ClientID: "acme"}

	tests := []struct {
		name   string
		filter TaskFilter
		want   bool
	}{
		{"empty matches open", TaskFilter{}, true},
		{"type", TaskFilter{Type: TaskTypePutaway}, false},
		{"location", TaskFilter{LocationID: "wh1"}, true},
		{"other location", TaskFilter{LocationID: "wh2"}, false},
		{"assignee", TaskFilter{AssignedTo: "w2"}, false},
		{"client", TaskFilter{ClientID: "acme"}, true},
		{"explicit status", TaskFilter{Statuses: []TaskStatus{TaskStatusCompleted}}, false},
	}
	for _, tt := range tests {
		if got := tt.filter.Matches(task); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}

	done := Task{Status: TaskStatusCompleted}
	if (TaskFilter{}).Matches(done) {
		t.Error("expected default filter to exclude terminal tasks")
	}
}
