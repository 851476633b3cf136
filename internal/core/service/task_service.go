package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/port"
)

// CompleteInput carries the optional completion details. A nil QtyCompleted
// completes the full requested quantity.
type CompleteInput struct {
	QtyCompleted *int
	Notes        string
}

// TaskService drives the task state machine for every task type and is the
// entry point request handlers call.
type TaskService struct {
	base
	tasks    port.TaskRepository
	seq      port.SequenceGenerator
	notifier port.Notifier
}

func NewTaskService(tasks port.TaskRepository, seq port.SequenceGenerator, notifier port.Notifier, opts ...Option) *TaskService {
	return &TaskService{
		base:     newBase(opts),
		tasks:    tasks,
		seq:      seq,
		notifier: notifier,
	}
}

func (s *TaskService) Create(ctx context.Context, spec domain.TaskSpec) (*domain.Task, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	number, err := s.nextTaskNumber(ctx, spec.Type)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := domain.Task{
		ID:                       uuid.NewString(),
		TaskNumber:               number,
		Type:                     spec.Type,
		Status:                   domain.TaskStatusPending,
		Priority:                 spec.Priority,
		ClientID:                 spec.ClientID,
		ProductID:                spec.ProductID,
		OrderID:                  spec.OrderID,
		OrderKind:                spec.OrderKind,
		SourceLocationID:         spec.SourceLocationID,
		SourceSublocationID:      spec.SourceSublocationID,
		DestinationLocationID:    spec.DestinationLocationID,
		DestinationSublocationID: spec.DestinationSublocationID,
		ContainerID:              spec.ContainerID,
		LotID:                    spec.LotID,
		QtyRequested:             spec.QtyRequested,
		Metadata:                 copyMetadata(spec.Metadata),
		Notes:                    spec.Notes,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.metrics.TaskCreated(string(task.Type))

	s.notify(ctx, domain.Alert{
		Kind:       domain.AlertTaskCreated,
		TaskID:     task.ID,
		TaskNumber: task.TaskNumber,
		TaskType:   task.Type,
		Priority:   task.Priority,
		Message:    fmt.Sprintf("%s task %s created", task.Type, task.TaskNumber),
		At:         now,
	})

	return &task, nil
}

// nextTaskNumber formats PREFIX-YEAR-00001 from a single atomic counter per
// prefix and year.
func (s *TaskService) nextTaskNumber(ctx context.Context, t domain.TaskType) (string, error) {
	year := s.now().Year()
	key := fmt.Sprintf("task:%s:%d", t.Prefix(), year)
	n, err := s.seq.NextSequence(ctx, key)
	if err != nil {
		return "", fmt.Errorf("task number sequence: %w", err)
	}
	return fmt.Sprintf("%s-%d-%05d", t.Prefix(), year, n), nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, domain.NotFoundError("task", id)
	}
	return task, nil
}

func (s *TaskService) Assign(ctx context.Context, id, assignee string) (*domain.Task, error) {
	return s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Assign(assignee, s.now())
	})
}

func (s *TaskService) Start(ctx context.Context, id string) (*domain.Task, error) {
	return s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Start(s.now())
	})
}

// Complete finishes a task on behalf of actorID. Inspection tasks finish
// through InspectionService.Submit so a result always exists.
func (s *TaskService) Complete(ctx context.Context, id string, in CompleteInput, actorID string) (*domain.Task, error) {
	return s.mutate(ctx, id, func(t *domain.Task) error {
		if t.Type == domain.TaskTypeInspection && !t.Status.IsTerminal() {
			return &domain.ValidationError{Field: "type", Reason: "inspection tasks complete by submitting a result"}
		}
		qty := t.QtyRequested
		if in.QtyCompleted != nil {
			qty = *in.QtyCompleted
		}
		return t.Complete(qty, in.Notes, actorID, s.now())
	})
}

func (s *TaskService) Fail(ctx context.Context, id, reason, actorID string) (*domain.Task, error) {
	task, err := s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Fail(reason, actorID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, domain.Alert{
		Kind:       domain.AlertTaskFailed,
		TaskID:     task.ID,
		TaskNumber: task.TaskNumber,
		TaskType:   task.Type,
		Priority:   task.Priority,
		Message:    fmt.Sprintf("%s task %s failed: %s", task.Type, task.TaskNumber, reason),
		At:         s.now(),
	})
	return task, nil
}

func (s *TaskService) Cancel(ctx context.Context, id, actorID string) (*domain.Task, error) {
	return s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Cancel(actorID, s.now())
	})
}

// ListPending returns open tasks by default; set filter.Statuses to query others.
func (s *TaskService) ListPending(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	tasks, err := s.tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// finish completes a task from inside the engine (pick auto-completion,
// inspection, putaway confirmation) bypassing the inspection guard.
func (s *TaskService) finish(ctx context.Context, id string, qty int, notes, actorID string) (*domain.Task, error) {
	return s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Complete(qty, notes, actorID, s.now())
	})
}

// mutate loads a task, applies fn to a copy and writes it back under the
// version check. The stored task is untouched if fn or the write fails.
func (s *TaskService) mutate(ctx context.Context, id string, fn func(*domain.Task) error) (*domain.Task, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.mutateFrom(ctx, *current, fn)
}

// mutateFrom is mutate against a snapshot the caller already loaded; the
// write fails with ErrConcurrentUpdate if the task changed since.
func (s *TaskService) mutateFrom(ctx context.Context, current domain.Task, fn func(*domain.Task) error) (*domain.Task, error) {
	next := current.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()

	if err := s.tasks.UpdateTask(ctx, next); err != nil {
		return nil, fmt.Errorf("update task %s: %w", current.ID, err)
	}
	next.Version++

	if next.Status != current.Status {
		s.metrics.TaskTransition(string(next.Type), string(next.Status))
	}
	return &next, nil
}

// restore writes original back over claimed, undoing a claim whose follow-up
// work failed. The write is version-checked against claimed.
func (s *TaskService) restore(ctx context.Context, original domain.Task, claimed *domain.Task) {
	back := original.Clone()
	back.Version = claimed.Version
	back.UpdatedAt = s.now()
	if err := s.tasks.UpdateTask(ctx, back); err != nil {
		s.metrics.SideEffectFailed("task_restore")
		s.logger.Printf("task %s: restore to %s failed: %v", original.ID, original.Status, err)
		return
	}
	s.metrics.TaskTransition(string(back.Type), string(back.Status))
}

func (s *TaskService) notify(ctx context.Context, alert domain.Alert) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.metrics.SideEffectFailed("notify")
		s.logger.Printf("notify %s for task %s failed: %v", alert.Kind, alert.TaskID, err)
	}
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
