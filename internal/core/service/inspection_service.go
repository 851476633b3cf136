package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/port"
)

// InspectionSubmission is what an inspector sends for an inspection task.
type InspectionSubmission struct {
	Answers     []domain.CriterionAnswer
	Overall     domain.InspectionOutcome
	InspectorID string
	Notes       string
}

// InspectionReport reports what Submit did beyond completing the task.
type InspectionReport struct {
	Task        *domain.Task
	Result      domain.InspectionResult
	Released    int
	PutawayTask *domain.Task
	Damage      *domain.DamageReport
}

// InspectionService records inspection results and drives the pass/fail
// branches.
type InspectionService struct {
	base
	tasks    *TaskService
	putaway  *PutawayService
	results  port.InspectionRepository
	ledger   port.InventoryLedger
	damage   port.DamageReporter
	profiles port.WorkflowProfiles
}

func NewInspectionService(tasks *TaskService, putaway *PutawayService, results port.InspectionRepository,
	ledger port.InventoryLedger, damage port.DamageReporter, profiles port.WorkflowProfiles, opts ...Option) *InspectionService {

	return &InspectionService{
		base:     newBase(opts),
		tasks:    tasks,
		putaway:  putaway,
		results:  results,
		ledger:   ledger,
		damage:   damage,
		profiles: profiles,
	}
}

// InspectionCriteria returns the client's profile criteria, falling back
// to the default set when none are configured or the lookup fails.
func (s *InspectionService) InspectionCriteria(ctx context.Context, clientID string) []domain.Criterion {
	if s.profiles != nil && clientID != "" {
		criteria, err := s.profiles.InspectionCriteria(ctx, clientID)
		if err != nil {
			s.logger.Printf("inspection criteria for client %s: lookup failed, using defaults: %v", clientID, err)
		} else if len(criteria) > 0 {
			return criteria
		}
	}
	return domain.DefaultInspectionCriteria()
}

// Submit persists the result, completes the inspection task for its full
// quantity and then runs the branch for the overall result. A result stored
// by an earlier attempt whose completion failed is resumed instead of
// re-recorded. Branch failures are logged and leave the completed
// inspection in place.
func (s *InspectionService) Submit(ctx context.Context, taskID string, sub InspectionSubmission) (*InspectionReport, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Type != domain.TaskTypeInspection {
		return nil, &domain.ValidationError{Field: "type", Reason: "not an inspection task"}
	}
	if task.Status.IsTerminal() {
		return nil, &domain.TransitionError{Entity: "task", ID: task.ID, From: string(task.Status), Op: "submit inspection"}
	}

	stored, err := s.results.GetInspectionResult(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("get inspection result for task %s: %w", task.ID, err)
	}

	var result domain.InspectionResult
	if stored != nil {
		result = *stored
		s.logger.Printf("inspection %s: resuming completion of result recorded at %s", task.ID, result.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	} else {
		result = domain.InspectionResult{
			ID:          uuid.NewString(),
			TaskID:      task.ID,
			Answers:     sub.Answers,
			Overall:     sub.Overall,
			InspectorID: sub.InspectorID,
			Notes:       sub.Notes,
			CreatedAt:   s.now(),
		}
		if err := result.Validate(s.InspectionCriteria(ctx, task.ClientID)); err != nil {
			return nil, err
		}
		if err := s.results.SaveInspectionResult(ctx, result); err != nil {
			return nil, fmt.Errorf("save inspection result for task %s: %w", task.ID, err)
		}
	}

	completed, err := s.complete(ctx, task.ID, result)
	if err != nil {
		return nil, err
	}

	out := &InspectionReport{Task: completed, Result: result}
	switch result.Overall {
	case domain.InspectionPass:
		s.onPass(ctx, completed, out)
	case domain.InspectionFail:
		s.onFail(ctx, completed, result, out)
	}
	return out, nil
}

// complete finishes the task for the recorded result, retrying when a
// concurrent update such as a reassignment wins the version check.
func (s *InspectionService) complete(ctx context.Context, taskID string, result domain.InspectionResult) (*domain.Task, error) {
	var err error
	for attempt := 0; attempt < maxCompleteAttempts; attempt++ {
		var completed *domain.Task
		completed, err = s.tasks.mutate(ctx, taskID, func(t *domain.Task) error {
			if t.Metadata == nil {
				t.Metadata = map[string]string{}
			}
			t.Metadata[domain.MetaInspectionResult] = string(result.Overall)
			return t.Complete(t.QtyRequested, summarize(result), result.InspectorID, s.now())
		})
		if err == nil {
			return completed, nil
		}
		if !errors.Is(err, domain.ErrConcurrentUpdate) {
			return nil, err
		}
	}
	return nil, err
}

func (s *InspectionService) onPass(ctx context.Context, task *domain.Task, out *InspectionReport) {
	released, err := s.ledger.SetStatus(ctx, domain.StatusChange{
		ProductID:     task.ProductID,
		LocationID:    task.SourceLocationID,
		From:          domain.InventoryStatusQuarantine,
		To:            domain.InventoryStatusAvailable,
		MaxQty:        task.QtyRequested,
		ReferenceType: domain.RefTask,
		ReferenceID:   task.ID,
		Notes:         fmt.Sprintf("released by inspection %s", task.TaskNumber),
	})
	if err != nil {
		s.metrics.SideEffectFailed("quarantine_release")
		s.logger.Printf("inspection %s: quarantine release failed: %v", task.ID, err)
	}
	out.Released = released

	putaway, err := s.putaway.CreatePutawayTask(ctx, PutawaySpec{
		ClientID:            task.ClientID,
		ProductID:           task.ProductID,
		OrderID:             task.OrderID,
		LocationID:          task.SourceLocationID,
		SourceSublocationID: task.SourceSublocationID,
		LotID:               task.LotID,
		ContainerID:         task.ContainerID,
		Qty:                 task.QtyRequested,
		Priority:            task.Priority,
		Metadata:            map[string]string{domain.MetaInspectionTaskID: task.ID},
		Notes:               fmt.Sprintf("putaway after inspection %s", task.TaskNumber),
	})
	if err != nil {
		s.metrics.SideEffectFailed("putaway_create")
		s.logger.Printf("inspection %s: putaway task creation failed: %v", task.ID, err)
		return
	}
	out.PutawayTask = putaway
}

func (s *InspectionService) onFail(ctx context.Context, task *domain.Task, result domain.InspectionResult, out *InspectionReport) {
	if s.damage == nil {
		return
	}
	report, err := s.damage.ReportDamage(ctx, task.OrderID, task.ProductID, task.QtyRequested,
		domain.DamageCauseInspectionFailed, result.Notes)
	if err != nil {
		s.metrics.SideEffectFailed("damage_report")
		s.logger.Printf("inspection %s: damage report failed: %v", task.ID, err)
		return
	}
	out.Damage = report
}

func (s *InspectionService) Result(ctx context.Context, taskID string) (*domain.InspectionResult, error) {
	r, err := s.results.GetInspectionResult(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get inspection result: %w", err)
	}
	if r == nil {
		return nil, domain.NotFoundError("inspection result", taskID)
	}
	return r, nil
}

func summarize(r domain.InspectionResult) string {
	failed := 0
	for _, a := range r.Answers {
		if !a.Passed {
			failed++
		}
	}
	summary := fmt.Sprintf("inspection %s: %d/%d criteria passed", r.Overall, len(r.Answers)-failed, len(r.Answers))
	if r.Notes != "" {
		summary += "; " + r.Notes
	}
	return summary
}
