package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/wms-engine/internal/adapter/storage"
	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/port"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type testEnv struct {
	mem      *storage.MemoryAdapter
	engine   *Engine
	notifier *recordingNotifier
}

// newTestEnv builds an engine over the memory adapter. mutate may replace
// dependencies before the engine is wired.
func newTestEnv(mutate func(*Dependencies)) *testEnv {
	mem := storage.NewMemoryAdapter()
	notifier := &recordingNotifier{}
	deps := Dependencies{
		Tasks:           mem,
		Sequences:       mem,
		Picks:           mem,
		Ledger:          mem,
		Locations:       mem,
		Inspections:     mem,
		Counts:          mem,
		Catalog:         mem,
		Demand:          mem,
		Damage:          mem,
		Notifier:        notifier,
		PerishableTypes: []string{"food", "pharma"},
		PriorityBoost:   5,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testEnv{
		mem:      mem,
		engine:   NewEngine(deps, WithClock(fixedClock)),
		notifier: notifier,
	}
}

// Mock Notifier
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []domain.Alert
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, alert domain.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *recordingNotifier) kinds() []domain.AlertKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.AlertKind, len(n.alerts))
	for i, a := range n.alerts {
		out[i] = a.Kind
	}
	return out
}

var errCollaboratorDown = errors.New("collaborator unavailable")

// Mock DamageReporter
type failingDamage struct{}

func (failingDamage) ReportDamage(ctx context.Context, orderID, productID string, qty int, cause, notes string) (*domain.DamageReport, error) {
	return nil, errCollaboratorDown
}

// Mock WorkflowProfiles
type staticProfiles map[string][]domain.Criterion

func (p staticProfiles) InspectionCriteria(ctx context.Context, clientID string) ([]domain.Criterion, error) {
	return p[clientID], nil
}

// flakyLedger wraps a ledger and fails SetStatus on demand.
type flakyLedger struct {
	port.InventoryLedger
	failSetStatus bool
}

func (l *flakyLedger) SetStatus(ctx context.Context, change domain.StatusChange) (int, error) {
	if l.failSetStatus {
		return 0, errCollaboratorDown
	}
	return l.InventoryLedger.SetStatus(ctx, change)
}

// conflictingTasks wraps a task repository and rejects the next failures
// updates with a version conflict.
type conflictingTasks struct {
	port.TaskRepository
	failures atomic.Int32
}

func (r *conflictingTasks) UpdateTask(ctx context.Context, task domain.Task) error {
	if r.failures.Add(-1) >= 0 {
		return storage.ErrOptimisticLock
	}
	return r.TaskRepository.UpdateTask(ctx, task)
}

// slowLedger wraps a ledger and pauses before every delta so concurrent
// callers overlap.
type slowLedger struct {
	port.InventoryLedger
	delay time.Duration
}

func (l *slowLedger) ApplyDelta(ctx context.Context, delta domain.InventoryDelta) error {
	time.Sleep(l.delay)
	return l.InventoryLedger.ApplyDelta(ctx, delta)
}

func intp(v int) *int { return &v }

func defaultAnswers(passed bool) []domain.CriterionAnswer {
	var out []domain.CriterionAnswer
	for _, c := range domain.DefaultInspectionCriteria() {
		out = append(out, domain.CriterionAnswer{Code: c.Code, Passed: passed})
	}
	return out
}
