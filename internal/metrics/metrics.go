package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors on a private registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	tasksCreated    *prometheus.CounterVec
	taskTransitions *prometheus.CounterVec
	pickUnits       *prometheus.CounterVec
	adjustments     *prometheus.CounterVec
	sideEffectFails *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasksCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wms_tasks_created_total",
				Help: "Warehouse tasks created",
			},
			[]string{"type"},
		),
		taskTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wms_task_transitions_total",
				Help: "Task state transitions by resulting status",
			},
			[]string{"type", "status"},
		),
		pickUnits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wms_pick_units_total",
				Help: "Units allocated, picked, short or unallocated on pick lists",
			},
			[]string{"kind"},
		),
		adjustments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wms_cycle_count_adjustments_total",
				Help: "Cycle-count ledger adjustments by outcome",
			},
			[]string{"outcome"},
		),
		sideEffectFails: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wms_side_effect_failures_total",
				Help: "Swallowed side-effect failures",
			},
			[]string{"effect"},
		),
	}
	m.registry.MustRegister(m.tasksCreated, m.taskTransitions, m.pickUnits, m.adjustments, m.sideEffectFails)
	return m
}

func (m *Metrics) TaskCreated(taskType string) {
	if m == nil {
		return
	}
	m.tasksCreated.WithLabelValues(taskType).Inc()
}

func (m *Metrics) TaskTransition(taskType, status string) {
	if m == nil {
		return
	}
	m.taskTransitions.WithLabelValues(taskType, status).Inc()
}

// PickUnits adds qty units under kind: allocated, shortfall, picked, short.
func (m *Metrics) PickUnits(kind string, qty int) {
	if m == nil || qty <= 0 {
		return
	}
	m.pickUnits.WithLabelValues(kind).Add(float64(qty))
}

func (m *Metrics) Adjustment(outcome string) {
	if m == nil {
		return
	}
	m.adjustments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SideEffectFailed(effect string) {
	if m == nil {
		return
	}
	m.sideEffectFails.WithLabelValues(effect).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
