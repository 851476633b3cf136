package service

import "github.com/rl1809/wms-engine/internal/port"

// Dependencies lists every port the engine needs. Collaborators
// (Damage, Profiles, Demand, Notifier, Catalog) may be nil.
type Dependencies struct {
	Tasks       port.TaskRepository
	Sequences   port.SequenceGenerator
	Picks       port.PickListRepository
	Ledger      port.InventoryLedger
	Locations   port.LocationRepository
	Inspections port.InspectionRepository
	Counts      port.CycleCountRepository
	Catalog     port.ProductCatalog
	Demand      port.DemandTracker
	Damage      port.DamageReporter
	Profiles    port.WorkflowProfiles
	Notifier    port.Notifier

	PerishableTypes []string
	PriorityBoost   int
}

// Engine bundles the services sharing one TaskService.
type Engine struct {
	Tasks       *TaskService
	Allocation  *AllocationService
	Putaway     *PutawayService
	Inspections *InspectionService
	Counts      *CycleCountService
}

func NewEngine(deps Dependencies, opts ...Option) *Engine {
	tasks := NewTaskService(deps.Tasks, deps.Sequences, deps.Notifier, opts...)
	putaway := NewPutawayService(tasks, deps.Locations, deps.Catalog, deps.Ledger, deps.PerishableTypes, deps.PriorityBoost, opts...)
	return &Engine{
		Tasks:       tasks,
		Allocation:  NewAllocationService(tasks, deps.Picks, deps.Ledger, deps.Demand, opts...),
		Putaway:     putaway,
		Inspections: NewInspectionService(tasks, putaway, deps.Inspections, deps.Ledger, deps.Damage, deps.Profiles, opts...),
		Counts:      NewCycleCountService(deps.Counts, deps.Ledger, deps.Sequences, opts...),
	}
}
