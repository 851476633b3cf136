package port

import (
	"context"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

// Get methods return (nil, nil) when the record does not exist.
// Update methods compare Version and return domain.ErrConcurrentUpdate on
// mismatch; on success the stored version is incremented.

type TaskRepository interface {
	// CreateTask persists a new task
	CreateTask(ctx context.Context, task domain.Task) error

	// GetTask retrieves a task by ID
	GetTask(ctx context.Context, id string) (*domain.Task, error)

	// UpdateTask updates a task with version check for optimistic locking
	UpdateTask(ctx context.Context, task domain.Task) error

	// ListTasks returns tasks matching the filter, highest priority first then oldest
	ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
}

type PickListRepository interface {
	// CreatePickItems persists all allocation lines of a pick task
	CreatePickItems(ctx context.Context, items []domain.PickListItem) error

	GetPickItem(ctx context.Context, id string) (*domain.PickListItem, error)

	// UpdatePickItem updates an item with version check for optimistic locking
	UpdatePickItem(ctx context.Context, item domain.PickListItem) error

	// ListPickItems returns a task's items in sequence order
	ListPickItems(ctx context.Context, taskID string) ([]domain.PickListItem, error)
}

type InspectionRepository interface {
	// SaveInspectionResult stores the single result of a task; a second
	// result for the same task returns domain.ErrInvalidStateTransition
	SaveInspectionResult(ctx context.Context, result domain.InspectionResult) error

	GetInspectionResult(ctx context.Context, taskID string) (*domain.InspectionResult, error)
}

type CycleCountRepository interface {
	// CreateCount persists a count together with its items
	CreateCount(ctx context.Context, count domain.CycleCount, items []domain.CycleCountItem) error

	GetCount(ctx context.Context, id string) (*domain.CycleCount, error)

	UpdateCount(ctx context.Context, count domain.CycleCount) error

	GetCountItem(ctx context.Context, id string) (*domain.CycleCountItem, error)

	UpdateCountItem(ctx context.Context, item domain.CycleCountItem) error

	ListCountItems(ctx context.Context, countID string) ([]domain.CycleCountItem, error)
}

type LocationRepository interface {
	// ListSublocations returns every sub-location at a location in walk order
	// (zone, aisle, rack)
	ListSublocations(ctx context.Context, locationID string) ([]domain.Sublocation, error)

	// SublocationUsage sums on-hand quantity per sub-location
	SublocationUsage(ctx context.Context, sublocationIDs []string) (map[string]int, error)

	// ProductSublocations returns sub-locations at a location already holding the product
	ProductSublocations(ctx context.Context, productID, locationID string) ([]string, error)
}

type ProductCatalog interface {
	// ProductType returns the product classification, e.g. "food" or "pharma"
	ProductType(ctx context.Context, productID string) (string, error)
}
