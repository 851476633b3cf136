package port

import (
	"context"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

// Collaborators owned by the surrounding application. Failures from these
// are logged by the engine and never roll back the triggering operation.

type DamageReporter interface {
	ReportDamage(ctx context.Context, orderID, productID string, qty int, cause, notes string) (*domain.DamageReport, error)
}

type WorkflowProfiles interface {
	// InspectionCriteria returns the client's configured criteria, or an
	// empty slice when the client has no profile
	InspectionCriteria(ctx context.Context, clientID string) ([]domain.Criterion, error)
}

type DemandTracker interface {
	// AddFulfilled increments the fulfilled-so-far counter of an outbound order line
	AddFulfilled(ctx context.Context, demandLineID string, qty int) error
}

type Notifier interface {
	Notify(ctx context.Context, alert domain.Alert) error
}
