package services

import (
	"context"
	"fmt"

	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/persistence"
)

// Queries exposes read-only projections over approval instances for the
// presentation layer. It never mutates state.
type Queries struct {
	persistence persistence.Persistence
}

// NewQueries creates a new query service.
func NewQueries(store persistence.Persistence) *Queries {
	return &Queries{persistence: store}
}

// PendingForRole returns pending instances whose current step awaits the
// role, oldest first so nobody's request starves at the back of the queue.
func (q *Queries) PendingForRole(ctx context.Context, role models.Role) ([]*models.Instance, error) {
	if !role.Valid() {
		return nil, NewValidationError(
			"PendingForRole",
			"INVALID_ROLE",
			fmt.Sprintf("unknown role %q", role),
			ErrInvalidRole,
		)
	}

	return q.persistence.InstanceRepository().ListPendingByRole(ctx, role)
}

// InstancesForEntity returns every instance spawned for the entity, newest
// first. Several can coexist because each matching definition spawns its
// own.
func (q *Queries) InstancesForEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]*models.Instance, error) {
	if !entityType.Valid() {
		return nil, NewValidationError(
			"InstancesForEntity",
			"INVALID_ENTITY_TYPE",
			fmt.Sprintf("unknown entity type %q", entityType),
			ErrInvalidEntityType,
		)
	}

	return q.persistence.InstanceRepository().ListByEntity(ctx, entityType, entityID)
}

// InstanceByID returns a single instance.
func (q *Queries) InstanceByID(ctx context.Context, id string) (*models.Instance, error) {
	return q.persistence.InstanceRepository().GetByID(ctx, id)
}
