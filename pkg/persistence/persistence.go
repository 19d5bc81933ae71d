// Package persistence provides the data storage abstraction for approval
// workflow definitions and instances.
package persistence

import (
	"context"

	"github.com/assenthq/assent/pkg/models"
)

// Persistence is the storage entry point. Implementations exist for the file
// system (development, tests) and PostgreSQL.
type Persistence interface {
	DefinitionRepository() DefinitionRepository
	InstanceRepository() InstanceRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// DefinitionRepository stores workflow definitions.
//
// Delete removes the definition unconditionally: in-flight instances keep
// their definition id as a weak reference and are reported, not removed, by
// the orphan sweep.
type DefinitionRepository interface {
	List(ctx context.Context) ([]*models.Definition, error)
	GetByID(ctx context.Context, id string) (*models.Definition, error)
	Save(ctx context.Context, definition *models.Definition) error
	Delete(ctx context.Context, id string) error
}

// InstanceRepository stores approval instances. Instances are append-and-
// update only; no delete exists because resolved instances are the audit
// trail.
type InstanceRepository interface {
	GetByID(ctx context.Context, id string) (*models.Instance, error)
	Save(ctx context.Context, instance *models.Instance) error

	// ListPendingByRole returns pending instances whose current step awaits
	// the given role, oldest first.
	ListPendingByRole(ctx context.Context, role models.Role) ([]*models.Instance, error)

	// ListByEntity returns every instance spawned for the entity, newest
	// first.
	ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]*models.Instance, error)

	// ListPending returns every pending instance, oldest first.
	ListPending(ctx context.Context) ([]*models.Instance, error)
}
