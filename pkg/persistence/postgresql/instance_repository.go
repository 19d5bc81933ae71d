package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/persistence"
)

// InstanceRepository handles approval instance database operations.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewInstanceRepository creates a new instance repository.
func NewInstanceRepository(db *sql.DB, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

const instanceColumns = `
			id
		  , definition_id
		  , entity_type
		  , entity_id
		  , status
		  , current_step
		  , steps
		  , created_at
		  , updated_at
`

// GetByID returns the instance with the given id.
func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM approval_instances WHERE id = $1`

	instance, err := scanInstance(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("GetByID", id, err)
	}

	return instance, nil
}

// Save upserts the instance by id.
func (r *InstanceRepository) Save(ctx context.Context, instance *models.Instance) error {
	stepsJSON, err := json.Marshal(instance.Steps)
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	query := `
		INSERT INTO approval_instances (id, definition_id, entity_type, entity_id, status, current_step, steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_step = EXCLUDED.current_step,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		instance.ID,
		instance.DefinitionID,
		string(instance.EntityType),
		instance.EntityID,
		string(instance.Status),
		instance.CurrentStep,
		stepsJSON,
		instance.CreatedAt,
		instance.UpdatedAt,
	)
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	return nil
}

// ListPendingByRole returns pending instances whose current step awaits the
// role, oldest first.
func (r *InstanceRepository) ListPendingByRole(ctx context.Context, role models.Role) ([]*models.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM approval_instances
		WHERE status = 'pending'
		  AND (steps -> current_step) ->> 'role' = $1
		ORDER BY created_at ASC
	`

	return r.queryInstances(ctx, query, string(role))
}

// ListByEntity returns every instance for the entity, newest first.
func (r *InstanceRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]*models.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM approval_instances
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`

	return r.queryInstances(ctx, query, string(entityType), entityID)
}

// ListPending returns every pending instance, oldest first.
func (r *InstanceRepository) ListPending(ctx context.Context) ([]*models.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM approval_instances
		WHERE status = 'pending'
		ORDER BY created_at ASC
	`

	return r.queryInstances(ctx, query)
}

func (r *InstanceRepository) queryInstances(ctx context.Context, query string, args ...any) ([]*models.Instance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	instances := make([]*models.Instance, 0)

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		instances = append(instances, instance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}

func scanInstance(row rowScanner) (*models.Instance, error) {
	var (
		instance  models.Instance
		stepsJSON []byte
	)

	err := row.Scan(
		&instance.ID,
		&instance.DefinitionID,
		&instance.EntityType,
		&instance.EntityID,
		&instance.Status,
		&instance.CurrentStep,
		&stepsJSON,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stepsJSON, &instance.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step states: %w", err)
	}

	return &instance, nil
}
