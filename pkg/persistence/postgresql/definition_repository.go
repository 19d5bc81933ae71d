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

// DefinitionRepository handles workflow definition database operations.
type DefinitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDefinitionRepository creates a new definition repository.
func NewDefinitionRepository(db *sql.DB, logger *slog.Logger) *DefinitionRepository {
	return &DefinitionRepository{db: db, logger: logger}
}

// List returns all workflow definitions.
func (r *DefinitionRepository) List(ctx context.Context) ([]*models.Definition, error) {
	query := `
		SELECT
			id
		  , name
		  , entity_type
		  , condition
		  , steps
		  , created_at
		  , updated_at
		FROM workflow_definitions
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	definitions := make([]*models.Definition, 0)

	for rows.Next() {
		definition, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}

		definitions = append(definitions, definition)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating definitions: %w", err)
	}

	return definitions, nil
}

// GetByID returns the definition with the given id.
func (r *DefinitionRepository) GetByID(ctx context.Context, id string) (*models.Definition, error) {
	query := `
		SELECT
			id
		  , name
		  , entity_type
		  , condition
		  , steps
		  , created_at
		  , updated_at
		FROM workflow_definitions
		WHERE id = $1
	`

	definition, err := scanDefinition(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDefinitionError("GetByID", id, persistence.ErrDefinitionNotFound)
		}

		return nil, persistence.NewDefinitionError("GetByID", id, err)
	}

	return definition, nil
}

// Save upserts the definition by id.
func (r *DefinitionRepository) Save(ctx context.Context, definition *models.Definition) error {
	conditionJSON, err := json.Marshal(definition.Condition)
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	stepsJSON, err := json.Marshal(definition.Steps)
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	query := `
		INSERT INTO workflow_definitions (id, name, entity_type, condition, steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			entity_type = EXCLUDED.entity_type,
			condition = EXCLUDED.condition,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		definition.ID,
		definition.Name,
		string(definition.EntityType),
		conditionJSON,
		stepsJSON,
		definition.CreatedAt,
		definition.UpdatedAt,
	)
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	return nil
}

// Delete removes the definition unconditionally. Instances referencing it
// stay in place.
func (r *DefinitionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflow_definitions WHERE id = $1", id)
	if err != nil {
		return persistence.NewDefinitionError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewDefinitionError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewDefinitionError("Delete", id, persistence.ErrDefinitionNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*models.Definition, error) {
	var (
		definition    models.Definition
		conditionJSON []byte
		stepsJSON     []byte
	)

	err := row.Scan(
		&definition.ID,
		&definition.Name,
		&definition.EntityType,
		&conditionJSON,
		&stepsJSON,
		&definition.CreatedAt,
		&definition.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(conditionJSON, &definition.Condition); err != nil {
		return nil, fmt.Errorf("failed to unmarshal condition: %w", err)
	}

	if err := json.Unmarshal(stepsJSON, &definition.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	return &definition, nil
}
