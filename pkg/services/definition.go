package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/persistence"
)

// definitionSchema validates raw definition documents on import, before they
// are decoded into the model. Catching shape errors here keeps the decoder
// from silently zeroing misspelled fields.
const definitionSchema = `{
	"type": "object",
	"required": ["name", "entity_type", "condition", "steps"],
	"properties": {
		"name": {"type": "string", "minLength": 3},
		"entity_type": {"type": "string"},
		"condition": {
			"type": "object",
			"required": ["field", "operator", "threshold"],
			"properties": {
				"field": {"type": "string", "minLength": 1},
				"operator": {"type": "string"},
				"threshold": {"type": "number"}
			}
		},
		"steps": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["role"],
				"properties": {
					"role": {"type": "string"}
				}
			}
		}
	}
}`

// Definition manages workflow definition CRUD with field validation.
type Definition struct {
	persistence persistence.Persistence
	schema      *gojsonschema.Schema
}

// NewDefinition creates a new definition service.
func NewDefinition(store persistence.Persistence) (*Definition, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(definitionSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile definition schema: %w", err)
	}

	return &Definition{
		persistence: store,
		schema:      schema,
	}, nil
}

// HealthCheck checks the health of the persistence layer.
func (d *Definition) HealthCheck(ctx context.Context) (string, bool) {
	if d.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := d.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns all definitions.
func (d *Definition) List(ctx context.Context) ([]*models.Definition, error) {
	definitions, err := d.persistence.DefinitionRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}

	return definitions, nil
}

// FetchByID retrieves a definition by its ID.
func (d *Definition) FetchByID(ctx context.Context, id string) (*models.Definition, error) {
	definition, err := d.persistence.DefinitionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return definition, nil
}

// Create validates and stores a new definition.
func (d *Definition) Create(ctx context.Context, definition *models.Definition) (*models.Definition, error) {
	if definition == nil {
		return nil, ErrDefinitionNil
	}

	if err := d.validate(definition); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	definition.ID = uuid.New().String()
	definition.CreatedAt = now
	definition.UpdatedAt = now

	if err := d.persistence.DefinitionRepository().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to create definition: %w", err)
	}

	return definition, nil
}

// Update replaces an existing definition by id. In-flight instances spawned
// from the previous revision are not touched.
func (d *Definition) Update(ctx context.Context, id string, definition *models.Definition) (*models.Definition, error) {
	if definition == nil {
		return nil, ErrDefinitionNil
	}

	existing, err := d.persistence.DefinitionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := d.validate(definition); err != nil {
		return nil, err
	}

	definition.ID = id
	definition.CreatedAt = existing.CreatedAt
	definition.UpdatedAt = time.Now().UTC()

	if err := d.persistence.DefinitionRepository().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to update definition: %w", err)
	}

	return definition, nil
}

// Delete removes a definition unconditionally. Pending instances referencing
// it become orphans; the orphan sweep reports them.
func (d *Definition) Delete(ctx context.Context, id string) error {
	return d.persistence.DefinitionRepository().Delete(ctx, id)
}

// Import validates a raw JSON definition document against the schema and
// stores it.
func (d *Definition) Import(ctx context.Context, raw []byte) (*models.Definition, error) {
	result, err := d.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, NewValidationError("Import", "INVALID_DOCUMENT", err.Error(), ErrInvalidRequest)
	}

	if !result.Valid() {
		detail := ""
		for _, desc := range result.Errors() {
			if detail != "" {
				detail += "; "
			}

			detail += desc.String()
		}

		return nil, NewValidationError("Import", "SCHEMA_VIOLATION", detail, ErrInvalidRequest)
	}

	var definition models.Definition
	if err := json.Unmarshal(raw, &definition); err != nil {
		return nil, NewValidationError("Import", "INVALID_JSON", err.Error(), ErrInvalidRequest)
	}

	return d.Create(ctx, &definition)
}

const nameMinLength = 3

// validate enforces the closed enumerations. Zero steps is legal: such a
// definition auto-approves anything it matches.
func (d *Definition) validate(definition *models.Definition) error {
	if len(definition.Name) < nameMinLength {
		return NewValidationError(
			"validate",
			"INVALID_NAME",
			fmt.Sprintf("name must be at least %d characters", nameMinLength),
			ErrInvalidRequest,
		)
	}

	if !definition.EntityType.Valid() {
		return NewValidationError(
			"validate",
			"INVALID_ENTITY_TYPE",
			fmt.Sprintf("unknown entity type %q", definition.EntityType),
			ErrInvalidEntityType,
		)
	}

	if definition.Condition.Field == "" {
		return ErrConditionFieldEmpty
	}

	if !definition.Condition.Operator.Valid() {
		return NewValidationError(
			"validate",
			"INVALID_OPERATOR",
			fmt.Sprintf("unsupported operator %q", definition.Condition.Operator),
			ErrInvalidOperator,
		)
	}

	for i, step := range definition.Steps {
		if !step.Role.Valid() {
			return NewValidationError(
				"validate",
				"INVALID_ROLE",
				fmt.Sprintf("step %d: unknown role %q", i, step.Role),
				ErrInvalidRole,
			)
		}
	}

	return nil
}
