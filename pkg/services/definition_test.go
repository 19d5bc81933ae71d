package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/persistence"
)

func TestDefinition_Create(t *testing.T) {
	t.Parallel()

	definitions, _, _, _ := newTestServices(t)

	created := createDefinition(t, definitions, 1000, models.RoleProjectManager)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	fetched, err := definitions.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
}

func TestDefinition_Create_Validation(t *testing.T) {
	t.Parallel()

	definitions, _, _, _ := newTestServices(t)

	tests := []struct {
		name       string
		definition *models.Definition
		wantErr    error
	}{
		{
			name:    "nil definition",
			wantErr: ErrDefinitionNil,
		},
		{
			name: "empty name",
			definition: &models.Definition{
				EntityType: models.EntityTypeMaterialRequest,
				Condition:  models.Condition{Field: "total_value", Operator: models.OperatorGreaterThan},
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "name too short",
			definition: &models.Definition{
				Name:       "Hi",
				EntityType: models.EntityTypeMaterialRequest,
				Condition:  models.Condition{Field: "total_value", Operator: models.OperatorGreaterThan},
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "unknown entity type",
			definition: &models.Definition{
				Name:       "Invoices rule",
				EntityType: models.EntityType("invoice"),
				Condition:  models.Condition{Field: "total", Operator: models.OperatorGreaterThan},
			},
			wantErr: ErrInvalidEntityType,
		},
		{
			name: "empty condition field",
			definition: &models.Definition{
				Name:       "No field",
				EntityType: models.EntityTypeMaterialRequest,
				Condition:  models.Condition{Operator: models.OperatorGreaterThan},
			},
			wantErr: ErrConditionFieldEmpty,
		},
		{
			name: "unsupported operator",
			definition: &models.Definition{
				Name:       "Regex rule",
				EntityType: models.EntityTypeMaterialRequest,
				Condition:  models.Condition{Field: "total_value", Operator: models.Operator("matches")},
			},
			wantErr: ErrInvalidOperator,
		},
		{
			name: "unknown step role",
			definition: &models.Definition{
				Name:       "Bad role",
				EntityType: models.EntityTypeMaterialRequest,
				Condition:  models.Condition{Field: "total_value", Operator: models.OperatorGreaterThan},
				Steps:      []models.Step{{Role: models.Role("intern")}},
			},
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := definitions.Create(t.Context(), tt.definition)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestDefinition_Update(t *testing.T) {
	t.Parallel()

	definitions, _, _, _ := newTestServices(t)
	created := createDefinition(t, definitions, 1000, models.RoleProjectManager)

	replacement := &models.Definition{
		Name:       "Raised threshold",
		EntityType: models.EntityTypeMaterialRequest,
		Condition: models.Condition{
			Field:     models.SnapshotFieldTotalValue,
			Operator:  models.OperatorGreaterThanOrEqual,
			Threshold: 5000,
		},
		Steps: []models.Step{{Role: models.RoleDirector}},
	}

	updated, err := definitions.Update(t.Context(), created.ID, replacement)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Raised threshold", updated.Name)

	_, err = definitions.Update(t.Context(), "missing", replacement)
	assert.True(t, persistence.IsDefinitionNotFound(err))
}

func TestDefinition_Delete(t *testing.T) {
	t.Parallel()

	definitions, _, _, _ := newTestServices(t)
	created := createDefinition(t, definitions, 1000, models.RoleProjectManager)

	require.NoError(t, definitions.Delete(t.Context(), created.ID))

	_, err := definitions.FetchByID(t.Context(), created.ID)
	assert.True(t, persistence.IsDefinitionNotFound(err))
}

func TestDefinition_DeleteLeavesInstancesInPlace(t *testing.T) {
	t.Parallel()

	definitions, evaluator, _, queries := newTestServices(t)
	created := createDefinition(t, definitions, 1000, models.RoleProjectManager)

	instances, err := evaluator.Evaluate(t.Context(), models.EntityTypeMaterialRequest, "mr-1", snapshotWithTotal(1500))
	require.NoError(t, err)
	require.Len(t, instances, 1)

	require.NoError(t, definitions.Delete(t.Context(), created.ID))

	// The in-flight instance survives as an orphan.
	fetched, err := queries.InstanceByID(t.Context(), instances[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusPending, fetched.Status)
	assert.Equal(t, created.ID, fetched.DefinitionID)
}

func TestDefinition_Import(t *testing.T) {
	t.Parallel()

	definitions, _, _, _ := newTestServices(t)

	raw := []byte(`{
		"name": "Imported rule",
		"entity_type": "material_request",
		"condition": {"field": "total_value", "operator": "greater_than", "threshold": 2500},
		"steps": [{"role": "coordinator"}, {"role": "director"}]
	}`)

	created, err := definitions.Import(t.Context(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Imported rule", created.Name)
	require.Len(t, created.Steps, 2)
	assert.Equal(t, models.RoleCoordinator, created.Steps[0].Role)
}

func TestDefinition_Import_SchemaViolations(t *testing.T) {
	t.Parallel()

	definitions, _, _, _ := newTestServices(t)

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "missing condition",
			raw:  `{"name": "Rule", "entity_type": "material_request", "steps": []}`,
		},
		{
			name: "threshold is a string",
			raw: `{"name": "Rule", "entity_type": "material_request",
				"condition": {"field": "total_value", "operator": "greater_than", "threshold": "1000"},
				"steps": []}`,
		},
		{
			name: "name too short",
			raw: `{"name": "R", "entity_type": "material_request",
				"condition": {"field": "total_value", "operator": "greater_than", "threshold": 1000},
				"steps": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := definitions.Import(t.Context(), []byte(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	// Schema-valid but semantically wrong documents fail model validation.
	_, err := definitions.Import(t.Context(), []byte(`{
		"name": "Bad operator",
		"entity_type": "material_request",
		"condition": {"field": "total_value", "operator": "matches", "threshold": 10},
		"steps": []
	}`))
	assert.ErrorIs(t, err, ErrInvalidOperator)
}
