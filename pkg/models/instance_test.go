package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinition(steps ...Role) *Definition {
	def := &Definition{
		ID:         "def-1",
		Name:       "High value purchases",
		EntityType: EntityTypeMaterialRequest,
		Condition: Condition{
			Field:     SnapshotFieldTotalValue,
			Operator:  OperatorGreaterThan,
			Threshold: 1000,
		},
	}

	for _, role := range steps {
		def.Steps = append(def.Steps, Step{Role: role})
	}

	return def
}

func TestNewInstance(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	def := testDefinition(RoleProjectManager, RoleFinance)

	instance := NewInstance("inst-1", def, "mr-42", now)

	assert.Equal(t, InstanceStatusPending, instance.Status)
	assert.Equal(t, 0, instance.CurrentStep)
	assert.Equal(t, "def-1", instance.DefinitionID)
	assert.Equal(t, EntityTypeMaterialRequest, instance.EntityType)
	assert.Equal(t, "mr-42", instance.EntityID)

	require.Len(t, instance.Steps, 2)
	assert.Equal(t, RoleProjectManager, instance.Steps[0].Role)
	assert.Equal(t, RoleFinance, instance.Steps[1].Role)

	for _, step := range instance.Steps {
		assert.Equal(t, StepStatusPending, step.Status)
	}

	require.NoError(t, instance.CheckInvariant())
}

func TestNewInstance_ZeroSteps(t *testing.T) {
	t.Parallel()

	instance := NewInstance("inst-1", testDefinition(), "mr-42", time.Now().UTC())

	// Nothing to sign off: auto-approved on creation.
	assert.Equal(t, InstanceStatusApproved, instance.Status)
	assert.True(t, instance.Resolved())
	assert.Empty(t, instance.Steps)
}

func TestInstance_CurrentStepState(t *testing.T) {
	t.Parallel()

	instance := NewInstance("inst-1", testDefinition(RoleFinance), "mr-42", time.Now().UTC())

	step, err := instance.CurrentStepState()
	require.NoError(t, err)
	assert.Equal(t, RoleFinance, step.Role)

	instance.Status = InstanceStatusRejected

	_, err = instance.CurrentStepState()
	assert.Error(t, err)
}

func TestInstance_CheckInvariant(t *testing.T) {
	t.Parallel()

	instance := NewInstance("inst-1", testDefinition(RoleProjectManager, RoleFinance), "mr-42", time.Now().UTC())

	// Corrupt shape: step before CurrentStep still pending.
	instance.CurrentStep = 1
	assert.Error(t, instance.CheckInvariant())

	instance.Steps[0].Status = StepStatusApproved
	assert.NoError(t, instance.CheckInvariant())

	// Resolved instances are exempt from the pending-shape check.
	instance.Status = InstanceStatusRejected
	instance.CurrentStep = 99
	assert.NoError(t, instance.CheckInvariant())
}

func TestMaterialRequest_TotalValue(t *testing.T) {
	t.Parallel()

	request := &MaterialRequest{
		ID:          "mr-1",
		RequestedBy: "maria",
		Items: []MaterialRequestItem{
			{Description: "Cement bags", Quantity: 10, UnitPrice: 32.5},
			{Description: "Steel rods", Quantity: 4, UnitPrice: 118.75},
		},
	}

	assert.InDelta(t, 800.0, request.TotalValue(), 0.001)

	snapshot := request.Snapshot()
	assert.InDelta(t, 800.0, snapshot[SnapshotFieldTotalValue].(float64), 0.001)
	assert.Equal(t, 2, snapshot["item_count"])
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	for _, role := range AllRoles() {
		parsed, err := ParseRole(string(role))
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	_, err := ParseRole("intern")
	assert.Error(t, err)

	assert.False(t, Role("ceo").Valid())
}
