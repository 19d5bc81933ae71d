package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assenthq/assent/pkg/locks"
	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/persistence"
)

func newTestLocker() locks.Locker {
	return locks.NewMemoryLocker()
}

// setupInstance evaluates a two-step definition (project_manager, finance)
// against an entity above the threshold and returns the created instance.
func setupInstance(t *testing.T) (*Processor, *Queries, *models.Instance) {
	t.Helper()

	definitions, evaluator, processor, queries := newTestServices(t)
	createDefinition(t, definitions, 1000, models.RoleProjectManager, models.RoleFinance)

	instances, err := evaluator.Evaluate(t.Context(), models.EntityTypeMaterialRequest, "mr-1", snapshotWithTotal(1500))
	require.NoError(t, err)
	require.Len(t, instances, 1)

	return processor, queries, instances[0]
}

func TestProcessor_ApproveChain(t *testing.T) {
	t.Parallel()

	processor, _, instance := setupInstance(t)

	// Step 0: project manager approves, chain advances.
	updated, err := processor.Process(t.Context(), instance.ID, DecisionApproved, models.RoleProjectManager, "ana", "looks fine")
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusPending, updated.Status)
	assert.Equal(t, 1, updated.CurrentStep)
	assert.Equal(t, models.StepStatusApproved, updated.Steps[0].Status)
	assert.Equal(t, "ana", updated.Steps[0].ProcessedBy)
	assert.NotNil(t, updated.Steps[0].ProcessedAt)
	assert.Equal(t, models.StepStatusPending, updated.Steps[1].Status)
	require.NoError(t, updated.CheckInvariant())

	// Step 1: finance approves, instance resolves. Never earlier.
	updated, err = processor.Process(t.Context(), instance.ID, DecisionApproved, models.RoleFinance, "bruno", "")
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusApproved, updated.Status)
	assert.Equal(t, models.StepStatusApproved, updated.Steps[1].Status)
}

func TestProcessor_RejectShortCircuits(t *testing.T) {
	t.Parallel()

	processor, _, instance := setupInstance(t)

	updated, err := processor.Process(t.Context(), instance.ID, DecisionRejected, models.RoleProjectManager, "ana", "over budget")
	require.NoError(t, err)

	assert.Equal(t, models.InstanceStatusRejected, updated.Status)
	assert.Equal(t, models.StepStatusRejected, updated.Steps[0].Status)
	assert.Equal(t, "over budget", updated.Steps[0].Notes)

	// Later steps are untouched.
	assert.Equal(t, models.StepStatusPending, updated.Steps[1].Status)
	assert.Empty(t, updated.Steps[1].ProcessedBy)
}

func TestProcessor_RejectMidChain(t *testing.T) {
	t.Parallel()

	processor, _, instance := setupInstance(t)

	_, err := processor.Process(t.Context(), instance.ID, DecisionApproved, models.RoleProjectManager, "ana", "")
	require.NoError(t, err)

	updated, err := processor.Process(t.Context(), instance.ID, DecisionRejected, models.RoleFinance, "bruno", "")
	require.NoError(t, err)

	assert.Equal(t, models.InstanceStatusRejected, updated.Status)
	assert.Equal(t, models.StepStatusApproved, updated.Steps[0].Status)
	assert.Equal(t, models.StepStatusRejected, updated.Steps[1].Status)
}

func TestProcessor_WrongRoleIsDenied(t *testing.T) {
	t.Parallel()

	processor, queries, instance := setupInstance(t)

	// Finance cannot act while the project manager step is current,
	// regardless of decision value.
	for _, decision := range []Decision{DecisionApproved, DecisionRejected} {
		_, err := processor.Process(t.Context(), instance.ID, decision, models.RoleFinance, "bruno", "")
		assert.True(t, IsAuthorizationError(err))
	}

	// Nothing was mutated.
	fetched, err := queries.InstanceByID(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusPending, fetched.Status)
	assert.Equal(t, 0, fetched.CurrentStep)
	assert.Equal(t, models.StepStatusPending, fetched.Steps[0].Status)
}

func TestProcessor_ResolvedInstanceIsStateError(t *testing.T) {
	t.Parallel()

	processor, queries, instance := setupInstance(t)

	_, err := processor.Process(t.Context(), instance.ID, DecisionRejected, models.RoleProjectManager, "ana", "")
	require.NoError(t, err)

	// Re-processing fails loudly both times, with no state change between.
	for range 2 {
		_, err = processor.Process(t.Context(), instance.ID, DecisionApproved, models.RoleProjectManager, "ana", "")
		assert.True(t, IsStateError(err))
	}

	fetched, err := queries.InstanceByID(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusRejected, fetched.Status)
}

func TestProcessor_FullyApprovedInstanceIsStateError(t *testing.T) {
	t.Parallel()

	processor, _, instance := setupInstance(t)

	_, err := processor.Process(t.Context(), instance.ID, DecisionApproved, models.RoleProjectManager, "ana", "")
	require.NoError(t, err)
	_, err = processor.Process(t.Context(), instance.ID, DecisionApproved, models.RoleFinance, "bruno", "")
	require.NoError(t, err)

	_, err = processor.Process(t.Context(), instance.ID, DecisionApproved, models.RoleFinance, "bruno", "")
	assert.True(t, IsStateError(err))
}

func TestProcessor_UnknownInstance(t *testing.T) {
	t.Parallel()

	processor, _, _ := setupInstance(t)

	_, err := processor.Process(t.Context(), "no-such-instance", DecisionApproved, models.RoleFinance, "bruno", "")
	assert.True(t, persistence.IsInstanceNotFound(err))
}

func TestProcessor_InvalidInputs(t *testing.T) {
	t.Parallel()

	processor, _, instance := setupInstance(t)

	_, err := processor.Process(t.Context(), instance.ID, Decision("maybe"), models.RoleProjectManager, "ana", "")
	assert.ErrorIs(t, err, ErrInvalidDecision)

	_, err = processor.Process(t.Context(), instance.ID, DecisionApproved, models.Role("intern"), "ana", "")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

// Two concurrent approvals of the same step must resolve to exactly one
// success; the loser sees a state or authorization failure, never a double
// apply.
func TestProcessor_ConcurrentDecisionsSerialize(t *testing.T) {
	t.Parallel()

	processor, queries, instance := setupInstance(t)

	const attempts = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := processor.Process(t.Context(), instance.ID, DecisionApproved, models.RoleProjectManager, "ana", "")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, successes)

	fetched, err := queries.InstanceByID(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.CurrentStep)
	assert.Equal(t, models.StepStatusApproved, fetched.Steps[0].Status)
	require.NoError(t, fetched.CheckInvariant())
}
