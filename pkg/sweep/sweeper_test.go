package sweep_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/persistence/file"
	"github.com/assenthq/assent/pkg/sweep"
)

func storeDefinition(t *testing.T, store *file.Persistence, id string) *models.Definition {
	t.Helper()

	now := time.Now().UTC()
	definition := &models.Definition{
		ID:         id,
		Name:       "High value purchases",
		EntityType: models.EntityTypeMaterialRequest,
		Condition: models.Condition{
			Field:     models.SnapshotFieldTotalValue,
			Operator:  models.OperatorGreaterThan,
			Threshold: 1000,
		},
		Steps:     []models.Step{{Role: models.RoleProjectManager}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	require.NoError(t, store.DefinitionRepository().Save(t.Context(), definition))

	return definition
}

func storeInstance(t *testing.T, store *file.Persistence, id string, definition *models.Definition) *models.Instance {
	t.Helper()

	instance := models.NewInstance(id, definition, "mr-"+id, time.Now().UTC())
	require.NoError(t, store.InstanceRepository().Save(t.Context(), instance))

	return instance
}

func TestSweeper_ReportsOrphans(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	sweeper := sweep.NewSweeper(store, nil, slog.Default())

	kept := storeDefinition(t, store, "def-kept")
	doomed := storeDefinition(t, store, "def-doomed")

	storeInstance(t, store, "inst-healthy", kept)
	orphan := storeInstance(t, store, "inst-orphan", doomed)

	require.NoError(t, store.DefinitionRepository().Delete(t.Context(), doomed.ID))

	orphans, err := sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{orphan.ID}, orphans)

	// The orphan is reported, never touched.
	fetched, err := store.InstanceRepository().GetByID(t.Context(), orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusPending, fetched.Status)
}

func TestSweeper_IgnoresResolvedInstances(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	sweeper := sweep.NewSweeper(store, nil, slog.Default())

	doomed := storeDefinition(t, store, "def-doomed")
	instance := storeInstance(t, store, "inst-resolved", doomed)

	instance.Status = models.InstanceStatusRejected
	require.NoError(t, store.InstanceRepository().Save(t.Context(), instance))
	require.NoError(t, store.DefinitionRepository().Delete(t.Context(), doomed.ID))

	orphans, err := sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestSweeper_EmptyStore(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	sweeper := sweep.NewSweeper(store, nil, slog.Default())

	orphans, err := sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.Empty(t, orphans)
}
