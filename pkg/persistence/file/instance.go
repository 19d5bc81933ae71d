package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/persistence"
)

// InstanceRepository handles approval instance file operations.
type InstanceRepository struct {
	root string
}

// NewInstanceRepository creates a new instance repository.
func NewInstanceRepository(root string) *InstanceRepository {
	return &InstanceRepository{root: root}
}

func (ir *InstanceRepository) dir() string {
	return filepath.Join(ir.root, "instances")
}

func (ir *InstanceRepository) path(id string) string {
	return filepath.Join(ir.dir(), id+".json")
}

// GetByID returns the instance with the given id.
func (ir *InstanceRepository) GetByID(_ context.Context, id string) (*models.Instance, error) {
	data, err := os.ReadFile(ir.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("GetByID", id, err)
	}

	var instance models.Instance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, persistence.NewInstanceError("GetByID", id, err)
	}

	return &instance, nil
}

// Save writes the instance, inserting or replacing by id.
func (ir *InstanceRepository) Save(_ context.Context, instance *models.Instance) error {
	if err := os.MkdirAll(ir.dir(), dirPerm); err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	data, err := json.MarshalIndent(instance, "", "  ")
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	if err := os.WriteFile(ir.path(instance.ID), data, 0o600); err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	return nil
}

// ListPendingByRole returns pending instances whose current step awaits the
// role, oldest first.
func (ir *InstanceRepository) ListPendingByRole(ctx context.Context, role models.Role) ([]*models.Instance, error) {
	all, err := ir.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Instance, 0)

	for _, instance := range all {
		if instance.Status != models.InstanceStatusPending {
			continue
		}

		step, err := instance.CurrentStepState()
		if err != nil {
			return nil, persistence.NewInstanceError("ListPendingByRole", instance.ID, err)
		}

		if step.Role == role {
			matched = append(matched, instance)
		}
	}

	sortByCreatedAsc(matched)

	return matched, nil
}

// ListByEntity returns every instance for the entity, newest first.
func (ir *InstanceRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]*models.Instance, error) {
	all, err := ir.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Instance, 0)

	for _, instance := range all {
		if instance.EntityType == entityType && instance.EntityID == entityID {
			matched = append(matched, instance)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched, nil
}

// ListPending returns every pending instance, oldest first.
func (ir *InstanceRepository) ListPending(ctx context.Context) ([]*models.Instance, error) {
	all, err := ir.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]*models.Instance, 0)

	for _, instance := range all {
		if instance.Status == models.InstanceStatusPending {
			pending = append(pending, instance)
		}
	}

	sortByCreatedAsc(pending)

	return pending, nil
}

func (ir *InstanceRepository) loadAll(ctx context.Context) ([]*models.Instance, error) {
	if _, err := os.Stat(ir.dir()); os.IsNotExist(err) {
		return []*models.Instance{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(ir.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list instance files: %w", err)
	}

	instances := make([]*models.Instance, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		instance, err := ir.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load instance %s: %w", id, err)
		}

		instances = append(instances, instance)
	}

	return instances, nil
}

func sortByCreatedAsc(instances []*models.Instance) {
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})
}
