package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/persistence"
)

const dirPerm = 0o755

// DefinitionRepository handles workflow definition file operations.
type DefinitionRepository struct {
	root string
}

// NewDefinitionRepository creates a new definition repository.
func NewDefinitionRepository(root string) *DefinitionRepository {
	return &DefinitionRepository{root: root}
}

func (dr *DefinitionRepository) dir() string {
	return filepath.Join(dr.root, "definitions")
}

func (dr *DefinitionRepository) path(id string) string {
	return filepath.Join(dr.dir(), id+".json")
}

// List returns all stored definitions.
func (dr *DefinitionRepository) List(ctx context.Context) ([]*models.Definition, error) {
	if _, err := os.Stat(dr.dir()); os.IsNotExist(err) {
		return []*models.Definition{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list definition files: %w", err)
	}

	definitions := make([]*models.Definition, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		definition, err := dr.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load definition %s: %w", id, err)
		}

		definitions = append(definitions, definition)
	}

	return definitions, nil
}

// GetByID returns the definition with the given id.
func (dr *DefinitionRepository) GetByID(_ context.Context, id string) (*models.Definition, error) {
	data, err := os.ReadFile(dr.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewDefinitionError("GetByID", id, persistence.ErrDefinitionNotFound)
		}

		return nil, persistence.NewDefinitionError("GetByID", id, err)
	}

	var definition models.Definition
	if err := json.Unmarshal(data, &definition); err != nil {
		return nil, persistence.NewDefinitionError("GetByID", id, err)
	}

	return &definition, nil
}

// Save writes the definition, inserting or replacing by id.
func (dr *DefinitionRepository) Save(_ context.Context, definition *models.Definition) error {
	if err := os.MkdirAll(dr.dir(), dirPerm); err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	data, err := json.MarshalIndent(definition, "", "  ")
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	if err := os.WriteFile(dr.path(definition.ID), data, 0o600); err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	return nil
}

// Delete removes the definition file. Deleting a definition never touches
// instances spawned from it.
func (dr *DefinitionRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(dr.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewDefinitionError("Delete", id, persistence.ErrDefinitionNotFound)
		}

		return persistence.NewDefinitionError("Delete", id, err)
	}

	return nil
}
