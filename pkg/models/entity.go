package models

import "fmt"

// EntityType discriminates the kind of governed business record a workflow
// definition applies to.
type EntityType string

const (
	// EntityTypeMaterialRequest is the material purchase request entity.
	EntityTypeMaterialRequest EntityType = "material_request"
)

// ParseEntityType converts a string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityTypeMaterialRequest:
		return EntityType(s), nil
	default:
		return "", fmt.Errorf("unknown entity type: %q", s)
	}
}

// Valid reports whether the entity type is known.
func (t EntityType) Valid() bool {
	_, err := ParseEntityType(string(t))

	return err == nil
}

// EntitySnapshot is a flat field map of a governed entity at evaluation time.
// Condition fields are resolved against it by name.
type EntitySnapshot map[string]any
