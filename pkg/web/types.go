// Package web provides HTTP request and response types for the approval API.
package web

import "github.com/assenthq/assent/pkg/models"

// ConditionRequest is the wire form of a definition's matching rule.
type ConditionRequest struct {
	Field     string  `json:"field"     validate:"required,min=1"`
	Operator  string  `json:"operator"  validate:"required"`
	Threshold float64 `json:"threshold"`
}

// StepRequest is the wire form of one approval step.
type StepRequest struct {
	Role string `json:"role" validate:"required"`
}

// CreateDefinitionRequest represents the request body for creating a new
// workflow definition. Steps may be empty: such a definition auto-approves
// everything it matches.
type CreateDefinitionRequest struct {
	Name       string           `json:"name"        validate:"required,min=3"`
	EntityType string           `json:"entity_type" validate:"required"`
	Condition  ConditionRequest `json:"condition"   validate:"required"`
	Steps      []StepRequest    `json:"steps"`
}

// UpdateDefinitionRequest represents the request body for updating an
// existing definition. All fields are optional to support partial updates.
type UpdateDefinitionRequest struct {
	Name      *string           `json:"name,omitempty"      validate:"omitempty,min=3"`
	Condition *ConditionRequest `json:"condition,omitempty"`
	Steps     *[]StepRequest    `json:"steps,omitempty"`
}

// EvaluationRequest submits an entity snapshot for evaluation against every
// stored definition.
type EvaluationRequest struct {
	EntityType string                `json:"entity_type" validate:"required"`
	EntityID   string                `json:"entity_id"   validate:"required"`
	Snapshot   models.EntitySnapshot `json:"snapshot"    validate:"required"`
}

// EvaluationResponse lists the approval instances spawned by one evaluation.
type EvaluationResponse struct {
	Instances []*models.Instance `json:"instances"`
	Matched   int                `json:"matched"`
}

// DecisionRequest records an actor's verdict on an instance's current step.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Role     string `json:"role"     validate:"required"`
	ActedBy  string `json:"acted_by" validate:"required"`
	Notes    string `json:"notes,omitempty"`
}

func (r CreateDefinitionRequest) toModel() *models.Definition {
	definition := &models.Definition{
		Name:       r.Name,
		EntityType: models.EntityType(r.EntityType),
		Condition: models.Condition{
			Field:     r.Condition.Field,
			Operator:  models.Operator(r.Condition.Operator),
			Threshold: r.Condition.Threshold,
		},
		Steps: make([]models.Step, 0, len(r.Steps)),
	}

	for _, step := range r.Steps {
		definition.Steps = append(definition.Steps, models.Step{Role: models.Role(step.Role)})
	}

	return definition
}
