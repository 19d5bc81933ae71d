package models

import (
	"fmt"
	"time"
)

// InstanceStatus is the lifecycle state of an approval instance.
// Approved and rejected are terminal.
type InstanceStatus string

const (
	InstanceStatusPending  InstanceStatus = "pending"
	InstanceStatusApproved InstanceStatus = "approved"
	InstanceStatusRejected InstanceStatus = "rejected"
)

// StepStatus is the state of a single step within an instance.
type StepStatus string

const (
	StepStatusPending  StepStatus = "pending"
	StepStatusApproved StepStatus = "approved"
	StepStatusRejected StepStatus = "rejected"
)

// StepState tracks one step of one instance: the role required, the decision
// recorded against it, and who recorded it.
type StepState struct {
	Role        Role       `json:"role"`
	Status      StepStatus `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	ProcessedBy string     `json:"processed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Instance is the live tracking record for one governed entity's progress
// through a definition's steps. Instances are never deleted; a resolved
// instance is a permanent audit record.
//
// While Status is pending, exactly one step state is pending and it sits at
// index CurrentStep; everything before CurrentStep is approved, everything
// after is untouched.
type Instance struct {
	ID           string         `json:"id"`
	DefinitionID string         `json:"definition_id"`
	EntityType   EntityType     `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	Status       InstanceStatus `json:"status"`
	CurrentStep  int            `json:"current_step"`
	Steps        []StepState    `json:"steps"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewInstance builds a pending instance from a definition, one pending step
// state per definition step. A zero-step definition yields an instance that
// is approved on creation: there is no work for anyone to do.
func NewInstance(id string, def *Definition, entityID string, now time.Time) *Instance {
	instance := &Instance{
		ID:           id,
		DefinitionID: def.ID,
		EntityType:   def.EntityType,
		EntityID:     entityID,
		Status:       InstanceStatusPending,
		CurrentStep:  0,
		Steps:        make([]StepState, 0, len(def.Steps)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for _, step := range def.Steps {
		instance.Steps = append(instance.Steps, StepState{
			Role:   step.Role,
			Status: StepStatusPending,
		})
	}

	if len(instance.Steps) == 0 {
		instance.Status = InstanceStatusApproved
	}

	return instance
}

// Resolved reports whether the instance reached a terminal state.
func (i *Instance) Resolved() bool {
	return i.Status == InstanceStatusApproved || i.Status == InstanceStatusRejected
}

// CurrentStepState returns the step state awaiting a decision. It is an error
// to call this on a resolved instance or one with a corrupt step index.
func (i *Instance) CurrentStepState() (*StepState, error) {
	if i.Resolved() {
		return nil, fmt.Errorf("instance %s already %s", i.ID, i.Status)
	}

	if i.CurrentStep < 0 || i.CurrentStep >= len(i.Steps) {
		return nil, fmt.Errorf("instance %s: step index %d out of range (%d steps)", i.ID, i.CurrentStep, len(i.Steps))
	}

	return &i.Steps[i.CurrentStep], nil
}

// CheckInvariant verifies the pending-instance shape: exactly one pending
// step, located at CurrentStep, with everything before it approved. Used by
// persistence round-trip tests and the orphan sweep.
func (i *Instance) CheckInvariant() error {
	if i.Resolved() {
		return nil
	}

	if i.CurrentStep < 0 || i.CurrentStep >= len(i.Steps) {
		return fmt.Errorf("instance %s: current step %d out of range", i.ID, i.CurrentStep)
	}

	for idx, step := range i.Steps {
		switch {
		case idx < i.CurrentStep && step.Status != StepStatusApproved:
			return fmt.Errorf("instance %s: step %d is %s, expected approved", i.ID, idx, step.Status)
		case idx >= i.CurrentStep && step.Status != StepStatusPending:
			return fmt.Errorf("instance %s: step %d is %s, expected pending", i.ID, idx, step.Status)
		}
	}

	return nil
}
