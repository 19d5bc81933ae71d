// Package events defines event types for approval workflow lifecycle
// notifications. The engine itself never publishes; the API host emits these
// after successful engine calls so audit and notification consumers can react.
package events

import (
	"time"

	"github.com/assenthq/assent/pkg/models"
)

type EventType string

// Topic is the single stream all approval lifecycle events are published to.
const Topic = "assent.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Definition lifecycle events.
	DefinitionCreatedEvent EventType = "definition.created"
	DefinitionUpdatedEvent EventType = "definition.updated"
	DefinitionDeletedEvent EventType = "definition.deleted"

	// Instance lifecycle events.
	InstanceCreatedEvent  EventType = "instance.created"
	DecisionRecordedEvent EventType = "instance.decision.recorded"
	InstanceResolvedEvent EventType = "instance.resolved"

	// Maintenance events.
	OrphanDetectedEvent EventType = "instance.orphan.detected"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type DefinitionCreated struct {
	BaseEvent

	DefinitionID string            `json:"definition_id"`
	Name         string            `json:"name"`
	EntityType   models.EntityType `json:"entity_type"`
}

func (e DefinitionCreated) GetType() EventType {
	return DefinitionCreatedEvent
}

type DefinitionUpdated struct {
	BaseEvent

	DefinitionID string `json:"definition_id"`
	Name         string `json:"name"`
}

func (e DefinitionUpdated) GetType() EventType {
	return DefinitionUpdatedEvent
}

type DefinitionDeleted struct {
	BaseEvent

	DefinitionID string `json:"definition_id"`
}

func (e DefinitionDeleted) GetType() EventType {
	return DefinitionDeletedEvent
}

type InstanceCreated struct {
	BaseEvent

	InstanceID   string            `json:"instance_id"`
	DefinitionID string            `json:"definition_id"`
	EntityType   models.EntityType `json:"entity_type"`
	EntityID     string            `json:"entity_id"`
	StepCount    int               `json:"step_count"`
}

func (e InstanceCreated) GetType() EventType {
	return InstanceCreatedEvent
}

type DecisionRecorded struct {
	BaseEvent

	InstanceID string            `json:"instance_id"`
	StepIndex  int               `json:"step_index"`
	Role       models.Role       `json:"role"`
	Decision   string            `json:"decision"`
	ActedBy    string            `json:"acted_by,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	Status     models.StepStatus `json:"status"`
}

func (e DecisionRecorded) GetType() EventType {
	return DecisionRecordedEvent
}

type InstanceResolved struct {
	BaseEvent

	InstanceID string                `json:"instance_id"`
	EntityType models.EntityType     `json:"entity_type"`
	EntityID   string                `json:"entity_id"`
	Status     models.InstanceStatus `json:"status"`
}

func (e InstanceResolved) GetType() EventType {
	return InstanceResolvedEvent
}

// OrphanDetected reports a pending instance whose definition no longer
// exists. The instance stays pending; only humans decide what to do with it.
type OrphanDetected struct {
	BaseEvent

	InstanceID   string `json:"instance_id"`
	DefinitionID string `json:"definition_id"`
}

func (e OrphanDetected) GetType() EventType {
	return OrphanDetectedEvent
}
