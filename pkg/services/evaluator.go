package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/otelhelper"
	"github.com/assenthq/assent/pkg/persistence"
)

// Evaluator decides whether a governed entity must enter approval chains.
//
// Multiplicity policy: every matching definition spawns its own independent
// instance. Definitions compose; an entity can be under several chains at
// once and each resolves separately.
type Evaluator struct {
	persistence persistence.Persistence
	tracer      trace.Tracer
}

// NewEvaluator creates a new evaluator service.
func NewEvaluator(store persistence.Persistence) *Evaluator {
	return &Evaluator{
		persistence: store,
		tracer:      otel.Tracer("assent.evaluator"),
	}
}

// Evaluate checks every definition governing the entity type against the
// snapshot and creates one instance per match. It returns the created
// instances; an empty slice means the entity proceeds ungoverned.
//
// All conditions are evaluated before anything is persisted. A definition
// whose condition cannot be evaluated against the snapshot fails the whole
// call with no instances created, so a retry never double-creates.
//
// Callers invoke this exactly once per entity creation/update and set the
// entity's own workflow-status field based on the result.
func (e *Evaluator) Evaluate(ctx context.Context, entityType models.EntityType, entityID string, snapshot models.EntitySnapshot) ([]*models.Instance, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "evaluator.evaluate",
		attribute.String(otelhelper.EntityTypeKey, string(entityType)),
		attribute.String(otelhelper.EntityIDKey, entityID),
	)
	defer span.End()

	if !entityType.Valid() {
		err := NewValidationError(
			"Evaluate",
			"INVALID_ENTITY_TYPE",
			fmt.Sprintf("unknown entity type %q", entityType),
			ErrInvalidEntityType,
		)
		otelhelper.SetError(span, err)

		return nil, err
	}

	definitions, err := e.persistence.DefinitionRepository().List(ctx)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load definitions: %w", err)
	}

	matches := make([]*models.Definition, 0)

	for _, definition := range definitions {
		if definition.EntityType != entityType {
			continue
		}

		matched, err := definition.Condition.Evaluate(snapshot)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("definition %s: %w", definition.ID, err)
		}

		if matched {
			matches = append(matches, definition)
		}
	}

	created := make([]*models.Instance, 0, len(matches))

	for _, definition := range matches {
		instance := models.NewInstance(uuid.New().String(), definition, entityID, time.Now().UTC())

		if err := e.persistence.InstanceRepository().Save(ctx, instance); err != nil {
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("failed to save instance for definition %s: %w", definition.ID, err)
		}

		created = append(created, instance)
	}

	span.SetAttributes(attribute.Int(otelhelper.InstancesCreatedKey, len(created)))

	return created, nil
}
