package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/assenthq/assent/pkg/locks"
	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/otelhelper"
	"github.com/assenthq/assent/pkg/persistence"
)

// Decision is an actor's verdict on one approval step.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ParseDecision converts a string into a Decision.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApproved, DecisionRejected:
		return Decision(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
	}
}

// Processor applies approve/reject decisions to approval instances.
//
// Every call serializes on a per-instance lock for the whole check-then-act
// sequence. Without it two concurrent decisions against the same step could
// both pass the precondition check.
type Processor struct {
	persistence persistence.Persistence
	locker      locks.Locker
	tracer      trace.Tracer
}

// NewProcessor creates a new step processor.
func NewProcessor(store persistence.Persistence, locker locks.Locker) *Processor {
	return &Processor{
		persistence: store,
		locker:      locker,
		tracer:      otel.Tracer("assent.processor"),
	}
}

// Process records a decision against the current step of an instance.
//
// Preconditions, checked atomically under the instance lock: the instance is
// pending and the actor's role matches the current step's required role. On
// failure nothing is mutated; ErrInstanceResolved means someone else already
// acted and the caller should refresh its view.
//
// A rejection anywhere in the chain rejects the whole instance; later steps
// are left untouched. An approval on the last step resolves the instance as
// approved, otherwise the chain advances one step.
func (p *Processor) Process(ctx context.Context, instanceID string, decision Decision, actorRole models.Role, actor, notes string) (*models.Instance, error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "processor.process",
		attribute.String(otelhelper.InstanceIDKey, instanceID),
		attribute.String(otelhelper.DecisionKey, string(decision)),
		attribute.String(otelhelper.RoleKey, string(actorRole)),
	)
	defer span.End()

	if _, err := ParseDecision(string(decision)); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if !actorRole.Valid() {
		err := NewValidationError(
			"Process",
			"INVALID_ROLE",
			fmt.Sprintf("unknown role %q", actorRole),
			ErrInvalidRole,
		)
		otelhelper.SetError(span, err)

		return nil, err
	}

	release, err := p.locker.Acquire(ctx, instanceID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to lock instance %s: %w", instanceID, err)
	}
	defer release()

	instance, err := p.persistence.InstanceRepository().GetByID(ctx, instanceID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if instance.Resolved() {
		err := fmt.Errorf("%w: instance %s is %s", ErrInstanceResolved, instance.ID, instance.Status)
		otelhelper.SetError(span, err)

		return nil, err
	}

	step, err := instance.CurrentStepState()
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if step.Role != actorRole {
		err := fmt.Errorf("%w: step %d requires %s, got %s",
			ErrRoleNotAuthorized, instance.CurrentStep, step.Role, actorRole)
		otelhelper.SetError(span, err)

		return nil, err
	}

	now := time.Now().UTC()
	step.Notes = notes
	step.ProcessedBy = actor
	step.ProcessedAt = &now
	instance.UpdatedAt = now

	switch decision {
	case DecisionRejected:
		step.Status = models.StepStatusRejected
		instance.Status = models.InstanceStatusRejected
	case DecisionApproved:
		step.Status = models.StepStatusApproved

		if instance.CurrentStep == len(instance.Steps)-1 {
			instance.Status = models.InstanceStatusApproved
		} else {
			instance.CurrentStep++
		}
	}

	if err := p.persistence.InstanceRepository().Save(ctx, instance); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save instance %s: %w", instance.ID, err)
	}

	span.SetAttributes(attribute.String(otelhelper.InstanceStatusKey, string(instance.Status)))

	return instance, nil
}
