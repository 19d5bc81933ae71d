package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/assenthq/assent/pkg/eventbus"
	"github.com/assenthq/assent/pkg/events"
	"github.com/assenthq/assent/pkg/models"
	"github.com/assenthq/assent/pkg/persistence"
	"github.com/assenthq/assent/pkg/services"
)

// APIHandlers wires the approval engine services to HTTP. The engine itself
// never publishes events; handlers emit lifecycle events after each
// successful mutation so audit and notification consumers can react.
type APIHandlers struct {
	definitionService *services.Definition
	evaluator         *services.Evaluator
	processor         *services.Processor
	queries           *services.Queries
	validator         *validator.Validate
	eventBus          eventbus.EventBus
	logger            *slog.Logger
}

func NewAPIHandlers(
	definitionService *services.Definition,
	evaluator *services.Evaluator,
	processor *services.Processor,
	queries *services.Queries,
	validator *validator.Validate,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		definitionService: definitionService,
		evaluator:         evaluator,
		processor:         processor,
		queries:           queries,
		validator:         validator,
		eventBus:          eventBus,
		logger:            logger,
	}
}

// publish emits a lifecycle event keyed by entity. Event delivery is best
// effort: a broker hiccup must not fail the request that already committed.
func (h *APIHandlers) publish(c fiber.Ctx, key string, event eventbus.Event) {
	if h.eventBus == nil {
		return
	}

	if err := h.eventBus.Publish(c.Context(), key, event); err != nil {
		h.logger.Error("Failed to publish event",
			"event_type", event.GetType(), "key", key, "error", err)
	}
}

func (h *APIHandlers) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        h.eventBus.GenerateID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

func (h *APIHandlers) GetDefinitions(c fiber.Ctx) error {
	definitions, err := h.definitionService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(definitions)
}

func (h *APIHandlers) GetDefinition(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Definition ID is required")
	}

	definition, err := h.definitionService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsDefinitionNotFound(err) {
			return notFound(c, "Definition not found")
		}

		return internalError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) CreateDefinition(c fiber.Ctx) error {
	var req CreateDefinitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.definitionService.Create(c.Context(), req.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	if h.eventBus != nil {
		h.publish(c, created.ID, events.DefinitionCreated{
			BaseEvent:    h.baseEvent(events.DefinitionCreatedEvent),
			DefinitionID: created.ID,
			Name:         created.Name,
			EntityType:   created.EntityType,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateDefinition(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Definition ID is required")
	}

	var req UpdateDefinitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	// Fetch and merge: PATCH semantics, absent fields keep their value.
	existing, err := h.definitionService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsDefinitionNotFound(err) {
			return notFound(c, "Definition not found")
		}

		return internalError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Condition != nil {
		existing.Condition = models.Condition{
			Field:     req.Condition.Field,
			Operator:  models.Operator(req.Condition.Operator),
			Threshold: req.Condition.Threshold,
		}
	}

	if req.Steps != nil {
		steps := make([]models.Step, 0, len(*req.Steps))
		for _, step := range *req.Steps {
			steps = append(steps, models.Step{Role: models.Role(step.Role)})
		}

		existing.Steps = steps
	}

	updated, err := h.definitionService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	if h.eventBus != nil {
		h.publish(c, updated.ID, events.DefinitionUpdated{
			BaseEvent:    h.baseEvent(events.DefinitionUpdatedEvent),
			DefinitionID: updated.ID,
			Name:         updated.Name,
		})
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteDefinition(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Definition ID is required")
	}

	if err := h.definitionService.Delete(c.Context(), id); err != nil {
		if persistence.IsDefinitionNotFound(err) {
			return notFound(c, "Definition not found")
		}

		return internalError(c, err)
	}

	if h.eventBus != nil {
		h.publish(c, id, events.DefinitionDeleted{
			BaseEvent:    h.baseEvent(events.DefinitionDeletedEvent),
			DefinitionID: id,
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ImportDefinition accepts a raw definition document and validates it against
// the JSON schema before decoding, so misspelled fields fail loudly instead
// of zeroing out.
func (h *APIHandlers) ImportDefinition(c fiber.Ctx) error {
	created, err := h.definitionService.Import(c.Context(), c.Body())
	if err != nil {
		return handleServiceError(c, err)
	}

	if h.eventBus != nil {
		h.publish(c, created.ID, events.DefinitionCreated{
			BaseEvent:    h.baseEvent(events.DefinitionCreatedEvent),
			DefinitionID: created.ID,
			Name:         created.Name,
			EntityType:   created.EntityType,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// Evaluate runs an entity snapshot against every stored definition and spawns
// one approval instance per match.
func (h *APIHandlers) Evaluate(c fiber.Ctx) error {
	var req EvaluationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instances, err := h.evaluator.Evaluate(
		c.Context(), models.EntityType(req.EntityType), req.EntityID, req.Snapshot)
	if err != nil {
		return handleServiceError(c, err)
	}

	if h.eventBus != nil {
		for _, instance := range instances {
			h.publish(c, instance.ID, events.InstanceCreated{
				BaseEvent:    h.baseEvent(events.InstanceCreatedEvent),
				InstanceID:   instance.ID,
				DefinitionID: instance.DefinitionID,
				EntityType:   instance.EntityType,
				EntityID:     instance.EntityID,
				StepCount:    len(instance.Steps),
			})

			// Zero-step definitions resolve at creation.
			if instance.Resolved() {
				h.publish(c, instance.ID, events.InstanceResolved{
					BaseEvent:  h.baseEvent(events.InstanceResolvedEvent),
					InstanceID: instance.ID,
					EntityType: instance.EntityType,
					EntityID:   instance.EntityID,
					Status:     instance.Status,
				})
			}
		}
	}

	return c.Status(fiber.StatusCreated).JSON(EvaluationResponse{
		Instances: instances,
		Matched:   len(instances),
	})
}

// GetPendingApprovals lists pending instances waiting on the given role,
// oldest first.
func (h *APIHandlers) GetPendingApprovals(c fiber.Ctx) error {
	role := c.Query("role")
	if role == "" {
		return badRequest(c, "Query parameter 'role' is required")
	}

	instances, err := h.queries.PendingForRole(c.Context(), models.Role(role))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instances)
}

func (h *APIHandlers) GetApproval(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	instance, err := h.queries.InstanceByID(c.Context(), id)
	if err != nil {
		if persistence.IsInstanceNotFound(err) {
			return notFound(c, "Approval instance not found")
		}

		return internalError(c, err)
	}

	return c.JSON(instance)
}

// RecordDecision applies an approve/reject verdict to an instance's current
// step.
func (h *APIHandlers) RecordDecision(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	var req DecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.processor.Process(
		c.Context(), id,
		services.Decision(req.Decision),
		models.Role(req.Role),
		req.ActedBy, req.Notes)
	if err != nil {
		return handleServiceError(c, err)
	}

	if h.eventBus != nil {
		decidedStep := instance.CurrentStep
		if !instance.Resolved() {
			// The chain already advanced past the decided step.
			decidedStep = instance.CurrentStep - 1
		}

		h.publish(c, instance.ID, events.DecisionRecorded{
			BaseEvent:  h.baseEvent(events.DecisionRecordedEvent),
			InstanceID: instance.ID,
			StepIndex:  decidedStep,
			Role:       models.Role(req.Role),
			Decision:   req.Decision,
			ActedBy:    req.ActedBy,
			Notes:      req.Notes,
			Status:     instance.Steps[decidedStep].Status,
		})

		if instance.Resolved() {
			h.publish(c, instance.ID, events.InstanceResolved{
				BaseEvent:  h.baseEvent(events.InstanceResolvedEvent),
				InstanceID: instance.ID,
				EntityType: instance.EntityType,
				EntityID:   instance.EntityID,
				Status:     instance.Status,
			})
		}
	}

	return c.JSON(instance)
}

// GetEntityApprovals lists every instance ever spawned for an entity, newest
// first.
func (h *APIHandlers) GetEntityApprovals(c fiber.Ctx) error {
	entityType := c.Params("entityType")
	entityID := c.Params("entityId")

	if entityType == "" || entityID == "" {
		return badRequest(c, "Entity type and entity ID are required")
	}

	instances, err := h.queries.InstancesForEntity(
		c.Context(), models.EntityType(entityType), entityID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instances)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.definitionService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Assent API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Assent API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
