// Package main provides the Assent API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/assenthq/assent/pkg/eventbus"
	"github.com/assenthq/assent/pkg/locks"
	"github.com/assenthq/assent/pkg/persistence"
	"github.com/assenthq/assent/pkg/services"
	"github.com/assenthq/assent/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	locker      locks.Locker
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	locker locks.Locker,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		locker:      locker,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() (*fiber.App, error) {
	definitionService, err := services.NewDefinition(a.persistence)
	if err != nil {
		return nil, err
	}

	evaluator := services.NewEvaluator(a.persistence)
	processor := services.NewProcessor(a.persistence, a.locker)
	queries := services.NewQueries(a.persistence)

	handlers := web.NewAPIHandlers(
		definitionService, evaluator, processor, queries, a.validate, a.eventBus, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Assent API")
	})

	d := app.Group("/definitions")
	d.Get("/", handlers.GetDefinitions)
	d.Post("/", handlers.CreateDefinition)
	d.Post("/import", handlers.ImportDefinition)
	d.Get("/:id", handlers.GetDefinition)
	d.Patch("/:id", handlers.UpdateDefinition)
	d.Delete("/:id", handlers.DeleteDefinition)

	app.Post("/evaluations", handlers.Evaluate)

	a2 := app.Group("/approvals")
	a2.Get("/", handlers.GetPendingApprovals)
	a2.Get("/:id", handlers.GetApproval)
	a2.Post("/:id/decision", handlers.RecordDecision)

	app.Get("/entities/:entityType/:entityId/approvals", handlers.GetEntityApprovals)

	app.Get("/health", handlers.HealthCheck)

	return app, nil
}

func (a *API) Start(port int) error {
	app, err := a.App()
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
