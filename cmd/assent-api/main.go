package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/assenthq/assent/pkg/cmd"
	"github.com/assenthq/assent/pkg/log"
	"github.com/assenthq/assent/pkg/otelhelper"
	"github.com/assenthq/assent/pkg/sweep"
)

const defaultPort = 9094

func main() {
	root := &cli.Command{
		Name:                  "assent-api",
		Usage:                 "Manage approval workflow definitions and instances",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file path or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the distributed instance lock; empty uses the in-process lock",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "orphan-sweep-schedule",
				Usage:   "Cron schedule for the orphaned instance sweep; empty disables it",
				Value:   "@hourly",
				Sources: cli.EnvVars("ORPHAN_SWEEP_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Assent API")

			if os.Getenv("OTEL_ENABLED") == "true" {
				if _, err := otelhelper.NewTracer(ctx, "assent-api"); err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)
				}
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
			if err != nil {
				return err
			}

			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			locker, err := cmd.NewLocker(command.String("redis-url"))
			if err != nil {
				return err
			}

			if schedule := command.String("orphan-sweep-schedule"); schedule != "" {
				sweeper := sweep.NewSweeper(persistence, eventBus, logger)
				if err := sweeper.Start(ctx, schedule); err != nil {
					return err
				}

				defer sweeper.Stop()
			}

			api := NewAPI(
				logger,
				persistence,
				locker,
				eventBus,
			)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
