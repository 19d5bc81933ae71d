// Package sweep periodically reports pending approval instances whose
// workflow definition has been deleted. Definitions can be removed while
// instances are still in flight; those instances are kept as audit records
// and flagged here rather than cleaned up.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/assenthq/assent/pkg/eventbus"
	"github.com/assenthq/assent/pkg/events"
	"github.com/assenthq/assent/pkg/persistence"
)

// Sweeper scans pending instances on a cron schedule and reports orphans.
// It never mutates instances: an orphan stays pending until a human decides
// what to do with it.
type Sweeper struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger
	cron        *cron.Cron
}

// NewSweeper creates a new orphan sweeper. The event bus may be nil, in
// which case orphans are only logged.
func NewSweeper(store persistence.Persistence, bus eventbus.EventBus, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		persistence: store,
		eventBus:    bus,
		logger:      logger,
		cron:        cron.New(),
	}
}

// Start schedules the sweep with the given cron expression (e.g. "@hourly")
// and starts the scheduler.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Orphan sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop stops the scheduler, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep runs one scan and returns the orphaned instances it found.
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	pending, err := s.persistence.InstanceRepository().ListPending(ctx)
	if err != nil {
		return nil, err
	}

	// Definition lookups are cached per sweep; many instances usually share
	// a definition.
	known := make(map[string]bool)
	orphans := make([]string, 0)

	for _, instance := range pending {
		exists, checked := known[instance.DefinitionID]
		if !checked {
			_, err := s.persistence.DefinitionRepository().GetByID(ctx, instance.DefinitionID)
			switch {
			case err == nil:
				exists = true
			case persistence.IsDefinitionNotFound(err):
				exists = false
			default:
				return nil, err
			}

			known[instance.DefinitionID] = exists
		}

		if exists {
			continue
		}

		orphans = append(orphans, instance.ID)

		s.logger.WarnContext(ctx, "Pending instance references deleted definition",
			"instance_id", instance.ID,
			"definition_id", instance.DefinitionID,
		)

		if s.eventBus != nil {
			event := events.OrphanDetected{
				BaseEvent: events.BaseEvent{
					ID:        s.eventBus.GenerateID(),
					Type:      events.OrphanDetectedEvent,
					Timestamp: time.Now().UTC(),
				},
				InstanceID:   instance.ID,
				DefinitionID: instance.DefinitionID,
			}

			if err := s.eventBus.Publish(ctx, instance.ID, event); err != nil {
				s.logger.ErrorContext(ctx, "Failed to publish orphan event",
					"instance_id", instance.ID, "error", err)
			}
		}
	}

	return orphans, nil
}
