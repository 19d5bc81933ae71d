package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/assenthq/assent/pkg/channels/gochannel"
	"github.com/assenthq/assent/pkg/channels/kafka"
	"github.com/assenthq/assent/pkg/eventbus"
)

// NewEventBus creates an event bus for the given provider. The "none"
// provider returns nil: the API runs fine without a broker, it just stops
// emitting lifecycle events.
func NewEventBus(provider string, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "assent")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %q", provider)
	}
}
