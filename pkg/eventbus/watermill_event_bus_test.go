package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assenthq/assent/pkg/channels/gochannel"
	"github.com/assenthq/assent/pkg/eventbus"
	"github.com/assenthq/assent/pkg/events"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	t.Parallel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	received := make(chan any, 1)
	require.NoError(t, bus.Handle(events.InstanceResolvedEvent, func(ctx context.Context, event any) error {
		received <- event

		return nil
	}))

	require.NoError(t, bus.Subscribe(t.Context()))

	event := events.InstanceResolved{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.InstanceResolvedEvent,
			Timestamp: time.Now().UTC(),
		},
		InstanceID: "inst-1",
		EntityID:   "mr-1",
	}

	require.NoError(t, bus.Publish(t.Context(), "inst-1", event))

	select {
	case got := <-received:
		resolved, ok := got.(*events.InstanceResolved)
		require.True(t, ok)
		assert.Equal(t, "inst-1", resolved.InstanceID)
		assert.Equal(t, "mr-1", resolved.EntityID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	t.Parallel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	require.NoError(t, bus.Subscribe(t.Context()))

	// No handler registered: the message must not wedge the stream.
	err = bus.Publish(t.Context(), "def-1", events.DefinitionDeleted{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.DefinitionDeletedEvent,
			Timestamp: time.Now().UTC(),
		},
		DefinitionID: "def-1",
	})
	require.NoError(t, err)
}
