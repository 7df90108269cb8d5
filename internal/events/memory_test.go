package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus()
	var order []string

	bus.Subscribe("x", func(_ context.Context, _ map[string]any) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe("x", func(_ context.Context, _ map[string]any) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), "x", map[string]any{"k": "v"}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestMemoryBusHandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewMemoryBus()
	var reached bool

	bus.Subscribe("x", func(_ context.Context, _ map[string]any) error {
		return errors.New("boom")
	})
	bus.Subscribe("x", func(_ context.Context, _ map[string]any) error {
		reached = true
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), "x", nil))
	assert.True(t, reached)
}

func TestMemoryBusNoSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	require.NoError(t, bus.Publish(context.Background(), "nobody-listens", map[string]any{"a": 1}))
}

func TestMemoryBusPayloadPassedThrough(t *testing.T) {
	bus := NewMemoryBus()
	var got map[string]any

	bus.Subscribe("payment.completed", func(_ context.Context, data map[string]any) error {
		got = data
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), "payment.completed",
		map[string]any{"campaign_id": "c1", "amount": 100.0}))
	assert.Equal(t, "c1", got["campaign_id"])
	assert.Equal(t, 100.0, got["amount"])
}
