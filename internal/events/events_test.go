package events

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus(nil)

	var received []Event
	bus.Subscribe(OccupancyCreated, func(e Event) error {
		received = append(received, e)
		return nil
	})
	bus.Subscribe(OccupancyReleased, func(e Event) error {
		t.Fatalf("unexpected %s event", e.Type)
		return nil
	})

	require.NoError(t, bus.PublishJSON(OccupancyCreated, map[string]string{"id": "occ-1"}))

	require.Len(t, received, 1)
	assert.Equal(t, OccupancyCreated, received[0].Type)
	assert.NotEmpty(t, received[0].ID)
	assert.False(t, received[0].CreatedAt.IsZero())

	var payload map[string]string
	require.NoError(t, received[0].Decode(&payload))
	assert.Equal(t, "occ-1", payload["id"])
}

func TestEventBus_HandlerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := NewEventBus(&logger)

	calls := 0
	bus.Subscribe(OccupancyReleased, func(Event) error {
		calls++
		return errors.New("audit store closed")
	})
	bus.Subscribe(OccupancyReleased, func(Event) error {
		calls++
		return nil
	})

	bus.Publish(Event{Type: OccupancyReleased, Payload: []byte(`{}`)})

	assert.Equal(t, 2, calls, "a failing handler must not stop the others")
	assert.Contains(t, buf.String(), "audit store closed")
	assert.Contains(t, buf.String(), OccupancyReleased)
}

func TestEventBus_PublishJSONMarshalError(t *testing.T) {
	bus := NewEventBus(nil)
	err := bus.PublishJSON(OccupancyCreated, make(chan int))
	assert.Error(t, err)
}
