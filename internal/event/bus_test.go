package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	first, unsubFirst := bus.Subscribe()
	second, unsubSecond := bus.Subscribe()
	defer unsubSecond()

	bus.Publish(Event{Type: TypeAccessGranted, PatientID: "p-1"})

	got := <-first
	require.Equal(t, TypeAccessGranted, got.Type)
	require.NotEmpty(t, got.ID)
	require.Equal(t, "p-1", (<-second).PatientID)

	unsubFirst()
	unsubFirst()
	_, open := <-first
	require.False(t, open)

	bus.Publish(Event{Type: TypeAccessRevoked, PatientID: "p-1"})
	require.Equal(t, TypeAccessRevoked, (<-second).Type)
}

func TestBusPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(Event{Type: TypeRecordAccessed})
	}
}
