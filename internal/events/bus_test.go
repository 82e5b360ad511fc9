package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openskies/alpaca-console/internal/models"
)

func testDevice(id string) *models.Device {
	return &models.Device{ID: id, Type: models.DeviceTypeFocuser}
}

func TestBusSubscribeAndPublish(t *testing.T) {
	bus := NewBus(nil)

	var got []Type
	bus.Subscribe(DeviceAdded, func(e Event) {
		got = append(got, e.EventType())
	})

	bus.Publish(DeviceRemovedEvent{ID: "d1"})
	assert.Empty(t, got, "handler only fires for its type")

	bus.Publish(DeviceAddedEvent{Device: testDevice("d1")})
	assert.Equal(t, []Type{DeviceAdded}, got)
}

func TestBusWildcardReceivesEverything(t *testing.T) {
	bus := NewBus(nil)

	var got []Type
	bus.Subscribe(Wildcard, func(e Event) {
		got = append(got, e.EventType())
	})

	bus.Publish(DeviceAddedEvent{Device: testDevice("d1")})
	bus.Publish(DevicePropertyChangedEvent{ID: "d1", Name: "position"})
	bus.Publish(DeviceAPIErrorEvent{ID: "d1", Action: "connect", Error: "boom"})

	assert.Equal(t, []Type{DeviceAdded, DevicePropertyChanged, DeviceAPIError}, got)
}

func TestBusDispatchesInSubscriptionOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		bus.Subscribe(DeviceAdded, func(Event) { order = append(order, name) })
	}
	bus.Subscribe(Wildcard, func(Event) { order = append(order, "wildcard") })

	// Repeat to catch ordering that only holds by accident.
	for i := 0; i < 10; i++ {
		order = order[:0]
		bus.Publish(DeviceAddedEvent{Device: testDevice("d1")})
		assert.Equal(t, []string{"first", "second", "third", "wildcard"}, order)
	}
}

func TestBusUnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	unsub := bus.Subscribe(DeviceUpdated, func(Event) { calls++ })
	assert.Equal(t, 1, bus.SubscriberCount(DeviceUpdated))

	unsub()
	unsub()
	unsub()
	assert.Equal(t, 0, bus.SubscriberCount(DeviceUpdated))

	bus.Publish(DeviceUpdatedEvent{Device: testDevice("d1")})
	assert.Equal(t, 0, calls)
}

func TestBusUnsubscribeDuringDispatch(t *testing.T) {
	bus := NewBus(nil)

	var unsubA UnsubscribeFunc
	aCalls := 0
	bCalls := 0

	// A removes itself while a publish is in flight; B keeps receiving.
	unsubA = bus.Subscribe(DeviceRemoved, func(Event) {
		aCalls++
		unsubA()
	})
	bus.Subscribe(DeviceRemoved, func(Event) { bCalls++ })

	bus.Publish(DeviceRemovedEvent{ID: "d1"})
	bus.Publish(DeviceRemovedEvent{ID: "d2"})

	assert.Equal(t, 1, aCalls)
	assert.Equal(t, 2, bCalls)
}

func TestBusSubscribeDuringDispatch(t *testing.T) {
	bus := NewBus(nil)

	lateCalls := 0
	bus.Subscribe(DeviceAdded, func(Event) {
		bus.Subscribe(DeviceAdded, func(Event) { lateCalls++ })
	})

	// The subscription created mid-dispatch takes effect for later publishes
	// only; dispatch iterates a snapshot.
	bus.Publish(DeviceAddedEvent{Device: testDevice("d1")})
	assert.Equal(t, 0, lateCalls)

	bus.Publish(DeviceAddedEvent{Device: testDevice("d2")})
	assert.Equal(t, 1, lateCalls)
}
