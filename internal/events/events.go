// Package events defines the closed set of device events and the subscriber
// bus that fans them out to the UI, the WebSocket stream and the MQTT bridge.
package events

import (
	"github.com/openskies/alpaca-console/internal/models"
)

// Type identifies an event variant. The set is closed.
type Type string

const (
	DeviceAdded           Type = "deviceAdded"
	DeviceRemoved         Type = "deviceRemoved"
	DeviceUpdated         Type = "deviceUpdated"
	DevicePropertyChanged Type = "devicePropertyChanged"
	DeviceMethodCalled    Type = "deviceMethodCalled"
	DeviceAPIError        Type = "deviceApiError"

	// Wildcard subscribes a handler to every event type.
	Wildcard Type = "*"
)

// Event is the interface all event variants implement.
type Event interface {
	EventType() Type
	DeviceID() string
}

// DeviceAddedEvent is emitted when a device joins the registry.
type DeviceAddedEvent struct {
	Device *models.Device `json:"device"`
}

func (e DeviceAddedEvent) EventType() Type  { return DeviceAdded }
func (e DeviceAddedEvent) DeviceID() string { return e.Device.ID }

// DeviceRemovedEvent is emitted when a device leaves the registry.
type DeviceRemovedEvent struct {
	ID string `json:"device_id"`
}

func (e DeviceRemovedEvent) EventType() Type  { return DeviceRemoved }
func (e DeviceRemovedEvent) DeviceID() string { return e.ID }

// DeviceUpdatedEvent carries a full device snapshot after a state change.
type DeviceUpdatedEvent struct {
	Device *models.Device `json:"device"`
}

func (e DeviceUpdatedEvent) EventType() Type  { return DeviceUpdated }
func (e DeviceUpdatedEvent) DeviceID() string { return e.Device.ID }

// DevicePropertyChangedEvent is emitted for each successfully fetched or
// written property value.
type DevicePropertyChangedEvent struct {
	ID    string               `json:"device_id"`
	Name  string               `json:"name"`
	Value models.PropertyValue `json:"value"`
}

func (e DevicePropertyChangedEvent) EventType() Type  { return DevicePropertyChanged }
func (e DevicePropertyChangedEvent) DeviceID() string { return e.ID }

// DeviceMethodCalledEvent is emitted after a successful method invocation.
type DeviceMethodCalledEvent struct {
	ID     string                 `json:"device_id"`
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params,omitempty"`
}

func (e DeviceMethodCalledEvent) EventType() Type  { return DeviceMethodCalled }
func (e DeviceMethodCalledEvent) DeviceID() string { return e.ID }

// DeviceAPIErrorEvent is emitted for failed user actions and failed
// post-connect detail fetches. Routine polling misses never produce one.
type DeviceAPIErrorEvent struct {
	ID     string                 `json:"device_id"`
	Action string                 `json:"action"`
	Error  string                 `json:"error"`
	Params map[string]interface{} `json:"params,omitempty"`
}

func (e DeviceAPIErrorEvent) EventType() Type  { return DeviceAPIError }
func (e DeviceAPIErrorEvent) DeviceID() string { return e.ID }
