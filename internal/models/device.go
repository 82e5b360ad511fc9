// Package models provides data structures shared across the alpaca-console service.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DeviceType identifies the kind of instrument a device record represents.
type DeviceType string

const (
	DeviceTypeCamera      DeviceType = "camera"
	DeviceTypeTelescope   DeviceType = "telescope"
	DeviceTypeFocuser     DeviceType = "focuser"
	DeviceTypeDome        DeviceType = "dome"
	DeviceTypeFilterWheel DeviceType = "filterwheel"
	DeviceTypeRotator     DeviceType = "rotator"
)

// ParseDeviceType validates a device type string.
func ParseDeviceType(s string) (DeviceType, error) {
	switch t := DeviceType(strings.ToLower(s)); t {
	case DeviceTypeCamera, DeviceTypeTelescope, DeviceTypeFocuser,
		DeviceTypeDome, DeviceTypeFilterWheel, DeviceTypeRotator:
		return t, nil
	default:
		return "", fmt.Errorf("unknown device type %q", s)
	}
}

// Device represents one controlled instrument. The lifecycle controller is
// the only writer; everything else receives copies via Snapshot.
type Device struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Type         DeviceType `json:"type" db:"type"`
	DeviceNumber int        `json:"device_number" db:"device_number"`
	// APIBaseURL is the Alpaca server base URL. Empty means the device is
	// driven by the local simulator instead of a network transport.
	APIBaseURL string `json:"api_base_url,omitempty" db:"api_base_url"`

	IsConnected     bool `json:"is_connected"`
	IsConnecting    bool `json:"is_connecting"`
	IsDisconnecting bool `json:"is_disconnecting"`

	// Properties holds the latest polled telemetry keyed by Alpaca property name.
	Properties map[string]PropertyValue `json:"properties"`

	// LastError holds the last classified failure, empty when healthy.
	LastError string `json:"last_error,omitempty"`

	PollInterval time.Duration `json:"poll_interval,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to readers.
func (d *Device) Clone() *Device {
	cp := *d
	cp.Properties = make(map[string]PropertyValue, len(d.Properties))
	for k, v := range d.Properties {
		cp.Properties[k] = v
	}
	return &cp
}

// Property returns the named property, or the null value when absent.
func (d *Device) Property(name string) PropertyValue {
	if v, ok := d.Properties[name]; ok {
		return v
	}
	return Null()
}
