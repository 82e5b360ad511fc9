package controller

import (
	"github.com/openskies/alpaca-console/internal/alpaca"
	"github.com/openskies/alpaca-console/internal/models"
)

// detailProperties lists the static details fetched once after connect.
// Failures here are escalated as deviceApiError events.
func detailProperties(t models.DeviceType) []string {
	switch t {
	case models.DeviceTypeFocuser:
		return alpaca.FocuserDetailProperties
	case models.DeviceTypeCamera:
		return alpaca.CameraDetailProperties
	default:
		return nil
	}
}

// statusProperties lists the telemetry fetched on every poll tick.
func statusProperties(t models.DeviceType) []string {
	switch t {
	case models.DeviceTypeFocuser:
		return alpaca.FocuserStatusProperties
	case models.DeviceTypeCamera:
		return alpaca.CameraStatusProperties
	case models.DeviceTypeTelescope:
		return alpaca.TelescopeStatusProperties
	default:
		return nil
	}
}

// derivedProperties lists everything reset to null on disconnect so stale
// telemetry never survives.
func derivedProperties(t models.DeviceType) []string {
	switch t {
	case models.DeviceTypeFocuser:
		return alpaca.FocuserDerivedProperties
	case models.DeviceTypeCamera:
		return alpaca.CameraStatusProperties
	case models.DeviceTypeTelescope:
		return alpaca.TelescopeStatusProperties
	default:
		return nil
	}
}
