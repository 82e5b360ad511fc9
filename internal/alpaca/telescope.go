package alpaca

import "context"

// Telescope adds typed mount operations on top of a device transport.
type Telescope struct {
	Transport DeviceTransport
}

// SlewToCoordinates slews to the given RA (hours) and declination (degrees).
func (t Telescope) SlewToCoordinates(ctx context.Context, ra, dec float64) error {
	_, err := t.Transport.CallMethod(ctx, "slewtocoordinates", map[string]interface{}{
		"RightAscension": ra,
		"Declination":    dec,
	})
	return err
}

// Park moves the mount to its park position.
func (t Telescope) Park(ctx context.Context) error {
	_, err := t.Transport.CallMethod(ctx, "park", map[string]interface{}{})
	return err
}

// Unpark releases the mount from its park position.
func (t Telescope) Unpark(ctx context.Context) error {
	_, err := t.Transport.CallMethod(ctx, "unpark", map[string]interface{}{})
	return err
}

// AbortSlew stops an in-progress slew.
func (t Telescope) AbortSlew(ctx context.Context) error {
	_, err := t.Transport.CallMethod(ctx, "abortslew", map[string]interface{}{})
	return err
}

// SetTracking switches sidereal tracking.
func (t Telescope) SetTracking(ctx context.Context, tracking bool) error {
	return t.Transport.SetProperty(ctx, "tracking", tracking)
}

// TelescopeStatusProperties are the properties fetched on each mount poll tick.
var TelescopeStatusProperties = []string{
	"tracking", "slewing", "atpark", "athome",
	"rightascension", "declination", "altitude", "azimuth",
}
