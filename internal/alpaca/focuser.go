package alpaca

import "context"

// Focuser adds typed focuser operations on top of a device transport.
type Focuser struct {
	Transport DeviceTransport
}

// Move drives the focuser to an absolute step position.
func (f Focuser) Move(ctx context.Context, position int) error {
	_, err := f.Transport.CallMethod(ctx, "move", map[string]interface{}{
		"Position": position,
	})
	return err
}

// Halt stops any focuser movement.
func (f Focuser) Halt(ctx context.Context) error {
	_, err := f.Transport.CallMethod(ctx, "halt", map[string]interface{}{})
	return err
}

// SetTempComp switches temperature compensation.
func (f Focuser) SetTempComp(ctx context.Context, on bool) error {
	return f.Transport.SetProperty(ctx, "tempcomp", on)
}

// FocuserDetailProperties are the static details fetched once after connect.
// A failure here is escalated, unlike routine status polling.
var FocuserDetailProperties = []string{"maxstep", "maxincrement", "stepsize"}

// FocuserStatusProperties are the properties fetched on each poll tick.
var FocuserStatusProperties = []string{"position", "ismoving", "temperature", "tempcomp"}

// FocuserDerivedProperties lists every focuser property that must be reset
// to null on disconnect so stale telemetry cannot survive.
var FocuserDerivedProperties = []string{
	"position", "ismoving", "temperature", "stepsize",
	"maxstep", "maxincrement", "tempcomp",
}
