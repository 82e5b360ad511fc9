package alpaca

import (
	"context"
)

// ImageBytesMIME is the Accept value requesting the binary imagearray format.
const ImageBytesMIME = "application/imagebytes"

// RawGetter is implemented by transports that can return raw response
// bodies, which the camera needs for binary image downloads.
type RawGetter interface {
	GetRaw(ctx context.Context, name, accept string) ([]byte, error)
}

// Camera adds typed camera operations on top of a device transport. All
// calls delegate to the transport; no error handling is duplicated here.
type Camera struct {
	Transport DeviceTransport
}

// StartExposure begins an exposure of the given duration in seconds.
// isLight selects a light frame over a dark frame.
func (c Camera) StartExposure(ctx context.Context, duration float64, isLight bool) error {
	_, err := c.Transport.CallMethod(ctx, "startexposure", map[string]interface{}{
		"Duration": duration,
		"Light":    isLight,
	})
	return err
}

// StopExposure ends the exposure early, keeping the data.
func (c Camera) StopExposure(ctx context.Context) error {
	_, err := c.Transport.CallMethod(ctx, "stopexposure", map[string]interface{}{})
	return err
}

// AbortExposure cancels the exposure and discards the data.
func (c Camera) AbortExposure(ctx context.Context) error {
	_, err := c.Transport.CallMethod(ctx, "abortexposure", map[string]interface{}{})
	return err
}

// ImageReady reports whether a downloadable image is available.
func (c Camera) ImageReady(ctx context.Context) (bool, error) {
	v, err := c.Transport.GetProperty(ctx, "imageready")
	if err != nil {
		return false, err
	}
	ready, _ := v.AsBool()
	return ready, nil
}

// SetCoolerOn switches the sensor cooler.
func (c Camera) SetCoolerOn(ctx context.Context, on bool) error {
	return c.Transport.SetProperty(ctx, "cooleron", on)
}

// DownloadImage fetches the raw ImageBytes payload for the last exposure.
func (c Camera) DownloadImage(ctx context.Context) ([]byte, error) {
	rg, ok := c.Transport.(RawGetter)
	if !ok {
		return nil, &Error{Kind: ErrorUnknown, Action: "imagearray", Err: errNoRawTransport}
	}
	return rg.GetRaw(ctx, "imagearray", ImageBytesMIME)
}

var errNoRawTransport = errSentinel("transport does not support raw downloads")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }

// CameraStatusProperties are the properties fetched on each camera poll tick.
var CameraStatusProperties = []string{
	"camerastate", "ccdtemperature", "cooleron", "coolerpower",
	"imageready", "percentcompleted",
}

// CameraDetailProperties are fetched once after connect.
var CameraDetailProperties = []string{
	"cameraxsize", "cameraysize", "sensortype", "maxbinx", "maxbiny",
}
