package alpaca

import (
	"context"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/imagebytes"
	"github.com/openskies/alpaca-console/internal/models"
)

// Simulator is a local in-memory transport used for devices registered
// without an API base URL. It keeps the dashboard usable in demos and tests
// without any network calls.
type Simulator struct {
	deviceType models.DeviceType
	logger     *zap.Logger

	mu    sync.Mutex
	props map[string]models.PropertyValue
}

// NewSimulator creates a simulated transport seeded with defaults for the
// device type.
func NewSimulator(deviceType models.DeviceType, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Simulator{
		deviceType: deviceType,
		logger:     logger.With(zap.String("component", "alpaca_simulator"), zap.String("device_type", string(deviceType))),
		props: map[string]models.PropertyValue{
			"connected": models.Bool(false),
		},
	}

	switch deviceType {
	case models.DeviceTypeFocuser:
		s.props["position"] = models.Number(5000)
		s.props["ismoving"] = models.Bool(false)
		s.props["temperature"] = models.Number(8.5)
		s.props["tempcomp"] = models.Bool(false)
		s.props["maxstep"] = models.Number(50000)
		s.props["maxincrement"] = models.Number(1000)
		s.props["stepsize"] = models.Number(1.2)
	case models.DeviceTypeTelescope:
		s.props["tracking"] = models.Bool(false)
		s.props["slewing"] = models.Bool(false)
		s.props["atpark"] = models.Bool(true)
		s.props["athome"] = models.Bool(false)
		s.props["rightascension"] = models.Number(0)
		s.props["declination"] = models.Number(0)
		s.props["altitude"] = models.Number(45)
		s.props["azimuth"] = models.Number(180)
	case models.DeviceTypeCamera:
		s.props["camerastate"] = models.Number(0)
		s.props["ccdtemperature"] = models.Number(-10)
		s.props["cooleron"] = models.Bool(false)
		s.props["coolerpower"] = models.Number(0)
		s.props["imageready"] = models.Bool(false)
		s.props["percentcompleted"] = models.Number(0)
		s.props["cameraxsize"] = models.Number(64)
		s.props["cameraysize"] = models.Number(48)
	}

	return s
}

// GetProperty returns the simulated property value.
func (s *Simulator) GetProperty(_ context.Context, name string) (models.PropertyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.props[name]; ok {
		return v, nil
	}
	return models.Null(), &Error{
		Kind:          ErrorDevice,
		Action:        name,
		DeviceCode:    0x400, // ASCOM NotImplemented
		DeviceMessage: "property not implemented by simulator",
	}
}

// SetProperty stores the value without any network call.
func (s *Simulator) SetProperty(_ context.Context, name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.props[name] = models.FromAny(value)
	return nil
}

// CallMethod applies the side effects a real device would exhibit.
func (s *Simulator) CallMethod(_ context.Context, name string, params map[string]interface{}) (models.PropertyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "move":
		if pos, ok := params["Position"]; ok {
			s.props["position"] = models.FromAny(pos)
		}
		s.props["ismoving"] = models.Bool(false)
	case "halt":
		s.props["ismoving"] = models.Bool(false)
	case "park":
		s.props["atpark"] = models.Bool(true)
		s.props["slewing"] = models.Bool(false)
	case "unpark":
		s.props["atpark"] = models.Bool(false)
	case "slewtocoordinates":
		if ra, ok := params["RightAscension"]; ok {
			s.props["rightascension"] = models.FromAny(ra)
		}
		if dec, ok := params["Declination"]; ok {
			s.props["declination"] = models.FromAny(dec)
		}
		s.props["slewing"] = models.Bool(false)
	case "startexposure":
		s.props["camerastate"] = models.Number(0)
		s.props["imageready"] = models.Bool(true)
		s.props["percentcompleted"] = models.Number(100)
	case "stopexposure", "abortexposure":
		s.props["imageready"] = models.Bool(false)
		s.props["percentcompleted"] = models.Number(0)
	}

	s.logger.Debug("Simulated method call", zap.String("method", name))
	return models.Null(), nil
}

// GetRaw synthesizes a small monochrome ImageBytes frame for imagearray
// downloads so the decode pipeline can run end to end without hardware.
func (s *Simulator) GetRaw(_ context.Context, name, _ string) ([]byte, error) {
	if name != "imagearray" {
		return nil, &Error{
			Kind:          ErrorDevice,
			Action:        name,
			DeviceCode:    0x400,
			DeviceMessage: "endpoint not implemented by simulator",
		}
	}

	s.mu.Lock()
	width := int(propNumber(s.props, "cameraxsize", 64))
	height := int(propNumber(s.props, "cameraysize", 48))
	s.mu.Unlock()

	values := make([]uint32, width*height)
	for i := range values {
		values[i] = uint32(rand.Intn(1 << 16))
	}

	return imagebytes.EncodeFrame(imagebytes.ImageMetadata{
		MetadataVersion:         1,
		DataStart:               imagebytes.HeaderSize,
		ImageElementType:        imagebytes.ElementUInt16,
		TransmissionElementType: imagebytes.ElementUInt16,
		Rank:                    2,
		Dimension1:              int32(width),
		Dimension2:              int32(height),
		Dimension3:              1,
	}, values)
}

func propNumber(props map[string]models.PropertyValue, name string, def float64) float64 {
	if v, ok := props[name]; ok {
		if n, ok := v.AsNumber(); ok {
			return n
		}
	}
	return def
}

// Verify Simulator implements the transport interfaces.
var _ DeviceTransport = (*Simulator)(nil)
var _ RawGetter = (*Simulator)(nil)
