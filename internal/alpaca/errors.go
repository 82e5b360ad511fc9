package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind is the closed classification of client failures. The lifecycle
// controller uses it to decide between escalating and logging.
type ErrorKind string

const (
	// ErrorTimeout covers request deadlines and network timeouts
	ErrorTimeout ErrorKind = "timeout"
	// ErrorNetwork covers connection and transport failures
	ErrorNetwork ErrorKind = "network"
	// ErrorServer covers non-2xx HTTP responses without a device payload
	ErrorServer ErrorKind = "server"
	// ErrorDevice covers explicit device error numbers in the Alpaca envelope
	ErrorDevice ErrorKind = "device"
	// ErrorUnknown covers everything else
	ErrorUnknown ErrorKind = "unknown"
)

// Error is a classified Alpaca client failure.
type Error struct {
	Kind ErrorKind
	// Action names the property or method that failed.
	Action string
	// StatusCode is set for server errors.
	StatusCode int
	// DeviceCode and DeviceMessage are set for device-reported errors.
	DeviceCode    int
	DeviceMessage string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorDevice:
		return fmt.Sprintf("alpaca: %s: device error %d: %s", e.Action, e.DeviceCode, e.DeviceMessage)
	case ErrorServer:
		return fmt.Sprintf("alpaca: %s: server returned HTTP %d", e.Action, e.StatusCode)
	default:
		return fmt.Sprintf("alpaca: %s: %s error: %v", e.Action, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err, or ErrorUnknown when err is not
// an alpaca.Error.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ErrorUnknown
}

// classifyTransport maps a transport-level failure to Timeout or Network.
func classifyTransport(action string, err error) *Error {
	kind := ErrorNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = ErrorTimeout
	}
	return &Error{Kind: kind, Action: action, Err: err}
}
