package alpaca

import (
	"context"

	"github.com/openskies/alpaca-console/internal/models"
)

// DeviceTransport abstracts how property and method traffic reaches a
// device. A real HTTP client and a local simulator both implement it, so
// the lifecycle controller never branches on "is there a client".
type DeviceTransport interface {
	// GetProperty fetches a named device property.
	GetProperty(ctx context.Context, name string) (models.PropertyValue, error)
	// SetProperty writes a named device property.
	SetProperty(ctx context.Context, name string, value interface{}) error
	// CallMethod invokes a device method with named arguments.
	CallMethod(ctx context.Context, name string, params map[string]interface{}) (models.PropertyValue, error)
}
