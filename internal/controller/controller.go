// Package controller implements the per-device lifecycle state machine:
// connect/disconnect, periodic property polling and typed event emission.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/alpaca"
	"github.com/openskies/alpaca-console/internal/events"
	"github.com/openskies/alpaca-console/internal/models"
	"github.com/openskies/alpaca-console/pkg/healthcheck"
)

// DefaultPollInterval is used for devices without a configured interval.
const DefaultPollInterval = 2 * time.Second

// TransportFactory builds the transport for a newly registered device.
// The default factory selects the HTTP client when the device has an API
// base URL and the local simulator otherwise.
type TransportFactory func(device *models.Device, logger *zap.Logger) alpaca.DeviceTransport

// DefaultTransportFactory selects between the real client and the simulator.
func DefaultTransportFactory(device *models.Device, logger *zap.Logger) alpaca.DeviceTransport {
	if device.APIBaseURL == "" {
		return alpaca.NewSimulator(device.Type, logger)
	}
	return alpaca.NewClient(device.APIBaseURL, device.Type, device.DeviceNumber, logger)
}

// Controller owns the device registry and is its only mutator. Readers get
// snapshots; all state transitions for one device id are serialized.
type Controller struct {
	logger       *zap.Logger
	bus          *events.Bus
	factory      TransportFactory
	pollInterval time.Duration

	mu      sync.RWMutex
	devices map[string]*deviceState
}

// deviceState bundles one device with its transport and polling handle.
type deviceState struct {
	// opMu serializes connect/disconnect/method calls for this device id.
	opMu sync.Mutex

	// mu guards the fields below. Never held across network calls.
	mu     sync.Mutex
	device *models.Device
	poll   *pollHandle
	// gen is bumped whenever polling stops or the device disconnects;
	// in-flight poll results carrying an older generation are dropped.
	gen uint64

	transport alpaca.DeviceTransport
}

// Option configures a Controller.
type Option func(*Controller)

// WithTransportFactory overrides transport selection, mainly for tests.
func WithTransportFactory(f TransportFactory) Option {
	return func(c *Controller) { c.factory = f }
}

// WithDefaultPollInterval overrides the fallback polling interval.
func WithDefaultPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New creates a controller publishing on bus.
func New(bus *events.Bus, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		logger:       logger.With(zap.String("component", "device_controller")),
		bus:          bus,
		factory:      DefaultTransportFactory,
		pollInterval: DefaultPollInterval,
		devices:      make(map[string]*deviceState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddDevice registers a device and emits deviceAdded. The device is not
// automatically connected.
func (c *Controller) AddDevice(device *models.Device) error {
	if device == nil {
		return fmt.Errorf("device cannot be nil")
	}
	if device.ID == "" {
		return fmt.Errorf("device id cannot be empty")
	}

	c.mu.Lock()
	if _, exists := c.devices[device.ID]; exists {
		c.mu.Unlock()
		return fmt.Errorf("device %s already registered", device.ID)
	}

	dev := device.Clone()
	if dev.Properties == nil {
		dev.Properties = make(map[string]models.PropertyValue)
	}
	now := time.Now()
	dev.CreatedAt = now
	dev.UpdatedAt = now

	st := &deviceState{
		device:    dev,
		transport: c.factory(dev, c.logger),
	}
	c.devices[device.ID] = st
	c.mu.Unlock()

	c.logger.Info("Device registered",
		zap.String("device_id", dev.ID),
		zap.String("device_type", string(dev.Type)),
		zap.Bool("simulated", dev.APIBaseURL == ""))

	c.bus.Publish(events.DeviceAddedEvent{Device: dev.Clone()})
	return nil
}

// RemoveDevice deletes a device from the registry, cancelling any active
// polling loop for its id first.
func (c *Controller) RemoveDevice(deviceID string) error {
	st, err := c.state(deviceID)
	if err != nil {
		return err
	}

	c.stopPolling(st)

	c.mu.Lock()
	delete(c.devices, deviceID)
	c.mu.Unlock()

	c.logger.Info("Device removed", zap.String("device_id", deviceID))
	c.bus.Publish(events.DeviceRemovedEvent{ID: deviceID})
	return nil
}

// Snapshot returns a copy of the device, or nil when unknown.
func (c *Controller) Snapshot(deviceID string) *models.Device {
	c.mu.RLock()
	st, ok := c.devices[deviceID]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.device.Clone()
}

// ListDevices returns snapshots of every registered device.
func (c *Controller) ListDevices() []*models.Device {
	c.mu.RLock()
	states := make([]*deviceState, 0, len(c.devices))
	for _, st := range c.devices {
		states = append(states, st)
	}
	c.mu.RUnlock()

	out := make([]*models.Device, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, st.device.Clone())
		st.mu.Unlock()
	}
	return out
}

// Connect transitions a device to Connected. With a network transport this
// writes the connected property; the simulator flips the flag locally.
// Transient failures are surfaced, never silently retried; retry policy
// belongs to the caller.
func (c *Controller) Connect(ctx context.Context, deviceID string) error {
	st, err := c.state(deviceID)
	if err != nil {
		return err
	}

	st.opMu.Lock()
	defer st.opMu.Unlock()

	st.mu.Lock()
	if st.device.IsConnected {
		st.mu.Unlock()
		return nil
	}
	st.device.IsConnecting = true
	st.device.UpdatedAt = time.Now()
	snap := st.device.Clone()
	st.mu.Unlock()
	c.bus.Publish(events.DeviceUpdatedEvent{Device: snap})

	err = st.transport.SetProperty(ctx, "connected", true)
	if err != nil {
		st.mu.Lock()
		st.device.IsConnecting = false
		st.device.LastError = err.Error()
		st.device.UpdatedAt = time.Now()
		snap = st.device.Clone()
		st.mu.Unlock()

		c.logger.Warn("Connect failed",
			zap.String("device_id", deviceID),
			zap.String("kind", string(alpaca.KindOf(err))),
			zap.Error(err))

		c.bus.Publish(events.DeviceAPIErrorEvent{ID: deviceID, Action: "connect", Error: err.Error()})
		c.bus.Publish(events.DeviceUpdatedEvent{Device: snap})
		return err
	}

	st.mu.Lock()
	st.device.IsConnecting = false
	st.device.IsConnected = true
	st.device.LastError = ""
	st.device.Properties["connected"] = models.Bool(true)
	st.device.UpdatedAt = time.Now()
	snap = st.device.Clone()
	st.mu.Unlock()

	c.logger.Info("Device connected", zap.String("device_id", deviceID))
	c.bus.Publish(events.DeviceUpdatedEvent{Device: snap})

	c.runPostConnect(ctx, st)
	return nil
}

// runPostConnect fetches one-time device details and starts status polling.
// A details failure is escalated as a deviceApiError event, unlike routine
// polling misses.
func (c *Controller) runPostConnect(ctx context.Context, st *deviceState) {
	st.mu.Lock()
	deviceID := st.device.ID
	deviceType := st.device.Type
	st.mu.Unlock()

	details := detailProperties(deviceType)
	for _, name := range details {
		v, err := st.transport.GetProperty(ctx, name)
		if err != nil {
			c.logger.Warn("Detail fetch failed",
				zap.String("device_id", deviceID),
				zap.String("property", name),
				zap.Error(err))
			c.bus.Publish(events.DeviceAPIErrorEvent{
				ID:     deviceID,
				Action: "fetchDetails",
				Error:  err.Error(),
				Params: map[string]interface{}{"property": name},
			})
			continue
		}

		st.mu.Lock()
		st.device.Properties[name] = v
		st.mu.Unlock()
		c.bus.Publish(events.DevicePropertyChangedEvent{ID: deviceID, Name: name, Value: v})
	}

	if len(statusProperties(deviceType)) > 0 {
		c.StartPolling(deviceID)
	}
}

// Disconnect stops polling, clears the connected flag and resets derived
// telemetry to null so nothing stale survives. The reset is the final word:
// a poll tick still in flight cannot overwrite it.
func (c *Controller) Disconnect(ctx context.Context, deviceID string) error {
	st, err := c.state(deviceID)
	if err != nil {
		return err
	}

	st.opMu.Lock()
	defer st.opMu.Unlock()

	st.mu.Lock()
	if !st.device.IsConnected && !st.device.IsConnecting {
		st.mu.Unlock()
		return nil
	}
	st.device.IsDisconnecting = true
	st.device.UpdatedAt = time.Now()
	snap := st.device.Clone()
	deviceType := st.device.Type
	st.mu.Unlock()
	c.bus.Publish(events.DeviceUpdatedEvent{Device: snap})

	// Polling must be gone before the connected flag flips.
	c.stopPolling(st)

	setErr := st.transport.SetProperty(ctx, "connected", false)
	if setErr != nil {
		c.logger.Warn("Disconnect request failed, clearing local state anyway",
			zap.String("device_id", deviceID),
			zap.Error(setErr))
		c.bus.Publish(events.DeviceAPIErrorEvent{ID: deviceID, Action: "disconnect", Error: setErr.Error()})
	}

	st.mu.Lock()
	st.gen++ // invalidate any result that raced past stopPolling
	st.device.IsConnected = false
	st.device.IsConnecting = false
	st.device.IsDisconnecting = false
	st.device.Properties["connected"] = models.Bool(false)
	for _, name := range derivedProperties(deviceType) {
		st.device.Properties[name] = models.Null()
	}
	st.device.UpdatedAt = time.Now()
	snap = st.device.Clone()
	st.mu.Unlock()

	c.logger.Info("Device disconnected", zap.String("device_id", deviceID))
	c.bus.Publish(events.DeviceUpdatedEvent{Device: snap})
	return setErr
}

// CallDeviceMethod invokes a device method as an explicit user action.
// Successes emit deviceMethodCalled; failures emit deviceApiError.
func (c *Controller) CallDeviceMethod(ctx context.Context, deviceID, method string, params map[string]interface{}) (models.PropertyValue, error) {
	st, err := c.state(deviceID)
	if err != nil {
		return models.Null(), err
	}

	st.opMu.Lock()
	defer st.opMu.Unlock()

	result, err := st.transport.CallMethod(ctx, method, params)
	if err != nil {
		st.mu.Lock()
		st.device.LastError = err.Error()
		st.device.UpdatedAt = time.Now()
		st.mu.Unlock()

		c.logger.Warn("Device method failed",
			zap.String("device_id", deviceID),
			zap.String("method", method),
			zap.String("kind", string(alpaca.KindOf(err))),
			zap.Error(err))

		c.bus.Publish(events.DeviceAPIErrorEvent{
			ID:     deviceID,
			Action: method,
			Error:  err.Error(),
			Params: params,
		})
		return models.Null(), err
	}

	c.bus.Publish(events.DeviceMethodCalledEvent{ID: deviceID, Method: method, Params: params})
	return result, nil
}

// FetchDeviceProperties fetches the named properties as an explicit user
// action, updating the registry and emitting devicePropertyChanged per value.
func (c *Controller) FetchDeviceProperties(ctx context.Context, deviceID string, names []string) error {
	st, err := c.state(deviceID)
	if err != nil {
		return err
	}

	var firstErr error
	for _, name := range names {
		v, fetchErr := st.transport.GetProperty(ctx, name)
		if fetchErr != nil {
			if firstErr == nil {
				firstErr = fetchErr
			}
			c.bus.Publish(events.DeviceAPIErrorEvent{
				ID:     deviceID,
				Action: "fetchProperties",
				Error:  fetchErr.Error(),
				Params: map[string]interface{}{"property": name},
			})
			continue
		}

		st.mu.Lock()
		st.device.Properties[name] = v
		st.device.UpdatedAt = time.Now()
		st.mu.Unlock()
		c.bus.Publish(events.DevicePropertyChangedEvent{ID: deviceID, Name: name, Value: v})
	}
	return firstErr
}

// Transport exposes the device transport, e.g. for camera image downloads.
func (c *Controller) Transport(deviceID string) (alpaca.DeviceTransport, error) {
	st, err := c.state(deviceID)
	if err != nil {
		return nil, err
	}
	return st.transport, nil
}

// state looks up the registry entry for a device id.
func (c *Controller) state(deviceID string) (*deviceState, error) {
	c.mu.RLock()
	st, ok := c.devices[deviceID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("device %s not registered", deviceID)
	}
	return st, nil
}

// Name implements healthcheck.Checker.
func (c *Controller) Name() string { return "device_controller" }

// Check implements healthcheck.Checker, reporting registry counts.
func (c *Controller) Check(ctx context.Context) *healthcheck.Result {
	c.mu.RLock()
	states := make([]*deviceState, 0, len(c.devices))
	for _, st := range c.devices {
		states = append(states, st)
	}
	c.mu.RUnlock()

	total := len(states)
	connected := 0
	polling := 0
	errored := 0
	for _, st := range states {
		st.mu.Lock()
		if st.device.IsConnected {
			connected++
		}
		if st.poll != nil {
			polling++
		}
		if st.device.LastError != "" {
			errored++
		}
		st.mu.Unlock()
	}

	status := healthcheck.StatusHealthy
	message := fmt.Sprintf("%d/%d devices connected, %d polling", connected, total, polling)
	if errored > 0 {
		status = healthcheck.StatusDegraded
		message = fmt.Sprintf("%d devices report errors", errored)
	}

	return &healthcheck.Result{
		ComponentName: c.Name(),
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details: map[string]interface{}{
			"total_devices":     total,
			"connected_devices": connected,
			"polling_devices":   polling,
		},
	}
}
