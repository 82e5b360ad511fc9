package controller

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/alpaca"
	"github.com/openskies/alpaca-console/internal/events"
	"github.com/openskies/alpaca-console/internal/models"
)

// fakeTransport is a scriptable transport for controller tests.
type fakeTransport struct {
	mu       sync.Mutex
	props    map[string]models.PropertyValue
	getCount map[string]int
	getDelay time.Duration
	failSet  error
	failGet  map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		props: map[string]models.PropertyValue{
			"position":     models.Number(1000),
			"ismoving":     models.Bool(false),
			"temperature":  models.Number(4.2),
			"tempcomp":     models.Bool(false),
			"maxstep":      models.Number(50000),
			"maxincrement": models.Number(1000),
			"stepsize":     models.Number(1.5),
		},
		getCount: make(map[string]int),
		failGet:  make(map[string]error),
	}
}

func (f *fakeTransport) GetProperty(ctx context.Context, name string) (models.PropertyValue, error) {
	f.mu.Lock()
	f.getCount[name]++
	delay := f.getDelay
	err := f.failGet[name]
	v, ok := f.props[name]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return models.Null(), err
	}
	if !ok {
		return models.Null(), fmt.Errorf("no such property %s", name)
	}
	return v, nil
}

func (f *fakeTransport) SetProperty(ctx context.Context, name string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return f.failSet
	}
	f.props[name] = models.FromAny(value)
	return nil
}

func (f *fakeTransport) CallMethod(ctx context.Context, name string, params map[string]interface{}) (models.PropertyValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failGet[name]; err != nil {
		return models.Null(), err
	}
	return models.Bool(true), nil
}

func (f *fakeTransport) totalGets(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCount[name]
}

// recorder collects published events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestController(t *testing.T, transport alpaca.DeviceTransport, interval time.Duration) (*Controller, *recorder) {
	t.Helper()

	bus := events.NewBus(nil)
	rec := &recorder{}
	bus.Subscribe(events.Wildcard, rec.handle)

	ctrl := New(bus, zap.NewNop(),
		WithDefaultPollInterval(interval),
		WithTransportFactory(func(*models.Device, *zap.Logger) alpaca.DeviceTransport {
			return transport
		}))
	return ctrl, rec
}

func focuserDevice(id string) *models.Device {
	return &models.Device{ID: id, Name: "Test Focuser", Type: models.DeviceTypeFocuser}
}

func TestAddAndRemoveDevice(t *testing.T) {
	ctrl, rec := newTestController(t, newFakeTransport(), time.Second)

	require.NoError(t, ctrl.AddDevice(focuserDevice("f1")))
	assert.Error(t, ctrl.AddDevice(focuserDevice("f1")), "duplicate id rejected")
	assert.Error(t, ctrl.AddDevice(nil))
	assert.Error(t, ctrl.AddDevice(&models.Device{}))

	assert.Len(t, rec.ofType(events.DeviceAdded), 1)
	assert.Len(t, ctrl.ListDevices(), 1)
	assert.NotNil(t, ctrl.Snapshot("f1"))
	assert.Nil(t, ctrl.Snapshot("missing"))

	require.NoError(t, ctrl.RemoveDevice("f1"))
	assert.Len(t, rec.ofType(events.DeviceRemoved), 1)
	assert.Error(t, ctrl.RemoveDevice("f1"))
}

func TestConnectFetchesDetailsAndStartsPolling(t *testing.T) {
	ft := newFakeTransport()
	ctrl, rec := newTestController(t, ft, 20*time.Millisecond)

	require.NoError(t, ctrl.AddDevice(focuserDevice("f1")))
	require.NoError(t, ctrl.Connect(context.Background(), "f1"))

	dev := ctrl.Snapshot("f1")
	require.NotNil(t, dev)
	assert.True(t, dev.IsConnected)
	assert.False(t, dev.IsConnecting)

	// Static details fetched once after connect.
	n, ok := dev.Property("maxstep").AsNumber()
	require.True(t, ok)
	assert.Equal(t, 50000.0, n)

	assert.True(t, ctrl.IsPolling("f1"))

	// Status values arrive on the next ticks.
	assert.Eventually(t, func() bool {
		d := ctrl.Snapshot("f1")
		_, ok := d.Property("position").AsNumber()
		return ok
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, ctrl.Disconnect(context.Background(), "f1"))
	assert.False(t, ctrl.IsPolling("f1"))
	assert.NotEmpty(t, rec.ofType(events.DeviceUpdated))
}

func TestConnectFailureEscalates(t *testing.T) {
	ft := newFakeTransport()
	ft.failSet = &alpaca.Error{Kind: alpaca.ErrorNetwork, Action: "connected", Err: fmt.Errorf("connection refused")}
	ctrl, rec := newTestController(t, ft, time.Second)

	require.NoError(t, ctrl.AddDevice(focuserDevice("f1")))
	err := ctrl.Connect(context.Background(), "f1")
	require.Error(t, err)
	assert.Equal(t, alpaca.ErrorNetwork, alpaca.KindOf(err))

	dev := ctrl.Snapshot("f1")
	assert.False(t, dev.IsConnected)
	assert.False(t, dev.IsConnecting)
	assert.NotEmpty(t, dev.LastError)

	apiErrors := rec.ofType(events.DeviceAPIError)
	require.Len(t, apiErrors, 1)
	assert.Equal(t, "connect", apiErrors[0].(events.DeviceAPIErrorEvent).Action)

	assert.False(t, ctrl.IsPolling("f1"), "no polling after a failed connect")
}

func TestDetailFetchFailureEscalatesButConnects(t *testing.T) {
	ft := newFakeTransport()
	ft.failGet["maxstep"] = &alpaca.Error{Kind: alpaca.ErrorDevice, Action: "maxstep", DeviceCode: 0x400}
	ctrl, rec := newTestController(t, ft, 20*time.Millisecond)

	require.NoError(t, ctrl.AddDevice(focuserDevice("f1")))
	require.NoError(t, ctrl.Connect(context.Background(), "f1"))
	defer ctrl.Disconnect(context.Background(), "f1")

	dev := ctrl.Snapshot("f1")
	assert.True(t, dev.IsConnected, "a failed detail fetch does not abort the connect")

	apiErrors := rec.ofType(events.DeviceAPIError)
	require.NotEmpty(t, apiErrors)
	assert.Equal(t, "fetchDetails", apiErrors[0].(events.DeviceAPIErrorEvent).Action)

	// The remaining details still arrive.
	_, ok := dev.Property("maxincrement").AsNumber()
	assert.True(t, ok)
}

func TestStartPollingTwiceLeavesOneTimer(t *testing.T) {
	ft := newFakeTransport()
	ctrl, _ := newTestController(t, ft, 10*time.Millisecond)

	require.NoError(t, ctrl.AddDevice(focuserDevice("f1")))
	require.NoError(t, ctrl.StartPolling("f1"))
	require.NoError(t, ctrl.StartPolling("f1"))
	assert.True(t, ctrl.IsPolling("f1"))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, ctrl.StopPolling("f1"))
	assert.False(t, ctrl.IsPolling("f1"))

	// A single StopPolling silences everything. A leaked second timer would
	// keep fetching after this point.
	settled := ft.totalGets("position")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, ft.totalGets("position"))
}

func TestDisconnectWinsOverInFlightPollTick(t *testing.T) {
	ft := newFakeTransport()
	ft.getDelay = 20 * time.Millisecond // keeps a tick in flight during disconnect
	ctrl, _ := newTestController(t, ft, 10*time.Millisecond)

	require.NoError(t, ctrl.AddDevice(focuserDevice("f1")))
	require.NoError(t, ctrl.Connect(context.Background(), "f1"))
	require.True(t, ctrl.IsPolling("f1"))

	// Let a tick start, then disconnect while its fetches are sleeping.
	time.Sleep(15 * time.Millisecond)
	require.NoError(t, ctrl.Disconnect(context.Background(), "f1"))

	derived := []string{"position", "ismoving", "temperature", "stepsize", "maxstep", "maxincrement", "tempcomp"}
	dev := ctrl.Snapshot("f1")
	for _, name := range derived {
		assert.True(t, dev.Property(name).IsNull(), "property %s must be null after disconnect", name)
	}

	// The reset is the final word: nothing the late tick fetched may
	// reappear afterwards.
	time.Sleep(50 * time.Millisecond)
	dev = ctrl.Snapshot("f1")
	for _, name := range derived {
		assert.True(t, dev.Property(name).IsNull(), "property %s overwritten by late poll result", name)
	}
	assert.False(t, dev.IsConnected)
}

func TestCallDeviceMethodEvents(t *testing.T) {
	ft := newFakeTransport()
	ctrl, rec := newTestController(t, ft, time.Second)

	require.NoError(t, ctrl.AddDevice(focuserDevice("f1")))

	t.Run("success emits deviceMethodCalled", func(t *testing.T) {
		v, err := ctrl.CallDeviceMethod(context.Background(), "f1", "move", map[string]interface{}{"Position": 2000})
		require.NoError(t, err)
		b, _ := v.AsBool()
		assert.True(t, b)

		called := rec.ofType(events.DeviceMethodCalled)
		require.Len(t, called, 1)
		assert.Equal(t, "move", called[0].(events.DeviceMethodCalledEvent).Method)
	})

	t.Run("failure emits deviceApiError", func(t *testing.T) {
		ft.mu.Lock()
		ft.failGet["halt"] = &alpaca.Error{Kind: alpaca.ErrorTimeout, Action: "halt", Err: context.DeadlineExceeded}
		ft.mu.Unlock()

		_, err := ctrl.CallDeviceMethod(context.Background(), "f1", "halt", nil)
		require.Error(t, err)

		apiErrors := rec.ofType(events.DeviceAPIError)
		require.Len(t, apiErrors, 1)
		ev := apiErrors[0].(events.DeviceAPIErrorEvent)
		assert.Equal(t, "halt", ev.Action)

		dev := ctrl.Snapshot("f1")
		assert.NotEmpty(t, dev.LastError)
	})
}

func TestFetchDevicePropertiesEmitsChanges(t *testing.T) {
	ft := newFakeTransport()
	ctrl, rec := newTestController(t, ft, time.Second)

	require.NoError(t, ctrl.AddDevice(focuserDevice("f1")))
	require.NoError(t, ctrl.FetchDeviceProperties(context.Background(), "f1", []string{"position", "temperature"}))

	changed := rec.ofType(events.DevicePropertyChanged)
	assert.Len(t, changed, 2)

	dev := ctrl.Snapshot("f1")
	n, ok := dev.Property("temperature").AsNumber()
	require.True(t, ok)
	assert.Equal(t, 4.2, n)
}

func TestDefaultTransportFactory(t *testing.T) {
	sim := DefaultTransportFactory(focuserDevice("f1"), zap.NewNop())
	_, isSim := sim.(*alpaca.Simulator)
	assert.True(t, isSim, "no base URL selects the simulator")

	dev := focuserDevice("f2")
	dev.APIBaseURL = "http://focuser.local:11111"
	real := DefaultTransportFactory(dev, zap.NewNop())
	_, isClient := real.(*alpaca.Client)
	assert.True(t, isClient, "base URL selects the network client")
}

func TestSimulatedConnectFlow(t *testing.T) {
	// End to end with the real default factory: no base URL, no network.
	bus := events.NewBus(nil)
	ctrl := New(bus, zap.NewNop(), WithDefaultPollInterval(20*time.Millisecond))

	require.NoError(t, ctrl.AddDevice(focuserDevice("sim1")))
	require.NoError(t, ctrl.Connect(context.Background(), "sim1"))

	dev := ctrl.Snapshot("sim1")
	assert.True(t, dev.IsConnected)
	assert.True(t, ctrl.IsPolling("sim1"))

	require.NoError(t, ctrl.Disconnect(context.Background(), "sim1"))
	assert.False(t, ctrl.IsPolling("sim1"))
	assert.False(t, ctrl.Snapshot("sim1").IsConnected)
}
