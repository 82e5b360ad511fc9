package controller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/events"
	"github.com/openskies/alpaca-console/internal/models"
)

// pollHandle is the cancellable state of one polling loop. At most one
// exists per device id.
type pollHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	gen    uint64
}

// StartPolling begins the periodic status fetch loop for a device. If a
// loop is already running for the id it is cancelled and awaited first, so
// two timers can never coexist.
func (c *Controller) StartPolling(deviceID string) error {
	st, err := c.state(deviceID)
	if err != nil {
		return err
	}

	// Never allow two concurrent timers for the same device.
	c.stopPolling(st)

	st.mu.Lock()
	interval := st.device.PollInterval
	if interval <= 0 {
		interval = c.pollInterval
	}
	deviceType := st.device.Type
	st.gen++
	gen := st.gen

	ctx, cancel := context.WithCancel(context.Background())
	handle := &pollHandle{
		cancel: cancel,
		done:   make(chan struct{}),
		gen:    gen,
	}
	st.poll = handle
	st.mu.Unlock()

	c.logger.Info("Polling started",
		zap.String("device_id", deviceID),
		zap.Duration("interval", interval))

	go c.pollLoop(ctx, st, handle, deviceID, deviceType, interval)
	return nil
}

// StopPolling cancels the active polling loop for a device, if any, and
// waits for it to finish.
func (c *Controller) StopPolling(deviceID string) error {
	st, err := c.state(deviceID)
	if err != nil {
		return err
	}
	c.stopPolling(st)
	return nil
}

// IsPolling reports whether a polling loop is active for the device.
func (c *Controller) IsPolling(deviceID string) bool {
	st, err := c.state(deviceID)
	if err != nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.poll != nil
}

// stopPolling detaches and cancels the current handle, bumps the generation
// so late results are dropped, and waits for the loop goroutine to exit.
func (c *Controller) stopPolling(st *deviceState) {
	st.mu.Lock()
	handle := st.poll
	st.poll = nil
	st.gen++
	st.mu.Unlock()

	if handle == nil {
		return
	}
	handle.cancel()
	<-handle.done
}

// pollLoop runs the status fetch on a ticker until cancelled.
func (c *Controller) pollLoop(ctx context.Context, st *deviceState, handle *pollHandle, deviceID string, deviceType models.DeviceType, interval time.Duration) {
	defer close(handle.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Polling stopped", zap.String("device_id", deviceID))
			return
		case <-ticker.C:
			c.pollTick(ctx, st, handle.gen, deviceID, deviceType)
		}
	}
}

// pollTick fetches the type-specific status properties once. Failures are
// logged, not escalated: a missed poll is routine, unlike a failed user
// action or details fetch.
func (c *Controller) pollTick(ctx context.Context, st *deviceState, gen uint64, deviceID string, deviceType models.DeviceType) {
	names := statusProperties(deviceType)
	fetched := make(map[string]models.PropertyValue, len(names))

	for _, name := range names {
		v, err := st.transport.GetProperty(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("Poll fetch failed",
				zap.String("device_id", deviceID),
				zap.String("property", name),
				zap.Error(err))
			continue
		}
		fetched[name] = v
	}

	if len(fetched) == 0 {
		return
	}

	// Drop the whole result if polling was cancelled or the device
	// disconnected while the fetches were in flight.
	st.mu.Lock()
	if st.gen != gen {
		st.mu.Unlock()
		return
	}
	changed := make([]events.DevicePropertyChangedEvent, 0, len(fetched))
	for name, v := range fetched {
		if prev, ok := st.device.Properties[name]; ok && prev.String() == v.String() {
			continue
		}
		st.device.Properties[name] = v
		changed = append(changed, events.DevicePropertyChangedEvent{ID: deviceID, Name: name, Value: v})
	}
	if len(changed) > 0 {
		st.device.UpdatedAt = time.Now()
	}
	st.mu.Unlock()

	for _, ev := range changed {
		c.bus.Publish(ev)
	}
}
