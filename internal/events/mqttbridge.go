package events

import (
	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/pkg/mqtt"
)

// MQTTBridge mirrors every bus event onto an MQTT broker so external
// observatory tooling can follow device state without polling the API.
type MQTTBridge struct {
	client *mqtt.Client
	logger *zap.Logger
	unsub  UnsubscribeFunc
	source string
}

// NewMQTTBridge wires a wildcard bus subscription to the MQTT client. The
// client is expected to be connected by the caller.
func NewMQTTBridge(bus *Bus, client *mqtt.Client, source string, logger *zap.Logger) *MQTTBridge {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &MQTTBridge{
		client: client,
		logger: logger.With(zap.String("component", "mqtt_bridge")),
		source: source,
	}
	b.unsub = bus.Subscribe(Wildcard, b.publish)
	return b
}

// Close detaches the bridge from the bus.
func (b *MQTTBridge) Close() {
	b.unsub()
}

func (b *MQTTBridge) publish(e Event) {
	msg, err := mqtt.NewMessage(mqtt.MessageTypeEvent, b.source, e)
	if err != nil {
		b.logger.Error("Failed to build event message", zap.Error(err))
		return
	}

	topic := mqtt.DeviceEventTopic(e.DeviceID(), string(e.EventType()))
	if err := b.client.PublishJSON(topic, 1, false, msg); err != nil {
		b.logger.Warn("Failed to publish event",
			zap.String("topic", topic),
			zap.Error(err))
	}
}
