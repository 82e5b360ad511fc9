package mqtt

import (
	"fmt"
	"strings"
)

// Topic conventions for the console.
// Format: alpacaconsole/device/{device_id}/event/{event_type}
const (
	// TopicPrefix is the root prefix for all console topics
	TopicPrefix = "alpacaconsole"

	segmentDevice = "device"
	segmentEvent  = "event"
	segmentHealth = "health"
)

// DeviceEventTopic returns the publish topic for one device event type.
func DeviceEventTopic(deviceID, eventType string) string {
	return strings.Join([]string{TopicPrefix, segmentDevice, deviceID, segmentEvent, eventType}, "/")
}

// DeviceEventWildcard subscribes to every event of every device.
func DeviceEventWildcard() string {
	return strings.Join([]string{TopicPrefix, segmentDevice, "+", segmentEvent, "#"}, "/")
}

// HealthTopic returns the console health status topic.
func HealthTopic() string {
	return strings.Join([]string{TopicPrefix, segmentHealth, "status"}, "/")
}

// ParseDeviceEventTopic extracts the device id and event type from a topic.
func ParseDeviceEventTopic(topic string) (deviceID, eventType string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != TopicPrefix || parts[1] != segmentDevice || parts[3] != segmentEvent {
		return "", "", fmt.Errorf("invalid device event topic: %s", topic)
	}
	return parts[2], parts[4], nil
}
