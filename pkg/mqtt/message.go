package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes the payload kinds published on the bus.
type MessageType string

const (
	// MessageTypeEvent carries a device event
	MessageTypeEvent MessageType = "event"
	// MessageTypeStatus carries a health/status update
	MessageTypeStatus MessageType = "status"
)

// Message is the envelope for every payload the console publishes.
type Message struct {
	// ID is a unique identifier for this message
	ID string `json:"id"`
	// Type indicates the payload kind
	Type MessageType `json:"type"`
	// Source identifies the sender (e.g., "alpaca-console")
	Source string `json:"source"`
	// Timestamp when the message was created
	Timestamp time.Time `json:"timestamp"`
	// Payload contains the actual message data as JSON
	Payload json.RawMessage `json:"payload"`
}

// NewMessage wraps a payload in an envelope.
func NewMessage(msgType MessageType, source string, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payloadBytes,
	}, nil
}

// UnmarshalPayload deserializes the payload into the provided structure.
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}
