package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"financeflow/internal/ledger"
)

const messageVersion = 1

var ErrMalformedMessage = errors.New("malformed event message")

// EventMessage is the wire envelope for a ledger event. Consumers re-read
// current state from the store; the event only names what changed.
type EventMessage struct {
	Version   int          `json:"version"`
	Event     ledger.Event `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewEventMessage(e ledger.Event) *EventMessage {
	return &EventMessage{
		Version:   messageVersion,
		Event:     e,
		Timestamp: time.Now(),
	}
}

func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Version != messageVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedMessage, msg.Version)
	}
	if msg.Event.Type == "" || msg.Event.Owner == "" {
		return nil, fmt.Errorf("%w: missing event type or owner", ErrMalformedMessage)
	}
	return &msg, nil
}
