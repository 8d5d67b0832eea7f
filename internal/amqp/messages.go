package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

var errInvalidEvent = errors.New("invalid transaction event")

// EncodeEvent converts the event to JSON bytes.
func EncodeEvent(ev core.TransactionEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses a message body. Bodies with an unknown kind or no id
// are rejected; they would never succeed on redelivery.
func DecodeEvent(data []byte) (core.TransactionEvent, error) {
	var ev core.TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.TransactionEvent{}, err
	}
	switch ev.Kind {
	case core.EventCreated, core.EventUpdated, core.EventDeleted:
	default:
		return core.TransactionEvent{}, fmt.Errorf("%w: kind %q", errInvalidEvent, ev.Kind)
	}
	if ev.ID == "" {
		return core.TransactionEvent{}, fmt.Errorf("%w: missing id", errInvalidEvent)
	}
	return ev, nil
}
