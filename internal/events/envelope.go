// Package events publishes versioned domain events to downstream consumers.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope captures transport metadata for a domain event.
type Envelope struct {
	EventID         uuid.UUID       `json:"event_id"`
	EventType       string          `json:"event_type"`
	Aggregate       string          `json:"aggregate"`
	TimestampMicros int64           `json:"timestamp"`
	Payload         json.RawMessage `json:"payload"`
}

// EnvelopeOption customizes the generated envelope (useful in tests).
type EnvelopeOption func(*Envelope)

// WithEventID overrides the automatically generated event id.
func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *Envelope) {
		if id != uuid.Nil {
			e.EventID = id
		}
	}
}

// WithTimestamp overrides the timestamp stored in microseconds.
func WithTimestamp(ts time.Time) EnvelopeOption {
	return func(e *Envelope) {
		if ts.IsZero() {
			return
		}
		e.TimestampMicros = ts.UTC().UnixMicro()
	}
}

var (
	errMissingType = errors.New("events: event type is required")
	errNilPayload  = errors.New("events: payload required")
	nowFunc        = time.Now
)

// NewEnvelope wraps payload. The aggregate is the event type prefix, so
// "appointment.created.v1" belongs to "appointment".
func NewEnvelope(eventType string, payload any, opts ...EnvelopeOption) (Envelope, error) {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return Envelope{}, errMissingType
	}
	if payload == nil {
		return Envelope{}, errNilPayload
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	aggregate, _, _ := strings.Cut(eventType, ".")
	env := Envelope{
		EventID:         uuid.New(),
		EventType:       eventType,
		Aggregate:       aggregate,
		TimestampMicros: nowFunc().UTC().UnixMicro(),
		Payload:         data,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&env)
		}
	}
	return env, nil
}
