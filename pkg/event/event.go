package event

import (
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
)

// Event is the envelope for every signal an engine emits.
// Payloads are encoded with an EventCodec so subscribers can decode the
// struct matching the event Type (see topics.go).
type Event struct {
	// ID is a unique identifier for this event instance
	ID string `json:"id"`

	// Type is a namespaced topic (e.g., "countdown.finished", "stopwatch.lap")
	Type string `json:"type"`

	// Source identifies the emitting engine
	Source string `json:"source"`

	// Timestamp is the wall-clock time the event was created
	Timestamp time.Time `json:"timestamp"`

	// Data contains the serialized payload
	Data []byte `json:"data,omitempty"`

	// Metadata provides additional context for filtering and debugging
	Metadata map[string]string `json:"metadata,omitempty"`

	// CorrelationID ties together events from one engine run
	// (e.g., every sample of a single countdown)
	CorrelationID string `json:"correlation_id,omitempty"`
}

// EventCodec defines how to serialize and deserialize event payloads.
type EventCodec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec implements EventCodec using go-json-experiment.
type JSONCodec struct{}

// Marshal converts a payload to JSON bytes.
func (c JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes JSON bytes into a payload.
func (c JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewEvent creates a new event with a generated ID and the given timestamp.
func NewEvent(eventType, source string, ts time.Time, payload any, codec EventCodec) (*Event, error) {
	data, err := codec.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: ts,
		Data:      data,
	}, nil
}

// WithMetadata adds metadata key-value pairs to the event.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// WithCorrelationID sets the correlation ID for tracking related events.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// DecodePayload deserializes the event data into the provided struct.
func (e *Event) DecodePayload(v any, codec EventCodec) error {
	if len(e.Data) == 0 {
		return nil
	}
	return codec.Unmarshal(e.Data, v)
}

// Decode is DecodePayload for callers that know the payload type.
func Decode[T any](e Event) (T, error) {
	var v T
	err := e.DecodePayload(&v, JSONCodec{})
	return v, err
}
