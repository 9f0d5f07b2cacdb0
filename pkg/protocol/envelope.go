package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire format for every message in both directions:
// a type tag plus a type-specific JSON payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope builds an outbound envelope from a typed payload.
func NewEnvelope(eventType string, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: eventType}, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return Envelope{Type: eventType, Data: data}, nil
}

// DecodeData unmarshals the envelope payload into the given struct.
func (e *Envelope) DecodeData(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("empty payload for %s", e.Type)
	}
	return json.Unmarshal(e.Data, v)
}

// ParseEnvelope parses a raw inbound frame. The type tag is required;
// payload validation is left to the per-type Validate methods.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope missing type")
	}
	return &env, nil
}
