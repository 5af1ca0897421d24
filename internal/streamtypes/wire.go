package streamtypes

import (
	"encoding/json"
	"fmt"
)

// envelope is the canonical payload-wrapped wire shape: a type
// discriminator, a schema version, and the entity's JSON encoding nested
// under payload.
type envelope struct {
	Type          RecordType      `json:"type"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// Encode wraps v in the canonical payload-wrapped envelope for rtype and
// returns the broker record fields to append.
func Encode(rtype RecordType, v any) (map[string]string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("streamtypes: marshal payload: %w", err)
	}
	env := envelope{Type: rtype, SchemaVersion: SchemaVersion, Payload: payload}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("streamtypes: marshal envelope: %w", err)
	}
	return map[string]string{"payload": string(raw)}, nil
}

// Decode accepts either the canonical payload-wrapped shape (a top-level
// "payload" field holding the JSON-encoded entity) or a flat shape (entity
// fields inlined directly into the broker record), and unmarshals the
// entity into v.
func Decode(fields map[string]string, v any) error {
	if payload, ok := fields["payload"]; ok && payload != "" {
		var env envelope
		if err := json.Unmarshal([]byte(payload), &env); err == nil && len(env.Payload) > 0 {
			return json.Unmarshal(env.Payload, v)
		}
		// Not an envelope: the "payload" field itself is the flat JSON blob.
		return json.Unmarshal([]byte(payload), v)
	}

	coerced := make(map[string]any, len(fields))
	for k, s := range fields {
		coerced[k] = coerceFlatValue(s)
	}
	flat, err := json.Marshal(coerced)
	if err != nil {
		return fmt.Errorf("streamtypes: remarshal flat fields: %w", err)
	}
	return json.Unmarshal(flat, v)
}

// coerceFlatValue converts a flat broker record's string field into the
// type JSON would produce for the same value, since stream backends (e.g.
// Redis hashes) carry every field as a string regardless of its logical
// type.
func coerceFlatValue(s string) any {
	var n json.Number
	if err := json.Unmarshal([]byte(s), &n); err == nil {
		return n
	}
	return s
}
