// Package linestream decodes the newline-delimited event stream produced by
// the chat backend. Every line on the wire has the form
//
//	<type>: <payload>
//
// where payload is either a JSON document or a bare string. Lines are decoded
// incrementally as bytes arrive so replies can be rendered while they stream.
//
// Embedded newlines inside a payload are not supported by the wire format:
// a raw "\n" always terminates the current line.
package linestream

import (
	"encoding/json"
	"fmt"
)

// TypeUnknown is the event type assigned to lines without a ":" separator.
const TypeUnknown = "unknown"

// Well known event types emitted by the chat backend.
const (
	TypeReply            = "reply"
	TypeToolCallStarted  = "tool_call_started"
	TypeToolCallResponse = "tool_call_response"
	TypeError            = "error"
)

// Event is a single decoded line from the stream.
type Event struct {
	// Type is the trimmed text before the first ":" or TypeUnknown.
	Type string `json:"type"`

	// Payload is the decoded JSON value of the text after the separator, or
	// the trimmed text itself when it is not valid JSON.
	Payload any `json:"payload,omitempty"`

	// Raw is the whole line, set only for TypeUnknown events.
	Raw string `json:"raw,omitempty"`
}

// IsUnknown reports whether the line carried no type separator.
func (e Event) IsUnknown() bool {
	return e.Type == TypeUnknown && e.Raw != ""
}

// Text returns string payloads verbatim and any other payload JSON encoded,
// so a JSON null renders as "null".
func (e Event) Text() string {
	switch p := e.Payload.(type) {
	case nil:
		return "null"
	case string:
		return p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Sprint(p)
		}
		return string(b)
	}
}

// Object returns the payload as a JSON object when it decoded to one.
func (e Event) Object() (map[string]any, bool) {
	m, ok := e.Payload.(map[string]any)
	return m, ok
}

// Decode re-marshals the payload into v. It is the typed counterpart of
// Object for callers that know the shape of a given event type.
func (e Event) Decode(v any) error {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", e.Type, err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}

	return nil
}
