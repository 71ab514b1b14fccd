package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/prems/pkg/linestream"
)

const (
	// SchemaVersionV1 is the first version of the recorded event schema.
	SchemaVersionV1 = 1

	// EventTypeLineDecoded is emitted for every event decoded from a chat stream.
	EventTypeLineDecoded = "prems.line.decoded"
)

// RecordedEvent is a transport-neutral envelope around one decoded stream
// event, tagged with the request that produced it.
type RecordedEvent struct {
	SchemaVersion int              `json:"schema_version"`
	EventType     string           `json:"event_type"`
	EventID       string           `json:"event_id"`
	EmittedAt     time.Time        `json:"emitted_at"`
	RequestID     string           `json:"request_id"`
	Sequence      int              `json:"sequence"`
	Event         linestream.Event `json:"event"`
}

// NewRecordedEvent wraps ev as the seq'th event of requestID.
func NewRecordedEvent(requestID string, seq int, ev linestream.Event) *RecordedEvent {
	return &RecordedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeLineDecoded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		RequestID:     requestID,
		Sequence:      seq,
		Event:         ev,
	}
}
