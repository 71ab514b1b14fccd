// Package eventstream records decoded chat events to external sinks. The
// decoder never depends on a sink; recording is strictly a tee.
package eventstream

import "context"

// Publisher publishes recorded events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *RecordedEvent) error
	Close() error
}
