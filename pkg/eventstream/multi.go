package eventstream

import (
	"context"
	"errors"
)

// multiPublisher fans out every event to several publishers. Used by the chat
// command when both --record and --kafka-brokers are set.
type multiPublisher struct {
	publishers []Publisher
}

// Multi returns a Publisher that publishes to every p in order. Errors from
// individual publishers are joined; one failing sink does not skip the rest.
func Multi(publishers ...Publisher) Publisher {
	if len(publishers) == 1 {
		return publishers[0]
	}
	return &multiPublisher{publishers: publishers}
}

func (m *multiPublisher) Publish(ctx context.Context, event *RecordedEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
