// Package jsonl provides an eventstream.Publisher appending one JSON document
// per recorded event to a writer, typically a file given with --record.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/papercomputeco/prems/pkg/eventstream"
)

// Publisher writes recorded events as JSON lines.
type Publisher struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	closed bool
}

// NewPublisher writes to w. If w is also an io.Closer it is closed by Close.
func NewPublisher(w io.Writer) *Publisher {
	p := &Publisher{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		p.closer = c
	}
	return p
}

// NewFilePublisher appends to the file at path, creating it if needed.
func NewFilePublisher(path string) (*Publisher, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening record file: %w", err)
	}
	return NewPublisher(f), nil
}

// Publish encodes event as a single line.
func (p *Publisher) Publish(_ context.Context, event *eventstream.RecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return eventstream.ErrClosed
	}

	if err := p.enc.Encode(event); err != nil {
		return fmt.Errorf("writing recorded event: %w", err)
	}
	return nil
}

// Close closes the underlying writer when it is closable.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
