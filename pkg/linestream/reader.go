package linestream

import (
	"errors"
	"io"
	"iter"
)

// Reader pulls chunks from a source io.Reader and yields Events one at a
// time. It is the lazy, single pass view of a Splitter bound to a transport
// stream.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │ chunks
// ▼
// ┌──────────────────┐
// │     Splitter     │ retains only the unterminated tail
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │  Reader.Next()   │──▶ Event
// └──────────────────┘
type Reader struct {
	src      io.Reader
	splitter *Splitter
	chunk    []byte
	maxLine  int

	// pending holds events decoded from the last chunk and not yet returned.
	pending []Event
	done    bool
	err     error
}

// NewReader returns a Reader decoding events from src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	cfg := newConfig(opts...)

	return &Reader{
		src:      src,
		splitter: &Splitter{flush: cfg.flushTrailing},
		chunk:    make([]byte, cfg.chunkSize),
		maxLine:  cfg.maxLineSize,
	}
}

// Next returns the next event. It blocks until a complete line is available
// and returns nil, nil once the source is exhausted. Errors from the source
// are returned as is; once an error has been returned every later call
// returns it again.
func (r *Reader) Next() (*Event, error) {
	for {
		if len(r.pending) > 0 {
			ev := r.pending[0]
			r.pending = r.pending[1:]
			return &ev, nil
		}

		if r.err != nil {
			return nil, r.err
		}

		if r.done {
			return nil, nil
		}

		r.fill()
	}
}

// fill performs one read from the source and queues the decoded events.
func (r *Reader) fill() {
	n, err := r.src.Read(r.chunk)
	if n > 0 {
		r.pending = append(r.pending, r.splitter.Write(r.chunk[:n])...)

		if r.maxLine > 0 && r.splitter.Pending() > r.maxLine {
			r.splitter.Close()
			r.err = ErrLineTooLong
			return
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		r.pending = append(r.pending, r.splitter.Close()...)
		r.done = true
	default:
		r.splitter.Close()
		r.err = err
	}
}

// Pending is the number of buffered bytes of a line still awaiting its
// newline.
func (r *Reader) Pending() int {
	return r.splitter.Pending()
}

// Discarded is the size of the trailing partial line dropped at end of
// stream. It is only meaningful once Next has returned nil, nil.
func (r *Reader) Discarded() int {
	return r.splitter.Discarded()
}

// All returns an iterator over the remaining events. Iteration stops after
// the first error, which is yielded with a zero Event.
func (r *Reader) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := r.Next()
			if err != nil {
				yield(Event{}, err)
				return
			}
			if ev == nil {
				return
			}
			if !yield(*ev, nil) {
				return
			}
		}
	}
}

// Decode reads every event from src and returns them in order. It is meant
// for tests and small bodies; streaming callers should use Reader.
func Decode(src io.Reader, opts ...Option) ([]Event, error) {
	var events []Event
	for ev, err := range NewReader(src, opts...).All() {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}
