package linestream

import "bytes"

// Splitter is the incremental line splitter at the heart of the decoder.
// Chunks are appended with Write and every complete line is turned into an
// Event immediately; only the unterminated tail is retained between calls.
//
// A Splitter belongs to exactly one stream and is not reusable once Close
// has been called.
type Splitter struct {
	buf       []byte
	flush     bool
	closed    bool
	discarded int
}

// NewSplitter returns a Splitter configured with the given options. Only
// WithFlushTrailing affects a Splitter; reader options are ignored.
func NewSplitter(opts ...Option) *Splitter {
	cfg := newConfig(opts...)
	return &Splitter{flush: cfg.flushTrailing}
}

// Write appends chunk to the buffer and returns the events for every line
// terminated within it, in arrival order. Empty chunks are allowed.
func (s *Splitter) Write(chunk []byte) []Event {
	if s.closed {
		return nil
	}

	s.buf = append(s.buf, chunk...)

	var events []Event
	for {
		nl := bytes.IndexByte(s.buf, '\n')
		if nl < 0 {
			break
		}

		line := string(s.buf[:nl])
		s.buf = s.buf[nl+1:]

		if ev, ok := ParseLine(line); ok {
			events = append(events, ev)
		}
	}

	// Compact so a long lived tail does not pin the consumed prefix.
	if len(s.buf) == 0 {
		s.buf = nil
	} else if cap(s.buf) > 2*len(s.buf) {
		s.buf = append([]byte(nil), s.buf...)
	}

	return events
}

// Pending is the number of buffered bytes not yet terminated by a newline.
func (s *Splitter) Pending() int {
	return len(s.buf)
}

// Discarded is the size of the unterminated tail dropped by Close.
func (s *Splitter) Discarded() int {
	return s.discarded
}

// Close marks the end of the stream and clears the buffer. Content left
// without a terminating newline is discarded unless the Splitter was built
// with WithFlushTrailing(true), in which case it is parsed as a final line.
func (s *Splitter) Close() []Event {
	if s.closed {
		return nil
	}
	s.closed = true

	tail := s.buf
	s.buf = nil

	if !s.flush {
		s.discarded = len(tail)
		return nil
	}

	if ev, ok := ParseLine(string(tail)); ok {
		return []Event{ev}
	}
	return nil
}
