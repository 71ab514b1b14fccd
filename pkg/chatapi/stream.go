package chatapi

import (
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/papercomputeco/prems/pkg/linestream"
)

// Stream is the decoded body of one chat response. It is single pass and
// not safe for concurrent use.
type Stream struct {
	body   io.ReadCloser
	reader *linestream.Reader
	logger *slog.Logger

	count     int
	finished  bool
	closeOnce sync.Once
	closeErr  error
}

func newStream(body io.ReadCloser, logger *slog.Logger, opts ...linestream.Option) *Stream {
	return &Stream{
		body:   body,
		reader: linestream.NewReader(body, opts...),
		logger: logger,
	}
}

// Next returns the next event, or nil, nil when the backend finished.
func (s *Stream) Next() (*linestream.Event, error) {
	ev, err := s.reader.Next()
	if err != nil {
		return nil, err
	}

	if ev == nil {
		if !s.finished {
			s.finished = true
			if n := s.reader.Discarded(); n > 0 {
				s.logger.Debug("discarded unterminated trailing line", "bytes", n)
			}
			s.logger.Debug("chat stream finished", "events", s.count)
		}
		return nil, nil
	}

	s.count++
	return ev, nil
}

// All iterates the remaining events. See linestream.Reader.All.
func (s *Stream) All() iter.Seq2[linestream.Event, error] {
	return func(yield func(linestream.Event, error) bool) {
		for {
			ev, err := s.Next()
			if err != nil {
				yield(linestream.Event{}, err)
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

// Close releases the response body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
