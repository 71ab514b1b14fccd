package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/papercomputeco/prems/pkg/chatapi"
	"github.com/papercomputeco/prems/pkg/eventstream"
	"github.com/papercomputeco/prems/pkg/eventstream/nop"
	"github.com/papercomputeco/prems/pkg/logger"
)

// ErrBusy is returned by Send while another request is still streaming.
var ErrBusy = errors.New("a reply is still streaming")

// Streamer opens a chat stream for one message. *chatapi.Client satisfies it.
type Streamer interface {
	StreamChat(ctx context.Context, message string) (*chatapi.Stream, error)
}

// Sink receives every change as it is applied. It runs on the Send goroutine.
type Sink func(Change)

// ConversationConfig configures a Conversation.
type ConversationConfig struct {
	Streamer  Streamer
	Publisher eventstream.Publisher
	Logger    *slog.Logger
}

// Conversation drives a Transcript from a Streamer, allowing at most one
// request in flight.
type Conversation struct {
	transcript *Transcript
	streamer   Streamer
	publisher  eventstream.Publisher
	logger     *slog.Logger
	busy       atomic.Bool
}

// NewConversation binds t to a streamer. A nil publisher records nothing.
func NewConversation(t *Transcript, c *ConversationConfig) *Conversation {
	pub := c.Publisher
	if pub == nil {
		pub = nop.NewPublisher()
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Conversation{
		transcript: t,
		streamer:   c.Streamer,
		publisher:  pub,
		logger:     log,
	}
}

// Transcript returns the transcript the conversation writes to.
func (c *Conversation) Transcript() *Transcript {
	return c.transcript
}

// Busy reports whether a Send is in progress.
func (c *Conversation) Busy() bool {
	return c.busy.Load()
}

// Send posts text and applies the streamed reply to the transcript, calling
// sink for every change. Backend error events are recorded in the transcript
// and do not end the stream. Transport and decode errors are recorded with
// Transcript.Fail and returned.
func (c *Conversation) Send(ctx context.Context, text string, sink Sink) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	requestID := uuid.NewString()
	log := c.logger.With("request_id", requestID)

	c.transcript.Begin(text)

	stream, err := c.streamer.StreamChat(ctx, text)
	if err != nil {
		c.transcript.Fail(err)
		return err
	}
	defer stream.Close()

	seq := 0
	for ev, err := range stream.All() {
		if err != nil {
			err = fmt.Errorf("reading chat stream: %w", err)
			c.transcript.Fail(err)
			return err
		}

		if perr := c.publisher.Publish(ctx, eventstream.NewRecordedEvent(requestID, seq, ev)); perr != nil {
			log.Warn("failed to record event", "sequence", seq, "error", perr)
		}
		seq++

		change := c.transcript.Apply(ev)
		if change.Kind == ChangeUnhandled {
			log.Debug("unhandled event", "type", ev.Type, "raw", ev.Raw)
		}
		if sink != nil {
			sink(change)
		}
	}

	log.Debug("reply complete", "events", seq)
	return nil
}
