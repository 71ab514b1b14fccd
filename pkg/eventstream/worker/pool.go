// Package worker provides an asynchronous worker pool in front of an
// eventstream.Publisher.
//
// The pool decouples slow sinks (files on network mounts, Kafka) from the
// decode loop so rendering a reply never waits on recording it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/prems/pkg/eventstream"
	"github.com/papercomputeco/prems/pkg/logger"
)

var (
	// A single worker keeps events in the order they were decoded.
	defaultNumWorkers     uint = 1
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// ErrQueueFull is returned by Publish when the event had to be dropped.
var ErrQueueFull = errors.New("recording queue full, event dropped")

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher is the sink every queued event is handed to.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool. More than
	// one worker gives up ordering between events.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each call to the underlying publisher.
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes recorded events asynchronously via a worker pool.
// Pool itself satisfies eventstream.Publisher.
type Pool struct {
	config *Config
	queue  chan *eventstream.RecordedEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ eventstream.Publisher = (*Pool)(nil)

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.RecordedEvent, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits an event for publishing.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the event being dropped.
func (p *Pool) Enqueue(event *eventstream.RecordedEvent) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.queue <- event:
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"request_id", event.RequestID,
			"sequence", event.Sequence,
		)
		return false
	}
}

// Publish enqueues event without waiting for the sink.
func (p *Pool) Publish(_ context.Context, event *eventstream.RecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	if !p.Enqueue(event) {
		p.mu.RLock()
		closed := p.closed
		p.mu.RUnlock()
		if closed {
			return eventstream.ErrClosed
		}
		return ErrQueueFull
	}
	return nil
}

// Close stops accepting events, waits for in-flight events to drain and
// closes the underlying publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker loop that continuously pulls events off the queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("recording worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("recording worker stopped", "worker_id", id)
}

// publish hands one event to the sink. Failures are logged, never returned,
// so a broken sink cannot interrupt a chat.
func (p *Pool) publish(event *eventstream.RecordedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("failed to record event",
			"request_id", event.RequestID,
			"sequence", event.Sequence,
			"error", err,
		)
		return
	}

	p.logger.Debug("recorded event",
		"request_id", event.RequestID,
		"sequence", event.Sequence,
		"type", event.Event.Type,
	)
}
