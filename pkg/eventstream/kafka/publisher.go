// Package kafka provides an eventstream.Publisher backed by segmentio/kafka-go.
// Events are keyed by request id so a single chat response lands on one
// partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/prems/pkg/eventstream"
	"github.com/papercomputeco/prems/pkg/logger"
)

const defaultWriteTimeout = 10 * time.Second

// Config is the configuration for a Kafka publisher.
type Config struct {
	// Brokers is the list of seed brokers, host:port.
	Brokers []string

	// Topic receives every recorded event.
	Topic string

	// ClientID identifies the producer to the cluster.
	ClientID string

	// WriteTimeout bounds a single write. Defaults to 10s.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher publishes recorded events to a Kafka topic.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewPublisher validates c and builds a Kafka writer. No connection is made
// until the first Publish.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	transport := &kafkago.Transport{ClientID: c.ClientID}
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(c.Brokers...),
		Topic:        c.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		WriteTimeout: c.WriteTimeout,
		Transport:    transport,
	}

	return newPublisher(writer, c.Topic, c.Logger), nil
}

func newPublisher(w messageWriter, topic string, log *slog.Logger) *Publisher {
	return &Publisher{writer: w, topic: topic, logger: log}
}

// Publish writes event to the topic, keyed by its request id.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.RecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling recorded event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.RequestID),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "line_type", Value: []byte(event.Event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to kafka topic %s: %w", p.topic, err)
	}

	p.logger.Debug("published recorded event",
		"topic", p.topic,
		"request_id", event.RequestID,
		"sequence", event.Sequence,
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
