// Package kafka publishes turn events to a Kafka topic with segmentio/kafka-go.
// Messages are keyed by session id so the turns of one session stay ordered
// within a partition.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "tutor.turns"

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// Writer overrides the kafka-go writer built from Brokers and Topic.
	Writer MessageWriter
}

// Publisher writes one Kafka message per committed turn.
type Publisher struct {
	writer MessageWriter
	topic  string
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(c Config) (*Publisher, error) {
	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := c.Writer
	if writer == nil {
		if len(c.Brokers) == 0 {
			return nil, errors.New("kafka publisher requires at least one broker")
		}
		writer = &kafkago.Writer{
			Addr:                   kafkago.TCP(c.Brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		}
	}

	return &Publisher{writer: writer, topic: topic}, nil
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishTurn encodes event as JSON and writes it keyed by session id.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnCommittedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	value, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding turn event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Turn.SessionID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing turn event: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
