package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic is the Kafka topic used when KAFKA_TOPIC is unset.
const DefaultTopic = "ragqa.documents"

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes DocumentIngested events as JSON to a Kafka topic,
// keyed by document source so events for one document stay ordered.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// KafkaConfig holds the settings for constructing a KafkaPublisher.
type KafkaConfig struct {
	// Brokers is the list of bootstrap broker addresses (host:port).
	Brokers []string
	// Topic is the destination topic. Defaults to DefaultTopic.
	Topic string
	// WriteTimeout bounds each write. Defaults to 10s.
	WriteTimeout time.Duration
}

// NewKafkaPublisher constructs a publisher backed by a kafka-go Writer.
func NewKafkaPublisher(cfg *KafkaConfig) (*KafkaPublisher, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("events: at least one kafka broker is required")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, topic: topic}, nil
}

// Publish marshals event and writes it to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, event *DocumentIngested) error {
	if event == nil {
		return ErrNilEvent
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.EventID, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Source),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("events: close kafka writer: %w", err)
	}
	return nil
}

// NewFromEnv returns a KafkaPublisher when KAFKA_BROKERS is set (comma
// separated), otherwise a NopPublisher.
func NewFromEnv() (Publisher, error) {
	raw := os.Getenv("KAFKA_BROKERS")
	if strings.TrimSpace(raw) == "" {
		return NewNopPublisher(), nil
	}
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return NewKafkaPublisher(&KafkaConfig{
		Brokers: brokers,
		Topic:   os.Getenv("KAFKA_TOPIC"),
	})
}
