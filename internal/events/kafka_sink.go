package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer used by the sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards domain events to a Kafka topic, keyed by ticket id so
// every event of one ticket lands on the same partition.
type KafkaSink struct {
	writer MessageWriter
}

// NewKafkaWriter builds an asynchronous writer for topic. WriteMessages only
// enqueues, so a slow or absent broker never holds up a request; delivery
// failures are logged once the batch gives up.
func NewKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		BatchTimeout:           100 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             logCompletion(logger, topic),
	}
}

func logCompletion(logger *zap.Logger, topic string) func([]kafka.Message, error) {
	return func(messages []kafka.Message, err error) {
		if err == nil {
			return
		}
		logger.Error("failed to deliver ticket events",
			zap.String("topic", topic),
			zap.Int("messages", len(messages)),
			zap.Error(err))
	}
}

// NewKafkaSink wraps writer.
func NewKafkaSink(writer MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

// Handle is an EventHandler that publishes event as JSON.
func (s *KafkaSink) Handle(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.TicketID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event %s: %w", event.ID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
