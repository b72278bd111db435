package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"

	"blogd/internal/metrics"
)

const eventTypeHeader = "event-type"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by post id.
//
// Writes are asynchronous: Publish only enqueues, and delivery failures are
// reported through the completion callback.
type KafkaPublisher struct {
	w      messageWriter
	logger *slog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a writer for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	addrs := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			addrs = append(addrs, broker)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	p := &KafkaPublisher{logger: logger}
	p.w = &kgo.Writer{
		Addr:                   kgo.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kgo.Hash{},
		RequiredAcks:           kgo.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             p.onCompletion,
	}
	return p, nil
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, event PostEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.w.WriteMessages(ctx, kgo.Message{
		Key:   []byte(event.PostID),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kgo.Header{
			{Key: eventTypeHeader, Value: []byte(event.Type)},
		},
	})
}

// onCompletion runs once per delivered batch.
func (p *KafkaPublisher) onCompletion(msgs []kgo.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range msgs {
		eventType := messageEventType(msg)
		metrics.EventDeliveryFailuresTotal.WithLabelValues(eventType).Inc()
		p.logger.Warn("deliver post event", "type", eventType, "post_id", string(msg.Key), "error", err)
	}
}

func messageEventType(msg kgo.Message) string {
	for _, h := range msg.Headers {
		if h.Key == eventTypeHeader {
			return string(h.Value)
		}
	}
	return "unknown"
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
