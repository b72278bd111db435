package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kgo "github.com/segmentio/kafka-go"

	"blogd/internal/metrics"
	"blogd/internal/models"
)

type fakeWriter struct {
	messages []kgo.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kgo.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherWritesJSON(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{w: fw}
	now := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	post := &models.Post{ID: "p-1", Title: "Hello", Author: "Ann"}

	if err := p.Publish(context.Background(), NewPostEvent(PostCreated, post, now)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fw.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fw.messages))
	}
	msg := fw.messages[0]
	if string(msg.Key) != "p-1" {
		t.Fatalf("expected key p-1, got %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "post.created" {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}

	var decoded PostEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != PostCreated || decoded.Title != "Hello" || decoded.Author != "Ann" {
		t.Fatalf("unexpected event: %+v", decoded)
	}
	if !decoded.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v, got %v", now, decoded.OccurredAt)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !fw.closed {
		t.Fatal("expected writer to be closed")
	}
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	p := &KafkaPublisher{w: &fakeWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), NewPostEvent(PostDeleted, &models.Post{ID: "x"}, time.Now()))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	if _, err := NewKafkaPublisher([]string{" ", ""}, "topic", nil); err == nil {
		t.Fatal("expected error for empty brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, "", nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "blog.posts", nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	w, ok := p.w.(*kgo.Writer)
	if !ok {
		t.Fatalf("expected kafka writer, got %T", p.w)
	}
	if !w.Async || w.Completion == nil {
		t.Fatal("expected asynchronous writes with a completion callback")
	}
	_ = p.Close()
}

func TestKafkaCompletionReportsFailedDelivery(t *testing.T) {
	var logs bytes.Buffer
	p := &KafkaPublisher{w: &fakeWriter{}, logger: slog.New(slog.NewTextHandler(&logs, nil))}
	failures := metrics.EventDeliveryFailuresTotal.WithLabelValues(string(PostUpdated))
	before := testutil.ToFloat64(failures)

	msg := kgo.Message{
		Key:     []byte("p-9"),
		Headers: []kgo.Header{{Key: eventTypeHeader, Value: []byte(PostUpdated)}},
	}
	p.onCompletion([]kgo.Message{msg}, nil)
	if got := testutil.ToFloat64(failures) - before; got != 0 {
		t.Fatalf("successful batch must not count failures, got %v", got)
	}

	p.onCompletion([]kgo.Message{msg, msg}, errors.New("broker down"))
	if got := testutil.ToFloat64(failures) - before; got != 2 {
		t.Fatalf("expected 2 delivery failures, got %v", got)
	}
	if !strings.Contains(logs.String(), "post_id=p-9") || !strings.Contains(logs.String(), "broker down") {
		t.Fatalf("expected failure logged, got %s", logs.String())
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), PostEvent{}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("noop close: %v", err)
	}
}

func TestNewPostEventNilPost(t *testing.T) {
	event := NewPostEvent(PostUpdated, nil, time.Unix(0, 0))
	if event.PostID != "" || event.Type != PostUpdated {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.OccurredAt.Location() != time.UTC {
		t.Fatal("expected UTC timestamp")
	}
}
