package signals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Sink receives signal events. Callers treat Emit as fire and forget: an
// error is logged, never surfaced to the guest-facing result.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// MultiSink emits to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (m *MemorySink) Emit(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *MemorySink) Selections() []SelectionEvent {
	var out []SelectionEvent
	for _, ev := range m.Events() {
		if s, ok := ev.(SelectionEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

func (m *MemorySink) Refinements() []RefinementEvent {
	var out []RefinementEvent
	for _, ev := range m.Events() {
		if r, ok := ev.(RefinementEvent); ok {
			out = append(out, r)
		}
	}
	return out
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink mirrors events to a Kafka topic keyed by draft id. Writes are
// asynchronous so a slow broker never delays a draft. Delivery failures are
// reported to the logger from the writer's completion callback.
type KafkaSink struct {
	writer messageWriter
}

// NewKafkaSink creates an async sink writing to topic on brokers. A nil
// logger uses slog.Default.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			Async:                  true,
			Completion: func(msgs []kafka.Message, err error) {
				if err == nil {
					return
				}
				for _, m := range msgs {
					logger.Warn("kafka signal not delivered", "topic", topic, "draft_id", string(m.Key), "error", err.Error())
				}
			},
		},
	}
}

func (k *KafkaSink) Emit(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Kind(), err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.DraftKey()),
		Value: data,
		Time:  ev.Timestamp(),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Kind())},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s event: %w", ev.Kind(), err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
