// Package queue publishes submission events and consumes them for
// asynchronous processing.
package queue

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"leadgate/internal/event"
)

// Dispatcher publishes submission-completed events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev event.SubmissionCompleted) error
}

// KafkaDispatcher publishes events to the submission topic, keyed by
// submission id so redeliveries of one submission stay ordered.
type KafkaDispatcher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaDispatcher constructs a dispatcher over a producer client.
func NewKafkaDispatcher(client *kgo.Client, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{client: client, topic: topic}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, ev event.SubmissionCompleted) error {
	payload, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.MessageID, err)
	}

	record := &kgo.Record{
		Topic: d.topic,
		Key:   []byte(ev.SubmissionID.String()),
		Value: payload,
	}
	if err := d.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", ev.MessageID, err)
	}
	return nil
}

// ChannelDispatcher delivers events over an in-process channel. Used in
// tests and single-binary development where Kafka is not configured.
type ChannelDispatcher struct {
	events chan event.SubmissionCompleted
}

// NewChannelDispatcher constructs a buffered in-process dispatcher.
func NewChannelDispatcher(buffer int) *ChannelDispatcher {
	return &ChannelDispatcher{events: make(chan event.SubmissionCompleted, buffer)}
}

func (d *ChannelDispatcher) Dispatch(ctx context.Context, ev event.SubmissionCompleted) error {
	select {
	case d.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events exposes the delivery channel for a consuming worker.
func (d *ChannelDispatcher) Events() <-chan event.SubmissionCompleted {
	return d.events
}
