package queue

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"leadgate/internal/event"
)

// Consumer polls the submission topic and hands each record to the
// processor. Offsets are committed only after the processor accepts the
// batch, so a crash redelivers; the dedup guard absorbs the duplicates.
type Consumer struct {
	client    *kgo.Client
	processor *Processor
	logger    *slog.Logger
}

// NewConsumer constructs the consumer loop over a group-joined client.
func NewConsumer(client *kgo.Client, processor *Processor, logger *slog.Logger) *Consumer {
	return &Consumer{client: client, processor: processor, logger: logger}
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var failed bool
		fetches.EachRecord(func(record *kgo.Record) {
			if failed {
				return
			}
			ev, err := event.Unmarshal(record.Value)
			if err != nil {
				// Malformed payloads cannot succeed on retry; drop them.
				c.logger.ErrorContext(ctx, "dropping malformed event",
					"offset", record.Offset,
					"error", err,
				)
				return
			}
			if err := c.processor.Process(ctx, ev); err != nil {
				c.logger.ErrorContext(ctx, "event processing failed",
					"message_id", ev.MessageID,
					"error", err,
				)
				failed = true
			}
		})

		if failed {
			// Skip the commit so the batch is redelivered.
			continue
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.ErrorContext(ctx, "offset commit failed", "error", err)
		}
	}
}

// RunWorker consumes events from an in-process dispatcher. Used when Kafka
// is not configured and by the /process endpoint tests.
func RunWorker(ctx context.Context, events <-chan event.SubmissionCompleted, processor *Processor, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if err := processor.Process(ctx, ev); err != nil {
				logger.ErrorContext(ctx, "event processing failed",
					"message_id", ev.MessageID,
					"error", err,
				)
			}
		}
	}
}
