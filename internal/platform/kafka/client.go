package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"leadgate/internal/platform/config"
)

// Client wraps the franz-go client so producers and consumers share one
// construction path.
type Client struct {
	*kgo.Client
}

// NewProducer creates a Kafka client configured for publishing submission
// events.
func NewProducer(cfg config.Kafka) (*Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Client{Client: client}, nil
}

// NewConsumer creates a Kafka client joined to the processor consumer group.
func NewConsumer(cfg config.Kafka) (*Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health checks broker connectivity.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx)
}

// Close flushes and closes the underlying client.
func (c *Client) Close() {
	c.Client.Close()
}
