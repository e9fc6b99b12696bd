package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client used to publish records.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher announces created notifications on a Kafka topic.
type Publisher struct {
	producer Producer
	topic    string
	logger   hclog.Logger
}

// PublisherConfig holds configuration for the publisher
type PublisherConfig struct {
	Brokers []string
	Topic   string
	Logger  hclog.Logger
}

// NewKafkaClient returns a producer client with durable delivery settings.
func NewKafkaClient(brokers []string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),

		// Wait for all in-sync replicas; idempotency follows from this.
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.GzipCompression()),

		// 100ms, 200ms, 300ms... capped at 60s
		kgo.RetryBackoffFn(func(tries int) time.Duration {
			backoff := time.Duration(tries) * 100 * time.Millisecond
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
			return backoff
		}),
		kgo.RequestRetries(10),

		kgo.ProducerLinger(10*time.Millisecond),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return client, nil
}

// NewPublisher creates a publisher writing to topic through producer.
func NewPublisher(producer Producer, cfg PublisherConfig) *Publisher {
	if cfg.Topic == "" {
		cfg.Topic = CreatedTopic
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Publisher{
		producer: producer,
		topic:    cfg.Topic,
		logger:   cfg.Logger.Named("publisher"),
	}
}

// Publish writes msg keyed by notification id so every announcement of one
// notification lands on the same partition.
func (p *Publisher) Publish(ctx context.Context, msg *CreatedMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal created message: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(msg.NotificationID),
		Value: value,
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish created message: %w", err)
	}

	p.logger.Debug("published created notification",
		"notification_id", msg.NotificationID,
		"type", msg.Type,
		"recipients", len(msg.UserIDs))
	return nil
}

// NotificationCreated implements the pipeline sink contract.
func (p *Publisher) NotificationCreated(ctx context.Context, msg *CreatedMessage) error {
	return p.Publish(ctx, msg)
}
