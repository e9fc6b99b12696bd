package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultDLQSuffix is appended to a subscription name to form its DLQ topic.
const DefaultDLQSuffix = ".dlq"

// DLQMessage wraps an event that could not be processed.
type DLQMessage struct {
	Subscription   string          `json:"subscription"`
	Payload        json.RawMessage `json:"payload"`
	Key            string          `json:"key,omitempty"`
	Partition      int32           `json:"partition"`
	Offset         int64           `json:"offset"`
	Attempts       int             `json:"attempts"`
	FailureReason  string          `json:"failure_reason"`
	FirstFailureAt time.Time       `json:"first_failure_at"`
	DLQTimestamp   time.Time       `json:"dlq_timestamp"`
}

// DLQPublisher publishes failed events to per-subscription dead letter topics.
type DLQPublisher struct {
	producer Producer
	suffix   string
}

// NewDLQPublisher creates a DLQ publisher. An empty suffix selects DefaultDLQSuffix.
func NewDLQPublisher(producer Producer, suffix string) *DLQPublisher {
	if suffix == "" {
		suffix = DefaultDLQSuffix
	}
	return &DLQPublisher{producer: producer, suffix: suffix}
}

// Topic returns the DLQ topic for subscription.
func (p *DLQPublisher) Topic(subscription string) string {
	return subscription + p.suffix
}

// PublishToDLQ publishes msg to the DLQ topic of its subscription.
func (p *DLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	if msg.DLQTimestamp.IsZero() {
		msg.DLQTimestamp = time.Now().UTC()
	}
	if !json.Valid(msg.Payload) {
		// Keep undecodable payloads readable in the envelope.
		raw, _ := json.Marshal(string(msg.Payload))
		msg.Payload = raw
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	record := &kgo.Record{
		Topic: p.Topic(msg.Subscription),
		Key:   []byte(msg.Key),
		Value: value,
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}
	return nil
}
