package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestPublisher_Publish(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewPublisher(producer, PublisherConfig{})

	msg := NewCreatedMessage("n1", NotificationTypeCommentReply, []string{"u1", "u2"})
	require.NoError(t, pub.Publish(context.Background(), msg))

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, CreatedTopic, rec.Topic)
	assert.Equal(t, "n1", string(rec.Key))

	var got CreatedMessage
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, NotificationTypeCommentReply, got.Type)
	assert.Equal(t, []string{"u1", "u2"}, got.UserIDs)
}

func TestPublisher_PublishError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	pub := NewPublisher(producer, PublisherConfig{Topic: "custom"})

	err := pub.NotificationCreated(context.Background(), NewCreatedMessage("n1", NotificationTypeCommentReply, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestDLQPublisher(t *testing.T) {
	producer := &fakeProducer{}
	dlq := NewDLQPublisher(producer, "")
	assert.Equal(t, "api.v1.post-commented.dlq", dlq.Topic("api.v1.post-commented"))

	t.Run("json payload kept as is", func(t *testing.T) {
		err := dlq.PublishToDLQ(context.Background(), &DLQMessage{
			Subscription:  "api.v1.post-commented",
			Payload:       json.RawMessage(`{"userId":"u1"}`),
			Attempts:      3,
			FailureReason: "boom",
		})
		require.NoError(t, err)

		rec := producer.records[len(producer.records)-1]
		assert.Equal(t, "api.v1.post-commented.dlq", rec.Topic)

		var got DLQMessage
		require.NoError(t, json.Unmarshal(rec.Value, &got))
		assert.JSONEq(t, `{"userId":"u1"}`, string(got.Payload))
		assert.Equal(t, 3, got.Attempts)
		assert.False(t, got.DLQTimestamp.IsZero())
	})

	t.Run("invalid payload is quoted", func(t *testing.T) {
		err := dlq.PublishToDLQ(context.Background(), &DLQMessage{
			Subscription: "api.v1.post-commented",
			Payload:      json.RawMessage(`not json`),
		})
		require.NoError(t, err)

		rec := producer.records[len(producer.records)-1]
		var got DLQMessage
		require.NoError(t, json.Unmarshal(rec.Value, &got))
		assert.Equal(t, `"not json"`, string(got.Payload))
	})
}
