package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

type fakeRequester struct {
	requests []*kmsg.CreateTopicsRequest
	codes    map[string]int16
	err      error
}

func (f *fakeRequester) Request(_ context.Context, req kmsg.Request) (kmsg.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	ct := req.(*kmsg.CreateTopicsRequest)
	f.requests = append(f.requests, ct)

	resp := kmsg.NewPtrCreateTopicsResponse()
	for _, t := range ct.Topics {
		rt := kmsg.NewCreateTopicsResponseTopic()
		rt.Topic = t.Topic
		rt.ErrorCode = f.codes[t.Topic]
		resp.Topics = append(resp.Topics, rt)
	}
	return resp, nil
}

func TestEnsureTopics(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and tolerates existing", func(t *testing.T) {
		f := &fakeRequester{codes: map[string]int16{
			"api.v1.post-added": kerr.TopicAlreadyExists.Code,
		}}
		err := EnsureTopics(ctx, f, []TopicSpec{
			{Name: "api.v1.post-commented", Partitions: 3, ReplicationFactor: 1},
			{Name: "api.v1.post-added", Partitions: 3, ReplicationFactor: 1},
		}, nil)
		require.NoError(t, err)
		require.Len(t, f.requests, 1)
		require.Len(t, f.requests[0].Topics, 2)
		assert.Equal(t, int32(3), f.requests[0].Topics[0].NumPartitions)
	})

	t.Run("reports other errors", func(t *testing.T) {
		f := &fakeRequester{codes: map[string]int16{
			"bad": kerr.InvalidTopicException.Code,
		}}
		err := EnsureTopics(ctx, f, []TopicSpec{{Name: "bad", Partitions: 1, ReplicationFactor: 1}}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, kerr.InvalidTopicException))
	})

	t.Run("request failure", func(t *testing.T) {
		f := &fakeRequester{err: errors.New("connection refused")}
		err := EnsureTopics(ctx, f, []TopicSpec{{Name: "x", Partitions: 1, ReplicationFactor: 1}}, nil)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("nothing to do", func(t *testing.T) {
		f := &fakeRequester{}
		require.NoError(t, EnsureTopics(ctx, f, nil, nil))
		assert.Empty(t, f.requests)
	})
}
