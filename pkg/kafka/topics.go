package kafka

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// Requester issues raw Kafka protocol requests. *kgo.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error)
}

// TopicSpec describes a topic to create.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
}

// EnsureTopics creates the given topics, treating topics that already exist
// as success.
func EnsureTopics(ctx context.Context, client Requester, topics []TopicSpec, logger hclog.Logger) error {
	if len(topics) == 0 {
		return nil
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	req := kmsg.NewPtrCreateTopicsRequest()
	req.TimeoutMillis = 30000
	for _, spec := range topics {
		t := kmsg.NewCreateTopicsRequestTopic()
		t.Topic = spec.Name
		t.NumPartitions = spec.Partitions
		t.ReplicationFactor = spec.ReplicationFactor
		req.Topics = append(req.Topics, t)
	}

	raw, err := client.Request(ctx, req)
	if err != nil {
		return fmt.Errorf("error creating topics: %w", err)
	}
	resp, ok := raw.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", raw)
	}

	var result error
	for _, t := range resp.Topics {
		err := kerr.ErrorForCode(t.ErrorCode)
		switch {
		case err == nil:
			logger.Info("created topic", "topic", t.Topic)
		case err == kerr.TopicAlreadyExists:
			logger.Debug("topic already exists", "topic", t.Topic)
		default:
			result = multierror.Append(result, fmt.Errorf("topic %s: %w", t.Topic, err))
		}
	}
	return result
}
