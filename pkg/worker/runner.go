package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Brokers []string

	// GroupPrefix is prepended to each subscription to form its consumer group.
	GroupPrefix string

	// Group names the consumer group of a subscription. It overrides GroupPrefix.
	Group func(subscription string) string

	// ConsumeFromStart makes new consumer groups start at the oldest offset
	// instead of the newest.
	ConsumeFromStart bool

	Processor *Processor
	Logger    hclog.Logger
}

// Runner consumes every worker's subscription topic on its own consumer group.
type Runner struct {
	consumers []*consumer
	logger    hclog.Logger
}

type consumer struct {
	worker    Worker
	client    *kgo.Client
	processor *Processor
	logger    hclog.Logger
}

// NewRunner creates one Kafka consumer per worker.
func NewRunner(cfg RunnerConfig, workers ...Worker) (*Runner, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("at least one worker is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Processor == nil {
		cfg.Processor = NewProcessor(ProcessorConfig{Logger: cfg.Logger})
	}

	offset := kgo.NewOffset().AtEnd()
	if cfg.ConsumeFromStart {
		offset = kgo.NewOffset().AtStart()
	}

	group := cfg.Group
	if group == nil {
		group = func(subscription string) string { return cfg.GroupPrefix + subscription }
	}

	r := &Runner{logger: cfg.Logger.Named("runner")}
	for _, w := range workers {
		client, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Brokers...),
			kgo.ConsumerGroup(group(w.Subscription)),
			kgo.ConsumeTopics(w.Subscription),

			kgo.ConsumeResetOffset(offset),
			kgo.SessionTimeout(10*time.Second),
			kgo.RebalanceTimeout(30*time.Second),

			// Offsets are committed once a record is settled.
			kgo.DisableAutoCommit(),
			kgo.BlockRebalanceOnPoll(),

			kgo.FetchMaxWait(500*time.Millisecond),
			kgo.FetchMinBytes(1),
			kgo.FetchMaxBytes(5<<20),
		)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create kafka client for %s: %w", w.Subscription, err)
		}
		r.consumers = append(r.consumers, &consumer{
			worker:    w,
			client:    client,
			processor: cfg.Processor,
			logger:    cfg.Logger.Named("consumer").With("subscription", w.Subscription),
		})
	}
	return r, nil
}

// Run consumes until ctx is cancelled or a consumer fails.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range r.consumers {
		g.Go(func() error { return c.run(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close closes every Kafka client.
func (r *Runner) Close() {
	for _, c := range r.consumers {
		c.client.Close()
	}
}

func (c *consumer) run(ctx context.Context) error {
	group, _ := c.client.GroupMetadata()
	c.logger.Info("starting consumer", "consumer_group", group)

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			c.logger.Info("consumer stopped")
			return nil
		}
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped by context")
			return ctx.Err()
		}

		for _, fe := range fetches.Errors() {
			c.logger.Error("kafka fetch error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err)
		}

		// Partitions run concurrently; records within one stay ordered.
		var g errgroup.Group
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			g.Go(func() error {
				c.consumePartition(ctx, p)
				return nil
			})
		})
		_ = g.Wait()

		c.client.AllowRebalance()
	}
}

func (c *consumer) consumePartition(ctx context.Context, p kgo.FetchTopicPartition) {
	for _, record := range p.Records {
		msg := &Message{
			Subscription: c.worker.Subscription,
			Key:          record.Key,
			Value:        record.Value,
			Partition:    record.Partition,
			Offset:       record.Offset,
			Timestamp:    record.Timestamp,
		}

		if err := c.processor.Process(ctx, c.worker, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("failed to settle record, rewinding",
				"partition", record.Partition,
				"offset", record.Offset,
				"error", err)
			c.client.SetOffsets(map[string]map[int32]kgo.EpochOffset{
				record.Topic: {record.Partition: {Epoch: record.LeaderEpoch, Offset: record.Offset}},
			})
			return
		}

		if err := c.client.CommitRecords(ctx, record); err != nil {
			c.logger.Warn("failed to commit Kafka offset",
				"partition", record.Partition,
				"offset", record.Offset,
				"error", err)
		}
	}
}
