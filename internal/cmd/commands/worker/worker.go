package worker

import (
	"context"
	"flag"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hashicorp-forge/courier/internal/cmd/base"
	"github.com/hashicorp-forge/courier/internal/server"
	"github.com/hashicorp-forge/courier/internal/workers"
	"github.com/hashicorp-forge/courier/pkg/kafka"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/notifications/realtime"
	"github.com/hashicorp-forge/courier/pkg/pipeline"
	"github.com/hashicorp-forge/courier/pkg/store"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

type Command struct {
	*base.Command

	flagConfig string
}

func (c *Command) Synopsis() string {
	return "Run the notification workers"
}

func (c *Command) Help() string {
	return `Usage: courier worker [options]

  Consumes domain events, persists the notifications they generate and
  announces each new notification on the created topic.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("worker", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "[COURIER_CONFIG] Path to the configuration file")
	return f
}

func (c *Command) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	ctx, stop := base.SignalContext()
	defer stop()

	if err := c.run(ctx); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}

func (c *Command) run(ctx context.Context) error {
	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		return err
	}
	log := c.Log

	cluster, err := c.ConnectCluster(cfg.Database)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer func() {
		if err := cluster.Close(); err != nil {
			log.Warn("error closing database", "error", err)
		}
	}()

	brokers := kafka.GetBrokers(cfg)
	producer, err := notifications.NewKafkaClient(brokers)
	if err != nil {
		return err
	}
	defer producer.Close()

	createdTopic := kafka.GetCreatedTopic(cfg)
	checks := map[string]server.Check{"database": base.DatabaseCheck(cluster)}
	publisher := notifications.NewPublisher(producer, notifications.PublisherConfig{
		Brokers: brokers,
		Topic:   createdTopic,
		Logger:  log,
	})
	var sinks []pipeline.Sink
	if cfg.Redis != nil {
		rdb := realtime.NewClient(cfg.Redis)
		defer rdb.Close()
		sinks = append(sinks, realtime.NewBroadcaster(rdb, log))
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	p, err := pipeline.New(pipeline.Config{
		Cluster:   cluster,
		Generator: notifications.NewGenerator(notifications.URLs{Webapp: cfg.URLs.Webapp}),
		Store:     store.New(store.Config{ChunkSize: cfg.Worker.ChunkSize, Logger: log}),
		Announcer: publisher,
		Sinks:     sinks,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	bound, err := workers.Bind(p, cluster, cfg.Worker.Subscriptions)
	if err != nil {
		return err
	}

	dlq := notifications.NewDLQPublisher(producer, kafka.GetDLQSuffix(cfg))
	if cfg.Kafka.CreateTopics {
		topics := []string{createdTopic}
		for _, w := range bound {
			topics = append(topics, w.Subscription, dlq.Topic(w.Subscription))
		}
		if err := kafka.EnsureTopics(ctx, producer, specs(topics, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor), log); err != nil {
			return fmt.Errorf("error creating topics: %w", err)
		}
	}

	runner, err := worker.NewRunner(worker.RunnerConfig{
		Brokers:          brokers,
		Group:            func(subscription string) string { return kafka.GetConsumerGroup(cfg, subscription) },
		ConsumeFromStart: cfg.Kafka.ConsumeFromStart,
		Processor:        worker.NewProcessor(base.ProcessorConfig(cfg, dlq, log)),
		Logger:           log,
	}, bound...)
	if err != nil {
		return err
	}
	defer runner.Close()

	log.Info("starting workers", "count", len(bound), "brokers", brokers)
	srv := &server.Server{Addr: cfg.Server.Addr, Checks: checks, Logger: log}
	return serve(ctx, srv, runner)
}

// serve runs the ops listener and the runner until either stops.
func serve(ctx context.Context, srv *server.Server, runner *worker.Runner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return runner.Run(ctx)
	})
	g.Go(func() error { return srv.Run(ctx) })
	return g.Wait()
}

func specs(topics []string, partitions, replicationFactor int) []kafka.TopicSpec {
	out := make([]kafka.TopicSpec, len(topics))
	for i, t := range topics {
		out[i] = kafka.TopicSpec{
			Name:              t,
			Partitions:        int32(partitions),
			ReplicationFactor: int16(replicationFactor),
		}
	}
	return out
}
