package mailer

import (
	"context"
	"flag"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hashicorp-forge/courier/internal/cmd/base"
	"github.com/hashicorp-forge/courier/internal/server"
	"github.com/hashicorp-forge/courier/pkg/kafka"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/notifications/backends"
	"github.com/hashicorp-forge/courier/pkg/notifications/email"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

type Command struct {
	*base.Command

	flagConfig string
}

func (c *Command) Synopsis() string {
	return "Email the recipients of new notifications"
}

func (c *Command) Help() string {
	return `Usage: courier mailer [options]

  Consumes notification-created events and emails every recipient who has
  not opted out, through the configured delivery backends.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("mailer", flag.ContinueOnError))
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

	registry := backends.NewRegistry(cfg.Backends, log)
	if len(registry.GetBackendNames()) == 0 {
		return fmt.Errorf("no email backends enabled")
	}

	cluster, err := c.ConnectCluster(cfg.Database)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer func() {
		if err := cluster.Close(); err != nil {
			log.Warn("error closing database", "error", err)
		}
	}()

	dispatcher, err := email.NewDispatcher(email.Config{
		DB:     cluster.Writer(),
		Sender: registry,
		Logger: log,
	})
	if err != nil {
		return err
	}

	brokers := kafka.GetBrokers(cfg)
	producer, err := notifications.NewKafkaClient(brokers)
	if err != nil {
		return err
	}
	defer producer.Close()

	dlq := notifications.NewDLQPublisher(producer, kafka.GetDLQSuffix(cfg))
	runner, err := worker.NewRunner(worker.RunnerConfig{
		Brokers:          brokers,
		Group:            func(string) string { return cfg.Mailer.ConsumerGroup },
		ConsumeFromStart: cfg.Kafka.ConsumeFromStart,
		Processor:        worker.NewProcessor(base.ProcessorConfig(cfg, dlq, log)),
		Logger:           log,
	}, dispatcher.Worker(kafka.GetCreatedTopic(cfg)))
	if err != nil {
		return err
	}
	defer runner.Close()

	log.Info("starting mailer", "backends", registry.GetBackendNames(), "consumer_group", cfg.Mailer.ConsumerGroup)
	srv := &server.Server{
		Addr:   cfg.Server.Addr,
		Checks: map[string]server.Check{"database": base.DatabaseCheck(cluster)},
		Logger: log,
	}

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
