// Package base holds what every courier subcommand shares: the UI, the
// logger, flag help and the wiring of configuration into clients.
package base

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/courier/internal/config"
	"github.com/hashicorp-forge/courier/internal/server"
	"github.com/hashicorp-forge/courier/pkg/database"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

// Command is embedded by every subcommand.
type Command struct {
	UI  cli.Ui
	Log hclog.Logger

	// Fs is the filesystem configuration is read from.
	Fs afero.Fs
}

// NewCommand returns a base command reading from the OS filesystem.
func NewCommand(log hclog.Logger, ui cli.Ui) *Command {
	return &Command{UI: ui, Log: log, Fs: afero.NewOsFs()}
}

// FlagSet wraps a flag.FlagSet to render help text.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// Help renders the flags for a command's help output.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s", fl.Name)
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&b, "=%s", fl.DefValue)
		}
		fmt.Fprintf(&b, "\n      %s\n", fl.Usage)
	})
	return b.String()
}

// LoadConfig reads the configuration file and sets the log level from it.
func (c *Command) LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		if val, ok := os.LookupEnv("COURIER_CONFIG"); ok {
			path = val
		}
	}
	if path == "" {
		return nil, fmt.Errorf("a configuration file is required (-config or COURIER_CONFIG)")
	}

	cfg, err := config.Load(c.Fs, path)
	if err != nil {
		return nil, err
	}
	c.Log.SetLevel(hclog.LevelFromString(cfg.LogLevel))
	return cfg, nil
}

// ConnectCluster connects to the configured primary and read replicas.
func (c *Command) ConnectCluster(cfg *config.Database) (*database.Cluster, error) {
	policy, err := database.ParsePolicy(cfg.ReplicaPolicy)
	if err != nil {
		return nil, err
	}

	primary := database.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		DBName:          cfg.DBName,
		SSLMode:         cfg.SSLMode,
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: config.Duration(cfg.ConnMaxLifetime, database.DefaultConnMaxLifetime),
	}
	replicas := make([]database.ReplicaConfig, 0, len(cfg.Replicas))
	for _, r := range cfg.Replicas {
		rc := primary
		rc.DSN, rc.Host, rc.Port = r.DSN, r.Host, r.Port
		rc.User, rc.Password, rc.DBName, rc.SSLMode = r.User, r.Password, r.DBName, r.SSLMode
		replicas = append(replicas, database.ReplicaConfig{Config: rc, Weight: r.Weight})
	}

	return database.ConnectCluster(primary, replicas, policy, c.Log)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// DatabaseCheck pings the primary of cluster.
func DatabaseCheck(cluster *database.Cluster) server.Check {
	return func(ctx context.Context) error {
		sqlDB, err := cluster.Primary.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// ProcessorConfig builds the retry policy of a worker from configuration.
func ProcessorConfig(cfg *config.Config, dlq worker.DeadLetterer, log hclog.Logger) worker.ProcessorConfig {
	return worker.ProcessorConfig{
		MaxAttempts:    cfg.Worker.MaxAttempts,
		InitialBackoff: config.Duration(cfg.Worker.InitialBackoff, config.DefaultInitialBackoff),
		MaxBackoff:     config.Duration(cfg.Worker.MaxBackoff, config.DefaultMaxBackoff),
		DLQ:            dlq,
		Logger:         log,
	}
}
