// Package config loads the courier HCL configuration file.
package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"
)

// Config is the root of the configuration file.
type Config struct {
	LogLevel string `hcl:"log_level,optional"`

	Database *Database `hcl:"database,block"`
	Kafka    *Kafka    `hcl:"kafka,block"`
	Worker   *Worker   `hcl:"worker,block"`
	Mailer   *Mailer   `hcl:"mailer,block"`
	URLs     *URLs     `hcl:"urls,block"`
	Redis    *Redis    `hcl:"redis,block"`
	Backends *Backends `hcl:"backends,block"`
	Server   *Server   `hcl:"server,block"`
}

// Database configures the primary database and its read replicas.
type Database struct {
	Driver   string `hcl:"driver,optional"`
	DSN      string `hcl:"dsn,optional"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	User     string `hcl:"user,optional"`
	Password string `hcl:"password,optional"`
	DBName   string `hcl:"dbname,optional"`
	SSLMode  string `hcl:"sslmode,optional"`

	MaxIdleConns    int    `hcl:"max_idle_conns,optional"`
	MaxOpenConns    int    `hcl:"max_open_conns,optional"`
	ConnMaxLifetime string `hcl:"conn_max_lifetime,optional"`

	// ReplicaPolicy is one of "primary", "round_robin" or "weighted".
	ReplicaPolicy string     `hcl:"replica_policy,optional"`
	Replicas      []*Replica `hcl:"replica,block"`
}

// Replica configures one read replica.
type Replica struct {
	Name     string `hcl:"name,label"`
	DSN      string `hcl:"dsn,optional"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	User     string `hcl:"user,optional"`
	Password string `hcl:"password,optional"`
	DBName   string `hcl:"dbname,optional"`
	SSLMode  string `hcl:"sslmode,optional"`
	Weight   int    `hcl:"weight,optional"`
}

// Kafka configures the broker connection.
type Kafka struct {
	Brokers             []string `hcl:"brokers,optional"`
	ConsumerGroupPrefix string   `hcl:"consumer_group_prefix,optional"`
	DLQSuffix           string   `hcl:"dlq_suffix,optional"`
	ConsumeFromStart    bool     `hcl:"consume_from_start,optional"`
	CreateTopics        bool     `hcl:"create_topics,optional"`
	Partitions          int      `hcl:"partitions,optional"`
	ReplicationFactor   int      `hcl:"replication_factor,optional"`
}

// Worker configures the notification workers.
type Worker struct {
	// Subscriptions limits the workers started. Empty starts all of them.
	Subscriptions  []string `hcl:"subscriptions,optional"`
	MaxAttempts    int      `hcl:"max_attempts,optional"`
	InitialBackoff string   `hcl:"initial_backoff,optional"`
	MaxBackoff     string   `hcl:"max_backoff,optional"`
	CreatedTopic   string   `hcl:"created_topic,optional"`
	ChunkSize      int      `hcl:"chunk_size,optional"`
}

// Mailer configures the email dispatch worker.
type Mailer struct {
	ConsumerGroup string `hcl:"consumer_group,optional"`
}

// URLs configures the links put in notifications.
type URLs struct {
	Webapp string `hcl:"webapp,optional"`
}

// Redis configures the live notification push.
type Redis struct {
	Addr     string `hcl:"addr"`
	Password string `hcl:"password,optional"`
	DB       int    `hcl:"db,optional"`
}

// Backends configures email delivery.
type Backends struct {
	Audit *AuditBackend `hcl:"audit,block"`
	Mail  *MailBackend  `hcl:"mail,block"`
}

// AuditBackend logs emails instead of sending them.
type AuditBackend struct {
	Enabled bool `hcl:"enabled,optional"`
}

// MailBackend sends emails over SMTP.
type MailBackend struct {
	Enabled     bool   `hcl:"enabled,optional"`
	SMTPHost    string `hcl:"smtp_host,optional"`
	SMTPPort    int    `hcl:"smtp_port,optional"`
	SMTPUser    string `hcl:"smtp_user,optional"`
	SMTPPass    string `hcl:"smtp_password,optional"`
	FromAddress string `hcl:"from_address,optional"`
	FromName    string `hcl:"from_name,optional"`
	UseTLS      bool   `hcl:"use_tls,optional"`
}

// Server configures the operational HTTP listener.
type Server struct {
	Addr string `hcl:"addr,optional"`
}

// Defaults.
const (
	DefaultServerAddr        = ":9090"
	DefaultMaxAttempts       = 5
	DefaultInitialBackoff    = 500 * time.Millisecond
	DefaultMaxBackoff        = 30 * time.Second
	DefaultConsumerPrefix    = "courier."
	DefaultMailerGroup       = "courier-mailer"
	DefaultPartitions        = 3
	DefaultReplicationFactor = 1
)

// Load reads and validates the configuration file at path on fs.
func Load(fs afero.Fs, path string) (*Config, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(path, src)
}

// Parse decodes and validates HCL source. filename selects the syntax by its
// extension and is used in diagnostics.
func Parse(filename string, src []byte) (*Config, error) {
	cfg := &Config{}
	if err := hclsimple.Decode(filename, src, nil, cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database == nil {
		c.Database = &Database{}
	}
	if c.Kafka == nil {
		c.Kafka = &Kafka{}
	}
	if c.Kafka.ConsumerGroupPrefix == "" {
		c.Kafka.ConsumerGroupPrefix = DefaultConsumerPrefix
	}
	if c.Kafka.Partitions == 0 {
		c.Kafka.Partitions = DefaultPartitions
	}
	if c.Kafka.ReplicationFactor == 0 {
		c.Kafka.ReplicationFactor = DefaultReplicationFactor
	}
	if c.Worker == nil {
		c.Worker = &Worker{}
	}
	if c.Worker.MaxAttempts == 0 {
		c.Worker.MaxAttempts = DefaultMaxAttempts
	}
	if c.Mailer == nil {
		c.Mailer = &Mailer{}
	}
	if c.Mailer.ConsumerGroup == "" {
		c.Mailer.ConsumerGroup = DefaultMailerGroup
	}
	if c.URLs == nil {
		c.URLs = &URLs{}
	}
	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var result error

	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
	); err != nil {
		result = multierror.Append(result, err)
	}

	db := c.Database
	if err := validation.ValidateStruct(db,
		validation.Field(&db.Driver, validation.In("postgres", "sqlite")),
		validation.Field(&db.ReplicaPolicy, validation.In("primary", "round_robin", "weighted")),
		validation.Field(&db.ConnMaxLifetime, validation.By(isDuration)),
	); err != nil {
		result = multierror.Append(result, fmt.Errorf("database: %w", err))
	}
	for _, r := range db.Replicas {
		if err := validation.ValidateStruct(r,
			validation.Field(&r.Weight, validation.Min(0)),
		); err != nil {
			result = multierror.Append(result, fmt.Errorf("database replica %q: %w", r.Name, err))
		}
	}

	w := c.Worker
	if err := validation.ValidateStruct(w,
		validation.Field(&w.MaxAttempts, validation.Min(1)),
		validation.Field(&w.InitialBackoff, validation.By(isDuration)),
		validation.Field(&w.MaxBackoff, validation.By(isDuration)),
		validation.Field(&w.ChunkSize, validation.Min(0)),
	); err != nil {
		result = multierror.Append(result, fmt.Errorf("worker: %w", err))
	}

	if c.Redis != nil {
		if err := validation.ValidateStruct(c.Redis,
			validation.Field(&c.Redis.Addr, validation.Required),
		); err != nil {
			result = multierror.Append(result, fmt.Errorf("redis: %w", err))
		}
	}

	return result
}

func isDuration(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a duration: %w", err)
	}
	return nil
}

// Duration parses s, returning def when s is empty or invalid.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
