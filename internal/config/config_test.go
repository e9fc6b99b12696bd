package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
log_level = "debug"

database {
  host           = "db.internal"
  port           = 5432
  user           = "courier"
  password       = "secret"
  dbname         = "courier"
  replica_policy = "weighted"

  replica "a" {
    host   = "replica-a.internal"
    port   = 5432
    weight = 3
  }

  replica "b" {
    host   = "replica-b.internal"
    port   = 5432
    weight = 1
  }
}

kafka {
  brokers            = ["kafka-1:9092", "kafka-2:9092"]
  consume_from_start = true
}

worker {
  subscriptions   = ["api.v1.post-commented"]
  max_attempts    = 3
  initial_backoff = "250ms"
}

urls {
  webapp = "https://app.example.com"
}

redis {
  addr = "redis:6379"
}

backends {
  audit {
    enabled = true
  }
}
`

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/courier/config.hcl", []byte(fullConfig), 0o644))

	cfg, err := Load(fs, "/etc/courier/config.hcl")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "weighted", cfg.Database.ReplicaPolicy)
	require.Len(t, cfg.Database.Replicas, 2)
	assert.Equal(t, "a", cfg.Database.Replicas[0].Name)
	assert.Equal(t, 3, cfg.Database.Replicas[0].Weight)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.ConsumeFromStart)
	assert.Equal(t, DefaultConsumerPrefix, cfg.Kafka.ConsumerGroupPrefix)

	assert.Equal(t, 3, cfg.Worker.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, Duration(cfg.Worker.InitialBackoff, DefaultInitialBackoff))
	assert.Equal(t, DefaultMaxBackoff, Duration(cfg.Worker.MaxBackoff, DefaultMaxBackoff))

	assert.Equal(t, "https://app.example.com", cfg.URLs.Webapp)
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.NotNil(t, cfg.Backends.Audit)
	assert.True(t, cfg.Backends.Audit.Enabled)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Parse("config.hcl", []byte(``))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultMaxAttempts, cfg.Worker.MaxAttempts)
	assert.Equal(t, DefaultMailerGroup, cfg.Mailer.ConsumerGroup)
	assert.Nil(t, cfg.Redis)
	assert.Nil(t, cfg.Backends)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "missing.hcl")
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Parse("config.hcl", []byte(`
log_level = "loud"

database {
  replica_policy = "random"
}

worker {
  initial_backoff = "soon"
}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogLevel")
	assert.Contains(t, err.Error(), "ReplicaPolicy")
	assert.Contains(t, err.Error(), "InitialBackoff")
}

func TestLoad_SyntaxError(t *testing.T) {
	_, err := Parse("config.hcl", []byte(`database {`))
	assert.Error(t, err)
}
