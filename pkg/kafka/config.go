package kafka

import (
	"os"
	"strings"

	"github.com/hashicorp-forge/courier/internal/config"
	"github.com/hashicorp-forge/courier/pkg/notifications"
)

// DefaultBrokers is used when neither the environment nor the config names any.
var DefaultBrokers = []string{"localhost:19092"}

// GetBrokers returns the Kafka/Redpanda broker addresses.
// It checks environment variables first, then falls back to config, then default.
func GetBrokers(cfg *config.Config) []string {
	if brokers := os.Getenv("REDPANDA_BROKERS"); brokers != "" {
		return splitList(brokers)
	}

	if cfg != nil && cfg.Kafka != nil && len(cfg.Kafka.Brokers) > 0 {
		return cfg.Kafka.Brokers
	}

	return DefaultBrokers
}

// GetCreatedTopic returns the topic notification-created events are published on.
func GetCreatedTopic(cfg *config.Config) string {
	if topic := os.Getenv("NOTIFICATION_CREATED_TOPIC"); topic != "" {
		return topic
	}

	if cfg != nil && cfg.Worker != nil && cfg.Worker.CreatedTopic != "" {
		return cfg.Worker.CreatedTopic
	}

	return notifications.CreatedTopic
}

// GetConsumerGroup returns the consumer group of the worker for subscription.
// Each subscription gets its own group so workers scale independently.
func GetConsumerGroup(cfg *config.Config, subscription string) string {
	prefix := config.DefaultConsumerPrefix
	if p := os.Getenv("CONSUMER_GROUP_PREFIX"); p != "" {
		prefix = p
	} else if cfg != nil && cfg.Kafka != nil && cfg.Kafka.ConsumerGroupPrefix != "" {
		prefix = cfg.Kafka.ConsumerGroupPrefix
	}
	return prefix + subscription
}

// GetDLQSuffix returns the suffix appended to a subscription to name its DLQ topic.
func GetDLQSuffix(cfg *config.Config) string {
	if cfg != nil && cfg.Kafka != nil && cfg.Kafka.DLQSuffix != "" {
		return cfg.Kafka.DLQSuffix
	}
	return notifications.DefaultDLQSuffix
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
