// Package realtime pushes new in-app notifications to connected clients over
// Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"

	"github.com/hashicorp-forge/courier/internal/config"
	"github.com/hashicorp-forge/courier/pkg/notifications"
)

// ChannelPrefix is followed by the user id.
const ChannelPrefix = "user_notifications:"

// Publisher is the subset of *redis.Client used here.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Event is the payload pushed to a user's channel.
type Event struct {
	NotificationID string                         `json:"notificationId"`
	Type           notifications.NotificationType `json:"type"`
	CreatedAt      time.Time                      `json:"createdAt"`
}

// Broadcaster publishes created notifications to each recipient's channel.
type Broadcaster struct {
	client Publisher
	logger hclog.Logger
}

// NewClient returns a Redis client for cfg.
func NewClient(cfg *config.Redis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewBroadcaster returns a broadcaster publishing through client.
func NewBroadcaster(client Publisher, logger hclog.Logger) *Broadcaster {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Broadcaster{client: client, logger: logger.Named("realtime")}
}

// Channel returns the pub/sub channel of a user.
func Channel(userID string) string {
	return ChannelPrefix + userID
}

// NotificationCreated publishes msg to every recipient. A failure for one
// recipient does not stop the others.
func (b *Broadcaster) NotificationCreated(ctx context.Context, msg *notifications.CreatedMessage) error {
	payload, err := json.Marshal(Event{
		NotificationID: msg.NotificationID,
		Type:           msg.Type,
		CreatedAt:      msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("error encoding realtime event: %w", err)
	}

	var result error
	delivered := 0
	for _, userID := range msg.UserIDs {
		if err := b.client.Publish(ctx, Channel(userID), payload).Err(); err != nil {
			result = multierror.Append(result, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		delivered++
	}
	b.logger.Trace("pushed notification",
		"notification_id", msg.NotificationID,
		"recipients", len(msg.UserIDs),
		"published", delivered)
	return result
}
