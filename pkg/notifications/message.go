package notifications

import (
	"time"

	"github.com/google/uuid"
)

// CreatedTopic is the default topic new notifications are announced on.
const CreatedTopic = "courier.notification-created"

// CreatedMessage announces a notification that was persisted together with the
// recipients that received a delivery row for it.
type CreatedMessage struct {
	ID             string           `json:"id"`
	NotificationID string           `json:"notification_id"`
	Type           NotificationType `json:"type"`
	UserIDs        []string         `json:"user_ids"`
	Timestamp      time.Time        `json:"timestamp"`
}

// NewCreatedMessage returns an envelope with a fresh message id.
func NewCreatedMessage(notificationID string, t NotificationType, userIDs []string) *CreatedMessage {
	return &CreatedMessage{
		ID:             uuid.New().String(),
		NotificationID: notificationID,
		Type:           t,
		UserIDs:        userIDs,
		Timestamp:      time.Now().UTC(),
	}
}
