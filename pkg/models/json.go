package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Channel preference values.
const (
	ChannelSubscribed = "subscribed"
	ChannelMuted      = "muted"
)

// ChannelPreference is a user's preference for one notification type.
type ChannelPreference struct {
	InApp string `json:"inApp,omitempty"`
	Email string `json:"email,omitempty"`
}

// NotificationFlags maps a notification type to its channel preferences. It is
// stored as a JSON document and works with both PostgreSQL JSONB and SQLite.
type NotificationFlags map[string]ChannelPreference

// InAppMuted reports whether the type is muted on the in-app channel.
func (f NotificationFlags) InAppMuted(notificationType string) bool {
	return f[notificationType].InApp == ChannelMuted
}

// EmailMuted reports whether the type is muted on the email channel.
func (f NotificationFlags) EmailMuted(notificationType string) bool {
	return f[notificationType].Email == ChannelMuted
}

// Value implements driver.Valuer interface for database writes.
func (f NotificationFlags) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(map[string]ChannelPreference(f))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification flags: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner interface for database reads.
func (f *NotificationFlags) Scan(value interface{}) error {
	if value == nil {
		*f = NotificationFlags{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal notification flags: unsupported type")
	}

	flags := NotificationFlags{}
	if len(bytes) > 0 {
		if err := json.Unmarshal(bytes, &flags); err != nil {
			return fmt.Errorf("invalid notification flags in database: %w", err)
		}
	}
	*f = flags
	return nil
}
