package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/upsert"
)

// UserNotificationUserConstraint is the name of the foreign key from a delivery
// row to its recipient. A violation of this constraint means the recipient was
// deleted while the event was in flight.
const UserNotificationUserConstraint = "fk_user_notifications_user"

// Notification is one logical event occurrence. Core fields are immutable once
// created; Avatars and Attachments hold the resolved child ids in display order.
type Notification struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Type        string `gorm:"type:varchar(64);not null;uniqueIndex:idx_notifications_dedup,priority:1" json:"type"`
	Icon        string `gorm:"type:varchar(64);not null" json:"icon"`
	Title       string `gorm:"type:text;not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	TargetURL   string `gorm:"type:text;not null" json:"targetUrl"`
	Public      bool   `gorm:"not null" json:"public"`

	// Dedup identity: a replay of the same event collides on this index.
	ReferenceID   string `gorm:"type:varchar(255);not null;uniqueIndex:idx_notifications_dedup,priority:3" json:"referenceId"`
	ReferenceType string `gorm:"type:varchar(64);not null;uniqueIndex:idx_notifications_dedup,priority:2" json:"referenceType"`
	UniqueKey     string `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_notifications_dedup,priority:4" json:"uniqueKey,omitempty"`

	NumTotalAvatars *int `json:"numTotalAvatars,omitempty"`

	Avatars     []uuid.UUID `gorm:"serializer:json;type:jsonb;not null" json:"avatars"`
	Attachments []uuid.UUID `gorm:"serializer:json;type:jsonb;not null" json:"attachments"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

// TableName specifies the table name.
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate hook to ensure required fields.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Avatars == nil {
		n.Avatars = []uuid.UUID{}
	}
	if n.Attachments == nil {
		n.Attachments = []uuid.UUID{}
	}
	return nil
}

// DeliveryUniqueKey returns the key that deduplicates delivery rows for a
// recipient, or nil when the notification declares no unique key.
func (n *Notification) DeliveryUniqueKey() *string {
	if n.UniqueKey == "" {
		return nil
	}
	key := fmt.Sprintf("%s:%s:%s:%s", n.Type, n.ReferenceType, n.ReferenceID, n.UniqueKey)
	return &key
}

// NotificationAvatar is a shared avatar row, unique by (type, reference_id).
type NotificationAvatar struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Type        string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_notification_avatars_key,priority:1" json:"type"`
	ReferenceID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_notification_avatars_key,priority:2" json:"referenceId"`
	Image       string    `gorm:"type:text;not null" json:"image"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	TargetURL   string    `gorm:"type:text;not null" json:"targetUrl"`
}

// TableName specifies the table name.
func (NotificationAvatar) TableName() string {
	return "notification_avatars"
}

// NaturalKey returns the dedup key of the avatar.
func (a NotificationAvatar) NaturalKey() upsert.Key {
	return upsert.Key{Type: a.Type, ReferenceID: a.ReferenceID}
}

// NotificationAttachment is a shared attachment row, unique by (type, reference_id).
type NotificationAttachment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Type        string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_notification_attachments_key,priority:1" json:"type"`
	ReferenceID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_notification_attachments_key,priority:2" json:"referenceId"`
	Image       string    `gorm:"type:text;not null" json:"image"`
	Title       string    `gorm:"type:text;not null" json:"title"`
}

// TableName specifies the table name.
func (NotificationAttachment) TableName() string {
	return "notification_attachments"
}

// NaturalKey returns the dedup key of the attachment.
func (a NotificationAttachment) NaturalKey() upsert.Key {
	return upsert.Key{Type: a.Type, ReferenceID: a.ReferenceID}
}

// UserNotification is the per-recipient delivery row.
type UserNotification struct {
	UserID         string    `gorm:"type:varchar(64);primaryKey;uniqueIndex:idx_user_notifications_unique_key,priority:1" json:"userId"`
	NotificationID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"notificationId"`

	// Public is false when the recipient muted the type on the in-app channel.
	Public bool `gorm:"not null" json:"public"`

	// UniqueKey is NULL unless the notification declared one; NULLs never conflict.
	UniqueKey *string `gorm:"type:text;uniqueIndex:idx_user_notifications_unique_key,priority:2" json:"uniqueKey,omitempty"`

	CreatedAt time.Time  `gorm:"not null" json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`

	// EmailSentAt is set once the recipient's email was sent.
	EmailSentAt *time.Time `json:"emailSentAt,omitempty"`

	User         *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Notification *Notification `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name.
func (UserNotification) TableName() string {
	return "user_notifications"
}

// GetUserNotification returns the delivery row of a notification for a user.
func GetUserNotification(db *gorm.DB, userID string, notificationID uuid.UUID) (*UserNotification, error) {
	var un UserNotification
	err := db.Where("user_id = ? AND notification_id = ?", userID, notificationID).First(&un).Error
	if err != nil {
		return nil, err
	}
	return &un, nil
}

// MarkEmailSent records that the email of a delivery row was sent. It reports
// false when the row is missing or was already marked.
func MarkEmailSent(db *gorm.DB, userID string, notificationID uuid.UUID, at time.Time) (bool, error) {
	res := db.Model(&UserNotification{}).
		Where("user_id = ? AND notification_id = ? AND email_sent_at IS NULL", userID, notificationID).
		Update("email_sent_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountUserNotifications returns the number of delivery rows of a notification.
func CountUserNotifications(db *gorm.DB, notificationID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&UserNotification{}).
		Where("notification_id = ?", notificationID).
		Count(&count).Error
	return count, err
}

// GetNotificationAvatars loads avatars by id, preserving the given order.
func GetNotificationAvatars(db *gorm.DB, ids []uuid.UUID) ([]NotificationAvatar, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []NotificationAvatar
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]NotificationAvatar, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	ordered := make([]NotificationAvatar, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// GetNotificationAttachments loads attachments by id, preserving the given order.
func GetNotificationAttachments(db *gorm.DB, ids []uuid.UUID) ([]NotificationAttachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []NotificationAttachment
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]NotificationAttachment, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	ordered := make([]NotificationAttachment, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// GetNotification loads a notification by id.
func GetNotification(db *gorm.DB, id uuid.UUID) (*Notification, error) {
	var n Notification
	if err := db.Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}
