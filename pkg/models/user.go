package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a read-only collaborator: the recipient of notifications.
type User struct {
	ID         string `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name       string `gorm:"type:text" json:"name"`
	Username   string `gorm:"type:varchar(255);index" json:"username"`
	Image      string `gorm:"type:text" json:"image"`
	Reputation int    `gorm:"not null;default:10" json:"reputation"`
	Email      string `gorm:"type:varchar(255)" json:"email"`

	// NotificationEmail is the global email opt-in.
	NotificationEmail bool `gorm:"not null" json:"notificationEmail"`

	// NotificationFlags holds per-type channel preferences.
	NotificationFlags NotificationFlags `gorm:"type:jsonb" json:"notificationFlags"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name.
func (User) TableName() string {
	return "users"
}

// DisplayName returns the name shown on avatars.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// ContentPreference status and type constants.
const (
	ContentPreferenceTypeUser     = "user"
	ContentPreferenceTypeSource   = "source"
	ContentPreferenceStatusFollow = "follow"
	ContentPreferenceStatusBlock  = "blocked"
)

// ContentPreference records a user's relationship to another entity. A blocked
// user preference excludes the user from notifications triggered by that entity.
type ContentPreference struct {
	UserID      string    `gorm:"type:varchar(64);primaryKey" json:"userId"`
	ReferenceID string    `gorm:"type:varchar(255);primaryKey;index:idx_content_preferences_reference,priority:1" json:"referenceId"`
	Type        string    `gorm:"type:varchar(32);not null;index:idx_content_preferences_reference,priority:2" json:"type"`
	Status      string    `gorm:"type:varchar(32);not null;index:idx_content_preferences_reference,priority:3" json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name.
func (ContentPreference) TableName() string {
	return "content_preferences"
}

// GetUsersByIDs loads the users with the given ids. Missing ids are skipped.
func GetUsersByIDs(db *gorm.DB, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []User
	err := db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// GetSourceFollowerIDs returns the users following a source.
func GetSourceFollowerIDs(db *gorm.DB, sourceID string) ([]string, error) {
	var ids []string
	err := db.Model(&ContentPreference{}).
		Where("reference_id = ? AND type = ? AND status = ?",
			sourceID, ContentPreferenceTypeSource, ContentPreferenceStatusFollow).
		Pluck("user_id", &ids).Error
	return ids, err
}
