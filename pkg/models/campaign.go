package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign types and states.
const (
	CampaignTypePost  = "post"
	CampaignTypeSquad = "squad"

	CampaignStatePending   = "pending"
	CampaignStateActive    = "active"
	CampaignStateCompleted = "completed"
	CampaignStateCancelled = "cancelled"
)

// Campaign is a paid boost of a post or a squad.
type Campaign struct {
	ID          string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Type        string    `gorm:"type:varchar(16);not null" json:"type"`
	ReferenceID string    `gorm:"type:varchar(64);not null" json:"referenceId"`
	UserID      string    `gorm:"type:varchar(64);not null;index" json:"userId"`
	State       string    `gorm:"type:varchar(16);not null;default:'pending'" json:"state"`
	Impressions int       `gorm:"not null;default:0" json:"impressions"`
	Clicks      int       `gorm:"not null;default:0" json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name.
func (Campaign) TableName() string {
	return "campaigns"
}

// GetCampaign loads a campaign by id.
func GetCampaign(db *gorm.DB, id string) (*Campaign, error) {
	var c Campaign
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UserTransaction is a transfer of cores between two users, e.g. an award.
type UserTransaction struct {
	ID          string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	SenderID    *string   `gorm:"type:varchar(64)" json:"senderId,omitempty"`
	ReceiverID  string    `gorm:"type:varchar(64);not null;index" json:"receiverId"`
	Value       int       `gorm:"not null" json:"value"`
	ProductName string    `gorm:"type:text" json:"productName,omitempty"`
	ProductIcon string    `gorm:"type:text" json:"productIcon,omitempty"`
	Status      string    `gorm:"type:varchar(16);not null;default:'success'" json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name.
func (UserTransaction) TableName() string {
	return "user_transactions"
}
