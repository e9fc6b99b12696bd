// Package store persists notifications and their per-recipient delivery rows.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hashicorp-forge/courier/pkg/models"
)

// DefaultChunkSize bounds the number of recipients per statement.
const DefaultChunkSize = 500

// Config configures a Store.
type Config struct {
	// ChunkSize is the number of recipients handled per statement.
	ChunkSize int

	Logger hclog.Logger
}

// Store writes notifications and delivery rows.
type Store struct {
	chunkSize int
	logger    hclog.Logger
}

// New returns a store.
func New(cfg Config) *Store {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Store{
		chunkSize: cfg.ChunkSize,
		logger:    cfg.Logger.Named("store"),
	}
}

// FanOutResult describes the delivery rows written for a notification.
type FanOutResult struct {
	// Recipients are the users a delivery row was attempted for.
	Recipients []string
	// Inserted is the number of delivery rows actually created.
	Inserted int64
	// Batches is the number of insert statements issued.
	Batches int
}

// CreateNotification inserts n unless a notification with the same dedup
// identity exists. It reports whether a row was created.
func (s *Store) CreateNotification(ctx context.Context, tx *gorm.DB, n *models.Notification) (bool, error) {
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(n)
	if result.Error != nil {
		return false, fmt.Errorf("error creating notification: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindNotification returns the stored notification sharing the dedup key of n.
func (s *Store) FindNotification(ctx context.Context, db *gorm.DB, n *models.Notification) (*models.Notification, error) {
	var found models.Notification
	err := db.WithContext(ctx).
		Where("type = ? AND reference_id = ? AND reference_type = ? AND unique_key = ?",
			n.Type, n.ReferenceID, n.ReferenceType, n.UniqueKey).
		First(&found).Error
	if err != nil {
		return nil, fmt.Errorf("error finding notification: %w", err)
	}
	return &found, nil
}

// Recipients returns the users holding a delivery row of a notification.
func (s *Store) Recipients(ctx context.Context, db *gorm.DB, notificationID uuid.UUID) ([]string, error) {
	var userIDs []string
	err := db.WithContext(ctx).
		Model(&models.UserNotification{}).
		Where("notification_id = ?", notificationID).
		Order("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("error loading recipients: %w", err)
	}
	return userIDs, nil
}

// FanOut inserts one delivery row per recipient, in chunks. A public
// notification is hidden from recipients that muted its type in-app; a
// non-public notification keeps its visibility for everyone. Rows that
// already exist for a (user, unique key) pair are left untouched.
func (s *Store) FanOut(ctx context.Context, tx *gorm.DB, n *models.Notification, userIDs []string) (*FanOutResult, error) {
	res := &FanOutResult{Recipients: userIDs}
	uniqueKey := n.DeliveryUniqueKey()
	now := time.Now().UTC()

	for _, chunk := range Chunk(userIDs, s.chunkSize) {
		muted := map[string]bool{}
		if n.Public {
			var err error
			muted, err = s.mutedUsers(ctx, tx, n.Type, chunk)
			if err != nil {
				return nil, err
			}
		}

		rows := make([]models.UserNotification, len(chunk))
		for i, userID := range chunk {
			rows[i] = models.UserNotification{
				UserID:         userID,
				NotificationID: n.ID,
				Public:         n.Public && !muted[userID],
				UniqueKey:      uniqueKey,
				CreatedAt:      now,
			}
		}

		result := tx.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&rows)
		if result.Error != nil {
			return nil, fmt.Errorf("error inserting delivery rows: %w", result.Error)
		}
		res.Inserted += result.RowsAffected
		res.Batches++
	}

	s.logger.Debug("fanned out notification",
		"notification_id", n.ID,
		"type", n.Type,
		"recipients", len(userIDs),
		"inserted", res.Inserted,
		"batches", res.Batches)
	return res, nil
}

// mutedUsers returns the users of chunk that muted notificationType in-app.
func (s *Store) mutedUsers(ctx context.Context, tx *gorm.DB, notificationType string, chunk []string) (map[string]bool, error) {
	var users []models.User
	err := tx.WithContext(ctx).
		Select("id", "notification_flags").
		Where("id IN ?", chunk).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("error loading notification flags: %w", err)
	}

	muted := make(map[string]bool)
	for _, u := range users {
		if u.NotificationFlags.InAppMuted(notificationType) {
			muted[u.ID] = true
		}
	}
	return muted, nil
}

// FilterBlocked removes from userIDs every user who blocked initiatorID,
// preserving order. Without an initiator the list is returned unchanged.
func (s *Store) FilterBlocked(ctx context.Context, db *gorm.DB, initiatorID string, userIDs []string) ([]string, error) {
	if initiatorID == "" || len(userIDs) == 0 {
		return userIDs, nil
	}

	blocked := make(map[string]bool)
	for _, chunk := range Chunk(userIDs, s.chunkSize) {
		var ids []string
		err := db.WithContext(ctx).
			Model(&models.ContentPreference{}).
			Where("reference_id = ? AND type = ? AND status = ? AND user_id IN ?",
				initiatorID, models.ContentPreferenceTypeUser, models.ContentPreferenceStatusBlock, chunk).
			Pluck("user_id", &ids).Error
		if err != nil {
			return nil, fmt.Errorf("error loading content preferences: %w", err)
		}
		for _, id := range ids {
			blocked[id] = true
		}
	}

	if len(blocked) == 0 {
		return userIDs, nil
	}
	kept := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if !blocked[id] {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
