package workers

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

type postAddedEvent struct {
	Post struct {
		ID        string `json:"id"`
		SourceID  string `json:"sourceId"`
		AuthorID  string `json:"authorId"`
		Private   bool   `json:"private"`
		CreatedAt Time   `json:"createdAt"`
	} `json:"post"`
}

type collectionUpdatedEvent struct {
	PostID string `json:"postId"`
	Total  Count  `json:"total"`
}

var postAdded = worker.NotificationWorker[postAddedEvent]{
	Subscription: SubscriptionPostAdded,
	Handler: func(ctx context.Context, e postAddedEvent, db *gorm.DB) ([]notifications.Generated, error) {
		pc, err := loadPostContext(db, e.Post.ID)
		if err != nil || pc == nil {
			return nil, err
		}

		if !pc.Source.IsSquad() {
			if pc.Source.Private {
				return nil, nil
			}
			followers, err := models.GetSourceFollowerIDs(db, pc.Source.ID)
			if err != nil {
				return nil, fmt.Errorf("error loading source followers: %w", err)
			}
			if len(followers) == 0 {
				return nil, nil
			}
			pc.UserIDs = followers
			return []notifications.Generated{{Type: notifications.NotificationTypeSourcePostAdded, Context: pc}}, nil
		}

		authorID := deref(pc.Post.AuthorID)
		if authorID == "" {
			return nil, nil
		}
		author, err := models.GetUser(db, authorID)
		if isNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error loading author: %w", err)
		}
		members, err := models.GetSourceMemberIDs(db, pc.Source.ID, []string{
			models.SourceMemberRoleAdmin,
			models.SourceMemberRoleModerator,
			models.SourceMemberRoleMember,
		})
		if err != nil {
			return nil, fmt.Errorf("error loading squad members: %w", err)
		}
		recipients := without(members, authorID)
		if len(recipients) == 0 {
			return nil, nil
		}

		pc.UserIDs = recipients
		pc.InitiatorID = authorID
		return []notifications.Generated{{
			Type:    notifications.NotificationTypeSquadPostAdded,
			Context: &notifications.PostDoneByContext{PostContext: *pc, DoneBy: *author},
		}}, nil
	},
}

var collectionUpdated = worker.NotificationWorker[collectionUpdatedEvent]{
	Subscription: SubscriptionCollectionUpdated,
	Handler: func(ctx context.Context, e collectionUpdatedEvent, db *gorm.DB) ([]notifications.Generated, error) {
		pc, err := loadPostContext(db, e.PostID)
		if err != nil || pc == nil {
			return nil, err
		}

		var upvoters []string
		err = db.Model(&models.Upvote{}).
			Where("kind = ? AND reference_id = ?", models.UpvoteKindPost, pc.Post.ID).
			Order("created_at ASC").
			Pluck("user_id", &upvoters).Error
		if err != nil {
			return nil, fmt.Errorf("error loading collection upvoters: %w", err)
		}
		if len(upvoters) == 0 {
			return nil, nil
		}

		pc.UserIDs = upvoters
		return []notifications.Generated{{
			Type: notifications.NotificationTypeCollectionUpdated,
			Context: &notifications.CollectionContext{
				PostContext: *pc,
				Sources:     []models.Source{pc.Source},
				Total:       int(e.Total),
			},
		}}, nil
	},
}
