package workers

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

// UpvoteMilestones are the upvote counts that trigger a milestone notification.
var UpvoteMilestones = []int{1, 3, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000}

// recentUpvoters is the number of upvoter avatars shown on a milestone.
const recentUpvoters = 5

type postUpvoteEvent struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
}

type commentUpvoteEvent struct {
	CommentID string `json:"commentId"`
	UserID    string `json:"userId"`
}

func isMilestone(upvotes int) bool {
	for _, m := range UpvoteMilestones {
		if m == upvotes {
			return true
		}
	}
	return false
}

var postUpvoteMilestone = worker.NotificationWorker[postUpvoteEvent]{
	Subscription: SubscriptionPostUpvoteMilestone,
	Handler: func(ctx context.Context, e postUpvoteEvent, db *gorm.DB) ([]notifications.Generated, error) {
		pc, err := loadPostContext(db, e.PostID)
		if err != nil || pc == nil {
			return nil, err
		}
		if !isMilestone(pc.Post.Upvotes) {
			return nil, nil
		}

		recipients := without([]string{deref(pc.Post.AuthorID), deref(pc.Post.ScoutID)})
		if len(recipients) == 0 {
			return nil, nil
		}
		upvoters, err := models.GetRecentUpvoters(db, models.UpvoteKindPost, pc.Post.ID, recentUpvoters)
		if err != nil {
			return nil, fmt.Errorf("error loading upvoters: %w", err)
		}

		pc.UserIDs = recipients
		pc.InitiatorID = e.UserID
		return []notifications.Generated{{
			Type: notifications.NotificationTypeArticleUpvoteMilestone,
			Context: &notifications.PostUpvotesContext{
				PostContext: *pc,
				Upvotes:     pc.Post.Upvotes,
				Upvoters:    upvoters,
			},
		}}, nil
	},
}

var commentUpvoteMilestone = worker.NotificationWorker[commentUpvoteEvent]{
	Subscription: SubscriptionCommentUpvoteMilestone,
	Handler: func(ctx context.Context, e commentUpvoteEvent, db *gorm.DB) ([]notifications.Generated, error) {
		comment, err := models.GetComment(db, e.CommentID)
		if isNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error loading comment: %w", err)
		}
		if !isMilestone(comment.Upvotes) {
			return nil, nil
		}

		pc, err := loadPostContext(db, comment.PostID)
		if err != nil || pc == nil {
			return nil, err
		}
		upvoters, err := models.GetRecentUpvoters(db, models.UpvoteKindComment, comment.ID, recentUpvoters)
		if err != nil {
			return nil, fmt.Errorf("error loading upvoters: %w", err)
		}

		pc.UserIDs = []string{comment.UserID}
		pc.InitiatorID = e.UserID
		return []notifications.Generated{{
			Type: notifications.NotificationTypeCommentUpvoteMilestone,
			Context: &notifications.CommentUpvotesContext{
				CommentContext: notifications.CommentContext{PostContext: *pc, Comment: *comment},
				Upvotes:        comment.Upvotes,
				Upvoters:       upvoters,
			},
		}}, nil
	},
}
