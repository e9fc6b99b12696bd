package workers

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

type postCommentedEvent struct {
	UserID    string `json:"userId"`
	CommentID string `json:"commentId"`
}

type commentCommentedEvent struct {
	UserID          string `json:"userId"`
	ParentCommentID string `json:"parentCommentId"`
	ChildCommentID  string `json:"childCommentId"`
}

var postCommented = worker.NotificationWorker[postCommentedEvent]{
	Subscription: SubscriptionPostCommented,
	Handler: func(ctx context.Context, e postCommentedEvent, db *gorm.DB) ([]notifications.Generated, error) {
		c, err := loadCommenter(db, e.CommentID)
		if err != nil || c == nil {
			return nil, err
		}

		recipients := without([]string{deref(c.Post.AuthorID), deref(c.Post.ScoutID)}, c.Commenter.ID)
		if len(recipients) == 0 {
			return nil, nil
		}
		c.UserIDs = recipients

		t := notifications.NotificationTypeArticleNewComment
		if c.Source.IsSquad() {
			t = notifications.NotificationTypeSquadNewComment
		}
		return []notifications.Generated{{Type: t, Context: c}}, nil
	},
}

var commentCommented = worker.NotificationWorker[commentCommentedEvent]{
	Subscription: SubscriptionCommentCommented,
	Handler: func(ctx context.Context, e commentCommentedEvent, db *gorm.DB) ([]notifications.Generated, error) {
		c, err := loadCommenter(db, e.ChildCommentID)
		if err != nil || c == nil {
			return nil, err
		}

		participants, err := models.GetThreadParticipantIDs(db, e.ParentCommentID)
		if err != nil {
			return nil, fmt.Errorf("error loading thread participants: %w", err)
		}
		recipients := without(participants, c.Commenter.ID)
		if len(recipients) == 0 {
			return nil, nil
		}
		c.UserIDs = recipients

		t := notifications.NotificationTypeCommentReply
		if c.Source.IsSquad() {
			t = notifications.NotificationTypeSquadReply
		}
		return []notifications.Generated{{Type: t, Context: c}}, nil
	},
}

// loadCommenter builds a commenter context without recipients. It returns
// nil when the comment, its post, its source or its author is gone.
func loadCommenter(db *gorm.DB, commentID string) (*notifications.CommenterContext, error) {
	comment, err := models.GetComment(db, commentID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading comment: %w", err)
	}

	pc, err := loadPostContext(db, comment.PostID)
	if err != nil || pc == nil {
		return nil, err
	}

	commenter, err := models.GetUser(db, comment.UserID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading commenter: %w", err)
	}

	pc.InitiatorID = commenter.ID
	return &notifications.CommenterContext{
		CommentContext: notifications.CommentContext{PostContext: *pc, Comment: *comment},
		Commenter:      *commenter,
	}, nil
}

// loadPostContext loads a post with its source and shared post. It returns
// nil when the post or its source is gone.
func loadPostContext(db *gorm.DB, postID string) (*notifications.PostContext, error) {
	post, err := models.GetPost(db, postID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading post: %w", err)
	}

	source, err := models.GetSource(db, post.SourceID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading source: %w", err)
	}

	pc := &notifications.PostContext{Post: *post, Source: *source}
	if post.SharedPostID != nil {
		shared, err := models.GetPost(db, *post.SharedPostID)
		switch {
		case isNotFound(err):
		case err != nil:
			return nil, fmt.Errorf("error loading shared post: %w", err)
		default:
			pc.SharedPost = shared
		}
	}
	return pc, nil
}
