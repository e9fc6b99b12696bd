// Package workers holds the event handlers that decide who is notified of
// what. Each handler reads through the replica-routed database handle and
// returns the notifications to persist.
package workers

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/database"
	"github.com/hashicorp-forge/courier/pkg/pipeline"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

// Subscriptions.
const (
	SubscriptionPostCommented          = "api.v1.post-commented"
	SubscriptionCommentCommented       = "api.v1.comment-commented"
	SubscriptionPostUpvoteMilestone    = "api.v1.post-upvote-milestone"
	SubscriptionCommentUpvoteMilestone = "api.v1.comment-upvote-milestone"
	SubscriptionMemberJoinedSource     = "api.v1.member-joined-source"
	SubscriptionSourceMemberRole       = "api.v1.source-member-role-changed"
	SubscriptionPostAdded              = "api.v1.post-added"
	SubscriptionSourceRequest          = "api.v1.source-request"
	SubscriptionCampaignCompleted      = "api.v1.campaign-completed"
	SubscriptionUserTransaction        = "api.v1.user-transaction"
	SubscriptionCollectionUpdated      = "api.v1.collection-updated"
)

// All returns every notification worker.
func All() []worker.Binder {
	return []worker.Binder{
		postCommented,
		commentCommented,
		postUpvoteMilestone,
		commentUpvoteMilestone,
		memberJoinedSource,
		sourceMemberRoleChanged,
		postAdded,
		sourceRequest,
		campaignCompleted,
		userTransaction,
		collectionUpdated,
	}
}

// Bind binds the workers named in subscriptions, or all of them when
// subscriptions is empty.
func Bind(p *pipeline.Pipeline, cluster *database.Cluster, subscriptions []string) ([]worker.Worker, error) {
	all := All()
	if len(subscriptions) == 0 {
		bound := make([]worker.Worker, len(all))
		for i, b := range all {
			bound[i] = b.Bind(p, cluster)
		}
		return bound, nil
	}

	byName := make(map[string]worker.Binder, len(all))
	for _, b := range all {
		byName[b.Name()] = b
	}
	bound := make([]worker.Worker, 0, len(subscriptions))
	for _, name := range subscriptions {
		b, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown subscription %q", name)
		}
		bound = append(bound, b.Bind(p, cluster))
	}
	return bound, nil
}

// Subscriptions returns the names of every worker.
func Subscriptions() []string {
	all := All()
	names := make([]string, len(all))
	for i, b := range all {
		names[i] = b.Name()
	}
	return names
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// without returns ids minus the excluded ones and empty strings, keeping order.
func without(ids []string, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude)+1)
	skip[""] = true
	for _, id := range exclude {
		skip[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !skip[id] {
			out = append(out, id)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
