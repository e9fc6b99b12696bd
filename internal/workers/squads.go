package workers

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

type sourceMember struct {
	SourceID  string `json:"sourceId"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	CreatedAt Time   `json:"createdAt"`
}

type memberJoinedEvent struct {
	SourceMember sourceMember `json:"sourceMember"`
}

type memberRoleChangedEvent struct {
	PreviousRole string       `json:"previousRole"`
	SourceMember sourceMember `json:"sourceMember"`
}

var memberJoinedSource = worker.NotificationWorker[memberJoinedEvent]{
	Subscription: SubscriptionMemberJoinedSource,
	Handler: func(ctx context.Context, e memberJoinedEvent, db *gorm.DB) ([]notifications.Generated, error) {
		m := e.SourceMember
		if m.Role == models.SourceMemberRoleBlocked {
			return nil, nil
		}
		mc, err := loadMemberContext(db, m)
		if err != nil || mc == nil {
			return nil, err
		}
		if !mc.Source.IsSquad() {
			return nil, nil
		}

		admins, err := models.GetSourceMemberIDs(db, m.SourceID, []string{models.SourceMemberRoleAdmin})
		if err != nil {
			return nil, fmt.Errorf("error loading squad admins: %w", err)
		}
		recipients := without(admins, m.UserID)
		if len(recipients) == 0 {
			return nil, nil
		}
		mc.UserIDs = recipients
		mc.InitiatorID = m.UserID
		return []notifications.Generated{{Type: notifications.NotificationTypeSquadMemberJoined, Context: mc}}, nil
	},
}

var sourceMemberRoleChanged = worker.NotificationWorker[memberRoleChangedEvent]{
	Subscription: SubscriptionSourceMemberRole,
	Handler: func(ctx context.Context, e memberRoleChangedEvent, db *gorm.DB) ([]notifications.Generated, error) {
		m := e.SourceMember
		mc, err := loadMemberContext(db, m)
		if err != nil || mc == nil {
			return nil, err
		}
		mc.UserIDs = []string{m.UserID}

		switch m.Role {
		case models.SourceMemberRoleAdmin:
			return []notifications.Generated{{Type: notifications.NotificationTypePromotedToAdmin, Context: mc}}, nil
		case models.SourceMemberRoleModerator:
			return []notifications.Generated{{Type: notifications.NotificationTypePromotedToModerator, Context: mc}}, nil
		case models.SourceMemberRoleBlocked:
			return []notifications.Generated{{
				Type:    notifications.NotificationTypeSquadBlocked,
				Context: &mc.SourceContext,
			}}, nil
		case models.SourceMemberRoleMember:
			if e.PreviousRole != models.SourceMemberRoleAdmin && e.PreviousRole != models.SourceMemberRoleModerator {
				return nil, nil
			}
			mc.Role = e.PreviousRole
			return []notifications.Generated{{Type: notifications.NotificationTypeDemotedToMember, Context: mc}}, nil
		}
		return nil, nil
	},
}

// loadMemberContext returns nil when the source or the member is gone.
func loadMemberContext(db *gorm.DB, m sourceMember) (*notifications.SourceMemberContext, error) {
	source, err := models.GetSource(db, m.SourceID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading source: %w", err)
	}
	member, err := models.GetUser(db, m.UserID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading member: %w", err)
	}
	return &notifications.SourceMemberContext{
		SourceContext: notifications.SourceContext{Source: *source},
		Member:        *member,
		Role:          m.Role,
	}, nil
}
