package workers

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

// Source request outcomes.
const (
	SourceRequestReasonPublish = "publish"
	SourceRequestReasonDecline = "decline"
)

type sourceRequestEvent struct {
	Reason        string `json:"reason"`
	SourceRequest struct {
		ID           string `json:"id"`
		SourceURL    string `json:"sourceUrl"`
		UserID       string `json:"userId"`
		SourceID     string `json:"sourceId"`
		RejectReason string `json:"rejectReason"`
		UpdatedAt    Time   `json:"updatedAt"`
	} `json:"sourceRequest"`
}

type campaignCompletedEvent struct {
	CampaignID string `json:"campaignId"`
}

type userTransactionEvent struct {
	Transaction struct {
		ID          string `json:"id"`
		SenderID    string `json:"senderId"`
		ReceiverID  string `json:"receiverId"`
		Value       Count  `json:"value"`
		ProductName string `json:"productName"`
		ProductIcon string `json:"productIcon"`
		Status      string `json:"status"`
		PostID      string `json:"postId"`
		CreatedAt   Time   `json:"createdAt"`
	} `json:"transaction"`
}

var sourceRequest = worker.NotificationWorker[sourceRequestEvent]{
	Subscription: SubscriptionSourceRequest,
	Handler: func(ctx context.Context, e sourceRequestEvent, db *gorm.DB) ([]notifications.Generated, error) {
		r := e.SourceRequest
		if r.UserID == "" {
			return nil, nil
		}
		sc := &notifications.SourceRequestContext{
			BaseContext: notifications.BaseContext{UserIDs: []string{r.UserID}},
			Request: notifications.SourceRequest{
				ID:        r.ID,
				SourceURL: r.SourceURL,
				Reason:    r.RejectReason,
			},
		}

		switch e.Reason {
		case SourceRequestReasonPublish:
			if r.SourceID != "" {
				source, err := models.GetSource(db, r.SourceID)
				switch {
				case isNotFound(err):
				case err != nil:
					return nil, fmt.Errorf("error loading source: %w", err)
				default:
					sc.Source = source
				}
			}
			return []notifications.Generated{{Type: notifications.NotificationTypeSourceApproved, Context: sc}}, nil
		case SourceRequestReasonDecline:
			return []notifications.Generated{{Type: notifications.NotificationTypeSourceRejected, Context: sc}}, nil
		}
		return nil, nil
	},
}

var campaignCompleted = worker.NotificationWorker[campaignCompletedEvent]{
	Subscription: SubscriptionCampaignCompleted,
	Handler: func(ctx context.Context, e campaignCompletedEvent, db *gorm.DB) ([]notifications.Generated, error) {
		campaign, err := models.GetCampaign(db, e.CampaignID)
		if isNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error loading campaign: %w", err)
		}
		base := notifications.BaseContext{UserIDs: []string{campaign.UserID}}

		switch campaign.Type {
		case models.CampaignTypePost:
			pc, err := loadPostContext(db, campaign.ReferenceID)
			if err != nil || pc == nil {
				return nil, err
			}
			pc.BaseContext = base
			return []notifications.Generated{{
				Type:    notifications.NotificationTypeCampaignPostCompleted,
				Context: &notifications.CampaignPostContext{PostContext: *pc, Campaign: *campaign},
			}}, nil
		case models.CampaignTypeSquad:
			source, err := models.GetSource(db, campaign.ReferenceID)
			if isNotFound(err) {
				return nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("error loading source: %w", err)
			}
			return []notifications.Generated{{
				Type: notifications.NotificationTypeCampaignSquadCompleted,
				Context: &notifications.CampaignSourceContext{
					SourceContext: notifications.SourceContext{BaseContext: base, Source: *source},
					Campaign:      *campaign,
				},
			}}, nil
		}
		return nil, nil
	},
}

var userTransaction = worker.NotificationWorker[userTransactionEvent]{
	Subscription: SubscriptionUserTransaction,
	Handler: func(ctx context.Context, e userTransactionEvent, db *gorm.DB) ([]notifications.Generated, error) {
		t := e.Transaction
		if t.SenderID == "" || t.ReceiverID == "" || t.SenderID == t.ReceiverID {
			return nil, nil
		}
		if t.Status != "" && t.Status != "success" {
			return nil, nil
		}

		sender, err := models.GetUser(db, t.SenderID)
		if isNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error loading sender: %w", err)
		}

		var post *models.Post
		if t.PostID != "" {
			post, err = models.GetPost(db, t.PostID)
			if isNotFound(err) {
				post, err = nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("error loading awarded post: %w", err)
			}
		}

		senderID := t.SenderID
		return []notifications.Generated{{
			Type: notifications.NotificationTypeUserReceivedAward,
			Context: &notifications.AwardContext{
				BaseContext: notifications.BaseContext{
					UserIDs:     []string{t.ReceiverID},
					InitiatorID: t.SenderID,
				},
				Transaction: models.UserTransaction{
					ID:          t.ID,
					SenderID:    &senderID,
					ReceiverID:  t.ReceiverID,
					Value:       int(t.Value),
					ProductName: t.ProductName,
					ProductIcon: t.ProductIcon,
					Status:      t.Status,
					CreatedAt:   t.CreatedAt.Time,
				},
				Sender: *sender,
				Post:   post,
			},
		}}, nil
	},
}
