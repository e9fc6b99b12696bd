// Package email sends notification emails for newly created notifications.
package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/notifications/backends"
	"github.com/hashicorp-forge/courier/pkg/worker"
)

// Skip reasons.
const (
	SkipUserNotFound     = "user_not_found"
	SkipEmailDisabled    = "email_disabled"
	SkipNoDelivery       = "no_delivery"
	SkipNotPublic        = "not_public"
	SkipEmailMuted       = "email_muted"
	SkipNoTemplate       = "no_template"
	SkipNoData           = "no_data"
	SkipMissingRecipient = "no_address"
	SkipAlreadySent      = "already_sent"
)

// Sender delivers a rendered email. *backends.Registry satisfies it.
type Sender interface {
	Send(ctx context.Context, email *backends.Email) error
}

// Config configures a Dispatcher.
type Config struct {
	// DB must read its own writes: the sent marker of a delivery row is
	// written after each send and checked on redelivery.
	DB     *gorm.DB
	Sender Sender
	Logger hclog.Logger
}

// Dispatcher emails the recipients of created notifications.
type Dispatcher struct {
	db     *gorm.DB
	sender Sender
	logger hclog.Logger
}

// Summary reports what a dispatch did.
type Summary struct {
	Sent    int
	Skipped map[string]int
}

func (s *Summary) skip(reason string) {
	if s.Skipped == nil {
		s.Skipped = make(map[string]int)
	}
	s.Skipped[reason]++
}

// NewDispatcher returns a dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.DB == nil {
		return nil, errors.New("database is required")
	}
	if cfg.Sender == nil {
		return nil, errors.New("sender is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Dispatcher{db: cfg.DB, sender: cfg.Sender, logger: cfg.Logger.Named("mailer")}, nil
}

// Dispatch emails every recipient of msg that should get one. A notification
// that no longer exists is skipped. Each successful send marks the delivery
// row, so a redelivered message only reaches recipients whose send failed.
// Send failures are collected and returned after every recipient was
// attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *notifications.CreatedMessage) (*Summary, error) {
	summary := &Summary{}

	templateID, ok := TemplateID(msg.Type)
	if !ok {
		summary.Skipped = map[string]int{SkipNoTemplate: len(msg.UserIDs)}
		return summary, nil
	}

	notificationID, err := uuid.Parse(msg.NotificationID)
	if err != nil {
		return nil, fmt.Errorf("invalid notification id %q: %w", msg.NotificationID, err)
	}

	db := d.db.WithContext(ctx)
	n, err := models.GetNotification(db, notificationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		d.logger.Debug("notification not found, skipping", "notification_id", notificationID)
		return summary, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading notification: %w", err)
	}
	avatars, err := models.GetNotificationAvatars(db, n.Avatars)
	if err != nil {
		return nil, fmt.Errorf("error loading avatars: %w", err)
	}
	attachments, err := models.GetNotificationAttachments(db, n.Attachments)
	if err != nil {
		return nil, fmt.Errorf("error loading attachments: %w", err)
	}

	var result error
	for _, userID := range msg.UserIDs {
		email, reason, err := d.prepare(db, userID, templateID, n, avatars, attachments)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if reason != "" {
			summary.skip(reason)
			continue
		}

		if err := d.sender.Send(ctx, email); err != nil {
			result = multierror.Append(result, fmt.Errorf("error sending email to %s: %w", userID, err))
			continue
		}
		summary.Sent++
		if _, err := models.MarkEmailSent(db, userID, n.ID, time.Now().UTC()); err != nil {
			d.logger.Error("error marking email sent",
				"notification_id", notificationID,
				"user_id", userID,
				"error", err)
			result = multierror.Append(result, fmt.Errorf("error marking email sent to %s: %w", userID, err))
		}
	}

	d.logger.Debug("dispatched notification emails",
		"notification_id", notificationID,
		"type", msg.Type,
		"sent", summary.Sent,
		"skipped", summary.Skipped)
	return summary, result
}

// prepare builds the email for one recipient, or the reason it is skipped.
func (d *Dispatcher) prepare(
	db *gorm.DB,
	userID, templateID string,
	n *models.Notification,
	avatars []models.NotificationAvatar,
	attachments []models.NotificationAttachment,
) (*backends.Email, string, error) {
	user, err := models.GetUser(db, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, SkipUserNotFound, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("error loading user %s: %w", userID, err)
	}
	if !user.NotificationEmail {
		return nil, SkipEmailDisabled, nil
	}
	if user.NotificationFlags.EmailMuted(n.Type) {
		return nil, SkipEmailMuted, nil
	}
	if user.Email == "" {
		return nil, SkipMissingRecipient, nil
	}

	delivery, err := models.GetUserNotification(db, userID, n.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, SkipNoDelivery, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("error loading delivery for %s: %w", userID, err)
	}
	if !delivery.Public {
		return nil, SkipNotPublic, nil
	}
	if delivery.EmailSentAt != nil {
		return nil, SkipAlreadySent, nil
	}

	data, err := TemplateData(notifications.NotificationType(n.Type), &Input{
		User:         user,
		Notification: n,
		Avatars:      avatars,
		Attachments:  attachments,
	})
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, SkipNoData, nil
	}

	return &backends.Email{
		NotificationID:   n.ID.String(),
		NotificationType: n.Type,
		TemplateID:       templateID,
		Subject:          plainText(n.Title),
		To: backends.Recipient{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.DisplayName(),
		},
		Data:      data,
		Timestamp: n.CreatedAt,
	}, "", nil
}

// Worker returns the worker consuming created events on topic.
func (d *Dispatcher) Worker(topic string) worker.Worker {
	return worker.Worker{
		Subscription: topic,
		Handle: func(ctx context.Context, msg *worker.Message) (worker.Outcome, error) {
			var created notifications.CreatedMessage
			if err := json.Unmarshal(msg.Value, &created); err != nil {
				return "", &worker.DecodeError{Subscription: topic, Err: err}
			}
			summary, err := d.Dispatch(ctx, &created)
			if err != nil {
				return "", err
			}
			if summary.Sent == 0 {
				return worker.OutcomeEmpty, nil
			}
			return worker.OutcomeProcessed, nil
		},
	}
}
