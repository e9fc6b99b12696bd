// Package pipeline turns generated (type, context) pairs into persisted
// notifications and delivery rows.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/database"
	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/store"
	"github.com/hashicorp-forge/courier/pkg/upsert"
)

// Sink is notified after a transaction that created notifications commits.
type Sink interface {
	NotificationCreated(ctx context.Context, msg *notifications.CreatedMessage) error
}

// Config configures a Pipeline.
type Config struct {
	Cluster   *database.Cluster
	Generator *notifications.Generator
	Store     *store.Store

	// Announcer is optional. It receives every created notification and, when
	// an event is replayed, the notification that already existed. A failure
	// is returned from Process so the event is redelivered and announced again.
	Announcer Sink

	// Sinks are best effort: failures are logged and replays are not sent.
	Sinks  []Sink
	Logger hclog.Logger
}

// Pipeline persists notifications for one event at a time.
type Pipeline struct {
	cluster   *database.Cluster
	generator *notifications.Generator
	store     *store.Store
	announcer Sink
	sinks     []Sink
	logger    hclog.Logger
}

// Result describes what processing an event did.
type Result struct {
	// Created holds one message per notification that was persisted.
	Created []*notifications.CreatedMessage

	// Filtered counts notifications dropped because every recipient blocked
	// the initiator or none were given.
	Filtered int

	// AlreadyProcessed counts notifications that existed before, whose
	// fan-out was skipped.
	AlreadyProcessed int

	// Replayed holds the existing notifications that were announced again.
	// It is only filled when an announcer is configured.
	Replayed []*notifications.CreatedMessage

	// Benign is set when the transaction failed on an entity that vanished
	// mid-flight and the event was treated as handled.
	Benign bool
}

// New returns a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Cluster == nil || cfg.Cluster.Primary == nil {
		return nil, errors.New("database cluster is required")
	}
	if cfg.Generator == nil {
		cfg.Generator = notifications.NewGenerator(notifications.URLs{})
	}
	if cfg.Store == nil {
		cfg.Store = store.New(store.Config{Logger: cfg.Logger})
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Pipeline{
		cluster:   cfg.Cluster,
		generator: cfg.Generator,
		store:     cfg.Store,
		announcer: cfg.Announcer,
		sinks:     cfg.Sinks,
		logger:    cfg.Logger.Named("pipeline"),
	}, nil
}

// Process builds, filters and persists every generated notification of one
// event inside a single transaction. An empty input is a no-op. Failures on a
// vanished entity are logged and reported through Result.Benign; any other
// failure rolls the transaction back and is returned. An announcer failure
// after commit is returned too.
func (p *Pipeline) Process(ctx context.Context, generated []notifications.Generated) (*Result, error) {
	res := &Result{}
	if len(generated) == 0 {
		return res, nil
	}

	bundles := make([]*notifications.Bundle, 0, len(generated))
	for _, g := range generated {
		bundle, err := p.generator.Generate(g.Type, g.Context)
		if err != nil {
			return nil, fmt.Errorf("error building notification: %w", err)
		}

		recipients, err := p.store.FilterBlocked(ctx, p.cluster.Reader(), bundle.InitiatorID, bundle.UserIDs)
		if err != nil {
			return nil, err
		}
		if len(recipients) == 0 {
			res.Filtered++
			continue
		}
		bundle.UserIDs = recipients
		bundles = append(bundles, bundle)
	}
	if len(bundles) == 0 {
		return res, nil
	}

	var created, replayed []*notifications.CreatedMessage
	var counted []countedFanOut
	err := p.cluster.Writer().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, replayed, counted = nil, nil, nil
		res.AlreadyProcessed = 0
		for _, bundle := range bundles {
			out, err := p.persist(ctx, tx, bundle)
			if err != nil {
				return err
			}
			if out.replayed {
				res.AlreadyProcessed++
				if out.msg != nil {
					replayed = append(replayed, out.msg)
				}
				continue
			}
			created = append(created, out.msg)
			counted = append(counted, countedFanOut{typ: string(out.msg.Type), inserted: out.fan.Inserted})
		}
		return nil
	})
	if err != nil {
		if store.IsBenignRace(err) {
			p.logger.Error("notification references a missing entity, skipping", "error", err)
			res.Benign = true
			res.AlreadyProcessed = 0
			return res, nil
		}
		return nil, fmt.Errorf("error persisting notifications: %w", err)
	}

	for _, c := range counted {
		notificationsCreated.WithLabelValues(c.typ).Inc()
		deliveriesCreated.WithLabelValues(c.typ).Add(float64(c.inserted))
	}
	res.Created = created
	res.Replayed = replayed
	p.notifySinks(ctx, created)

	if err := p.announce(ctx, append(created, replayed...)); err != nil {
		return nil, err
	}
	return res, nil
}

type countedFanOut struct {
	typ      string
	inserted int64
}

type persisted struct {
	msg      *notifications.CreatedMessage
	fan      *store.FanOutResult
	replayed bool
}

// persist writes one bundle. When the notification already existed its
// fan-out is skipped; msg then describes the existing notification if an
// announcer needs it, and is nil otherwise.
func (p *Pipeline) persist(ctx context.Context, tx *gorm.DB, bundle *notifications.Bundle) (*persisted, error) {
	avatarIDs, err := upsert.ResolveIDs(ctx, store.NewAvatarRepository(tx), avatarRows(bundle.Avatars))
	if err != nil {
		return nil, fmt.Errorf("error resolving avatars: %w", err)
	}
	attachmentIDs, err := upsert.ResolveIDs(ctx, store.NewAttachmentRepository(tx), attachmentRows(bundle.Attachments))
	if err != nil {
		return nil, fmt.Errorf("error resolving attachments: %w", err)
	}

	n := notificationRow(bundle.Notification)
	n.Avatars = avatarIDs
	n.Attachments = attachmentIDs

	ok, err := p.store.CreateNotification(ctx, tx, n)
	if err != nil {
		return nil, err
	}
	if !ok {
		p.logger.Debug("notification already processed",
			"type", n.Type,
			"reference_type", n.ReferenceType,
			"reference_id", n.ReferenceID,
			"unique_key", n.UniqueKey)
		if p.announcer == nil {
			return &persisted{replayed: true}, nil
		}
		msg, err := p.existing(ctx, tx, n)
		if err != nil {
			return nil, err
		}
		return &persisted{msg: msg, replayed: true}, nil
	}

	fan, err := p.store.FanOut(ctx, tx, n, bundle.UserIDs)
	if err != nil {
		return nil, err
	}
	return &persisted{
		msg: notifications.NewCreatedMessage(n.ID.String(), bundle.Notification.Type, fan.Recipients),
		fan: fan,
	}, nil
}

// existing describes the stored notification n conflicted with, or returns
// nil when it has no recipients.
func (p *Pipeline) existing(ctx context.Context, tx *gorm.DB, n *models.Notification) (*notifications.CreatedMessage, error) {
	found, err := p.store.FindNotification(ctx, tx, n)
	if err != nil {
		return nil, err
	}
	recipients, err := p.store.Recipients(ctx, tx, found.ID)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}
	return notifications.NewCreatedMessage(found.ID.String(), notifications.NotificationType(found.Type), recipients), nil
}

// announce hands every message to the announcer and returns the first failure.
func (p *Pipeline) announce(ctx context.Context, msgs []*notifications.CreatedMessage) error {
	if p.announcer == nil {
		return nil
	}
	for _, msg := range msgs {
		if err := p.announcer.NotificationCreated(ctx, msg); err != nil {
			return fmt.Errorf("error announcing notification %s: %w", msg.NotificationID, err)
		}
	}
	return nil
}

func (p *Pipeline) notifySinks(ctx context.Context, created []*notifications.CreatedMessage) {
	for _, msg := range created {
		for _, sink := range p.sinks {
			if err := sink.NotificationCreated(ctx, msg); err != nil {
				p.logger.Warn("post-commit sink failed",
					"notification_id", msg.NotificationID,
					"sink", fmt.Sprintf("%T", sink),
					"error", err)
			}
		}
	}
}

func notificationRow(r notifications.Record) *models.Notification {
	return &models.Notification{
		Type:            string(r.Type),
		Icon:            r.Icon,
		Title:           r.Title,
		Description:     r.Description,
		TargetURL:       r.TargetURL,
		Public:          r.Public,
		ReferenceID:     r.ReferenceID,
		ReferenceType:   r.ReferenceType,
		UniqueKey:       r.UniqueKey,
		NumTotalAvatars: r.NumTotalAvatars,
	}
}

func avatarRows(refs []notifications.AvatarRef) []models.NotificationAvatar {
	rows := make([]models.NotificationAvatar, len(refs))
	for i, a := range refs {
		rows[i] = models.NotificationAvatar{
			Type:        a.Type,
			ReferenceID: a.ReferenceID,
			Image:       a.Image,
			Name:        a.Name,
			TargetURL:   a.TargetURL,
		}
	}
	return rows
}

func attachmentRows(refs []notifications.AttachmentRef) []models.NotificationAttachment {
	rows := make([]models.NotificationAttachment, len(refs))
	for i, a := range refs {
		rows[i] = models.NotificationAttachment{
			Type:        a.Type,
			ReferenceID: a.ReferenceID,
			Image:       a.Image,
			Title:       a.Title,
		}
	}
	return rows
}
