package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/database"
	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.ModelsToAutoMigrate()...))
	return db
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []*notifications.CreatedMessage
	err  error
}

func (s *recordingSink) NotificationCreated(_ context.Context, msg *notifications.CreatedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func newPipeline(t *testing.T, db *gorm.DB, sinks ...Sink) *Pipeline {
	p, err := New(Config{
		Cluster:   database.Single(db),
		Generator: notifications.NewGenerator(notifications.URLs{Webapp: "https://app.test"}),
		Sinks:     sinks,
	})
	require.NoError(t, err)
	return p
}

func commentReply(recipients []string, initiator string) notifications.Generated {
	post := models.Post{ID: "p1", Title: "Hello", SourceID: "s1"}
	source := models.Source{ID: "s1", Type: models.SourceTypeSquad, Name: "Gophers", Handle: "gophers"}
	return notifications.Generated{
		Type: notifications.NotificationTypeCommentReply,
		Context: &notifications.CommenterContext{
			CommentContext: notifications.CommentContext{
				PostContext: notifications.PostContext{
					BaseContext: notifications.BaseContext{UserIDs: recipients, InitiatorID: initiator},
					Post:        post,
					Source:      source,
				},
				Comment: models.Comment{ID: "c2", PostID: "p1", UserID: initiator, Content: "+1"},
			},
			Commenter: models.User{ID: initiator, Name: "Commenter"},
		},
	}
}

func milestone(count int) notifications.Generated {
	return notifications.Generated{
		Type: notifications.NotificationTypeArticleUpvoteMilestone,
		Context: &notifications.PostUpvotesContext{
			PostContext: notifications.PostContext{
				BaseContext: notifications.BaseContext{UserIDs: []string{"author"}},
				Post:        models.Post{ID: "p1", Title: "Hello"},
				Source:      models.Source{ID: "s1", Type: models.SourceTypeMachine, Handle: "blog"},
			},
			Upvotes:  count,
			Upvoters: []models.User{{ID: "u1", Name: "One"}, {ID: "u2", Name: "Two"}},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func seedUsers(t *testing.T, db *gorm.DB, ids ...string) {
	for _, id := range ids {
		require.NoError(t, db.Create(&models.User{ID: id, Username: id, NotificationEmail: true}).Error)
	}
}

func TestProcess_Empty(t *testing.T) {
	db := setupTestDB(t)
	res, err := newPipeline(t, db).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Zero(t, countRows(t, db, &models.Notification{}))
}

func TestProcess_IdempotentReplay(t *testing.T) {
	db := setupTestDB(t)
	seedUsers(t, db, "u1", "u2", "commenter")
	sink := &recordingSink{}
	p := newPipeline(t, db, sink)
	ctx := context.Background()

	event := []notifications.Generated{commentReply([]string{"u1", "u2"}, "commenter")}

	first, err := p.Process(ctx, event)
	require.NoError(t, err)
	require.Len(t, first.Created, 1)
	assert.Equal(t, []string{"u1", "u2"}, first.Created[0].UserIDs)

	second, err := p.Process(ctx, event)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Equal(t, 1, second.AlreadyProcessed)

	assert.EqualValues(t, 1, countRows(t, db, &models.Notification{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.UserNotification{}))
	assert.Len(t, sink.msgs, 1)

	var n models.Notification
	require.NoError(t, db.First(&n).Error)
	assert.Equal(t, "comment_reply", n.Type)
	assert.Equal(t, "c2", n.ReferenceID)
	assert.Len(t, n.Avatars, 2)
	assert.Len(t, n.Attachments, 1)
	assert.Equal(t, n.ID.String(), first.Created[0].NotificationID)
}

func TestProcess_SharedAvatarsAcrossEvents(t *testing.T) {
	db := setupTestDB(t)
	p := newPipeline(t, db)
	ctx := context.Background()

	_, err := p.Process(ctx, []notifications.Generated{milestone(50)})
	require.NoError(t, err)
	_, err = p.Process(ctx, []notifications.Generated{milestone(100)})
	require.NoError(t, err)

	var rows []models.Notification
	require.NoError(t, db.Order("unique_key").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "100", rows[0].UniqueKey)
	assert.Equal(t, "50", rows[1].UniqueKey)
	assert.Equal(t, rows[0].Avatars, rows[1].Avatars)
	assert.Equal(t, rows[0].Attachments, rows[1].Attachments)

	assert.EqualValues(t, 2, countRows(t, db, &models.NotificationAvatar{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.NotificationAttachment{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.UserNotification{}))
}

func TestProcess_BlockListExclusion(t *testing.T) {
	db := setupTestDB(t)
	seedUsers(t, db, "u1", "u2")
	require.NoError(t, db.Create(&models.ContentPreference{
		UserID: "u2", ReferenceID: "commenter",
		Type: models.ContentPreferenceTypeUser, Status: models.ContentPreferenceStatusBlock,
	}).Error)
	p := newPipeline(t, db)
	ctx := context.Background()

	t.Run("blocked recipient gets no delivery", func(t *testing.T) {
		res, err := p.Process(ctx, []notifications.Generated{commentReply([]string{"u1", "u2"}, "commenter")})
		require.NoError(t, err)
		require.Len(t, res.Created, 1)
		assert.Equal(t, []string{"u1"}, res.Created[0].UserIDs)

		_, err = models.GetUserNotification(db, "u2", mustParse(t, res.Created[0].NotificationID))
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("sole blocked recipient creates nothing", func(t *testing.T) {
		require.NoError(t, db.Exec("DELETE FROM user_notifications").Error)
		require.NoError(t, db.Exec("DELETE FROM notifications").Error)

		res, err := p.Process(ctx, []notifications.Generated{commentReply([]string{"u2"}, "commenter")})
		require.NoError(t, err)
		assert.Empty(t, res.Created)
		assert.Equal(t, 1, res.Filtered)
		assert.Zero(t, countRows(t, db, &models.Notification{}))
	})
}

func TestProcess_SinkFailureDoesNotFail(t *testing.T) {
	db := setupTestDB(t)
	failing := &recordingSink{err: errors.New("redis down")}
	ok := &recordingSink{}
	p := newPipeline(t, db, failing, ok)

	res, err := p.Process(context.Background(), []notifications.Generated{milestone(10)})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Len(t, failing.msgs, 1)
	assert.Len(t, ok.msgs, 1)
}

func newAnnouncingPipeline(t *testing.T, db *gorm.DB, announcer Sink, sinks ...Sink) *Pipeline {
	p, err := New(Config{
		Cluster:   database.Single(db),
		Generator: notifications.NewGenerator(notifications.URLs{Webapp: "https://app.test"}),
		Announcer: announcer,
		Sinks:     sinks,
	})
	require.NoError(t, err)
	return p
}

func TestProcess_AnnouncerFailureIsRedeliveredAsReplay(t *testing.T) {
	db := setupTestDB(t)
	seedUsers(t, db, "u1", "u2", "commenter")
	announcer := &recordingSink{err: errors.New("broker unavailable")}
	live := &recordingSink{}
	p := newAnnouncingPipeline(t, db, announcer, live)
	ctx := context.Background()
	event := []notifications.Generated{commentReply([]string{"u2", "u1"}, "commenter")}

	_, err := p.Process(ctx, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.EqualValues(t, 1, countRows(t, db, &models.Notification{}), "the transaction stays committed")
	require.Len(t, announcer.msgs, 1)
	first := announcer.msgs[0]

	announcer.err = nil
	res, err := p.Process(ctx, event)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, 1, res.AlreadyProcessed)
	require.Len(t, res.Replayed, 1)
	assert.Equal(t, first.NotificationID, res.Replayed[0].NotificationID)
	assert.Equal(t, notifications.NotificationTypeCommentReply, res.Replayed[0].Type)
	assert.Equal(t, []string{"u1", "u2"}, res.Replayed[0].UserIDs)

	assert.Len(t, announcer.msgs, 2)
	assert.Len(t, live.msgs, 1, "replays are not pushed live")
	assert.EqualValues(t, 2, countRows(t, db, &models.UserNotification{}))
}

func TestProcess_ReplayWithoutAnnouncer(t *testing.T) {
	db := setupTestDB(t)
	seedUsers(t, db, "author")
	p := newPipeline(t, db)
	ctx := context.Background()

	_, err := p.Process(ctx, []notifications.Generated{milestone(10)})
	require.NoError(t, err)
	res, err := p.Process(ctx, []notifications.Generated{milestone(10)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlreadyProcessed)
	assert.Empty(t, res.Replayed)
}

// failDeliveries makes every insert into user_notifications fail with err.
func failDeliveries(t *testing.T, db *gorm.DB, err error) {
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_deliveries", func(tx *gorm.DB) {
		if tx.Statement.Table == "user_notifications" {
			_ = tx.AddError(err)
		}
	}))
}

func TestProcess_BenignRaceIsSwallowed(t *testing.T) {
	db := setupTestDB(t)
	failDeliveries(t, db, &pgconn.PgError{Code: "23503", ConstraintName: models.UserNotificationUserConstraint})
	sink := &recordingSink{}
	p := newPipeline(t, db, sink)

	res, err := p.Process(context.Background(), []notifications.Generated{milestone(10)})
	require.NoError(t, err)
	assert.True(t, res.Benign)
	assert.Empty(t, res.Created)
	assert.Empty(t, sink.msgs)
	assert.Zero(t, countRows(t, db, &models.Notification{}))
}

func TestProcess_UnknownErrorRollsBack(t *testing.T) {
	db := setupTestDB(t)
	failDeliveries(t, db, errors.New("connection reset"))
	p := newPipeline(t, db)

	_, err := p.Process(context.Background(), []notifications.Generated{milestone(10)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Zero(t, countRows(t, db, &models.Notification{}))
	assert.Zero(t, countRows(t, db, &models.NotificationAvatar{}))
}

func TestProcess_BuildErrorPropagates(t *testing.T) {
	db := setupTestDB(t)
	p := newPipeline(t, db)

	_, err := p.Process(context.Background(), []notifications.Generated{{
		Type:    notifications.NotificationTypeCommentReply,
		Context: &notifications.SystemContext{BaseContext: notifications.BaseContext{UserIDs: []string{"u1"}}},
	}})
	assert.ErrorIs(t, err, notifications.ErrContextMismatch)
}

func TestNew_RequiresCluster(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func mustParse(t *testing.T, id string) uuid.UUID {
	u, err := uuid.Parse(id)
	require.NoError(t, err)
	return u
}
