package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/database"
	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/pipeline"
)

type postEvent struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.ModelsToAutoMigrate()...))
	return db
}

// milestoneWorker notifies the post author when the post exists.
func milestoneWorker(sub string) NotificationWorker[postEvent] {
	return NotificationWorker[postEvent]{
		Subscription: sub,
		Handler: func(ctx context.Context, e postEvent, db *gorm.DB) ([]notifications.Generated, error) {
			post, err := models.GetPost(db, e.PostID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return []notifications.Generated{{
				Type: notifications.NotificationTypeArticleUpvoteMilestone,
				Context: &notifications.PostUpvotesContext{
					PostContext: notifications.PostContext{
						BaseContext: notifications.BaseContext{UserIDs: []string{*post.AuthorID}, InitiatorID: e.UserID},
						Post:        *post,
					},
					Upvotes: 50,
				},
			}}, nil
		},
	}
}

func bind(t *testing.T, db *gorm.DB, w NotificationWorker[postEvent]) Worker {
	cluster := database.Single(db)
	p, err := pipeline.New(pipeline.Config{Cluster: cluster})
	require.NoError(t, err)
	return w.Bind(p, cluster)
}

func TestNotificationWorker_Outcomes(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	author := "author"
	require.NoError(t, db.Create(&models.User{ID: author, Name: "Author"}).Error)
	require.NoError(t, db.Create(&models.Source{ID: "s1", Name: "Source", Handle: "s1"}).Error)
	require.NoError(t, db.Create(&models.Post{ID: "p1", Title: "Hello", SourceID: "s1", AuthorID: &author}).Error)

	w := bind(t, db, milestoneWorker("api.v1.post-upvote-milestone"))
	msg := &Message{Value: []byte(`{"postId":"p1","userId":"u2"}`)}

	outcome, err := w.Handle(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	outcome, err = w.Handle(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	var count int64
	require.NoError(t, db.Model(&models.UserNotification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	outcome, err = w.Handle(ctx, &Message{Value: []byte(`{"postId":"missing"}`)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, outcome)

	// The author blocked the upvoter.
	require.NoError(t, db.Create(&models.ContentPreference{
		UserID:      author,
		ReferenceID: "u3",
		Type:        models.ContentPreferenceTypeUser,
		Status:      models.ContentPreferenceStatusBlock,
	}).Error)
	outcome, err = w.Handle(ctx, &Message{Value: []byte(`{"postId":"p1","userId":"u3"}`)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFiltered, outcome)
}

func TestNotificationWorker_DecodeError(t *testing.T) {
	w := NotificationWorker[postEvent]{Subscription: "api.v1.post-upvote-milestone"}.Bind(nil, nil)

	_, err := w.Handle(context.Background(), &Message{Value: []byte("{")})
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "api.v1.post-upvote-milestone", decodeErr.Subscription)
}

func TestNotificationWorker_CustomDecode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	var decoded []string
	w := bind(t, db, NotificationWorker[postEvent]{
		Subscription: "custom",
		Decode: func(payload []byte) (postEvent, error) {
			decoded = append(decoded, string(payload))
			return postEvent{PostID: string(payload)}, nil
		},
		Handler: func(context.Context, postEvent, *gorm.DB) ([]notifications.Generated, error) {
			return nil, nil
		},
	})

	outcome, err := w.Handle(ctx, &Message{Value: []byte("p9")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, outcome)
	assert.Equal(t, []string{"p9"}, decoded)
}

func TestNotificationWorker_HandlerError(t *testing.T) {
	db := setupTestDB(t)
	w := bind(t, db, NotificationWorker[postEvent]{
		Subscription: "failing",
		Handler: func(context.Context, postEvent, *gorm.DB) ([]notifications.Generated, error) {
			return nil, errors.New("db timeout")
		},
	})

	_, err := w.Handle(context.Background(), &Message{Value: []byte(`{}`)})
	assert.ErrorContains(t, err, "error handling failing event: db timeout")
}
