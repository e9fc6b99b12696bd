package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/upsert"
)

func TestAvatarRepository_ResolveIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewAvatarRepository(db)

	rows := []models.NotificationAvatar{
		{Type: "source", ReferenceID: "s1", Name: "Gophers", Image: "img", TargetURL: "url"},
		{Type: "user", ReferenceID: "u1", Name: "Ada", Image: "img", TargetURL: "url"},
		{Type: "source", ReferenceID: "s1", Name: "renamed", Image: "img", TargetURL: "url"},
	}
	ids, err := upsert.ResolveIDs(ctx, repo, rows)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, ids[0], ids[2])
	assert.NotEqual(t, ids[0], ids[1])

	again, err := upsert.ResolveIDs(ctx, repo, []models.NotificationAvatar{
		{Type: "user", ReferenceID: "u1", Name: "changed"},
		{Type: "user", ReferenceID: "u2", Name: "Bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, ids[1], again[0])

	var count int64
	require.NoError(t, db.Model(&models.NotificationAvatar{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	stored, err := models.GetNotificationAvatars(db, ids[:2])
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Gophers", stored[0].Name)
	assert.Equal(t, "Ada", stored[1].Name)
}

func TestAttachmentRepository_ResolveIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewAttachmentRepository(db)

	first, err := upsert.ResolveIDs(ctx, repo, []models.NotificationAttachment{
		{Type: "post", ReferenceID: "p1", Title: "Hello", Image: "img"},
	})
	require.NoError(t, err)

	second, err := upsert.ResolveIDs(ctx, repo, []models.NotificationAttachment{
		{Type: "video", ReferenceID: "p1", Title: "Talk", Image: "img"},
		{Type: "post", ReferenceID: "p1", Title: "Hello again", Image: "img"},
	})
	require.NoError(t, err)
	assert.Equal(t, first[0], second[1])
	assert.NotEqual(t, first[0], second[0])

	stored, err := models.GetNotificationAttachments(db, first)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Hello", stored[0].Title)
}
