package notifications

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/courier/pkg/models"
)

var testURLs = URLs{Webapp: "https://app.test"}

func testPost() models.Post {
	return models.Post{ID: "p1", Type: models.PostTypeArticle, Title: "Go generics", Image: "https://img/p1", SourceID: "s1"}
}

func testSquad() models.Source {
	return models.Source{ID: "s1", Type: models.SourceTypeSquad, Name: "Gophers", Handle: "gophers", Image: "https://img/s1"}
}

func TestBuilder_ChainIsLastWriteWins(t *testing.T) {
	b := NewBuilder(NotificationTypeArticlePicked, testURLs).
		Icon(IconBell).
		Icon(IconStar).
		Title("first").
		Title("second").
		Reference(ReferenceTypePost, "p1").
		TargetURL("https://app.test/posts/p1")

	bundle, err := b.Build(&PostContext{BaseContext: BaseContext{UserIDs: []string{"u1"}}})
	require.NoError(t, err)
	assert.Equal(t, IconStar, bundle.Notification.Icon)
	assert.Equal(t, "second", bundle.Notification.Title)
	assert.True(t, bundle.Notification.Public)
}

func TestBuilder_AvatarsAppendInOrder(t *testing.T) {
	squad := testSquad()
	users := []models.User{{ID: "u1", Name: "Ada"}, {ID: "u2", Username: "linus"}}

	b := NewBuilder(NotificationTypeSquadMemberJoined, testURLs).
		AvatarSource(&squad).
		AvatarManyUsers(users)

	require.Len(t, b.avatars, 3)
	assert.Equal(t, AvatarRef{
		Type: AvatarTypeSource, ReferenceID: "s1", Image: "https://img/s1", Name: "Gophers",
		TargetURL: "https://app.test/squads/gophers",
	}, b.avatars[0])
	assert.Equal(t, "u1", b.avatars[1].ReferenceID)
	assert.Equal(t, "Ada", b.avatars[1].Name)
	assert.Equal(t, "linus", b.avatars[2].Name)
	assert.Equal(t, "https://app.test/linus", b.avatars[2].TargetURL)
}

func TestBuilder_ObjectPost(t *testing.T) {
	squad := testSquad()
	machine := models.Source{ID: "s2", Type: models.SourceTypeMachine, Name: "Blog", Handle: "blog"}

	t.Run("plain post in squad", func(t *testing.T) {
		post := testPost()
		b := NewBuilder(NotificationTypeArticlePicked, testURLs).ObjectPost(&post, &squad, nil)

		assert.Equal(t, ReferenceTypePost, b.n.ReferenceType)
		assert.Equal(t, "p1", b.n.ReferenceID)
		assert.Equal(t, "https://app.test/posts/p1", b.n.TargetURL)
		assert.Equal(t, "Go generics", b.n.Description)
		require.Len(t, b.avatars, 1)
		assert.Equal(t, AvatarTypeSource, b.avatars[0].Type)
		require.Len(t, b.attachments, 1)
		assert.Equal(t, "p1", b.attachments[0].ReferenceID)
	})

	t.Run("non squad source adds no avatar", func(t *testing.T) {
		post := testPost()
		b := NewBuilder(NotificationTypeArticlePicked, testURLs).ObjectPost(&post, &machine, nil)
		assert.Empty(t, b.avatars)
	})

	t.Run("shared post fallback", func(t *testing.T) {
		wrapper := models.Post{ID: "w1", Type: models.PostTypeShare, Title: "", SharedPostID: strPtr("p2")}
		shared := models.Post{ID: "p2", Type: models.PostTypeArticle, Title: "Hello", Image: "https://img/p2"}

		b := NewBuilder(NotificationTypeSquadPostAdded, testURLs).ObjectPost(&wrapper, &squad, &shared)

		assert.Equal(t, "Hello", b.n.Description)
		assert.Equal(t, "w1", b.n.ReferenceID)
		require.Len(t, b.attachments, 1)
		assert.Equal(t, "p2", b.attachments[0].ReferenceID)
		assert.Equal(t, "Hello", b.attachments[0].Title)
	})

	t.Run("wrapper title wins", func(t *testing.T) {
		wrapper := models.Post{ID: "w1", Type: models.PostTypeShare, Title: "Look at this"}
		shared := models.Post{ID: "p2", Title: "Hello"}

		b := NewBuilder(NotificationTypeSquadPostAdded, testURLs).ObjectPost(&wrapper, &squad, &shared)
		assert.Equal(t, "Look at this", b.n.Description)
		assert.Equal(t, "p2", b.attachments[0].ReferenceID)
	})

	t.Run("both titles empty", func(t *testing.T) {
		wrapper := models.Post{ID: "w1", Type: models.PostTypeShare}
		shared := models.Post{ID: "p2"}

		b := NewBuilder(NotificationTypeSquadPostAdded, testURLs).ObjectPost(&wrapper, &squad, &shared)
		assert.Equal(t, "", b.n.Description)
	})

	t.Run("video attachment", func(t *testing.T) {
		video := models.Post{ID: "v1", Type: models.PostTypeVideo, Title: "Talk"}
		b := NewBuilder(NotificationTypeArticlePicked, testURLs).ObjectPost(&video, &machine, nil)
		assert.Equal(t, AttachmentTypeVideo, b.attachments[0].Type)
	})
}

func TestBuilder_Upvotes(t *testing.T) {
	upvoters := []models.User{{ID: "u1"}, {ID: "u2"}}
	b := NewBuilder(NotificationTypeArticleUpvoteMilestone, testURLs).Upvotes(50, upvoters)

	assert.Equal(t, IconUpvote, b.n.Icon)
	assert.Equal(t, "50", b.n.UniqueKey)
	assert.Len(t, b.avatars, 2)
}

func TestBuilder_BuildValidates(t *testing.T) {
	_, err := NewBuilder(NotificationTypeArticlePicked, testURLs).
		Title("missing reference").
		Build(&SystemContext{BaseContext: BaseContext{UserIDs: []string{"u1"}}})
	require.ErrorIs(t, err, ErrInvalidNotification)
	assert.Contains(t, err.Error(), "article_picked")
	assert.True(t, IsPermanent(err))
	assert.False(t, IsPermanent(errors.New("connection reset")))
}

func TestBuilder_BuildDedupesRecipients(t *testing.T) {
	bundle, err := NewBuilder(NotificationTypeSquadAccess, testURLs).
		Title("t").
		Reference(ReferenceTypeSystem, "u1").
		TargetURL("https://app.test").
		Build(&SystemContext{BaseContext: BaseContext{UserIDs: []string{"u1", "u2", "u1", ""}, InitiatorID: "u9"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, bundle.UserIDs)
	assert.Equal(t, "u9", bundle.InitiatorID)
}

func TestBuilder_SystemNotification(t *testing.T) {
	b := NewBuilder(NotificationTypeSquadAccess, testURLs).SystemNotification()
	assert.False(t, b.n.Public)
}

func strPtr(s string) *string { return &s }
