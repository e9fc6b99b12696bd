package notifications

import (
	"fmt"
	"strconv"

	"github.com/hashicorp-forge/courier/pkg/models"
)

// Builder accumulates a notification bundle. Every method returns the builder
// so calls chain; scalar fields are last-write-wins, avatars and attachments
// append.
type Builder struct {
	urls        URLs
	n           Record
	avatars     []AvatarRef
	attachments []AttachmentRef
}

// NewBuilder starts a public notification of type t.
func NewBuilder(t NotificationType, urls URLs) *Builder {
	return &Builder{
		urls: urls,
		n: Record{
			Type:   t,
			Icon:   IconBell,
			Public: true,
		},
	}
}

func (b *Builder) Icon(icon string) *Builder {
	b.n.Icon = icon
	return b
}

func (b *Builder) Title(title string) *Builder {
	b.n.Title = title
	return b
}

func (b *Builder) Description(description string) *Builder {
	b.n.Description = description
	return b
}

func (b *Builder) TargetURL(u string) *Builder {
	b.n.TargetURL = u
	return b
}

// UniqueKey sets the key that separates occurrences sharing one reference.
func (b *Builder) UniqueKey(key string) *Builder {
	b.n.UniqueKey = key
	return b
}

// SystemNotification marks the notification as not publicly visible.
func (b *Builder) SystemNotification() *Builder {
	b.n.Public = false
	return b
}

func (b *Builder) NumTotalAvatars(n int) *Builder {
	b.n.NumTotalAvatars = &n
	return b
}

// Reference sets the entity the notification is about.
func (b *Builder) Reference(referenceType, referenceID string) *Builder {
	b.n.ReferenceType = referenceType
	b.n.ReferenceID = referenceID
	return b
}

func (b *Builder) ReferencePost(p *models.Post) *Builder {
	return b.Reference(ReferenceTypePost, p.ID)
}

func (b *Builder) ReferenceComment(c *models.Comment) *Builder {
	return b.Reference(ReferenceTypeComment, c.ID)
}

func (b *Builder) ReferenceSource(s *models.Source) *Builder {
	return b.Reference(ReferenceTypeSource, s.ID)
}

// ReferenceSystem references the account of the first recipient of c.
func (b *Builder) ReferenceSystem(c Context) *Builder {
	return b.Reference(ReferenceTypeSystem, firstRecipient(c))
}

// TargetPost links to the post page.
func (b *Builder) TargetPost(p *models.Post) *Builder {
	return b.TargetURL(b.urls.Post(p))
}

// TargetComment links to the comment within its post page.
func (b *Builder) TargetComment(p *models.Post, commentID string) *Builder {
	return b.TargetURL(b.urls.Comment(p, commentID))
}

func (b *Builder) TargetSource(s *models.Source) *Builder {
	return b.TargetURL(b.urls.Source(s))
}

func (b *Builder) Avatar(a AvatarRef) *Builder {
	b.avatars = append(b.avatars, a)
	return b
}

func (b *Builder) AvatarSource(s *models.Source) *Builder {
	return b.Avatar(AvatarRef{
		Type:        AvatarTypeSource,
		ReferenceID: s.ID,
		Image:       s.Image,
		Name:        s.Name,
		TargetURL:   b.urls.Source(s),
	})
}

func (b *Builder) AvatarUser(u *models.User) *Builder {
	return b.Avatar(AvatarRef{
		Type:        AvatarTypeUser,
		ReferenceID: u.ID,
		Image:       u.Image,
		Name:        u.DisplayName(),
		TargetURL:   b.urls.User(u),
	})
}

func (b *Builder) AvatarManyUsers(users []models.User) *Builder {
	for i := range users {
		b.AvatarUser(&users[i])
	}
	return b
}

func (b *Builder) Attachment(a AttachmentRef) *Builder {
	b.attachments = append(b.attachments, a)
	return b
}

// AttachmentPost attaches a post preview; videos get their own attachment type.
func (b *Builder) AttachmentPost(p *models.Post) *Builder {
	kind := AttachmentTypePost
	if p.Type == models.PostTypeVideo {
		kind = AttachmentTypeVideo
	}
	return b.Attachment(AttachmentRef{
		Type:        kind,
		ReferenceID: p.ID,
		Image:       p.Image,
		Title:       p.Title,
	})
}

// ObjectPost makes post the reference and target. A squad source is added as
// an avatar. When the post shares another post, the shared post is attached
// and the description falls back from the wrapper title to the shared title.
func (b *Builder) ObjectPost(post *models.Post, source *models.Source, sharedPost *models.Post) *Builder {
	b.ReferencePost(post).TargetPost(post)
	if source != nil && source.IsSquad() {
		b.AvatarSource(source)
	}

	description := post.Title
	attached := post
	if sharedPost != nil {
		if description == "" {
			description = sharedPost.Title
		}
		attached = sharedPost
	}
	return b.Description(description).AttachmentPost(attached)
}

// Upvotes marks an upvote milestone. The count is the unique key so each
// milestone of one reference is its own notification.
func (b *Builder) Upvotes(count int, upvoters []models.User) *Builder {
	return b.Icon(IconUpvote).
		UniqueKey(strconv.Itoa(count)).
		AvatarManyUsers(upvoters)
}

// Build validates the accumulated notification and returns the bundle for the
// recipients of ctx.
func (b *Builder) Build(ctx Context) (*Bundle, error) {
	bundle := &Bundle{
		Notification: b.n,
		Avatars:      b.avatars,
		Attachments:  b.attachments,
		UserIDs:      uniqueIDs(ctx.Recipients()),
		InitiatorID:  ctx.Initiator(),
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidNotification, b.n.Type, err)
	}
	return bundle, nil
}

func firstRecipient(c Context) string {
	if ids := c.Recipients(); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
