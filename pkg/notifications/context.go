package notifications

import (
	"time"

	"github.com/hashicorp-forge/courier/pkg/models"
)

// Context is the read-only snapshot a notification is generated from. The set
// of implementations is closed: every variant embeds BaseContext.
type Context interface {
	// Recipients returns the initial recipient candidates.
	Recipients() []string

	// Initiator returns the id of the user whose action caused the event, or
	// an empty string for system events.
	Initiator() string

	base() *BaseContext
}

// BaseContext carries the fields shared by every context.
type BaseContext struct {
	UserIDs     []string
	InitiatorID string
}

func (c *BaseContext) Recipients() []string { return c.UserIDs }
func (c *BaseContext) Initiator() string    { return c.InitiatorID }
func (c *BaseContext) base() *BaseContext   { return c }

// SystemContext is used by notifications that reference nothing but the user.
type SystemContext struct {
	BaseContext
}

// PostContext references a post and the source it was published in. SharedPost
// is set when Post is a share of another post.
type PostContext struct {
	BaseContext
	Post       models.Post
	Source     models.Source
	SharedPost *models.Post
}

// PostDoneByContext is a post context with the user who acted on it.
type PostDoneByContext struct {
	PostContext
	DoneBy models.User
}

// CommentContext references a comment on a post.
type CommentContext struct {
	PostContext
	Comment models.Comment
}

// CommenterContext is a comment context with the comment's author.
type CommenterContext struct {
	CommentContext
	Commenter models.User
}

// PostUpvotesContext carries an upvote milestone of a post.
type PostUpvotesContext struct {
	PostContext
	Upvotes  int
	Upvoters []models.User
}

// CommentUpvotesContext carries an upvote milestone of a comment.
type CommentUpvotesContext struct {
	CommentContext
	Upvotes  int
	Upvoters []models.User
}

// PostAnalyticsContext carries a post's reach numbers.
type PostAnalyticsContext struct {
	PostContext
	Impressions int
}

// BookmarkReminderContext is a post the user asked to be reminded of.
type BookmarkReminderContext struct {
	PostContext
	RemindAt time.Time
}

// CollectionContext is a collection post that received new sources.
type CollectionContext struct {
	PostContext
	Sources []models.Source
	Total   int
}

// SourceContext references a source.
type SourceContext struct {
	BaseContext
	Source models.Source
}

// SourceMemberContext references a squad and one of its members.
type SourceMemberContext struct {
	SourceContext
	Member models.User
	Role   string
}

// SourcePostModerationContext references a post submitted to a moderated squad.
type SourcePostModerationContext struct {
	SourceContext
	ModerationID string
	Title        string
	Image        string
	Reason       string
}

// SourceRequest is a request to add a new public source.
type SourceRequest struct {
	ID        string
	SourceURL string
	Reason    string
}

// SourceRequestContext references a source request and, once approved, the source.
type SourceRequestContext struct {
	BaseContext
	Request SourceRequest
	Source  *models.Source
}

// SubmissionContext references a community picks submission.
type SubmissionContext struct {
	BaseContext
	SubmissionID string
	URL          string
	Reason       string
}

// StreakContext carries a reading streak that can be restored.
type StreakContext struct {
	BaseContext
	LastStreak int
	ExpiresAt  time.Time
}

// TopReaderContext carries a top reader badge.
type TopReaderContext struct {
	BaseContext
	TopReaderID string
	Keyword     string
	Image       string
}

// GiftPlusContext references the user who gifted a subscription.
type GiftPlusContext struct {
	BaseContext
	Gifter models.User
}

// AwardContext references an award transaction.
type AwardContext struct {
	BaseContext
	Transaction models.UserTransaction
	Sender      models.User
	Post        *models.Post
}

// OrganizationContext references an organization and a member who joined it.
type OrganizationContext struct {
	BaseContext
	Member            models.User
	OrganizationID    string
	OrganizationName  string
	OrganizationImage string
}

// CampaignPostContext references a campaign boosting a post.
type CampaignPostContext struct {
	PostContext
	Campaign models.Campaign
}

// CampaignSourceContext references a campaign boosting a squad.
type CampaignSourceContext struct {
	SourceContext
	Campaign models.Campaign
}

// OpportunityContext references a job opportunity matched to the user.
type OpportunityContext struct {
	BaseContext
	OpportunityID string
	Title         string
	Summary       string
}

// WarmIntroContext is an opportunity introduced by a recruiter.
type WarmIntroContext struct {
	OpportunityContext
	Recruiter   models.User
	CompanyName string
}

// Generated pairs a notification type with the context it is built from.
type Generated struct {
	Type    NotificationType
	Context Context
}
