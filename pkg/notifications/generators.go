package notifications

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"time"
)

var (
	// ErrUnknownType is returned for a type without a generator.
	ErrUnknownType = errors.New("unknown notification type")

	// ErrContextMismatch is returned when a context does not match the type.
	ErrContextMismatch = errors.New("context does not match notification type")

	// ErrInvalidNotification is returned when a built notification fails
	// validation.
	ErrInvalidNotification = errors.New("invalid notification")
)

// IsPermanent reports whether err comes from building a notification out of
// its context. Such errors repeat on every attempt.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnknownType) ||
		errors.Is(err, ErrContextMismatch) ||
		errors.Is(err, ErrInvalidNotification)
}

type generator struct {
	title func(Context) (string, error)
	build func(*Builder, Context) (*Builder, error)
}

// entry adapts typed title and build functions to the generator table.
func entry[C Context](title func(C) string, build func(*Builder, C) *Builder) generator {
	cast := func(ctx Context) (C, error) {
		c, ok := ctx.(C)
		if !ok {
			var zero C
			return zero, fmt.Errorf("%w: got %T, want %T", ErrContextMismatch, ctx, zero)
		}
		return c, nil
	}
	return generator{
		title: func(ctx Context) (string, error) {
			c, err := cast(ctx)
			if err != nil {
				return "", err
			}
			return title(c), nil
		},
		build: func(b *Builder, ctx Context) (*Builder, error) {
			c, err := cast(ctx)
			if err != nil {
				return nil, err
			}
			return build(b, c), nil
		},
	}
}

func init() {
	for _, t := range AllTypes {
		if _, ok := generators[t]; !ok {
			panic(fmt.Sprintf("notifications: no generator for type %q", t))
		}
	}
}

// Generator turns a (type, context) pair into a bundle.
type Generator struct {
	urls URLs
}

// NewGenerator returns a generator linking into the webapp at urls.
func NewGenerator(urls URLs) *Generator {
	return &Generator{urls: urls}
}

// Generate builds the bundle of a notification of type t from ctx.
func (g *Generator) Generate(t NotificationType, ctx Context) (*Bundle, error) {
	gen, ok := generators[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	title, err := gen.title(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	b, err := gen.build(NewBuilder(t, g.urls).Title(title), ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	return b.Build(ctx)
}

// TitleOf returns the title of a notification of type t built from ctx.
func TitleOf(t NotificationType, ctx Context) (string, error) {
	gen, ok := generators[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return gen.title(ctx)
}

func bold(s string) string {
	return "<b>" + html.EscapeString(s) + "</b>"
}

func commentNotification(b *Builder, c *CommenterContext) *Builder {
	return b.Icon(IconComment).
		ObjectPost(&c.Post, &c.Source, c.SharedPost).
		ReferenceComment(&c.Comment).
		TargetComment(&c.Post, c.Comment.ID).
		Description(c.Comment.Content).
		AvatarUser(&c.Commenter)
}

func sourceNotification(b *Builder, c *SourceContext) *Builder {
	return b.ReferenceSource(&c.Source).
		TargetSource(&c.Source).
		AvatarSource(&c.Source)
}

func roleNotification(b *Builder, c *SourceMemberContext) *Builder {
	return sourceNotification(b, &c.SourceContext).
		Icon(IconStar).
		UniqueKey(c.Member.ID)
}

func moderationNotification(b *Builder, c *SourcePostModerationContext) *Builder {
	return b.Reference(ReferenceTypePostModeration, c.ModerationID).
		AvatarSource(&c.Source)
}

func campaignPostNotification(b *Builder, c *CampaignPostContext) *Builder {
	return b.Icon(IconMegaphone).
		ObjectPost(&c.Post, &c.Source, c.SharedPost).
		Reference(ReferenceTypeCampaign, c.Campaign.ID)
}

func campaignSourceNotification(b *Builder, c *CampaignSourceContext) *Builder {
	return sourceNotification(b, &c.SourceContext).
		Icon(IconMegaphone).
		Reference(ReferenceTypeCampaign, c.Campaign.ID)
}

func opportunityNotification(b *Builder, c *OpportunityContext) *Builder {
	return b.Icon(IconOpportunity).
		Reference(ReferenceTypeOpportunity, c.OpportunityID).
		TargetURL(b.urls.Path("jobs/" + c.OpportunityID)).
		Description(c.Summary)
}

var generators = map[NotificationType]generator{
	NotificationTypeCommunityPicksFailed: entry(
		func(c *SubmissionContext) string {
			return "Your community picks submission was " + bold("rejected")
		},
		func(b *Builder, c *SubmissionContext) *Builder {
			return b.Icon(IconBlock).
				Reference(ReferenceTypeSubmission, c.SubmissionID).
				TargetURL(c.URL).
				Description(c.Reason)
		}),
	NotificationTypeCommunityPicksSucceeded: entry(
		func(c *PostContext) string {
			return bold("Good job!") + " You scouted a post that was accepted"
		},
		func(b *Builder, c *PostContext) *Builder {
			return b.Icon(IconStar).ObjectPost(&c.Post, &c.Source, c.SharedPost)
		}),
	NotificationTypeCommunityPicksGranted: entry(
		func(c *SystemContext) string {
			return "You have earned access to submit " + bold("community picks")
		},
		func(b *Builder, c *SystemContext) *Builder {
			return b.Icon(IconStar).ReferenceSystem(c).TargetURL(b.urls.Path(""))
		}),
	NotificationTypeArticlePicked: entry(
		func(c *PostContext) string {
			return "Congrats! Your post got " + bold("listed") + " on the feed"
		},
		func(b *Builder, c *PostContext) *Builder {
			return b.Icon(IconStar).ObjectPost(&c.Post, &c.Source, c.SharedPost)
		}),
	NotificationTypeArticleNewComment: entry(
		func(c *CommenterContext) string {
			return bold(c.Commenter.DisplayName()) + " commented on your post."
		},
		commentNotification),
	NotificationTypeArticleUpvoteMilestone: entry(
		func(c *PostUpvotesContext) string {
			return bold("You rock!") + " Your post " + bold("earned "+strconv.Itoa(c.Upvotes)+" upvotes!")
		},
		func(b *Builder, c *PostUpvotesContext) *Builder {
			return b.ObjectPost(&c.Post, &c.Source, c.SharedPost).Upvotes(c.Upvotes, c.Upvoters)
		}),
	NotificationTypeArticleReportApproved: entry(
		func(c *PostContext) string {
			return bold("Good catch!") + " We removed the post you reported"
		},
		func(b *Builder, c *PostContext) *Builder {
			return b.Icon(IconBlock).ObjectPost(&c.Post, &c.Source, c.SharedPost)
		}),
	NotificationTypeArticleAnalytics: entry(
		func(c *PostAnalyticsContext) string {
			return "Your post has been viewed " + bold(strconv.Itoa(c.Impressions)+" times")
		},
		func(b *Builder, c *PostAnalyticsContext) *Builder {
			return b.Icon(IconAnalytics).
				ObjectPost(&c.Post, &c.Source, c.SharedPost).
				UniqueKey(strconv.Itoa(c.Impressions))
		}),
	NotificationTypeSourceApproved: entry(
		func(c *SourceRequestContext) string {
			return bold("Good news!") + " We approved your source request"
		},
		func(b *Builder, c *SourceRequestContext) *Builder {
			b.Icon(IconBell).Reference(ReferenceTypeSourceRequest, c.Request.ID)
			if c.Source != nil {
				return b.TargetSource(c.Source).AvatarSource(c.Source)
			}
			return b.TargetURL(c.Request.SourceURL)
		}),
	NotificationTypeSourceRejected: entry(
		func(c *SourceRequestContext) string {
			return bold("Too bad!") + " We rejected your source request"
		},
		func(b *Builder, c *SourceRequestContext) *Builder {
			return b.Icon(IconBlock).
				Reference(ReferenceTypeSourceRequest, c.Request.ID).
				TargetURL(c.Request.SourceURL).
				Description(c.Request.Reason)
		}),
	NotificationTypeCommentMention: entry(
		func(c *CommenterContext) string {
			return bold(c.Commenter.DisplayName()) + " mentioned you in a comment."
		},
		commentNotification),
	NotificationTypeCommentReply: entry(
		func(c *CommenterContext) string {
			return bold(c.Commenter.DisplayName()) + " replied to your comment."
		},
		commentNotification),
	NotificationTypeCommentUpvoteMilestone: entry(
		func(c *CommentUpvotesContext) string {
			return bold("You rock!") + " Your comment " + bold("earned "+strconv.Itoa(c.Upvotes)+" upvotes!")
		},
		func(b *Builder, c *CommentUpvotesContext) *Builder {
			return b.ObjectPost(&c.Post, &c.Source, c.SharedPost).
				ReferenceComment(&c.Comment).
				TargetComment(&c.Post, c.Comment.ID).
				Description(c.Comment.Content).
				Upvotes(c.Upvotes, c.Upvoters)
		}),
	NotificationTypeSquadPostAdded: entry(
		func(c *PostDoneByContext) string {
			return bold(c.DoneBy.DisplayName()) + " shared a new post on " + bold(c.Source.Name)
		},
		func(b *Builder, c *PostDoneByContext) *Builder {
			return b.ObjectPost(&c.Post, &c.Source, c.SharedPost).AvatarUser(&c.DoneBy)
		}),
	NotificationTypeSquadMemberJoined: entry(
		func(c *SourceMemberContext) string {
			return "Your squad " + bold(c.Source.Name) + " is growing! Welcome " + bold(c.Member.DisplayName()) + " to the squad"
		},
		func(b *Builder, c *SourceMemberContext) *Builder {
			return sourceNotification(b, &c.SourceContext).
				UniqueKey(c.Member.ID).
				AvatarUser(&c.Member)
		}),
	NotificationTypeSquadNewComment: entry(
		func(c *CommenterContext) string {
			return bold(c.Commenter.DisplayName()) + " commented on your post on " + bold(c.Source.Name) + "."
		},
		commentNotification),
	NotificationTypeSquadReply: entry(
		func(c *CommenterContext) string {
			return bold(c.Commenter.DisplayName()) + " replied to your comment on " + bold(c.Source.Name) + "."
		},
		commentNotification),
	NotificationTypeSquadPostViewed: entry(
		func(c *PostDoneByContext) string {
			return bold(c.DoneBy.DisplayName()) + " viewed your post on " + bold(c.Source.Name) + "."
		},
		func(b *Builder, c *PostDoneByContext) *Builder {
			return b.Icon(IconView).
				ObjectPost(&c.Post, &c.Source, c.SharedPost).
				AvatarUser(&c.DoneBy).
				UniqueKey(c.DoneBy.ID)
		}),
	NotificationTypeSquadAccess: entry(
		func(c *SystemContext) string {
			return "Congratulations! You got access to " + bold("Squads")
		},
		func(b *Builder, c *SystemContext) *Builder {
			return b.Icon(IconSquad).ReferenceSystem(c).TargetURL(b.urls.Path("squads"))
		}),
	NotificationTypePromotedToAdmin: entry(
		func(c *SourceMemberContext) string {
			return "Congratulations! You are now an " + bold("admin") + " of " + bold(c.Source.Name)
		},
		roleNotification),
	NotificationTypeDemotedToMember: entry(
		func(c *SourceMemberContext) string {
			return "You are no longer a " + bold(c.Role) + " of " + bold(c.Source.Name)
		},
		func(b *Builder, c *SourceMemberContext) *Builder {
			return roleNotification(b, c).Icon(IconBell)
		}),
	NotificationTypePromotedToModerator: entry(
		func(c *SourceMemberContext) string {
			return "Congratulations! You are now a " + bold("moderator") + " of " + bold(c.Source.Name)
		},
		roleNotification),
	NotificationTypePostMention: entry(
		func(c *PostDoneByContext) string {
			return bold(c.DoneBy.DisplayName()) + " mentioned you in a post on " + bold(c.Source.Name)
		},
		func(b *Builder, c *PostDoneByContext) *Builder {
			return b.Icon(IconComment).
				ObjectPost(&c.Post, &c.Source, c.SharedPost).
				AvatarUser(&c.DoneBy)
		}),
	NotificationTypeSquadBlocked: entry(
		func(c *SourceContext) string {
			return "You are no longer part of " + bold(c.Source.Name)
		},
		func(b *Builder, c *SourceContext) *Builder {
			return sourceNotification(b, c).
				Icon(IconBlock).
				TargetURL(b.urls.Path("squads")).
				UniqueKey(firstRecipient(c))
		}),
	NotificationTypeSquadSubscribeNotification: entry(
		func(c *SourceContext) string {
			return "You are now subscribed to " + bold(c.Source.Name) + " notifications"
		},
		func(b *Builder, c *SourceContext) *Builder {
			return sourceNotification(b, c).UniqueKey(firstRecipient(c))
		}),
	NotificationTypeCollectionUpdated: entry(
		func(c *CollectionContext) string {
			return "The collection " + bold(c.Post.Title) + " just got updated with new details"
		},
		func(b *Builder, c *CollectionContext) *Builder {
			b.ObjectPost(&c.Post, &c.Source, c.SharedPost).
				UniqueKey(strconv.Itoa(c.Total)).
				NumTotalAvatars(c.Total)
			for i := range c.Sources {
				b.AvatarSource(&c.Sources[i])
			}
			return b
		}),
	NotificationTypeDevCardUnlocked: entry(
		func(c *SystemContext) string {
			return bold("DevCard unlocked!") + " Your reputation earned you a DevCard"
		},
		func(b *Builder, c *SystemContext) *Builder {
			return b.Icon(IconDevCard).ReferenceSystem(c).TargetURL(b.urls.Path("devcard"))
		}),
	NotificationTypeSourcePostAdded: entry(
		func(c *PostContext) string {
			return "New post from " + bold(c.Source.Name)
		},
		func(b *Builder, c *PostContext) *Builder {
			b.ObjectPost(&c.Post, &c.Source, c.SharedPost)
			if !c.Source.IsSquad() {
				b.AvatarSource(&c.Source)
			}
			return b
		}),
	NotificationTypeSquadPublicSubmitted: entry(
		func(c *SourceContext) string {
			return "Your squad " + bold(c.Source.Name) + " was submitted for public review"
		},
		func(b *Builder, c *SourceContext) *Builder {
			return sourceNotification(b, c).Icon(IconTimer)
		}),
	NotificationTypeSquadPublicRejected: entry(
		func(c *SourceContext) string {
			return "Your squad " + bold(c.Source.Name) + " was not approved to become public"
		},
		func(b *Builder, c *SourceContext) *Builder {
			return sourceNotification(b, c).Icon(IconBlock)
		}),
	NotificationTypeSquadPublicApproved: entry(
		func(c *SourceContext) string {
			return bold("Congratulations!") + " Your squad " + bold(c.Source.Name) + " is now public"
		},
		func(b *Builder, c *SourceContext) *Builder {
			return sourceNotification(b, c).Icon(IconStar)
		}),
	NotificationTypePostBookmarkReminder: entry(
		func(c *BookmarkReminderContext) string {
			return bold("Reading reminder!") + " You asked us to remind you about this post"
		},
		func(b *Builder, c *BookmarkReminderContext) *Builder {
			return b.Icon(IconBookmark).
				ObjectPost(&c.Post, &c.Source, c.SharedPost).
				UniqueKey(c.RemindAt.UTC().Format(time.RFC3339))
		}),
	NotificationTypeStreakResetRestore: entry(
		func(c *StreakContext) string {
			return bold("Oh no! Your "+strconv.Itoa(c.LastStreak)+" day streak has been broken")
		},
		func(b *Builder, c *StreakContext) *Builder {
			return b.Icon(IconStreak).
				Reference(ReferenceTypeStreak, firstRecipient(c)).
				UniqueKey(c.ExpiresAt.UTC().Format(time.DateOnly)).
				TargetURL(b.urls.Path("?streak_restore=" + strconv.Itoa(c.LastStreak))).
				Description("Restore it before " + c.ExpiresAt.UTC().Format(time.DateOnly))
		}),
	NotificationTypeUserPostAdded: entry(
		func(c *PostDoneByContext) string {
			return "New post from " + bold(c.DoneBy.DisplayName())
		},
		func(b *Builder, c *PostDoneByContext) *Builder {
			return b.ObjectPost(&c.Post, &c.Source, c.SharedPost).AvatarUser(&c.DoneBy)
		}),
	NotificationTypeUserTopReader: entry(
		func(c *TopReaderContext) string {
			return "Great news! You earned the top reader badge in " + bold(c.Keyword)
		},
		func(b *Builder, c *TopReaderContext) *Builder {
			target := b.urls.Path("?topreader=" + c.TopReaderID)
			return b.Icon(IconTopReader).
				Reference(ReferenceTypeTopReader, c.TopReaderID).
				TargetURL(target).
				Avatar(AvatarRef{
					Type:        AvatarTypeTopReader,
					ReferenceID: c.TopReaderID,
					Image:       c.Image,
					Name:        c.Keyword,
					TargetURL:   target,
				})
		}),
	NotificationTypeUserGiftedPlus: entry(
		func(c *GiftPlusContext) string {
			return bold(c.Gifter.DisplayName()) + " gifted you a Plus subscription!"
		},
		func(b *Builder, c *GiftPlusContext) *Builder {
			return b.Icon(IconPlus).
				Reference(ReferenceTypeUser, c.Gifter.ID).
				UniqueKey(firstRecipient(c)).
				TargetURL(b.urls.Path("plus")).
				AvatarUser(&c.Gifter)
		}),
	NotificationTypeUserReceivedAward: entry(
		func(c *AwardContext) string {
			return "You received a " + bold(c.Transaction.ProductName) + " award from " + bold(c.Sender.DisplayName())
		},
		func(b *Builder, c *AwardContext) *Builder {
			b.Icon(IconCore).
				Reference(ReferenceTypeTransaction, c.Transaction.ID).
				AvatarUser(&c.Sender)
			if c.Post != nil {
				return b.TargetPost(c.Post).AttachmentPost(c.Post)
			}
			return b.TargetURL(b.urls.Path("wallet"))
		}),
	NotificationTypeOrganizationMemberJoined: entry(
		func(c *OrganizationContext) string {
			return bold(c.Member.DisplayName()) + " has joined " + bold(c.OrganizationName)
		},
		func(b *Builder, c *OrganizationContext) *Builder {
			target := b.urls.Path("settings/organization/" + c.OrganizationID)
			return b.Reference(ReferenceTypeOrganization, c.OrganizationID).
				UniqueKey(c.Member.ID).
				TargetURL(target).
				Avatar(AvatarRef{
					Type:        AvatarTypeOrganization,
					ReferenceID: c.OrganizationID,
					Image:       c.OrganizationImage,
					Name:        c.OrganizationName,
					TargetURL:   target,
				}).
				AvatarUser(&c.Member)
		}),
	NotificationTypeSourcePostApproved: entry(
		func(c *PostContext) string {
			return bold("Woohoo!") + " Your post has been approved by the admins of " + bold(c.Source.Name)
		},
		func(b *Builder, c *PostContext) *Builder {
			return b.ObjectPost(&c.Post, &c.Source, c.SharedPost)
		}),
	NotificationTypeSourcePostRejected: entry(
		func(c *SourcePostModerationContext) string {
			return "Your post in " + bold(c.Source.Name) + " was not approved"
		},
		func(b *Builder, c *SourcePostModerationContext) *Builder {
			return moderationNotification(b, c).
				Icon(IconBlock).
				TargetSource(&c.Source).
				Description(c.Reason)
		}),
	NotificationTypeSourcePostSubmitted: entry(
		func(c *SourcePostModerationContext) string {
			return "A new post in " + bold(c.Source.Name) + " is waiting for your review"
		},
		func(b *Builder, c *SourcePostModerationContext) *Builder {
			return moderationNotification(b, c).
				Icon(IconTimer).
				TargetURL(b.urls.Source(&c.Source) + "/moderate").
				Attachment(AttachmentRef{
					Type:        AttachmentTypePost,
					ReferenceID: c.ModerationID,
					Image:       c.Image,
					Title:       c.Title,
				})
		}),
	NotificationTypeCampaignPostCompleted: entry(
		func(c *CampaignPostContext) string {
			return bold("Boost completed!") + " Your post reached " + strconv.Itoa(c.Campaign.Impressions) + " impressions"
		},
		campaignPostNotification),
	NotificationTypeCampaignSquadCompleted: entry(
		func(c *CampaignSourceContext) string {
			return bold("Boost completed!") + " Your squad " + bold(c.Source.Name) + " reached " + strconv.Itoa(c.Campaign.Impressions) + " impressions"
		},
		campaignSourceNotification),
	NotificationTypeCampaignPostFirstMilestone: entry(
		func(c *CampaignPostContext) string {
			return bold("Your boost is live!") + " Your post just reached its first milestone"
		},
		campaignPostNotification),
	NotificationTypeCampaignSquadFirstMilestone: entry(
		func(c *CampaignSourceContext) string {
			return bold("Your boost is live!") + " Your squad " + bold(c.Source.Name) + " just reached its first milestone"
		},
		campaignSourceNotification),
	NotificationTypeNewOpportunityMatch: entry(
		func(c *OpportunityContext) string {
			return "We found a match for you: " + bold(c.Title)
		},
		opportunityNotification),
	NotificationTypePostAnalytics: entry(
		func(c *PostAnalyticsContext) string {
			return "Your post has reached " + bold(strconv.Itoa(c.Impressions)+" impressions") + " so far"
		},
		func(b *Builder, c *PostAnalyticsContext) *Builder {
			return b.Icon(IconAnalytics).
				ObjectPost(&c.Post, &c.Source, c.SharedPost).
				UniqueKey(strconv.Itoa(c.Impressions))
		}),
	NotificationTypePollResult: entry(
		func(c *PostContext) string {
			return bold("The poll has ended!") + " See the results"
		},
		func(b *Builder, c *PostContext) *Builder {
			return b.Icon(IconPoll).ObjectPost(&c.Post, &c.Source, c.SharedPost)
		}),
	NotificationTypePollResultAuthor: entry(
		func(c *PostContext) string {
			return bold("Your poll has ended!") + " Check out the results"
		},
		func(b *Builder, c *PostContext) *Builder {
			return b.Icon(IconPoll).ObjectPost(&c.Post, &c.Source, c.SharedPost)
		}),
	NotificationTypeWarmIntro: entry(
		func(c *WarmIntroContext) string {
			return bold(c.Recruiter.DisplayName()) + " from " + bold(c.CompanyName) + " wants to connect with you"
		},
		func(b *Builder, c *WarmIntroContext) *Builder {
			return opportunityNotification(b, &c.OpportunityContext).AvatarUser(&c.Recruiter)
		}),
	NotificationTypeBriefingReady: entry(
		func(c *PostContext) string {
			return bold("Your briefing is ready!") + " Catch up on what you missed"
		},
		func(b *Builder, c *PostContext) *Builder {
			return b.Icon(IconBriefing).ObjectPost(&c.Post, &c.Source, c.SharedPost)
		}),
}
