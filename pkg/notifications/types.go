package notifications

// NotificationType defines the type of notification
type NotificationType string

const (
	NotificationTypeCommunityPicksFailed        NotificationType = "community_picks_failed"
	NotificationTypeCommunityPicksSucceeded     NotificationType = "community_picks_succeeded"
	NotificationTypeCommunityPicksGranted       NotificationType = "community_picks_granted"
	NotificationTypeArticlePicked               NotificationType = "article_picked"
	NotificationTypeArticleNewComment           NotificationType = "article_new_comment"
	NotificationTypeArticleUpvoteMilestone      NotificationType = "article_upvote_milestone"
	NotificationTypeArticleReportApproved       NotificationType = "article_report_approved"
	NotificationTypeArticleAnalytics            NotificationType = "article_analytics"
	NotificationTypeSourceApproved              NotificationType = "source_approved"
	NotificationTypeSourceRejected              NotificationType = "source_rejected"
	NotificationTypeCommentMention              NotificationType = "comment_mention"
	NotificationTypeCommentReply                NotificationType = "comment_reply"
	NotificationTypeCommentUpvoteMilestone      NotificationType = "comment_upvote_milestone"
	NotificationTypeSquadPostAdded              NotificationType = "squad_post_added"
	NotificationTypeSquadMemberJoined           NotificationType = "squad_member_joined"
	NotificationTypeSquadNewComment             NotificationType = "squad_new_comment"
	NotificationTypeSquadReply                  NotificationType = "squad_reply"
	NotificationTypeSquadPostViewed             NotificationType = "squad_post_viewed"
	NotificationTypeSquadAccess                 NotificationType = "squad_access"
	NotificationTypePromotedToAdmin             NotificationType = "promoted_to_admin"
	NotificationTypeDemotedToMember             NotificationType = "demoted_to_member"
	NotificationTypePromotedToModerator         NotificationType = "promoted_to_moderator"
	NotificationTypePostMention                 NotificationType = "post_mention"
	NotificationTypeSquadBlocked                NotificationType = "squad_blocked"
	NotificationTypeSquadSubscribeNotification  NotificationType = "squad_subscribe_to_notification"
	NotificationTypeCollectionUpdated           NotificationType = "collection_updated"
	NotificationTypeDevCardUnlocked             NotificationType = "dev_card_unlocked"
	NotificationTypeSourcePostAdded             NotificationType = "source_post_added"
	NotificationTypeSquadPublicSubmitted        NotificationType = "squad_public_submitted"
	NotificationTypeSquadPublicRejected         NotificationType = "squad_public_rejected"
	NotificationTypeSquadPublicApproved         NotificationType = "squad_public_approved"
	NotificationTypePostBookmarkReminder        NotificationType = "post_bookmark_reminder"
	NotificationTypeStreakResetRestore          NotificationType = "streak_reset_restore"
	NotificationTypeUserPostAdded               NotificationType = "user_post_added"
	NotificationTypeUserTopReader               NotificationType = "user_given_top_reader"
	NotificationTypeUserGiftedPlus              NotificationType = "user_gifted_plus"
	NotificationTypeUserReceivedAward           NotificationType = "user_received_award"
	NotificationTypeOrganizationMemberJoined    NotificationType = "organization_member_joined"
	NotificationTypeSourcePostApproved          NotificationType = "source_post_approved"
	NotificationTypeSourcePostRejected          NotificationType = "source_post_rejected"
	NotificationTypeSourcePostSubmitted         NotificationType = "source_post_submitted"
	NotificationTypeCampaignPostCompleted       NotificationType = "campaign_post_completed"
	NotificationTypeCampaignSquadCompleted      NotificationType = "campaign_squad_completed"
	NotificationTypeCampaignPostFirstMilestone  NotificationType = "campaign_post_first_milestone"
	NotificationTypeCampaignSquadFirstMilestone NotificationType = "campaign_squad_first_milestone"
	NotificationTypeNewOpportunityMatch         NotificationType = "new_opportunity_match"
	NotificationTypePostAnalytics               NotificationType = "post_analytics"
	NotificationTypePollResult                  NotificationType = "poll_result"
	NotificationTypePollResultAuthor            NotificationType = "poll_result_author"
	NotificationTypeWarmIntro                   NotificationType = "warm_intro"
	NotificationTypeBriefingReady               NotificationType = "briefing_ready"
)

// AllTypes lists every notification type. The generator tables must cover each
// of them; this is checked when the package is initialised.
var AllTypes = []NotificationType{
	NotificationTypeCommunityPicksFailed,
	NotificationTypeCommunityPicksSucceeded,
	NotificationTypeCommunityPicksGranted,
	NotificationTypeArticlePicked,
	NotificationTypeArticleNewComment,
	NotificationTypeArticleUpvoteMilestone,
	NotificationTypeArticleReportApproved,
	NotificationTypeArticleAnalytics,
	NotificationTypeSourceApproved,
	NotificationTypeSourceRejected,
	NotificationTypeCommentMention,
	NotificationTypeCommentReply,
	NotificationTypeCommentUpvoteMilestone,
	NotificationTypeSquadPostAdded,
	NotificationTypeSquadMemberJoined,
	NotificationTypeSquadNewComment,
	NotificationTypeSquadReply,
	NotificationTypeSquadPostViewed,
	NotificationTypeSquadAccess,
	NotificationTypePromotedToAdmin,
	NotificationTypeDemotedToMember,
	NotificationTypePromotedToModerator,
	NotificationTypePostMention,
	NotificationTypeSquadBlocked,
	NotificationTypeSquadSubscribeNotification,
	NotificationTypeCollectionUpdated,
	NotificationTypeDevCardUnlocked,
	NotificationTypeSourcePostAdded,
	NotificationTypeSquadPublicSubmitted,
	NotificationTypeSquadPublicRejected,
	NotificationTypeSquadPublicApproved,
	NotificationTypePostBookmarkReminder,
	NotificationTypeStreakResetRestore,
	NotificationTypeUserPostAdded,
	NotificationTypeUserTopReader,
	NotificationTypeUserGiftedPlus,
	NotificationTypeUserReceivedAward,
	NotificationTypeOrganizationMemberJoined,
	NotificationTypeSourcePostApproved,
	NotificationTypeSourcePostRejected,
	NotificationTypeSourcePostSubmitted,
	NotificationTypeCampaignPostCompleted,
	NotificationTypeCampaignSquadCompleted,
	NotificationTypeCampaignPostFirstMilestone,
	NotificationTypeCampaignSquadFirstMilestone,
	NotificationTypeNewOpportunityMatch,
	NotificationTypePostAnalytics,
	NotificationTypePollResult,
	NotificationTypePollResultAuthor,
	NotificationTypeWarmIntro,
	NotificationTypeBriefingReady,
}

// Icons shown next to a notification.
const (
	IconBell        = "Bell"
	IconComment     = "Comment"
	IconUpvote      = "Upvote"
	IconBookmark    = "Bookmark"
	IconDevCard     = "DevCard"
	IconView        = "View"
	IconStar        = "Star"
	IconBlock       = "Block"
	IconTimer       = "Timer"
	IconAnalytics   = "Analytics"
	IconStreak      = "Streak"
	IconCore        = "Core"
	IconSquad       = "Squad"
	IconOpportunity = "Opportunity"
	IconPoll        = "Poll"
	IconBriefing    = "Briefing"
	IconTopReader   = "TopReader"
	IconPlus        = "Plus"
	IconMegaphone   = "Megaphone"
)

// Reference types a notification can point at.
const (
	ReferenceTypePost           = "post"
	ReferenceTypeComment        = "comment"
	ReferenceTypeSource         = "source"
	ReferenceTypeSystem         = "system"
	ReferenceTypeSourceRequest  = "source_request"
	ReferenceTypeSubmission     = "submission"
	ReferenceTypeCampaign       = "campaign"
	ReferenceTypeTransaction    = "user_transaction"
	ReferenceTypeUser           = "user"
	ReferenceTypeOrganization   = "organization"
	ReferenceTypePostModeration = "post_moderation"
	ReferenceTypeOpportunity    = "opportunity"
	ReferenceTypeStreak         = "streak"
	ReferenceTypeTopReader      = "user_top_reader"
)

// Avatar and attachment kinds.
const (
	AvatarTypeSource       = "source"
	AvatarTypeUser         = "user"
	AvatarTypeTopReader    = "top_reader"
	AvatarTypeOrganization = "organization"

	AttachmentTypePost  = "post"
	AttachmentTypeVideo = "video"
)
