package email

import (
	"fmt"
	"html"
	"regexp"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/hashicorp-forge/courier/pkg/models"
	"github.com/hashicorp-forge/courier/pkg/notifications"
)

// templateIDs maps a notification type to its transactional template. Types
// missing here are never emailed.
var templateIDs = map[notifications.NotificationType]string{
	notifications.NotificationTypeCommunityPicksSucceeded:     "27",
	notifications.NotificationTypeCommunityPicksGranted:       "28",
	notifications.NotificationTypeArticlePicked:               "32",
	notifications.NotificationTypeArticleNewComment:           "33",
	notifications.NotificationTypeArticleUpvoteMilestone:      "22",
	notifications.NotificationTypeArticleReportApproved:       "30",
	notifications.NotificationTypeSourceApproved:              "34",
	notifications.NotificationTypeSourceRejected:              "35",
	notifications.NotificationTypeCommentMention:              "29",
	notifications.NotificationTypeCommentReply:                "37",
	notifications.NotificationTypeCommentUpvoteMilestone:      "44",
	notifications.NotificationTypeSquadPostAdded:              "17",
	notifications.NotificationTypeSquadMemberJoined:           "18",
	notifications.NotificationTypeSquadNewComment:             "19",
	notifications.NotificationTypeSquadReply:                  "20",
	notifications.NotificationTypePromotedToAdmin:             "12",
	notifications.NotificationTypePromotedToModerator:         "13",
	notifications.NotificationTypeDemotedToMember:             "14",
	notifications.NotificationTypePostMention:                 "54",
	notifications.NotificationTypeCollectionUpdated:           "41",
	notifications.NotificationTypeSourcePostAdded:             "42",
	notifications.NotificationTypeSquadPublicApproved:         "45",
	notifications.NotificationTypeSquadPublicRejected:         "46",
	notifications.NotificationTypeUserReceivedAward:           "65",
	notifications.NotificationTypeUserGiftedPlus:              "63",
	notifications.NotificationTypeSourcePostApproved:          "51",
	notifications.NotificationTypeSourcePostRejected:          "52",
	notifications.NotificationTypeSourcePostSubmitted:         "50",
	notifications.NotificationTypeCampaignPostCompleted:       "80",
	notifications.NotificationTypeCampaignSquadCompleted:      "81",
	notifications.NotificationTypeCampaignPostFirstMilestone:  "82",
	notifications.NotificationTypeCampaignSquadFirstMilestone: "83",
	notifications.NotificationTypeNewOpportunityMatch:         "85",
	notifications.NotificationTypeWarmIntro:                   "86",
	notifications.NotificationTypePollResult:                  "84",
	notifications.NotificationTypePollResultAuthor:            "84",
	notifications.NotificationTypeBriefingReady:               "87",
	notifications.NotificationTypeStreakResetRestore:          "88",
	notifications.NotificationTypeUserTopReader:               "89",
}

// TemplateID returns the template of t and whether t is emailed at all.
func TemplateID(t notifications.NotificationType) (string, bool) {
	id, ok := templateIDs[t]
	return id, ok
}

// Input is everything a data builder may read.
type Input struct {
	User         *models.User
	Notification *models.Notification
	Avatars      []models.NotificationAvatar
	Attachments  []models.NotificationAttachment
}

// dataBuilder returns the template variables as a struct with mapstructure
// tags, or nil when the email must not be sent. Embedded data structs are
// exported so mapstructure can squash them.
type dataBuilder func(in *Input) interface{}

type BaseData struct {
	FullName    string `mapstructure:"full_name"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description,omitempty"`
	Link        string `mapstructure:"link"`
}

type PostData struct {
	BaseData  `mapstructure:",squash"`
	PostTitle string `mapstructure:"post_title"`
	PostImage string `mapstructure:"post_image"`
}

type CommentData struct {
	PostData       `mapstructure:",squash"`
	CommenterName  string `mapstructure:"commenter_name"`
	CommenterImage string `mapstructure:"commenter_image"`
	CommentPreview string `mapstructure:"comment"`
}

type UpvoteData struct {
	PostData `mapstructure:",squash"`
	Upvotes  int `mapstructure:"upvotes"`
}

type SquadData struct {
	BaseData   `mapstructure:",squash"`
	SquadName  string `mapstructure:"squad_name"`
	SquadImage string `mapstructure:"squad_image"`
	PostTitle  string `mapstructure:"post_title,omitempty"`
}

type MemberData struct {
	SquadData   `mapstructure:",squash"`
	MemberName  string `mapstructure:"member_name"`
	MemberImage string `mapstructure:"member_image"`
}

// dataBuilders covers the types in templateIDs. A type with a template but no
// builder uses genericData.
var dataBuilders = map[notifications.NotificationType]dataBuilder{
	notifications.NotificationTypeArticleNewComment:      commentEmail,
	notifications.NotificationTypeCommentReply:           commentEmail,
	notifications.NotificationTypeCommentMention:         commentEmail,
	notifications.NotificationTypeSquadNewComment:        commentEmail,
	notifications.NotificationTypeSquadReply:             commentEmail,
	notifications.NotificationTypePostMention:            commentEmail,
	notifications.NotificationTypeArticleUpvoteMilestone: upvoteEmail,
	notifications.NotificationTypeCommentUpvoteMilestone: upvoteEmail,
	notifications.NotificationTypeArticlePicked:          postEmail,
	notifications.NotificationTypeArticleReportApproved:  postEmail,
	notifications.NotificationTypeCollectionUpdated:      postEmail,
	notifications.NotificationTypeSourcePostAdded:        postEmail,
	notifications.NotificationTypeCampaignPostCompleted:  postEmail,
	notifications.NotificationTypeSquadPostAdded:         squadPostEmail,
	notifications.NotificationTypeSquadMemberJoined:      memberEmail,
	notifications.NotificationTypePromotedToAdmin:        squadEmail,
	notifications.NotificationTypePromotedToModerator:    squadEmail,
	notifications.NotificationTypeDemotedToMember:        squadEmail,
	notifications.NotificationTypeSquadPublicApproved:    squadEmail,
	notifications.NotificationTypeSquadPublicRejected:    squadEmail,
	notifications.NotificationTypeCampaignSquadCompleted: squadEmail,
}

func base(in *Input) BaseData {
	return BaseData{
		FullName:    in.User.DisplayName(),
		Title:       plainText(in.Notification.Title),
		Description: plainText(in.Notification.Description),
		Link:        in.Notification.TargetURL,
	}
}

func genericData(in *Input) interface{} {
	return base(in)
}

func firstAttachment(in *Input) (models.NotificationAttachment, bool) {
	if len(in.Attachments) == 0 {
		return models.NotificationAttachment{}, false
	}
	return in.Attachments[0], true
}

func firstAvatar(in *Input, kind string) (models.NotificationAvatar, bool) {
	for _, a := range in.Avatars {
		if a.Type == kind {
			return a, true
		}
	}
	return models.NotificationAvatar{}, false
}

func postEmail(in *Input) interface{} {
	att, ok := firstAttachment(in)
	if !ok {
		return nil
	}
	return PostData{BaseData: base(in), PostTitle: att.Title, PostImage: att.Image}
}

func commentEmail(in *Input) interface{} {
	att, ok := firstAttachment(in)
	if !ok {
		return nil
	}
	commenter, ok := firstAvatar(in, notifications.AvatarTypeUser)
	if !ok {
		return nil
	}
	return CommentData{
		PostData:       PostData{BaseData: base(in), PostTitle: att.Title, PostImage: att.Image},
		CommenterName:  commenter.Name,
		CommenterImage: commenter.Image,
		CommentPreview: plainText(in.Notification.Description),
	}
}

func upvoteEmail(in *Input) interface{} {
	upvotes, err := strconv.Atoi(in.Notification.UniqueKey)
	if err != nil {
		return nil
	}
	att, _ := firstAttachment(in)
	return UpvoteData{
		PostData: PostData{BaseData: base(in), PostTitle: att.Title, PostImage: att.Image},
		Upvotes:  upvotes,
	}
}

func squadEmail(in *Input) interface{} {
	squad, ok := firstAvatar(in, notifications.AvatarTypeSource)
	if !ok {
		return nil
	}
	return SquadData{BaseData: base(in), SquadName: squad.Name, SquadImage: squad.Image}
}

func squadPostEmail(in *Input) interface{} {
	data, ok := squadEmail(in).(SquadData)
	if !ok {
		return nil
	}
	if att, ok := firstAttachment(in); ok {
		data.PostTitle = att.Title
	}
	return data
}

func memberEmail(in *Input) interface{} {
	data, ok := squadEmail(in).(SquadData)
	if !ok {
		return nil
	}
	member, ok := firstAvatar(in, notifications.AvatarTypeUser)
	if !ok {
		return nil
	}
	return MemberData{SquadData: data, MemberName: member.Name, MemberImage: member.Image}
}

// TemplateData returns the flattened template variables for the notification,
// or nil when the email must not be sent.
func TemplateData(t notifications.NotificationType, in *Input) (map[string]string, error) {
	build, ok := dataBuilders[t]
	if !ok {
		build = genericData
	}
	data := build(in)
	if data == nil {
		return nil, nil
	}

	var flat map[string]interface{}
	if err := mapstructure.Decode(data, &flat); err != nil {
		return nil, fmt.Errorf("error flattening template data for %s: %w", t, err)
	}
	out := make(map[string]string, len(flat))
	for k, v := range flat {
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// plainText strips markup from notification titles.
func plainText(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}
