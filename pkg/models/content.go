package models

import (
	"time"

	"gorm.io/gorm"
)

// Source types.
const (
	SourceTypeMachine = "machine"
	SourceTypeSquad   = "squad"
	SourceTypeUser    = "user"
)

// Source member roles.
const (
	SourceMemberRoleAdmin     = "admin"
	SourceMemberRoleModerator = "moderator"
	SourceMemberRoleMember    = "member"
	SourceMemberRoleBlocked   = "blocked"
)

// Post types.
const (
	PostTypeArticle  = "article"
	PostTypeShare    = "share"
	PostTypeFreeform = "freeform"
	PostTypeVideo    = "video:youtube"
	PostTypePoll     = "poll"
	PostTypeBrief    = "brief"
	PostTypeCollect  = "collection"
)

// Source is a publication or a community (squad).
type Source struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(32);not null;default:'machine'" json:"type"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Handle    string    `gorm:"type:varchar(255);uniqueIndex" json:"handle"`
	Image     string    `gorm:"type:text" json:"image"`
	Private   bool      `gorm:"not null;default:false" json:"private"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name.
func (Source) TableName() string {
	return "sources"
}

// IsSquad reports whether the source is a community.
func (s *Source) IsSquad() bool {
	return s.Type == SourceTypeSquad
}

// SourceMember links a user to a squad with a role.
type SourceMember struct {
	SourceID  string    `gorm:"type:varchar(64);primaryKey" json:"sourceId"`
	UserID    string    `gorm:"type:varchar(64);primaryKey;index" json:"userId"`
	Role      string    `gorm:"type:varchar(32);not null;default:'member'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name.
func (SourceMember) TableName() string {
	return "source_members"
}

// Post is a piece of content published in a source.
type Post struct {
	ID           string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Type         string    `gorm:"type:varchar(32);not null;default:'article'" json:"type"`
	Title        string    `gorm:"type:text" json:"title"`
	Image        string    `gorm:"type:text" json:"image"`
	Slug         string    `gorm:"type:varchar(255)" json:"slug"`
	SourceID     string    `gorm:"type:varchar(64);not null;index" json:"sourceId"`
	AuthorID     *string   `gorm:"type:varchar(64);index" json:"authorId,omitempty"`
	ScoutID      *string   `gorm:"type:varchar(64)" json:"scoutId,omitempty"`
	SharedPostID *string   `gorm:"type:varchar(64)" json:"sharedPostId,omitempty"`
	Upvotes      int       `gorm:"not null;default:0" json:"upvotes"`
	Deleted      bool      `gorm:"not null;default:false" json:"deleted"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName specifies the table name.
func (Post) TableName() string {
	return "posts"
}

// PathID returns the identifier used in post URLs.
func (p *Post) PathID() string {
	if p.Slug != "" {
		return p.Slug
	}
	return p.ID
}

// Comment is a comment on a post, optionally a reply to another comment.
type Comment struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	PostID    string    `gorm:"type:varchar(64);not null;index" json:"postId"`
	UserID    string    `gorm:"type:varchar(64);not null" json:"userId"`
	ParentID  *string   `gorm:"type:varchar(64);index" json:"parentId,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Upvotes   int       `gorm:"not null;default:0" json:"upvotes"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name.
func (Comment) TableName() string {
	return "comments"
}

// Upvote records a user's upvote on a post or a comment.
type Upvote struct {
	UserID      string    `gorm:"type:varchar(64);primaryKey" json:"userId"`
	ReferenceID string    `gorm:"type:varchar(64);primaryKey;index:idx_upvotes_reference,priority:1" json:"referenceId"`
	Kind        string    `gorm:"type:varchar(16);primaryKey;index:idx_upvotes_reference,priority:2" json:"kind"` // 'post' or 'comment'
	CreatedAt   time.Time `gorm:"index:idx_upvotes_reference,priority:3" json:"createdAt"`
}

// TableName specifies the table name.
func (Upvote) TableName() string {
	return "upvotes"
}

// Upvote kinds.
const (
	UpvoteKindPost    = "post"
	UpvoteKindComment = "comment"
)

// GetPost loads a post by id. A soft-deleted post is reported as not found.
func GetPost(db *gorm.DB, id string) (*Post, error) {
	var p Post
	if err := db.Where("id = ? AND deleted = ?", id, false).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetSource loads a source by id.
func GetSource(db *gorm.DB, id string) (*Source, error) {
	var s Source
	if err := db.Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetComment loads a comment by id.
func GetComment(db *gorm.DB, id string) (*Comment, error) {
	var c Comment
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetUser loads a user by id.
func GetUser(db *gorm.DB, id string) (*User, error) {
	var u User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetRecentUpvoters returns the most recent upvoters of a post or comment.
func GetRecentUpvoters(db *gorm.DB, kind, referenceID string, limit int) ([]User, error) {
	var users []User
	err := db.
		Joins("JOIN upvotes ON upvotes.user_id = users.id").
		Where("upvotes.kind = ? AND upvotes.reference_id = ?", kind, referenceID).
		Order("upvotes.created_at DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// GetSourceMemberIDs returns the ids of the source's members holding one of the roles.
func GetSourceMemberIDs(db *gorm.DB, sourceID string, roles []string) ([]string, error) {
	var ids []string
	err := db.Model(&SourceMember{}).
		Where("source_id = ? AND role IN ?", sourceID, roles).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// GetThreadParticipantIDs returns the distinct authors of a comment thread:
// the parent comment's author and everyone who replied to it.
func GetThreadParticipantIDs(db *gorm.DB, parentID string) ([]string, error) {
	var ids []string
	err := db.Model(&Comment{}).
		Where("id = ? OR parent_id = ?", parentID, parentID).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
