package notifications

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Record holds the core fields of a notification before persistence.
type Record struct {
	Type            NotificationType
	Title           string
	Description     string
	Icon            string
	TargetURL       string
	Public          bool
	ReferenceID     string
	ReferenceType   string
	UniqueKey       string
	NumTotalAvatars *int
}

// AvatarRef is an avatar keyed by (Type, ReferenceID).
type AvatarRef struct {
	Type        string
	ReferenceID string
	Image       string
	Name        string
	TargetURL   string
}

// AttachmentRef is an attachment keyed by (Type, ReferenceID).
type AttachmentRef struct {
	Type        string
	ReferenceID string
	Image       string
	Title       string
}

// Bundle is the output of the builder: the notification, its ordered avatars
// and attachments, and the candidate recipients.
type Bundle struct {
	Notification Record
	Avatars      []AvatarRef
	Attachments  []AttachmentRef
	UserIDs      []string

	// InitiatorID is the user whose action caused the event, if any.
	InitiatorID string
}

// Validate checks that the bundle can be persisted.
func (b *Bundle) Validate() error {
	n := &b.Notification
	return validation.ValidateStruct(n,
		validation.Field(&n.Type, validation.Required),
		validation.Field(&n.Title, validation.Required),
		validation.Field(&n.Icon, validation.Required),
		validation.Field(&n.TargetURL, validation.Required),
		validation.Field(&n.ReferenceID, validation.Required),
		validation.Field(&n.ReferenceType, validation.Required),
	)
}
