package models

func ModelsToAutoMigrate() []interface{} {
	return []interface{}{
		&User{}, // Must be first - delivery rows reference it
		&Source{},
		&SourceMember{},
		&Post{},
		&Comment{},
		&Upvote{},
		&Campaign{},
		&UserTransaction{},
		&ContentPreference{},
		&Notification{},
		&NotificationAvatar{},
		&NotificationAttachment{},
		&UserNotification{},
	}
}
