package backends

import (
	"context"
	"sort"

	"github.com/hashicorp/go-hclog"
)

// AuditBackend logs every email instead of sending it.
type AuditBackend struct {
	logger hclog.Logger
}

// NewAuditBackend creates a new audit backend
func NewAuditBackend(logger hclog.Logger) *AuditBackend {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &AuditBackend{logger: logger.Named("audit")}
}

// Name returns the backend identifier
func (b *AuditBackend) Name() string {
	return "audit"
}

// Handle logs the email.
func (b *AuditBackend) Handle(ctx context.Context, email *Email) error {
	args := []interface{}{
		"notification_id", email.NotificationID,
		"type", email.NotificationType,
		"template", email.TemplateID,
		"user_id", email.To.UserID,
		"to", formatRecipient(email.To),
		"subject", email.Subject,
	}
	keys := make([]string, 0, len(email.Data))
	for k := range email.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "data."+k, email.Data[k])
	}
	b.logger.Info("email", args...)
	return nil
}

func formatRecipient(r Recipient) string {
	if r.Name != "" && r.Email != "" {
		return r.Name + " <" + r.Email + ">"
	}
	return r.Email
}
