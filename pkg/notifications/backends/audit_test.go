package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditBackendHandle(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Info, JSONFormat: true})
	backend := NewAuditBackend(logger)
	assert.Equal(t, "audit", backend.Name())

	err := backend.Handle(context.Background(), &Email{
		NotificationID:   "n1",
		NotificationType: "article_new_comment",
		TemplateID:       "37",
		Subject:          "New comment",
		To:               Recipient{UserID: "u1", Email: "ada@example.com", Name: "Ada"},
		Data:             map[string]string{"post_title": "Hello"},
	})
	require.NoError(t, err)

	// hclog escapes the angle brackets, so compare decoded fields.
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "n1", entry["notification_id"])
	assert.Equal(t, "37", entry["template"])
	assert.Equal(t, "Ada <ada@example.com>", entry["to"])
	assert.Equal(t, "Hello", entry["data.post_title"])
}

func TestFormatRecipient(t *testing.T) {
	assert.Equal(t, "Ada <ada@example.com>", formatRecipient(Recipient{Email: "ada@example.com", Name: "Ada"}))
	assert.Equal(t, "ada@example.com", formatRecipient(Recipient{Email: "ada@example.com"}))
	assert.Equal(t, "", formatRecipient(Recipient{Name: "Ada"}))
}
