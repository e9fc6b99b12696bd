package backends

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"sort"
	"strconv"
)

// MailBackend sends notification emails via SMTP
type MailBackend struct {
	smtpHost     string
	smtpPort     int
	smtpUsername string
	smtpPassword string
	fromAddress  string
	fromName     string
	useTLS       bool

	// send is swapped in tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// MailBackendConfig configures the mail backend
type MailBackendConfig struct {
	SMTPHost     string // SMTP server hostname
	SMTPPort     int    // SMTP server port (typically 587 for TLS, 25 for plaintext)
	SMTPUsername string // SMTP username (optional for auth)
	SMTPPassword string // SMTP password (optional for auth)
	FromAddress  string // From email address
	FromName     string // From display name
	UseTLS       bool   // Use STARTTLS (recommended for port 587)
}

// NewMailBackend creates a new mail backend
func NewMailBackend(cfg MailBackendConfig) *MailBackend {
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	b := &MailBackend{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUsername: cfg.SMTPUsername,
		smtpPassword: cfg.SMTPPassword,
		fromAddress:  cfg.FromAddress,
		fromName:     cfg.FromName,
		useTLS:       cfg.UseTLS,
	}
	b.send = smtp.SendMail
	if b.useTLS {
		b.send = b.sendMailTLS
	}
	return b
}

// Name returns the backend identifier
func (b *MailBackend) Name() string {
	return "mail"
}

// Handle renders and sends the email.
func (b *MailBackend) Handle(ctx context.Context, email *Email) error {
	if email.To.Email == "" {
		return NewBackendError("mail", "send", false, fmt.Errorf("recipient %s has no email address", email.To.UserID))
	}

	body, err := b.buildBody(email)
	if err != nil {
		return NewBackendError("mail", "render", false, err)
	}

	if err := b.sendEmail(email.To, email.Subject, body); err != nil {
		return NewBackendError("mail", "send", true, fmt.Errorf("failed to send email to %s: %w", email.To.Email, err))
	}
	return nil
}

var bodyTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .button {
            display: inline-block;
            padding: 12px 24px;
            background-color: #5c4ee5;
            color: white;
            text-decoration: none;
            border-radius: 4px;
            margin-top: 15px;
        }
        .footer {
            margin-top: 20px;
            padding-top: 20px;
            border-top: 1px solid #ddd;
            font-size: 12px;
            color: #666;
        }
    </style>
</head>
<body data-template="{{.TemplateID}}">
    <h1>{{.Subject}}</h1>
    {{range .Fields}}
    <p><strong>{{.Key}}:</strong> {{.Value}}</p>
    {{end}}
    {{if .Link}}
    <a href="{{.Link}}" class="button">Open</a>
    {{end}}
    <div class="footer">
        <p>You received this email because email notifications are enabled for your account.</p>
    </div>
</body>
</html>`))

type field struct {
	Key   string
	Value string
}

// buildBody renders the fallback HTML body. Template data is listed in key order.
func (b *MailBackend) buildBody(email *Email) (string, error) {
	keys := make([]string, 0, len(email.Data))
	for k := range email.Data {
		if k == "link" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]field, len(keys))
	for i, k := range keys {
		fields[i] = field{Key: k, Value: email.Data[k]}
	}

	data := struct {
		Subject    string
		TemplateID string
		Fields     []field
		Link       string
	}{
		Subject:    email.Subject,
		TemplateID: email.TemplateID,
		Fields:     fields,
		Link:       email.Data["link"],
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return buf.String(), nil
}

// sendEmail sends an email via SMTP
func (b *MailBackend) sendEmail(to Recipient, subject, htmlBody string) error {
	from := b.fromAddress
	if b.fromName != "" {
		from = fmt.Sprintf("%s <%s>", b.fromName, b.fromAddress)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		from, formatRecipient(to), subject, htmlBody,
	))

	addr := net.JoinHostPort(b.smtpHost, strconv.Itoa(b.smtpPort))

	var auth smtp.Auth
	if b.smtpUsername != "" && b.smtpPassword != "" {
		auth = smtp.PlainAuth("", b.smtpUsername, b.smtpPassword, b.smtpHost)
	}

	return b.send(addr, auth, b.fromAddress, []string{to.Email}, msg)
}

// sendMailTLS sends email with STARTTLS support
func (b *MailBackend) sendMailTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: b.smtpHost}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, addr := range to {
		if err = client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
