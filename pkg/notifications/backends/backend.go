package backends

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Recipient is the addressee of an email.
type Recipient struct {
	UserID string
	Email  string
	Name   string
}

// Email is a templated notification email for one recipient.
type Email struct {
	NotificationID   string
	NotificationType string

	// TemplateID names the transactional template to render.
	TemplateID string

	// Subject is the plain text subject line.
	Subject string

	To Recipient

	// Data holds the template variables.
	Data map[string]string

	Timestamp time.Time
}

// Backend delivers notification emails.
type Backend interface {
	// Name returns the backend identifier
	Name() string

	// Handle delivers one email
	Handle(ctx context.Context, email *Email) error
}

// BackendError represents an error from a specific backend
type BackendError struct {
	Backend   string // Backend name (e.g., "mail", "audit")
	Operation string // Operation that failed (e.g., "send", "render")
	Retryable bool   // Whether the error is retryable
	Err       error  // Underlying error
}

func (e *BackendError) Error() string {
	retryability := "permanent"
	if e.Retryable {
		retryability = "retryable"
	}
	return fmt.Sprintf("%s backend error (%s, %s): %v", e.Backend, e.Operation, retryability, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *BackendError) IsRetryable() bool {
	return e.Retryable
}

// MultiBackendError represents errors from multiple backends
type MultiBackendError struct {
	Errors []*BackendError
}

func (e *MultiBackendError) Error() string {
	if len(e.Errors) == 0 {
		return "no backend errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("multiple backend errors: %s", strings.Join(msgs, "; "))
}

// HasRetryableErrors returns true if any of the errors are retryable
func (e *MultiBackendError) HasRetryableErrors() bool {
	for _, err := range e.Errors {
		if err.Retryable {
			return true
		}
	}
	return false
}

// AllRetryable returns true if all errors are retryable
func (e *MultiBackendError) AllRetryable() bool {
	if len(e.Errors) == 0 {
		return false
	}
	for _, err := range e.Errors {
		if !err.Retryable {
			return false
		}
	}
	return true
}

// NewBackendError creates a new backend error
func NewBackendError(backend, operation string, retryable bool, err error) *BackendError {
	return &BackendError{
		Backend:   backend,
		Operation: operation,
		Retryable: retryable,
		Err:       err,
	}
}
