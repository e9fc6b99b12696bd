package backends

import (
	"context"
	"errors"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/courier/internal/config"
)

// Registry manages available email backends
type Registry struct {
	backends map[string]Backend
	logger   hclog.Logger
}

// NewRegistry creates a new backend registry from configuration
func NewRegistry(cfg *config.Backends, logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	registry := &Registry{
		backends: make(map[string]Backend),
		logger:   logger.Named("backends"),
	}

	if cfg == nil {
		return registry
	}

	if cfg.Audit != nil && cfg.Audit.Enabled {
		registry.Register(NewAuditBackend(logger))
		registry.logger.Info("initialized audit backend")
	}

	if cfg.Mail != nil && cfg.Mail.Enabled {
		registry.Register(NewMailBackend(MailBackendConfig{
			SMTPHost:     cfg.Mail.SMTPHost,
			SMTPPort:     cfg.Mail.SMTPPort,
			SMTPUsername: cfg.Mail.SMTPUser,
			SMTPPassword: cfg.Mail.SMTPPass,
			FromAddress:  cfg.Mail.FromAddress,
			FromName:     cfg.Mail.FromName,
			UseTLS:       cfg.Mail.UseTLS,
		}))
		registry.logger.Info("initialized mail backend",
			"host", cfg.Mail.SMTPHost,
			"port", cfg.Mail.SMTPPort,
			"from", cfg.Mail.FromAddress)
	}

	return registry
}

// Register adds or replaces a backend.
func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
}

// GetBackend returns a backend by name
func (r *Registry) GetBackend(name string) (Backend, bool) {
	backend, ok := r.backends[name]
	return backend, ok
}

// GetBackendNames returns the sorted names of all registered backends
func (r *Registry) GetBackendNames() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send hands email to every backend. Failures are collected in a
// *MultiBackendError; one backend failing does not stop the others.
func (r *Registry) Send(ctx context.Context, email *Email) error {
	var multi MultiBackendError
	for _, name := range r.GetBackendNames() {
		err := r.backends[name].Handle(ctx, email)
		if err == nil {
			continue
		}
		var be *BackendError
		if !errors.As(err, &be) {
			be = NewBackendError(name, "send", true, err)
		}
		r.logger.Warn("backend failed",
			"backend", name,
			"notification_id", email.NotificationID,
			"user_id", email.To.UserID,
			"error", err)
		multi.Errors = append(multi.Errors, be)
	}
	if len(multi.Errors) > 0 {
		return &multi
	}
	return nil
}
