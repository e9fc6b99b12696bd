package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/courier/pkg/notifications"
)

// Default retry settings.
const (
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second
)

// DeadLetterer receives messages whose retries are exhausted.
type DeadLetterer interface {
	PublishToDLQ(ctx context.Context, msg *notifications.DLQMessage) error
}

// ProcessorConfig configures a Processor.
type ProcessorConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// DLQ is optional. Without it exhausted messages are logged and dropped.
	DLQ    DeadLetterer
	Logger hclog.Logger
}

// Processor runs a worker against a message with bounded retries.
type Processor struct {
	cfg    ProcessorConfig
	logger hclog.Logger
}

// NewProcessor returns a processor with defaults applied.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Processor{cfg: cfg, logger: cfg.Logger.Named("processor")}
}

// Process handles msg with w. A nil return means the message is settled and
// its offset may be committed: it was handled, or it failed every attempt and
// was dead-lettered. An error means it must be redelivered.
func (p *Processor) Process(ctx context.Context, w Worker, msg *Message) error {
	start := time.Now()
	defer func() {
		eventDuration.WithLabelValues(w.Subscription).Observe(time.Since(start).Seconds())
	}()

	var (
		outcome      Outcome
		attempts     int
		firstFailure time.Time
	)
	op := func() error {
		attempts++
		var err error
		outcome, err = w.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		if firstFailure.IsZero() {
			firstFailure = time.Now().UTC()
		}
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) || notifications.IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.InitialBackoff
	exp.MaxInterval = p.cfg.MaxBackoff
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.cfg.MaxAttempts-1)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		p.logger.Warn("event failed, retrying",
			"subscription", w.Subscription,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempts,
			"wait", wait,
			"error", err)
	})
	if err == nil {
		eventsTotal.WithLabelValues(w.Subscription, string(outcome)).Inc()
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.logger.Error("event failed",
		"subscription", w.Subscription,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"attempts", attempts,
		"error", err)

	if p.cfg.DLQ == nil {
		eventsTotal.WithLabelValues(w.Subscription, string(OutcomeDropped)).Inc()
		return nil
	}

	dlq := &notifications.DLQMessage{
		Subscription:   w.Subscription,
		Payload:        msg.Value,
		Key:            string(msg.Key),
		Partition:      msg.Partition,
		Offset:         msg.Offset,
		Attempts:       attempts,
		FailureReason:  err.Error(),
		FirstFailureAt: firstFailure,
	}
	if dlqErr := p.cfg.DLQ.PublishToDLQ(ctx, dlq); dlqErr != nil {
		p.logger.Error("failed to dead-letter event",
			"subscription", w.Subscription,
			"offset", msg.Offset,
			"error", dlqErr)
		return dlqErr
	}
	eventsTotal.WithLabelValues(w.Subscription, string(OutcomeDeadLettered)).Inc()
	return nil
}
