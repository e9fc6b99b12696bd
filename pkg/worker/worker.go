// Package worker dispatches subscription messages to typed notification
// handlers and runs them on Kafka consumer groups.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/database"
	"github.com/hashicorp-forge/courier/pkg/notifications"
	"github.com/hashicorp-forge/courier/pkg/pipeline"
)

// Message is one event delivered on a subscription.
type Message struct {
	Subscription string
	Key          []byte
	Value        []byte
	Partition    int32
	Offset       int64
	Timestamp    time.Time
}

// Outcome labels how a message was handled.
type Outcome string

const (
	// OutcomeProcessed means at least one notification was created.
	OutcomeProcessed Outcome = "processed"
	// OutcomeEmpty means the handler produced nothing to notify.
	OutcomeEmpty Outcome = "empty"
	// OutcomeFiltered means every recipient was filtered out.
	OutcomeFiltered Outcome = "filtered"
	// OutcomeDuplicate means the notifications already existed.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeBenign means persistence hit a vanished entity and was skipped.
	OutcomeBenign Outcome = "benign"
	// OutcomeDeadLettered means retries were exhausted and the message went to the DLQ.
	OutcomeDeadLettered Outcome = "dead_lettered"
	// OutcomeDropped means retries were exhausted and no DLQ was available.
	OutcomeDropped Outcome = "dropped"
)

// HandleFunc handles one message.
type HandleFunc func(ctx context.Context, msg *Message) (Outcome, error)

// Worker pairs a subscription with the function handling its messages.
type Worker struct {
	Subscription string
	Handle       HandleFunc
}

// DecodeError marks a payload that can never be decoded. It is not retried.
type DecodeError struct {
	Subscription string
	Err          error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("error decoding %s event: %v", e.Subscription, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NotificationHandler turns a decoded event into notifications. It reads
// through db and returns nothing when the event does not notify anyone.
type NotificationHandler[E any] func(ctx context.Context, event E, db *gorm.DB) ([]notifications.Generated, error)

// NotificationWorker describes a subscription whose events produce
// notifications.
type NotificationWorker[E any] struct {
	Subscription string
	// Decode parses a payload. Nil selects JSON.
	Decode  func(payload []byte) (E, error)
	Handler NotificationHandler[E]
}

// Binder is satisfied by every NotificationWorker regardless of its event type.
type Binder interface {
	Name() string
	Bind(p *pipeline.Pipeline, cluster *database.Cluster) Worker
}

// Name returns the subscription.
func (w NotificationWorker[E]) Name() string { return w.Subscription }

// DecodeJSON decodes payload as JSON into E.
func DecodeJSON[E any](payload []byte) (E, error) {
	var event E
	err := json.Unmarshal(payload, &event)
	return event, err
}

// Bind returns a Worker that decodes messages, runs the handler against the
// cluster's read side and persists the results through p.
func (w NotificationWorker[E]) Bind(p *pipeline.Pipeline, cluster *database.Cluster) Worker {
	decode := w.Decode
	if decode == nil {
		decode = DecodeJSON[E]
	}

	return Worker{
		Subscription: w.Subscription,
		Handle: func(ctx context.Context, msg *Message) (Outcome, error) {
			event, err := decode(msg.Value)
			if err != nil {
				return "", &DecodeError{Subscription: w.Subscription, Err: err}
			}

			generated, err := w.Handler(ctx, event, cluster.Reader().WithContext(ctx))
			if err != nil {
				return "", fmt.Errorf("error handling %s event: %w", w.Subscription, err)
			}
			if len(generated) == 0 {
				return OutcomeEmpty, nil
			}

			res, err := p.Process(ctx, generated)
			if err != nil {
				return "", err
			}
			return outcomeOf(res), nil
		},
	}
}

func outcomeOf(res *pipeline.Result) Outcome {
	switch {
	case len(res.Created) > 0:
		return OutcomeProcessed
	case res.Benign:
		return OutcomeBenign
	case res.AlreadyProcessed > 0:
		return OutcomeDuplicate
	default:
		return OutcomeFiltered
	}
}
