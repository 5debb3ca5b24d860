// Package queue carries thumbnail jobs from the API to the worker with
// at-least-once delivery.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/templui/filesmanager/internal/config"
)

// Delivery is one attempt at handling a published message.
type Delivery struct {
	ID      string
	Body    []byte
	Attempt int
}

// Handler processes a delivery. A nil return acknowledges it; an error
// schedules a retry unless it is Permanent or attempts are exhausted.
type Handler func(ctx context.Context, d Delivery) error

type Queue interface {
	Publish(ctx context.Context, body []byte) error
	// Consume runs handler on up to concurrency deliveries at a time and
	// blocks until ctx is done.
	Consume(ctx context.Context, concurrency int, handler Handler) error
	Close() error
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// New opens the configured queue backend. db is required for the sql driver.
func New(cfg *config.Config, db *sqlx.DB) (Queue, error) {
	switch cfg.QueueDriver {
	case config.QueueDriverSQL:
		if db == nil {
			return nil, errors.New("sql queue requires a SQL database")
		}
		return NewSQLQueue(db, SQLOptions{
			Name:              cfg.QueueName,
			VisibilityTimeout: cfg.QueueVisibilityTimeout,
			PollInterval:      cfg.QueuePollInterval,
			MaxAttempts:       cfg.QueueMaxAttempts,
		}), nil
	case config.QueueDriverAMQP:
		return NewAMQPQueue(cfg.AMQPURL, cfg.QueueName, cfg.QueueMaxAttempts)
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}
}
