package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

const attemptHeader = "x-attempt"

// AMQPQueue publishes to a durable RabbitMQ queue. Unacked deliveries are
// redelivered by the broker when a consumer connection dies; handler errors
// are retried by republishing with an incremented attempt header.
type AMQPQueue struct {
	conn        *amqp.Connection
	pub         *amqp.Channel
	mu          sync.Mutex
	name        string
	maxAttempts int
}

func NewAMQPQueue(url, name string, maxAttempts int) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", name, err)
	}

	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	slog.Info("queue connected", "driver", "amqp", "queue", name)
	return &AMQPQueue{conn: conn, pub: ch, name: name, maxAttempts: maxAttempts}, nil
}

func (q *AMQPQueue) Publish(ctx context.Context, body []byte) error {
	return q.publish(ctx, body, 1)
}

func (q *AMQPQueue) publish(ctx context.Context, body []byte, attempt int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	err := q.pub.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now(),
		Headers:      amqp.Table{attemptHeader: int32(attempt)},
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

func (q *AMQPQueue) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	defer ch.Close()

	err = ch.Qos(concurrency, 0, false)
	if err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %q: %w", q.name, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-deliveries:
					if !ok {
						if ctx.Err() != nil {
							return nil
						}
						return errors.New("broker closed the delivery channel")
					}
					q.deliver(ctx, msg, handler)
				}
			}
		})
	}
	return g.Wait()
}

func (q *AMQPQueue) deliver(ctx context.Context, msg amqp.Delivery, handler Handler) {
	d := Delivery{ID: msg.MessageId, Body: msg.Body, Attempt: attemptOf(msg)}
	herr := handler(ctx, d)

	if herr == nil {
		if err := msg.Ack(false); err != nil {
			slog.Error("queue ack failed", "queue", q.name, "job_id", d.ID, "error", err)
		}
		return
	}

	if ctx.Err() != nil {
		// shutting down: hand it back to the broker as is
		_ = msg.Nack(false, true)
		return
	}

	if IsPermanent(herr) || d.Attempt >= q.maxAttempts {
		slog.Error("queue job dropped", "queue", q.name, "job_id", d.ID, "attempt", d.Attempt, "error", herr)
		_ = msg.Nack(false, false)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := q.publish(pubCtx, msg.Body, d.Attempt+1)
	if err != nil {
		slog.Error("queue retry publish failed", "queue", q.name, "job_id", d.ID, "error", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

func attemptOf(msg amqp.Delivery) int {
	switch v := msg.Headers[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 1
}

func (q *AMQPQueue) Close() error {
	if q.pub != nil {
		_ = q.pub.Close()
	}
	return q.conn.Close()
}
