package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type SQLOptions struct {
	Name string
	// VisibilityTimeout is how long a claimed job stays invisible to other
	// consumers. A consumer that dies mid-job loses the lease after this.
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	MaxAttempts       int
}

// SQLQueue is a lease-based job table shared by the API and the worker.
type SQLQueue struct {
	db   *sqlx.DB
	opts SQLOptions
	now  func() time.Time
}

type claimedJob struct {
	ID       string `db:"id"`
	Payload  string `db:"payload"`
	Attempts int    `db:"attempts"`
}

func NewSQLQueue(db *sqlx.DB, opts SQLOptions) *SQLQueue {
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = 5 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &SQLQueue{db: db, opts: opts, now: time.Now}
}

func (q *SQLQueue) Publish(ctx context.Context, body []byte) error {
	now := q.now().UnixMilli()
	query := `INSERT INTO jobs (id, queue, payload, attempts, available_at, locked_until, created_at)
	          VALUES ($1, $2, $3, 0, $4, 0, $5)`

	_, err := q.db.ExecContext(ctx, query, uuid.New().String(), q.opts.Name, string(body), now, now)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// Claim leases the oldest available job. It returns ok=false when nothing
// is available. Two consumers racing for the same row are settled by the
// outer locked_until check: the loser updates zero rows.
func (q *SQLQueue) Claim(ctx context.Context) (Delivery, bool, error) {
	now := q.now()
	nowMs := now.UnixMilli()
	leaseUntil := now.Add(q.opts.VisibilityTimeout).UnixMilli()

	query := `UPDATE jobs SET locked_until = $1, attempts = attempts + 1
	          WHERE id = (
	              SELECT id FROM jobs
	              WHERE queue = $2 AND failed_at IS NULL AND available_at <= $3 AND locked_until < $4
	              ORDER BY available_at, created_at
	              LIMIT 1
	          ) AND locked_until < $5
	          RETURNING id, payload, attempts`

	var job claimedJob
	err := q.db.GetContext(ctx, &job, query, leaseUntil, q.opts.Name, nowMs, nowMs, nowMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Delivery{}, false, nil
	}
	if err != nil {
		return Delivery{}, false, fmt.Errorf("failed to claim job: %w", err)
	}

	return Delivery{ID: job.ID, Body: []byte(job.Payload), Attempt: job.Attempts}, true, nil
}

// ErrLeaseLost is returned when a job is settled after its lease expired
// and another consumer claimed it.
var ErrLeaseLost = errors.New("job lease lost")

// Ack removes a handled job. Every claim bumps attempts, so the delivery's
// attempt fences out consumers whose lease was taken over.
func (q *SQLQueue) Ack(ctx context.Context, d Delivery) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = $1 AND attempts = $2 AND failed_at IS NULL`,
		d.ID, d.Attempt)
	if err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return settled(res)
}

// Nack releases the lease and schedules a retry with backoff. Permanent
// errors and exhausted jobs are parked with failed_at set.
func (q *SQLQueue) Nack(ctx context.Context, d Delivery, cause error) error {
	now := q.now()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	var (
		res sql.Result
		err error
	)
	if IsPermanent(cause) || d.Attempt >= q.opts.MaxAttempts {
		res, err = q.db.ExecContext(ctx,
			`UPDATE jobs SET failed_at = $1, locked_until = 0, last_error = $2
			 WHERE id = $3 AND attempts = $4 AND failed_at IS NULL`,
			now.UnixMilli(), msg, d.ID, d.Attempt)
	} else {
		res, err = q.db.ExecContext(ctx,
			`UPDATE jobs SET available_at = $1, locked_until = 0, last_error = $2
			 WHERE id = $3 AND attempts = $4 AND failed_at IS NULL`,
			now.Add(q.backoff(d.Attempt)).UnixMilli(), msg, d.ID, d.Attempt)
	}
	if err != nil {
		return fmt.Errorf("failed to nack job: %w", err)
	}
	return settled(res)
}

func settled(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (q *SQLQueue) backoff(attempt int) time.Duration {
	d := time.Duration(attempt*attempt) * time.Second
	if d > q.opts.VisibilityTimeout {
		d = q.opts.VisibilityTimeout
	}
	return d
}

// Failed returns the number of parked jobs.
func (q *SQLQueue) Failed(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM jobs WHERE queue = $1 AND failed_at IS NOT NULL`, q.opts.Name)
	return n, err
}

func (q *SQLQueue) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			q.poll(ctx, handler)
			return nil
		})
	}
	return g.Wait()
}

func (q *SQLQueue) poll(ctx context.Context, handler Handler) {
	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		d, ok, err := q.Claim(ctx)
		if err != nil && ctx.Err() == nil {
			slog.Error("queue claim failed", "queue", q.opts.Name, "error", err)
		}
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		q.deliver(ctx, d, handler)
	}
}

func (q *SQLQueue) deliver(ctx context.Context, d Delivery, handler Handler) {
	herr := handler(ctx, d)

	// settle the job even when shutdown cancelled the handler
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var err error
	if herr == nil {
		err = q.Ack(settleCtx, d)
	} else {
		err = q.Nack(settleCtx, d, herr)
	}

	if errors.Is(err, ErrLeaseLost) {
		slog.Warn("queue lease lost before settle", "queue", q.opts.Name, "job_id", d.ID, "attempt", d.Attempt)
		return
	}
	if err != nil {
		slog.Error("queue settle failed", "queue", q.opts.Name, "job_id", d.ID, "error", err)
	}
}

func (q *SQLQueue) Close() error {
	return nil
}
