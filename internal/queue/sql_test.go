package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/filesmanager/internal/db/dbtest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestQueue(t *testing.T) (*SQLQueue, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	q := NewSQLQueue(dbtest.NewSQLite(t), SQLOptions{
		Name:              "fileQueue",
		VisibilityTimeout: time.Minute,
		PollInterval:      10 * time.Millisecond,
		MaxAttempts:       3,
	})
	q.now = clock.Now
	return q, clock
}

func TestSQLQueue_ClaimAck(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	require.NoError(t, q.Publish(ctx, []byte(`{"fileId":"f1","userId":"u1"}`)))

	d, ok, err := q.Claim(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"fileId":"f1","userId":"u1"}`, string(d.Body))
	assert.Equal(t, 1, d.Attempt)

	// leased: invisible to a second consumer
	_, ok, err = q.Claim(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, q.Ack(ctx, d))

	_, ok, err = q.Claim(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLQueue_RedeliversAfterLeaseExpires(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQueue(t)

	require.NoError(t, q.Publish(ctx, []byte(`{}`)))

	first, ok, err := q.Claim(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// consumer crashed without ack or nack
	clock.Advance(time.Minute + time.Millisecond)

	second, ok, err := q.Claim(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Attempt)
}

func TestSQLQueue_StaleSettleCannotTouchNewLease(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQueue(t)

	require.NoError(t, q.Publish(ctx, []byte(`{}`)))

	stale, ok, err := q.Claim(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// the first consumer stalls past its lease; a second one takes over
	clock.Advance(2 * time.Minute)
	current, ok, err := q.Claim(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, current.Attempt)

	// late settles from the first consumer are rejected
	assert.ErrorIs(t, q.Nack(ctx, stale, errors.New("slow")), ErrLeaseLost)
	clock.Advance(2 * time.Second)
	_, ok, err = q.Claim(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "job must stay leased to the second consumer")

	assert.ErrorIs(t, q.Ack(ctx, stale), ErrLeaseLost)

	// the current holder still owns the row
	require.NoError(t, q.Ack(ctx, current))
	assert.ErrorIs(t, q.Ack(ctx, current), ErrLeaseLost)
}

func TestSQLQueue_NackRetriesWithBackoffThenParks(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQueue(t)

	require.NoError(t, q.Publish(ctx, []byte(`{}`)))

	for attempt := 1; attempt <= 3; attempt++ {
		d, ok, err := q.Claim(ctx)
		require.NoError(t, err)
		require.True(t, ok, "attempt %d", attempt)
		assert.Equal(t, attempt, d.Attempt)

		require.NoError(t, q.Nack(ctx, d, errors.New("boom")))

		// not visible again until the backoff elapses
		_, ok, err = q.Claim(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		clock.Advance(time.Minute)
	}

	_, ok, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	failed, err := q.Failed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)
}

func TestSQLQueue_PermanentErrorParksImmediately(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQueue(t)

	require.NoError(t, q.Publish(ctx, []byte(`{}`)))

	d, ok, err := q.Claim(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, q.Nack(ctx, d, Permanent(errors.New("Missing fileId"))))
	clock.Advance(time.Hour)

	_, ok, err = q.Claim(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	failed, err := q.Failed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)
}

func TestSQLQueue_ConsumeHandlesEveryJob(t *testing.T) {
	q := NewSQLQueue(dbtest.NewSQLite(t), SQLOptions{
		Name:         "fileQueue",
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const jobs = 10
	for i := 0; i < jobs; i++ {
		require.NoError(t, q.Publish(ctx, []byte(`{}`)))
	}

	var handled atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, 3, func(ctx context.Context, d Delivery) error {
			if handled.Add(1) == jobs {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("consume did not finish")
	}

	assert.Equal(t, int32(jobs), handled.Load())
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	base := errors.New("bad payload")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}
