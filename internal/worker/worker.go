package worker

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/templui/filesmanager/internal/model"
	"github.com/templui/filesmanager/internal/queue"
	"github.com/templui/filesmanager/internal/thumbnail"
)

var jobsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "files_thumbnail_jobs_total",
		Help: "Thumbnail jobs handled by the worker, by result.",
	},
	[]string{"result"},
)

// Worker pulls thumbnail jobs from the queue with a fixed number of
// concurrent handlers. Failed jobs never stop the pool.
type Worker struct {
	queue       queue.Queue
	processor   *ThumbnailProcessor
	concurrency int
}

func New(q queue.Queue, processor *ThumbnailProcessor, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{queue: q, processor: processor, concurrency: concurrency}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("worker started", "concurrency", w.concurrency)
	err := w.queue.Consume(ctx, w.concurrency, w.Handle)
	slog.Info("worker stopped")
	return err
}

// Handle decodes and processes one delivery. Jobs that can never succeed
// are marked permanent so the queue stops retrying them.
func (w *Worker) Handle(ctx context.Context, d queue.Delivery) error {
	start := time.Now()

	var job model.ThumbnailJob
	err := json.Unmarshal(d.Body, &job)
	if err != nil {
		jobsTotal.WithLabelValues("invalid").Inc()
		slog.Error("thumbnail job malformed", "job_id", d.ID, "error", err)
		return queue.Permanent(err)
	}

	err = w.processor.Process(ctx, job)
	if err != nil {
		permanent := errors.Is(err, ErrMissingFileID) ||
			errors.Is(err, ErrMissingOwnerID) ||
			errors.Is(err, ErrFileNotFound) ||
			errors.Is(err, ErrNotAnImage) ||
			errors.Is(err, image.ErrFormat) ||
			errors.Is(err, thumbnail.ErrTooLarge)

		if permanent {
			jobsTotal.WithLabelValues("rejected").Inc()
			slog.Warn("thumbnail job rejected", "job_id", d.ID, "file_id", job.FileID, "error", err)
			return queue.Permanent(err)
		}

		jobsTotal.WithLabelValues("failed").Inc()
		slog.Error("thumbnail job failed", "job_id", d.ID, "file_id", job.FileID, "attempt", d.Attempt, "error", err)
		return err
	}

	jobsTotal.WithLabelValues("completed").Inc()
	slog.Info("thumbnail job completed", "job_id", d.ID, "file_id", job.FileID, "duration", time.Since(start))
	return nil
}
