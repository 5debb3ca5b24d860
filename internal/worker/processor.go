// Package worker generates image derivatives for queued thumbnail jobs.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/templui/filesmanager/internal/model"
	"github.com/templui/filesmanager/internal/repository"
	"github.com/templui/filesmanager/internal/storage"
	"github.com/templui/filesmanager/internal/thumbnail"
)

var (
	ErrMissingFileID  = errors.New("Missing fileId")
	ErrMissingOwnerID = errors.New("Missing userId")
	ErrFileNotFound   = errors.New("File not found")
	ErrNotAnImage     = errors.New("File is not an image")
)

var derivativeDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "files_thumbnail_duration_seconds",
		Help:    "Time to generate and store one image derivative.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"width"},
)

// ThumbnailProcessor turns one job into the derivatives of its image.
type ThumbnailProcessor struct {
	fileRepo repository.FileRepository
	storage  storage.Storage
	widths   []int
}

func NewThumbnailProcessor(fileRepo repository.FileRepository, storage storage.Storage) *ThumbnailProcessor {
	return &ThumbnailProcessor{
		fileRepo: fileRepo,
		storage:  storage,
		widths:   model.ThumbnailWidths,
	}
}

// Process writes every derivative of the job's image and returns once all
// writes have finished. The first failure is returned; derivatives that were
// written stay and are overwritten by the retry.
func (p *ThumbnailProcessor) Process(ctx context.Context, job model.ThumbnailJob) error {
	if job.FileID == "" {
		return ErrMissingFileID
	}
	if job.OwnerID == "" {
		return ErrMissingOwnerID
	}

	file, err := p.fileRepo.ByIDAndOwner(ctx, job.FileID, job.OwnerID)
	if errors.Is(err, repository.ErrFileNotFound) {
		return ErrFileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	if file.Type != model.FileTypeImage || file.LocalPath == "" {
		return ErrNotAnImage
	}

	original, err := p.readOriginal(ctx, file.LocalPath)
	if err != nil {
		return err
	}

	// decoded once; each width only reads img
	img, format, err := thumbnail.Decode(original)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, width := range p.widths {
		g.Go(func() error {
			return p.writeDerivative(gctx, file.LocalPath, img, format, width)
		})
	}
	return g.Wait()
}

func (p *ThumbnailProcessor) readOriginal(ctx context.Context, path string) ([]byte, error) {
	rc, err := p.storage.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open original: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read original: %w", err)
	}
	return data, nil
}

func (p *ThumbnailProcessor) writeDerivative(ctx context.Context, localPath string, img image.Image, format string, width int) error {
	start := time.Now()

	var buf bytes.Buffer
	err := thumbnail.Encode(&buf, img, format, width)
	if err != nil {
		return fmt.Errorf("failed to resize to %d: %w", width, err)
	}

	err = p.storage.Save(ctx, model.DerivativePath(localPath, width), &buf)
	if err != nil {
		return fmt.Errorf("failed to save %d derivative: %w", width, err)
	}

	derivativeDuration.WithLabelValues(fmt.Sprint(width)).Observe(time.Since(start).Seconds())
	return nil
}
