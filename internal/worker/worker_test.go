package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/filesmanager/internal/db/dbtest"
	"github.com/templui/filesmanager/internal/model"
	"github.com/templui/filesmanager/internal/queue"
	"github.com/templui/filesmanager/internal/repository"
	"github.com/templui/filesmanager/internal/storage"
	"github.com/templui/filesmanager/internal/thumbnail"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fixture struct {
	repo    repository.FileRepository
	storage *storage.LocalStorage
	image   *model.File
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := repository.NewFileRepository(dbtest.NewSQLite(t))

	img := &model.File{OwnerID: "u1", Name: "cat.png", Type: model.FileTypeImage, LocalPath: store.NewPath()}
	require.NoError(t, store.Save(ctx, img.LocalPath, bytes.NewReader(pngBytes(t, 800, 400))))
	require.NoError(t, repo.Create(ctx, img))

	return &fixture{repo: repo, storage: store, image: img}
}

func TestProcess_WritesEveryDerivative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewThumbnailProcessor(f.repo, f.storage)

	job := model.ThumbnailJob{FileID: f.image.ID, OwnerID: "u1"}
	require.NoError(t, p.Process(ctx, job))

	// Process returned, so every write is visible now
	for _, width := range model.ThumbnailWidths {
		rc, err := f.storage.Open(ctx, model.DerivativePath(f.image.LocalPath, width))
		require.NoError(t, err, "width %d", width)
		cfg, err := png.DecodeConfig(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, width, cfg.Width)
		assert.Equal(t, width/2, cfg.Height)
	}

	// re-runs overwrite in place
	require.NoError(t, p.Process(ctx, job))
}

func TestProcess_RejectsBadJobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewThumbnailProcessor(f.repo, f.storage)

	folder := &model.File{OwnerID: "u1", Name: "Photos", Type: model.FileTypeFolder}
	require.NoError(t, f.repo.Create(ctx, folder))

	assert.ErrorIs(t, p.Process(ctx, model.ThumbnailJob{OwnerID: "u1"}), ErrMissingFileID)
	assert.ErrorIs(t, p.Process(ctx, model.ThumbnailJob{FileID: f.image.ID}), ErrMissingOwnerID)
	assert.ErrorIs(t, p.Process(ctx, model.ThumbnailJob{FileID: f.image.ID, OwnerID: "u2"}), ErrFileNotFound)
	assert.ErrorIs(t, p.Process(ctx, model.ThumbnailJob{FileID: "missing", OwnerID: "u1"}), ErrFileNotFound)
	assert.ErrorIs(t, p.Process(ctx, model.ThumbnailJob{FileID: folder.ID, OwnerID: "u1"}), ErrNotAnImage)
}

// failingStorage refuses writes whose path ends with suffix
type failingStorage struct {
	storage.Storage
	suffix string
}

func (s failingStorage) Save(ctx context.Context, path string, r io.Reader) error {
	if strings.HasSuffix(path, s.suffix) {
		return errors.New("disk full")
	}
	return s.Storage.Save(ctx, path, r)
}

func TestProcess_SurfacesWriteFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewThumbnailProcessor(f.repo, failingStorage{Storage: f.storage, suffix: "_250"})

	err := p.Process(ctx, model.ThumbnailJob{FileID: f.image.ID, OwnerID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "250")
}

func TestProcess_UndecodableImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.storage.Save(ctx, f.image.LocalPath, strings.NewReader("not a png")))

	p := NewThumbnailProcessor(f.repo, f.storage)
	err := p.Process(ctx, model.ThumbnailJob{FileID: f.image.ID, OwnerID: "u1"})
	assert.ErrorIs(t, err, image.ErrFormat)
}

// oversizedPNG is a valid PNG whose header declares w x h pixels; the pixel
// data is that of a 1x1 image, so it is tiny on disk.
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc after 13 data bytes
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestProcess_RefusesOversizedImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.storage.Save(ctx, f.image.LocalPath, bytes.NewReader(oversizedPNG(t, 100_000, 100_000))))

	p := NewThumbnailProcessor(f.repo, f.storage)
	err := p.Process(ctx, model.ThumbnailJob{FileID: f.image.ID, OwnerID: "u1"})
	require.ErrorIs(t, err, thumbnail.ErrTooLarge)

	for _, width := range model.ThumbnailWidths {
		ok, err := f.storage.Exists(ctx, model.DerivativePath(f.image.LocalPath, width))
		require.NoError(t, err)
		assert.False(t, ok, "width %d", width)
	}

	w := New(nil, p, 1)
	err = w.Handle(ctx, queue.Delivery{ID: "9", Body: []byte(`{"fileId":"` + string(f.image.ID) + `","userId":"u1"}`)})
	assert.True(t, queue.IsPermanent(err))
}

func TestHandle_MarksUnrecoverableJobsPermanent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := New(nil, NewThumbnailProcessor(f.repo, f.storage), 1)

	err := w.Handle(ctx, queue.Delivery{ID: "1", Body: []byte(`not json`)})
	assert.True(t, queue.IsPermanent(err))

	err = w.Handle(ctx, queue.Delivery{ID: "2", Body: []byte(`{"userId":"u1"}`)})
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, ErrMissingFileID)

	err = w.Handle(ctx, queue.Delivery{ID: "3", Body: []byte(`{"fileId":"` + string(f.image.ID) + `","userId":"u1"}`)})
	assert.NoError(t, err)

	// transient failures stay retryable
	w = New(nil, NewThumbnailProcessor(f.repo, failingStorage{Storage: f.storage, suffix: "_100"}), 1)
	err = w.Handle(ctx, queue.Delivery{ID: "4", Body: []byte(`{"fileId":"` + string(f.image.ID) + `","userId":"u1"}`)})
	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err))
}

func TestWorker_RunDrainsSQLQueue(t *testing.T) {
	f := newFixture(t)
	q := queue.NewSQLQueue(dbtest.NewSQLite(t), queue.SQLOptions{Name: "fileQueue", PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Publish(ctx, []byte(`{"fileId":"`+string(f.image.ID)+`","userId":"u1"}`)))

	w := New(q, NewThumbnailProcessor(f.repo, f.storage), 2)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		for _, width := range model.ThumbnailWidths {
			ok, err := f.storage.Exists(context.Background(), model.DerivativePath(f.image.LocalPath, width))
			if err != nil || !ok {
				return false
			}
		}
		return true
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}
