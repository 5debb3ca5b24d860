package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/templui/filesmanager/internal/access"
	"github.com/templui/filesmanager/internal/model"
	"github.com/templui/filesmanager/internal/repository"
	"github.com/templui/filesmanager/internal/storage"
	"github.com/templui/filesmanager/internal/validation"
)

// PageSize is the fixed listing window
const PageSize = 20

// JobPublisher hands thumbnail jobs to the queue
type JobPublisher interface {
	Publish(ctx context.Context, body []byte) error
}

type FileService struct {
	fileRepo       repository.FileRepository
	storage        storage.Storage
	jobs           JobPublisher
	maxUploadBytes int64
}

func NewFileService(fileRepo repository.FileRepository, storage storage.Storage, jobs JobPublisher, maxUploadBytes int64) *FileService {
	return &FileService{
		fileRepo:       fileRepo,
		storage:        storage,
		jobs:           jobs,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadInput is a create request as received from the client.
// Data is base64 and ignored for folders.
type UploadInput struct {
	Name     string
	Type     string
	ParentID model.ParentRef
	IsPublic bool
	Data     string
}

// Upload validates the request, writes the blob for files and images, then
// inserts the record. Images additionally get a thumbnail job.
func (s *FileService) Upload(ctx context.Context, owner model.OwnerID, in UploadInput) (*model.File, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name", "Missing name")
	}
	name, err := validation.NormalizeName(in.Name)
	if err != nil {
		return nil, invalid("name", err.Error())
	}

	fileType := model.FileType(in.Type)
	if !fileType.Valid() {
		return nil, invalid("type", "Missing type")
	}

	if fileType.HasContent() && in.Data == "" {
		return nil, invalid("data", "Missing data")
	}

	var content []byte
	if fileType.HasContent() {
		content, err = validation.DecodeData(in.Data, s.maxUploadBytes)
		if errors.Is(err, validation.ErrDataTooLarge) {
			return nil, invalid("data", "Data too large")
		}
		if err != nil {
			return nil, invalid("data", "Invalid data")
		}
	}

	if !in.ParentID.IsRoot() {
		// parent lookup is global, not owner-scoped
		parent, err := s.fileRepo.ByID(ctx, in.ParentID.ID())
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, invalid("parentId", "Parent not found")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get parent: %w", err)
		}
		if !parent.IsFolder() {
			return nil, invalid("parentId", "Parent is not a folder")
		}
	}

	file := &model.File{
		OwnerID:  owner,
		Name:     name,
		Type:     fileType,
		IsPublic: in.IsPublic,
		ParentID: in.ParentID,
	}

	if fileType.HasContent() {
		file.LocalPath = s.storage.NewPath()

		err = s.storage.Save(ctx, file.LocalPath, bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("failed to save file: %w", err)
		}
	}

	err = s.fileRepo.Create(ctx, file)
	if err != nil {
		if file.LocalPath != "" {
			// If DB insert fails, try to cleanup the uploaded file
			delErr := s.storage.Delete(ctx, file.LocalPath)
			if delErr != nil {
				slog.Error("failed to delete file from storage during cleanup", "error", delErr, "path", file.LocalPath)
			}
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	if fileType == model.FileTypeImage {
		err = s.EnqueueThumbnails(ctx, file)
		if err != nil {
			// record stays; filesctl thumbnails enqueue repairs it
			slog.Error("failed to enqueue thumbnail job", "error", err, "file_id", file.ID)
		}
	}

	return file, nil
}

// EnqueueThumbnails publishes a derivative job for an image record.
func (s *FileService) EnqueueThumbnails(ctx context.Context, file *model.File) error {
	if file.Type != model.FileTypeImage {
		return fmt.Errorf("file %s is a %s, not an image", file.ID, file.Type)
	}

	body, err := json.Marshal(model.ThumbnailJob{FileID: file.ID, OwnerID: file.OwnerID})
	if err != nil {
		return err
	}

	return s.jobs.Publish(ctx, body)
}

// EnqueueThumbnailsByID looks an image up by id alone and publishes its job.
func (s *FileService) EnqueueThumbnailsByID(ctx context.Context, id model.FileID) (*model.File, error) {
	file, err := s.fileRepo.ByID(ctx, id)
	if errors.Is(err, repository.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	err = s.EnqueueThumbnails(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue thumbnails: %w", err)
	}
	return file, nil
}

// Show returns one of owner's records.
func (s *FileService) Show(ctx context.Context, owner model.OwnerID, id model.FileID) (*model.File, error) {
	file, err := s.fileRepo.ByID(ctx, id)
	if errors.Is(err, repository.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	// foreign records look absent
	if !access.CanManage(file, &owner) {
		return nil, ErrNotFound
	}
	return file, nil
}

// List returns page (zero-indexed) of owner's records under parent.
func (s *FileService) List(ctx context.Context, owner model.OwnerID, parent model.ParentRef, page int) ([]*model.File, error) {
	if page < 0 {
		page = 0
	}

	files, err := s.fileRepo.ListByParent(ctx, owner, parent, page*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// SetPublic changes the visibility of one of owner's records.
func (s *FileService) SetPublic(ctx context.Context, owner model.OwnerID, id model.FileID, isPublic bool) (*model.File, error) {
	file, err := s.fileRepo.SetPublic(ctx, id, owner, isPublic)
	if errors.Is(err, repository.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	return file, nil
}

// Content is an open blob ready to stream. Callers must close Body.
type Content struct {
	Body        io.ReadCloser
	ContentType string
	File        *model.File
}

type peekedBody struct {
	io.Reader
	io.Closer
}

// Content opens the bytes of a record, or of one of its derivatives when
// size names a thumbnail width. requester is nil for anonymous requests.
// Records the requester may not read are reported as not found.
func (s *FileService) Content(ctx context.Context, requester *model.OwnerID, id model.FileID, size string) (*Content, error) {
	file, err := s.fileRepo.ByID(ctx, id)
	if errors.Is(err, repository.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	if !access.CanRead(file, requester) {
		return nil, ErrNotFound
	}

	if file.IsFolder() {
		return nil, ErrFolderHasNoContent
	}

	path := file.LocalPath
	derivative := false
	if file.Type == model.FileTypeImage {
		if width, ok := model.ParseThumbnailWidth(size); ok {
			path = model.DerivativePath(file.LocalPath, width)
			derivative = true
		}
	}

	if derivative {
		// not generated until the worker has run
		exists, err := s.storage.Exists(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to check derivative: %w", err)
		}
		if !exists {
			slog.Debug("derivative not ready", "file_id", file.ID, "size", size)
			return nil, ErrNotFound
		}
	}

	rc, err := s.storage.Open(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	if !derivative {
		return &Content{
			Body:        rc,
			ContentType: validation.ContentType(file.Name),
			File:        file,
		}, nil
	}

	// derivatives may be re-encoded, so their type comes from the bytes
	br := bufio.NewReaderSize(rc, 512)
	head, _ := br.Peek(512)

	return &Content{
		Body:        peekedBody{Reader: br, Closer: rc},
		ContentType: validation.SniffContentType(head),
		File:        file,
	}, nil
}
