package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/filesmanager/internal/model"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

// FileRepository persists file records. Every method touches a single
// record or a single filtered window; no multi-record transactions.
type FileRepository interface {
	// Create inserts file and assigns ID and CreatedAt when unset
	Create(ctx context.Context, file *model.File) error
	// ByID looks a record up by id alone
	ByID(ctx context.Context, id model.FileID) (*model.File, error)
	// ByIDAndOwner looks a record up by id, restricted to owner
	ByIDAndOwner(ctx context.Context, id model.FileID, owner model.OwnerID) (*model.File, error)
	// ListByParent returns a skip/limit window of owner's records under parent
	ListByParent(ctx context.Context, owner model.OwnerID, parent model.ParentRef, skip, limit int) ([]*model.File, error)
	// SetPublic updates the visibility of owner's record and returns it as stored
	SetPublic(ctx context.Context, id model.FileID, owner model.OwnerID, isPublic bool) (*model.File, error)
	Count(ctx context.Context) (int64, error)
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *model.File) error {
	if file.ID == "" {
		file.ID = model.FileID(uuid.New().String())
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO files (id, user_id, name, type, is_public, parent_id, local_path, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		file.ID,
		file.OwnerID,
		file.Name,
		file.Type,
		file.IsPublic,
		file.ParentID,
		file.LocalPath,
		file.CreatedAt,
	)

	return err
}

func (r *fileRepository) ByID(ctx context.Context, id model.FileID) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE id = $1`

	err := r.db.GetContext(ctx, file, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

func (r *fileRepository) ByIDAndOwner(ctx context.Context, id model.FileID, owner model.OwnerID) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, file, query, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

// ListByParent pages in insertion order. Concurrent inserts can shift
// windows between two calls; one query is always a consistent snapshot.
func (r *fileRepository) ListByParent(ctx context.Context, owner model.OwnerID, parent model.ParentRef, skip, limit int) ([]*model.File, error) {
	files := []*model.File{}
	query := `SELECT * FROM files WHERE user_id = $1 AND parent_id = $2
	          ORDER BY created_at, id LIMIT $3 OFFSET $4`

	err := r.db.SelectContext(ctx, &files, query, owner, parent, limit, skip)
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (r *fileRepository) SetPublic(ctx context.Context, id model.FileID, owner model.OwnerID, isPublic bool) (*model.File, error) {
	file := &model.File{}
	query := `UPDATE files SET is_public = $1 WHERE id = $2 AND user_id = $3 RETURNING *`

	err := r.db.GetContext(ctx, file, query, isPublic, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

func (r *fileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM files`)
	return n, err
}
