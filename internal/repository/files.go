package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/entity"
)

type FileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.UploadedFile, error)
	GetByHash(ctx context.Context, hash []byte) (*entity.UploadedFile, error)
	Create(ctx context.Context, f *entity.UploadedFile) error
	// UpsertByHash returns the stored row and true when the content was already uploaded.
	UpsertByHash(ctx context.Context, f *entity.UploadedFile) (*entity.UploadedFile, bool, error)
	SetMetadata(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error
}

type fileRepo struct {
	store
}

var fileColumns = columnNames(UploadedFilesColumns)

func (r *fileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.UploadedFile, error) {
	return r.get(ctx, entsql.EQ("id", id))
}

func (r *fileRepo) GetByHash(ctx context.Context, hash []byte) (*entity.UploadedFile, error) {
	return r.get(ctx, entsql.EQ("content_hash", hash))
}

func (r *fileRepo) get(ctx context.Context, p *entsql.Predicate) (*entity.UploadedFile, error) {
	b := r.builder()
	query, args := b.Select(fileColumns...).
		From(b.Table(filesTable)).
		Where(p).
		Limit(1).
		Query()

	var (
		f        entity.UploadedFile
		metadata []byte
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&f.ID, &f.SourcePath, &f.Filename, &f.Format, &f.FileSize, &f.ContentHash, &metadata, &f.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundErrorf("uploaded file not found")
	}
	if err != nil {
		r.logger.Error("failed to get uploaded file", "error", err)
		return nil, common.DatabaseError("get uploaded file", err)
	}
	if len(metadata) > 0 {
		f.Metadata = metadata
	}
	return &f, nil
}

func (r *fileRepo) Create(ctx context.Context, f *entity.UploadedFile) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	var metadata any
	if len(f.Metadata) > 0 {
		metadata = string(f.Metadata)
	}
	ins := r.builder().Insert(filesTable).
		Columns(fileColumns...).
		Values(f.ID, f.SourcePath, f.Filename, f.Format, f.FileSize, f.ContentHash, metadata, f.UploadedAt)
	if err := r.exec(ctx, ins); err != nil {
		r.logger.Error("failed to create uploaded file", "source_path", f.SourcePath, "filename", f.Filename, "error", err)
		return common.DatabaseError("create uploaded file", err)
	}
	return nil
}

func (r *fileRepo) UpsertByHash(ctx context.Context, f *entity.UploadedFile) (*entity.UploadedFile, bool, error) {
	existing, err := r.GetByHash(ctx, f.ContentHash)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}
	if err := r.Create(ctx, f); err != nil {
		// a concurrent upload of the same content may have won the insert
		if existing, getErr := r.GetByHash(ctx, f.ContentHash); getErr == nil {
			return existing, true, nil
		}
		return nil, false, err
	}
	return f, false, nil
}

func (r *fileRepo) SetMetadata(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error {
	upd := r.builder().Update(filesTable).
		Set("metadata", string(metadata)).
		Where(entsql.EQ("id", id))
	if err := r.exec(ctx, upd); err != nil {
		r.logger.Error("failed to set file metadata", "file_id", id, "error", err)
		return common.DatabaseError("set file metadata", err)
	}
	return nil
}
