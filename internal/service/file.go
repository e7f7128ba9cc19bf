package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ideafiles/internal/logging"
	"ideafiles/internal/model"
	"ideafiles/internal/ownership"
	"ideafiles/internal/repository"
	"ideafiles/internal/storage"
)

const defaultContentType = "application/octet-stream"

const (
	opAdd         = "add"
	opList        = "list"
	opGet         = "get"
	opGetWithBody = "get_with_body"
	opRemove      = "remove"
)

// FileUpload is the caller-supplied part of a new attachment.
// Size must be the exact byte length of Content.
type FileUpload struct {
	FileName    string    `validate:"required"`
	ContentType string
	Size        int64     `validate:"gte=0"`
	Content     io.Reader `validate:"required"`
}

// FileService keeps idea file metadata and stored bytes consistent.
type FileService interface {
	// AddFile authorizes the caller, records the metadata and uploads the bytes.
	// The metadata row is rolled back if the upload fails.
	AddFile(ctx context.Context, ideaID int64, upload FileUpload, credential string) (*model.FileRecord, error)

	// GetFileListByIdeaID lists the metadata of every file attached to an idea.
	GetFileListByIdeaID(ctx context.Context, ideaID int64) ([]model.FileRecord, error)

	// GetByFileID looks up metadata only. A missing file is (nil, false, nil).
	GetByFileID(ctx context.Context, id int64) (*model.FileRecord, bool, error)

	// GetFileWithBodyByID returns the metadata with Body filled from the object store.
	GetFileWithBodyByID(ctx context.Context, id int64) (*model.FileRecord, error)

	// RemoveFile authorizes the caller and deletes the metadata and the bytes.
	// The metadata delete is rolled back if the object delete fails.
	RemoveFile(ctx context.Context, id int64, credential string) error
}

// Option customizes a FileService.
type Option func(*fileService)

// WithLogger sets the logger used for lifecycle events. Defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(s *fileService) { s.log = l }
}

// WithMetrics enables operation counters.
func WithMetrics(m *Metrics) Option {
	return func(s *fileService) { s.metrics = m }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *fileService) { s.tracer = t }
}

type fileService struct {
	store   storage.Storage
	txm     repository.TxManager
	owners  ownership.Validator
	bucket  string
	log     logging.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewFileService constructs a FileService storing bytes in bucket.
func NewFileService(store storage.Storage, txm repository.TxManager, owners ownership.Validator, bucket string, opts ...Option) FileService {
	s := &fileService{
		store:  store,
		txm:    txm,
		owners: owners,
		bucket: bucket,
		log:    logging.Nop(),
		tracer: otel.Tracer("ideafiles/internal/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *fileService) AddFile(ctx context.Context, ideaID int64, upload FileUpload, credential string) (_ *model.FileRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "FileService.AddFile", trace.WithAttributes(attribute.Int64("idea.id", ideaID)))
	defer func() { s.finish(span, opAdd, err) }()

	if credential == "" {
		return nil, fmt.Errorf("%w: credential is required", ErrOwnershipDenied)
	}
	if ideaID <= 0 {
		return nil, fmt.Errorf("%w: idea id is required", ErrInvalidRequest)
	}
	if err := s.authorize(ctx, ideaID, credential); err != nil {
		return nil, err
	}
	if err := validate.Struct(upload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin metadata transaction: %w", err)
	}

	created, err := tx.Files().Create(ctx, &model.FileRecord{
		IdeaID:      ideaID,
		FileName:    upload.FileName,
		ContentType: contentType,
		FileSize:    upload.Size,
	})
	if err != nil {
		s.rollback(ctx, tx, opAdd)
		return nil, fmt.Errorf("insert file metadata: %w", err)
	}

	key := created.ObjectKey()
	span.SetAttributes(attribute.Int64("file.id", created.ID), attribute.String("object.key", key))

	_, err = s.store.Put(ctx, s.bucket, key, upload.Content, storage.PutObjectOptions{
		Size:        upload.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"idea-id": strconv.FormatInt(ideaID, 10),
			"file-id": strconv.FormatInt(created.ID, 10),
		},
	})
	if err != nil {
		s.rollback(ctx, tx, opAdd)
		return nil, fmt.Errorf("%w: put object %s: %w", ErrStorageOperationFailed, key, err)
	}

	if err := tx.Commit(); err != nil {
		// The row never became visible; drop the bytes written for it.
		if delErr := s.store.Delete(ctx, s.bucket, key); delErr != nil && !errors.Is(delErr, storage.ErrObjectNotFound) {
			s.log.Error(ctx, "orphan_object_cleanup_failed", "key", key, "error", delErr.Error())
		}
		s.metrics.compensated(opAdd)
		return nil, fmt.Errorf("commit file metadata: %w", err)
	}

	s.log.Info(ctx, "file_added", "idea_id", ideaID, "file_id", created.ID, "size", created.FileSize)
	return created, nil
}

func (s *fileService) GetFileListByIdeaID(ctx context.Context, ideaID int64) (_ []model.FileRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "FileService.GetFileListByIdeaID", trace.WithAttributes(attribute.Int64("idea.id", ideaID)))
	defer func() { s.finish(span, opList, err) }()

	if ideaID <= 0 {
		return []model.FileRecord{}, nil
	}
	files, err := s.txm.Files().ListByIdeaID(ctx, ideaID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if files == nil {
		files = []model.FileRecord{}
	}
	return files, nil
}

func (s *fileService) GetByFileID(ctx context.Context, id int64) (_ *model.FileRecord, _ bool, err error) {
	ctx, span := s.tracer.Start(ctx, "FileService.GetByFileID", trace.WithAttributes(attribute.Int64("file.id", id)))
	defer func() { s.finish(span, opGet, err) }()

	rec, err := s.find(ctx, id)
	if errors.Is(err, ErrFileNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *fileService) GetFileWithBodyByID(ctx context.Context, id int64) (_ *model.FileRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "FileService.GetFileWithBodyByID", trace.WithAttributes(attribute.Int64("file.id", id)))
	defer func() { s.finish(span, opGetWithBody, err) }()

	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := s.store.Get(ctx, s.bucket, rec.ObjectKey(), rec.FileSize)
	if err != nil {
		return nil, fmt.Errorf("%w: get object %s: %w", ErrStorageOperationFailed, rec.ObjectKey(), err)
	}
	rec.Body = body
	return rec, nil
}

func (s *fileService) RemoveFile(ctx context.Context, id int64, credential string) (err error) {
	ctx, span := s.tracer.Start(ctx, "FileService.RemoveFile", trace.WithAttributes(attribute.Int64("file.id", id)))
	defer func() { s.finish(span, opRemove, err) }()

	rec, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if credential == "" {
		return fmt.Errorf("%w: credential is required", ErrOwnershipDenied)
	}
	if err := s.authorize(ctx, rec.IdeaID, credential); err != nil {
		return err
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin metadata transaction: %w", err)
	}

	deleted, err := tx.Files().Delete(ctx, id)
	if err != nil {
		s.rollbackQuiet(ctx, tx)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: id %d", ErrFileNotFound, id)
		}
		return fmt.Errorf("delete file metadata: %w", err)
	}

	key := deleted.ObjectKey()
	if err := s.store.Delete(ctx, s.bucket, key); err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.rollback(ctx, tx, opRemove)
			return fmt.Errorf("%w: delete object %s: %w", ErrStorageOperationFailed, key, err)
		}
		s.log.Warn(ctx, "object_already_absent", "file_id", id, "key", key)
	}

	if err := tx.Commit(); err != nil {
		s.log.Error(ctx, "file_remove_commit_failed", "file_id", id, "key", key, "error", err.Error())
		return fmt.Errorf("commit file deletion: %w", err)
	}

	s.log.Info(ctx, "file_removed", "idea_id", deleted.IdeaID, "file_id", id)
	return nil
}

// find loads metadata outside any transaction; a miss becomes ErrFileNotFound.
func (s *fileService) find(ctx context.Context, id int64) (*model.FileRecord, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrFileNotFound, id)
	}
	rec, err := s.txm.Files().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrFileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find file: %w", err)
	}
	return rec, nil
}

func (s *fileService) authorize(ctx context.Context, ideaID int64, credential string) error {
	owner, err := s.owners.IsOwner(ctx, ideaID, credential)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOwnershipCheckFailed, err)
	}
	if !owner {
		return fmt.Errorf("%w: idea %d", ErrOwnershipDenied, ideaID)
	}
	return nil
}

// rollback undoes the metadata mutation of op after a later step failed.
func (s *fileService) rollback(ctx context.Context, tx repository.Tx, op string) {
	s.metrics.compensated(op)
	s.rollbackQuiet(ctx, tx)
}

func (s *fileService) rollbackQuiet(ctx context.Context, tx repository.Tx) {
	if err := tx.Rollback(); err != nil {
		s.log.Error(ctx, "metadata_rollback_failed", "error", err.Error())
	}
}

func (s *fileService) finish(span trace.Span, op string, err error) {
	s.metrics.observe(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
	}
	span.End()
}
