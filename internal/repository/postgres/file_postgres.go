package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ideafiles/internal/database"
	"ideafiles/internal/model"
	"ideafiles/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// It runs against either the pool or a transaction and contains no business logic.
type FilePostgres struct {
	db database.DBTX
}

// NewFilePostgres creates a new FilePostgres repository bound to db.
func NewFilePostgres(db database.DBTX) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(rs rowScanner) (*model.FileRecord, error) {
	var f model.FileRecord
	if err := rs.Scan(
		&f.ID,
		&f.IdeaID,
		&f.FileName,
		&f.ContentType,
		&f.FileSize,
		&f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a new file row and returns it with the generated id.
func (r *FilePostgres) Create(ctx context.Context, file *model.FileRecord) (*model.FileRecord, error) {
	const q = `
		INSERT INTO idea_files (idea_id, file_name, content_type, file_size)
		VALUES ($1, $2, $3, $4)
		RETURNING id, idea_id, file_name, content_type, file_size, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		file.IdeaID,
		file.FileName,
		file.ContentType,
		file.FileSize,
	)
	return scanFile(row)
}

// FindByID fetches a single file by its ID.
func (r *FilePostgres) FindByID(ctx context.Context, id int64) (*model.FileRecord, error) {
	const q = `
		SELECT id, idea_id, file_name, content_type, file_size, created_at
		FROM idea_files
		WHERE id = $1
	`
	f, err := scanFile(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// ListByIdeaID returns all files of an idea ordered by creation.
func (r *FilePostgres) ListByIdeaID(ctx context.Context, ideaID int64) ([]model.FileRecord, error) {
	const q = `
		SELECT id, idea_id, file_name, content_type, file_size, created_at
		FROM idea_files
		WHERE idea_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, ideaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a file row. DELETE ... RETURNING takes the row lock, so of two
// concurrent deletes of the same id only one sees the row; the other gets ErrNotFound.
func (r *FilePostgres) Delete(ctx context.Context, id int64) (*model.FileRecord, error) {
	const q = `
		DELETE FROM idea_files
		WHERE id = $1
		RETURNING id, idea_id, file_name, content_type, file_size, created_at
	`
	f, err := scanFile(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}
