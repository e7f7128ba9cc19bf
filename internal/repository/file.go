package repository

import (
	"context"
	"errors"

	"ideafiles/internal/model"
)

// ErrNotFound is returned when no file row matches the requested id.
var ErrNotFound = errors.New("repository: record not found")

// FileRepository defines data access for idea file metadata using SQL queries only.
// No business logic here, strictly persistence operations.
type FileRepository interface {
	// Create inserts a new row. The store assigns ID and CreatedAt; the returned record carries them.
	Create(ctx context.Context, file *model.FileRecord) (*model.FileRecord, error)

	// FindByID returns a file by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*model.FileRecord, error)

	// ListByIdeaID returns every file attached to the idea, oldest first.
	// An idea without files yields an empty slice.
	ListByIdeaID(ctx context.Context, ideaID int64) ([]model.FileRecord, error)

	// Delete removes a file row and returns what was deleted, or ErrNotFound.
	Delete(ctx context.Context, id int64) (*model.FileRecord, error)
}

// Tx is one metadata unit of work. Files() is bound to the transaction;
// nothing it writes is visible to other callers until Commit.
type Tx interface {
	Files() FileRepository
	Commit() error
	Rollback() error
}

// TxManager hands out the non-transactional repository for reads and opens transactions for mutations.
type TxManager interface {
	Files() FileRepository
	Begin(ctx context.Context) (Tx, error)
}
