package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ideafiles/internal/repository"
)

// TxManager opens PostgreSQL transactions for file mutations.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a TxManager over the shared pool.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

var _ repository.TxManager = (*TxManager)(nil)

// Files returns a repository running directly on the pool, for reads.
func (m *TxManager) Files() repository.FileRepository {
	return NewFilePostgres(m.db)
}

// Begin starts a read-committed transaction.
func (m *TxManager) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &pgTx{tx: tx, files: NewFilePostgres(tx)}, nil
}

type pgTx struct {
	tx    *sql.Tx
	files *FilePostgres
}

func (t *pgTx) Files() repository.FileRepository { return t.files }

func (t *pgTx) Commit() error { return t.tx.Commit() }

func (t *pgTx) Rollback() error { return t.tx.Rollback() }
