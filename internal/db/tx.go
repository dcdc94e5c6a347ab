package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the query surface shared by *pgxpool.Pool, *pgxpool.Conn and
// pgx.Tx. Begin on a pgx.Tx opens a savepoint.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

type (
	txKey   struct{}
	connKey struct{}
)

// WithTx binds tx to ctx. Repositories pick it up through Conn.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// WithConn pins ctx to one acquired connection, typically a
// *pgxpool.Conn that holds a session-level lock. Work under ctx then never
// borrows a second connection from the pool.
func WithConn(ctx context.Context, conn DBTX) context.Context {
	return context.WithValue(ctx, connKey{}, conn)
}

// Conn returns the transaction bound to ctx, else the pinned connection,
// else fallback.
func Conn(ctx context.Context, fallback DBTX) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok && tx != nil {
		return tx
	}
	if c, ok := ctx.Value(connKey{}).(DBTX); ok && c != nil {
		return c
	}
	return fallback
}

// TxRunner implements domain.TxRunner on top of a pool.
type TxRunner struct {
	db DBTX
}

// NewTxRunner creates a TxRunner.
func NewTxRunner(db DBTX) *TxRunner {
	return &TxRunner{db: db}
}

// InTx runs fn in a transaction, or in a savepoint when ctx already carries
// one. The transaction commits when fn returns nil and rolls back otherwise,
// including on panic.
func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := Conn(ctx, r.db).Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
