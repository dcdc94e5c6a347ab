package repository

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"

	"cm-admin/internal/db"
	"cm-admin/internal/domain"
)

// uploadLockNamespace fills the high 32 bits of every upload lock key so
// the keys never collide with other advisory locks on the database.
const uploadLockNamespace int64 = 0x636d // "cm"

var _ domain.DatasetLocker = (*AdvisoryLocker)(nil)

// AdvisoryLocker serializes uploads per dataset with a session-level
// pg_advisory_lock. The connection holding the lock is pinned to the
// returned context, so the locked upload runs on that one connection.
type AdvisoryLocker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAdvisoryLocker creates a new AdvisoryLocker.
func NewAdvisoryLocker(pool *pgxpool.Pool, logger *slog.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool, logger: logger}
}

// uploadLockKey packs the namespace and the dataset id into one bigint key.
func uploadLockKey(datasetID int64) (int64, error) {
	if datasetID < 0 || datasetID > math.MaxUint32 {
		return 0, domain.ErrConfiguration("dataset id %d is outside the upload lock key range", datasetID)
	}
	return uploadLockNamespace<<32 | datasetID, nil
}

// Lock blocks until the dataset lock is held or ctx is done. Database work
// under the returned context runs on the locked connection until release.
func (l *AdvisoryLocker) Lock(ctx context.Context, datasetID int64) (context.Context, func(), error) {
	key, err := uploadLockKey(datasetID)
	if err != nil {
		return nil, nil, err
	}
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("lock dataset %d: %w", datasetID, err)
	}

	release := func() {
		ctx := context.WithoutCancel(ctx)
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
			// Closing the session drops any lock it still holds.
			l.logger.Warn("advisory unlock failed", "dataset_id", datasetID, "error", err)
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}
	return db.WithConn(ctx, conn), release, nil
}
