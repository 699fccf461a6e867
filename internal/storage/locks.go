package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Advisory locks are session-scoped, so the lock must stay on the same
// connection until released. The connection is pinned on acquire and
// handed back on release.
type runLock struct {
	conn *pgxpool.Conn
}

// TryAcquireRunLock takes the advisory lock that keeps curation runs
// single-flight. Returns false when another process holds it.
func (db *DB) TryAcquireRunLock(ctx context.Context) (bool, error) {
	if db.runLock != nil {
		return false, fmt.Errorf("run lock already held by this process")
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var acquired bool

	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", runLockID).Scan(&acquired); err != nil {
		conn.Release()

		return false, fmt.Errorf("acquire run lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return false, nil
	}

	db.runLock = &runLock{conn: conn}

	return true, nil
}

// ReleaseRunLock releases the run advisory lock and its pinned connection.
func (db *DB) ReleaseRunLock(ctx context.Context) error {
	if db.runLock == nil {
		return nil
	}

	_, err := db.runLock.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", runLockID)

	db.runLock.conn.Release()
	db.runLock = nil

	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}

	return nil
}
