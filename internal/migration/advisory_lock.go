package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// schemaLockKey serialises migrations across replicas started together.
const schemaLockKey int64 = 5_107_330_214

// schemaLock holds a session advisory lock on one pinned connection. The
// lock belongs to the session, so lock and unlock must share it.
type schemaLock struct {
	conn *sql.Conn
}

// lockSchema waits for the advisory lock until ctx expires.
func lockSchema(ctx context.Context, db *sql.DB) (*schemaLock, error) {
	if db == nil {
		return nil, errors.New("schema lock requires database handle")
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pin connection for schema lock: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", schemaLockKey); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("acquire schema lock: %w", err)
	}
	return &schemaLock{conn: conn}, nil
}

// Release unlocks and returns the connection to the pool. Closing the
// connection after a failed unlock drops the session and with it the lock.
func (l *schemaLock) Release(ctx context.Context) error {
	var released bool
	err := l.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", schemaLockKey).Scan(&released)
	closeErr := l.conn.Close()
	if err != nil {
		return fmt.Errorf("release schema lock: %w", err)
	}
	if !released {
		return errors.New("schema lock was not held by this session")
	}
	return closeErr
}
