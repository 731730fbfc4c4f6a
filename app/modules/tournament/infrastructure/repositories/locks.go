package tournamentdb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// AcquireEventLock takes pg_advisory_xact_lock(k1, k2) inside the caller's transaction.
func (r *Impl) AcquireEventLock(ctx context.Context, db bun.IDB, k1, k2 int32) error {
	db = r.resolveDB(db)
	if _, err := db.NewRaw("SELECT pg_advisory_xact_lock(?::int4, ?::int4)", k1, k2).Exec(ctx); err != nil {
		return fmt.Errorf("failed to acquire event lock: %w", err)
	}
	return nil
}

// TryLock takes a session-level advisory lock on a dedicated connection so
// that the unlock runs on the same session that acquired it.
func (r *Impl) TryLock(ctx context.Context, key int64) (func(context.Context) error, bool, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve lock connection: %w", err)
	}

	var acquired bool
	if err := conn.NewRaw("SELECT pg_try_advisory_lock(?)", key).Scan(ctx, &acquired); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("failed to try advisory lock: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		defer conn.Close()
		var released bool
		if err := conn.NewRaw("SELECT pg_advisory_unlock(?)", key).Scan(ctx, &released); err != nil {
			return fmt.Errorf("failed to release advisory lock: %w", err)
		}
		if !released {
			return fmt.Errorf("advisory lock %d was not held", key)
		}
		return nil
	}
	return release, true, nil
}
