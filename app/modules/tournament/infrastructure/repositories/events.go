package tournamentdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateEvent inserts a new event.
func (r *Impl) CreateEvent(ctx context.Context, db bun.IDB, event *Event) error {
	db = r.resolveDB(db)
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if _, err := db.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by id.
func (r *Impl) GetEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) (*Event, error) {
	db = r.resolveDB(db)
	event := new(Event)
	err := db.NewSelect().
		Model(event).
		Where("e.id = ?", eventID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// ListQueueEvents returns unlocked events with queue processing enabled.
func (r *Impl) ListQueueEvents(ctx context.Context, db bun.IDB) ([]*Event, error) {
	db = r.resolveDB(db)
	var events []*Event
	err := db.NewSelect().
		Model(&events).
		Where("e.process_queue = TRUE").
		Where("e.locked_at IS NULL").
		Order("e.starts_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue events: %w", err)
	}
	return events, nil
}

// ListUnlockedEvents returns every event that has not been locked.
func (r *Impl) ListUnlockedEvents(ctx context.Context, db bun.IDB) ([]*Event, error) {
	db = r.resolveDB(db)
	var events []*Event
	err := db.NewSelect().
		Model(&events).
		Where("e.locked_at IS NULL").
		Order("e.starts_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked events: %w", err)
	}
	return events, nil
}

// ListExpiredEvents returns unlocked events that ended at or before now.
func (r *Impl) ListExpiredEvents(ctx context.Context, db bun.IDB, now time.Time) ([]*Event, error) {
	db = r.resolveDB(db)
	var events []*Event
	err := db.NewSelect().
		Model(&events).
		Where("e.locked_at IS NULL").
		Where("e.ends_at <= ?", now).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired events: %w", err)
	}
	return events, nil
}

// SetCurrentRound updates an event's round counter.
func (r *Impl) SetCurrentRound(ctx context.Context, db bun.IDB, eventID uuid.UUID, round int) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Event)(nil)).
		Set("current_round = ?", round).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set current round: %w", err)
	}
	return requireRows(result, ErrNotFound)
}

// SetLockedAt locks (non-nil) or unlocks (nil) an event.
func (r *Impl) SetLockedAt(ctx context.Context, db bun.IDB, eventID uuid.UUID, lockedAt *time.Time) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Event)(nil)).
		Set("locked_at = ?", lockedAt).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set event lock: %w", err)
	}
	return requireRows(result, ErrNotFound)
}

// SetActivePhase records which progressive phase is running. nil clears it.
func (r *Impl) SetActivePhase(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase *tournamentdomain.Phase) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Event)(nil)).
		Set("active_phase = ?", phase).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set active phase: %w", err)
	}
	return requireRows(result, ErrNotFound)
}

func requireRows(result sql.Result, errNone error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errNone
	}
	return nil
}
