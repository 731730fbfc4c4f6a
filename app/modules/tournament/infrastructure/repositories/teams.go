package tournamentdb

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateTeam inserts a new team.
func (r *Impl) CreateTeam(ctx context.Context, db bun.IDB, team *Team) error {
	db = r.resolveDB(db)
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	if _, err := db.NewInsert().Model(team).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetTeam retrieves a team by id.
func (r *Impl) GetTeam(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*Team, error) {
	db = r.resolveDB(db)
	team := new(Team)
	err := db.NewSelect().
		Model(team).
		Where("t.id = ?", teamID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListTeams returns all teams of an event.
func (r *Impl) ListTeams(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*Team, error) {
	db = r.resolveDB(db)
	var teams []*Team
	err := db.NewSelect().
		Model(&teams).
		Where("t.event_id = ?", eventID).
		Order("t.created_at ASC", "t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// ListQueuedTeams returns the teams of an event currently waiting in the queue.
func (r *Impl) ListQueuedTeams(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*Team, error) {
	db = r.resolveDB(db)
	var teams []*Team
	err := db.NewSelect().
		Model(&teams).
		Where("t.event_id = ?", eventID).
		Where("t.in_queue = TRUE").
		Order("t.queued_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued teams: %w", err)
	}
	return teams, nil
}

// SetInQueue toggles a team's queue membership.
func (r *Impl) SetInQueue(ctx context.Context, db bun.IDB, teamID uuid.UUID, inQueue bool, at *time.Time) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("in_queue = ?", inQueue).
		Set("queued_at = ?", at).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", teamID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update queue membership: %w", err)
	}
	return requireRows(result, ErrNotFound)
}

// DequeueTeams removes the given teams from the queue.
func (r *Impl) DequeueTeams(ctx context.Context, db bun.IDB, teamIDs []uuid.UUID) (int, error) {
	db = r.resolveDB(db)
	if len(teamIDs) == 0 {
		return 0, nil
	}
	result, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("in_queue = FALSE").
		Set("queued_at = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id IN (?)", bun.In(teamIDs)).
		Where("in_queue = TRUE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to dequeue teams: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

// LockTeams selects each team FOR UPDATE in id order so concurrent callers
// locking overlapping teams cannot deadlock.
func (r *Impl) LockTeams(ctx context.Context, db bun.IDB, teamIDs []uuid.UUID) ([]*Team, error) {
	db = r.resolveDB(db)
	ids := slices.Clone(teamIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	teams := make([]*Team, 0, len(ids))
	for _, id := range ids {
		team := new(Team)
		err := db.NewSelect().
			Model(team).
			Where("t.id = ?", id).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("failed to lock team %s: %w", id, err)
		}
		teams = append(teams, team)
	}
	return teams, nil
}

// IncrementScore adds delta to a team's swiss score.
func (r *Impl) IncrementScore(ctx context.Context, db bun.IDB, teamID uuid.UUID, delta int) (int, error) {
	db = r.resolveDB(db)
	var score int
	_, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("score = score + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", teamID).
		Returning("score").
		Exec(ctx, &score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment score: %w", err)
	}
	return score, nil
}

// SetQueueScore stores a team's queue rating.
func (r *Impl) SetQueueScore(ctx context.Context, db bun.IDB, teamID uuid.UUID, score int) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("queue_score = ?", score).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", teamID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set queue score: %w", err)
	}
	return requireRows(result, ErrNotFound)
}

// MarkBye records that a team sat out a swiss round.
func (r *Impl) MarkBye(ctx context.Context, db bun.IDB, teamID uuid.UUID) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("had_bye = TRUE").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", teamID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark bye: %w", err)
	}
	return requireRows(result, ErrNotFound)
}

// SetBuchholz stores tiebreak points for each team in points.
func (r *Impl) SetBuchholz(ctx context.Context, db bun.IDB, points map[uuid.UUID]int) error {
	db = r.resolveDB(db)
	now := time.Now()
	for teamID, value := range points {
		_, err := db.NewUpdate().
			Model((*Team)(nil)).
			Set("buchholz_points = ?", value).
			Set("updated_at = ?", now).
			Where("id = ?", teamID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set buchholz for team %s: %w", teamID, err)
		}
	}
	return nil
}

// ResetSwissStandings clears score, buchholz and bye history for an event's teams.
func (r *Impl) ResetSwissStandings(ctx context.Context, db bun.IDB, eventID uuid.UUID) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("score = 0").
		Set("buchholz_points = 0").
		Set("had_bye = FALSE").
		Set("updated_at = ?", time.Now()).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset swiss standings: %w", err)
	}
	return nil
}
