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

// CreateMatches inserts matches in one statement.
func (r *Impl) CreateMatches(ctx context.Context, db bun.IDB, matches []*Match) error {
	db = r.resolveDB(db)
	if len(matches) == 0 {
		return nil
	}
	for _, m := range matches {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
	}
	if _, err := db.NewInsert().Model(&matches).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create matches: %w", err)
	}
	return nil
}

// GetMatch retrieves a match and its results.
func (r *Impl) GetMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*Match, error) {
	db = r.resolveDB(db)
	match := new(Match)
	err := db.NewSelect().
		Model(match).
		Relation("Results").
		Where("m.id = ?", matchID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// ListMatches returns matches matching filter in bracket order.
func (r *Impl) ListMatches(ctx context.Context, db bun.IDB, filter MatchFilter) ([]*Match, error) {
	db = r.resolveDB(db)
	var matches []*Match
	q := db.NewSelect().
		Model(&matches).
		Relation("Results").
		Where("m.event_id = ?", filter.EventID)
	if filter.Phase != nil {
		q = q.Where("m.phase = ?", *filter.Phase)
	}
	if filter.Round != nil {
		q = q.Where("m.round = ?", *filter.Round)
	}
	if filter.State != nil {
		q = q.Where("m.state = ?", *filter.State)
	}
	if err := q.Order("m.round ASC", "m.created_at ASC", "m.slot ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// CountMatches counts every match of (event, phase, round).
func (r *Impl) CountMatches(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*Match)(nil)).
		Where("event_id = ?", eventID).
		Where("phase = ?", phase).
		Where("round = ?", round).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

// CountUnfinished counts the matches of (event, phase, round) not yet FINISHED.
func (r *Impl) CountUnfinished(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*Match)(nil)).
		Where("event_id = ?", eventID).
		Where("phase = ?", phase).
		Where("round = ?", round).
		Where("state <> ?", tournamentdomain.MatchFinished).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches: %w", err)
	}
	return n, nil
}

// ListBusyTeams returns the distinct teams of an event that play a PLANNED or
// IN_PROGRESS match of the phase.
func (r *Impl) ListBusyTeams(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase) ([]uuid.UUID, error) {
	db = r.resolveDB(db)
	var matches []*Match
	err := db.NewSelect().
		Model(&matches).
		Column("team1_id", "team2_id").
		Where("m.event_id = ?", eventID).
		Where("m.phase = ?", phase).
		Where("m.state <> ?", tournamentdomain.MatchFinished).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list busy teams: %w", err)
	}

	seen := make(map[uuid.UUID]bool, 2*len(matches))
	busy := make([]uuid.UUID, 0, 2*len(matches))
	for _, m := range matches {
		for _, id := range []uuid.UUID{m.Team1ID, m.Team2ID} {
			if !seen[id] {
				seen[id] = true
				busy = append(busy, id)
			}
		}
	}
	return busy, nil
}

// StartMatch moves a PLANNED match to IN_PROGRESS.
func (r *Impl) StartMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID, at time.Time) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("state = ?", tournamentdomain.MatchInProgress).
		Set("started_at = ?", at).
		Where("id = ?", matchID).
		Where("state = ?", tournamentdomain.MatchPlanned).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to start match: %w", err)
	}
	return requireRows(result, ErrNoRowsAffected)
}

// FinishMatch records the winner of an IN_PROGRESS match.
func (r *Impl) FinishMatch(ctx context.Context, db bun.IDB, matchID, winnerID uuid.UUID, at time.Time) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("state = ?", tournamentdomain.MatchFinished).
		Set("winner_id = ?", winnerID).
		Set("finished_at = ?", at).
		Where("id = ?", matchID).
		Where("state = ?", tournamentdomain.MatchInProgress).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to finish match: %w", err)
	}
	return requireRows(result, ErrNoRowsAffected)
}

// UpsertResult writes one team's result, replacing any previous one.
func (r *Impl) UpsertResult(ctx context.Context, db bun.IDB, result *MatchResult) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(result).
		On("CONFLICT (match_id, team_id) DO UPDATE").
		Set("score = EXCLUDED.score").
		Set("stats = EXCLUDED.stats").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert match result: %w", err)
	}
	return nil
}

// RevealMatch makes a match's outcome visible to everyone.
func (r *Impl) RevealMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("is_revealed = TRUE").
		Where("id = ?", matchID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reveal match: %w", err)
	}
	return requireRows(result, ErrNotFound)
}

// RevealPhase reveals every match of an event phase.
func (r *Impl) RevealPhase(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error) {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("is_revealed = TRUE").
		Where("event_id = ?", eventID).
		Where("phase = ?", phase).
		Where("is_revealed = FALSE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reveal phase: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

// DeletePhase removes every match of an event phase. Results cascade.
func (r *Impl) DeletePhase(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error) {
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*Match)(nil)).
		Where("event_id = ?", eventID).
		Where("phase = ?", phase).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete phase matches: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}
