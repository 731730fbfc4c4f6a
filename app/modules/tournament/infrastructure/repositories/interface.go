package tournamentdb

import (
	"context"
	"errors"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoRowsAffected is returned when a conditional update matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
)

// EventRepository persists events.
type EventRepository interface {
	CreateEvent(ctx context.Context, db bun.IDB, event *Event) error
	GetEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) (*Event, error)
	// ListQueueEvents returns unlocked events that have queue processing enabled.
	ListQueueEvents(ctx context.Context, db bun.IDB) ([]*Event, error)
	ListUnlockedEvents(ctx context.Context, db bun.IDB) ([]*Event, error)
	// ListExpiredEvents returns unlocked events whose end time is at or before now.
	ListExpiredEvents(ctx context.Context, db bun.IDB, now time.Time) ([]*Event, error)
	SetCurrentRound(ctx context.Context, db bun.IDB, eventID uuid.UUID, round int) error
	SetLockedAt(ctx context.Context, db bun.IDB, eventID uuid.UUID, lockedAt *time.Time) error
	SetActivePhase(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase *tournamentdomain.Phase) error
}

// TeamRepository persists teams and their standings.
type TeamRepository interface {
	CreateTeam(ctx context.Context, db bun.IDB, team *Team) error
	GetTeam(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*Team, error)
	ListTeams(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*Team, error)
	ListQueuedTeams(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*Team, error)
	SetInQueue(ctx context.Context, db bun.IDB, teamID uuid.UUID, inQueue bool, at *time.Time) error
	// DequeueTeams takes the given teams out of the queue and returns how many
	// were actually queued.
	DequeueTeams(ctx context.Context, db bun.IDB, teamIDs []uuid.UUID) (int, error)
	// LockTeams reads the given teams with FOR UPDATE, one row at a time in
	// id order, and returns them in that order.
	LockTeams(ctx context.Context, db bun.IDB, teamIDs []uuid.UUID) ([]*Team, error)
	// IncrementScore adds delta to the swiss score and returns the new value.
	IncrementScore(ctx context.Context, db bun.IDB, teamID uuid.UUID, delta int) (int, error)
	SetQueueScore(ctx context.Context, db bun.IDB, teamID uuid.UUID, score int) error
	MarkBye(ctx context.Context, db bun.IDB, teamID uuid.UUID) error
	SetBuchholz(ctx context.Context, db bun.IDB, points map[uuid.UUID]int) error
	ResetSwissStandings(ctx context.Context, db bun.IDB, eventID uuid.UUID) error
}

// MatchFilter narrows ListMatches. Nil fields match everything.
type MatchFilter struct {
	EventID uuid.UUID
	Phase   *tournamentdomain.Phase
	Round   *int
	State   *tournamentdomain.MatchState
}

// MatchRepository persists matches and their results.
type MatchRepository interface {
	CreateMatches(ctx context.Context, db bun.IDB, matches []*Match) error
	GetMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*Match, error)
	// ListMatches returns matches ordered by creation time then slot, with results.
	ListMatches(ctx context.Context, db bun.IDB, filter MatchFilter) ([]*Match, error)
	CountMatches(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (int, error)
	CountUnfinished(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (int, error)
	// ListBusyTeams returns the teams playing an unfinished match of the phase.
	ListBusyTeams(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase) ([]uuid.UUID, error)
	// StartMatch moves a PLANNED match to IN_PROGRESS. It returns
	// ErrNoRowsAffected when the match was not PLANNED.
	StartMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID, at time.Time) error
	// FinishMatch records the winner of an IN_PROGRESS match. It returns
	// ErrNoRowsAffected when the match was not IN_PROGRESS.
	FinishMatch(ctx context.Context, db bun.IDB, matchID, winnerID uuid.UUID, at time.Time) error
	UpsertResult(ctx context.Context, db bun.IDB, result *MatchResult) error
	RevealMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) error
	RevealPhase(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error)
	DeletePhase(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error)
}

// LockRepository exposes Postgres advisory locks.
type LockRepository interface {
	// AcquireEventLock blocks until the transaction-scoped lock for (k1, k2)
	// is held. db must be a transaction; the lock is released on commit or rollback.
	AcquireEventLock(ctx context.Context, db bun.IDB, k1, k2 int32) error
	// TryLock attempts a session-level lock without blocking. When acquired
	// is true the caller must invoke release.
	TryLock(ctx context.Context, key int64) (release func(context.Context) error, acquired bool, err error)
}
