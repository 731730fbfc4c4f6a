package tournamentdomain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Phase is the progression mode a match belongs to.
type Phase string

const (
	PhaseQueue       Phase = "QUEUE"
	PhaseSwiss       Phase = "SWISS"
	PhaseElimination Phase = "ELIMINATION"
)

// Valid reports whether p is one of the three known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseQueue, PhaseSwiss, PhaseElimination:
		return true
	}
	return false
}

// Progressive reports whether matches in this phase are grouped into rounds
// that advance the event's current round counter.
func (p Phase) Progressive() bool {
	return p == PhaseSwiss || p == PhaseElimination
}

func (p Phase) String() string { return string(p) }

// MatchState is the lifecycle state of a match.
type MatchState string

const (
	MatchPlanned    MatchState = "PLANNED"
	MatchInProgress MatchState = "IN_PROGRESS"
	MatchFinished   MatchState = "FINISHED"
)

// CanTransitionTo reports whether a match in state s may move to next.
// Only PLANNED -> IN_PROGRESS -> FINISHED is allowed.
func (s MatchState) CanTransitionTo(next MatchState) bool {
	switch s {
	case MatchPlanned:
		return next == MatchInProgress
	case MatchInProgress:
		return next == MatchFinished
	}
	return false
}

// Pairing is an ordered pair of distinct teams that should play each other.
type Pairing struct {
	Team1 uuid.UUID
	Team2 uuid.UUID
}

// Validate returns ErrSelfPairing when both sides are the same team.
func (p Pairing) Validate() error {
	if p.Team1 == p.Team2 {
		return ErrSelfPairing
	}
	return nil
}

// Involves reports whether teamID plays in this pairing.
func (p Pairing) Involves(teamID uuid.UUID) bool {
	return p.Team1 == teamID || p.Team2 == teamID
}

// FinishedMatch is the minimal view of a completed match used by the
// bracket and tiebreak calculations.
type FinishedMatch struct {
	ID        uuid.UUID
	Team1     uuid.UUID
	Team2     uuid.UUID
	Winner    *uuid.UUID
	CreatedAt time.Time
	Slot      int
}

// Loser returns the team that did not win. ok is false when the match has
// no recorded winner.
func (m FinishedMatch) Loser() (loser uuid.UUID, ok bool) {
	if m.Winner == nil {
		return uuid.Nil, false
	}
	if *m.Winner == m.Team1 {
		return m.Team2, true
	}
	return m.Team1, true
}

// WindowActive reports whether an event accepts queue activity at now: the
// event has started, has not ended and has not been locked.
func WindowActive(startsAt, endsAt time.Time, lockedAt *time.Time, now time.Time) bool {
	if lockedAt != nil {
		return false
	}
	if now.Before(startsAt) {
		return false
	}
	return now.Before(endsAt)
}

var (
	// ErrSelfPairing is returned when a pairing would put a team against itself.
	ErrSelfPairing = errors.New("team cannot be paired against itself")
	// ErrInsufficientTeams is returned when there are too few teams to pair or seed.
	ErrInsufficientTeams = errors.New("not enough teams")
	// ErrMaxSwissRoundsReached is returned when the requested swiss round is past the cap.
	ErrMaxSwissRoundsReached = errors.New("maximum number of swiss rounds reached")
	// ErrOddMatchCount is returned when an elimination round cannot be folded into pairs.
	ErrOddMatchCount = errors.New("elimination round has an odd number of matches")
	// ErrMissingWinner is returned when a finished elimination match has no winner.
	ErrMissingWinner = errors.New("elimination match has no winner")
)
