package tournamentservice

import (
	"context"
	"database/sql"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Service is the tournament progression and matchmaking engine.
type Service interface {
	// Match lifecycle
	CreateMatch(ctx context.Context, eventID uuid.UUID, team1, team2 uuid.UUID, round int, phase tournamentdomain.Phase) (*tournamentdomain.MatchView, error)
	StartMatch(ctx context.Context, matchID uuid.UUID) error
	FinishMatch(ctx context.Context, matchID, winnerID uuid.UUID, stats map[uuid.UUID]tournamentdomain.Stats) error
	RevealMatch(ctx context.Context, matchID uuid.UUID) error
	RevealPhase(ctx context.Context, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error)
	GetMatch(ctx context.Context, matchID uuid.UUID, viewer tournamentdomain.Viewer) (*tournamentdomain.MatchView, error)
	ListMatches(ctx context.Context, filter tournamentdb.MatchFilter, viewer tournamentdomain.Viewer) ([]tournamentdomain.MatchView, error)

	// Progression
	CheckRoundCompletion(ctx context.Context, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (AdvanceOutcome, error)
	SweepRounds(ctx context.Context) (SweepReport, error)

	// Phase administration
	StartSwissPhase(ctx context.Context, eventID uuid.UUID) (int, error)
	StartEliminationPhase(ctx context.Context, eventID uuid.UUID) (int, error)
	CleanupPhase(ctx context.Context, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error)

	// Queue
	JoinQueue(ctx context.Context, eventID, teamID uuid.UUID) error
	LeaveQueue(ctx context.Context, eventID, teamID uuid.UUID) error
	RunMatchmaking(ctx context.Context) (MatchmakingReport, error)

	// Housekeeping
	RunHousekeeping(ctx context.Context) (HousekeepingReport, error)
	UnlockEvent(ctx context.Context, eventID uuid.UUID) error
}

// ExecutionDispatcher hands started matches to whatever runs them.
type ExecutionDispatcher interface {
	Dispatch(ctx context.Context, payload tournamentevents.MatchDispatchRequestedPayloadV1) error
}

// Notifier announces progression milestones.
type Notifier interface {
	RoundAdvanced(ctx context.Context, payload tournamentevents.RoundAdvancedPayloadV1) error
	PhaseCompleted(ctx context.Context, payload tournamentevents.PhaseCompletedPayloadV1) error
}

// RepositoryAccess freezes and restores a team's source repository.
type RepositoryAccess interface {
	Revoke(ctx context.Context, payload tournamentevents.RepositoryAccessPayloadV1) error
	Grant(ctx context.Context, payload tournamentevents.RepositoryAccessPayloadV1) error
}

// TxRunner opens database transactions. *bun.DB satisfies it.
type TxRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

// AdvanceOutcome describes what a round completion check did.
type AdvanceOutcome struct {
	Advanced       bool
	PhaseCompleted bool
	NewRound       int
	MatchesCreated int
}

// MatchmakingReport summarises one matchmaking pass.
type MatchmakingReport struct {
	Skipped        bool
	EventsVisited  int
	MatchesCreated int
	EventsFailed   int
}

// HousekeepingReport summarises one auto-lock pass.
type HousekeepingReport struct {
	Skipped      bool
	EventsLocked int
	AccessFailed int
}

// SweepReport summarises one periodic round re-evaluation.
type SweepReport struct {
	Skipped        bool
	EventsChecked  int
	RoundsAdvanced int
	EventsFailed   int
}
