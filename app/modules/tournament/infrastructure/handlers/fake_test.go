package tournamenthandlers

import (
	"context"

	tournamentservice "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/google/uuid"
)

// FakeTournamentService implements tournamentservice.Service for handler tests.
type FakeTournamentService struct {
	trace []string

	FinishMatchFunc func(ctx context.Context, matchID, winnerID uuid.UUID, stats map[uuid.UUID]tournamentdomain.Stats) error
}

var _ tournamentservice.Service = (*FakeTournamentService)(nil)

func (f *FakeTournamentService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeTournamentService) FinishMatch(ctx context.Context, matchID, winnerID uuid.UUID, stats map[uuid.UUID]tournamentdomain.Stats) error {
	f.record("FinishMatch")
	if f.FinishMatchFunc != nil {
		return f.FinishMatchFunc(ctx, matchID, winnerID, stats)
	}
	return nil
}

func (f *FakeTournamentService) CreateMatch(ctx context.Context, eventID uuid.UUID, team1, team2 uuid.UUID, round int, phase tournamentdomain.Phase) (*tournamentdomain.MatchView, error) {
	f.record("CreateMatch")
	return nil, nil
}

func (f *FakeTournamentService) StartMatch(ctx context.Context, matchID uuid.UUID) error {
	f.record("StartMatch")
	return nil
}

func (f *FakeTournamentService) RevealMatch(ctx context.Context, matchID uuid.UUID) error {
	f.record("RevealMatch")
	return nil
}

func (f *FakeTournamentService) RevealPhase(ctx context.Context, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error) {
	f.record("RevealPhase")
	return 0, nil
}

func (f *FakeTournamentService) GetMatch(ctx context.Context, matchID uuid.UUID, viewer tournamentdomain.Viewer) (*tournamentdomain.MatchView, error) {
	f.record("GetMatch")
	return nil, tournamentdb.ErrNotFound
}

func (f *FakeTournamentService) ListMatches(ctx context.Context, filter tournamentdb.MatchFilter, viewer tournamentdomain.Viewer) ([]tournamentdomain.MatchView, error) {
	f.record("ListMatches")
	return nil, nil
}

func (f *FakeTournamentService) CheckRoundCompletion(ctx context.Context, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (tournamentservice.AdvanceOutcome, error) {
	f.record("CheckRoundCompletion")
	return tournamentservice.AdvanceOutcome{}, nil
}

func (f *FakeTournamentService) SweepRounds(ctx context.Context) (tournamentservice.SweepReport, error) {
	f.record("SweepRounds")
	return tournamentservice.SweepReport{}, nil
}

func (f *FakeTournamentService) StartSwissPhase(ctx context.Context, eventID uuid.UUID) (int, error) {
	f.record("StartSwissPhase")
	return 0, nil
}

func (f *FakeTournamentService) StartEliminationPhase(ctx context.Context, eventID uuid.UUID) (int, error) {
	f.record("StartEliminationPhase")
	return 0, nil
}

func (f *FakeTournamentService) CleanupPhase(ctx context.Context, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error) {
	f.record("CleanupPhase")
	return 0, nil
}

func (f *FakeTournamentService) JoinQueue(ctx context.Context, eventID, teamID uuid.UUID) error {
	f.record("JoinQueue")
	return nil
}

func (f *FakeTournamentService) LeaveQueue(ctx context.Context, eventID, teamID uuid.UUID) error {
	f.record("LeaveQueue")
	return nil
}

func (f *FakeTournamentService) RunMatchmaking(ctx context.Context) (tournamentservice.MatchmakingReport, error) {
	f.record("RunMatchmaking")
	return tournamentservice.MatchmakingReport{}, nil
}

func (f *FakeTournamentService) RunHousekeeping(ctx context.Context) (tournamentservice.HousekeepingReport, error) {
	f.record("RunHousekeeping")
	return tournamentservice.HousekeepingReport{}, nil
}

func (f *FakeTournamentService) UnlockEvent(ctx context.Context, eventID uuid.UUID) error {
	f.record("UnlockEvent")
	return nil
}
