package tournamentservice

import (
	"context"
	"errors"
	"fmt"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateMatch inserts a PLANNED match between two teams of an event.
func (s *TournamentService) CreateMatch(ctx context.Context, eventID uuid.UUID, team1, team2 uuid.UUID, round int, phase tournamentdomain.Phase) (*tournamentdomain.MatchView, error) {
	result, err := withTelemetry(s, ctx, "CreateMatch", eventID.String(), func(ctx context.Context) (results.OperationResult[*tournamentdomain.MatchView, error], error) {
		if !phase.Valid() {
			return results.FailureResult[*tournamentdomain.MatchView, error](ErrInvalidPhase), nil
		}
		pairing := tournamentdomain.Pairing{Team1: team1, Team2: team2}
		if err := pairing.Validate(); err != nil {
			return results.FailureResult[*tournamentdomain.MatchView, error](err), nil
		}
		return asFailure(runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*tournamentdomain.MatchView, error], error) {
			return s.createMatchLogic(ctx, db, eventID, pairing, round, phase)
		}))
	})
	return unwrap(result, err)
}

func (s *TournamentService) createMatchLogic(ctx context.Context, db bun.IDB, eventID uuid.UUID, pairing tournamentdomain.Pairing, round int, phase tournamentdomain.Phase) (results.OperationResult[*tournamentdomain.MatchView, error], error) {
	event, err := s.repo.GetEvent(ctx, db, eventID)
	if err != nil {
		return results.OperationResult[*tournamentdomain.MatchView, error]{}, fmt.Errorf("failed to load event: %w", err)
	}
	if event.LockedAt != nil {
		return results.FailureResult[*tournamentdomain.MatchView, error](ErrEventLocked), nil
	}
	for _, teamID := range []uuid.UUID{pairing.Team1, pairing.Team2} {
		team, err := s.repo.GetTeam(ctx, db, teamID)
		if err != nil {
			return results.OperationResult[*tournamentdomain.MatchView, error]{}, fmt.Errorf("failed to load team: %w", err)
		}
		if team.EventID != eventID {
			return results.OperationResult[*tournamentdomain.MatchView, error]{}, ErrTeamNotInEvent
		}
	}

	existing, err := s.repo.CountMatches(ctx, db, eventID, phase, round)
	if err != nil {
		return results.OperationResult[*tournamentdomain.MatchView, error]{}, err
	}

	created, err := s.createMatchesTx(ctx, db, eventID, phase, round, existing, []tournamentdomain.Pairing{pairing})
	if err != nil {
		return results.OperationResult[*tournamentdomain.MatchView, error]{}, err
	}
	view := created[0].View()
	return results.SuccessResult[*tournamentdomain.MatchView, error](&view), nil
}

// StartMatch moves a PLANNED match to IN_PROGRESS and hands it to the
// execution dispatcher once committed.
func (s *TournamentService) StartMatch(ctx context.Context, matchID uuid.UUID) error {
	var fx effects
	result, err := withTelemetry(s, ctx, "StartMatch", matchID.String(), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return asFailure(runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
			fx = effects{}
			return s.startMatchLogic(ctx, db, matchID, &fx)
		}))
	})
	if _, err := unwrap(result, err); err != nil {
		return err
	}
	s.publish(ctx, fx)
	return nil
}

func (s *TournamentService) startMatchLogic(ctx context.Context, db bun.IDB, matchID uuid.UUID, fx *effects) (results.OperationResult[bool, error], error) {
	match, err := s.repo.GetMatch(ctx, db, matchID)
	if err != nil {
		return results.OperationResult[bool, error]{}, fmt.Errorf("failed to load match: %w", err)
	}
	if !match.State.CanTransitionTo(tournamentdomain.MatchInProgress) {
		return results.FailureResult[bool, error](fmt.Errorf("%w: match is %s", ErrInvalidTransition, match.State)), nil
	}

	event, err := s.repo.GetEvent(ctx, db, match.EventID)
	if err != nil {
		return results.OperationResult[bool, error]{}, fmt.Errorf("failed to load event: %w", err)
	}
	teams, err := s.teamLookup(ctx, db, event.ID)
	if err != nil {
		return results.OperationResult[bool, error]{}, err
	}

	dispatches, err := s.startMatchesTx(ctx, db, event, []*tournamentdb.Match{match}, teams)
	if err != nil {
		return results.OperationResult[bool, error]{}, err
	}
	fx.dispatches = append(fx.dispatches, dispatches...)
	return results.SuccessResult[bool, error](true), nil
}

// finishOutcome identifies the round a finished match belonged to.
type finishOutcome struct {
	EventID uuid.UUID
	Phase   tournamentdomain.Phase
	Round   int
}

// FinishMatch records the winner and per-phase results of an IN_PROGRESS
// match, then checks whether its round is complete.
func (s *TournamentService) FinishMatch(ctx context.Context, matchID, winnerID uuid.UUID, stats map[uuid.UUID]tournamentdomain.Stats) error {
	result, err := withTelemetry(s, ctx, "FinishMatch", matchID.String(), func(ctx context.Context) (results.OperationResult[finishOutcome, error], error) {
		return asFailure(runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[finishOutcome, error], error) {
			return s.finishMatchLogic(ctx, db, matchID, winnerID, stats)
		}))
	})
	outcome, err := unwrap(result, err)
	if err != nil {
		return err
	}

	if outcome.Phase.Progressive() {
		if _, err := s.CheckRoundCompletion(ctx, outcome.EventID, outcome.Phase, outcome.Round); err != nil {
			s.logger.ErrorContext(ctx, "Round completion check failed",
				attr.ExtractCorrelationID(ctx),
				attr.EventID(outcome.EventID),
				attr.Phase(outcome.Phase.String()),
				attr.Round(outcome.Round),
				attr.Error(err),
			)
		}
	}
	return nil
}

func (s *TournamentService) finishMatchLogic(ctx context.Context, db bun.IDB, matchID, winnerID uuid.UUID, stats map[uuid.UUID]tournamentdomain.Stats) (results.OperationResult[finishOutcome, error], error) {
	match, err := s.repo.GetMatch(ctx, db, matchID)
	if err != nil {
		return results.OperationResult[finishOutcome, error]{}, fmt.Errorf("failed to load match: %w", err)
	}
	if !match.State.CanTransitionTo(tournamentdomain.MatchFinished) {
		return results.FailureResult[finishOutcome, error](fmt.Errorf("%w: match is %s", ErrInvalidTransition, match.State)), nil
	}
	if !match.HasTeam(winnerID) {
		return results.FailureResult[finishOutcome, error](ErrWinnerNotParticipant), nil
	}
	loserID := match.Opponent(winnerID)

	if err := s.repo.FinishMatch(ctx, db, matchID, winnerID, s.now()); err != nil {
		if errors.Is(err, tournamentdb.ErrNoRowsAffected) {
			return results.FailureResult[finishOutcome, error](fmt.Errorf("%w: match is no longer in progress", ErrInvalidTransition)), nil
		}
		return results.OperationResult[finishOutcome, error]{}, err
	}

	scores, err := s.phaseScores(ctx, db, match.Phase, winnerID, loserID)
	if err != nil {
		return results.OperationResult[finishOutcome, error]{}, err
	}

	previous := make(map[uuid.UUID]tournamentdomain.Stats, len(match.Results))
	for _, r := range match.Results {
		previous[r.TeamID] = r.Stats
	}
	for _, teamID := range []uuid.UUID{winnerID, loserID} {
		result := &tournamentdb.MatchResult{
			MatchID: matchID,
			TeamID:  teamID,
			Score:   scores[teamID],
			Stats:   tournamentdomain.MergeStats(previous[teamID], stats[teamID]),
		}
		if err := s.repo.UpsertResult(ctx, db, result); err != nil {
			return results.OperationResult[finishOutcome, error]{}, err
		}
	}

	return results.SuccessResult[finishOutcome, error](finishOutcome{
		EventID: match.EventID,
		Phase:   match.Phase,
		Round:   match.Round,
	}), nil
}

// phaseScores applies the phase-specific standing change for a decided
// match and returns the result score recorded for each team.
func (s *TournamentService) phaseScores(ctx context.Context, db bun.IDB, phase tournamentdomain.Phase, winnerID, loserID uuid.UUID) (map[uuid.UUID]int, error) {
	switch phase {
	case tournamentdomain.PhaseSwiss:
		winnerScore, err := s.repo.IncrementScore(ctx, db, winnerID, 1)
		if err != nil {
			return nil, err
		}
		loser, err := s.repo.GetTeam(ctx, db, loserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load losing team: %w", err)
		}
		return map[uuid.UUID]int{winnerID: winnerScore, loserID: loser.Score}, nil

	case tournamentdomain.PhaseQueue:
		// Ratings are read under row locks so concurrent finishes sharing a
		// team apply their updates one after the other.
		locked, err := s.repo.LockTeams(ctx, db, []uuid.UUID{winnerID, loserID})
		if err != nil {
			return nil, fmt.Errorf("failed to lock teams: %w", err)
		}
		ratings := make(map[uuid.UUID]int, len(locked))
		for _, t := range locked {
			ratings[t.ID] = t.QueueScore
		}
		newWinner, newLoser := tournamentdomain.UpdateRatings(ratings[winnerID], ratings[loserID])
		if err := s.repo.SetQueueScore(ctx, db, winnerID, newWinner); err != nil {
			return nil, err
		}
		if err := s.repo.SetQueueScore(ctx, db, loserID, newLoser); err != nil {
			return nil, err
		}
		return map[uuid.UUID]int{winnerID: newWinner, loserID: newLoser}, nil

	case tournamentdomain.PhaseElimination:
		return map[uuid.UUID]int{winnerID: 1, loserID: 0}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidPhase, phase)
}

// RevealMatch makes one match outcome public.
func (s *TournamentService) RevealMatch(ctx context.Context, matchID uuid.UUID) error {
	result, err := withTelemetry(s, ctx, "RevealMatch", matchID.String(), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if err := s.repo.RevealMatch(ctx, nil, matchID); err != nil {
			if errors.Is(err, tournamentdb.ErrNotFound) {
				return results.FailureResult[bool, error](err), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	})
	_, err = unwrap(result, err)
	return err
}

// RevealPhase makes every match outcome of an event phase public.
func (s *TournamentService) RevealPhase(ctx context.Context, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error) {
	result, err := withTelemetry(s, ctx, "RevealPhase", eventID.String(), func(ctx context.Context) (results.OperationResult[int, error], error) {
		if !phase.Valid() {
			return results.FailureResult[int, error](ErrInvalidPhase), nil
		}
		n, err := s.repo.RevealPhase(ctx, nil, eventID, phase)
		if err != nil {
			return results.OperationResult[int, error]{}, err
		}
		return results.SuccessResult[int, error](n), nil
	})
	return unwrap(result, err)
}

// GetMatch returns a match as viewer may see it.
func (s *TournamentService) GetMatch(ctx context.Context, matchID uuid.UUID, viewer tournamentdomain.Viewer) (*tournamentdomain.MatchView, error) {
	result, err := withTelemetry(s, ctx, "GetMatch", matchID.String(), func(ctx context.Context) (results.OperationResult[*tournamentdomain.MatchView, error], error) {
		match, err := s.repo.GetMatch(ctx, nil, matchID)
		if err != nil {
			if errors.Is(err, tournamentdb.ErrNotFound) {
				return results.FailureResult[*tournamentdomain.MatchView, error](err), nil
			}
			return results.OperationResult[*tournamentdomain.MatchView, error]{}, err
		}
		views, err := s.buildViews(ctx, match.EventID, []*tournamentdb.Match{match}, viewer)
		if err != nil {
			return results.OperationResult[*tournamentdomain.MatchView, error]{}, err
		}
		return results.SuccessResult[*tournamentdomain.MatchView, error](&views[0]), nil
	})
	return unwrap(result, err)
}

// ListMatches returns the matches selected by filter as viewer may see them.
func (s *TournamentService) ListMatches(ctx context.Context, filter tournamentdb.MatchFilter, viewer tournamentdomain.Viewer) ([]tournamentdomain.MatchView, error) {
	result, err := withTelemetry(s, ctx, "ListMatches", filter.EventID.String(), func(ctx context.Context) (results.OperationResult[[]tournamentdomain.MatchView, error], error) {
		matches, err := s.repo.ListMatches(ctx, nil, filter)
		if err != nil {
			return results.OperationResult[[]tournamentdomain.MatchView, error]{}, err
		}
		views, err := s.buildViews(ctx, filter.EventID, matches, viewer)
		if err != nil {
			return results.OperationResult[[]tournamentdomain.MatchView, error]{}, err
		}
		return results.SuccessResult[[]tournamentdomain.MatchView, error](views), nil
	})
	return unwrap(result, err)
}

// buildViews converts matches to masked views and derives the placement
// flag for elimination matches.
func (s *TournamentService) buildViews(ctx context.Context, eventID uuid.UUID, matches []*tournamentdb.Match, viewer tournamentdomain.Viewer) ([]tournamentdomain.MatchView, error) {
	var byRound map[int][]tournamentdomain.FinishedMatch
	for _, m := range matches {
		if m.Phase == tournamentdomain.PhaseElimination && m.Round > 0 {
			phase := tournamentdomain.PhaseElimination
			all, err := s.repo.ListMatches(ctx, nil, tournamentdb.MatchFilter{EventID: eventID, Phase: &phase})
			if err != nil {
				return nil, err
			}
			byRound = make(map[int][]tournamentdomain.FinishedMatch)
			for _, e := range all {
				byRound[e.Round] = append(byRound[e.Round], e.Finished())
			}
			break
		}
	}

	views := make([]tournamentdomain.MatchView, 0, len(matches))
	for _, m := range matches {
		view := m.View()
		if m.Phase == tournamentdomain.PhaseElimination && m.Round > 0 {
			view.IsPlacement = tournamentdomain.IsPlacementMatch(m.Team1ID, m.Team2ID, byRound[m.Round-1])
		}
		views = append(views, view.MaskFor(viewer))
	}
	return views, nil
}

// createMatchesTx inserts PLANNED matches for pairings. Slots continue from
// firstSlot so creation order stays stable within a round.
func (s *TournamentService) createMatchesTx(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase, round, firstSlot int, pairings []tournamentdomain.Pairing) ([]*tournamentdb.Match, error) {
	now := s.now()
	matches := make([]*tournamentdb.Match, 0, len(pairings))
	for i, p := range pairings {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		matches = append(matches, &tournamentdb.Match{
			ID:        uuid.New(),
			EventID:   eventID,
			Phase:     phase,
			Round:     round,
			State:     tournamentdomain.MatchPlanned,
			Team1ID:   p.Team1,
			Team2ID:   p.Team2,
			Slot:      firstSlot + i,
			CreatedAt: now,
		})
	}
	if err := s.repo.CreateMatches(ctx, db, matches); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordMatchesCreated(ctx, phase.String(), len(matches))
	}
	return matches, nil
}

// startMatchesTx starts each match and builds the payloads to dispatch after commit.
func (s *TournamentService) startMatchesTx(ctx context.Context, db bun.IDB, event *tournamentdb.Event, matches []*tournamentdb.Match, teams map[uuid.UUID]*tournamentdb.Team) ([]tournamentevents.MatchDispatchRequestedPayloadV1, error) {
	now := s.now()
	dispatches := make([]tournamentevents.MatchDispatchRequestedPayloadV1, 0, len(matches))
	for _, m := range matches {
		if err := s.repo.StartMatch(ctx, db, m.ID, now); err != nil {
			if errors.Is(err, tournamentdb.ErrNoRowsAffected) {
				return nil, fmt.Errorf("%w: match %s is not planned", ErrInvalidTransition, m.ID)
			}
			return nil, err
		}
		m.State = tournamentdomain.MatchInProgress
		m.StartedAt = &now

		dispatches = append(dispatches, tournamentevents.MatchDispatchRequestedPayloadV1{
			MatchID:     m.ID,
			EventID:     event.ID,
			Phase:       m.Phase,
			Round:       m.Round,
			ServerImage: event.ServerImage,
			GameConfig:  event.GameConfig,
			Teams: [2]tournamentevents.DispatchTeamV1{
				dispatchTeam(m.Team1ID, teams),
				dispatchTeam(m.Team2ID, teams),
			},
		})
	}
	return dispatches, nil
}

func dispatchTeam(id uuid.UUID, teams map[uuid.UUID]*tournamentdb.Team) tournamentevents.DispatchTeamV1 {
	t, ok := teams[id]
	if !ok {
		return tournamentevents.DispatchTeamV1{TeamID: id}
	}
	return tournamentevents.DispatchTeamV1{TeamID: id, Name: t.Name, DockerImage: t.DockerImage}
}

func (s *TournamentService) teamLookup(ctx context.Context, db bun.IDB, eventID uuid.UUID) (map[uuid.UUID]*tournamentdb.Team, error) {
	teams, err := s.repo.ListTeams(ctx, db, eventID)
	if err != nil {
		return nil, err
	}
	lookup := make(map[uuid.UUID]*tournamentdb.Team, len(teams))
	for _, t := range teams {
		lookup[t.ID] = t
	}
	return lookup, nil
}

var domainErrors = []error{
	tournamentdomain.ErrSelfPairing,
	tournamentdomain.ErrInsufficientTeams,
	tournamentdomain.ErrMaxSwissRoundsReached,
	tournamentdomain.ErrOddMatchCount,
	tournamentdomain.ErrMissingWinner,
	ErrInvalidTransition,
	ErrWinnerNotParticipant,
	ErrInvalidPhase,
	ErrEventLocked,
	ErrTeamNotInEvent,
	ErrTeamInMatch,
	ErrPhaseActive,
	tournamentdb.ErrNotFound,
}

// asFailure turns domain errors that rolled a transaction back into failure
// results so callers see them as rejections rather than outages.
func asFailure[S any](result results.OperationResult[S, error], err error) (results.OperationResult[S, error], error) {
	if err == nil {
		return result, nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return results.FailureResult[S, error](err), nil
		}
	}
	return result, err
}
