package tournamentservice

import (
	"context"
	"fmt"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CheckRoundCompletion advances the event to its next round once every
// match of the given round is finished. Concurrent callers for the same
// event serialize on the event lock and at most one of them advances.
func (s *TournamentService) CheckRoundCompletion(ctx context.Context, eventID uuid.UUID, phase tournamentdomain.Phase, round int) (AdvanceOutcome, error) {
	var fx effects
	result, err := withTelemetry(s, ctx, "CheckRoundCompletion", eventID.String(), func(ctx context.Context) (results.OperationResult[AdvanceOutcome, error], error) {
		if !phase.Progressive() {
			return results.FailureResult[AdvanceOutcome, error](fmt.Errorf("%w: %s has no rounds", ErrInvalidPhase, phase)), nil
		}

		remaining, err := s.repo.CountUnfinished(ctx, nil, eventID, phase, round)
		if err != nil {
			return results.OperationResult[AdvanceOutcome, error]{}, err
		}
		if remaining > 0 {
			return results.SuccessResult[AdvanceOutcome, error](AdvanceOutcome{}), nil
		}

		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[AdvanceOutcome, error], error) {
			fx = effects{}
			return s.advanceRoundLogic(ctx, db, eventID, phase, round, &fx)
		})
	})
	outcome, err := unwrap(result, err)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	s.publish(ctx, fx)
	return outcome, nil
}

func (s *TournamentService) advanceRoundLogic(ctx context.Context, db bun.IDB, eventID uuid.UUID, phase tournamentdomain.Phase, round int, fx *effects) (results.OperationResult[AdvanceOutcome, error], error) {
	k1, k2 := tournamentdomain.EventLockKeys(eventID)
	if err := s.repo.AcquireEventLock(ctx, db, k1, k2); err != nil {
		return results.OperationResult[AdvanceOutcome, error]{}, fmt.Errorf("failed to acquire event lock: %w", err)
	}

	total, err := s.repo.CountMatches(ctx, db, eventID, phase, round)
	if err != nil {
		return results.OperationResult[AdvanceOutcome, error]{}, err
	}
	remaining, err := s.repo.CountUnfinished(ctx, db, eventID, phase, round)
	if err != nil {
		return results.OperationResult[AdvanceOutcome, error]{}, err
	}
	if total == 0 || remaining > 0 {
		return results.SuccessResult[AdvanceOutcome, error](AdvanceOutcome{}), nil
	}

	event, err := s.repo.GetEvent(ctx, db, eventID)
	if err != nil {
		return results.OperationResult[AdvanceOutcome, error]{}, fmt.Errorf("failed to load event: %w", err)
	}
	if event.ActivePhase == nil || *event.ActivePhase != phase || event.CurrentRound != round {
		s.logger.DebugContext(ctx, "Round already advanced",
			attr.EventID(eventID),
			attr.Phase(phase.String()),
			attr.Round(round),
			attr.Int("current_round", event.CurrentRound),
		)
		return results.SuccessResult[AdvanceOutcome, error](AdvanceOutcome{}), nil
	}

	if event.LockedAt != nil {
		s.logger.InfoContext(ctx, "Event is locked, round stays open until it is unlocked",
			attr.EventID(eventID),
			attr.Phase(phase.String()),
			attr.Round(round),
		)
		return results.SuccessResult[AdvanceOutcome, error](AdvanceOutcome{}), nil
	}

	var outcome AdvanceOutcome
	switch phase {
	case tournamentdomain.PhaseSwiss:
		outcome, err = s.advanceSwissTx(ctx, db, event, round, fx)
	case tournamentdomain.PhaseElimination:
		outcome, err = s.advanceEliminationRoundTx(ctx, db, event, round, fx)
	}
	if err != nil {
		return results.OperationResult[AdvanceOutcome, error]{}, err
	}

	s.logger.InfoContext(ctx, "Round completed",
		attr.ExtractCorrelationID(ctx),
		attr.EventID(eventID),
		attr.Phase(phase.String()),
		attr.Round(round),
		attr.Bool("phase_completed", outcome.PhaseCompleted),
		attr.Int("matches_created", outcome.MatchesCreated),
	)
	return results.SuccessResult[AdvanceOutcome, error](outcome), nil
}

func (s *TournamentService) advanceSwissTx(ctx context.Context, db bun.IDB, event *tournamentdb.Event, round int, fx *effects) (AdvanceOutcome, error) {
	teams, err := s.repo.ListTeams(ctx, db, event.ID)
	if err != nil {
		return AdvanceOutcome{}, err
	}

	next := round + 1
	if next >= tournamentdomain.MaxSwissRounds(len(teams)) {
		if err := s.finalizeSwissTx(ctx, db, event, teams); err != nil {
			return AdvanceOutcome{}, err
		}
		fx.completed = &tournamentevents.PhaseCompletedPayloadV1{EventID: event.ID, Phase: tournamentdomain.PhaseSwiss, OccurredAt: s.now()}
		return AdvanceOutcome{Advanced: true, PhaseCompleted: true}, nil
	}

	if err := s.repo.SetCurrentRound(ctx, db, event.ID, next); err != nil {
		return AdvanceOutcome{}, err
	}
	event.CurrentRound = next

	created, n, err := s.pairSwissRoundTx(ctx, db, event, next)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	fx.merge(created)
	fx.advanced = &tournamentevents.RoundAdvancedPayloadV1{EventID: event.ID, Phase: tournamentdomain.PhaseSwiss, Round: next, OccurredAt: s.now()}
	return AdvanceOutcome{Advanced: true, NewRound: next, MatchesCreated: n}, nil
}

// finalizeSwissTx stores Buchholz points, resets the round counter and ends
// the swiss phase.
func (s *TournamentService) finalizeSwissTx(ctx context.Context, db bun.IDB, event *tournamentdb.Event, teams []*tournamentdb.Team) error {
	phase := tournamentdomain.PhaseSwiss
	matches, err := s.repo.ListMatches(ctx, db, tournamentdb.MatchFilter{EventID: event.ID, Phase: &phase})
	if err != nil {
		return err
	}
	finished := make([]tournamentdomain.FinishedMatch, 0, len(matches))
	for _, m := range matches {
		finished = append(finished, m.Finished())
	}
	scores := make(map[uuid.UUID]int, len(teams))
	for _, t := range teams {
		scores[t.ID] = t.Score
	}

	points := tournamentdomain.ComputeBuchholz(finished, scores)
	for _, t := range teams {
		if _, ok := points[t.ID]; !ok {
			points[t.ID] = 0
		}
	}
	if err := s.repo.SetBuchholz(ctx, db, points); err != nil {
		return err
	}
	if err := s.repo.SetCurrentRound(ctx, db, event.ID, 0); err != nil {
		return err
	}
	return s.repo.SetActivePhase(ctx, db, event.ID, nil)
}

func (s *TournamentService) advanceEliminationRoundTx(ctx context.Context, db bun.IDB, event *tournamentdb.Event, round int, fx *effects) (AdvanceOutcome, error) {
	firstRound, err := s.repo.CountMatches(ctx, db, event.ID, tournamentdomain.PhaseElimination, 0)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	if round >= tournamentdomain.FinalRoundIndex(firstRound) {
		if err := s.repo.SetActivePhase(ctx, db, event.ID, nil); err != nil {
			return AdvanceOutcome{}, err
		}
		fx.completed = &tournamentevents.PhaseCompletedPayloadV1{EventID: event.ID, Phase: tournamentdomain.PhaseElimination, OccurredAt: s.now()}
		return AdvanceOutcome{PhaseCompleted: true, NewRound: round}, nil
	}

	next := round + 1
	if err := s.repo.SetCurrentRound(ctx, db, event.ID, next); err != nil {
		return AdvanceOutcome{}, err
	}
	event.CurrentRound = next

	created, n, err := s.advanceEliminationTx(ctx, db, event, next)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	fx.merge(created)
	fx.advanced = &tournamentevents.RoundAdvancedPayloadV1{EventID: event.ID, Phase: tournamentdomain.PhaseElimination, Round: next, OccurredAt: s.now()}
	return AdvanceOutcome{Advanced: true, NewRound: next, MatchesCreated: n}, nil
}

// SweepRounds re-checks the current round of every event with an active
// phase, catching completions whose triggering check failed.
func (s *TournamentService) SweepRounds(ctx context.Context) (SweepReport, error) {
	release, acquired, err := s.repo.TryLock(ctx, tournamentdomain.RoundSweepLockKey)
	if err != nil {
		return SweepReport{}, fmt.Errorf("failed to acquire round sweep lock: %w", err)
	}
	if !acquired {
		s.skipped(ctx, "round_sweep")
		return SweepReport{Skipped: true}, nil
	}
	defer s.release(ctx, "round_sweep", release)

	events, err := s.repo.ListUnlockedEvents(ctx, nil)
	if err != nil {
		return SweepReport{}, err
	}

	var report SweepReport
	for _, event := range events {
		if event.ActivePhase == nil {
			continue
		}
		report.EventsChecked++
		outcome, err := s.CheckRoundCompletion(ctx, event.ID, *event.ActivePhase, event.CurrentRound)
		if err != nil {
			report.EventsFailed++
			continue
		}
		if outcome.Advanced || outcome.PhaseCompleted {
			report.RoundsAdvanced++
		}
	}
	return report, nil
}

func (s *TournamentService) skipped(ctx context.Context, lock string) {
	s.logger.DebugContext(ctx, "Another instance holds the lock, skipping", attr.String("lock", lock))
	if s.metrics != nil {
		s.metrics.RecordLockSkipped(ctx, lock)
	}
}

func (s *TournamentService) release(ctx context.Context, lock string, release func(context.Context) error) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to release advisory lock", attr.String("lock", lock), attr.Error(err))
	}
}
