package tournamentservice

import (
	"context"
	"fmt"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StartSwissPhase activates the swiss phase and pairs its first round.
// It returns the number of matches created.
func (s *TournamentService) StartSwissPhase(ctx context.Context, eventID uuid.UUID) (int, error) {
	return s.startPhase(ctx, "StartSwissPhase", eventID, tournamentdomain.PhaseSwiss,
		func(ctx context.Context, db bun.IDB, event *tournamentdb.Event) (effects, int, error) {
			return s.pairSwissRoundTx(ctx, db, event, 0)
		})
}

// StartEliminationPhase activates the elimination phase and seeds its
// bracket from the swiss standings.
func (s *TournamentService) StartEliminationPhase(ctx context.Context, eventID uuid.UUID) (int, error) {
	return s.startPhase(ctx, "StartEliminationPhase", eventID, tournamentdomain.PhaseElimination, s.seedEliminationTx)
}

type phaseOpener func(ctx context.Context, db bun.IDB, event *tournamentdb.Event) (effects, int, error)

func (s *TournamentService) startPhase(ctx context.Context, operation string, eventID uuid.UUID, phase tournamentdomain.Phase, open phaseOpener) (int, error) {
	var fx effects
	result, err := withTelemetry(s, ctx, operation, eventID.String(), func(ctx context.Context) (results.OperationResult[int, error], error) {
		return asFailure(runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
			fx = effects{}
			event, err := s.lockEvent(ctx, db, eventID)
			if err != nil {
				return results.OperationResult[int, error]{}, err
			}
			if event.LockedAt != nil {
				return results.OperationResult[int, error]{}, ErrEventLocked
			}
			if event.ActivePhase != nil {
				return results.OperationResult[int, error]{}, fmt.Errorf("%w: %s is running", ErrPhaseActive, *event.ActivePhase)
			}

			if err := s.repo.SetActivePhase(ctx, db, eventID, &phase); err != nil {
				return results.OperationResult[int, error]{}, err
			}
			if err := s.repo.SetCurrentRound(ctx, db, eventID, 0); err != nil {
				return results.OperationResult[int, error]{}, err
			}
			event.ActivePhase = &phase
			event.CurrentRound = 0

			opened, created, err := open(ctx, db, event)
			if err != nil {
				return results.OperationResult[int, error]{}, err
			}
			fx.merge(opened)
			return results.SuccessResult[int, error](created), nil
		}))
	})
	created, err := unwrap(result, err)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, fx)
	return created, nil
}

// CleanupPhase deletes every match of a phase so it can be replayed. Swiss
// cleanup also resets scores, byes and Buchholz points. It returns the
// number of matches deleted.
func (s *TournamentService) CleanupPhase(ctx context.Context, eventID uuid.UUID, phase tournamentdomain.Phase) (int, error) {
	result, err := withTelemetry(s, ctx, "CleanupPhase", eventID.String(), func(ctx context.Context) (results.OperationResult[int, error], error) {
		if !phase.Valid() {
			return results.FailureResult[int, error](ErrInvalidPhase), nil
		}
		return asFailure(runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
			event, err := s.lockEvent(ctx, db, eventID)
			if err != nil {
				return results.OperationResult[int, error]{}, err
			}

			deleted, err := s.repo.DeletePhase(ctx, db, eventID, phase)
			if err != nil {
				return results.OperationResult[int, error]{}, err
			}
			if phase == tournamentdomain.PhaseSwiss {
				if err := s.repo.ResetSwissStandings(ctx, db, eventID); err != nil {
					return results.OperationResult[int, error]{}, err
				}
			}

			if phase.Progressive() && (event.ActivePhase == nil || *event.ActivePhase == phase) {
				if err := s.repo.SetCurrentRound(ctx, db, eventID, 0); err != nil {
					return results.OperationResult[int, error]{}, err
				}
				if event.ActivePhase != nil {
					if err := s.repo.SetActivePhase(ctx, db, eventID, nil); err != nil {
						return results.OperationResult[int, error]{}, err
					}
				}
			}
			return results.SuccessResult[int, error](deleted), nil
		}))
	})
	return unwrap(result, err)
}

// lockEvent takes the event's transaction lock and loads it.
func (s *TournamentService) lockEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) (*tournamentdb.Event, error) {
	k1, k2 := tournamentdomain.EventLockKeys(eventID)
	if err := s.repo.AcquireEventLock(ctx, db, k1, k2); err != nil {
		return nil, fmt.Errorf("failed to acquire event lock: %w", err)
	}
	event, err := s.repo.GetEvent(ctx, db, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return event, nil
}
