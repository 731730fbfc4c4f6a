package tournamentservice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// errQueueChanged is returned when a picked team left the queue before it
// could be dequeued.
var errQueueChanged = errors.New("queue changed while matchmaking")

// JoinQueue puts a team into its event's matchmaking queue.
func (s *TournamentService) JoinQueue(ctx context.Context, eventID, teamID uuid.UUID) error {
	return s.setQueued(ctx, "JoinQueue", eventID, teamID, true)
}

// LeaveQueue takes a team out of its event's matchmaking queue.
func (s *TournamentService) LeaveQueue(ctx context.Context, eventID, teamID uuid.UUID) error {
	return s.setQueued(ctx, "LeaveQueue", eventID, teamID, false)
}

func (s *TournamentService) setQueued(ctx context.Context, operation string, eventID, teamID uuid.UUID, queued bool) error {
	result, err := withTelemetry(s, ctx, operation, teamID.String(), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		event, err := s.repo.GetEvent(ctx, nil, eventID)
		if err != nil {
			if errors.Is(err, tournamentdb.ErrNotFound) {
				return results.FailureResult[bool, error](err), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		if event.LockedAt != nil {
			return results.FailureResult[bool, error](ErrEventLocked), nil
		}

		team, err := s.repo.GetTeam(ctx, nil, teamID)
		if err != nil {
			if errors.Is(err, tournamentdb.ErrNotFound) {
				return results.FailureResult[bool, error](err), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		if team.EventID != eventID {
			return results.FailureResult[bool, error](ErrTeamNotInEvent), nil
		}
		if queued {
			busy, err := s.repo.ListBusyTeams(ctx, nil, eventID, tournamentdomain.PhaseQueue)
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			if slices.Contains(busy, teamID) {
				return results.FailureResult[bool, error](ErrTeamInMatch), nil
			}
		}

		var queuedAt *time.Time
		if queued {
			now := s.now()
			queuedAt = &now
		}
		if err := s.repo.SetInQueue(ctx, nil, teamID, queued, queuedAt); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	})
	_, err = unwrap(result, err)
	return err
}

// RunMatchmaking pairs random queued teams of every event in its active
// window. Only one instance runs a pass at a time; the others skip it.
func (s *TournamentService) RunMatchmaking(ctx context.Context) (MatchmakingReport, error) {
	release, acquired, err := s.repo.TryLock(ctx, tournamentdomain.MatchmakingLockKey)
	if err != nil {
		return MatchmakingReport{}, fmt.Errorf("failed to acquire matchmaking lock: %w", err)
	}
	if !acquired {
		s.skipped(ctx, "matchmaking")
		return MatchmakingReport{Skipped: true}, nil
	}
	defer s.release(ctx, "matchmaking", release)

	events, err := s.repo.ListQueueEvents(ctx, nil)
	if err != nil {
		return MatchmakingReport{}, err
	}

	now := s.now()
	var report MatchmakingReport
	for _, event := range events {
		if !tournamentdomain.WindowActive(event.StartsAt, event.EndsAt, event.LockedAt, now) {
			continue
		}
		report.EventsVisited++

		created, err := s.matchmakeEvent(ctx, event)
		if err != nil {
			report.EventsFailed++
			s.logger.ErrorContext(ctx, "Matchmaking failed for event",
				attr.ExtractCorrelationID(ctx),
				attr.EventID(event.ID),
				attr.Error(err),
			)
			continue
		}
		report.MatchesCreated += created
	}
	return report, nil
}

func (s *TournamentService) matchmakeEvent(ctx context.Context, event *tournamentdb.Event) (int, error) {
	var fx effects
	result, err := withTelemetry(s, ctx, "MatchmakeEvent", event.ID.String(), func(ctx context.Context) (results.OperationResult[int, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
			fx = effects{}
			return s.matchmakeEventLogic(ctx, db, event, &fx)
		})
	})
	created, err := unwrap(result, err)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, fx)
	return created, nil
}

func (s *TournamentService) matchmakeEventLogic(ctx context.Context, db bun.IDB, event *tournamentdb.Event, fx *effects) (results.OperationResult[int, error], error) {
	listed, err := s.repo.ListQueuedTeams(ctx, db, event.ID)
	if err != nil {
		return results.OperationResult[int, error]{}, err
	}
	busy, err := s.repo.ListBusyTeams(ctx, db, event.ID, tournamentdomain.PhaseQueue)
	if err != nil {
		return results.OperationResult[int, error]{}, err
	}
	// Teams still playing stay queued until their match finishes.
	queued := slices.DeleteFunc(listed, func(t *tournamentdb.Team) bool {
		return slices.Contains(busy, t.ID)
	})
	if len(queued) < 2 {
		return results.SuccessResult[int, error](0), nil
	}

	lookup := make(map[uuid.UUID]*tournamentdb.Team, len(queued))
	for _, t := range queued {
		lookup[t.ID] = t
	}

	slot, err := s.repo.CountMatches(ctx, db, event.ID, tournamentdomain.PhaseQueue, 0)
	if err != nil {
		return results.OperationResult[int, error]{}, err
	}

	pool := append([]*tournamentdb.Team(nil), queued...)
	var pairings []tournamentdomain.Pairing
	for len(pool) >= 2 {
		first := s.takeRandom(&pool)
		second := s.takeRandom(&pool)

		n, err := s.repo.DequeueTeams(ctx, db, []uuid.UUID{first.ID, second.ID})
		if err != nil {
			return results.OperationResult[int, error]{}, err
		}
		if n != 2 {
			return results.OperationResult[int, error]{}, errQueueChanged
		}
		pairings = append(pairings, tournamentdomain.Pairing{Team1: first.ID, Team2: second.ID})
	}

	created, err := s.createMatchesTx(ctx, db, event.ID, tournamentdomain.PhaseQueue, 0, slot, pairings)
	if err != nil {
		return results.OperationResult[int, error]{}, err
	}
	dispatches, err := s.startMatchesTx(ctx, db, event, created, lookup)
	if err != nil {
		return results.OperationResult[int, error]{}, err
	}
	fx.dispatches = append(fx.dispatches, dispatches...)
	return results.SuccessResult[int, error](len(created)), nil
}

// takeRandom removes and returns a uniformly chosen team from pool.
func (s *TournamentService) takeRandom(pool *[]*tournamentdb.Team) *tournamentdb.Team {
	p := *pool
	i := s.pick(len(p))
	picked := p[i]
	p[i] = p[len(p)-1]
	*pool = p[:len(p)-1]
	return picked
}
