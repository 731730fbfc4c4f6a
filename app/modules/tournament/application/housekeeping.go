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
)

// RunHousekeeping locks every event whose window has ended and revokes its
// teams' repository access. A failed revoke is logged and does not stop the
// other teams or events.
func (s *TournamentService) RunHousekeeping(ctx context.Context) (HousekeepingReport, error) {
	release, acquired, err := s.repo.TryLock(ctx, tournamentdomain.HousekeepingLockKey)
	if err != nil {
		return HousekeepingReport{}, fmt.Errorf("failed to acquire housekeeping lock: %w", err)
	}
	if !acquired {
		s.skipped(ctx, "housekeeping")
		return HousekeepingReport{Skipped: true}, nil
	}
	defer s.release(ctx, "housekeeping", release)

	now := s.now()
	events, err := s.repo.ListExpiredEvents(ctx, nil, now)
	if err != nil {
		return HousekeepingReport{}, err
	}

	var report HousekeepingReport
	for _, event := range events {
		if err := s.repo.SetLockedAt(ctx, nil, event.ID, &now); err != nil {
			s.logger.ErrorContext(ctx, "Failed to lock expired event",
				attr.EventID(event.ID),
				attr.Error(err),
			)
			continue
		}
		report.EventsLocked++
		s.logger.InfoContext(ctx, "Event locked", attr.EventID(event.ID), attr.Time("locked_at", now))

		report.AccessFailed += s.forEachTeam(ctx, event.ID, accessRevoke)
	}
	return report, nil
}

// UnlockEvent clears an event's lock and restores its teams' repository access.
func (s *TournamentService) UnlockEvent(ctx context.Context, eventID uuid.UUID) error {
	result, err := withTelemetry(s, ctx, "UnlockEvent", eventID.String(), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if err := s.repo.SetLockedAt(ctx, nil, eventID, nil); err != nil {
			if errors.Is(err, tournamentdb.ErrNotFound) {
				return results.FailureResult[bool, error](err), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		s.forEachTeam(ctx, eventID, accessGrant)
		return results.SuccessResult[bool, error](true), nil
	})
	_, err = unwrap(result, err)
	return err
}

const (
	accessRevoke = "revoke"
	accessGrant  = "grant"
)

// forEachTeam applies an access change to every team of the event and
// returns how many calls failed.
func (s *TournamentService) forEachTeam(ctx context.Context, eventID uuid.UUID, action string) int {
	if s.access == nil {
		return 0
	}
	apply := s.access.Grant
	if action == accessRevoke {
		apply = s.access.Revoke
	}
	teams, err := s.repo.ListTeams(ctx, nil, eventID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list teams for repository access",
			attr.EventID(eventID),
			attr.String("action", action),
			attr.Error(err),
		)
		return 1
	}

	failed := 0
	for _, team := range teams {
		payload := tournamentevents.RepositoryAccessPayloadV1{
			EventID:        eventID,
			TeamID:         team.ID,
			RepositoryName: team.RepositoryName,
		}
		if err := apply(ctx, payload); err != nil {
			failed++
			s.logger.ErrorContext(ctx, "Repository access change failed",
				attr.EventID(eventID),
				attr.TeamID(team.ID),
				attr.String("action", action),
				attr.Error(err),
			)
		}
	}
	return failed
}
