package tournamenthandlers

import (
	"context"
	"errors"
	"log/slog"

	tournamentservice "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/application"
	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TournamentHandlers implements the Handlers interface.
type TournamentHandlers struct {
	service tournamentservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewTournamentHandlers creates a new TournamentHandlers instance.
func NewTournamentHandlers(
	service tournamentservice.Service,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &TournamentHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

// HandleMatchFinished records the reported winner. Reports that can never
// succeed are logged and dropped; anything else is returned for redelivery.
func (h *TournamentHandlers) HandleMatchFinished(ctx context.Context, payload *tournamentevents.MatchFinishedPayloadV1) error {
	ctx, span := h.tracer.Start(ctx, "TournamentHandlers.HandleMatchFinished")
	defer span.End()

	if payload.MatchID == uuid.Nil || payload.WinnerID == uuid.Nil {
		h.logger.WarnContext(ctx, "Dropping match report without ids",
			attr.ExtractCorrelationID(ctx),
			attr.MatchID(payload.MatchID),
		)
		return nil
	}

	err := h.service.FinishMatch(ctx, payload.MatchID, payload.WinnerID, payload.Stats)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tournamentservice.ErrInvalidTransition):
		// Redelivered report for a match that is already finished.
		h.logger.InfoContext(ctx, "Ignoring report for match not in progress",
			attr.ExtractCorrelationID(ctx),
			attr.MatchID(payload.MatchID),
		)
		return nil
	case errors.Is(err, tournamentservice.ErrWinnerNotParticipant), errors.Is(err, tournamentdb.ErrNotFound):
		h.logger.WarnContext(ctx, "Dropping invalid match report",
			attr.ExtractCorrelationID(ctx),
			attr.MatchID(payload.MatchID),
			attr.UUID("winner_id", payload.WinnerID),
			attr.Error(err),
		)
		return nil
	default:
		span.RecordError(err)
		return err
	}
}
