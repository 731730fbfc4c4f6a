package tournamenthandlers

import (
	"context"

	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
)

// Handlers defines the interface for tournament event handlers.
type Handlers interface {
	// HandleMatchFinished records a match outcome reported by the execution layer.
	HandleMatchFinished(ctx context.Context, payload *tournamentevents.MatchFinishedPayloadV1) error
}
