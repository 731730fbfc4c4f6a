// Package tournamentevents defines the NATS subjects and payloads the
// tournament engine consumes and produces.
package tournamentevents

import (
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	"github.com/google/uuid"
)

// Stream that carries every tournament subject.
const (
	StreamName    = "tournament"
	StreamSubject = "tournament.>"
)

const (
	// MatchDispatchRequestedV1 asks the execution layer to run a started match.
	MatchDispatchRequestedV1 = "tournament.match.dispatch.requested.v1"
	// MatchFinishedV1 carries a match outcome back from the execution layer.
	MatchFinishedV1 = "tournament.match.finished.v1"
	// RoundAdvancedV1 is published after an event moves to its next round.
	RoundAdvancedV1 = "tournament.round.advanced.v1"
	// PhaseCompletedV1 is published when a swiss or elimination phase ends.
	PhaseCompletedV1 = "tournament.phase.completed.v1"
	// RepositoryAccessRevokedV1 asks the provisioning layer to freeze a team's repository.
	RepositoryAccessRevokedV1 = "tournament.team.repository.revoked.v1"
	// RepositoryAccessGrantedV1 asks the provisioning layer to restore a team's repository.
	RepositoryAccessGrantedV1 = "tournament.team.repository.granted.v1"
)

// DispatchTeamV1 is one side of a dispatched match.
type DispatchTeamV1 struct {
	TeamID      uuid.UUID `json:"team_id"`
	Name        string    `json:"name"`
	DockerImage string    `json:"docker_image"`
}

// MatchDispatchRequestedPayloadV1 is everything the execution layer needs to run a match.
type MatchDispatchRequestedPayloadV1 struct {
	MatchID     uuid.UUID              `json:"match_id"`
	EventID     uuid.UUID              `json:"event_id"`
	Phase       tournamentdomain.Phase `json:"phase"`
	Round       int                    `json:"round"`
	ServerImage string                 `json:"server_image"`
	GameConfig  map[string]any         `json:"game_config,omitempty"`
	Teams       [2]DispatchTeamV1      `json:"teams"`
}

// MatchFinishedPayloadV1 reports the outcome of an executed match.
type MatchFinishedPayloadV1 struct {
	MatchID  uuid.UUID                            `json:"match_id"`
	WinnerID uuid.UUID                            `json:"winner_id"`
	Stats    map[uuid.UUID]tournamentdomain.Stats `json:"stats,omitempty"`
}

// RoundAdvancedPayloadV1 announces the round an event moved to.
type RoundAdvancedPayloadV1 struct {
	EventID    uuid.UUID              `json:"event_id"`
	Phase      tournamentdomain.Phase `json:"phase"`
	Round      int                    `json:"round"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// PhaseCompletedPayloadV1 announces that a phase has no further rounds.
type PhaseCompletedPayloadV1 struct {
	EventID    uuid.UUID              `json:"event_id"`
	Phase      tournamentdomain.Phase `json:"phase"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// RepositoryAccessPayloadV1 identifies the team repository to revoke or grant.
type RepositoryAccessPayloadV1 struct {
	EventID        uuid.UUID `json:"event_id"`
	TeamID         uuid.UUID `json:"team_id"`
	RepositoryName string    `json:"repository_name"`
}
