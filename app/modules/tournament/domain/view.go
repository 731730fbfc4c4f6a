package tournamentdomain

import (
	"time"

	"github.com/google/uuid"
)

// ResultView is one team's recorded outcome of a match.
type ResultView struct {
	TeamID uuid.UUID `json:"team_id"`
	Score  int       `json:"score"`
	Stats  Stats     `json:"stats,omitempty"`
}

// MatchView is the read model of a match handed to callers.
type MatchView struct {
	ID          uuid.UUID    `json:"id"`
	EventID     uuid.UUID    `json:"event_id"`
	Phase       Phase        `json:"phase"`
	Round       int          `json:"round"`
	State       MatchState   `json:"state"`
	Team1ID     uuid.UUID    `json:"team1_id"`
	Team2ID     uuid.UUID    `json:"team2_id"`
	WinnerID    *uuid.UUID   `json:"winner_id,omitempty"`
	IsRevealed  bool         `json:"is_revealed"`
	IsPlacement bool         `json:"is_placement_match"`
	Results     []ResultView `json:"results"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Viewer describes who is reading a match.
type Viewer struct {
	IsEventAdmin bool
	// RevealQuery is set when an admin explicitly asks for hidden outcomes.
	RevealQuery bool
}

// SeesOutcome reports whether the viewer may see the true state of a match.
func (v Viewer) SeesOutcome(revealed bool) bool {
	return revealed || (v.IsEventAdmin && v.RevealQuery)
}

// MaskFor returns the view as v is allowed to see it. Unrevealed matches
// look PLANNED with no winner and no results.
func (m MatchView) MaskFor(v Viewer) MatchView {
	if v.SeesOutcome(m.IsRevealed) {
		return m
	}
	m.State = MatchPlanned
	m.WinnerID = nil
	m.Results = []ResultView{}
	return m
}
