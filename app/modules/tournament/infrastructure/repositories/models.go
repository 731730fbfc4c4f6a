package tournamentdb

import (
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Event is a running competition with its own team pool and round counter.
type Event struct {
	bun.BaseModel `bun:"table:tournament_events,alias:e"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Name         string    `bun:"name,notnull"`
	MinTeamSize  int       `bun:"min_team_size,notnull"`
	MaxTeamSize  int       `bun:"max_team_size,notnull"`
	StartsAt     time.Time `bun:"starts_at,notnull"`
	EndsAt       time.Time `bun:"ends_at,notnull"`
	CurrentRound int       `bun:"current_round,notnull,default:0"`
	// ActivePhase is the progressive phase currently running, nil between phases.
	ActivePhase  *tournamentdomain.Phase `bun:"active_phase,nullzero"`
	LockedAt     *time.Time              `bun:"locked_at,nullzero"`
	ProcessQueue bool                    `bun:"process_queue,notnull,default:false"`
	ServerImage  string                  `bun:"server_image,notnull,default:''"`
	GameConfig   map[string]any          `bun:"game_config,type:jsonb,nullzero"`
	CreatedAt    time.Time               `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time               `bun:"updated_at,notnull,default:current_timestamp"`
}

// Team is a competitor registered for one event.
type Team struct {
	bun.BaseModel `bun:"table:tournament_teams,alias:t"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid"`
	EventID        uuid.UUID  `bun:"event_id,type:uuid,notnull"`
	Name           string     `bun:"name,notnull"`
	Score          int        `bun:"score,notnull,default:0"`
	BuchholzPoints int        `bun:"buchholz_points,notnull,default:0"`
	QueueScore     int        `bun:"queue_score,notnull,default:1000"`
	HadBye         bool       `bun:"had_bye,notnull,default:false"`
	InQueue        bool       `bun:"in_queue,notnull,default:false"`
	QueuedAt       *time.Time `bun:"queued_at,nullzero"`
	DockerImage    string     `bun:"docker_image,notnull,default:''"`
	RepositoryName string     `bun:"repository_name,notnull,default:''"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// Match is a single game between two teams.
type Match struct {
	bun.BaseModel `bun:"table:tournament_matches,alias:m"`

	ID         uuid.UUID                   `bun:"id,pk,type:uuid"`
	EventID    uuid.UUID                   `bun:"event_id,type:uuid,notnull"`
	Phase      tournamentdomain.Phase      `bun:"phase,notnull"`
	Round      int                         `bun:"round,notnull"`
	State      tournamentdomain.MatchState `bun:"state,notnull"`
	Team1ID    uuid.UUID                   `bun:"team1_id,type:uuid,notnull"`
	Team2ID    uuid.UUID                   `bun:"team2_id,type:uuid,notnull"`
	WinnerID   *uuid.UUID                  `bun:"winner_id,type:uuid,nullzero"`
	IsRevealed bool                        `bun:"is_revealed,notnull,default:false"`
	Slot       int                         `bun:"slot,notnull,default:0"`
	CreatedAt  time.Time                   `bun:"created_at,notnull"`
	StartedAt  *time.Time                  `bun:"started_at,nullzero"`
	FinishedAt *time.Time                  `bun:"finished_at,nullzero"`

	Results []*MatchResult `bun:"rel:has-many,join:id=match_id"`
}

// MatchResult is one team's outcome of a finished match.
type MatchResult struct {
	bun.BaseModel `bun:"table:tournament_match_results,alias:r"`

	MatchID uuid.UUID              `bun:"match_id,pk,type:uuid"`
	TeamID  uuid.UUID              `bun:"team_id,pk,type:uuid"`
	Score   int                    `bun:"score,notnull"`
	Stats   tournamentdomain.Stats `bun:"stats,type:jsonb,nullzero"`
}

// Finished converts m to the minimal view used by bracket math.
func (m *Match) Finished() tournamentdomain.FinishedMatch {
	return tournamentdomain.FinishedMatch{
		ID:        m.ID,
		Team1:     m.Team1ID,
		Team2:     m.Team2ID,
		Winner:    m.WinnerID,
		CreatedAt: m.CreatedAt,
		Slot:      m.Slot,
	}
}

// View converts m to its read model.
func (m *Match) View() tournamentdomain.MatchView {
	results := make([]tournamentdomain.ResultView, 0, len(m.Results))
	for _, r := range m.Results {
		results = append(results, tournamentdomain.ResultView{TeamID: r.TeamID, Score: r.Score, Stats: r.Stats})
	}
	return tournamentdomain.MatchView{
		ID:         m.ID,
		EventID:    m.EventID,
		Phase:      m.Phase,
		Round:      m.Round,
		State:      m.State,
		Team1ID:    m.Team1ID,
		Team2ID:    m.Team2ID,
		WinnerID:   m.WinnerID,
		IsRevealed: m.IsRevealed,
		Results:    results,
		CreatedAt:  m.CreatedAt,
	}
}

// Opponent returns the other team of the match.
func (m *Match) Opponent(teamID uuid.UUID) uuid.UUID {
	if m.Team1ID == teamID {
		return m.Team2ID
	}
	return m.Team1ID
}

// HasTeam reports whether teamID plays in m.
func (m *Match) HasTeam(teamID uuid.UUID) bool {
	return m.Team1ID == teamID || m.Team2ID == teamID
}
