package tournamentservice

import (
	"context"
	"fmt"

	tournamentdomain "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// pairSwissRoundTx creates and starts the matches of a swiss round. It does
// nothing when the round already has matches.
func (s *TournamentService) pairSwissRoundTx(ctx context.Context, db bun.IDB, event *tournamentdb.Event, round int) (effects, int, error) {
	existing, err := s.repo.CountMatches(ctx, db, event.ID, tournamentdomain.PhaseSwiss, round)
	if err != nil {
		return effects{}, 0, err
	}
	if existing > 0 {
		return effects{}, 0, nil
	}

	teams, err := s.repo.ListTeams(ctx, db, event.ID)
	if err != nil {
		return effects{}, 0, err
	}

	phase := tournamentdomain.PhaseSwiss
	played, err := s.repo.ListMatches(ctx, db, tournamentdb.MatchFilter{EventID: event.ID, Phase: &phase})
	if err != nil {
		return effects{}, 0, err
	}
	avoid := make(map[uuid.UUID][]uuid.UUID, len(teams))
	for _, m := range played {
		avoid[m.Team1ID] = append(avoid[m.Team1ID], m.Team2ID)
		avoid[m.Team2ID] = append(avoid[m.Team2ID], m.Team1ID)
	}

	entrants := make([]tournamentdomain.SwissEntrant, 0, len(teams))
	lookup := make(map[uuid.UUID]*tournamentdb.Team, len(teams))
	for _, t := range teams {
		lookup[t.ID] = t
		entrants = append(entrants, tournamentdomain.SwissEntrant{
			ID:     t.ID,
			Score:  t.Score,
			HadBye: t.HadBye,
			Avoid:  avoid[t.ID],
		})
	}

	paired, err := tournamentdomain.PairSwissRound(entrants, round)
	if err != nil {
		return effects{}, 0, fmt.Errorf("failed to pair swiss round %d: %w", round, err)
	}
	if paired.Bye != nil {
		if err := s.repo.MarkBye(ctx, db, *paired.Bye); err != nil {
			return effects{}, 0, err
		}
	}

	return s.createAndStartTx(ctx, db, event, phase, round, paired.Pairings, lookup)
}

// seedEliminationTx creates and starts the first elimination round from the
// final swiss standings.
func (s *TournamentService) seedEliminationTx(ctx context.Context, db bun.IDB, event *tournamentdb.Event) (effects, int, error) {
	phase := tournamentdomain.PhaseElimination
	existing, err := s.repo.CountMatches(ctx, db, event.ID, phase, 0)
	if err != nil {
		return effects{}, 0, err
	}
	if existing > 0 {
		return effects{}, 0, nil
	}

	teams, err := s.teamLookup(ctx, db, event.ID)
	if err != nil {
		return effects{}, 0, err
	}
	entrants := make([]tournamentdomain.SeedEntrant, 0, len(teams))
	for _, t := range teams {
		entrants = append(entrants, tournamentdomain.SeedEntrant{ID: t.ID, Score: t.Score, Buchholz: t.BuchholzPoints})
	}

	pairings, err := tournamentdomain.SeedBracket(entrants)
	if err != nil {
		return effects{}, 0, fmt.Errorf("failed to seed bracket: %w", err)
	}
	return s.createAndStartTx(ctx, db, event, phase, 0, pairings, teams)
}

// advanceEliminationTx creates and starts elimination round from the
// winners of the round before it, plus the placement match after the
// semi-finals.
func (s *TournamentService) advanceEliminationTx(ctx context.Context, db bun.IDB, event *tournamentdb.Event, round int) (effects, int, error) {
	phase := tournamentdomain.PhaseElimination
	existing, err := s.repo.CountMatches(ctx, db, event.ID, phase, round)
	if err != nil {
		return effects{}, 0, err
	}
	if existing > 0 {
		return effects{}, 0, nil
	}

	prevRound := round - 1
	previous, err := s.repo.ListMatches(ctx, db, tournamentdb.MatchFilter{EventID: event.ID, Phase: &phase, Round: &prevRound})
	if err != nil {
		return effects{}, 0, err
	}
	finished := make([]tournamentdomain.FinishedMatch, 0, len(previous))
	for _, m := range previous {
		finished = append(finished, m.Finished())
	}

	next, err := tournamentdomain.AdvanceBracket(finished)
	if err != nil {
		return effects{}, 0, fmt.Errorf("failed to advance bracket to round %d: %w", round, err)
	}
	pairings := next.Pairings
	if next.Placement != nil {
		pairings = append(pairings, *next.Placement)
	}

	teams, err := s.teamLookup(ctx, db, event.ID)
	if err != nil {
		return effects{}, 0, err
	}
	return s.createAndStartTx(ctx, db, event, phase, round, pairings, teams)
}

func (s *TournamentService) createAndStartTx(ctx context.Context, db bun.IDB, event *tournamentdb.Event, phase tournamentdomain.Phase, round int, pairings []tournamentdomain.Pairing, teams map[uuid.UUID]*tournamentdb.Team) (effects, int, error) {
	created, err := s.createMatchesTx(ctx, db, event.ID, phase, round, 0, pairings)
	if err != nil {
		return effects{}, 0, err
	}
	dispatches, err := s.startMatchesTx(ctx, db, event, created, teams)
	if err != nil {
		return effects{}, 0, err
	}
	return effects{dispatches: dispatches}, len(created), nil
}
