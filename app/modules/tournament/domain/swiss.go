package tournamentdomain

import (
	"bytes"
	"cmp"
	"math/bits"
	"slices"

	"github.com/google/uuid"
)

// swissSearchBudget bounds the rematch-avoiding search before it gives up
// and pairs by standing alone.
const swissSearchBudget = 10_000

// SwissEntrant is a team's standing going into a swiss round.
type SwissEntrant struct {
	ID     uuid.UUID
	Score  int
	HadBye bool
	// Avoid lists teams this entrant has already played.
	Avoid []uuid.UUID
}

// SwissRound is the outcome of pairing one swiss round.
type SwissRound struct {
	Pairings []Pairing
	// Bye is the team sitting out this round, if the field was odd.
	Bye *uuid.UUID
}

// MaxSwissRounds is ceil(log2(teamCount)), the number of rounds played
// before the swiss phase completes.
func MaxSwissRounds(teamCount int) int {
	if teamCount < 2 {
		return 0
	}
	return bits.Len(uint(teamCount - 1))
}

// PairSwissRound pairs entrants for the given zero-based round.
//
// Entrants are ranked by score, highest first. With an odd field the
// lowest-ranked entrant that has not had a bye sits out; if all have had one
// the lowest-ranked entrant does. The rest are paired top-down against the
// nearest-ranked opponent they have not played yet, falling back to allowing
// rematches when no such assignment is found within the search budget.
func PairSwissRound(entrants []SwissEntrant, round int) (SwissRound, error) {
	if len(entrants) < 2 {
		return SwissRound{}, ErrInsufficientTeams
	}
	if round >= MaxSwissRounds(len(entrants)) {
		return SwissRound{}, ErrMaxSwissRoundsReached
	}

	ranked := RankSwiss(entrants)

	var result SwissRound
	if len(ranked)%2 == 1 {
		idx := byeIndex(ranked)
		bye := ranked[idx].ID
		result.Bye = &bye
		ranked = slices.Delete(ranked, idx, idx+1)
	}

	played := make(map[[2]uuid.UUID]bool)
	for _, e := range ranked {
		for _, opp := range e.Avoid {
			played[pairKey(e.ID, opp)] = true
		}
	}

	ids := make([]uuid.UUID, len(ranked))
	for i, e := range ranked {
		ids[i] = e.ID
	}

	budget := swissSearchBudget
	pairings, ok := pairStandings(ids, played, &budget)
	if !ok {
		pairings = pairInOrder(ids)
	}

	for _, p := range pairings {
		if err := p.Validate(); err != nil {
			return SwissRound{}, err
		}
	}
	result.Pairings = pairings
	return result, nil
}

// RankSwiss returns entrants sorted by score descending with a stable id tie-break.
func RankSwiss(entrants []SwissEntrant) []SwissEntrant {
	ranked := slices.Clone(entrants)
	slices.SortStableFunc(ranked, func(a, b SwissEntrant) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return ranked
}

func byeIndex(ranked []SwissEntrant) int {
	for i := len(ranked) - 1; i >= 0; i-- {
		if !ranked[i].HadBye {
			return i
		}
	}
	return len(ranked) - 1
}

// pairStandings does a depth-first search for a full pairing without
// rematches. The first unpaired team always takes the best-ranked legal opponent.
func pairStandings(ids []uuid.UUID, played map[[2]uuid.UUID]bool, budget *int) ([]Pairing, bool) {
	if len(ids) == 0 {
		return nil, true
	}
	first := ids[0]
	for j := 1; j < len(ids); j++ {
		if played[pairKey(first, ids[j])] {
			continue
		}
		*budget--
		if *budget <= 0 {
			return nil, false
		}

		rest := make([]uuid.UUID, 0, len(ids)-2)
		rest = append(rest, ids[1:j]...)
		rest = append(rest, ids[j+1:]...)

		if tail, ok := pairStandings(rest, played, budget); ok {
			return append([]Pairing{{Team1: first, Team2: ids[j]}}, tail...), true
		}
		if *budget <= 0 {
			return nil, false
		}
	}
	return nil, false
}

func pairInOrder(ids []uuid.UUID) []Pairing {
	pairings := make([]Pairing, 0, len(ids)/2)
	for i := 0; i+1 < len(ids); i += 2 {
		pairings = append(pairings, Pairing{Team1: ids[i], Team2: ids[i+1]})
	}
	return pairings
}

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}
