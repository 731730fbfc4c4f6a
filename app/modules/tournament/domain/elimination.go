package tournamentdomain

import (
	"bytes"
	"cmp"
	"math/bits"
	"slices"

	"github.com/google/uuid"
)

// SeedEntrant is a team's final swiss standing used for bracket seeding.
type SeedEntrant struct {
	ID       uuid.UUID
	Score    int
	Buchholz int
}

// EliminationRound is the set of pairings for one elimination round.
type EliminationRound struct {
	Pairings []Pairing
	// Placement is the third-place match between the two semi-final losers.
	Placement *Pairing
}

// BracketSize returns the largest power of two not greater than teamCount.
func BracketSize(teamCount int) int {
	if teamCount < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(teamCount)) - 1)
}

// SeedOrder maps bracket slot i to a seed index: i when i is even, n-i when odd.
// SeedOrder(8) is [0 7 2 5 4 3 6 1].
func SeedOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		if i%2 == 0 {
			order[i] = i
		} else {
			order[i] = n - i
		}
	}
	return order
}

// SeedBracket builds the first elimination round from the swiss standings.
// Only the top BracketSize(len(entrants)) teams qualify.
func SeedBracket(entrants []SeedEntrant) ([]Pairing, error) {
	size := BracketSize(len(entrants))
	if size < 2 {
		return nil, ErrInsufficientTeams
	}

	seeded := slices.Clone(entrants)
	slices.SortStableFunc(seeded, func(a, b SeedEntrant) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Buchholz, a.Buchholz); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	seeded = seeded[:size]

	order := SeedOrder(size)
	pairings := make([]Pairing, 0, size/2)
	for i := 0; i < size; i += 2 {
		p := Pairing{Team1: seeded[order[i]].ID, Team2: seeded[order[i+1]].ID}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		pairings = append(pairings, p)
	}
	return pairings, nil
}

// SortBracketOrder orders a round's matches by creation time, then slot.
func SortBracketOrder(matches []FinishedMatch) {
	slices.SortStableFunc(matches, func(a, b FinishedMatch) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Slot, b.Slot)
	})
}

// AdvanceBracket pairs the winners of adjacent matches of a completed round.
// When the round was the two semi-finals, the losers also meet in a placement match.
func AdvanceBracket(previous []FinishedMatch) (EliminationRound, error) {
	if len(previous) == 0 {
		return EliminationRound{}, ErrInsufficientTeams
	}
	if len(previous)%2 != 0 {
		return EliminationRound{}, ErrOddMatchCount
	}

	ordered := slices.Clone(previous)
	SortBracketOrder(ordered)

	var round EliminationRound
	for i := 0; i < len(ordered); i += 2 {
		a, b := ordered[i], ordered[i+1]
		if a.Winner == nil || b.Winner == nil {
			return EliminationRound{}, ErrMissingWinner
		}
		p := Pairing{Team1: *a.Winner, Team2: *b.Winner}
		if err := p.Validate(); err != nil {
			return EliminationRound{}, err
		}
		round.Pairings = append(round.Pairings, p)
	}

	if len(ordered) == 2 {
		l1, _ := ordered[0].Loser()
		l2, _ := ordered[1].Loser()
		placement := Pairing{Team1: l1, Team2: l2}
		if err := placement.Validate(); err != nil {
			return EliminationRound{}, err
		}
		round.Placement = &placement
	}
	return round, nil
}

// FinalRoundIndex is the zero-based index of the last elimination round for
// a bracket whose first round had firstRoundMatches matches.
func FinalRoundIndex(firstRoundMatches int) int {
	bracket := 2 * firstRoundMatches
	if bracket < 2 {
		return 0
	}
	return max(0, bits.Len(uint(bracket))-2)
}

// IsPlacementMatch reports whether both teams lost in the previous round.
func IsPlacementMatch(team1, team2 uuid.UUID, previous []FinishedMatch) bool {
	losers := make(map[uuid.UUID]bool, len(previous))
	for _, m := range previous {
		if l, ok := m.Loser(); ok {
			losers[l] = true
		}
	}
	return losers[team1] && losers[team2]
}
