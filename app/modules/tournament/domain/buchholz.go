package tournamentdomain

import "github.com/google/uuid"

// ComputeBuchholz returns, for every team in scores, the sum of the final
// scores of the opponents it defeated.
func ComputeBuchholz(matches []FinishedMatch, scores map[uuid.UUID]int) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(scores))
	for id := range scores {
		out[id] = 0
	}
	for _, m := range matches {
		if m.Winner == nil {
			continue
		}
		loser, _ := m.Loser()
		out[*m.Winner] += scores[loser]
	}
	return out
}
