package tournamentdomain

import "math"

const (
	// DefaultRating is the queue rating every team starts with.
	DefaultRating = 1000
	// RatingK is the Elo K-factor applied to every queue match.
	RatingK = 32
)

// ExpectedScore is the Elo win expectation of a team rated r against a team rated opponent.
func ExpectedScore(r, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-r)/400))
}

// UpdateRatings applies one Elo update for a decided match and returns the
// new winner and loser ratings. Ratings never drop below zero.
func UpdateRatings(winner, loser int) (newWinner, newLoser int) {
	expectedWinner := ExpectedScore(winner, loser)
	expectedLoser := 1 - expectedWinner

	newWinner = int(math.Round(float64(winner) + RatingK*(1-expectedWinner)))
	newLoser = max(0, int(math.Round(float64(loser)-RatingK*expectedLoser)))
	return newWinner, newLoser
}
