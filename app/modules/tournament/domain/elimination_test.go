package tournamentdomain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedOrder(t *testing.T) {
	assert.Equal(t, []int{0, 7, 2, 5, 4, 3, 6, 1}, SeedOrder(8))
	assert.Equal(t, []int{0, 3, 2, 1}, SeedOrder(4))
	assert.Equal(t, []int{0, 1}, SeedOrder(2))
}

func TestBracketSize(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 1, 2: 2, 3: 2, 7: 4, 8: 8, 12: 8, 16: 16, 31: 16} {
		assert.Equal(t, want, BracketSize(n), "teams=%d", n)
	}
}

func TestSeedBracket(t *testing.T) {
	t.Run("eight teams", func(t *testing.T) {
		entrants := make([]SeedEntrant, 0, 8)
		for i := 8; i >= 1; i-- {
			// teamID(1) is the best seed
			entrants = append(entrants, SeedEntrant{ID: teamID(i), Score: 8 - i})
		}

		got, err := SeedBracket(entrants)
		require.NoError(t, err)

		want := []Pairing{
			{Team1: teamID(1), Team2: teamID(8)},
			{Team1: teamID(3), Team2: teamID(6)},
			{Team1: teamID(5), Team2: teamID(4)},
			{Team1: teamID(7), Team2: teamID(2)},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("SeedBracket() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("buchholz breaks score ties and extra teams are cut", func(t *testing.T) {
		got, err := SeedBracket([]SeedEntrant{
			{ID: teamID(1), Score: 2, Buchholz: 1},
			{ID: teamID(2), Score: 2, Buchholz: 3},
			{ID: teamID(3), Score: 1, Buchholz: 0},
			{ID: teamID(4), Score: 0, Buchholz: 0},
			{ID: teamID(5), Score: 0, Buchholz: 0},
		})
		require.NoError(t, err)

		want := []Pairing{
			{Team1: teamID(2), Team2: teamID(4)},
			{Team1: teamID(3), Team2: teamID(1)},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("SeedBracket() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("one team", func(t *testing.T) {
		_, err := SeedBracket([]SeedEntrant{{ID: teamID(1)}})
		assert.ErrorIs(t, err, ErrInsufficientTeams)
	})
}

func finished(id, t1, t2, winner int, created time.Time, slot int) FinishedMatch {
	w := teamID(winner)
	return FinishedMatch{ID: teamID(100 + id), Team1: teamID(t1), Team2: teamID(t2), Winner: &w, CreatedAt: created, Slot: slot}
}

func TestAdvanceBracket(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("quarter finals in creation order", func(t *testing.T) {
		prev := []FinishedMatch{
			finished(3, 5, 4, 4, base, 2),
			finished(1, 1, 8, 1, base, 0),
			finished(4, 7, 2, 2, base, 3),
			finished(2, 3, 6, 6, base, 1),
		}

		got, err := AdvanceBracket(prev)
		require.NoError(t, err)

		want := EliminationRound{Pairings: []Pairing{
			{Team1: teamID(1), Team2: teamID(6)},
			{Team1: teamID(4), Team2: teamID(2)},
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("AdvanceBracket() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("semi finals add placement match", func(t *testing.T) {
		prev := []FinishedMatch{
			finished(2, 3, 2, 3, base.Add(time.Second), 0),
			finished(1, 1, 4, 1, base, 0),
		}

		got, err := AdvanceBracket(prev)
		require.NoError(t, err)

		want := EliminationRound{
			Pairings:  []Pairing{{Team1: teamID(1), Team2: teamID(3)}},
			Placement: &Pairing{Team1: teamID(4), Team2: teamID(2)},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("AdvanceBracket() mismatch (-want +got):\n%s", diff)
		}
		assert.True(t, IsPlacementMatch(teamID(4), teamID(2), prev))
		assert.False(t, IsPlacementMatch(teamID(1), teamID(3), prev))
	})

	t.Run("odd match count", func(t *testing.T) {
		_, err := AdvanceBracket([]FinishedMatch{finished(1, 1, 2, 1, base, 0)})
		assert.ErrorIs(t, err, ErrOddMatchCount)
	})

	t.Run("missing winner", func(t *testing.T) {
		m := finished(2, 3, 4, 3, base, 1)
		m.Winner = nil
		_, err := AdvanceBracket([]FinishedMatch{finished(1, 1, 2, 1, base, 0), m})
		assert.ErrorIs(t, err, ErrMissingWinner)
	})

	t.Run("no matches", func(t *testing.T) {
		_, err := AdvanceBracket(nil)
		assert.ErrorIs(t, err, ErrInsufficientTeams)
	})
}

func TestFinalRoundIndex(t *testing.T) {
	for matches, want := range map[int]int{0: 0, 1: 0, 2: 1, 4: 2, 8: 3} {
		assert.Equal(t, want, FinalRoundIndex(matches), "first round matches=%d", matches)
	}
}

func TestComputeBuchholz(t *testing.T) {
	base := time.Now()
	matches := []FinishedMatch{
		finished(1, 1, 2, 1, base, 0),
		finished(2, 3, 4, 3, base, 1),
		finished(3, 1, 3, 1, base, 0),
		finished(4, 2, 4, 2, base, 1),
		{ID: uuid.New(), Team1: teamID(2), Team2: teamID(3)},
	}
	scores := map[uuid.UUID]int{teamID(1): 2, teamID(2): 1, teamID(3): 1, teamID(4): 0}

	got := ComputeBuchholz(matches, scores)
	assert.Equal(t, map[uuid.UUID]int{
		teamID(1): 2,
		teamID(2): 0,
		teamID(3): 0,
		teamID(4): 0,
	}, got)
}

func TestMaskFor(t *testing.T) {
	winner := teamID(1)
	hidden := MatchView{
		ID:       teamID(9),
		State:    MatchFinished,
		WinnerID: &winner,
		Results:  []ResultView{{TeamID: winner, Score: 1}},
	}

	masked := hidden.MaskFor(Viewer{})
	assert.Equal(t, MatchPlanned, masked.State)
	assert.Nil(t, masked.WinnerID)
	assert.Empty(t, masked.Results)
	assert.NotNil(t, masked.Results)

	assert.Equal(t, MatchPlanned, hidden.MaskFor(Viewer{IsEventAdmin: true}).State)
	assert.Equal(t, MatchFinished, hidden.MaskFor(Viewer{IsEventAdmin: true, RevealQuery: true}).State)
	assert.Equal(t, MatchPlanned, hidden.MaskFor(Viewer{RevealQuery: true}).State)

	hidden.IsRevealed = true
	assert.Equal(t, MatchFinished, hidden.MaskFor(Viewer{}).State)
	assert.Equal(t, &winner, hidden.MaskFor(Viewer{}).WinnerID)

	// the source view is never modified
	assert.Equal(t, MatchFinished, hidden.State)
}

func TestWindowActive(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	locked := start.Add(time.Hour)

	assert.False(t, WindowActive(start, end, nil, start.Add(-time.Minute)))
	assert.True(t, WindowActive(start, end, nil, start))
	assert.True(t, WindowActive(start, end, nil, end.Add(-time.Nanosecond)))
	assert.False(t, WindowActive(start, end, nil, end))
	assert.False(t, WindowActive(start, end, &locked, start.Add(2*time.Hour)))
}

func TestMatchStateTransitions(t *testing.T) {
	assert.True(t, MatchPlanned.CanTransitionTo(MatchInProgress))
	assert.True(t, MatchInProgress.CanTransitionTo(MatchFinished))
	assert.False(t, MatchPlanned.CanTransitionTo(MatchFinished))
	assert.False(t, MatchFinished.CanTransitionTo(MatchInProgress))
	assert.False(t, MatchInProgress.CanTransitionTo(MatchPlanned))
}

func TestMergeStats(t *testing.T) {
	got := MergeStats(Stats{"kills": 3, "deaths": 1}, Stats{"kills": 2, "assists": 4})
	assert.Equal(t, Stats{"kills": 5, "deaths": 1, "assists": 4}, got)
	assert.Equal(t, Stats{"kills": 1}, MergeStats(nil, Stats{"kills": 1}))
}
