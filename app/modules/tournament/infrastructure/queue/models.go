package tournamentqueue

import "github.com/riverqueue/river"

// QueueTournament is the River queue the periodic engine jobs run on.
const QueueTournament = "tournament"

// Periodic jobs are never retried; the next tick does the same work.
var periodicInsertOpts = river.InsertOpts{
	Queue:       QueueTournament,
	MaxAttempts: 1,
}

// MatchmakingJob pairs queued teams in every open QUEUE event.
type MatchmakingJob struct{}

// Kind returns the job type identifier for River
func (MatchmakingJob) Kind() string { return "tournament_matchmaking" }

// InsertOpts routes the job to the tournament queue.
func (MatchmakingJob) InsertOpts() river.InsertOpts { return periodicInsertOpts }

// HousekeepingJob locks events whose window has ended.
type HousekeepingJob struct{}

// Kind returns the job type identifier for River
func (HousekeepingJob) Kind() string { return "tournament_housekeeping" }

// InsertOpts routes the job to the tournament queue.
func (HousekeepingJob) InsertOpts() river.InsertOpts { return periodicInsertOpts }

// RoundSweepJob re-checks every active round for completion.
type RoundSweepJob struct{}

// Kind returns the job type identifier for River
func (RoundSweepJob) Kind() string { return "tournament_round_sweep" }

// InsertOpts routes the job to the tournament queue.
func (RoundSweepJob) InsertOpts() river.InsertOpts { return periodicInsertOpts }
