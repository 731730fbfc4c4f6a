package tournamentqueue

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	tournamentservice "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/application"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkers(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	boom := errors.New("db down")

	tests := []struct {
		name      string
		setup     func(*FakeEngine)
		work      func(context.Context, *FakeEngine) error
		wantTrace []string
		wantErr   error
	}{
		{
			name: "matchmaking runs a pass",
			work: func(ctx context.Context, e *FakeEngine) error {
				return NewMatchmakingWorker(logger, e).Work(ctx, &river.Job[MatchmakingJob]{})
			},
			wantTrace: []string{"RunMatchmaking"},
		},
		{
			name: "matchmaking skipped is not an error",
			setup: func(e *FakeEngine) {
				e.RunMatchmakingFunc = func(context.Context) (tournamentservice.MatchmakingReport, error) {
					return tournamentservice.MatchmakingReport{Skipped: true}, nil
				}
			},
			work: func(ctx context.Context, e *FakeEngine) error {
				return NewMatchmakingWorker(logger, e).Work(ctx, &river.Job[MatchmakingJob]{})
			},
			wantTrace: []string{"RunMatchmaking"},
		},
		{
			name: "matchmaking failure fails the job",
			setup: func(e *FakeEngine) {
				e.RunMatchmakingFunc = func(context.Context) (tournamentservice.MatchmakingReport, error) {
					return tournamentservice.MatchmakingReport{}, boom
				}
			},
			work: func(ctx context.Context, e *FakeEngine) error {
				return NewMatchmakingWorker(logger, e).Work(ctx, &river.Job[MatchmakingJob]{})
			},
			wantTrace: []string{"RunMatchmaking"},
			wantErr:   boom,
		},
		{
			name: "housekeeping runs a pass",
			setup: func(e *FakeEngine) {
				e.RunHousekeepingFunc = func(context.Context) (tournamentservice.HousekeepingReport, error) {
					return tournamentservice.HousekeepingReport{EventsLocked: 2}, nil
				}
			},
			work: func(ctx context.Context, e *FakeEngine) error {
				return NewHousekeepingWorker(logger, e).Work(ctx, &river.Job[HousekeepingJob]{})
			},
			wantTrace: []string{"RunHousekeeping"},
		},
		{
			name: "housekeeping failure fails the job",
			setup: func(e *FakeEngine) {
				e.RunHousekeepingFunc = func(context.Context) (tournamentservice.HousekeepingReport, error) {
					return tournamentservice.HousekeepingReport{}, boom
				}
			},
			work: func(ctx context.Context, e *FakeEngine) error {
				return NewHousekeepingWorker(logger, e).Work(ctx, &river.Job[HousekeepingJob]{})
			},
			wantTrace: []string{"RunHousekeeping"},
			wantErr:   boom,
		},
		{
			name: "round sweep runs a pass",
			setup: func(e *FakeEngine) {
				e.SweepRoundsFunc = func(context.Context) (tournamentservice.SweepReport, error) {
					return tournamentservice.SweepReport{EventsChecked: 3, RoundsAdvanced: 1}, nil
				}
			},
			work: func(ctx context.Context, e *FakeEngine) error {
				return NewRoundSweepWorker(logger, e).Work(ctx, &river.Job[RoundSweepJob]{})
			},
			wantTrace: []string{"SweepRounds"},
		},
		{
			name: "round sweep failure fails the job",
			setup: func(e *FakeEngine) {
				e.SweepRoundsFunc = func(context.Context) (tournamentservice.SweepReport, error) {
					return tournamentservice.SweepReport{}, boom
				}
			},
			work: func(ctx context.Context, e *FakeEngine) error {
				return NewRoundSweepWorker(logger, e).Work(ctx, &river.Job[RoundSweepJob]{})
			},
			wantTrace: []string{"SweepRounds"},
			wantErr:   boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &FakeEngine{}
			if tt.setup != nil {
				tt.setup(engine)
			}

			err := tt.work(context.Background(), engine)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantTrace, engine.Trace())
		})
	}
}

func TestJobKinds(t *testing.T) {
	kinds := map[string]bool{}
	for _, args := range []river.JobArgs{MatchmakingJob{}, HousekeepingJob{}, RoundSweepJob{}} {
		assert.False(t, kinds[args.Kind()], "duplicate kind %s", args.Kind())
		kinds[args.Kind()] = true
	}

	opts := MatchmakingJob{}.InsertOpts()
	assert.Equal(t, QueueTournament, opts.Queue)
	assert.Equal(t, 1, opts.MaxAttempts)
}

func TestNewRiverConfig(t *testing.T) {
	cfg := Config{
		MatchmakingInterval:  10 * time.Second,
		HousekeepingInterval: time.Minute,
		RoundSweepInterval:   30 * time.Second,
	}

	rc := NewRiverConfig(slog.New(slog.DiscardHandler), cfg, &FakeEngine{})

	assert.Len(t, rc.PeriodicJobs, 3)
	require.Contains(t, rc.Queues, QueueTournament)
	assert.Equal(t, 1, rc.Queues[QueueTournament].MaxWorkers)
	assert.NotNil(t, rc.Workers)
	assert.NotNil(t, rc.Logger)
}
