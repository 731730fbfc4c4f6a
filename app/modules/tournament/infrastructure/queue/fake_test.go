package tournamentqueue

import (
	"context"
	"sync"

	tournamentservice "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/application"
)

// FakeEngine records which periodic tasks ran.
type FakeEngine struct {
	mu    sync.Mutex
	trace []string

	RunMatchmakingFunc  func(ctx context.Context) (tournamentservice.MatchmakingReport, error)
	RunHousekeepingFunc func(ctx context.Context) (tournamentservice.HousekeepingReport, error)
	SweepRoundsFunc     func(ctx context.Context) (tournamentservice.SweepReport, error)
}

func (f *FakeEngine) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the recorded calls in order.
func (f *FakeEngine) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeEngine) RunMatchmaking(ctx context.Context) (tournamentservice.MatchmakingReport, error) {
	f.record("RunMatchmaking")
	if f.RunMatchmakingFunc != nil {
		return f.RunMatchmakingFunc(ctx)
	}
	return tournamentservice.MatchmakingReport{}, nil
}

func (f *FakeEngine) RunHousekeeping(ctx context.Context) (tournamentservice.HousekeepingReport, error) {
	f.record("RunHousekeeping")
	if f.RunHousekeepingFunc != nil {
		return f.RunHousekeepingFunc(ctx)
	}
	return tournamentservice.HousekeepingReport{}, nil
}

func (f *FakeEngine) SweepRounds(ctx context.Context) (tournamentservice.SweepReport, error) {
	f.record("SweepRounds")
	if f.SweepRoundsFunc != nil {
		return f.SweepRoundsFunc(ctx)
	}
	return tournamentservice.SweepReport{}, nil
}
