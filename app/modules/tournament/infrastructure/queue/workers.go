package tournamentqueue

import (
	"context"
	"fmt"
	"log/slog"

	tournamentservice "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/application"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	"github.com/riverqueue/river"
)

// Engine is the part of the tournament service driven by periodic jobs.
type Engine interface {
	RunMatchmaking(ctx context.Context) (tournamentservice.MatchmakingReport, error)
	RunHousekeeping(ctx context.Context) (tournamentservice.HousekeepingReport, error)
	SweepRounds(ctx context.Context) (tournamentservice.SweepReport, error)
}

// MatchmakingWorker runs one matchmaking pass per job.
type MatchmakingWorker struct {
	river.WorkerDefaults[MatchmakingJob]
	engine Engine
	logger *slog.Logger
}

// NewMatchmakingWorker creates a MatchmakingWorker.
func NewMatchmakingWorker(logger *slog.Logger, engine Engine) *MatchmakingWorker {
	return &MatchmakingWorker{engine: engine, logger: logger}
}

func (w *MatchmakingWorker) Work(ctx context.Context, _ *river.Job[MatchmakingJob]) error {
	report, err := w.engine.RunMatchmaking(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Matchmaking pass failed", attr.Error(err))
		return fmt.Errorf("matchmaking: %w", err)
	}
	if report.Skipped {
		w.logger.DebugContext(ctx, "Matchmaking pass skipped, lock held elsewhere")
		return nil
	}
	w.logger.InfoContext(ctx, "Matchmaking pass complete",
		attr.Int("events_visited", report.EventsVisited),
		attr.Int("matches_created", report.MatchesCreated),
		attr.Int("events_failed", report.EventsFailed),
	)
	return nil
}

// HousekeepingWorker runs one auto-lock pass per job.
type HousekeepingWorker struct {
	river.WorkerDefaults[HousekeepingJob]
	engine Engine
	logger *slog.Logger
}

// NewHousekeepingWorker creates a HousekeepingWorker.
func NewHousekeepingWorker(logger *slog.Logger, engine Engine) *HousekeepingWorker {
	return &HousekeepingWorker{engine: engine, logger: logger}
}

func (w *HousekeepingWorker) Work(ctx context.Context, _ *river.Job[HousekeepingJob]) error {
	report, err := w.engine.RunHousekeeping(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Housekeeping pass failed", attr.Error(err))
		return fmt.Errorf("housekeeping: %w", err)
	}
	if report.Skipped {
		w.logger.DebugContext(ctx, "Housekeeping pass skipped, lock held elsewhere")
		return nil
	}
	if report.EventsLocked > 0 || report.AccessFailed > 0 {
		w.logger.InfoContext(ctx, "Housekeeping pass complete",
			attr.Int("events_locked", report.EventsLocked),
			attr.Int("access_failed", report.AccessFailed),
		)
	}
	return nil
}

// RoundSweepWorker re-evaluates active rounds per job.
type RoundSweepWorker struct {
	river.WorkerDefaults[RoundSweepJob]
	engine Engine
	logger *slog.Logger
}

// NewRoundSweepWorker creates a RoundSweepWorker.
func NewRoundSweepWorker(logger *slog.Logger, engine Engine) *RoundSweepWorker {
	return &RoundSweepWorker{engine: engine, logger: logger}
}

func (w *RoundSweepWorker) Work(ctx context.Context, _ *river.Job[RoundSweepJob]) error {
	report, err := w.engine.SweepRounds(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Round sweep failed", attr.Error(err))
		return fmt.Errorf("round sweep: %w", err)
	}
	if report.Skipped {
		w.logger.DebugContext(ctx, "Round sweep skipped, lock held elsewhere")
		return nil
	}
	if report.RoundsAdvanced > 0 || report.EventsFailed > 0 {
		w.logger.InfoContext(ctx, "Round sweep complete",
			attr.Int("events_checked", report.EventsChecked),
			attr.Int("rounds_advanced", report.RoundsAdvanced),
			attr.Int("events_failed", report.EventsFailed),
		)
	}
	return nil
}
