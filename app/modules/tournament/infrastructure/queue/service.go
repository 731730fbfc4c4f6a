package tournamentqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	tournamentmetrics "github.com/Black-And-White-Club/tournament-engine/app/shared/observability/metrics/tournament"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// Config sets the periodic job intervals and worker concurrency.
type Config struct {
	MatchmakingInterval  time.Duration
	HousekeepingInterval time.Duration
	RoundSweepInterval   time.Duration
	MaxWorkers           int
}

// QueueService runs the engine's periodic jobs.
type QueueService interface {
	// HealthCheck verifies the queue's database pool is reachable
	HealthCheck(ctx context.Context) error
	// Start starts the queue service
	Start(ctx context.Context) error
	// Stop stops the queue service and closes its pool
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service schedules matchmaking, housekeeping and round sweeps on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics tournamentmetrics.TournamentMetrics
}

// NewService creates a River client with the engine's workers and periodic jobs.
func NewService(ctx context.Context, logger *slog.Logger, dsn string, cfg Config, engine Engine, metrics tournamentmetrics.TournamentMetrics) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_tournament_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing tournament queue service")

	// River requires pgx, not database/sql
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		ctxLogger.Error("Failed to parse DSN for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		ctxLogger.Error("Failed to create pgx pool for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), NewRiverConfig(logger, cfg, engine))
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("Tournament queue service initialized",
		attr.Duration("matchmaking_interval", cfg.MatchmakingInterval),
		attr.Duration("housekeeping_interval", cfg.HousekeepingInterval),
		attr.Duration("round_sweep_interval", cfg.RoundSweepInterval),
	)
	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		metrics: metrics,
	}, nil
}

// NewRiverConfig registers the engine workers and their periodic schedules.
func NewRiverConfig(logger *slog.Logger, cfg Config, engine Engine) *river.Config {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewMatchmakingWorker(logger, engine))
	river.AddWorker(workers, NewHousekeepingWorker(logger, engine))
	river.AddWorker(workers, NewRoundSweepWorker(logger, engine))

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	return &river.Config{
		Logger:       logger,
		PeriodicJobs: PeriodicJobs(cfg),
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
			QueueTournament:    {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	}
}

// PeriodicJobs returns one periodic job per engine task. Each runs once at
// startup and then on its interval.
func PeriodicJobs(cfg Config) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		periodic("matchmaking", cfg.MatchmakingInterval, func() river.JobArgs { return MatchmakingJob{} }),
		periodic("housekeeping", cfg.HousekeepingInterval, func() river.JobArgs { return HousekeepingJob{} }),
		periodic("round_sweep", cfg.RoundSweepInterval, func() river.JobArgs { return RoundSweepJob{} }),
	}
}

func periodic(id string, interval time.Duration, args func() river.JobArgs) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) { return args(), nil },
		&river.PeriodicJobOpts{ID: id, RunOnStart: true},
	)
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")

	s.logger.Info("Starting tournament queue service")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.metrics.RecordOperationDuration(ctx, "start_service", "river", time.Since(start))
	return nil
}

// Stop waits for running jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")

	s.logger.Info("Stopping tournament queue service")
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.metrics.RecordOperationDuration(ctx, "stop_service", "river", time.Since(start))
	return nil
}

// HealthCheck pings the River pool.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("river pool unhealthy: %w", err)
	}
	return nil
}
