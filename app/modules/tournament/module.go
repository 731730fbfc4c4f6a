package tournament

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Black-And-White-Club/tournament-engine/app/eventbus"
	tournamentservice "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/application"
	tournamenthandlers "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/handlers"
	tournamentpublisher "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/publisher"
	tournamentqueue "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/queue"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	tournamentrouter "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/router"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability"
	"github.com/Black-And-White-Club/tournament-engine/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// Module represents the tournament module.
type Module struct {
	TournamentService tournamentservice.Service
	TournamentRouter  *tournamentrouter.TournamentRouter
	QueueService      tournamentqueue.QueueService
	cancelFunc        context.CancelFunc
	provider          *observability.Provider
}

// NewTournamentModule creates and initializes a new tournament module.
func NewTournamentModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Provider,
	eventBus eventbus.EventBus,
	router *message.Router,
	routerCtx context.Context,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "tournament.NewTournamentModule initializing")

	// 1. Initialize Repository
	repo := tournamentdb.NewRepository(db)

	// 2. Initialize outbound publisher (dispatch, notifications, repository access)
	limiter := rate.NewLimiter(rate.Limit(cfg.Engine.DispatchRate), cfg.Engine.DispatchBurst)
	publisher := tournamentpublisher.NewPublisher(eventBus, limiter, logger, tracer)

	// 3. Initialize Service
	service := tournamentservice.NewTournamentService(
		repo,
		db,
		publisher,
		publisher,
		publisher,
		logger,
		obs.Metrics,
		tracer,
		clockwork.NewRealClock(),
	)

	// 4. Initialize Handlers
	handlers := tournamenthandlers.NewTournamentHandlers(service, logger, tracer)

	// 5. Initialize Router
	var registry prometheus.Registerer
	if os.Getenv("APP_ENV") != "test" {
		registry = obs.Registry
	}
	tournamentRouter := tournamentrouter.NewTournamentRouter(logger, router, eventBus, tracer, registry)

	// 6. Configure the router with handlers
	if err := tournamentRouter.Configure(routerCtx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure tournament router: %w", err)
	}

	// 7. Initialize periodic jobs
	queueService, err := tournamentqueue.NewService(ctx, logger, cfg.Postgres.DSN, tournamentqueue.Config{
		MatchmakingInterval:  cfg.Engine.MatchmakingInterval,
		HousekeepingInterval: cfg.Engine.HousekeepingInterval,
		RoundSweepInterval:   cfg.Engine.RoundSweepInterval,
		MaxWorkers:           cfg.Engine.MaxWorkers,
	}, service, obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament queue service: %w", err)
	}

	return &Module{
		TournamentService: service,
		TournamentRouter:  tournamentRouter,
		QueueService:      queueService,
		provider:          obs,
	}, nil
}

// Run starts the periodic jobs and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.provider.Logger
	logger.InfoContext(ctx, "Starting tournament module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.QueueService != nil {
		if err := m.QueueService.Start(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to start tournament queue service", "error", err)
			return
		}
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Tournament module goroutine stopped")
}

// Close shuts down the tournament module.
func (m *Module) Close(ctx context.Context) error {
	logger := m.provider.Logger
	logger.Info("Stopping tournament module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	var errs []error
	if m.QueueService != nil {
		if err := m.QueueService.Stop(ctx); err != nil {
			logger.Error("Error stopping tournament queue service", "error", err)
			errs = append(errs, fmt.Errorf("error stopping queue service: %w", err))
		}
	}

	if m.TournamentRouter != nil {
		if err := m.TournamentRouter.Close(); err != nil {
			logger.Error("Error closing TournamentRouter from module", "error", err)
			errs = append(errs, fmt.Errorf("error closing TournamentRouter: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("Tournament module stopped")
	return nil
}
