package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Black-And-White-Club/tournament-engine/app/eventbus"
	"github.com/Black-And-White-Club/tournament-engine/app/modules/tournament"
	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability"
	"github.com/Black-And-White-Club/tournament-engine/config"
	"github.com/Black-And-White-Club/tournament-engine/db/bundb"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// App wires the tournament engine's infrastructure and modules.
type App struct {
	Config           *config.Config
	Observability    *observability.Provider
	EventBus         eventbus.EventBus
	Router           *message.Router
	DB               *bun.DB
	TournamentModule *tournament.Module

	wg sync.WaitGroup
}

// NewApp builds every dependency. Nothing runs until Run is called.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs, err := observability.NewProvider(config.ToObsConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	db, err := bundb.NewBunDB(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}

	eventBus, err := eventbus.NewEventBus(ctx, eventbus.Config{
		URL:      cfg.NATS.URL,
		NkeySeed: cfg.NATS.NkeySeed,
	}, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	if err := eventBus.CreateStream(ctx, tournamentevents.StreamName, tournamentevents.StreamSubject); err != nil {
		eventBus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create %s stream: %w", tournamentevents.StreamName, err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		eventBus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create watermill router: %w", err)
	}

	module, err := tournament.NewTournamentModule(ctx, cfg, obs, eventBus, router, ctx, db)
	if err != nil {
		eventBus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize tournament module: %w", err)
	}

	return &App{
		Config:           cfg,
		Observability:    obs,
		EventBus:         eventBus,
		Router:           router,
		DB:               db,
		TournamentModule: module,
	}, nil
}

// Run starts the router, the module and the metrics server, and blocks until
// ctx is done or the router stops.
func (a *App) Run(ctx context.Context) error {
	logger := a.Observability.Logger

	a.wg.Add(1)
	go a.TournamentModule.Run(ctx, &a.wg)

	go func() {
		if err := a.Observability.ServeMetrics(ctx); err != nil {
			logger.ErrorContext(ctx, "Metrics server stopped", "error", err)
		}
	}()

	logger.InfoContext(ctx, "Starting watermill router")
	if err := a.Router.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watermill router stopped: %w", err)
	}
	return nil
}

// Close stops the module and releases the connections.
func (a *App) Close(ctx context.Context) error {
	logger := a.Observability.Logger
	logger.Info("Shutting down tournament engine")

	var errs []error
	if err := a.TournamentModule.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	a.wg.Wait()

	if err := a.EventBus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close event bus: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}
