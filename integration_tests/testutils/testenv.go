package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Black-And-White-Club/tournament-engine/app/eventbus"
	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	"github.com/Black-And-White-Club/tournament-engine/config"
	"github.com/Black-And-White-Club/tournament-engine/integration_tests/containers"
)

// TestEnvironment holds all resources needed for integration testing
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer testcontainers.Container
	DB            *bun.DB
	EventBus      eventbus.EventBus
	NatsConn      *nats.Conn
	JetStream     jetstream.JetStream
	Config        *config.Config
}

// NewTestEnvironment creates a new test environment with Postgres and NATS containers
func NewTestEnvironment(t *testing.T) (*TestEnvironment, error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
	}

	if err := env.setupContainers(ctx); err != nil {
		cancel()
		return nil, err
	}
	return env, nil
}

// setupContainers initializes all containers and connections
func (env *TestEnvironment) setupContainers(ctx context.Context) error {
	pgContainer, pgConnStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup postgres container: %w", err)
	}
	env.PgContainer = pgContainer

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		cleanupContainers(ctx, pgContainer, nil)
		return fmt.Errorf("failed to setup nats container: %w", err)
	}
	env.NatsContainer = natsContainer

	sqlDB, err := sql.Open("pgx", pgConnStr)
	if err != nil {
		cleanupContainers(ctx, pgContainer, natsContainer)
		return fmt.Errorf("failed to open sql DB connection: %w", err)
	}
	// Concurrency tests hold one connection per competing transaction.
	sqlDB.SetMaxOpenConns(32)

	db := bun.NewDB(sqlDB, pgdialect.New())
	env.DB = db

	if err := runMigrations(ctx, db, pgConnStr); err != nil {
		db.Close()
		cleanupContainers(ctx, pgContainer, natsContainer)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	natsConn, err := nats.Connect(natsURL, nats.Timeout(10*time.Second))
	if err != nil {
		db.Close()
		cleanupContainers(ctx, pgContainer, natsContainer)
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	env.NatsConn = natsConn

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		db.Close()
		cleanupContainers(ctx, pgContainer, natsContainer)
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}
	env.JetStream = js

	env.Config = &config.Config{
		Postgres: config.PostgresConfig{DSN: pgConnStr},
		NATS:     config.NATSConfig{URL: natsURL},
	}

	eventBus, err := eventbus.NewEventBus(ctx, eventbus.Config{URL: natsURL, QueueGroup: "tournament-engine-test"}, slog.New(slog.DiscardHandler))
	if err != nil {
		natsConn.Close()
		db.Close()
		cleanupContainers(ctx, pgContainer, natsContainer)
		return fmt.Errorf("failed to create EventBus: %w", err)
	}
	if err := eventBus.CreateStream(ctx, tournamentevents.StreamName, tournamentevents.StreamSubject); err != nil {
		eventBus.Close()
		natsConn.Close()
		db.Close()
		cleanupContainers(ctx, pgContainer, natsContainer)
		return fmt.Errorf("failed to create stream: %w", err)
	}
	env.EventBus = eventBus

	return nil
}

// Reset truncates the tournament tables and purges the tournament stream.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	if err := CleanupDatabase(ctx, env.DB); err != nil {
		return err
	}
	return env.ResetJetStreamState(ctx, tournamentevents.StreamName)
}

// Cleanup tears down all resources created for testing
func (env *TestEnvironment) Cleanup() {
	log.Println("Cleaning up test environment...")
	if env.CancelContext != nil {
		env.CancelContext()
	}
	if env.EventBus != nil {
		if err := env.EventBus.Close(); err != nil {
			log.Printf("Error closing EventBus: %v", err)
		}
	}
	if env.NatsConn != nil {
		env.NatsConn.Close()
	}
	if env.DB != nil {
		env.DB.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cleanupContainers(ctx, env.PgContainer, env.NatsContainer)
	log.Println("Cleanup complete.")
}

func cleanupContainers(ctx context.Context, pg *postgres.PostgresContainer, nats testcontainers.Container) {
	if pg != nil {
		if err := pg.Terminate(ctx); err != nil {
			log.Printf("Error terminating Postgres container: %v", err)
		}
	}
	if nats != nil {
		if err := nats.Terminate(ctx); err != nil {
			log.Printf("Error terminating NATS container: %v", err)
		}
	}
}
