package containers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	engineDB       = "tournament_engine"
	engineUser     = "engine"
	enginePassword = "engine"
	defaultPGImage = "postgres:16-alpine"
)

// pgImage lets CI pin the Postgres image with TOURNAMENT_TEST_PG_IMAGE.
func pgImage() string {
	if img := os.Getenv("TOURNAMENT_TEST_PG_IMAGE"); img != "" {
		return img
	}
	return defaultPGImage
}

// SetupPostgresContainer starts the engine's Postgres and returns it with a
// DSN that has sslmode=disable.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	pgContainer, err := postgres.Run(ctx,
		pgImage(),
		postgres.WithDatabase(engineDB),
		postgres.WithUsername(engineUser),
		postgres.WithPassword(enginePassword),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
				return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
					engineUser, enginePassword, host, port.Port(), engineDB)
			}).WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		terminate(ctx, pgContainer)
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx)
	if err != nil {
		terminate(ctx, pgContainer)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		terminate(ctx, pgContainer)
		return nil, "", fmt.Errorf("failed to parse connection string: %w", err)
	}
	query := parsed.Query()
	query.Set("sslmode", "disable")
	parsed.RawQuery = query.Encode()

	log.Printf("Postgres ready for %s", engineDB)
	return pgContainer, parsed.String(), nil
}

func terminate(ctx context.Context, c *postgres.PostgresContainer) {
	if c == nil {
		return
	}
	if err := c.Terminate(ctx); err != nil {
		log.Printf("failed to terminate postgres container: %v", err)
	}
}
