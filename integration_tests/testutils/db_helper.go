package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	tournamentmigrations "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories/migrations"
)

// runMigrations applies River's job tables and the tournament schema.
func runMigrations(ctx context.Context, db *bun.DB, pgConnStr string) error {
	if err := runRiverMigrations(ctx, pgConnStr); err != nil {
		return err
	}

	migrator := migrate.NewMigrator(db, tournamentmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration tables: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run tournament migrations: %w", err)
	}
	if group.IsZero() {
		log.Println("No tournament migrations to run")
	} else {
		log.Printf("Ran tournament migrations group #%d", group.ID)
	}
	return nil
}

// runRiverMigrations runs River queue system migrations
func runRiverMigrations(ctx context.Context, pgConnStr string) error {
	pool, err := pgxpool.New(ctx, pgConnStr)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

// Child tables first so the truncate list reads in dependency order.
var appTables = []string{
	"tournament_match_results",
	"tournament_matches",
	"tournament_teams",
	"tournament_events",
	"river_job",
}

// CleanupDatabase truncates the tournament and River job tables.
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	query := "TRUNCATE TABLE " + strings.Join(appTables, ", ") + " CASCADE"
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
