package bundb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tournament-engine/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewBunDB opens the Postgres pool and registers the tournament models.
func NewBunDB(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*bun.DB, error) {
	sqldb, err := pgConn(ctx, cfg.DSN)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to PostgreSQL", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	db.RegisterModel(
		(*tournamentdb.Event)(nil),
		(*tournamentdb.Team)(nil),
		(*tournamentdb.Match)(nil),
		(*tournamentdb.MatchResult)(nil),
	)

	logger.InfoContext(ctx, "Database connection established")
	return db, nil
}

func pgConn(ctx context.Context, dsn string) (*sql.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqldb.PingContext(pingCtx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return sqldb, nil
}
