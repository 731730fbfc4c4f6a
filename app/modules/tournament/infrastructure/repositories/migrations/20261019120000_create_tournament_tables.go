package tournamentmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating tournament tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournament_events (
					id UUID PRIMARY KEY,
					name TEXT NOT NULL,
					min_team_size INT NOT NULL DEFAULT 1,
					max_team_size INT NOT NULL DEFAULT 1,
					starts_at TIMESTAMPTZ NOT NULL,
					ends_at TIMESTAMPTZ NOT NULL,
					current_round INT NOT NULL DEFAULT 0 CHECK (current_round >= 0),
					active_phase TEXT CHECK (active_phase IN ('SWISS', 'ELIMINATION')),
					locked_at TIMESTAMPTZ,
					process_queue BOOLEAN NOT NULL DEFAULT FALSE,
					server_image TEXT NOT NULL DEFAULT '',
					game_config JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_tournament_events_queue
					ON tournament_events(process_queue) WHERE locked_at IS NULL;
			`); err != nil {
				return fmt.Errorf("failed to create tournament_events table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournament_teams (
					id UUID PRIMARY KEY,
					event_id UUID NOT NULL REFERENCES tournament_events(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					score INT NOT NULL DEFAULT 0,
					buchholz_points INT NOT NULL DEFAULT 0,
					queue_score INT NOT NULL DEFAULT 1000 CHECK (queue_score >= 0),
					had_bye BOOLEAN NOT NULL DEFAULT FALSE,
					in_queue BOOLEAN NOT NULL DEFAULT FALSE,
					queued_at TIMESTAMPTZ,
					docker_image TEXT NOT NULL DEFAULT '',
					repository_name TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_tournament_teams_event ON tournament_teams(event_id);
				CREATE INDEX IF NOT EXISTS idx_tournament_teams_queue
					ON tournament_teams(event_id) WHERE in_queue;
			`); err != nil {
				return fmt.Errorf("failed to create tournament_teams table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournament_matches (
					id UUID PRIMARY KEY,
					event_id UUID NOT NULL REFERENCES tournament_events(id) ON DELETE CASCADE,
					phase TEXT NOT NULL CHECK (phase IN ('QUEUE', 'SWISS', 'ELIMINATION')),
					round INT NOT NULL DEFAULT 0,
					state TEXT NOT NULL CHECK (state IN ('PLANNED', 'IN_PROGRESS', 'FINISHED')),
					team1_id UUID NOT NULL REFERENCES tournament_teams(id) ON DELETE CASCADE,
					team2_id UUID NOT NULL REFERENCES tournament_teams(id) ON DELETE CASCADE,
					winner_id UUID REFERENCES tournament_teams(id) ON DELETE SET NULL,
					is_revealed BOOLEAN NOT NULL DEFAULT FALSE,
					slot INT NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					started_at TIMESTAMPTZ,
					finished_at TIMESTAMPTZ,
					CHECK (team1_id <> team2_id)
				);
				CREATE INDEX IF NOT EXISTS idx_tournament_matches_round
					ON tournament_matches(event_id, phase, round, state);
			`); err != nil {
				return fmt.Errorf("failed to create tournament_matches table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournament_match_results (
					match_id UUID NOT NULL REFERENCES tournament_matches(id) ON DELETE CASCADE,
					team_id UUID NOT NULL REFERENCES tournament_teams(id) ON DELETE CASCADE,
					score INT NOT NULL,
					stats JSONB,
					PRIMARY KEY (match_id, team_id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create tournament_match_results table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping tournament tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS tournament_match_results;
			DROP TABLE IF EXISTS tournament_matches;
			DROP TABLE IF EXISTS tournament_teams;
			DROP TABLE IF EXISTS tournament_events;
		`)
		if err != nil {
			return fmt.Errorf("failed to drop tournament tables: %w", err)
		}
		return nil
	})
}
