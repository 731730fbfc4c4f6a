package testutils

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
)

// TestDataGenerator provides methods to create test data for integration tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}

	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// EventOptions overrides generated event fields.
type EventOptions struct {
	StartsAt     time.Time
	EndsAt       time.Time
	ProcessQueue bool
	LockedAt     *time.Time
}

// GenerateEvent returns an event whose window is open now unless opts say otherwise.
func (g *TestDataGenerator) GenerateEvent(opts EventOptions) *tournamentdb.Event {
	now := time.Now().UTC()
	if opts.StartsAt.IsZero() {
		opts.StartsAt = now.Add(-time.Hour)
	}
	if opts.EndsAt.IsZero() {
		opts.EndsAt = now.Add(time.Hour)
	}
	minSize := g.faker.Number(1, 3)
	return &tournamentdb.Event{
		ID:           uuid.New(),
		Name:         g.faker.AppName() + " Cup",
		MinTeamSize:  minSize,
		MaxTeamSize:  minSize + g.faker.Number(0, 3),
		StartsAt:     opts.StartsAt,
		EndsAt:       opts.EndsAt,
		ProcessQueue: opts.ProcessQueue,
		LockedAt:     opts.LockedAt,
		ServerImage:  fmt.Sprintf("registry.local/arena:%s", g.faker.Numerify("1.#.#")),
	}
}

// GenerateTeams returns count teams for eventID with the default rating.
func (g *TestDataGenerator) GenerateTeams(eventID uuid.UUID, count int) []*tournamentdb.Team {
	teams := make([]*tournamentdb.Team, count)
	for i := range teams {
		name := g.faker.Company()
		teams[i] = &tournamentdb.Team{
			ID:             uuid.New(),
			EventID:        eventID,
			Name:           fmt.Sprintf("%s %d", name, i+1),
			QueueScore:     1000,
			DockerImage:    fmt.Sprintf("registry.local/%s:latest", g.faker.Username()),
			RepositoryName: fmt.Sprintf("team-%s", g.faker.Numerify("####")),
		}
	}
	return teams
}

// InsertEvent stores event with the repository.
func InsertEvent(ctx context.Context, db *bun.DB, event *tournamentdb.Event) error {
	if err := tournamentdb.NewRepository(db).CreateEvent(ctx, nil, event); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// InsertTeams stores teams in order.
func InsertTeams(ctx context.Context, db *bun.DB, teams []*tournamentdb.Team) error {
	repo := tournamentdb.NewRepository(db)
	for _, team := range teams {
		if err := repo.CreateTeam(ctx, nil, team); err != nil {
			return fmt.Errorf("failed to insert team %s: %w", team.Name, err)
		}
	}
	return nil
}
