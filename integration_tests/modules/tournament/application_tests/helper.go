package tournamentintegrationtests

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"testing"
	"time"

	tournamentservice "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/application"
	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	tournamentmetrics "github.com/Black-And-White-Club/tournament-engine/app/shared/observability/metrics/tournament"
	"github.com/Black-And-White-Club/tournament-engine/integration_tests/testutils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

// Global variables for the test environment, initialized once.
var (
	testEnv     *testutils.TestEnvironment
	testEnvOnce sync.Once
	testEnvErr  error
)

// TestDeps holds dependencies needed by individual tests.
type TestDeps struct {
	Ctx      context.Context
	Repo     *tournamentdb.Impl
	BunDB    *bun.DB
	Service  tournamentservice.Service
	Recorder *Recorder
	Data     *testutils.TestDataGenerator
}

func GetTestEnv(t *testing.T) *testutils.TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testEnvOnce.Do(func() {
		log.Println("Initializing tournament test environment...")
		env, err := testutils.NewTestEnvironment(t)
		if err != nil {
			testEnvErr = err
			log.Printf("Failed to set up test environment: %v", err)
			return
		}
		testEnv = env
	})

	if testEnvErr != nil {
		t.Fatalf("Tournament test environment initialization failed: %v", testEnvErr)
	}
	if testEnv == nil {
		t.Fatalf("Tournament test environment not initialized")
	}
	return testEnv
}

func SetupTestTournamentService(t *testing.T) TestDeps {
	t.Helper()

	env := GetTestEnv(t)

	resetCtx, resetCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer resetCancel()
	if err := env.Reset(resetCtx); err != nil {
		t.Fatalf("Failed to reset environment: %v", err)
	}

	repo := tournamentdb.NewRepository(env.DB)
	recorder := &Recorder{}
	service := tournamentservice.NewTournamentService(
		repo,
		env.DB,
		recorder,
		recorder,
		recorder,
		slog.New(slog.NewTextHandler(testWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelWarn})),
		tournamentmetrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		clockwork.NewRealClock(),
	)

	ctx, cancel := context.WithTimeout(env.Ctx, 60*time.Second)
	t.Cleanup(cancel)

	return TestDeps{
		Ctx:      ctx,
		Repo:     repo,
		BunDB:    env.DB,
		Service:  service,
		Recorder: recorder,
		Data:     testutils.NewTestDataGenerator(42),
	}
}

// seedEvent inserts an event and count teams.
func seedEvent(t *testing.T, deps TestDeps, opts testutils.EventOptions, count int) (*tournamentdb.Event, []*tournamentdb.Team) {
	t.Helper()
	event := deps.Data.GenerateEvent(opts)
	if err := testutils.InsertEvent(deps.Ctx, deps.BunDB, event); err != nil {
		t.Fatal(err)
	}
	teams := deps.Data.GenerateTeams(event.ID, count)
	if err := testutils.InsertTeams(deps.Ctx, deps.BunDB, teams); err != nil {
		t.Fatal(err)
	}
	return event, teams
}

// Recorder captures post-commit side effects.
type Recorder struct {
	mu         sync.Mutex
	dispatched []tournamentevents.MatchDispatchRequestedPayloadV1
	advanced   []tournamentevents.RoundAdvancedPayloadV1
	completed  []tournamentevents.PhaseCompletedPayloadV1
	revoked    []uuid.UUID
	granted    []uuid.UUID
}

func (r *Recorder) Dispatch(_ context.Context, p tournamentevents.MatchDispatchRequestedPayloadV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched = append(r.dispatched, p)
	return nil
}

func (r *Recorder) RoundAdvanced(_ context.Context, p tournamentevents.RoundAdvancedPayloadV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanced = append(r.advanced, p)
	return nil
}

func (r *Recorder) PhaseCompleted(_ context.Context, p tournamentevents.PhaseCompletedPayloadV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, p)
	return nil
}

func (r *Recorder) Revoke(_ context.Context, p tournamentevents.RepositoryAccessPayloadV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = append(r.revoked, p.TeamID)
	return nil
}

func (r *Recorder) Grant(_ context.Context, p tournamentevents.RepositoryAccessPayloadV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.granted = append(r.granted, p.TeamID)
	return nil
}

func (r *Recorder) Dispatched() []tournamentevents.MatchDispatchRequestedPayloadV1 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tournamentevents.MatchDispatchRequestedPayloadV1(nil), r.dispatched...)
}

func (r *Recorder) Advanced() []tournamentevents.RoundAdvancedPayloadV1 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tournamentevents.RoundAdvancedPayloadV1(nil), r.advanced...)
}

func (r *Recorder) Completed() []tournamentevents.PhaseCompletedPayloadV1 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tournamentevents.PhaseCompletedPayloadV1(nil), r.completed...)
}

func (r *Recorder) Revoked() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.revoked...)
}

// testWriter routes slog output to t.Log.
type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (n int, err error) {
	tw.t.Log(string(p))
	return len(p), nil
}
