package tournamenthandlerintegrationtests

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"testing"
	"time"

	tournamentservice "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/application"
	tournamenthandlers "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/handlers"
	tournamentpublisher "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/publisher"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	tournamentrouter "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/router"
	tournamentmetrics "github.com/Black-And-White-Club/tournament-engine/app/shared/observability/metrics/tournament"
	"github.com/Black-And-White-Club/tournament-engine/integration_tests/testutils"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

var (
	testEnv     *testutils.TestEnvironment
	testEnvOnce sync.Once
	testEnvErr  error
)

// HandlerTestDeps holds a running router wired to a real service.
type HandlerTestDeps struct {
	Ctx     context.Context
	Env     *testutils.TestEnvironment
	Repo    *tournamentdb.Impl
	Service tournamentservice.Service
	Data    *testutils.TestDataGenerator
}

func GetTestEnv(t *testing.T) *testutils.TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testEnvOnce.Do(func() {
		log.Println("Initializing tournament handler test environment...")
		testEnv, testEnvErr = testutils.NewTestEnvironment(t)
	})
	if testEnvErr != nil {
		t.Fatalf("Tournament handler test environment initialization failed: %v", testEnvErr)
	}
	return testEnv
}

func SetupTestTournamentHandler(t *testing.T) HandlerTestDeps {
	t.Helper()

	env := GetTestEnv(t)
	resetCtx, resetCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer resetCancel()
	if err := env.Reset(resetCtx); err != nil {
		t.Fatalf("Failed to reset environment: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	tracer := noop.NewTracerProvider().Tracer("test")

	repo := tournamentdb.NewRepository(env.DB)
	publisher := tournamentpublisher.NewPublisher(env.EventBus, rate.NewLimiter(rate.Inf, 1), logger, tracer)
	service := tournamentservice.NewTournamentService(
		repo, env.DB, publisher, publisher, publisher,
		logger, tournamentmetrics.NewNoop(), tracer, clockwork.NewRealClock(),
	)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 5 * time.Second}, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("Failed to create router: %v", err)
	}
	tournamentRouter := tournamentrouter.NewTournamentRouter(logger, router, env.EventBus, tracer, nil)

	ctx, cancel := context.WithTimeout(env.Ctx, 60*time.Second)
	if err := tournamentRouter.Configure(ctx, tournamenthandlers.NewTournamentHandlers(service, logger, tracer)); err != nil {
		cancel()
		t.Fatalf("Failed to configure router: %v", err)
	}

	go func() {
		if err := router.Run(ctx); err != nil {
			log.Printf("Router stopped: %v", err)
		}
	}()
	select {
	case <-router.Running():
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("router did not start")
	}

	t.Cleanup(func() {
		if err := tournamentRouter.Close(); err != nil {
			log.Printf("Error closing router: %v", err)
		}
		cancel()
	})

	return HandlerTestDeps{
		Ctx:     ctx,
		Env:     env,
		Repo:    repo,
		Service: service,
		Data:    testutils.NewTestDataGenerator(7),
	}
}
