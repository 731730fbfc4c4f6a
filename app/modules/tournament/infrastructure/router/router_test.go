package tournamentrouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeHandlers struct {
	mu       sync.Mutex
	received []tournamentevents.MatchFinishedPayloadV1
	cids     []string
	err      error
	calls    chan struct{}
}

func (f *fakeHandlers) HandleMatchFinished(ctx context.Context, p *tournamentevents.MatchFinishedPayloadV1) error {
	f.mu.Lock()
	f.received = append(f.received, *p)
	f.cids = append(f.cids, attr.CorrelationID(ctx))
	err := f.err
	f.mu.Unlock()
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return err
}

func startRouter(t *testing.T, handlers *fakeHandlers) *gochannel.GoChannel {
	t.Helper()
	pubsub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: time.Second}, watermill.NopLogger{})
	require.NoError(t, err)

	r := NewTournamentRouter(slog.New(slog.DiscardHandler), router, pubsub, noop.NewTracerProvider().Tracer("test"), nil)
	require.NoError(t, r.Configure(context.Background(), handlers))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = router.Run(ctx) }()
	<-router.Running()

	t.Cleanup(func() {
		cancel()
		_ = r.Close()
		_ = pubsub.Close()
	})
	return pubsub
}

func waitCall(t *testing.T, calls chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestRouterDecodesMatchFinished(t *testing.T) {
	handlers := &fakeHandlers{calls: make(chan struct{}, 8)}
	pubsub := startRouter(t, handlers)

	matchID, winnerID := uuid.New(), uuid.New()
	payload, err := json.Marshal(tournamentevents.MatchFinishedPayloadV1{MatchID: matchID, WinnerID: winnerID})
	require.NoError(t, err)

	// Malformed payloads are acknowledged without reaching the handler.
	require.NoError(t, pubsub.Publish(tournamentevents.MatchFinishedV1, message.NewMessage(watermill.NewUUID(), []byte("{"))))

	msg := message.NewMessage(watermill.NewUUID(), payload)
	middleware.SetCorrelationID("cid-123", msg)
	require.NoError(t, pubsub.Publish(tournamentevents.MatchFinishedV1, msg))

	waitCall(t, handlers.calls)

	handlers.mu.Lock()
	defer handlers.mu.Unlock()
	require.Len(t, handlers.received, 1)
	assert.Equal(t, matchID, handlers.received[0].MatchID)
	assert.Equal(t, winnerID, handlers.received[0].WinnerID)
	assert.Equal(t, "cid-123", handlers.cids[0])
}

func TestRouterRetriesHandlerErrors(t *testing.T) {
	handlers := &fakeHandlers{calls: make(chan struct{}, 16), err: errors.New("db down")}
	pubsub := startRouter(t, handlers)

	payload, err := json.Marshal(tournamentevents.MatchFinishedPayloadV1{MatchID: uuid.New(), WinnerID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, pubsub.Publish(tournamentevents.MatchFinishedV1, message.NewMessage(watermill.NewUUID(), payload)))

	// One delivery plus three retries.
	for range 4 {
		waitCall(t, handlers.calls)
	}
}
