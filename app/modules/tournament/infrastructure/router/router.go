package tournamentrouter

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	tournamenthandlers "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/handlers"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// TournamentRouter handles Watermill handler registration for tournament events.
type TournamentRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewTournamentRouter creates a new TournamentRouter. A nil registry disables
// router metrics.
func NewTournamentRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	tracer trace.Tracer,
	prometheusRegistry prometheus.Registerer,
) *TournamentRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}
	return &TournamentRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure adds middleware and registers the handlers.
func (r *TournamentRouter) Configure(_ context.Context, handlers tournamenthandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
		}.Middleware,
	)

	r.registerHandlers(handlers)
	return nil
}

// registerHandlers wires NATS topics to handler methods.
func (r *TournamentRouter) registerHandlers(handlers tournamenthandlers.Handlers) {
	r.logger.Info("Registering tournament module handlers",
		slog.String("match_finished_subject", tournamentevents.MatchFinishedV1),
	)

	registerHandler(r, tournamentevents.MatchFinishedV1, handlers.HandleMatchFinished)

	r.logger.Info("Tournament module handlers registered successfully")
}

// registerHandler is a generic function for type-safe Watermill handler registration.
func registerHandler[T any](r *TournamentRouter, topic string, handler func(context.Context, *T) error) {
	handlerName := "tournament." + topic
	r.Router.AddConsumerHandler(handlerName, topic, r.subscriber, wrapTyped(handlerName, r.logger, r.tracer, handler))
}

// wrapTyped decodes the JSON payload into T and calls handler. Payloads that
// cannot be decoded are acknowledged and dropped.
func wrapTyped[T any](name string, logger *slog.Logger, tracer trace.Tracer, handler func(context.Context, *T) error) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ctx := msg.Context()
		if cid := middleware.MessageCorrelationID(msg); cid != "" {
			ctx = attr.WithCorrelationID(ctx, cid)
		}
		ctx, span := tracer.Start(ctx, name)
		defer span.End()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Dropping malformed message",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", name),
				attr.String("message_id", msg.UUID),
				attr.Error(err),
			)
			return nil
		}

		if err := handler(ctx, payload); err != nil {
			logger.ErrorContext(ctx, "Error processing message",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", name),
				attr.String("message_id", msg.UUID),
				attr.Error(err),
			)
			span.RecordError(err)
			return err
		}
		return nil
	}
}

// Close shuts down the router.
func (r *TournamentRouter) Close() error {
	return r.Router.Close()
}
