// Package tournamentpublisher turns committed engine side effects into
// NATS messages.
package tournamentpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	tournamentservice "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/application"
	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

// Publisher implements the engine's outbound ports on top of a watermill
// publisher.
type Publisher struct {
	publisher message.Publisher
	limiter   *rate.Limiter
	logger    *slog.Logger
	tracer    trace.Tracer
}

var (
	_ tournamentservice.ExecutionDispatcher = (*Publisher)(nil)
	_ tournamentservice.Notifier            = (*Publisher)(nil)
	_ tournamentservice.RepositoryAccess    = (*Publisher)(nil)
)

// NewPublisher creates a Publisher. A nil limiter dispatches without throttling.
func NewPublisher(publisher message.Publisher, limiter *rate.Limiter, logger *slog.Logger, tracer trace.Tracer) *Publisher {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("tournament-publisher")
	}
	return &Publisher{
		publisher: publisher,
		limiter:   limiter,
		logger:    logger,
		tracer:    tracer,
	}
}

// Dispatch asks the execution layer to run a started match. Bursts of new
// matches are throttled by the limiter.
func (p *Publisher) Dispatch(ctx context.Context, payload tournamentevents.MatchDispatchRequestedPayloadV1) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("dispatch throttled: %w", err)
		}
	}
	return p.publish(ctx, tournamentevents.MatchDispatchRequestedV1, "dispatch:"+payload.MatchID.String(), payload)
}

// RoundAdvanced announces the new round of an event. The advance time is part
// of the message id so a phase replayed after cleanup is not deduplicated.
func (p *Publisher) RoundAdvanced(ctx context.Context, payload tournamentevents.RoundAdvancedPayloadV1) error {
	id := fmt.Sprintf("round:%s:%s:%d:%d", payload.EventID, payload.Phase, payload.Round, payload.OccurredAt.UnixNano())
	return p.publish(ctx, tournamentevents.RoundAdvancedV1, id, payload)
}

// PhaseCompleted announces that an event phase has ended.
func (p *Publisher) PhaseCompleted(ctx context.Context, payload tournamentevents.PhaseCompletedPayloadV1) error {
	id := fmt.Sprintf("phase:%s:%s:%d", payload.EventID, payload.Phase, payload.OccurredAt.UnixNano())
	return p.publish(ctx, tournamentevents.PhaseCompletedV1, id, payload)
}

// Revoke asks the provisioning layer to freeze a team repository.
func (p *Publisher) Revoke(ctx context.Context, payload tournamentevents.RepositoryAccessPayloadV1) error {
	return p.publish(ctx, tournamentevents.RepositoryAccessRevokedV1, "", payload)
}

// Grant asks the provisioning layer to restore a team repository.
func (p *Publisher) Grant(ctx context.Context, payload tournamentevents.RepositoryAccessPayloadV1) error {
	return p.publish(ctx, tournamentevents.RepositoryAccessGrantedV1, "", payload)
}

// publish marshals payload and sends it on topic. A non-empty id becomes the
// message UUID so JetStream drops duplicates of the same side effect; an
// empty id gets a random one.
func (p *Publisher) publish(ctx context.Context, topic, id string, payload any) error {
	ctx, span := p.tracer.Start(ctx, "Publisher.publish", trace.WithAttributes(attribute.String("topic", topic)))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}

	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, body)
	msg.SetContext(ctx)
	if cid := attr.CorrelationID(ctx); cid != "" {
		msg.Metadata.Set("correlation_id", cid)
	}
	msg.Metadata.Set("topic", topic)

	if err := p.publisher.Publish(topic, msg); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "Published message",
		attr.ExtractCorrelationID(ctx),
		attr.String("topic", topic),
		attr.String("message_id", msg.UUID),
	)
	return nil
}
