package tournamentservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	tournamentevents "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/events"
	tournamentdb "github.com/Black-And-White-Club/tournament-engine/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/observability/attr"
	tournamentmetrics "github.com/Black-And-White-Club/tournament-engine/app/shared/observability/metrics/tournament"
	"github.com/Black-And-White-Club/tournament-engine/app/shared/results"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "TournamentService"

// TournamentService implements the Service interface.
type TournamentService struct {
	repo       tournamentdb.Repository
	db         TxRunner
	dispatcher ExecutionDispatcher
	notifier   Notifier
	access     RepositoryAccess
	logger     *slog.Logger
	metrics    tournamentmetrics.TournamentMetrics
	tracer     trace.Tracer
	clock      clockwork.Clock
	// pick returns a uniform index in [0, n) for queue matchmaking.
	pick func(n int) int
}

var _ Service = (*TournamentService)(nil)

// NewTournamentService creates a new TournamentService.
func NewTournamentService(
	repo tournamentdb.Repository,
	db TxRunner,
	dispatcher ExecutionDispatcher,
	notifier Notifier,
	access RepositoryAccess,
	logger *slog.Logger,
	metrics tournamentmetrics.TournamentMetrics,
	tracer trace.Tracer,
	clock clockwork.Clock,
) *TournamentService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TournamentService{
		repo:       repo,
		db:         db,
		dispatcher: dispatcher,
		notifier:   notifier,
		access:     access,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		clock:      clock,
		pick:       rand.IntN,
	}
}

func (s *TournamentService) now() time.Time {
	return s.clock.Now().UTC()
}

// effects are side effects that may only run once the transaction that
// produced them has committed.
type effects struct {
	dispatches []tournamentevents.MatchDispatchRequestedPayloadV1
	advanced   *tournamentevents.RoundAdvancedPayloadV1
	completed  *tournamentevents.PhaseCompletedPayloadV1
}

func (e *effects) merge(other effects) {
	e.dispatches = append(e.dispatches, other.dispatches...)
	if other.advanced != nil {
		e.advanced = other.advanced
	}
	if other.completed != nil {
		e.completed = other.completed
	}
}

// publish runs committed side effects. Failures are logged and never
// returned: the state change already happened.
func (s *TournamentService) publish(ctx context.Context, e effects) {
	for _, d := range e.dispatches {
		if s.dispatcher == nil {
			break
		}
		if err := s.dispatcher.Dispatch(ctx, d); err != nil {
			s.logger.ErrorContext(ctx, "Failed to dispatch match",
				attr.ExtractCorrelationID(ctx),
				attr.MatchID(d.MatchID),
				attr.EventID(d.EventID),
				attr.Error(err),
			)
		}
	}

	if e.advanced != nil {
		if s.metrics != nil {
			s.metrics.RecordRoundAdvanced(ctx, e.advanced.Phase.String())
		}
		if s.notifier != nil {
			if err := s.notifier.RoundAdvanced(ctx, *e.advanced); err != nil {
				s.logger.ErrorContext(ctx, "Failed to publish round advanced",
					attr.EventID(e.advanced.EventID),
					attr.Round(e.advanced.Round),
					attr.Error(err),
				)
			}
		}
	}

	if e.completed != nil {
		if s.metrics != nil {
			s.metrics.RecordPhaseCompleted(ctx, e.completed.Phase.String())
		}
		if s.notifier != nil {
			if err := s.notifier.PhaseCompleted(ctx, *e.completed); err != nil {
				s.logger.ErrorContext(ctx, "Failed to publish phase completed",
					attr.EventID(e.completed.EventID),
					attr.Phase(e.completed.Phase.String()),
					attr.Error(err),
				)
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *TournamentService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.DebugContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *TournamentService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}

// unwrap converts an operation result to the (value, error) pair public
// methods return.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if result.Success == nil {
		return zero, nil
	}
	return *result.Success, nil
}
