package tournamentmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TournamentMetrics records engine operations and progression events.
type TournamentMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
	RecordMatchesCreated(ctx context.Context, phase string, count int)
	RecordRoundAdvanced(ctx context.Context, phase string)
	RecordPhaseCompleted(ctx context.Context, phase string)
	RecordLockSkipped(ctx context.Context, lock string)
}

type prometheusMetrics struct {
	attempts       *prometheus.CounterVec
	successes      *prometheus.CounterVec
	failures       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	matchesCreated *prometheus.CounterVec
	roundsAdvanced *prometheus.CounterVec
	phasesDone     *prometheus.CounterVec
	lockSkipped    *prometheus.CounterVec
}

// NewPrometheus registers the tournament collectors on reg.
func NewPrometheus(reg prometheus.Registerer) (TournamentMetrics, error) {
	m := &prometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "operation_success_total",
			Help:      "Service operations that returned without an infrastructure error.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "operation_failures_total",
			Help:      "Service operations that failed or panicked.",
		}, []string{"operation", "service"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tournament",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		matchesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "matches_created_total",
			Help:      "Matches created by phase.",
		}, []string{"phase"}),
		roundsAdvanced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "rounds_advanced_total",
			Help:      "Event rounds advanced by phase.",
		}, []string{"phase"}),
		phasesDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "phases_completed_total",
			Help:      "Event phases completed.",
		}, []string{"phase"}),
		lockSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "lock_skipped_total",
			Help:      "Periodic runs skipped because another process held the lock.",
		}, []string{"lock"}),
	}

	for _, c := range []prometheus.Collector{
		m.attempts, m.successes, m.failures, m.duration,
		m.matchesCreated, m.roundsAdvanced, m.phasesDone, m.lockSkipped,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, d time.Duration) {
	m.duration.WithLabelValues(operation, service).Observe(d.Seconds())
}

func (m *prometheusMetrics) RecordMatchesCreated(_ context.Context, phase string, count int) {
	m.matchesCreated.WithLabelValues(phase).Add(float64(count))
}

func (m *prometheusMetrics) RecordRoundAdvanced(_ context.Context, phase string) {
	m.roundsAdvanced.WithLabelValues(phase).Inc()
}

func (m *prometheusMetrics) RecordPhaseCompleted(_ context.Context, phase string) {
	m.phasesDone.WithLabelValues(phase).Inc()
}

func (m *prometheusMetrics) RecordLockSkipped(_ context.Context, lock string) {
	m.lockSkipped.WithLabelValues(lock).Inc()
}

type noop struct{}

// NewNoop returns metrics that discard everything.
func NewNoop() TournamentMetrics { return noop{} }

func (noop) RecordOperationAttempt(context.Context, string, string)                 {}
func (noop) RecordOperationSuccess(context.Context, string, string)                 {}
func (noop) RecordOperationFailure(context.Context, string, string)                 {}
func (noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noop) RecordMatchesCreated(context.Context, string, int)                      {}
func (noop) RecordRoundAdvanced(context.Context, string)                            {}
func (noop) RecordPhaseCompleted(context.Context, string)                           {}
func (noop) RecordLockSkipped(context.Context, string)                              {}
