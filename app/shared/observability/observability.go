package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tournamentmetrics "github.com/Black-And-White-Club/tournament-engine/app/shared/observability/metrics/tournament"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls logging, tracing and metrics exposure.
type Config struct {
	ServiceName    string
	Environment    string
	Version        string
	LogLevel       string
	MetricsAddress string
}

// Provider bundles the observability handles shared by every module.
type Provider struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Registry *prometheus.Registry
	Metrics  tournamentmetrics.TournamentMetrics

	cfg Config
}

// NewProvider builds a JSON slog logger, a tracer from the global otel
// provider and a fresh prometheus registry with the tournament collectors.
func NewProvider(cfg Config) (*Provider, error) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})
	logger := slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("version", cfg.Version),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := tournamentmetrics.NewPrometheus(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register tournament metrics: %w", err)
	}

	return &Provider{
		Logger:   logger,
		Tracer:   otel.Tracer(cfg.ServiceName),
		Registry: reg,
		Metrics:  metrics,
		cfg:      cfg,
	}, nil
}

// NewTestProvider returns a provider that discards logs, spans and metrics.
func NewTestProvider() *Provider {
	return &Provider{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:   noop.NewTracerProvider().Tracer("test"),
		Registry: prometheus.NewRegistry(),
		Metrics:  tournamentmetrics.NewNoop(),
	}
}

// Handler exposes /metrics and /healthz.
func (p *Provider) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{Registry: p.Registry}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// ServeMetrics serves Handler on the configured address until ctx is done.
// An empty address disables the server.
func (p *Provider) ServeMetrics(ctx context.Context) error {
	if p.cfg.MetricsAddress == "" {
		return nil
	}

	srv := &http.Server{
		Addr:              p.cfg.MetricsAddress,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		p.Logger.Info("Metrics server listening", slog.String("address", p.cfg.MetricsAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
