// Package attr holds slog attribute helpers so log keys stay consistent
// across the engine.
package attr

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type ctxKey struct{}

// WithCorrelationID stores id on ctx for later log lines.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// ExtractCorrelationID returns the correlation id attribute for ctx, empty
// when none was set.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationID(ctx))
}

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

func Time(key string, value time.Time) slog.Attr { return slog.Time(key, value) }

// Error logs err under the "error" key. A nil error logs as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func UUID(key string, id uuid.UUID) slog.Attr { return slog.String(key, id.String()) }

func EventID(id uuid.UUID) slog.Attr { return UUID("event_id", id) }

func MatchID(id uuid.UUID) slog.Attr { return UUID("match_id", id) }

func TeamID(id uuid.UUID) slog.Attr { return UUID("team_id", id) }

func Phase(phase string) slog.Attr { return slog.String("phase", phase) }

func Round(round int) slog.Attr { return slog.Int("round", round) }
