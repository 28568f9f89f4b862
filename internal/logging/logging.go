// Package logging builds the [log/slog] logger of a run and carries it
// through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/def2cmake/internal/config"
)

var levels = map[string]slog.Level{
	config.LogLevelDebug: slog.LevelDebug,
	config.LogLevelInfo:  slog.LevelInfo,
	config.LogLevelWarn:  slog.LevelWarn,
	config.LogLevelError: slog.LevelError,
}

// Setup builds the logger described by cfg, writing to w (stderr when nil),
// and makes it the slog default.
func Setup(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.EffectiveLogLevel())}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.LogFormat == config.LogFormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps a configured level name to a slog.Level, defaulting to
// info.
func ParseLevel(name string) slog.Level {
	if l, ok := levels[name]; ok {
		return l
	}

	return slog.LevelInfo
}

// Discard returns a logger that drops everything. Packages fall back to it
// when no logger is supplied.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type ctxKey struct{}

// NewContext returns a child context carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger carried by ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}

	return slog.Default()
}

// With returns a child context whose logger carries args, such as the
// definition file being exported.
func With(ctx context.Context, args ...any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(args...))
}
