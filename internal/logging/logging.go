// Package logging configures structured logging and carries loggers in
// contexts.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogcontext "github.com/veqryn/slog-context"
)

// Format selects the handler output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config configures a logger.
type Config struct {
	// Level is the minimum level written.
	Level slog.Level
	// Format is text or json. Defaults to text.
	Format Format
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelWarn,
		Format: FormatText,
		Output: os.Stderr,
	}
}

// New creates a logger. Attributes stored in a context with With are added
// to every record logged with that context.
func New(cfg Config) (*slog.Logger, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText, "":
		handler = slog.NewTextHandler(cfg.Output, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	return slog.New(slogcontext.NewHandler(handler, nil)), nil
}

// ParseLevel parses a level name. Accepted names are debug, info, warn
// (or warning) and error, in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", s)
	}
}

// NewContext returns a context carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return slogcontext.NewCtx(ctx, logger)
}

// FromContext returns the context's logger, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	return slogcontext.FromCtx(ctx)
}

// With returns a context whose logger carries the given attributes.
func With(ctx context.Context, args ...any) context.Context {
	return slogcontext.With(ctx, args...)
}

// WithComponent returns logger tagged with a component attribute.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}
