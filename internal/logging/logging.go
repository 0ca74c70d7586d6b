// Package logging is the structured logger shared by the region map
// packages. It wraps log/slog behind a small interface so components can
// take a Logger option and default to Noop.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Field is one key/value attribute on a log entry.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Strings(key string, vals []string) Field { return Field{Key: key, Value: vals} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }

// Err logs err's message under "error". A nil error logs a nil value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is implemented by the slog-backed logger and by Noop.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Config is read from LOG_* variables by internal/config.
type Config struct {
	Level     string `env:"LEVEL" envDefault:"info"`  // debug, info, warn, error
	Format    string `env:"FORMAT" envDefault:"text"` // text or json
	AddSource bool   `env:"ADD_SOURCE"`
}

// New writes to stderr so cmd/replay can keep stdout for frames.
func New(cfg Config) Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg Config, out io.Writer) Logger {
	opts := &slog.HandlerOptions{Level: levelOf(cfg.Level), AddSource: cfg.AddSource}
	if strings.EqualFold(cfg.Format, "json") {
		return slogLogger{slog.New(slog.NewJSONHandler(out, opts))}
	}
	return slogLogger{slog.New(slog.NewTextHandler(out, opts))}
}

func levelOf(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type slogLogger struct{ l *slog.Logger }

func (s slogLogger) emit(ctx context.Context, lvl slog.Level, msg string, fields []Field) {
	if !s.l.Enabled(ctx, lvl) {
		return
	}
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	s.l.LogAttrs(ctx, lvl, msg, attrs...)
}

func (s slogLogger) Debug(ctx context.Context, msg string, f ...Field) { s.emit(ctx, slog.LevelDebug, msg, f) }
func (s slogLogger) Info(ctx context.Context, msg string, f ...Field)  { s.emit(ctx, slog.LevelInfo, msg, f) }
func (s slogLogger) Warn(ctx context.Context, msg string, f ...Field)  { s.emit(ctx, slog.LevelWarn, msg, f) }
func (s slogLogger) Error(ctx context.Context, msg string, f ...Field) { s.emit(ctx, slog.LevelError, msg, f) }

func (s slogLogger) With(fields ...Field) Logger {
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = slog.Any(f.Key, f.Value)
	}
	return slogLogger{s.l.With(args...)}
}

// Noop discards everything.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) With(...Field) Logger                    { return noopLogger{} }
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}

type loggerKey struct{}

// ContextWithLogger attaches l to ctx; a nil l attaches Noop.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	if l == nil {
		l = Noop()
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger attached to ctx, else fallback, else Noop.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
			return l
		}
	}
	if fallback == nil {
		return Noop()
	}
	return fallback
}
