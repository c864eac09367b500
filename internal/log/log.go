// Package log provides the dual-mode (human/structured) logger every
// provider, the migrator, and the orchestrator log through. It is
// deliberately vendor-agnostic ambient infrastructure: the migration engine
// logs per-object failures through this package exactly as spec.md §7
// requires ("a failing run logs the failing object, category, and the
// vendor's error text"), independent of which database vendors are
// involved in a given run.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Logger is the interface every core component depends on.
type Logger interface {
	DebugContext(ctx context.Context, msg string, keysAndValues ...any)
	InfoContext(ctx context.Context, msg string, keysAndValues ...any)
	WarnContext(ctx context.Context, msg string, keysAndValues ...any)
	ErrorContext(ctx context.Context, msg string, keysAndValues ...any)
}

const (
	Debug = "DEBUG"
	Info  = "INFO"
	Warn  = "WARN"
	Error = "ERROR"
)

// NewLogger creates a new logger based on the provided format and level.
func NewLogger(format, level string, out, err io.Writer) (Logger, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewStructuredLogger(out, err, level)
	case "standard", "":
		return NewStdLogger(out, err, level)
	default:
		return nil, fmt.Errorf("logging format invalid: %s", format)
	}
}

// SeverityToLevel returns the slog.Level for a severity string.
func SeverityToLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case Debug:
		return slog.LevelDebug, nil
	case Info:
		return slog.LevelInfo, nil
	case Warn:
		return slog.LevelWarn, nil
	case Error:
		return slog.LevelError, nil
	default:
		return slog.Level(-5), fmt.Errorf("invalid log level: %s", s)
	}
}

func levelToSeverity(s string) string {
	switch s {
	case slog.LevelDebug.String():
		return Debug
	case slog.LevelInfo.String():
		return Info
	case slog.LevelWarn.String():
		return Warn
	case slog.LevelError.String():
		return Error
	default:
		return s
	}
}

// StdLogger is a human-readable key=value logger, info/debug to out and
// warn/error to err.
type StdLogger struct {
	outLogger *slog.Logger
	errLogger *slog.Logger
}

// NewStdLogger creates a Logger that uses out and err for informational and
// error messages, in slog's default key=value text format, with trace/span
// correlation from the active OpenTelemetry span in ctx.
func NewStdLogger(outW, errW io.Writer, logLevel string) (Logger, error) {
	programLevel := new(slog.LevelVar)
	lvl, err := SeverityToLevel(logLevel)
	if err != nil {
		return nil, err
	}
	programLevel.Set(lvl)

	opts := &slog.HandlerOptions{Level: programLevel}
	return &StdLogger{
		outLogger: slog.New(spanHandler{slog.NewTextHandler(outW, opts)}),
		errLogger: slog.New(spanHandler{slog.NewTextHandler(errW, opts)}),
	}, nil
}

func (sl *StdLogger) DebugContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.DebugContext(ctx, msg, kv...)
}
func (sl *StdLogger) InfoContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.InfoContext(ctx, msg, kv...)
}
func (sl *StdLogger) WarnContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.WarnContext(ctx, msg, kv...)
}
func (sl *StdLogger) ErrorContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.ErrorContext(ctx, msg, kv...)
}

// SlogLogger returns a single *slog.Logger that routes to out or err by
// level, for callers (e.g. a vendor driver's logging hook) that want a
// stdlib *slog.Logger rather than this package's interface.
func (sl *StdLogger) SlogLogger() *slog.Logger {
	return slog.New(&SplitHandler{OutHandler: sl.outLogger.Handler(), ErrHandler: sl.errLogger.Handler()})
}

// StructuredLogger emits JSON log lines shaped for ingestion by a
// structured log sink, with severity/message/timestamp field names and
// trace/span correlation.
type StructuredLogger struct {
	outLogger *slog.Logger
	errLogger *slog.Logger
}

// NewStructuredLogger creates a Logger that logs JSON-formatted messages.
func NewStructuredLogger(outW, errW io.Writer, logLevel string) (Logger, error) {
	programLevel := new(slog.LevelVar)
	lvl, err := SeverityToLevel(logLevel)
	if err != nil {
		return nil, err
	}
	programLevel.Set(lvl)

	replace := func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			return slog.Attr{Key: "severity", Value: slog.StringValue(levelToSeverity(a.Value.String()))}
		case slog.MessageKey:
			return slog.Attr{Key: "message", Value: a.Value}
		case slog.TimeKey:
			return slog.Attr{Key: "timestamp", Value: a.Value}
		}
		return a
	}

	outHandler := spanHandler{slog.NewJSONHandler(outW, &slog.HandlerOptions{Level: programLevel, ReplaceAttr: replace})}
	errHandler := spanHandler{slog.NewJSONHandler(errW, &slog.HandlerOptions{Level: programLevel, ReplaceAttr: replace})}

	return &StructuredLogger{outLogger: slog.New(outHandler), errLogger: slog.New(errHandler)}, nil
}

func (sl *StructuredLogger) DebugContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.DebugContext(ctx, msg, kv...)
}
func (sl *StructuredLogger) InfoContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.InfoContext(ctx, msg, kv...)
}
func (sl *StructuredLogger) WarnContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.WarnContext(ctx, msg, kv...)
}
func (sl *StructuredLogger) ErrorContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.ErrorContext(ctx, msg, kv...)
}

// SplitHandler routes records to OutHandler or ErrHandler based on level,
// used to expose a single *slog.Logger view over a dual-writer Logger.
type SplitHandler struct {
	OutHandler slog.Handler
	ErrHandler slog.Handler
}

func (h *SplitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelWarn {
		return h.ErrHandler.Enabled(ctx, level)
	}
	return h.OutHandler.Enabled(ctx, level)
}

func (h *SplitHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.ErrHandler.Handle(ctx, r)
	}
	return h.OutHandler.Handle(ctx, r)
}

func (h *SplitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SplitHandler{OutHandler: h.OutHandler.WithAttrs(attrs), ErrHandler: h.ErrHandler.WithAttrs(attrs)}
}

func (h *SplitHandler) WithGroup(name string) slog.Handler {
	return &SplitHandler{OutHandler: h.OutHandler.WithGroup(name), ErrHandler: h.ErrHandler.WithGroup(name)}
}

// spanHandler wraps a slog.Handler, adding trace_id/span_id attributes from
// the active OpenTelemetry span in ctx, so a log line emitted during a
// traced connection attempt (see internal/providers/dial) can be correlated
// with the span that produced it.
type spanHandler struct {
	slog.Handler
}

func (h spanHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h spanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanHandler{h.Handler.WithAttrs(attrs)}
}

func (h spanHandler) WithGroup(name string) slog.Handler {
	return spanHandler{h.Handler.WithGroup(name)}
}
