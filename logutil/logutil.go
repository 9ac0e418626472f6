// Package logutil configures this module's structured logging: log/slog
// with an extra TRACE level below Debug for the sampler's per-token
// accept/reject lines, selected through the gbnfconfig
// environment switches.
package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jmorganca/gbnf/gbnfconfig"
)

// LevelTrace sits below slog.LevelDebug. Trace output is one line per
// engine step, far too noisy for ordinary debugging, so it hides behind
// GBNF_TRACE rather than GBNF_DEBUG.
const LevelTrace slog.Level = slog.LevelDebug - 4

// Level returns the slog level selected by GBNF_TRACE and GBNF_DEBUG.
func Level() slog.Level {
	if gbnfconfig.Trace {
		return LevelTrace
	}
	if gbnfconfig.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger returns a text logger writing to w at the configured level.
// TRACE records print by name instead of slog's "DEBUG-4", and source
// locations are trimmed to their file base name so engine trace lines
// stay short enough to scan.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     Level(),
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if attr.Value.Any().(slog.Level) == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	}))
}

// Setup installs NewLogger(w) as the process-wide default logger.
func Setup(w io.Writer) {
	slog.SetDefault(NewLogger(w))
}

// Trace emits msg at LevelTrace through the default logger, attributing
// the record to its immediate caller.
func Trace(msg string, args ...any) {
	trace(context.Background(), msg, args...)
}

// TraceContext is Trace with a caller-supplied context.
func TraceContext(ctx context.Context, msg string, args ...any) {
	trace(ctx, msg, args...)
}

func trace(ctx context.Context, msg string, args ...any) {
	logger := slog.Default()
	if !logger.Enabled(ctx, LevelTrace) {
		return
	}
	pc, _, _, _ := runtime.Caller(2)
	record := slog.NewRecord(time.Now(), LevelTrace, msg, pc)
	record.Add(args...)
	logger.Handler().Handle(ctx, record)
}
