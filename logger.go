package denseengine

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific context, providing
// structured logging with consistent field names across the store and
// loader.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithPath adds a file path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogAddDocument logs a single AddDocument call during Loading.
func (l *Logger) LogAddDocument(ctx context.Context, index int, err error) {
	if err != nil {
		l.DebugContext(ctx, "add_document rejected",
			"index", index,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "add_document completed",
		"index", index,
	)
}

// LogFinalize logs a Finalize call.
func (l *Logger) LogFinalize(ctx context.Context, count int, alreadyFinalized bool) {
	if alreadyFinalized {
		l.DebugContext(ctx, "finalize is a no-op, already finalized")
		return
	}
	l.InfoContext(ctx, "finalize completed",
		"count", count,
	)
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int) {
	l.DebugContext(ctx, "search completed",
		"k", k,
		"results", resultsFound,
	)
}

// LogFileLoaded logs the outcome of loading one file in the directory
// loader's pipeline.
func (l *Logger) LogFileLoaded(ctx context.Context, path string, docsParsed, docsFailed int, mapped bool, err error) {
	if err != nil {
		l.WarnContext(ctx, "file skipped",
			"path", path,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "file loaded",
		"path", path,
		"documents", docsParsed,
		"failed", docsFailed,
		"mapped", mapped,
	)
}

// LogDirectoryLoad logs the summary of a completed directory load. It
// takes plain fields rather than the loader package's Stats type to avoid
// an import cycle (the loader package depends on this one).
func (l *Logger) LogDirectoryLoad(ctx context.Context, filesSeen, filesSucceeded, filesFailed, docsParsed, docsFailed int, elapsed string) {
	l.InfoContext(ctx, "directory load completed",
		"files_seen", filesSeen,
		"files_succeeded", filesSucceeded,
		"files_failed", filesFailed,
		"documents_parsed", docsParsed,
		"documents_failed", docsFailed,
		"elapsed", elapsed,
	)
}
