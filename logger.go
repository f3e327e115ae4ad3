package segindex

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with segindex-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithBuild adds the build identity to the logger.
func (l *Logger) WithBuild(buildID, indexVersion int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("build_id", buildID, "index_version", indexVersion),
	}
}

// WithSegment adds the segment and field identity to the logger.
func (l *Logger) WithSegment(segmentID, fieldID int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("segment_id", segmentID, "field_id", fieldID),
	}
}

// WithIndexType adds the index type to the logger.
func (l *Logger) WithIndexType(indexType string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index_type", indexType),
	}
}

// LogBuild logs a build operation.
func (l *Logger) LogBuild(ctx context.Context, source string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"source", source,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index built",
			"source", source,
		)
	}
}

// LogLoad logs a load from a binary set.
func (l *Logger) LogLoad(ctx context.Context, blobs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index load failed",
			"blobs", blobs,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "index loaded",
			"blobs", blobs,
		)
	}
}

// LogUpload logs an upload operation.
func (l *Logger) LogUpload(ctx context.Context, target string, files int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index upload failed",
			"target", target,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index uploaded",
			"target", target,
			"files", files,
			"bytes", bytes,
		)
	}
}

// LogCleanup logs removal of local scratch data.
func (l *Logger) LogCleanup(ctx context.Context, prefix string) {
	l.DebugContext(ctx, "local data cleaned",
		"prefix", prefix,
	)
}
