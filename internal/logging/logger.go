package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Logger writes one JSON object per line. Output goes to stderr by default so
// it never mixes with data written to stdout.
type Logger struct {
	level  slog.Level
	logger *slog.Logger
}

func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func NewLogger(levelStr string) *Logger {
	return NewLoggerWithWriter(levelStr, os.Stderr)
}

func NewLoggerWithWriter(levelStr string, w io.Writer) *Logger {
	level := parseLevel(levelStr)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(strings.ToLower(lvl.String()))
				}
			}
			return a
		},
	})
	return &Logger{level: level, logger: slog.New(h)}
}

// WithComponent returns a child logger that tags every line with component.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{level: l.level, logger: l.logger.With("component", name)}
}

func (l *Logger) Enabled(level slog.Level) bool { return level >= l.level }

func (l *Logger) logf(level slog.Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	l.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (l *Logger) logw(level slog.Level, msg string, fields map[string]any) {
	if !l.Enabled(level) {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func (l *Logger) Debug(format string, args ...any) { l.logf(slog.LevelDebug, format, args...) }

func (l *Logger) Info(format string, args ...any) { l.logf(slog.LevelInfo, format, args...) }

func (l *Logger) Warn(format string, args ...any) { l.logf(slog.LevelWarn, format, args...) }

func (l *Logger) Error(format string, args ...any) { l.logf(slog.LevelError, format, args...) }

func (l *Logger) Debugw(msg string, fields map[string]any) { l.logw(slog.LevelDebug, msg, fields) }

func (l *Logger) Infow(msg string, fields map[string]any) { l.logw(slog.LevelInfo, msg, fields) }

func (l *Logger) Warnw(msg string, fields map[string]any) { l.logw(slog.LevelWarn, msg, fields) }

func (l *Logger) Errorw(msg string, fields map[string]any) { l.logw(slog.LevelError, msg, fields) }

func (l *Logger) Fatal(format string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelError, fmt.Sprintf(format, args...), "fatal", true)
	os.Exit(1)
}
