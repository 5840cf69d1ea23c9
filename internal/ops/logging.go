package ops

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sandwichfarm/nostr-observatory/internal/config"
)

// Logger is a structured logger wrapper shared by every service.
type Logger struct {
	*slog.Logger
	level  slog.Level
	format string
}

// NewLogger creates a new structured logger based on config.
func NewLogger(cfg *config.Logging) *Logger {
	return newLogger(cfg, os.Stdout)
}

// NewLoggerWithWriter creates a logger with a custom writer, used by tests.
func NewLoggerWithWriter(cfg *config.Logging, w io.Writer) *Logger {
	return newLogger(cfg, w)
}

func newLogger(cfg *config.Logging, w io.Writer) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		level:  level,
		format: cfg.Format,
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent adds a "service" field holding component to all log
// messages, e.g. the owning service name ("validator", "monitor").
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("service", component),
		level:  l.level,
		format: l.format,
	}
}

// WithFields adds custom fields to the logger.
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(fields...),
		level:  l.level,
		format: l.format,
	}
}

// IsDebugEnabled returns true if debug logging is enabled.
func (l *Logger) IsDebugEnabled() bool {
	return l.level <= slog.LevelDebug
}

// Component-specific logger helpers, mirroring the shape of the pipeline's
// five stages.

// LogPoolOperation logs a database pool operation.
func (l *Logger) LogPoolOperation(op string, duration time.Duration, err error) {
	if err != nil {
		l.Error("pool operation failed", "operation", op, "duration_ms", duration.Milliseconds(), "error", err)
	} else {
		l.Debug("pool operation completed", "operation", op, "duration_ms", duration.Milliseconds())
	}
}

// LogRelayConnection logs a relay connection attempt.
func (l *Logger) LogRelayConnection(relay string, connected bool, err error) {
	if err != nil {
		l.Warn("relay connection failed", "relay", relay, "error", err)
	} else if connected {
		l.Info("relay connected", "relay", relay)
	} else {
		l.Info("relay disconnected", "relay", relay)
	}
}

// LogCandidateOutcome logs one validator probe outcome.
func (l *Logger) LogCandidateOutcome(url string, network string, promoted bool, failedAttempts int, err error) {
	if err != nil {
		l.Warn("candidate probe failed", "url", url, "network", network, "failed_attempts", failedAttempts, "error", err)
		return
	}
	if promoted {
		l.Info("candidate promoted", "url", url, "network", network)
	}
}

// LogSyncProgress logs synchronizer window progress for one relay.
func (l *Logger) LogSyncProgress(relay string, kind int, count int, cursor int64) {
	l.Debug("sync progress", "relay", relay, "kind", kind, "events", count, "cursor", cursor)
}

// LogProbeResult logs one monitor probe's outcome.
func (l *Logger) LogProbeResult(relay string, probe string, duration time.Duration, err error) {
	if err != nil {
		l.Warn("probe failed", "relay", relay, "probe", probe, "duration_ms", duration.Milliseconds(), "error", err)
	} else {
		l.Debug("probe completed", "relay", relay, "probe", probe, "duration_ms", duration.Milliseconds())
	}
}

// LogCycle logs the outcome of one service cycle.
func (l *Logger) LogCycle(duration time.Duration, err error, consecutiveFailures int) {
	if err != nil {
		l.Error("cycle failed", "duration_ms", duration.Milliseconds(), "error", err, "consecutive_failures", consecutiveFailures)
	} else {
		l.Info("cycle completed", "duration_ms", duration.Milliseconds())
	}
}

// LogStartup logs application startup information.
func (l *Logger) LogStartup(version, commit string, config map[string]interface{}) {
	l.Info("observatory service starting", "version", version, "commit", commit, "config", config)
}

// LogShutdown logs application shutdown.
func (l *Logger) LogShutdown(reason string) {
	l.Info("observatory service shutting down", "reason", reason)
}

// LogPanic logs a panic with stack trace.
func (l *Logger) LogPanic(recovered interface{}, stack string) {
	l.Error("panic recovered", "panic", fmt.Sprintf("%v", recovered), "stack", stack)
}

// Default logger, usable before a service has parsed its own config (e.g.
// while reporting a config-load failure).
var defaultLogger *Logger

func init() {
	defaultLogger = NewLogger(&config.Logging{Level: "info", Format: "text"})
}

// Default returns the default logger.
func Default() *Logger { return defaultLogger }

// SetDefault sets the default logger.
func SetDefault(l *Logger) { defaultLogger = l }

// Info logs an info message on the default logger.
func Info(msg string, fields ...any) { defaultLogger.Info(msg, fields...) }

// Debug logs a debug message on the default logger.
func Debug(msg string, fields ...any) { defaultLogger.Debug(msg, fields...) }

// Warn logs a warning message on the default logger.
func Warn(msg string, fields ...any) { defaultLogger.Warn(msg, fields...) }

// Error logs an error message on the default logger.
func Error(msg string, fields ...any) { defaultLogger.Error(msg, fields...) }
