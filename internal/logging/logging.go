// Package logging provides the structured logger and request-scoped context keys.
package logging

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// TraceIDKey carries the request trace id through context.
	TraceIDKey contextKey = "trace_id"
	// UserIDKey carries the authenticated user id through context.
	UserIDKey contextKey = "user_id"
)

// Logger wraps zerolog with context-aware field enrichment.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger writing JSON to w at the given level.
// Unknown levels fall back to info.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything, for tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithContext returns a zerolog logger enriched with trace and user ids
// found in ctx.
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	zl := l.zl
	if id := GetTraceID(ctx); id != "" {
		zl = zl.With().Str("trace_id", id).Logger()
	}
	if id := GetUserID(ctx); id != "" {
		zl = zl.With().Str("user_id", id).Logger()
	}
	return &zl
}

// Debug logs at debug level without context enrichment.
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }

// Info logs at info level without context enrichment.
func (l *Logger) Info() *zerolog.Event { return l.zl.Info() }

// Warn logs at warn level without context enrichment.
func (l *Logger) Warn() *zerolog.Event { return l.zl.Warn() }

// Error logs at error level without context enrichment.
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// SecurityEvent records an auth or rate-limit event with a fixed shape so
// they can be filtered downstream.
func (l *Logger) SecurityEvent(ctx context.Context, event string, fields map[string]any) {
	e := l.WithContext(ctx).Warn().Str("security_event", event)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg("security event")
}

// LogRequest records one completed HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	e := l.WithContext(ctx).Info()
	if status >= http.StatusInternalServerError {
		e = l.WithContext(ctx).Error()
	}
	e.Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", duration).
		Msg("request")
}

// NewTraceID generates a fresh trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace id in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id from ctx, or "".
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the authenticated user id from ctx, or "".
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}
