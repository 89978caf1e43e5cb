package log

import (
	"context"
	"log/slog"
	"net/http"
)

type loggerKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, or the slog default tagged
// "unknown" outside a request.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return tagged(slog.Default(), "unknown")
}

// Middleware makes logger available to handlers through FromContext.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger writes the request and domain events that dashboards
// filter on, with a fixed field set per event.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// emit tags the record with the component named in fields.
func (sl *StructuredLogger) emit(ctx context.Context, level slog.Level, msg string, fields LogFields) {
	logger := sl.logger
	if component, ok := fields[FieldComponent].(string); ok {
		logger = logger.WithComponent(component)
		delete(fields, FieldComponent)
	}
	logger.Log(ctx, level, msg, fields.ToSlice()...)
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.emit(ctx, slog.LevelInfo, "HTTP request started", fields)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.emit(ctx, level, "HTTP request completed", fields)
}

func (sl *StructuredLogger) LogSkillCreated(ctx context.Context, userID, skillID, name, category string) {
	fields := NewFields().
		WithUser(userID).
		WithSkill(skillID, name, category).
		WithOperation(OpCreate).
		WithComponent(ComponentSkill)
	sl.emit(ctx, slog.LevelInfo, "Skill created", fields)
}

func (sl *StructuredLogger) LogEntryAppended(ctx context.Context, userID, skillID string, entryID int64, date, hours string) {
	fields := NewFields().
		WithUser(userID).
		WithEntry(entryID, date, hours).
		WithOperation(OpAppend).
		WithComponent(ComponentSkill)
	fields[FieldSkillID] = skillID
	sl.emit(ctx, slog.LevelInfo, "Entry appended", fields)
}

// LogError adds err, operation and component to fields, which may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields = fields.WithError(err).WithOperation(operation).WithComponent(component)
	sl.emit(ctx, slog.LevelError, msg, fields)
}
