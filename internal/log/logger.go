package log

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger tagged with the component it logs for. The
// untagged parent is kept so switching components replaces the tag.
type Logger struct {
	*slog.Logger
	parent    *slog.Logger
	component string
}

func tagged(parent *slog.Logger, component string) *Logger {
	l := parent
	if component != "" {
		l = parent.With(FieldComponent, component)
	}
	return &Logger{Logger: l, parent: parent, component: component}
}

type Config struct {
	Level     slog.Level
	Component string
	// Handler overrides the default text handler on stdout.
	Handler slog.Handler
}

func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: "app"}
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level})
	}
	return tagged(slog.New(handler), config.Component)
}

// With adds attributes and keeps the component.
func (l *Logger) With(args ...any) *Logger {
	return tagged(l.parent.With(args...), l.component)
}

func (l *Logger) WithComponent(component string) *Logger {
	return tagged(l.parent, component)
}

func (l *Logger) Component() string { return l.component }

// Slog returns the logger without its component tag, for packages that
// take a *slog.Logger and tag records themselves.
func (l *Logger) Slog() *slog.Logger { return l.parent }

// SetDefault installs logger as the slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
