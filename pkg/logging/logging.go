package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Environment variables read by Logger on first use.
const (
	EnvFormat = "DISPATCH_LOG_FORMAT"
	EnvLevel  = "DISPATCH_LOG_LEVEL"
)

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex
)

// Options selects the handler built by New.
type Options struct {
	// Format is "json" (default) or "text".
	Format string `yaml:"format" json:"format"`
	// Level is debug|info|warn|error; unknown values mean info.
	Level string `yaml:"level" json:"level"`
	// Writer defaults to stderr so log lines never interleave with chat replies on stdout.
	Writer io.Writer `yaml:"-" json:"-"`
}

// Logger returns the process-wide logger, lazily initialised from
// DISPATCH_LOG_FORMAT and DISPATCH_LOG_LEVEL.
func Logger() *slog.Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(Options{
			Format: os.Getenv(EnvFormat),
			Level:  os.Getenv(EnvLevel),
		})
	}
	return defaultLogger
}

// SetLogger overrides the global logger; mainly useful for tests.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// WithComponent attaches a component field to the shared logger.
func WithComponent(component string) *slog.Logger {
	return Logger().With("component", component)
}

// New builds a logger tagged with the service name.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		handler = slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.New(handler).With("service", "ai-dispatch")
}

// ParseLevel maps a level name onto slog levels.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
