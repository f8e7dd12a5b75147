package logger

import (
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/sweetpotato0/ai-dispatch/middleware"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
)

// TurnLogger logs every routed turn: input size on the way in, the routing
// outcome and latency on the way out. Query text is only logged at debug.
type TurnLogger struct {
	logger *slog.Logger
}

// New creates a turn logging middleware; a nil logger uses the shared one.
func New(logger *slog.Logger) *TurnLogger {
	if logger == nil {
		logger = logging.WithComponent("middleware.logger")
	}
	return &TurnLogger{logger: logger}
}

// Name returns the middleware name
func (m *TurnLogger) Name() string {
	return "TurnLogger"
}

// Execute logs the turn
func (m *TurnLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	m.logger.Debug("turn received", "input", ctx.Input, "runes", utf8.RuneCountInString(ctx.Input))

	err := next(ctx)
	attrs := []any{
		"agent", ctx.Agent,
		"score", ctx.Score,
		"accepted", ctx.Accepted,
		"latency", time.Since(ctx.StartedAt),
	}
	if err != nil {
		m.logger.Warn("turn failed", append(attrs, "error", err)...)
		return err
	}
	m.logger.Info("turn completed", attrs...)
	return nil
}
