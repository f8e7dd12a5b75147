package errorhandler

import (
	"errors"
	"log/slog"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/middleware"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
)

// Replies used by Apology.
const (
	DefaultApology     = "Helper: Sorry, something went wrong while handling your request. Please try again."
	RateLimitedApology = "Helper: You're sending requests a little too quickly. Please wait a moment and try again."
	InvalidInputReply  = "Helper: That message is too long or malformed. Please shorten it and try again."
)

// ErrorHandlerFunc handles an error raised further down the chain.
// Returning nil swallows the error.
type ErrorHandlerFunc func(ctx *middleware.Context, err error) error

// ErrorHandler handles errors in the middleware chain
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// Apology turns every error into a user-facing reply so a turn always yields text.
func Apology(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = logging.WithComponent("middleware.errorhandler")
	}
	return NewErrorHandler(func(ctx *middleware.Context, err error) error {
		logger.Warn("turn rejected", "error", err)
		switch {
		case errors.Is(err, errorskg.ErrRateLimited):
			ctx.Output = RateLimitedApology
		case errors.Is(err, errorskg.ErrInvalidInput):
			ctx.Output = InvalidInputReply
		default:
			ctx.Output = DefaultApology
		}
		return nil
	})
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil && m.handler != nil {
		return m.handler(ctx, err)
	}
	return err
}
