package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/middleware"
)

// DefaultMaxRunes bounds a single query.
const DefaultMaxRunes = 4000

// ValidatorFunc validates input
type ValidatorFunc func(string) error

// FilterFunc transforms the reply text
type FilterFunc func(string) (string, error)

// MaxLength rejects input longer than max runes and input that is not valid UTF-8.
// Blank input passes: routing answers it with the refusal.
func MaxLength(max int) ValidatorFunc {
	if max <= 0 {
		max = DefaultMaxRunes
	}
	return func(input string) error {
		if !utf8.ValidString(input) {
			return fmt.Errorf("input is not valid UTF-8: %w", errorskg.ErrInvalidInput)
		}
		if n := utf8.RuneCountInString(input); n > max {
			return fmt.Errorf("input has %d characters, limit is %d: %w", n, max, errorskg.ErrInvalidInput)
		}
		return nil
	}
}

// InputValidator validates input before routing
type InputValidator struct {
	validator ValidatorFunc
}

// NewInputValidator creates an input validation middleware
func NewInputValidator(validator ValidatorFunc) *InputValidator {
	return &InputValidator{validator: validator}
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the input
func (m *InputValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.validator != nil {
		if err := m.validator(ctx.Input); err != nil {
			return err
		}
	}
	return next(ctx)
}

// ResponseFilter filters or transforms the reply
type ResponseFilter struct {
	filter FilterFunc
}

// NewResponseFilter creates a response filtering middleware
func NewResponseFilter(filter FilterFunc) *ResponseFilter {
	return &ResponseFilter{filter: filter}
}

// TrimOutput strips surrounding whitespace from replies.
func TrimOutput() *ResponseFilter {
	return NewResponseFilter(func(s string) (string, error) {
		return strings.TrimSpace(s), nil
	})
}

// Name returns the middleware name
func (m *ResponseFilter) Name() string {
	return "ResponseFilter"
}

// Execute filters the reply
func (m *ResponseFilter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if err := next(ctx); err != nil {
		return err
	}
	if m.filter == nil {
		return nil
	}
	out, err := m.filter(ctx.Output)
	if err != nil {
		return err
	}
	ctx.Output = out
	return nil
}
