package errorhandler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/middleware"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
)

func TestApology(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", errorskg.ErrRateLimited, RateLimitedApology},
		{"invalid input", fmt.Errorf("too long: %w", errorskg.ErrInvalidInput), InvalidInputReply},
		{"other", errors.New("boom"), DefaultApology},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := middleware.NewContext(context.Background(), "q")
			err := Apology(logging.Discard()).Execute(ctx, func(*middleware.Context) error { return tt.err })
			if err != nil {
				t.Fatalf("expected error to be swallowed, got %v", err)
			}
			if ctx.Output != tt.want {
				t.Errorf("Output = %q, want %q", ctx.Output, tt.want)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	t.Run("passes through success", func(t *testing.T) {
		called := false
		h := NewErrorHandler(func(*middleware.Context, error) error {
			called = true
			return nil
		})
		if err := h.Execute(middleware.NewContext(context.Background(), "q"), func(*middleware.Context) error { return nil }); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if called {
			t.Error("handler should not run without an error")
		}
		if h.Name() != "ErrorHandler" {
			t.Errorf("unexpected name %s", h.Name())
		}
	})

	t.Run("custom handler can wrap", func(t *testing.T) {
		boom := errors.New("boom")
		h := NewErrorHandler(func(_ *middleware.Context, err error) error {
			return fmt.Errorf("wrapped: %w", err)
		})
		err := h.Execute(middleware.NewContext(context.Background(), "q"), func(*middleware.Context) error { return boom })
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped boom, got %v", err)
		}
	})

	t.Run("nil handler returns error", func(t *testing.T) {
		boom := errors.New("boom")
		err := NewErrorHandler(nil).Execute(middleware.NewContext(context.Background(), "q"), func(*middleware.Context) error { return boom })
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}
