package middleware

import (
	"context"
	"time"
)

// Context carries one routed turn through the middleware chain.
type Context struct {
	// Input is the raw user query.
	Input string

	// Output is the text returned to the user.
	Output string

	// Agent is the name of the agent that answered; empty on refusal.
	Agent string

	// Score is the winning agent's confidence.
	Score float64

	// Accepted reports whether an agent cleared the routing threshold.
	Accepted bool

	// StartedAt is set when the context is created.
	StartedAt time.Time

	// Metadata for passing data between middlewares
	Metadata map[string]any

	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context, input string) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Input:     input,
		StartedAt: time.Now(),
		Metadata:  make(map[string]any),
		context:   ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	return c.context
}

// Middleware defines the interface for middleware components
// Middlewares can intercept and modify a turn before and after routing
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic
	// It receives the current context and a next handler to continue the chain
	// Returning error will stop the middleware chain
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// Func adapts a plain function into a named Middleware.
func Func(name string, fn func(ctx *Context, next Handler) error) Middleware {
	return funcMiddleware{name: name, fn: fn}
}

type funcMiddleware struct {
	name string
	fn   func(ctx *Context, next Handler) error
}

func (f funcMiddleware) Name() string { return f.name }

func (f funcMiddleware) Execute(ctx *Context, next Handler) error { return f.fn(ctx, next) }

// MiddlewareChain represents a sequence of middleware to be executed
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain; nil entries are skipped.
func NewChain(middlewares ...Middleware) *MiddlewareChain {
	c := &MiddlewareChain{}
	for _, m := range middlewares {
		c.Add(m)
	}
	return c
}

// Add appends a middleware to the chain
func (c *MiddlewareChain) Add(m Middleware) *MiddlewareChain {
	if m != nil {
		c.middlewares = append(c.middlewares, m)
	}
	return c
}

// Len returns the number of middlewares.
func (c *MiddlewareChain) Len() int {
	return len(c.middlewares)
}

// Names lists middleware names in execution order.
func (c *MiddlewareChain) Names() []string {
	names := make([]string, 0, len(c.middlewares))
	for _, m := range c.middlewares {
		names = append(names, m.Name())
	}
	return names
}

// Execute runs all middlewares in the chain
func (c *MiddlewareChain) Execute(ctx *Context, finalHandler Handler) error {
	return c.executeMiddleware(ctx, 0, finalHandler)
}

// executeMiddleware recursively executes middlewares in sequence
func (c *MiddlewareChain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		return finalHandler(ctx)
	}

	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	return c.middlewares[index].Execute(ctx, nextHandler)
}
