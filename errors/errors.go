package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured indicates that a component lacks the settings it needs to run
	ErrNotConfigured = errors.New("not configured")

	// ErrNoEmbedding indicates that the embedding service returned no usable vector
	ErrNoEmbedding = errors.New("no embedding available")

	// ErrSearchFailed indicates that a vector search request failed
	ErrSearchFailed = errors.New("vector search failed")

	// ErrUpstreamStatus indicates that an upstream service answered with a non-success status
	ErrUpstreamStatus = errors.New("upstream returned error status")

	// ErrEmptyResponse indicates that a model answered without usable content
	ErrEmptyResponse = errors.New("empty model response")

	// ErrToolNotFound indicates that a requested tool is not registered
	ErrToolNotFound = errors.New("tool not found")

	// ErrNoDecision indicates that the model chose neither a tool nor a direct answer
	ErrNoDecision = errors.New("no tool decision")

	// ErrRateLimited indicates that a request was rejected by a rate limiter
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCircuitOpen indicates that a downstream service is short-circuited
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrSessionClosed indicates that a session was evicted or closed
	ErrSessionClosed = errors.New("session closed")
)
