package client

import "errors"

// Provider failure classes. The freshness policy treats both the same way
// (degrade to stored data), they are kept distinct for logging and metrics.
var (
	// ErrRateLimited means the provider refused the call due to throttling.
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrUnreachable means the provider could not be reached or answered
	// with a server error.
	ErrUnreachable = errors.New("provider unreachable")
)
