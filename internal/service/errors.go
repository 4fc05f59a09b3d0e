package service

import "errors"

// Sentinel errors surfaced to callers. Store and provider failures are never
// returned raw: they degrade into stale or empty results, and only the two
// irrecoverable cases below become request failures.
var (
	// ErrInvalidQuery means the query could not be interpreted.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrSymbolNotFound means the requested ticker is not in the symbol
	// directory. Unknown tickers never trigger a provider call.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrUpstreamUnavailable means the store holds nothing for the query and
	// the live provider also failed.
	ErrUpstreamUnavailable = errors.New("no stored data and provider unavailable")
)
