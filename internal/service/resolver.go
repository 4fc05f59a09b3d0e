package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/model"
)

// writeBackGrace is extra headroom granted to the detached fetch-and-store
// context beyond the provider timeout, so a write-through can finish after the
// caller has gone away.
const writeBackGrace = 15 * time.Second

// CacheInvalidator drops cached API responses for a ticker after a
// write-through changes the underlying data. An empty ticker addresses the
// market-wide bucket.
type CacheInvalidator interface {
	InvalidateTicker(ctx context.Context, ticker string) error
}

// EventPublisher announces successful ingestions to downstream consumers.
type EventPublisher interface {
	PricesIngested(ctx context.Context, ticker string, count int) error
	NewsIngested(ctx context.Context, ticker string, count int) error
}

// ResolveOutcome describes how a query was answered: where the data came
// from, which path the resolver took, and whether everything the caller sees
// is durably stored.
type ResolveOutcome struct {
	Provenance model.Provenance
	Decision   model.FetchDecision
	Persisted  bool
}

// cacheAsideDomain is the seam between the generic resolve flow and a
// concrete domain (price bars, news documents). Q carries the parsed query,
// R is the record type.
//
// readStore and readFallback are the primary and degraded store reads.
// sufficient decides, from the primary read alone, whether the store can
// answer without a provider call. fetchLive performs the single provider
// call; absorb merges fetched records into the cached set, attempts the
// write-through, and reports whether it stuck.
type cacheAsideDomain[Q any, R any] interface {
	readStore(ctx context.Context, query Q) ([]R, error)
	sufficient(query Q, cached []R) bool
	fetchLive(ctx context.Context, query Q) ([]R, error)
	absorb(ctx context.Context, query Q, cached, fetched []R) ([]R, bool)
	readFallback(ctx context.Context, query Q) ([]R, error)
}

// resolveCacheAside runs the store-first resolve flow: read, judge
// sufficiency, optionally fetch live and write back, and degrade to stale or
// empty results when the provider cannot help. At most one store read, one
// provider call and one store write happen per invocation.
//
// The provider call and write-through run on a context detached from the
// caller's, so an abandoned request still completes its write-back and the
// next query hits the store.
func resolveCacheAside[Q any, R any](ctx context.Context, domain cacheAsideDomain[Q, R], query Q, fetchTimeout time.Duration, logger *zap.Logger) ([]R, ResolveOutcome, error) {
	outcome := ResolveOutcome{
		Provenance: model.ProvenanceCached,
		Decision:   model.DecisionServeCached,
		Persisted:  true,
	}

	cached, err := domain.readStore(ctx, query)
	if err != nil {
		logger.Warn("Store read failed, falling through to live fetch", zap.Error(err))
		outcome.Decision = model.DecisionFetchLiveFallback
		cached = nil
	} else if domain.sufficient(query, cached) {
		return cached, outcome, nil
	} else {
		outcome.Decision = model.DecisionFetchLiveAndStore
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
	defer cancel()

	fetched, err := domain.fetchLive(fetchCtx, query)
	if err != nil {
		if errors.Is(err, ErrSymbolNotFound) {
			return nil, outcome, err
		}
		if len(cached) > 0 {
			outcome.Provenance = model.ProvenanceCachedStale
			return cached, outcome, nil
		}
		if fallback, fbErr := domain.readFallback(ctx, query); fbErr == nil && len(fallback) > 0 {
			outcome.Provenance = model.ProvenanceCachedStale
			return fallback, outcome, nil
		}
		outcome.Provenance = model.ProvenanceUnavailable
		outcome.Persisted = false
		return nil, outcome, nil
	}

	merged, persisted := domain.absorb(fetchCtx, query, cached, fetched)
	outcome.Provenance = model.ProvenanceLive
	outcome.Persisted = persisted
	return merged, outcome, nil
}
