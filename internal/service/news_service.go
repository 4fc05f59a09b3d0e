package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/config"
	"github.com/yourorg/market-insights/internal/model"
	"github.com/yourorg/market-insights/internal/sentiment"
)

// NewsStore is the persistence contract for news documents.
type NewsStore interface {
	// QueryRecent returns documents published since the given time, newest
	// first. An empty ticker matches all documents.
	QueryRecent(ctx context.Context, ticker string, since time.Time, limit int) ([]model.NewsDocument, error)
	// QueryAny is QueryRecent without the staleness filter.
	QueryAny(ctx context.Context, ticker string, limit int) ([]model.NewsDocument, error)
	// ExistingIDs reports which of the given provider ids are already stored.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	// InsertNew stores documents that are not already present and returns how
	// many were inserted. Existing documents are left untouched.
	InsertNew(ctx context.Context, docs []model.NewsDocument) (int, error)
}

// NewsProvider fetches articles from the live news vendor. An empty ticker
// requests market-wide headlines.
type NewsProvider interface {
	FetchArticles(ctx context.Context, ticker string, limit int) ([]model.NewsDocument, error)
}

// NewsService answers news queries store-first. News is best-effort: provider
// and store failures degrade to stale or empty results, never to a request
// error.
type NewsService struct {
	store        NewsStore
	provider     NewsProvider
	invalidator  CacheInvalidator
	events       EventPublisher
	cfg          config.FreshnessConfig
	fetchTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewNewsService creates a news resolve service. invalidator and events may
// be nil when response caching or event publishing is disabled.
func NewNewsService(store NewsStore, provider NewsProvider, invalidator CacheInvalidator, events EventPublisher, cfg config.FreshnessConfig, providerTimeout time.Duration, logger *zap.Logger) *NewsService {
	return &NewsService{
		store:        store,
		provider:     provider,
		invalidator:  invalidator,
		events:       events,
		cfg:          cfg,
		fetchTimeout: providerTimeout + writeBackGrace,
		logger:       logger,
		now:          time.Now,
	}
}

// ResolveNews answers a news query. cached-only queries never touch the
// provider; live queries fetch when the stored window is too thin, scoring
// sentiment once per article and upserting by provider id.
func (s *NewsService) ResolveNews(ctx context.Context, query *model.NewsQuery) (*model.NewsResult, error) {
	q, err := s.normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	if q.Freshness == model.FreshnessCachedOnly {
		return s.resolveCachedOnly(ctx, q), nil
	}

	docs, outcome, err := resolveCacheAside[*model.NewsQuery, model.NewsDocument](ctx, &newsDomain{svc: s}, q, s.fetchTimeout, s.logger)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.NewsDocument{}
	}
	return &model.NewsResult{
		Ticker:     q.Ticker,
		Documents:  docs,
		Provenance: outcome.Provenance,
		Decision:   outcome.Decision,
		Persisted:  outcome.Persisted,
	}, nil
}

func (s *NewsService) resolveCachedOnly(ctx context.Context, q *model.NewsQuery) *model.NewsResult {
	result := &model.NewsResult{
		Ticker:    q.Ticker,
		Documents: []model.NewsDocument{},
		Decision:  model.DecisionServeCached,
	}
	docs, err := s.store.QueryAny(ctx, q.Ticker, q.Limit)
	if err != nil {
		s.logger.Warn("Store read failed for cached-only news query",
			zap.Error(err),
			zap.String("ticker", q.Ticker))
		result.Provenance = model.ProvenanceUnavailable
		return result
	}
	if docs != nil {
		result.Documents = docs
	}
	result.Provenance = model.ProvenanceCached
	result.Persisted = true
	return result
}

func (s *NewsService) normalizeQuery(query *model.NewsQuery) (*model.NewsQuery, error) {
	q := &model.NewsQuery{
		Ticker:    strings.ToUpper(strings.TrimSpace(query.Ticker)),
		Freshness: query.Freshness,
		Limit:     query.Limit,
	}
	switch q.Freshness {
	case "", model.FreshnessLive:
		q.Freshness = model.FreshnessLive
	case model.FreshnessCachedOnly:
	default:
		return nil, fmt.Errorf("%w: freshness must be %q or %q", ErrInvalidQuery, model.FreshnessLive, model.FreshnessCachedOnly)
	}
	if q.Limit <= 0 {
		q.Limit = s.cfg.NewsDefaultLimit
	}
	if q.Limit > s.cfg.NewsMaxLimit {
		q.Limit = s.cfg.NewsMaxLimit
	}
	return q, nil
}

// newsDomain adapts NewsService to the generic resolve flow.
type newsDomain struct {
	svc *NewsService
}

func (d *newsDomain) readStore(ctx context.Context, q *model.NewsQuery) ([]model.NewsDocument, error) {
	since := d.svc.now().UTC().Add(-d.svc.cfg.NewsStaleAfter)
	return d.svc.store.QueryRecent(ctx, q.Ticker, since, q.Limit)
}

// sufficient holds when the fresh window carries enough documents: the
// configured count, or the requested limit when the caller asked for less.
func (d *newsDomain) sufficient(q *model.NewsQuery, cached []model.NewsDocument) bool {
	need := d.svc.cfg.NewsSufficientCount
	if q.Limit < need {
		need = q.Limit
	}
	return len(cached) >= need
}

func (d *newsDomain) fetchLive(ctx context.Context, q *model.NewsQuery) ([]model.NewsDocument, error) {
	return d.svc.provider.FetchArticles(ctx, q.Ticker, q.Limit)
}

// absorb scores sentiment for articles never seen before, stores them, and
// folds them into the fresh window. Articles whose ids are already stored
// keep their original sentiment: the stored copy wins and is never rescored.
func (d *newsDomain) absorb(ctx context.Context, q *model.NewsQuery, cached, fetched []model.NewsDocument) ([]model.NewsDocument, bool) {
	ids := make([]string, 0, len(fetched))
	for _, doc := range fetched {
		ids = append(ids, doc.ID)
	}
	existing, err := d.svc.store.ExistingIDs(ctx, ids)
	if err != nil {
		// Treat everything as new; the insert is a no-op for stored ids, so
		// stored sentiment still cannot change.
		d.svc.logger.Warn("Existing-id lookup failed, treating all fetched articles as new",
			zap.Error(err),
			zap.String("ticker", q.Ticker))
		existing = map[string]bool{}
	}

	fresh := make([]model.NewsDocument, 0, len(fetched))
	for _, doc := range fetched {
		if existing[doc.ID] {
			continue
		}
		doc.SentimentScore, doc.SentimentLabel = sentiment.Score(doc.Title + " " + doc.Summary)
		fresh = append(fresh, doc)
	}

	merged := mergeNewsDocuments(cached, fresh, q.Limit)

	persisted := true
	inserted := 0
	if len(fresh) > 0 {
		inserted, err = d.svc.store.InsertNew(ctx, fresh)
		if err != nil {
			d.svc.logger.Warn("Write-through failed, serving live news unpersisted",
				zap.Error(err),
				zap.String("ticker", q.Ticker))
			persisted = false
		}
	}
	if persisted {
		d.svc.afterIngest(ctx, q.Ticker, inserted)
	}
	return merged, persisted
}

func (d *newsDomain) readFallback(ctx context.Context, q *model.NewsQuery) ([]model.NewsDocument, error) {
	return d.svc.store.QueryAny(ctx, q.Ticker, q.Limit)
}

func (s *NewsService) afterIngest(ctx context.Context, ticker string, inserted int) {
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateTicker(ctx, ticker); err != nil {
			s.logger.Warn("Response cache invalidation failed",
				zap.Error(err),
				zap.String("ticker", ticker))
		}
		// Ticker-tagged articles also surface in market-wide queries.
		if ticker != "" {
			if err := s.invalidator.InvalidateTicker(ctx, ""); err != nil {
				s.logger.Warn("Response cache invalidation failed",
					zap.Error(err),
					zap.String("ticker", ticker))
			}
		}
	}
	if s.events != nil && inserted > 0 {
		if err := s.events.NewsIngested(ctx, ticker, inserted); err != nil {
			s.logger.Warn("Failed to publish news-ingested event",
				zap.Error(err),
				zap.String("ticker", ticker))
		}
	}
}

// mergeNewsDocuments combines the fresh stored window with newly scored
// articles, stored copies winning on id, newest first, capped at limit.
func mergeNewsDocuments(cached, fresh []model.NewsDocument, limit int) []model.NewsDocument {
	seen := make(map[string]bool, len(cached))
	merged := make([]model.NewsDocument, 0, len(cached)+len(fresh))
	for _, doc := range cached {
		seen[doc.ID] = true
		merged = append(merged, doc)
	}
	for _, doc := range fresh {
		if seen[doc.ID] {
			continue
		}
		merged = append(merged, doc)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].PublishedAt.After(merged[j].PublishedAt) })
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
