package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/config"
	"github.com/yourorg/market-insights/internal/indicator"
	"github.com/yourorg/market-insights/internal/model"
)

const dayKeyLayout = "2006-01-02"

// PriceStore is the persistence contract for daily bars.
type PriceStore interface {
	// ReadWindow returns up to limit bars with trading dates on or before
	// upTo, ordered ascending.
	ReadWindow(ctx context.Context, ticker string, upTo time.Time, limit int) ([]model.PriceRecord, error)
	// UpsertDaily writes bars idempotently and returns how many were new.
	UpsertDaily(ctx context.Context, records []model.PriceRecord) (int, error)
}

// SymbolDirectory answers whether a ticker is known and active.
type SymbolDirectory interface {
	Exists(ctx context.Context, ticker string) (bool, error)
}

// QuoteProvider fetches daily history from the live market-data vendor.
type QuoteProvider interface {
	FetchDailyHistory(ctx context.Context, ticker string, minDays int) ([]model.PriceRecord, error)
}

// PriceService answers price-series queries store-first, reaching for the
// quote provider only when stored coverage is insufficient.
type PriceService struct {
	store        PriceStore
	symbols      SymbolDirectory
	quotes       QuoteProvider
	invalidator  CacheInvalidator
	events       EventPublisher
	cfg          config.FreshnessConfig
	fetchTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewPriceService creates a price resolve service. invalidator and events may
// be nil when response caching or event publishing is disabled.
func NewPriceService(store PriceStore, symbols SymbolDirectory, quotes QuoteProvider, invalidator CacheInvalidator, events EventPublisher, cfg config.FreshnessConfig, providerTimeout time.Duration, logger *zap.Logger) *PriceService {
	return &PriceService{
		store:        store,
		symbols:      symbols,
		quotes:       quotes,
		invalidator:  invalidator,
		events:       events,
		cfg:          cfg,
		fetchTimeout: providerTimeout + writeBackGrace,
		logger:       logger,
		now:          time.Now,
	}
}

// pricePlan is a normalized price query: the window to read, the sufficiency
// bar it must clear, and how much history a live fetch should request.
type pricePlan struct {
	ticker      string
	specs       []indicator.Spec
	lookback    int
	from        *time.Time
	upTo        time.Time
	required    int
	fetchDays   int
	freshCutoff time.Time
}

// ResolvePrices answers a price-series query. The returned result always
// carries provenance and the fetch decision taken; indicators are computed
// over the full assembled history so trailing windows are exact even for the
// oldest visible rows.
func (s *PriceService) ResolvePrices(ctx context.Context, query *model.PriceSeriesQuery) (*model.PriceResult, error) {
	plan, err := s.planQuery(query)
	if err != nil {
		return nil, err
	}

	records, outcome, err := resolveCacheAside[*pricePlan, model.PriceRecord](ctx, &priceDomain{svc: s}, plan, s.fetchTimeout, s.logger)
	if err != nil {
		return nil, err
	}
	if outcome.Provenance == model.ProvenanceUnavailable {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, plan.ticker)
	}

	indicator.Apply(records, plan.specs)

	return &model.PriceResult{
		Ticker:     plan.ticker,
		Records:    plan.visibleSlice(records),
		Provenance: outcome.Provenance,
		Decision:   outcome.Decision,
		Persisted:  outcome.Persisted,
	}, nil
}

// planQuery validates the raw query and precomputes the read window,
// sufficiency threshold and fetch size.
func (s *PriceService) planQuery(query *model.PriceSeriesQuery) (*pricePlan, error) {
	ticker := strings.ToUpper(strings.TrimSpace(query.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidQuery)
	}

	specs, err := indicator.ParseSpecs(query.Indicators)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	plan := &pricePlan{ticker: ticker, specs: specs}
	today := truncateDay(s.now().UTC())

	var expected int
	switch {
	case query.From != nil && query.To != nil:
		from, to := truncateDay(query.From.UTC()), truncateDay(query.To.UTC())
		if to.Before(from) {
			return nil, fmt.Errorf("%w: range end %s precedes start %s", ErrInvalidQuery, to.Format(dayKeyLayout), from.Format(dayKeyLayout))
		}
		if to.After(today) {
			to = today
		}
		plan.from = &from
		plan.upTo = to
		expected = weekdaysBetween(from, to)
	case query.From != nil || query.To != nil:
		return nil, fmt.Errorf("%w: from and to must be provided together", ErrInvalidQuery)
	default:
		days := query.Days
		if days <= 0 {
			days = s.cfg.DefaultLookbackDays
		}
		if days > s.cfg.MaxLookbackDays {
			return nil, fmt.Errorf("%w: lookback %d exceeds maximum %d", ErrInvalidQuery, days, s.cfg.MaxLookbackDays)
		}
		plan.lookback = days
		plan.upTo = today
		expected = days
	}

	plan.required = expected
	if w := indicator.MaxWindow(specs); w > plan.required {
		plan.required = w
	}
	plan.freshCutoff = lastWeekdayOnOrBefore(plan.upTo)

	plan.fetchDays = plan.required + weekdaysBetween(plan.upTo, today) - 1
	if plan.fetchDays < plan.required {
		plan.fetchDays = plan.required
	}
	if plan.fetchDays < s.cfg.MinFetchDays {
		plan.fetchDays = s.cfg.MinFetchDays
	}
	return plan, nil
}

// visibleSlice trims the assembled history to the rows the caller asked for.
func (p *pricePlan) visibleSlice(records []model.PriceRecord) []model.PriceRecord {
	if p.from != nil {
		out := make([]model.PriceRecord, 0, len(records))
		for _, rec := range records {
			if rec.Date.Before(*p.from) || rec.Date.After(p.upTo) {
				continue
			}
			out = append(out, rec)
		}
		return out
	}
	out := records
	for len(out) > 0 && out[len(out)-1].Date.After(p.upTo) {
		out = out[:len(out)-1]
	}
	if p.lookback > 0 && len(out) > p.lookback {
		out = out[len(out)-p.lookback:]
	}
	return out
}

// priceDomain adapts PriceService to the generic resolve flow.
type priceDomain struct {
	svc *PriceService
}

func (d *priceDomain) readStore(ctx context.Context, plan *pricePlan) ([]model.PriceRecord, error) {
	return d.svc.store.ReadWindow(ctx, plan.ticker, plan.upTo, plan.required)
}

// sufficient holds when the window carries enough rows for the range and the
// largest indicator, and the newest row is no older than the last weekday on
// or before the range end. A market holiday makes this conservative: the
// query refetches once and the upsert is a no-op.
func (d *priceDomain) sufficient(plan *pricePlan, cached []model.PriceRecord) bool {
	if len(cached) < plan.required {
		return false
	}
	newest := truncateDay(cached[len(cached)-1].Date)
	return !newest.Before(plan.freshCutoff)
}

func (d *priceDomain) fetchLive(ctx context.Context, plan *pricePlan) ([]model.PriceRecord, error) {
	known, err := d.svc.symbols.Exists(ctx, plan.ticker)
	if err != nil {
		// Can't prove the ticker is unknown, so let the provider decide.
		d.svc.logger.Warn("Symbol lookup failed, proceeding with fetch",
			zap.Error(err),
			zap.String("ticker", plan.ticker))
	} else if !known {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, plan.ticker)
	}
	return d.svc.quotes.FetchDailyHistory(ctx, plan.ticker, plan.fetchDays)
}

func (d *priceDomain) absorb(ctx context.Context, plan *pricePlan, cached, fetched []model.PriceRecord) ([]model.PriceRecord, bool) {
	merged := mergePriceRecords(cached, fetched)

	inserted, err := d.svc.store.UpsertDaily(ctx, fetched)
	if err != nil {
		d.svc.logger.Warn("Write-through failed, serving live data unpersisted",
			zap.Error(err),
			zap.String("ticker", plan.ticker))
		return merged, false
	}
	d.svc.afterIngest(ctx, plan.ticker, inserted)
	return merged, true
}

func (d *priceDomain) readFallback(ctx context.Context, plan *pricePlan) ([]model.PriceRecord, error) {
	return d.svc.store.ReadWindow(ctx, plan.ticker, plan.upTo, plan.required)
}

func (s *PriceService) afterIngest(ctx context.Context, ticker string, inserted int) {
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateTicker(ctx, ticker); err != nil {
			s.logger.Warn("Response cache invalidation failed",
				zap.Error(err),
				zap.String("ticker", ticker))
		}
	}
	if s.events != nil && inserted > 0 {
		if err := s.events.PricesIngested(ctx, ticker, inserted); err != nil {
			s.logger.Warn("Failed to publish prices-ingested event",
				zap.Error(err),
				zap.String("ticker", ticker))
		}
	}
}

// mergePriceRecords folds a live fetch into the cached window. Stored rows
// win on historical dates; the fetched copy wins on its most recent date,
// where a previously stored bar may have been partial.
func mergePriceRecords(cached, fetched []model.PriceRecord) []model.PriceRecord {
	if len(fetched) == 0 {
		return cached
	}
	latest := fetched[0].Date
	for _, rec := range fetched[1:] {
		if rec.Date.After(latest) {
			latest = rec.Date
		}
	}
	latestKey := latest.Format(dayKeyLayout)

	byDate := make(map[string]model.PriceRecord, len(cached)+len(fetched))
	for _, rec := range fetched {
		byDate[rec.Date.Format(dayKeyLayout)] = rec
	}
	for _, rec := range cached {
		key := rec.Date.Format(dayKeyLayout)
		if key == latestKey {
			continue
		}
		byDate[key] = rec
	}

	merged := make([]model.PriceRecord, 0, len(byDate))
	for _, rec := range byDate {
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func lastWeekdayOnOrBefore(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// weekdaysBetween counts weekdays in [from, to], a holiday-blind
// approximation of trading days.
func weekdaysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}
