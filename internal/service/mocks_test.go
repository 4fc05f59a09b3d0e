package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yourorg/market-insights/internal/model"
)

// Common test errors
var (
	ErrMockStore    = errors.New("mock store error")
	ErrMockProvider = errors.New("mock provider error")
)

// MockPriceStore implements PriceStore for testing. Without a ReadWindowFunc
// override it answers from Bars, honoring upTo and limit the way the real
// stores do.
type MockPriceStore struct {
	mu              sync.Mutex
	Bars            []model.PriceRecord
	ReadWindowFunc  func(ctx context.Context, ticker string, upTo time.Time, limit int) ([]model.PriceRecord, error)
	UpsertDailyFunc func(ctx context.Context, records []model.PriceRecord) (int, error)
	ReadCalls       int
	UpsertCalls     int
	LastUpserted    []model.PriceRecord
	UpsertCtxErr    error
}

func (m *MockPriceStore) ReadWindow(ctx context.Context, ticker string, upTo time.Time, limit int) ([]model.PriceRecord, error) {
	m.mu.Lock()
	m.ReadCalls++
	m.mu.Unlock()

	if m.ReadWindowFunc != nil {
		return m.ReadWindowFunc(ctx, ticker, upTo, limit)
	}

	window := make([]model.PriceRecord, 0, len(m.Bars))
	for _, bar := range m.Bars {
		if bar.Ticker == ticker && !bar.Date.After(upTo) {
			window = append(window, bar)
		}
	}
	if len(window) > limit {
		window = window[len(window)-limit:]
	}
	return window, nil
}

func (m *MockPriceStore) UpsertDaily(ctx context.Context, records []model.PriceRecord) (int, error) {
	m.mu.Lock()
	m.UpsertCalls++
	m.LastUpserted = records
	m.UpsertCtxErr = ctx.Err()
	m.mu.Unlock()

	if m.UpsertDailyFunc != nil {
		return m.UpsertDailyFunc(ctx, records)
	}
	return len(records), nil
}

// MockSymbolStore implements SymbolStore for testing. Tickers are known
// unless Known is set, in which case only its entries exist.
type MockSymbolStore struct {
	Known       map[string]bool
	ExistsFunc  func(ctx context.Context, ticker string) (bool, error)
	UpsertFunc  func(ctx context.Context, symbol *model.Symbol) error
	ExistsCalls int
	Upserted    []model.Symbol
}

func (m *MockSymbolStore) Exists(ctx context.Context, ticker string) (bool, error) {
	m.ExistsCalls++
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, ticker)
	}
	if m.Known == nil {
		return true, nil
	}
	return m.Known[ticker], nil
}

func (m *MockSymbolStore) ListActive(ctx context.Context) ([]model.Symbol, error) {
	symbols := make([]model.Symbol, 0, len(m.Known))
	for ticker, active := range m.Known {
		if active {
			symbols = append(symbols, model.Symbol{Ticker: ticker, IsActive: true})
		}
	}
	return symbols, nil
}

func (m *MockSymbolStore) GetBySymbols(ctx context.Context, tickers []string) ([]model.Symbol, error) {
	symbols := make([]model.Symbol, 0, len(tickers))
	for _, ticker := range tickers {
		if m.Known == nil || m.Known[ticker] {
			symbols = append(symbols, model.Symbol{Ticker: ticker, IsActive: true})
		}
	}
	return symbols, nil
}

func (m *MockSymbolStore) Upsert(ctx context.Context, symbol *model.Symbol) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, symbol)
	}
	m.Upserted = append(m.Upserted, *symbol)
	return nil
}

// MockQuoteProvider implements QuoteProvider for testing.
type MockQuoteProvider struct {
	mu          sync.Mutex
	FetchFunc   func(ctx context.Context, ticker string, minDays int) ([]model.PriceRecord, error)
	CallCount   int
	LastTicker  string
	LastMinDays int
	LastCtxErr  error
}

func (m *MockQuoteProvider) FetchDailyHistory(ctx context.Context, ticker string, minDays int) ([]model.PriceRecord, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastTicker = ticker
	m.LastMinDays = minDays
	m.LastCtxErr = ctx.Err()
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, ticker, minDays)
	}
	return nil, ErrMockProvider
}

// MockNewsStore implements NewsStore for testing.
type MockNewsStore struct {
	mu              sync.Mutex
	Recent          []model.NewsDocument
	Any             []model.NewsDocument
	Stored          map[string]bool
	QueryRecentFunc func(ctx context.Context, ticker string, since time.Time, limit int) ([]model.NewsDocument, error)
	QueryAnyFunc    func(ctx context.Context, ticker string, limit int) ([]model.NewsDocument, error)
	InsertNewFunc   func(ctx context.Context, docs []model.NewsDocument) (int, error)
	RecentCalls     int
	AnyCalls        int
	InsertCalls     int
	LastSince       time.Time
	LastLimit       int
	LastInserted    []model.NewsDocument
}

func (m *MockNewsStore) QueryRecent(ctx context.Context, ticker string, since time.Time, limit int) ([]model.NewsDocument, error) {
	m.mu.Lock()
	m.RecentCalls++
	m.LastSince = since
	m.LastLimit = limit
	m.mu.Unlock()

	if m.QueryRecentFunc != nil {
		return m.QueryRecentFunc(ctx, ticker, since, limit)
	}
	return m.Recent, nil
}

func (m *MockNewsStore) QueryAny(ctx context.Context, ticker string, limit int) ([]model.NewsDocument, error) {
	m.mu.Lock()
	m.AnyCalls++
	m.mu.Unlock()

	if m.QueryAnyFunc != nil {
		return m.QueryAnyFunc(ctx, ticker, limit)
	}
	return m.Any, nil
}

func (m *MockNewsStore) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for _, id := range ids {
		if m.Stored[id] {
			existing[id] = true
		}
	}
	return existing, nil
}

func (m *MockNewsStore) InsertNew(ctx context.Context, docs []model.NewsDocument) (int, error) {
	m.mu.Lock()
	m.InsertCalls++
	m.LastInserted = docs
	m.mu.Unlock()

	if m.InsertNewFunc != nil {
		return m.InsertNewFunc(ctx, docs)
	}
	return len(docs), nil
}

// MockNewsProvider implements NewsProvider for testing.
type MockNewsProvider struct {
	mu         sync.Mutex
	FetchFunc  func(ctx context.Context, ticker string, limit int) ([]model.NewsDocument, error)
	CallCount  int
	LastTicker string
	LastLimit  int
}

func (m *MockNewsProvider) FetchArticles(ctx context.Context, ticker string, limit int) ([]model.NewsDocument, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastTicker = ticker
	m.LastLimit = limit
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, ticker, limit)
	}
	return nil, ErrMockProvider
}

// MockInvalidator implements CacheInvalidator for testing.
type MockInvalidator struct {
	mu      sync.Mutex
	Tickers []string
}

func (m *MockInvalidator) InvalidateTicker(ctx context.Context, ticker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tickers = append(m.Tickers, ticker)
	return nil
}

// MockPublisher implements EventPublisher for testing.
type MockPublisher struct {
	mu          sync.Mutex
	PriceEvents []int
	NewsEvents  []int
}

func (m *MockPublisher) PricesIngested(ctx context.Context, ticker string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PriceEvents = append(m.PriceEvents, count)
	return nil
}

func (m *MockPublisher) NewsIngested(ctx context.Context, ticker string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NewsEvents = append(m.NewsEvents, count)
	return nil
}
