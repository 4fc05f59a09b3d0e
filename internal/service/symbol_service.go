package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/model"
)

// SymbolStore is the persistence contract for the symbol directory.
type SymbolStore interface {
	SymbolDirectory
	ListActive(ctx context.Context) ([]model.Symbol, error)
	GetBySymbols(ctx context.Context, tickers []string) ([]model.Symbol, error)
	Upsert(ctx context.Context, symbol *model.Symbol) error
}

// SymbolService manages the directory of known tickers.
type SymbolService struct {
	store  SymbolStore
	logger *zap.Logger
}

// NewSymbolService creates a symbol directory service.
func NewSymbolService(store SymbolStore, logger *zap.Logger) *SymbolService {
	return &SymbolService{store: store, logger: logger}
}

// ListActive returns all active symbols ordered by ticker.
func (s *SymbolService) ListActive(ctx context.Context) ([]model.Symbol, error) {
	symbols, err := s.store.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list symbols", zap.Error(err))
		return nil, err
	}
	return symbols, nil
}

// GetBySymbols returns directory entries for the given tickers; unknown
// tickers are simply absent from the result.
func (s *SymbolService) GetBySymbols(ctx context.Context, tickers []string) ([]model.Symbol, error) {
	normalized := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: at least one ticker is required", ErrInvalidQuery)
	}
	symbols, err := s.store.GetBySymbols(ctx, normalized)
	if err != nil {
		s.logger.Error("Failed to get symbols", zap.Error(err))
		return nil, err
	}
	return symbols, nil
}

// Register adds a symbol to the directory or updates its metadata. Registered
// symbols are always active; there is no deactivation operation.
func (s *SymbolService) Register(ctx context.Context, symbol *model.Symbol) error {
	symbol.Ticker = strings.ToUpper(strings.TrimSpace(symbol.Ticker))
	if symbol.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", ErrInvalidQuery)
	}
	symbol.IsActive = true
	if err := s.store.Upsert(ctx, symbol); err != nil {
		s.logger.Error("Failed to register symbol",
			zap.Error(err),
			zap.String("ticker", symbol.Ticker))
		return err
	}
	return nil
}
