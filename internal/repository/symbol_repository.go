package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/model"
)

// SymbolRepository handles database operations for the symbol directory
type SymbolRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSymbolRepository creates a new symbol repository
func NewSymbolRepository(db *sqlx.DB, logger *zap.Logger) *SymbolRepository {
	return &SymbolRepository{
		db:     db,
		logger: logger,
	}
}

// Exists reports whether a ticker is known and active
func (r *SymbolRepository) Exists(ctx context.Context, ticker string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM symbols
			WHERE ticker = $1 AND is_active = TRUE
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, ticker)
	if err != nil {
		r.logger.Error("Failed to check if symbol exists",
			zap.Error(err),
			zap.String("ticker", ticker))
		return false, err
	}

	return exists, nil
}

// ListActive retrieves all active symbols ordered by ticker
func (r *SymbolRepository) ListActive(ctx context.Context) ([]model.Symbol, error) {
	query := `
		SELECT ticker, name, exchange, asset_type, is_active, created_at, updated_at
		FROM symbols
		WHERE is_active = TRUE
		ORDER BY ticker
	`

	var symbols []model.Symbol
	err := r.db.SelectContext(ctx, &symbols, query)
	if err != nil {
		r.logger.Error("Failed to list active symbols", zap.Error(err))
		return nil, err
	}

	return symbols, nil
}

// GetBySymbols retrieves the given tickers from the directory
func (r *SymbolRepository) GetBySymbols(ctx context.Context, tickers []string) ([]model.Symbol, error) {
	query := `
		SELECT ticker, name, exchange, asset_type, is_active, created_at, updated_at
		FROM symbols
		WHERE ticker = ANY($1)
		ORDER BY ticker
	`

	var symbols []model.Symbol
	err := r.db.SelectContext(ctx, &symbols, query, pq.Array(tickers))
	if err != nil {
		r.logger.Error("Failed to get symbols",
			zap.Error(err),
			zap.Strings("tickers", tickers))
		return nil, err
	}

	return symbols, nil
}

// Upsert inserts or updates a symbol directory entry
func (r *SymbolRepository) Upsert(ctx context.Context, symbol *model.Symbol) error {
	query := `
		INSERT INTO symbols (ticker, name, exchange, asset_type, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (ticker)
		DO UPDATE SET
			name = EXCLUDED.name,
			exchange = EXCLUDED.exchange,
			asset_type = EXCLUDED.asset_type,
			is_active = EXCLUDED.is_active,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		symbol.Ticker,
		symbol.Name,
		symbol.Exchange,
		symbol.AssetType,
		symbol.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to upsert symbol",
			zap.Error(err),
			zap.String("ticker", symbol.Ticker))
		return err
	}

	return nil
}
