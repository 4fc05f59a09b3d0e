package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/model"
)

// PriceRepository handles database operations for daily price rows
type PriceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *sqlx.DB, logger *zap.Logger) *PriceRepository {
	return &PriceRepository{
		db:     db,
		logger: logger,
	}
}

// ReadWindow retrieves the most recent `limit` rows for a ticker dated at or
// before upTo, returned in ascending date order.
func (r *PriceRepository) ReadWindow(
	ctx context.Context,
	ticker string,
	upTo time.Time,
	limit int,
) ([]model.PriceRecord, error) {
	query := `
		SELECT ticker, trading_date, open, high, low, close, volume, indicators, created_at, updated_at
		FROM daily_prices
		WHERE ticker = $1 AND trading_date <= $2
		ORDER BY trading_date DESC
		LIMIT $3
	`

	var data []model.PriceRecord
	err := r.db.SelectContext(ctx, &data, query, ticker, upTo, limit)
	if err != nil {
		r.logger.Error("Failed to read price window",
			zap.Error(err),
			zap.String("ticker", ticker),
			zap.Time("up_to", upTo))
		return nil, err
	}

	// Flip to ascending date order
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}

	return data, nil
}

// UpsertDaily inserts a batch of daily price rows. Historical dates never
// overwrite existing rows; the most recent date in the batch does, because
// the latest trading day may have been stored before the session closed.
// Returns the number of newly inserted rows.
func (r *PriceRepository) UpsertDaily(
	ctx context.Context,
	records []model.PriceRecord,
) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	// Using transaction for batch insert
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return 0, err
	}
	defer tx.Rollback()

	histStmt, err := tx.PreparexContext(ctx, `
		INSERT INTO daily_prices (ticker, trading_date, open, high, low, close, volume, indicators, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ticker, trading_date) DO NOTHING
	`)
	if err != nil {
		r.logger.Error("Failed to prepare insert statement", zap.Error(err))
		return 0, err
	}
	defer histStmt.Close()

	latestStmt, err := tx.PreparexContext(ctx, `
		INSERT INTO daily_prices (ticker, trading_date, open, high, low, close, volume, indicators, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ticker, trading_date)
		DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			indicators = EXCLUDED.indicators,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		r.logger.Error("Failed to prepare upsert statement", zap.Error(err))
		return 0, err
	}
	defer latestStmt.Close()

	latest := latestDate(records)
	now := time.Now()
	inserted := 0
	for _, rec := range records {
		stmt := histStmt
		if rec.Date.Equal(latest) {
			stmt = latestStmt
		}

		res, err := stmt.ExecContext(
			ctx,
			rec.Ticker,
			rec.Date,
			rec.Open,
			rec.High,
			rec.Low,
			rec.Close,
			rec.Volume,
			rec.Indicators,
			now,
		)
		if err != nil {
			r.logger.Error("Failed to insert price row",
				zap.Error(err),
				zap.String("ticker", rec.Ticker),
				zap.Time("trading_date", rec.Date))
			return 0, err
		}

		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return 0, err
	}

	return inserted, nil
}

// GetDataRange returns the date range of stored rows for a ticker
func (r *PriceRepository) GetDataRange(
	ctx context.Context,
	ticker string,
) (startDate, endDate time.Time, err error) {
	query := `
		SELECT
			MIN(trading_date) as start_date,
			MAX(trading_date) as end_date
		FROM daily_prices
		WHERE ticker = $1
	`

	var result struct {
		StartDate time.Time `db:"start_date"`
		EndDate   time.Time `db:"end_date"`
	}

	err = r.db.GetContext(ctx, &result, query, ticker)
	if err != nil {
		r.logger.Error("Failed to get data range",
			zap.Error(err),
			zap.String("ticker", ticker))
		return time.Time{}, time.Time{}, err
	}

	return result.StartDate, result.EndDate, nil
}

func latestDate(records []model.PriceRecord) time.Time {
	var latest time.Time
	for _, rec := range records {
		if rec.Date.After(latest) {
			latest = rec.Date
		}
	}
	return latest
}
