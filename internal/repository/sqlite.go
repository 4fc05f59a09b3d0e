package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/yourorg/market-insights/internal/model"
)

const sqliteDateLayout = "2006-01-02"

// SQLiteStore is an embedded implementation of the price and symbol stores
// for local development. It is not meant for production traffic.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("SQLite store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_prices (
			ticker       TEXT NOT NULL,
			trading_date TEXT NOT NULL,
			open         REAL NOT NULL,
			high         REAL NOT NULL,
			low          REAL NOT NULL,
			close        REAL NOT NULL,
			volume       INTEGER NOT NULL,
			indicators   TEXT,
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER,
			PRIMARY KEY (ticker, trading_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(ticker, trading_date)`,

		`CREATE TABLE IF NOT EXISTS symbols (
			ticker     TEXT PRIMARY KEY,
			name       TEXT,
			exchange   TEXT,
			asset_type TEXT,
			is_active  INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// ReadWindow retrieves the most recent `limit` rows for a ticker dated at or
// before upTo, returned in ascending date order.
func (s *SQLiteStore) ReadWindow(
	ctx context.Context,
	ticker string,
	upTo time.Time,
	limit int,
) ([]model.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, trading_date, open, high, low, close, volume, indicators
		FROM daily_prices
		WHERE ticker = ? AND trading_date <= ?
		ORDER BY trading_date DESC
		LIMIT ?
	`, ticker, upTo.Format(sqliteDateLayout), limit)
	if err != nil {
		s.logger.Error("Failed to read price window",
			zap.Error(err),
			zap.String("ticker", ticker))
		return nil, err
	}
	defer rows.Close()

	var data []model.PriceRecord
	for rows.Next() {
		var rec model.PriceRecord
		var dateStr string
		var indJSON []byte
		if err := rows.Scan(&rec.Ticker, &dateStr, &rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume, &indJSON); err != nil {
			return nil, err
		}
		rec.Date, err = time.Parse(sqliteDateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse trading date %q: %w", dateStr, err)
		}
		if len(indJSON) > 0 {
			if err := json.Unmarshal(indJSON, &rec.Indicators); err != nil {
				return nil, fmt.Errorf("parse indicators: %w", err)
			}
		}
		data = append(data, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Flip to ascending date order
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}

	return data, nil
}

// UpsertDaily inserts a batch of daily price rows with the same conflict
// semantics as the Postgres repository. Returns the number of new rows.
func (s *SQLiteStore) UpsertDaily(ctx context.Context, records []model.PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var latest time.Time
	for _, rec := range records {
		if rec.Date.After(latest) {
			latest = rec.Date
		}
	}

	now := time.Now().Unix()
	inserted := 0
	for _, rec := range records {
		var indJSON []byte
		if len(rec.Indicators) > 0 {
			indJSON, err = json.Marshal(rec.Indicators)
			if err != nil {
				return 0, fmt.Errorf("marshal indicators: %w", err)
			}
		}

		conflict := `DO NOTHING`
		if rec.Date.Equal(latest) {
			conflict = `DO UPDATE SET
				open = excluded.open,
				high = excluded.high,
				low = excluded.low,
				close = excluded.close,
				volume = excluded.volume,
				indicators = excluded.indicators,
				updated_at = excluded.created_at`
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO daily_prices (ticker, trading_date, open, high, low, close, volume, indicators, created_at)
			VALUES (?,?,?,?,?,?,?,?,?)
			ON CONFLICT (ticker, trading_date) `+conflict,
			rec.Ticker, rec.Date.Format(sqliteDateLayout),
			rec.Open, rec.High, rec.Low, rec.Close, rec.Volume,
			indJSON, now,
		)
		if err != nil {
			s.logger.Error("Failed to insert price row",
				zap.Error(err),
				zap.String("ticker", rec.Ticker),
				zap.Time("trading_date", rec.Date))
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return inserted, nil
}

// Exists reports whether a ticker is known and active
func (s *SQLiteStore) Exists(ctx context.Context, ticker string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM symbols WHERE ticker = ? AND is_active = 1)`,
		ticker,
	).Scan(&exists)
	if err != nil {
		s.logger.Error("Failed to check if symbol exists",
			zap.Error(err),
			zap.String("ticker", ticker))
		return false, err
	}
	return exists, nil
}

// ListActive retrieves all active symbols ordered by ticker
func (s *SQLiteStore) ListActive(ctx context.Context) ([]model.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, name, exchange, asset_type, is_active
		FROM symbols
		WHERE is_active = 1
		ORDER BY ticker
	`)
	if err != nil {
		s.logger.Error("Failed to list active symbols", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanSymbols(rows)
}

// GetBySymbols retrieves the given tickers from the directory
func (s *SQLiteStore) GetBySymbols(ctx context.Context, tickers []string) ([]model.Symbol, error) {
	if len(tickers) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(tickers))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(tickers))
	for i, t := range tickers {
		args[i] = t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, name, exchange, asset_type, is_active
		FROM symbols
		WHERE ticker IN (`+placeholders+`)
		ORDER BY ticker
	`, args...)
	if err != nil {
		s.logger.Error("Failed to get symbols",
			zap.Error(err),
			zap.Strings("tickers", tickers))
		return nil, err
	}
	defer rows.Close()

	return scanSymbols(rows)
}

// Upsert inserts or updates a symbol directory entry
func (s *SQLiteStore) Upsert(ctx context.Context, symbol *model.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO symbols (ticker, name, exchange, asset_type, is_active, created_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT (ticker) DO UPDATE SET
			name = excluded.name,
			exchange = excluded.exchange,
			asset_type = excluded.asset_type,
			is_active = excluded.is_active,
			updated_at = excluded.created_at
	`, symbol.Ticker, symbol.Name, symbol.Exchange, symbol.AssetType, symbol.IsActive, time.Now().Unix())
	if err != nil {
		s.logger.Error("Failed to upsert symbol",
			zap.Error(err),
			zap.String("ticker", symbol.Ticker))
		return err
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSymbols(rows *sql.Rows) ([]model.Symbol, error) {
	var symbols []model.Symbol
	for rows.Next() {
		var sym model.Symbol
		if err := rows.Scan(&sym.Ticker, &sym.Name, &sym.Exchange, &sym.AssetType, &sym.IsActive); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}
