// Command loader backfills daily price history for a set of tickers. It
// fetches from the quote provider with rate-limit-aware retries, precomputes
// the common moving-average indicators, registers the tickers in the symbol
// directory and upserts everything through the same store the server reads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/market-insights/internal/archive"
	"github.com/yourorg/market-insights/internal/client"
	"github.com/yourorg/market-insights/internal/config"
	"github.com/yourorg/market-insights/internal/indicator"
	"github.com/yourorg/market-insights/internal/model"
	"github.com/yourorg/market-insights/internal/repository"
	"github.com/yourorg/market-insights/internal/service"
)

const maxFetchRetries = 4

func main() {
	tickersFlag := flag.String("tickers", "", "comma-separated tickers to backfill")
	days := flag.Int("days", 0, "trading days of history to fetch (0 = configured minimum)")
	concurrency := flag.Int("concurrency", 2, "tickers loaded in parallel")
	indicatorsFlag := flag.String("indicators", "sma_20,sma_50,sma_200", "indicators precomputed and stored with the bars")
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// Provider keys live in .env during local runs
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	tickers := splitTickers(*tickersFlag)
	if len(tickers) == 0 {
		logger.Fatal("No tickers given, use -tickers=AAPL,MSFT")
	}

	specs, err := indicator.ParseSpecs(strings.Split(*indicatorsFlag, ","))
	if err != nil {
		logger.Fatal("Invalid indicators flag", zap.Error(err))
	}

	fetchDays := *days
	if fetchDays <= 0 {
		fetchDays = cfg.Freshness.MinFetchDays
	}
	if w := indicator.MaxWindow(specs); fetchDays < w {
		fetchDays = w
	}

	var (
		priceStore  service.PriceStore
		symbolStore service.SymbolStore
		closeStore  func() error
	)
	switch cfg.Database.Driver {
	case "sqlite":
		store, err := repository.NewSQLiteStore(cfg.Database.Path, logger)
		if err != nil {
			logger.Fatal("Failed to open sqlite store", zap.Error(err))
		}
		priceStore, symbolStore, closeStore = store, store, store.Close
	default:
		db, err := connectToDB(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		priceStore = repository.NewPriceRepository(db, logger)
		symbolStore = repository.NewSymbolRepository(db, logger)
		closeStore = db.Close
	}
	defer closeStore()

	archiver, err := archive.NewArchiver(cfg.Archive)
	if err != nil {
		logger.Fatal("Failed to create archiver", zap.Error(err))
	}
	quoteClient := client.NewQuoteClient(cfg.QuoteProvider, archiver, logger)

	jobID := uuid.New().String()
	logger.Info("Backfill starting",
		zap.String("job_id", jobID),
		zap.Int("tickers", len(tickers)),
		zap.Int("days", fetchDays),
		zap.Int("concurrency", *concurrency))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs := make(chan string, len(tickers))
	for _, t := range tickers {
		jobs <- t
	}
	close(jobs)

	var rowsStored, failed atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *concurrency; i++ {
		g.Go(func() error {
			for ticker := range jobs {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				n, err := loadTicker(ctx, quoteClient, priceStore, symbolStore, ticker, fetchDays, specs, logger)
				if err != nil {
					failed.Add(1)
					logger.Error("Backfill failed for ticker",
						zap.Error(err),
						zap.String("ticker", ticker))
					continue
				}
				rowsStored.Add(int64(n))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Backfill interrupted", zap.Error(err))
	}

	logger.Info("Backfill completed",
		zap.String("job_id", jobID),
		zap.Int64("rows_stored", rowsStored.Load()),
		zap.Int64("tickers_failed", failed.Load()),
		zap.Duration("took", time.Since(start)))
}

// loadTicker fetches, enriches and stores one ticker's history. Rate-limit
// errors are retried with exponential backoff; anything else fails fast.
func loadTicker(ctx context.Context, quotes *client.QuoteClient, priceStore service.PriceStore, symbolStore service.SymbolStore, ticker string, fetchDays int, specs []indicator.Spec, logger *zap.Logger) (int, error) {
	var records []model.PriceRecord
	operation := func() error {
		var err error
		records, err = quotes.FetchDailyHistory(ctx, ticker, fetchDays)
		if err != nil {
			if errors.Is(err, client.ErrRateLimited) {
				logger.Warn("Rate limited, backing off", zap.String("ticker", ticker))
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxFetchRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return 0, fmt.Errorf("fetch %s: %w", ticker, err)
	}

	indicator.Apply(records, specs)

	if err := symbolStore.Upsert(ctx, &model.Symbol{
		Ticker:    ticker,
		AssetType: "stock",
		IsActive:  true,
	}); err != nil {
		return 0, fmt.Errorf("register symbol %s: %w", ticker, err)
	}

	stored, err := priceStore.UpsertDaily(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("store %s: %w", ticker, err)
	}
	logger.Info("Ticker loaded",
		zap.String("ticker", ticker),
		zap.Int("fetched", len(records)),
		zap.Int("stored", stored))
	return stored, nil
}

func splitTickers(raw string) []string {
	parts := strings.Split(raw, ",")
	tickers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			tickers = append(tickers, p)
		}
	}
	return tickers
}

func createLogger(level string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func connectToDB(dbConfig config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName,
		dbConfig.SSLMode,
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}
