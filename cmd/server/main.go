package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/archive"
	"github.com/yourorg/market-insights/internal/cache"
	"github.com/yourorg/market-insights/internal/client"
	"github.com/yourorg/market-insights/internal/config"
	"github.com/yourorg/market-insights/internal/events"
	"github.com/yourorg/market-insights/internal/handler"
	"github.com/yourorg/market-insights/internal/middleware"
	"github.com/yourorg/market-insights/internal/repository"
	"github.com/yourorg/market-insights/internal/scheduler"
	"github.com/yourorg/market-insights/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := handler.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register validators", zap.Error(err))
	}

	// Connect to the structured store
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

	// Connect to the document store
	mongoClient, err := connectToDocumentStore(cfg.DocumentStore)
	if err != nil {
		logger.Fatal("Failed to connect to document store", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error("Failed to disconnect document store", zap.Error(err))
		}
	}()

	newsRepo := repository.NewNewsRepository(mongoClient, cfg.DocumentStore.Database, cfg.DocumentStore.Collection, logger)
	{
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DocumentStore.Timeout)
		if err := newsRepo.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure document store indexes", zap.Error(err))
		}
		cancel()
	}

	// Response cache (optional)
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		defer redisClient.Close()
	}
	responseCache := cache.NewResponseCache(redisClient, cfg.Cache, logger)
	var invalidator service.CacheInvalidator
	if cfg.Cache.Enabled {
		invalidator = responseCache
	}

	// Event producer (optional)
	var publisher service.EventPublisher
	if cfg.Kafka.Brokers != "" {
		producer := events.NewProducer(cfg.Kafka, logger)
		defer producer.Close()
		publisher = producer
	}

	// Raw payload archive
	archiver, err := archive.NewArchiver(cfg.Archive)
	if err != nil {
		logger.Fatal("Failed to create archiver", zap.Error(err))
	}

	// Initialize provider clients
	quoteClient := client.NewQuoteClient(cfg.QuoteProvider, archiver, logger)
	newsClient := client.NewNewsClient(cfg.NewsProvider, archiver, logger)

	// Initialize services
	priceService := service.NewPriceService(priceStore, symbolStore, quoteClient, invalidator, publisher, cfg.Freshness, cfg.QuoteProvider.Timeout, logger)
	newsService := service.NewNewsService(newsRepo, newsClient, invalidator, publisher, cfg.Freshness, cfg.NewsProvider.Timeout, logger)
	symbolService := service.NewSymbolService(symbolStore, logger)

	// Initialize handlers
	priceHandler := handler.NewPriceHandler(priceService, logger)
	newsHandler := handler.NewNewsHandler(newsService, logger)
	symbolHandler := handler.NewSymbolHandler(symbolService, logger)

	router := setupRouter(priceHandler, newsHandler, symbolHandler, responseCache, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Scheduled watchlist refresh (optional)
	var refresher *scheduler.Refresher
	if cfg.Refresh.Enabled {
		refresher = scheduler.NewRefresher(symbolService, priceService, newsService, cfg.Refresh, logger)
		if err := refresher.Start(); err != nil {
			logger.Fatal("Failed to start watchlist refresher", zap.Error(err))
		}
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if refresher != nil {
		refresher.Stop()
	}

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch cfg.Level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	encoding := cfg.Format
	if encoding != "console" {
		encoding = "json"
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
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

func connectToDocumentStore(cfg config.DocumentStoreConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return mongoClient, nil
}

func setupRouter(
	priceHandler *handler.PriceHandler,
	newsHandler *handler.NewsHandler,
	symbolHandler *handler.SymbolHandler,
	responseCache *cache.ResponseCache,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Price series routes
		stocks := v1.Group("/stocks")
		{
			stocks.GET("/:ticker/prices", responseCache.Middleware(), priceHandler.GetPrices)
		}

		// News routes
		news := v1.Group("/news")
		{
			news.GET("", responseCache.Middleware(), newsHandler.GetNews)
		}

		// Symbol directory routes
		symbols := v1.Group("/symbols")
		{
			symbols.GET("", symbolHandler.ListSymbols)
			symbols.POST("", symbolHandler.RegisterSymbol)
		}
	}
	return router
}
