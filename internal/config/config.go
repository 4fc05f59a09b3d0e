package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	DocumentStore DocumentStoreConfig
	Cache         CacheConfig
	QuoteProvider ProviderConfig
	NewsProvider  ProviderConfig
	Freshness     FreshnessConfig
	Kafka         KafkaConfig
	Archive       ArchiveConfig
	Refresh       RefreshConfig
	Logging       LoggingConfig
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds structured store configuration. Driver selects the
// backing engine: "postgres" for production, "sqlite" for local development.
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file path
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DocumentStoreConfig holds document store (MongoDB) configuration
type DocumentStoreConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	PrefixKey string
}

// ProviderConfig holds configuration for an external data provider
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// FreshnessConfig holds the tunable constants of the freshness policy
type FreshnessConfig struct {
	MinFetchDays        int
	DefaultLookbackDays int
	MaxLookbackDays     int
	NewsStaleAfter      time.Duration
	NewsSufficientCount int
	NewsDefaultLimit    int
	NewsMaxLimit        int
}

// KafkaConfig holds Kafka specific configuration
type KafkaConfig struct {
	Brokers  string
	ClientID string
	Topics   map[string]string
}

// ArchiveConfig holds raw payload archive configuration
type ArchiveConfig struct {
	Type      string // none, local, s3
	Dir       string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// RefreshConfig holds the scheduled watchlist refresh configuration
type RefreshConfig struct {
	Enabled      bool
	CronSpec     string
	LookbackDays int
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variables override
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.idleTimeout", "120s")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "data/market-insights.db")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", "30m")

	// Document store defaults
	v.SetDefault("documentStore.uri", "mongodb://localhost:27017")
	v.SetDefault("documentStore.database", "market_insights")
	v.SetDefault("documentStore.collection", "news")
	v.SetDefault("documentStore.timeout", "10s")

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.ttl", "60s")
	v.SetDefault("cache.prefixKey", "market-insights")

	// Provider defaults
	v.SetDefault("quoteProvider.baseURL", "https://www.alphavantage.co")
	v.SetDefault("quoteProvider.timeout", "30s")
	v.SetDefault("newsProvider.baseURL", "https://newsapi.org/v2")
	v.SetDefault("newsProvider.timeout", "30s")

	// Freshness policy defaults
	v.SetDefault("freshness.minFetchDays", 200)
	v.SetDefault("freshness.defaultLookbackDays", 30)
	v.SetDefault("freshness.maxLookbackDays", 5000)
	v.SetDefault("freshness.newsStaleAfter", "6h")
	v.SetDefault("freshness.newsSufficientCount", 5)
	v.SetDefault("freshness.newsDefaultLimit", 20)
	v.SetDefault("freshness.newsMaxLimit", 100)

	// Kafka topic defaults
	v.SetDefault("kafka.clientID", "market-insights")
	v.SetDefault("kafka.topics.pricesIngested", "prices.ingested")
	v.SetDefault("kafka.topics.newsIngested", "news.ingested")

	// Archive defaults
	v.SetDefault("archive.type", "none")
	v.SetDefault("archive.dir", "data/archive")

	// Refresh defaults
	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.cronSpec", "0 30 * * * 1-5")
	v.SetDefault("refresh.lookbackDays", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
