package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/config"
)

// marketSegment buckets responses that are not scoped to a single ticker.
const marketSegment = "market"

// ResponseCache caches successful GET responses in Redis. Keys are scoped by
// ticker so a write-through for one ticker only evicts that ticker's entries.
type ResponseCache struct {
	client *redis.Client
	cfg    config.CacheConfig
	logger *zap.Logger
}

// NewResponseCache creates a response cache backed by the given Redis client.
func NewResponseCache(client *redis.Client, cfg config.CacheConfig, logger *zap.Logger) *ResponseCache {
	return &ResponseCache{client: client, cfg: cfg, logger: logger}
}

// Middleware returns a gin handler that serves cached responses and captures
// fresh ones. Only GET requests are cached.
func (rc *ResponseCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rc.cfg.Enabled || rc.client == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		cacheKey := rc.cacheKey(c)

		cachedResponse, err := rc.client.Get(c.Request.Context(), cacheKey).Bytes()
		if err == nil {
			rc.logger.Debug("Cache hit",
				zap.String("path", c.Request.URL.Path),
				zap.String("cache_key", cacheKey))

			c.Writer.Header().Set("Content-Type", "application/json")
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(http.StatusOK)
			c.Writer.Write(cachedResponse)
			c.Abort()
			return
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Writer.Header().Set("X-Cache", "MISS")

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			err := rc.client.Set(c.Request.Context(), cacheKey, writer.body.Bytes(), rc.cfg.TTL).Err()
			if err != nil {
				rc.logger.Error("Failed to set cache",
					zap.Error(err),
					zap.String("cache_key", cacheKey))
			} else {
				rc.logger.Debug("Cache set",
					zap.String("path", c.Request.URL.Path),
					zap.String("cache_key", cacheKey),
					zap.Duration("duration", rc.cfg.TTL))
			}
		}
	}
}

// InvalidateTicker drops every cached response in the ticker's bucket. An
// empty ticker addresses the market-wide bucket.
func (rc *ResponseCache) InvalidateTicker(ctx context.Context, ticker string) error {
	if rc.client == nil {
		return nil
	}
	pattern := rc.cfg.PrefixKey + ":" + tickerSegment(ticker) + ":*"
	keys, err := rc.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return rc.client.Del(ctx, keys...).Err()
	}
	return nil
}

// responseWriter captures the response body for caching
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response for caching
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// cacheKey builds prefix:ticker:hash(path?query) for a request.
func (rc *ResponseCache) cacheKey(c *gin.Context) string {
	path := c.Request.URL.Path
	query := c.Request.URL.RawQuery

	hash := sha256.New()
	if query != "" {
		io.WriteString(hash, fmt.Sprintf("%s?%s", path, query))
	} else {
		io.WriteString(hash, path)
	}
	return rc.cfg.PrefixKey + ":" + requestTickerSegment(c) + ":" + hex.EncodeToString(hash.Sum(nil))
}

func requestTickerSegment(c *gin.Context) string {
	if t := c.Param("ticker"); t != "" {
		return tickerSegment(t)
	}
	return tickerSegment(c.Query("ticker"))
}

func tickerSegment(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return marketSegment
	}
	return ticker
}
