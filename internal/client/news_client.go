package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/archive"
	"github.com/yourorg/market-insights/internal/config"
	"github.com/yourorg/market-insights/internal/model"
)

// marketWideQuery is the search term used when no ticker is given.
const marketWideQuery = "stock market"

// NewsClient fetches articles from a NewsAPI style provider
type NewsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	archiver   archive.Archiver
	logger     *zap.Logger
}

// NewNewsClient creates a new news provider client
func NewNewsClient(cfg config.ProviderConfig, archiver archive.Archiver, logger *zap.Logger) *NewsClient {
	return &NewsClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		archiver: archiver,
		logger:   logger,
	}
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// FetchArticles retrieves up to limit recent articles for a ticker. An empty
// ticker fetches market-wide news. Articles carry no sentiment; scoring
// happens at ingestion.
func (c *NewsClient) FetchArticles(ctx context.Context, ticker string, limit int) ([]model.NewsDocument, error) {
	term := ticker
	if term == "" {
		term = marketWideQuery
	}

	params := url.Values{}
	params.Add("q", term)
	params.Add("language", "en")
	params.Add("sortBy", "publishedAt")
	params.Add("pageSize", fmt.Sprintf("%d", limit))
	params.Add("apiKey", c.apiKey)

	reqURL := fmt.Sprintf("%s/everything?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to fetch articles from news provider",
			zap.Error(err),
			zap.String("ticker", ticker))
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("News provider error response",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("ticker", ticker),
			zap.String("response", string(body)))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status code %d", ErrRateLimited, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status code %d", ErrUnreachable, resp.StatusCode)
	}

	c.archivePayload(ctx, fmt.Sprintf("news/%s/%s.json", archiveSegment(ticker), time.Now().UTC().Format("20060102T150405Z")), body)

	var payload newsAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("Failed to decode news provider response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode articles: %w", err)
	}

	if payload.Status != "ok" {
		c.logger.Error("News provider rejected the request",
			zap.String("ticker", ticker),
			zap.String("code", payload.Code),
			zap.String("message", payload.Message))
		if payload.Code == "rateLimited" {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, payload.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, payload.Message)
	}

	var tickers []string
	if ticker != "" {
		tickers = []string{ticker}
	}

	now := time.Now().UTC()
	docs := make([]model.NewsDocument, 0, len(payload.Articles))
	for i, art := range payload.Articles {
		if art.URL == "" || art.Title == "" {
			c.logger.Warn("Skipping malformed article",
				zap.Int("index", i),
				zap.String("ticker", ticker))
			continue
		}

		docs = append(docs, model.NewsDocument{
			ID:          articleID(art.URL),
			Title:       art.Title,
			Summary:     art.Description,
			Source:      art.Source.Name,
			URL:         art.URL,
			Tickers:     tickers,
			PublishedAt: art.PublishedAt,
			FetchedAt:   now,
		})
	}

	c.logger.Debug("Fetched articles",
		zap.String("ticker", ticker),
		zap.Int("count", len(docs)))

	return docs, nil
}

// articleID derives a stable document ID from the article URL. The provider
// assigns no IDs, so the URL is the identity of an article.
func articleID(articleURL string) string {
	sum := sha256.Sum256([]byte(articleURL))
	return hex.EncodeToString(sum[:])[:24]
}

func archiveSegment(ticker string) string {
	if ticker == "" {
		return "market"
	}
	return ticker
}

func (c *NewsClient) archivePayload(ctx context.Context, key string, payload []byte) {
	if c.archiver == nil {
		return
	}
	if _, err := c.archiver.Store(ctx, key, payload); err != nil {
		c.logger.Warn("Failed to archive news payload",
			zap.Error(err),
			zap.String("key", key))
	}
}
