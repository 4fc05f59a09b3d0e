package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/archive"
	"github.com/yourorg/market-insights/internal/config"
	"github.com/yourorg/market-insights/internal/model"
)

const (
	compactOutputRows = 100
	dailyDateFormat   = "2006-01-02"
)

// QuoteClient fetches daily price history from an Alpha Vantage style API
type QuoteClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	archiver   archive.Archiver
	logger     *zap.Logger
}

// NewQuoteClient creates a new quote provider client
func NewQuoteClient(cfg config.ProviderConfig, archiver archive.Archiver, logger *zap.Logger) *QuoteClient {
	return &QuoteClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		archiver: archiver,
		logger:   logger,
	}
}

// dailySeriesResponse mirrors the provider's TIME_SERIES_DAILY payload.
type dailySeriesResponse struct {
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	ErrorMessage string                       `json:"Error Message"`
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
}

// FetchDailyHistory retrieves the most recent minDays daily bars for a
// ticker, sorted ascending by date. The provider may return fewer rows than
// requested for newly listed tickers.
func (c *QuoteClient) FetchDailyHistory(ctx context.Context, ticker string, minDays int) ([]model.PriceRecord, error) {
	params := url.Values{}
	params.Add("function", "TIME_SERIES_DAILY")
	params.Add("symbol", ticker)
	params.Add("apikey", c.apiKey)
	if minDays > compactOutputRows {
		params.Add("outputsize", "full")
	} else {
		params.Add("outputsize", "compact")
	}

	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to fetch daily history from quote provider",
			zap.Error(err),
			zap.String("ticker", ticker))
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("Quote provider error response",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("ticker", ticker),
			zap.String("response", string(bodyBytes)))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status code %d", ErrRateLimited, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status code %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	c.archivePayload(ctx, fmt.Sprintf("quotes/%s/%s.json", ticker, time.Now().UTC().Format("20060102T150405Z")), body)

	var series dailySeriesResponse
	if err := json.Unmarshal(body, &series); err != nil {
		c.logger.Error("Failed to decode quote provider response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode daily history: %w", err)
	}

	// The provider signals throttling inside a 200 response
	if series.Note != "" || series.Information != "" {
		c.logger.Warn("Quote provider throttled the request",
			zap.String("ticker", ticker),
			zap.String("note", series.Note+series.Information))
		return nil, fmt.Errorf("%w: throttle note in response", ErrRateLimited)
	}

	if series.ErrorMessage != "" {
		c.logger.Error("Quote provider rejected the request",
			zap.String("ticker", ticker),
			zap.String("message", series.ErrorMessage))
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, series.ErrorMessage)
	}

	records := make([]model.PriceRecord, 0, len(series.TimeSeries))
	for dateStr, bar := range series.TimeSeries {
		date, err := time.Parse(dailyDateFormat, dateStr)
		if err != nil {
			c.logger.Warn("Skipping bar with malformed date",
				zap.String("ticker", ticker),
				zap.String("date", dateStr))
			continue
		}

		closePrice, err := strconv.ParseFloat(bar["4. close"], 64)
		if err != nil {
			c.logger.Warn("Skipping bar with malformed close price",
				zap.String("ticker", ticker),
				zap.String("date", dateStr))
			continue
		}

		open, _ := strconv.ParseFloat(bar["1. open"], 64)
		high, _ := strconv.ParseFloat(bar["2. high"], 64)
		low, _ := strconv.ParseFloat(bar["3. low"], 64)
		volume, _ := strconv.ParseInt(bar["5. volume"], 10, 64)

		records = append(records, model.PriceRecord{
			Ticker: ticker,
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	// Trim to the most recent minDays rows
	if minDays > 0 && len(records) > minDays {
		records = records[len(records)-minDays:]
	}

	c.logger.Debug("Fetched daily history",
		zap.String("ticker", ticker),
		zap.Int("count", len(records)))

	return records, nil
}

func (c *QuoteClient) archivePayload(ctx context.Context, key string, payload []byte) {
	if c.archiver == nil {
		return
	}
	if _, err := c.archiver.Store(ctx, key, payload); err != nil {
		c.logger.Warn("Failed to archive quote payload",
			zap.Error(err),
			zap.String("key", key))
	}
}
