package model

import (
	"time"
)

// News freshness modes accepted by NewsQuery.
const (
	FreshnessLive       = "live"
	FreshnessCachedOnly = "cached-only"
)

// NewsDocument represents a news article with its sentiment, keyed by the
// provider-assigned article ID. Sentiment is computed once at ingestion and
// never rewritten.
type NewsDocument struct {
	ID             string    `json:"id" bson:"_id"`
	Title          string    `json:"title" bson:"title"`
	Summary        string    `json:"summary,omitempty" bson:"summary,omitempty"`
	Source         string    `json:"source" bson:"source"`
	URL            string    `json:"url" bson:"url"`
	Tickers        []string  `json:"tickers,omitempty" bson:"tickers,omitempty"`
	PublishedAt    time.Time `json:"published_at" bson:"published_at"`
	SentimentScore float64   `json:"sentiment_score" bson:"sentiment_score"`
	SentimentLabel string    `json:"sentiment_label" bson:"sentiment_label"`
	FetchedAt      time.Time `json:"fetched_at" bson:"fetched_at"`
}

// NewsQuery represents a query for news documents. An empty Ticker means
// market-wide news.
type NewsQuery struct {
	Ticker    string `json:"ticker" form:"ticker" binding:"omitempty,ticker"`
	Freshness string `json:"freshness" form:"freshness" binding:"omitempty,oneof=live cached-only"`
	Limit     int    `json:"limit" form:"limit"`
}
