package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/market-insights/internal/client"
	"github.com/yourorg/market-insights/internal/model"
)

func newNewsRouter(h *NewsHandler) *gin.Engine {
	r := gin.New()
	r.GET("/api/v1/news", h.GetNews)
	return r
}

func recentNewsDocs(n int) []model.NewsDocument {
	docs := make([]model.NewsDocument, n)
	for i := range docs {
		docs[i] = model.NewsDocument{
			ID:             string(rune('a' + i)),
			Title:          "Headline",
			Source:         "wire",
			URL:            "https://news.example.com/x",
			PublishedAt:    time.Now().Add(-time.Duration(i+1) * time.Hour),
			SentimentLabel: "neutral",
		}
	}
	return docs
}

func TestNewsHandler_GetNews(t *testing.T) {
	t.Run("Given a warm store When requesting Then responds 200 with cached provenance", func(t *testing.T) {
		store := &fakeNewsStore{recent: recentNewsDocs(5)}
		provider := &fakeNewsProvider{}
		router := newNewsRouter(newTestNewsHandler(store, provider))

		w := performRequest(router, http.MethodGet, "/api/v1/news?ticker=AAPL", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if got := w.Header().Get("X-Provenance"); got != "cached" {
			t.Errorf("expected X-Provenance cached, got %q", got)
		}
		var result model.NewsResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(result.Documents) != 5 {
			t.Errorf("expected 5 documents, got %d", len(result.Documents))
		}
		if provider.calls != 0 {
			t.Errorf("expected no provider call, got %d", provider.calls)
		}
	})

	t.Run("Given cached-only freshness When requesting Then the provider is never called", func(t *testing.T) {
		store := &fakeNewsStore{stale: recentNewsDocs(2)}
		provider := &fakeNewsProvider{}
		router := newNewsRouter(newTestNewsHandler(store, provider))

		w := performRequest(router, http.MethodGet, "/api/v1/news?ticker=AAPL&freshness=cached-only", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if got := w.Header().Get("X-Provenance"); got != "cached" {
			t.Errorf("expected X-Provenance cached, got %q", got)
		}
		if provider.calls != 0 {
			t.Errorf("cached-only must never call the provider, got %d calls", provider.calls)
		}
	})

	t.Run("Given a total outage When requesting Then responds 200 with an empty unavailable result", func(t *testing.T) {
		store := &fakeNewsStore{}
		provider := &fakeNewsProvider{err: client.ErrUnreachable}
		router := newNewsRouter(newTestNewsHandler(store, provider))

		w := performRequest(router, http.MethodGet, "/api/v1/news?ticker=AAPL", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("news degrades to empty, expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if got := w.Header().Get("X-Provenance"); got != "unavailable" {
			t.Errorf("expected X-Provenance unavailable, got %q", got)
		}
		var result model.NewsResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(result.Documents) != 0 {
			t.Errorf("expected no documents, got %d", len(result.Documents))
		}
	})

	t.Run("Given binding violations When requesting Then responds 400", func(t *testing.T) {
		router := newNewsRouter(newTestNewsHandler(&fakeNewsStore{}, &fakeNewsProvider{}))

		paths := map[string]string{
			"unknown freshness": "/api/v1/news?freshness=weekly",
			"malformed ticker":  "/api/v1/news?ticker=123ABC",
		}
		for name, path := range paths {
			w := performRequest(router, http.MethodGet, path, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d: %s", name, w.Code, w.Body.String())
			}
		}
	})

	t.Run("Given no ticker When requesting Then market-wide news is resolved", func(t *testing.T) {
		store := &fakeNewsStore{recent: recentNewsDocs(5)}
		router := newNewsRouter(newTestNewsHandler(store, &fakeNewsProvider{}))

		w := performRequest(router, http.MethodGet, "/api/v1/news", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var result model.NewsResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if result.Ticker != "" {
			t.Errorf("expected an untagged market-wide result, got %q", result.Ticker)
		}
	})
}
