package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/market-insights/internal/model"
)

func newSymbolRouter(h *SymbolHandler) *gin.Engine {
	r := gin.New()
	r.GET("/api/v1/symbols", h.ListSymbols)
	r.POST("/api/v1/symbols", h.RegisterSymbol)
	return r
}

type symbolListResponse struct {
	Data []model.Symbol `json:"data"`
}

type symbolResponse struct {
	Data model.Symbol `json:"data"`
}

func TestSymbolHandler_ListSymbols(t *testing.T) {
	t.Run("Given active symbols When listing Then responds 200 with the directory", func(t *testing.T) {
		store := &fakeSymbolStore{symbols: []model.Symbol{
			{Ticker: "AAPL", Name: "Apple Inc.", IsActive: true},
			{Ticker: "MSFT", Name: "Microsoft Corp.", IsActive: true},
		}}
		router := newSymbolRouter(newTestSymbolHandler(store))

		w := performRequest(router, http.MethodGet, "/api/v1/symbols", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var body symbolListResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(body.Data) != 2 {
			t.Errorf("expected 2 symbols, got %d", len(body.Data))
		}
	})

	t.Run("Given a filter When listing Then tickers are normalized before lookup", func(t *testing.T) {
		store := &fakeSymbolStore{symbols: []model.Symbol{{Ticker: "AAPL", IsActive: true}}}
		router := newSymbolRouter(newTestSymbolHandler(store))

		w := performRequest(router, http.MethodGet, "/api/v1/symbols?symbols=aapl,%20msft", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if len(store.lastGet) != 2 || store.lastGet[0] != "AAPL" || store.lastGet[1] != "MSFT" {
			t.Errorf("expected normalized tickers [AAPL MSFT], got %v", store.lastGet)
		}
	})

	t.Run("Given a blank filter When listing Then responds 400", func(t *testing.T) {
		router := newSymbolRouter(newTestSymbolHandler(&fakeSymbolStore{}))

		w := performRequest(router, http.MethodGet, "/api/v1/symbols?symbols=%20,%20", nil)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("Given a store failure When listing Then responds 500", func(t *testing.T) {
		router := newSymbolRouter(newTestSymbolHandler(&fakeSymbolStore{err: errFakeStore}))

		w := performRequest(router, http.MethodGet, "/api/v1/symbols", nil)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestSymbolHandler_RegisterSymbol(t *testing.T) {
	t.Run("Given a valid symbol When registering Then responds 201 active and normalized", func(t *testing.T) {
		store := &fakeSymbolStore{}
		router := newSymbolRouter(newTestSymbolHandler(store))

		body := strings.NewReader(`{"ticker": "nvda", "name": "NVIDIA Corp.", "exchange": "NASDAQ"}`)
		w := performRequest(router, http.MethodPost, "/api/v1/symbols", body)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		var resp symbolResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Data.Ticker != "NVDA" {
			t.Errorf("expected normalized ticker NVDA, got %q", resp.Data.Ticker)
		}
		if !resp.Data.IsActive {
			t.Error("registered symbols must be active")
		}
		if store.lastUpserted == nil || !store.lastUpserted.IsActive {
			t.Error("expected an active symbol written to the store")
		}
	})

	t.Run("Given invalid payloads When registering Then responds 400", func(t *testing.T) {
		router := newSymbolRouter(newTestSymbolHandler(&fakeSymbolStore{}))

		bodies := map[string]string{
			"missing ticker":   `{"name": "No Ticker Inc."}`,
			"malformed ticker": `{"ticker": "123ABC"}`,
			"broken json":      `{"ticker": `,
		}
		for name, body := range bodies {
			w := performRequest(router, http.MethodPost, "/api/v1/symbols", strings.NewReader(body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d: %s", name, w.Code, w.Body.String())
			}
		}
	})

	t.Run("Given a store failure When registering Then responds 500", func(t *testing.T) {
		router := newSymbolRouter(newTestSymbolHandler(&fakeSymbolStore{err: errFakeStore}))

		body := strings.NewReader(`{"ticker": "NVDA"}`)
		w := performRequest(router, http.MethodPost, "/api/v1/symbols", body)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
		}
	})
}
