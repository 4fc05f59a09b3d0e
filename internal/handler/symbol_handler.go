package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/model"
	"github.com/yourorg/market-insights/internal/service"
	"github.com/yourorg/market-insights/internal/utils"
)

// SymbolHandler handles symbol directory HTTP requests
type SymbolHandler struct {
	symbolService *service.SymbolService
	logger        *zap.Logger
}

// NewSymbolHandler creates a new symbol handler
func NewSymbolHandler(symbolService *service.SymbolService, logger *zap.Logger) *SymbolHandler {
	return &SymbolHandler{
		symbolService: symbolService,
		logger:        logger,
	}
}

// ListSymbols handles listing the symbol directory, optionally filtered
// GET /api/v1/symbols?symbols=AAPL,MSFT
func (h *SymbolHandler) ListSymbols(c *gin.Context) {
	var (
		symbols []model.Symbol
		err     error
	)
	if filter := c.Query("symbols"); filter != "" {
		symbols, err = h.symbolService.GetBySymbols(c.Request.Context(), strings.Split(filter, ","))
	} else {
		symbols, err = h.symbolService.ListActive(c.Request.Context())
	}
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to list symbols")
		return
	}
	if symbols == nil {
		symbols = []model.Symbol{}
	}
	c.JSON(http.StatusOK, gin.H{"data": symbols})
}

// RegisterSymbol handles adding or updating a symbol directory entry
// POST /api/v1/symbols
func (h *SymbolHandler) RegisterSymbol(c *gin.Context) {
	var symbol model.Symbol
	if err := c.ShouldBindJSON(&symbol); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid symbol: "+err.Error())
		return
	}

	if err := h.symbolService.Register(c.Request.Context(), &symbol); err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to register symbol",
			zap.Error(err),
			zap.String("ticker", symbol.Ticker))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to register symbol")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": symbol})
}
