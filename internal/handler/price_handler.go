package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/model"
	"github.com/yourorg/market-insights/internal/service"
	"github.com/yourorg/market-insights/internal/utils"
)

// PriceHandler handles price series HTTP requests
type PriceHandler struct {
	priceService *service.PriceService
	logger       *zap.Logger
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(priceService *service.PriceService, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{
		priceService: priceService,
		logger:       logger,
	}
}

// GetPrices handles retrieving a daily price series with optional indicators
// GET /api/v1/stocks/:ticker/prices
func (h *PriceHandler) GetPrices(c *gin.Context) {
	query := model.PriceSeriesQuery{Ticker: c.Param("ticker")}

	if daysStr := c.Query("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 1 {
			utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid days parameter")
			return
		}
		query.Days = days
	}

	from, ok := utils.ParseDateQuery(c, "from")
	if !ok {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid from date. Use YYYY-MM-DD or RFC3339")
		return
	}
	to, ok := utils.ParseDateQuery(c, "to")
	if !ok {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid to date. Use YYYY-MM-DD or RFC3339")
		return
	}
	query.From, query.To = from, to

	if indicatorsStr := c.Query("indicators"); indicatorsStr != "" {
		query.Indicators = strings.Split(indicatorsStr, ",")
	}

	result, err := h.priceService.ResolvePrices(c.Request.Context(), &query)
	if err != nil {
		h.respondResolveError(c, &query, err)
		return
	}

	c.Header("X-Provenance", string(result.Provenance))
	c.JSON(http.StatusOK, result)
}

func (h *PriceHandler) respondResolveError(c *gin.Context, query *model.PriceSeriesQuery, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQuery):
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSymbolNotFound):
		utils.SendErrorResponse(c, http.StatusNotFound, "Unknown ticker")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		utils.SendErrorResponse(c, http.StatusBadGateway, "Price data currently unavailable")
	default:
		h.logger.Error("Failed to resolve price query",
			zap.Error(err),
			zap.String("ticker", query.Ticker))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to resolve price query")
	}
}
