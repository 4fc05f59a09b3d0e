package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/model"
	"github.com/yourorg/market-insights/internal/service"
	"github.com/yourorg/market-insights/internal/utils"
)

// NewsHandler handles news HTTP requests
type NewsHandler struct {
	newsService *service.NewsService
	logger      *zap.Logger
}

// NewNewsHandler creates a new news handler
func NewNewsHandler(newsService *service.NewsService, logger *zap.Logger) *NewsHandler {
	return &NewsHandler{
		newsService: newsService,
		logger:      logger,
	}
}

// GetNews handles retrieving news documents with sentiment
// GET /api/v1/news
func (h *NewsHandler) GetNews(c *gin.Context) {
	var query model.NewsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid news query: "+err.Error())
		return
	}

	result, err := h.newsService.ResolveNews(c.Request.Context(), &query)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to resolve news query",
			zap.Error(err),
			zap.String("ticker", query.Ticker))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to resolve news query")
		return
	}

	c.Header("X-Provenance", string(result.Provenance))
	c.JSON(http.StatusOK, result)
}
