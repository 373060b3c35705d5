package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-tracker/internal/services"
)

type MarketHandler struct {
	marketService *services.MarketDataService
}

func NewMarketHandler(marketService *services.MarketDataService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

// GetStock resolves a ticker symbol to catalog data, fetching a quote for
// symbols not seen before.
func (h *MarketHandler) GetStock(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	stock, err := h.marketService.ResolveSymbol(symbol)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

func (h *MarketHandler) GetQuote(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	quote, err := h.marketService.GetQuote(symbol)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *MarketHandler) MarketMovers(c *gin.Context) {
	c.JSON(http.StatusOK, h.marketService.MarketMovers())
}
