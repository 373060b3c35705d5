package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"portfolio-tracker/internal/services"
)

type PortfolioHandler struct {
	portfolioService *services.PortfolioService
	positionService  *services.PositionService
}

func NewPortfolioHandler(portfolioService *services.PortfolioService, positionService *services.PositionService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		positionService:  positionService,
	}
}

type PortfolioRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// AddPositionRequest - validated payload for adding a holding
type AddPositionRequest struct {
	Symbol        string          `json:"symbol" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	PurchaseDate  string          `json:"purchase_date"` // YYYY-MM-DD, defaults to today
	Notes         string          `json:"notes"`
}

func (h *PortfolioHandler) CreatePortfolio(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req PortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	portfolio, err := h.portfolioService.CreatePortfolio(userID.(string), req.Name, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, portfolio)
}

func (h *PortfolioHandler) ListPortfolios(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	summaries, err := h.portfolioService.ListPortfolios(userID.(string))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolios": summaries})
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	userID, portfolioID, ok := h.authedPortfolioID(c)
	if !ok {
		return
	}

	detail, err := h.portfolioService.GetPortfolio(userID, portfolioID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *PortfolioHandler) UpdatePortfolio(c *gin.Context) {
	userID, portfolioID, ok := h.authedPortfolioID(c)
	if !ok {
		return
	}

	var req PortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	portfolio, err := h.portfolioService.UpdatePortfolio(userID, portfolioID, req.Name, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

func (h *PortfolioHandler) DeletePortfolio(c *gin.Context) {
	userID, portfolioID, ok := h.authedPortfolioID(c)
	if !ok {
		return
	}

	if err := h.portfolioService.DeletePortfolio(userID, portfolioID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Portfolio deleted"})
}

func (h *PortfolioHandler) AddPosition(c *gin.Context) {
	userID, portfolioID, ok := h.authedPortfolioID(c)
	if !ok {
		return
	}

	var req AddPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	purchaseDate := time.Now()
	if req.PurchaseDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "purchase_date must be YYYY-MM-DD"})
			return
		}
		purchaseDate = parsed
	}

	position, err := h.positionService.AddPosition(userID, portfolioID, services.AddPositionInput{
		Symbol:        req.Symbol,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		PurchaseDate:  purchaseDate,
		Notes:         req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, position)
}

func (h *PortfolioHandler) RefreshPrices(c *gin.Context) {
	userID, portfolioID, ok := h.authedPortfolioID(c)
	if !ok {
		return
	}

	updated, err := h.portfolioService.RefreshPrices(userID, portfolioID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        fmt.Sprintf("Updated prices for %d stocks", len(updated)),
		"updated_stocks": updated,
	})
}

// ExportCSV streams the portfolio as a CSV attachment.
func (h *PortfolioHandler) ExportCSV(c *gin.Context) {
	userID, portfolioID, ok := h.authedPortfolioID(c)
	if !ok {
		return
	}

	detail, err := h.portfolioService.GetPortfolio(userID, portfolioID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("portfolio-%s.csv", detail.Name)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", services.ExportPortfolioCSV(detail))
}

// TopPortfolios is public: no auth middleware on this route.
func (h *PortfolioHandler) TopPortfolios(c *gin.Context) {
	entries, err := h.portfolioService.TopPortfolios(10)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *PortfolioHandler) authedPortfolioID(c *gin.Context) (string, primitive.ObjectID, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", primitive.NilObjectID, false
	}

	portfolioID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid portfolio id"})
		return "", primitive.NilObjectID, false
	}
	return userID.(string), portfolioID, true
}
