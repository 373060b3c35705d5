package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"portfolio-tracker/internal/services"
)

type PositionHandler struct {
	positionService *services.PositionService
}

func NewPositionHandler(positionService *services.PositionService) *PositionHandler {
	return &PositionHandler{positionService: positionService}
}

type UpdatePositionRequest struct {
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

type SellPositionRequest struct {
	Quantity decimal.Decimal  `json:"quantity" binding:"required"`
	Price    *decimal.Decimal `json:"price"` // nil means sell at the current market price
}

func (h *PositionHandler) UpdatePosition(c *gin.Context) {
	userID, positionID, ok := h.authedPositionID(c)
	if !ok {
		return
	}

	var req UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	position, err := h.positionService.UpdatePosition(userID, positionID, services.UpdatePositionInput{
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, position)
}

func (h *PositionHandler) SellPosition(c *gin.Context) {
	userID, positionID, ok := h.authedPositionID(c)
	if !ok {
		return
	}

	var req SellPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	proceeds, err := h.positionService.SellPosition(userID, positionID, req.Quantity, req.Price)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Position sold",
		"proceeds": proceeds,
	})
}

func (h *PositionHandler) DeletePosition(c *gin.Context) {
	userID, positionID, ok := h.authedPositionID(c)
	if !ok {
		return
	}

	if err := h.positionService.DeletePosition(userID, positionID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Position deleted"})
}

func (h *PositionHandler) authedPositionID(c *gin.Context) (string, primitive.ObjectID, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", primitive.NilObjectID, false
	}

	positionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid position id"})
		return "", primitive.NilObjectID, false
	}
	return userID.(string), positionID, true
}
