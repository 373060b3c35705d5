package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-tracker/internal/services"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Messages are surfaced verbatim; retry is always the caller's decision.
func respondServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var insufficientErr *services.InsufficientQuantityError
	var priceErr *services.PriceUnavailableError

	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &insufficientErr),
		errors.As(err, &priceErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPortfolioNotFound),
		errors.Is(err, services.ErrPositionNotFound),
		errors.Is(err, services.ErrImportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrImportConsumed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrImportExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
