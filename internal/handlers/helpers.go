package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mines-miniapp-backend/internal/services"
)

// abortWithError maps service errors onto HTTP statuses. Unknown errors are
// internal; everything the player can correct comes back as 4xx.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, services.ErrNotYourGame):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNoActiveSession),
		errors.Is(err, services.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrSessionAlreadyActive),
		errors.Is(err, services.ErrCellAlreadyRevealed),
		errors.Is(err, services.ErrNoRevealsYet),
		errors.Is(err, services.ErrLoanAlreadyActive),
		errors.Is(err, services.ErrNoLoanActive),
		errors.Is(err, services.ErrItemAlreadyOwned):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInvalidBet),
		errors.Is(err, services.ErrInvalidTarget),
		errors.Is(err, services.ErrInvalidConfiguration),
		errors.Is(err, services.ErrCellOutOfRange),
		errors.Is(err, services.ErrLoanLimitExceeded),
		errors.Is(err, services.ErrUnknownTier):
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
