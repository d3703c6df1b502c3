package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mines-miniapp-backend/internal/services"
)

type UserHandler struct {
	redisService *services.RedisService
}

func NewUserHandler(redisService *services.RedisService) *UserHandler {
	return &UserHandler{redisService: redisService}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetInt64("user_id")
	sessionID := c.GetString("session_id")

	session, err := h.redisService.GetUserSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
		return
	}

	wallet, err := h.redisService.GetOrCreateWallet(c.Request.Context(), userID, session.TelegramUser.DisplayName())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wallet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": session.TelegramUser,
		"session": gin.H{
			"session_id":    session.SessionID,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessed,
		},
		"wallet": gin.H{
			"balance": wallet.Balance,
			"loan":    wallet.Loan,
			"titles":  wallet.Titles,
		},
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	userID := c.GetInt64("user_id")
	sessionID := c.GetString("session_id")

	if err := h.redisService.DeleteUserSession(c.Request.Context(), userID, sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
