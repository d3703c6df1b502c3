package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mines-miniapp-backend/internal/models"
	"mines-miniapp-backend/internal/services"
)

type GameHandler struct {
	engine       *services.MinesEngine
	redisService *services.RedisService
}

func NewGameHandler(engine *services.MinesEngine, redisService *services.RedisService) *GameHandler {
	return &GameHandler{
		engine:       engine,
		redisService: redisService,
	}
}

// ownerOr resolves the target session owner: explicit owner_id from a
// shared surface, otherwise the caller themselves.
func ownerOr(callerID, ownerID int64) int64 {
	if ownerID != 0 {
		return ownerID
	}
	return callerID
}

func (h *GameHandler) Start(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.Start(c.Request.Context(), userID, req.Stake, req.MineCount)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "game": result})
}

func (h *GameHandler) Reveal(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.Reveal(c.Request.Context(), userID, ownerOr(userID, req.OwnerID), req.Cell)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *GameHandler) CashOut(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.SessionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.CashOut(c.Request.Context(), userID, ownerOr(userID, req.OwnerID))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *GameHandler) Cancel(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.SessionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.Cancel(c.Request.Context(), userID, ownerOr(userID, req.OwnerID))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *GameHandler) GetActiveGame(c *gin.Context) {
	userID := c.GetInt64("user_id")

	view, ok := h.engine.ActiveSession(userID)
	if !ok {
		if recent, found := h.engine.RecentResult(userID); found {
			c.JSON(http.StatusOK, gin.H{"success": true, "active": false, "recent": recent})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "active": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "active": true, "game": view})
}

func (h *GameHandler) GetGameHistory(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	games, err := h.redisService.GetGameHistory(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get game history", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "games": games, "count": len(games)})
}
