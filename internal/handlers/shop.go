package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mines-miniapp-backend/internal/config"
	"mines-miniapp-backend/internal/models"
	"mines-miniapp-backend/internal/services"
)

type ShopHandler struct {
	cfg          *config.Config
	redisService *services.RedisService
}

func NewShopHandler(cfg *config.Config, redisService *services.RedisService) *ShopHandler {
	return &ShopHandler{
		cfg:          cfg,
		redisService: redisService,
	}
}

func (h *ShopHandler) ListItems(c *gin.Context) {
	items := make([]gin.H, 0, len(h.cfg.ShopItems))
	for key, item := range h.cfg.ShopItems {
		items = append(items, gin.H{
			"key":   key,
			"name":  item.Name,
			"price": item.Price,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

func (h *ShopHandler) BuyItem(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.BuyItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, ok := h.cfg.ShopItems[req.Item]
	if !ok {
		abortWithError(c, services.ErrItemNotFound)
		return
	}

	balance, err := h.redisService.BuyItem(c.Request.Context(), userID, item.Price, item.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.redisService.SaveTransaction(c.Request.Context(), &models.Transaction{
		ID:           models.GenerateTransactionID(),
		UserID:       userID,
		Type:         models.TransactionTypePurchase,
		Amount:       -item.Price,
		BalanceAfter: balance,
		Description:  fmt.Sprintf("Bought %s", item.Name),
		CreatedAt:    time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"item":    item.Name,
		"balance": balance,
	})
}

func (h *ShopHandler) GetOwnedItems(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.redisService.GetOrCreateWallet(c.Request.Context(), userID, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wallet", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "titles": wallet.Titles})
}
