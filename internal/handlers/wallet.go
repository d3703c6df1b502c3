package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mines-miniapp-backend/internal/models"
	"mines-miniapp-backend/internal/services"
)

type WalletHandler struct {
	redisService *services.RedisService
	leaderboard  *services.LeaderboardService
}

func NewWalletHandler(redisService *services.RedisService, leaderboard *services.LeaderboardService) *WalletHandler {
	return &WalletHandler{
		redisService: redisService,
		leaderboard:  leaderboard,
	}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.redisService.GetOrCreateWallet(c.Request.Context(), userID, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wallet", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": models.BalanceResponse{
			Balance: wallet.Balance,
			Loan:    wallet.Loan,
		},
	})
}

func (h *WalletHandler) Transfer(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()

	// The receiver gets a wallet on first sight, same as any other action.
	if _, err := h.redisService.GetOrCreateWallet(ctx, req.ToID, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to provision receiver wallet"})
		return
	}

	if err := h.redisService.Transfer(ctx, userID, req.ToID, req.Amount); err != nil {
		abortWithError(c, err)
		return
	}

	now := time.Now()
	h.redisService.SaveTransaction(ctx, &models.Transaction{
		ID:          models.GenerateTransactionID(),
		UserID:      userID,
		Type:        models.TransactionTypeTransferOut,
		Amount:      -req.Amount,
		Description: fmt.Sprintf("Transfer to %d", req.ToID),
		CreatedAt:   now,
	})
	h.redisService.SaveTransaction(ctx, &models.Transaction{
		ID:          models.GenerateTransactionID(),
		UserID:      req.ToID,
		Type:        models.TransactionTypeTransferIn,
		Amount:      req.Amount,
		Description: fmt.Sprintf("Transfer from %d", userID),
		CreatedAt:   now,
	})

	balance, _ := h.redisService.Balance(ctx, userID)
	c.JSON(http.StatusOK, gin.H{"success": true, "balance": balance})
}

func (h *WalletHandler) TakeLoan(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.LoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	wallet, err := h.redisService.IssueLoan(c.Request.Context(), userID, req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.redisService.SaveTransaction(c.Request.Context(), &models.Transaction{
		ID:           models.GenerateTransactionID(),
		UserID:       userID,
		Type:         models.TransactionTypeLoan,
		Amount:       req.Amount,
		BalanceAfter: wallet.Balance,
		Description:  fmt.Sprintf("Loan of %d, %d owed", req.Amount, wallet.Loan),
		CreatedAt:    time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": wallet.Balance,
		"owed":    wallet.Loan,
	})
}

func (h *WalletHandler) RepayLoan(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.redisService.RepayLoan(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.redisService.SaveTransaction(c.Request.Context(), &models.Transaction{
		ID:           models.GenerateTransactionID(),
		UserID:       userID,
		Type:         models.TransactionTypeRepayment,
		BalanceAfter: wallet.Balance,
		Description:  "Loan repaid",
		CreatedAt:    time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "balance": wallet.Balance})
}

func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	transactions, err := h.redisService.GetUserTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get transactions", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": transactions, "count": len(transactions)})
}

func (h *WalletHandler) GetLeaderboard(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}

	entries, err := h.leaderboard.TopPlayers(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build leaderboard", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "leaderboard": entries})
}
