package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mines-miniapp-backend/internal/models"
	"mines-miniapp-backend/internal/services"
)

type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
	botToken     string
}

func NewAuthHandler(redisService *services.RedisService, jwtService *services.JWTService, botToken string) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
		botToken:     botToken,
	}
}

// Authenticate validates Telegram WebApp initData, provisions the wallet on
// first sight, and issues a JWT for the API.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	initData := c.Query("initData")
	if initData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "initData required"})
		return
	}

	user, err := h.validateInitData(initData)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid Telegram init data",
			"details": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	if err := h.redisService.StoreUser(ctx, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store user"})
		return
	}

	session := &models.UserSession{
		ID:           user.ID,
		SessionID:    uuid.New().String(),
		TelegramUser: *user,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
	}
	if err := h.redisService.StoreUserSession(ctx, session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	wallet, err := h.redisService.GetOrCreateWallet(ctx, user.ID, user.DisplayName())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to provision wallet"})
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, session.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
		"wallet": gin.H{
			"balance": wallet.Balance,
			"loan":    wallet.Loan,
		},
	})
}

// validateInitData checks the Telegram WebApp HMAC: the data-check string
// is every field except hash, sorted, joined by newlines, signed with
// HMAC-SHA256 under a key derived from the bot token.
func (h *AuthHandler) validateInitData(initData string) (*models.TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("malformed init data: %w", err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, fmt.Errorf("missing hash")
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(h.botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return nil, fmt.Errorf("hash mismatch")
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return nil, fmt.Errorf("missing user field")
	}

	var user models.TelegramUser
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("malformed user field: %w", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("missing user id")
	}

	return &user, nil
}
