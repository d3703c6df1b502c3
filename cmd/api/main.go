package main

import (
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mines-miniapp-backend/internal/config"
	"mines-miniapp-backend/internal/handlers"
	"mines-miniapp-backend/internal/middleware"
	"mines-miniapp-backend/internal/services"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "mines",
	})

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		logger.Fatal("failed to connect to Redis", "err", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)
	engine := services.NewMinesEngine(cfg, redisService, logger)

	oracle := services.NewSimulatedOracle(map[string]int64{
		"GLD": 500,
		"OIL": 120,
		"TEC": 300,
	})
	leaderboard := services.NewLeaderboardService(redisService, oracle)

	wsHandler := handlers.NewWebSocketHandler(redisService, logger)
	engine.SetBroadcaster(wsHandler)

	// Withdraw finished-game outcomes after their display window and keep
	// the simulated price feed moving.
	go func() {
		ticker := time.NewTicker(cfg.ResultTTL)
		defer ticker.Stop()
		for range ticker.C {
			engine.ExpireStaleResults(cfg.ResultTTL)
		}
	}()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			oracle.Tick()
		}
	}()

	authHandler := handlers.NewAuthHandler(redisService, jwtService, cfg.BotToken)
	userHandler := handlers.NewUserHandler(redisService)
	gameHandler := handlers.NewGameHandler(engine, redisService)
	walletHandler := handlers.NewWalletHandler(redisService, leaderboard)
	shopHandler := handlers.NewShopHandler(cfg, redisService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Keep-alive probe for the hosting platform.
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Mines Bot is Running!")
	})

	router.GET("/auth/telegram", authHandler.Authenticate)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.GET("/history", gameHandler.GetGameHistory)

			mines := games.Group("/mines")
			{
				mines.POST("/start", gameHandler.Start)
				mines.POST("/reveal", gameHandler.Reveal)
				mines.POST("/cashout", gameHandler.CashOut)
				mines.POST("/cancel", gameHandler.Cancel)
				mines.GET("/active", gameHandler.GetActiveGame)
			}
		}

		wallet := protected.Group("/wallet")
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.POST("/transfer", walletHandler.Transfer)
			wallet.POST("/loan", walletHandler.TakeLoan)
			wallet.POST("/repay", walletHandler.RepayLoan)
			wallet.GET("/transactions", walletHandler.GetTransactions)
		}

		protected.GET("/leaderboard", walletHandler.GetLeaderboard)

		shop := protected.Group("/shop")
		{
			shop.GET("", shopHandler.ListItems)
			shop.POST("/buy", shopHandler.BuyItem)
			shop.GET("/items", shopHandler.GetOwnedItems)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	logger.Info("server starting", "port", port, "env", cfg.Env)
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("failed to start server", "err", err)
	}
}
