package services

import "time"

const (
	KeyWallet             = "wallet:%d"
	KeyWalletIndex        = "wallets:index"
	KeyUserInfo           = "user:%d:info"
	KeyUserSession        = "user:%d:session:%s"
	KeyGameResult         = "game:result:%s"
	KeyUserCompletedGames = "user:%d:completed_games"
	KeyTransaction        = "transaction:%s"
	KeyUserTransactions   = "user:%d:transactions"
	KeyRateLimit          = "ratelimit:%d:%s"

	TTLUserSession = 24 * time.Hour
	TTLUserInfo    = 30 * 24 * time.Hour // 30 days
	TTLGameResult  = 7 * 24 * time.Hour  // 7 days
	TTLTransaction = 30 * 24 * time.Hour // 30 days

	DefaultRateLimitStart   = 30  // max 30 game starts per minute
	DefaultRateLimitReveal  = 120 // max 120 reveals per minute
	DefaultRateLimitCashout = 60  // max 60 cashouts per minute
)
