package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"mines-miniapp-backend/internal/config"
	"mines-miniapp-backend/internal/models"
)

// RedisService is the durable side of the system: wallets, transactions,
// finished-game history, auth sessions, and rate limit counters. Balance
// mutations go through Lua scripts so check-then-write is atomic against
// concurrent requests for the same wallet.
type RedisService struct {
	client          *redis.Client
	startingBalance int64
	loanCeiling     int64
	loanInterest    float64
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{
		client:          client,
		startingBalance: cfg.StartingBalance,
		loanCeiling:     cfg.LoanCeiling,
		loanInterest:    cfg.LoanInterest,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// --- wallets ---

func (s *RedisService) GetOrCreateWallet(ctx context.Context, userID int64, name string) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		now := time.Now()
		wallet := &models.Wallet{
			UserID:    userID,
			Name:      name,
			Balance:   s.startingBalance,
			Loan:      0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.SaveWallet(ctx, wallet); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
		if err := s.client.SAdd(ctx, KeyWalletIndex, userID).Err(); err != nil {
			return nil, fmt.Errorf("failed to index wallet: %w", err)
		}
		return wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}

	if name != "" && wallet.Name != name {
		wallet.Name = name
		if err := s.SaveWallet(ctx, &wallet); err != nil {
			return nil, err
		}
	}

	return &wallet, nil
}

func (s *RedisService) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("wallet not found for user %d", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return &wallet, nil
}

func (s *RedisService) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	key := fmt.Sprintf(KeyWallet, wallet.UserID)

	wallet.UpdatedAt = time.Now()
	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}

	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *RedisService) Balance(ctx context.Context, userID int64) (int64, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// creditScript adds a positive amount and returns the new balance.
var creditScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)
	wallet.balance = wallet.balance + amount

	redis.call("SET", key, cjson.encode(wallet))
	return wallet.balance
`)

// debitScript is decrement-if-sufficient: the balance check and the write
// happen in one script so concurrent debits cannot drive a wallet negative.
var debitScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)
	if wallet.balance < amount then
		return redis.error_reply("insufficient funds")
	end

	wallet.balance = wallet.balance - amount
	redis.call("SET", key, cjson.encode(wallet))
	return wallet.balance
`)

func (s *RedisService) Credit(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: credit amount must be positive", ErrInvalidBet)
	}
	key := fmt.Sprintf(KeyWallet, userID)
	balance, err := creditScript.Run(ctx, s.client, []string{key}, amount).Int64()
	if err != nil {
		return 0, walletScriptErr(err)
	}
	return balance, nil
}

func (s *RedisService) Debit(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive", ErrInvalidBet)
	}
	key := fmt.Sprintf(KeyWallet, userID)
	balance, err := debitScript.Run(ctx, s.client, []string{key}, amount).Int64()
	if err != nil {
		return 0, walletScriptErr(err)
	}
	return balance, nil
}

// transferScript moves amount between two wallets as one unit; either both
// legs apply or neither does.
var transferScript = redis.NewScript(`
	local fromKey = KEYS[1]
	local toKey = KEYS[2]
	local amount = tonumber(ARGV[1])

	local fromData = redis.call("GET", fromKey)
	local toData = redis.call("GET", toKey)
	if not fromData or not toData then
		return redis.error_reply("wallet not found")
	end

	local from = cjson.decode(fromData)
	local to = cjson.decode(toData)

	if from.balance < amount then
		return redis.error_reply("insufficient funds")
	end

	from.balance = from.balance - amount
	to.balance = to.balance + amount

	redis.call("SET", fromKey, cjson.encode(from))
	redis.call("SET", toKey, cjson.encode(to))
	return "OK"
`)

func (s *RedisService) Transfer(ctx context.Context, fromID, toID int64, amount int64) error {
	if fromID == toID {
		return ErrInvalidTarget
	}
	if amount <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidBet)
	}

	fromKey := fmt.Sprintf(KeyWallet, fromID)
	toKey := fmt.Sprintf(KeyWallet, toID)
	if err := transferScript.Run(ctx, s.client, []string{fromKey, toKey}, amount).Err(); err != nil {
		return walletScriptErr(err)
	}
	return nil
}

// loanScript credits the principal and records the repayment owed, refusing
// a second loan while one is outstanding.
var loanScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])
	local repay = tonumber(ARGV[2])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)
	if wallet.loan > 0 then
		return redis.error_reply("loan already active")
	end

	wallet.balance = wallet.balance + amount
	wallet.loan = repay

	redis.call("SET", key, cjson.encode(wallet))
	return wallet.balance
`)

var repayScript = redis.NewScript(`
	local key = KEYS[1]

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)
	if wallet.loan <= 0 then
		return redis.error_reply("no loan active")
	end
	if wallet.balance < wallet.loan then
		return redis.error_reply("insufficient funds")
	end

	wallet.balance = wallet.balance - wallet.loan
	wallet.loan = 0

	redis.call("SET", key, cjson.encode(wallet))
	return wallet.balance
`)

func (s *RedisService) IssueLoan(ctx context.Context, userID int64, amount int64) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: loan amount must be positive", ErrInvalidBet)
	}
	if amount > s.loanCeiling {
		return nil, fmt.Errorf("%w: max loan is %d", ErrLoanLimitExceeded, s.loanCeiling)
	}

	key := fmt.Sprintf(KeyWallet, userID)
	repay := models.LoanRepayment(amount, s.loanInterest)
	if err := loanScript.Run(ctx, s.client, []string{key}, amount, repay).Err(); err != nil {
		return nil, walletScriptErr(err)
	}
	return s.GetWallet(ctx, userID)
}

func (s *RedisService) RepayLoan(ctx context.Context, userID int64) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID)
	if err := repayScript.Run(ctx, s.client, []string{key}).Err(); err != nil {
		return nil, walletScriptErr(err)
	}
	return s.GetWallet(ctx, userID)
}

// buyItemScript debits the price and appends the title in one step so a
// double-tapped buy cannot charge twice.
var buyItemScript = redis.NewScript(`
	local key = KEYS[1]
	local price = tonumber(ARGV[1])
	local title = ARGV[2]

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)
	if wallet.titles then
		for _, t in ipairs(wallet.titles) do
			if t == title then
				return redis.error_reply("already owned")
			end
		end
	else
		wallet.titles = {}
	end

	if wallet.balance < price then
		return redis.error_reply("insufficient funds")
	end

	wallet.balance = wallet.balance - price
	table.insert(wallet.titles, title)

	redis.call("SET", key, cjson.encode(wallet))
	return wallet.balance
`)

func (s *RedisService) BuyItem(ctx context.Context, userID int64, price int64, title string) (int64, error) {
	key := fmt.Sprintf(KeyWallet, userID)
	balance, err := buyItemScript.Run(ctx, s.client, []string{key}, price, title).Int64()
	if err != nil {
		return 0, walletScriptErr(err)
	}
	return balance, nil
}

// walletScriptErr maps Lua error replies onto the sentinel errors the rest
// of the system dispatches on.
func walletScriptErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return ErrInsufficientFunds
	case strings.Contains(msg, "loan already active"):
		return ErrLoanAlreadyActive
	case strings.Contains(msg, "no loan active"):
		return ErrNoLoanActive
	case strings.Contains(msg, "already owned"):
		return ErrItemAlreadyOwned
	default:
		return fmt.Errorf("wallet operation failed: %w", err)
	}
}

func (s *RedisService) ListWallets(ctx context.Context) ([]*models.Wallet, error) {
	ids, err := s.client.SMembers(ctx, KeyWalletIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		userID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyWallet, userID))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to fetch wallets: %w", err)
	}

	wallets := make([]*models.Wallet, 0, len(ids))
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var wallet models.Wallet
		if err := json.Unmarshal([]byte(data), &wallet); err != nil {
			continue
		}
		wallets = append(wallets, &wallet)
	}

	return wallets, nil
}

// --- transactions ---

func (s *RedisService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	if err := s.client.Set(ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.UserID)
	if err := s.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.Unix()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index transaction: %w", err)
	}

	// Keep only the last 100 transactions per user.
	s.client.ZRemRangeByRank(ctx, userTxKey, 0, -101)

	return nil
}

func (s *RedisService) GetUserTransactions(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, userID)
	txIDs, err := s.client.ZRevRange(ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %w", err)
	}

	var transactions []*models.Transaction
	for _, txID := range txIDs {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyTransaction, txID)).Result()
		if err != nil {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

// --- finished games ---

func (s *RedisService) SaveGameResult(ctx context.Context, result *models.MinesResult) error {
	key := fmt.Sprintf(KeyGameResult, result.GameID)

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal game result: %w", err)
	}

	if err := s.client.Set(ctx, key, data, TTLGameResult).Err(); err != nil {
		return fmt.Errorf("failed to save game result: %w", err)
	}

	completedKey := fmt.Sprintf(KeyUserCompletedGames, result.UserID)
	if err := s.client.ZAdd(ctx, completedKey, redis.Z{
		Score:  float64(result.FinishedAt.Unix()),
		Member: result.GameID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index game result: %w", err)
	}

	s.client.ZRemRangeByRank(ctx, completedKey, 0, -101)
	s.client.Expire(ctx, completedKey, TTLGameResult)

	return nil
}

func (s *RedisService) GetGameHistory(ctx context.Context, userID int64, limit int64) ([]*models.MinesResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	completedKey := fmt.Sprintf(KeyUserCompletedGames, userID)
	gameIDs, err := s.client.ZRevRange(ctx, completedKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game IDs: %w", err)
	}

	var results []*models.MinesResult
	for _, gameID := range gameIDs {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyGameResult, gameID)).Result()
		if err != nil {
			continue
		}

		var result models.MinesResult
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			continue
		}
		results = append(results, &result)
	}

	return results, nil
}

// --- auth sessions ---

func (s *RedisService) StoreUser(ctx context.Context, user *models.TelegramUser) error {
	key := fmt.Sprintf(KeyUserInfo, user.ID)

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, TTLUserInfo).Err()
}

func (s *RedisService) StoreUserSession(ctx context.Context, session *models.UserSession) error {
	key := fmt.Sprintf(KeyUserSession, session.ID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, TTLUserSession).Err()
}

func (s *RedisService) GetUserSession(ctx context.Context, userID int64, sessionID string) (*models.UserSession, error) {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var session models.UserSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	if updated, err := json.Marshal(session); err == nil {
		s.client.Set(ctx, key, updated, TTLUserSession)
	}

	return &session, nil
}

func (s *RedisService) DeleteUserSession(ctx context.Context, userID int64, sessionID string) error {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)
	return s.client.Del(ctx, key).Err()
}

// --- rate limits ---

func (s *RedisService) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// --- test helpers ---

func (s *RedisService) DeleteWallet(ctx context.Context, userID int64) error {
	s.client.SRem(ctx, KeyWalletIndex, userID)
	return s.client.Del(ctx, fmt.Sprintf(KeyWallet, userID)).Err()
}

func (s *RedisService) ClearRateLimit(ctx context.Context, userID int64, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, userID, action)).Err()
}
