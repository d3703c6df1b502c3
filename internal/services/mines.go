package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"mines-miniapp-backend/internal/config"
	"mines-miniapp-backend/internal/models"
)

// MinesEngine owns the per-player session state machine. Live sessions are
// held in memory, keyed by the owning player: one player, at most one
// session. Every operation for a given player runs under that player's
// mutex, so existence-check-then-create and check-then-mutate are atomic
// per player while distinct players proceed in parallel.
//
// Money moves exactly twice per game at most: the stake is debited once at
// Start, and a single settlement credit happens at the terminal transition
// (or never, on a loss). Sessions leave the live store only after their
// settlement has been applied.
type MinesEngine struct {
	cfg      *config.Config
	ledger   Ledger
	schedule *Schedule
	logger   *log.Logger

	broadcaster Broadcaster

	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	sessions map[int64]*models.MinesSession
	recent   map[int64]*models.MinesResult
}

func NewMinesEngine(cfg *config.Config, ledger Ledger, logger *log.Logger) *MinesEngine {
	return &MinesEngine{
		cfg:      cfg,
		ledger:   ledger,
		schedule: NewSchedule(cfg.Tiers, cfg.DefaultTier),
		logger:   logger,
		locks:    make(map[int64]*sync.Mutex),
		sessions: make(map[int64]*models.MinesSession),
		recent:   make(map[int64]*models.MinesResult),
	}
}

// SetBroadcaster wires the websocket hub in after construction; the engine
// works without one.
func (e *MinesEngine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

func (e *MinesEngine) Schedule() *Schedule {
	return e.schedule
}

// playerLock returns the serialization lock for one player, creating it on
// first sight.
func (e *MinesEngine) playerLock(userID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

func (e *MinesEngine) getSession(userID int64) *models.MinesSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[userID]
}

func (e *MinesEngine) putSession(sess *models.MinesSession) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions[sess.UserID] = sess
}

func (e *MinesEngine) dropSession(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, userID)
}

// Start escrows the stake and opens a session. The stake is debited exactly
// once; board generation cannot fail after the parameter checks, so the
// debit never needs unwinding here.
func (e *MinesEngine) Start(ctx context.Context, userID int64, stake int64, mineCount int) (*models.MinesResult, error) {
	lock := e.playerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if e.getSession(userID) != nil {
		return nil, ErrSessionAlreadyActive
	}

	if stake < e.cfg.MinBet {
		return nil, fmt.Errorf("%w: minimum bet is %d", ErrInvalidBet, e.cfg.MinBet)
	}

	cells := e.cfg.GridSize * e.cfg.GridSize
	if mineCount <= 0 || mineCount >= cells {
		return nil, fmt.Errorf("%w: %d mines on a %dx%d grid", ErrInvalidConfiguration, mineCount, e.cfg.GridSize, e.cfg.GridSize)
	}
	if !e.schedule.KnownTier(mineCount) {
		e.logger.Warn("no ladder for mine count, using default tier",
			"user_id", userID, "mine_count", mineCount, "default_tier", e.cfg.DefaultTier)
	}

	balance, err := e.ledger.Debit(ctx, userID, stake)
	if err != nil {
		return nil, err
	}

	mines, err := NewBoard(e.cfg.GridSize, mineCount)
	if err != nil {
		// Unreachable after the bounds check above, but a failed board must
		// not eat the stake.
		if _, cerr := e.ledger.Credit(ctx, userID, stake); cerr != nil {
			e.logger.Error("failed to refund stake after board error", "user_id", userID, "err", cerr)
		}
		return nil, err
	}

	now := time.Now()
	sess := &models.MinesSession{
		ID:        models.GenerateGameID(),
		UserID:    userID,
		Stake:     stake,
		MineCount: mineCount,
		GridSize:  e.cfg.GridSize,
		Mines:     mines,
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.putSession(sess)

	e.recordTransaction(ctx, userID, models.TransactionTypeBet, -stake, balance, sess.ID,
		fmt.Sprintf("Mines bet, %d mines", mineCount))
	e.notifyBalance(userID, balance)

	e.logger.Info("mines game started",
		"user_id", userID, "game_id", sess.ID, "stake", stake, "mines", mineCount)

	return &models.MinesResult{
		GameID:         sess.ID,
		UserID:         userID,
		Status:         models.StatusActive,
		Revealed:       []int{},
		Multiplier:     1.0,
		NextMultiplier: e.schedule.MultiplierFor(mineCount, 1),
		BalanceDelta:   -stake,
		Balance:        balance,
	}, nil
}

// Reveal opens one cell. The caller must be the session owner; a mismatch
// is rejected before any board or wallet mutation.
func (e *MinesEngine) Reveal(ctx context.Context, callerID, ownerID int64, cell int) (*models.MinesResult, error) {
	lock := e.playerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.getSession(ownerID)
	if sess == nil {
		return nil, ErrNoActiveSession
	}
	if callerID != sess.UserID {
		return nil, ErrNotYourGame
	}

	if cell < 0 || cell >= sess.GridSize*sess.GridSize {
		return nil, fmt.Errorf("%w: cell %d", ErrCellOutOfRange, cell)
	}
	if sess.IsRevealed(cell) {
		return nil, ErrCellAlreadyRevealed
	}

	if sess.IsMine(cell) {
		sess.Revealed = append(sess.Revealed, cell)
		balance, _ := e.ledger.Balance(ctx, sess.UserID)
		result := e.finishSession(ctx, sess, models.StatusLost, 0, balance)
		e.logger.Info("mines game lost",
			"user_id", ownerID, "game_id", sess.ID, "cell", cell, "stake", sess.Stake)
		return result, nil
	}

	sess.Revealed = append(sess.Revealed, cell)
	sess.UpdatedAt = time.Now()

	if len(sess.Revealed) == sess.SafeCells() {
		mult := e.schedule.JackpotMultiplier(sess.MineCount)
		payout := models.CalculatePayout(sess.Stake, mult)

		balance, err := e.ledger.Credit(ctx, sess.UserID, payout)
		if err != nil {
			// Settlement failed: the session stays live so the win cannot
			// vanish without payout. The player retries via cashout.
			return nil, fmt.Errorf("jackpot settlement failed: %w", err)
		}

		result := e.finishSession(ctx, sess, models.StatusWonJackpot, payout, balance)
		result.Multiplier = mult
		e.recordTransaction(ctx, sess.UserID, models.TransactionTypeWin, payout, balance, sess.ID,
			fmt.Sprintf("Mines jackpot at %.2fx", mult))
		e.logger.Info("mines jackpot",
			"user_id", ownerID, "game_id", sess.ID, "payout", payout, "multiplier", mult)
		return result, nil
	}

	revealed := len(sess.Revealed)
	return &models.MinesResult{
		GameID:         sess.ID,
		UserID:         sess.UserID,
		Status:         models.StatusActive,
		Revealed:       append([]int(nil), sess.Revealed...),
		Multiplier:     e.schedule.MultiplierFor(sess.MineCount, revealed),
		NextMultiplier: e.schedule.MultiplierFor(sess.MineCount, revealed+1),
	}, nil
}

// CashOut settles the session at the current multiplier. At least one cell
// must be open.
func (e *MinesEngine) CashOut(ctx context.Context, callerID, ownerID int64) (*models.MinesResult, error) {
	lock := e.playerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.getSession(ownerID)
	if sess == nil {
		return nil, ErrNoActiveSession
	}
	if callerID != sess.UserID {
		return nil, ErrNotYourGame
	}
	if len(sess.Revealed) == 0 {
		return nil, ErrNoRevealsYet
	}

	mult := e.schedule.MultiplierFor(sess.MineCount, len(sess.Revealed))
	payout := models.CalculatePayout(sess.Stake, mult)

	balance, err := e.ledger.Credit(ctx, sess.UserID, payout)
	if err != nil {
		return nil, fmt.Errorf("cashout settlement failed: %w", err)
	}

	result := e.finishSession(ctx, sess, models.StatusCashedOut, payout, balance)
	result.Multiplier = mult
	e.recordTransaction(ctx, sess.UserID, models.TransactionTypeWin, payout, balance, sess.ID,
		fmt.Sprintf("Mines cashout at %.2fx with %d reveals", mult, len(sess.Revealed)))
	e.logger.Info("mines cashout",
		"user_id", ownerID, "game_id", sess.ID, "payout", payout, "multiplier", mult)
	return result, nil
}

// Cancel closes the session. An untouched board refunds the stake; once a
// cell has been revealed the stake is forfeit, otherwise cancel would be a
// free reroll of a bad board.
func (e *MinesEngine) Cancel(ctx context.Context, callerID, ownerID int64) (*models.MinesResult, error) {
	lock := e.playerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.getSession(ownerID)
	if sess == nil {
		return nil, ErrNoActiveSession
	}
	if callerID != sess.UserID {
		return nil, ErrNotYourGame
	}

	var payout, balance int64
	if len(sess.Revealed) == 0 {
		var err error
		balance, err = e.ledger.Credit(ctx, sess.UserID, sess.Stake)
		if err != nil {
			return nil, fmt.Errorf("cancel refund failed: %w", err)
		}
		payout = sess.Stake
		e.recordTransaction(ctx, sess.UserID, models.TransactionTypeRefund, payout, balance, sess.ID,
			"Mines game cancelled before first reveal")
	}

	result := e.finishSession(ctx, sess, models.StatusCancelled, payout, balance)
	e.logger.Info("mines game cancelled",
		"user_id", ownerID, "game_id", sess.ID, "refund", payout)
	return result, nil
}

// finishSession applies the terminal transition: the session leaves the
// live store, the disclosed outcome is kept for the display window, and the
// result is persisted for history. Settlement has already happened by the
// time this runs.
func (e *MinesEngine) finishSession(ctx context.Context, sess *models.MinesSession, status models.SessionStatus, payout, balance int64) *models.MinesResult {
	sess.Status = status
	sess.UpdatedAt = time.Now()
	e.dropSession(sess.UserID)

	delta := payout
	if status == models.StatusLost {
		delta = 0
	}

	result := &models.MinesResult{
		GameID:       sess.ID,
		UserID:       sess.UserID,
		Status:       status,
		Revealed:     append([]int(nil), sess.Revealed...),
		Mines:        append([]int(nil), sess.Mines...),
		Payout:       payout,
		BalanceDelta: delta,
		Balance:      balance,
		FinishedAt:   sess.UpdatedAt,
	}

	e.mu.Lock()
	e.recent[sess.UserID] = result
	e.mu.Unlock()

	if err := e.ledger.SaveGameResult(ctx, result); err != nil {
		e.logger.Error("failed to persist game result", "game_id", sess.ID, "err", err)
	}

	if e.broadcaster != nil {
		e.broadcaster.BroadcastGameResult(result)
		if payout > 0 {
			e.broadcaster.BroadcastBalance(sess.UserID, balance)
		}
	}

	return result
}

// ActiveSession returns a display view of the player's live session, if
// any. The mine layout stays hidden.
func (e *MinesEngine) ActiveSession(userID int64) (*models.MinesResult, bool) {
	lock := e.playerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.getSession(userID)
	if sess == nil {
		return nil, false
	}

	revealed := len(sess.Revealed)
	return &models.MinesResult{
		GameID:         sess.ID,
		UserID:         sess.UserID,
		Status:         sess.Status,
		Revealed:       append([]int(nil), sess.Revealed...),
		Multiplier:     e.schedule.MultiplierFor(sess.MineCount, revealed),
		NextMultiplier: e.schedule.MultiplierFor(sess.MineCount, revealed+1),
	}, true
}

// RecentResult returns the player's last finished game while it is still
// inside the display window.
func (e *MinesEngine) RecentResult(userID int64) (*models.MinesResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, ok := e.recent[userID]
	return result, ok
}

// ExpireStaleResults withdraws finished-game outcomes whose display window
// has passed. Purely presentational: no wallet effect, and live sessions
// are never touched.
func (e *MinesEngine) ExpireStaleResults(maxAge time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	expired := 0
	for userID, result := range e.recent {
		if time.Since(result.FinishedAt) > maxAge {
			result.Status = models.StatusExpired
			delete(e.recent, userID)
			expired++
		}
	}
	return expired
}

func (e *MinesEngine) recordTransaction(ctx context.Context, userID int64, txType models.TransactionType, amount, balanceAfter int64, gameID, description string) {
	tx := &models.Transaction{
		ID:           models.GenerateTransactionID(),
		UserID:       userID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		GameID:       gameID,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	if err := e.ledger.SaveTransaction(ctx, tx); err != nil {
		e.logger.Error("failed to record transaction", "user_id", userID, "type", txType, "err", err)
	}
}

func (e *MinesEngine) notifyBalance(userID int64, balance int64) {
	if e.broadcaster != nil {
		e.broadcaster.BroadcastBalance(userID, balance)
	}
}
