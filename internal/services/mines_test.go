package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mines-miniapp-backend/internal/config"
	"mines-miniapp-backend/internal/models"
)

// memLedger is an in-memory Ledger for engine tests. Same semantics as the
// Redis implementation: debits are refused rather than going negative.
type memLedger struct {
	mu           sync.Mutex
	wallets      []*models.Wallet
	transactions []*models.Transaction
	results      []*models.MinesResult
	credits      int
	debits       int
	failCredits  bool
}

func newMemLedger() *memLedger {
	return &memLedger{}
}

func (m *memLedger) find(userID int64) *models.Wallet {
	for _, w := range m.wallets {
		if w.UserID == userID {
			return w
		}
	}
	return nil
}

func (m *memLedger) GetOrCreateWallet(_ context.Context, userID int64, name string) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w := m.find(userID); w != nil {
		return w, nil
	}
	w := &models.Wallet{UserID: userID, Name: name, Balance: 1000}
	m.wallets = append(m.wallets, w)
	return w, nil
}

func (m *memLedger) GetWallet(_ context.Context, userID int64) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w := m.find(userID); w != nil {
		return w, nil
	}
	return nil, fmt.Errorf("wallet not found for user %d", userID)
}

func (m *memLedger) Balance(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w := m.find(userID); w != nil {
		return w.Balance, nil
	}
	return 0, fmt.Errorf("wallet not found for user %d", userID)
}

func (m *memLedger) Credit(_ context.Context, userID int64, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCredits {
		return 0, fmt.Errorf("ledger unavailable")
	}
	w := m.find(userID)
	if w == nil {
		return 0, fmt.Errorf("wallet not found for user %d", userID)
	}
	w.Balance += amount
	m.credits++
	return w.Balance, nil
}

func (m *memLedger) Debit(_ context.Context, userID int64, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.find(userID)
	if w == nil {
		return 0, fmt.Errorf("wallet not found for user %d", userID)
	}
	if w.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	w.Balance -= amount
	m.debits++
	return w.Balance, nil
}

func (m *memLedger) Transfer(_ context.Context, fromID, toID int64, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fromID == toID {
		return ErrInvalidTarget
	}
	from, to := m.find(fromID), m.find(toID)
	if from == nil || to == nil {
		return fmt.Errorf("wallet not found")
	}
	if from.Balance < amount {
		return ErrInsufficientFunds
	}
	from.Balance -= amount
	to.Balance += amount
	return nil
}

func (m *memLedger) IssueLoan(_ context.Context, userID int64, amount int64) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.find(userID)
	if w == nil {
		return nil, fmt.Errorf("wallet not found")
	}
	if w.Loan > 0 {
		return nil, ErrLoanAlreadyActive
	}
	w.Balance += amount
	w.Loan = models.LoanRepayment(amount, 0.10)
	return w, nil
}

func (m *memLedger) RepayLoan(_ context.Context, userID int64) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.find(userID)
	if w == nil {
		return nil, fmt.Errorf("wallet not found")
	}
	if w.Loan <= 0 {
		return nil, ErrNoLoanActive
	}
	if w.Balance < w.Loan {
		return nil, ErrInsufficientFunds
	}
	w.Balance -= w.Loan
	w.Loan = 0
	return w, nil
}

func (m *memLedger) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, tx)
	return nil
}

func (m *memLedger) SaveGameResult(_ context.Context, result *models.MinesResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func (m *memLedger) ListWallets(_ context.Context) ([]*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Wallet(nil), m.wallets...), nil
}

func (m *memLedger) setFailCredits(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCredits = fail
}

func (m *memLedger) creditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credits
}

func (m *memLedger) debitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debits
}

func testEngine(t *testing.T) (*MinesEngine, *memLedger) {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)

	ledger := newMemLedger()
	engine := NewMinesEngine(cfg, ledger, log.New(io.Discard))
	return engine, ledger
}

// mineAndSafeCells digs the hidden layout out of the live session so tests
// can steer the game deterministically.
func mineAndSafeCells(t *testing.T, e *MinesEngine, userID int64) (mines, safe []int) {
	t.Helper()

	sess := e.getSession(userID)
	require.NotNil(t, sess)

	for cell := 0; cell < sess.GridSize*sess.GridSize; cell++ {
		if sess.IsMine(cell) {
			mines = append(mines, cell)
		} else {
			safe = append(safe, cell)
		}
	}
	return mines, safe
}

func TestStartEscrowsStakeOnce(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(100)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "alice")
	require.NoError(t, err)

	result, err := engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, result.Status)
	assert.Equal(t, int64(-100), result.BalanceDelta)
	assert.Equal(t, int64(900), result.Balance)
	assert.Equal(t, 1.10, result.NextMultiplier)

	// A second start must not debit again.
	_, err = engine.Start(ctx, userID, 100, 3)
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)

	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
	assert.Equal(t, 1, ledger.debitCount())
}

func TestStartValidation(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(101)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "bob")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 5, 3)
	assert.ErrorIs(t, err, ErrInvalidBet)

	_, err = engine.Start(ctx, userID, 100, 16)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = engine.Start(ctx, userID, 100, 0)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = engine.Start(ctx, userID, 5000, 3)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing was debited by any rejected start.
	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestRevealMineLosesStake(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(102)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "carol")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	mines, _ := mineAndSafeCells(t, engine, userID)

	result, err := engine.Reveal(ctx, userID, userID, mines[0])
	require.NoError(t, err)
	assert.Equal(t, models.StatusLost, result.Status)
	assert.Equal(t, int64(0), result.Payout)
	assert.Len(t, result.Mines, 3, "full board disclosed on loss")

	// Stake forfeited, no credit issued.
	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
	assert.Equal(t, 0, ledger.creditCount())

	// Session destroyed.
	_, err = engine.Reveal(ctx, userID, userID, 0)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestRevealAllSafeCellsWinsJackpot(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(103)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "dave")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	_, safe := mineAndSafeCells(t, engine, userID)
	require.Len(t, safe, 13)

	var result *models.MinesResult
	for _, cell := range safe {
		result, err = engine.Reveal(ctx, userID, userID, cell)
		require.NoError(t, err)
	}

	require.Equal(t, models.StatusWonJackpot, result.Status)
	assert.Equal(t, 15.0, result.Multiplier)
	assert.Equal(t, int64(1500), result.Payout)

	// 1000 - 100 stake + 1500 jackpot.
	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2400), balance)
	assert.Equal(t, 1, ledger.creditCount())
}

func TestRevealRejections(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(104)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "erin")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	_, safe := mineAndSafeCells(t, engine, userID)

	_, err = engine.Reveal(ctx, userID, userID, -1)
	assert.ErrorIs(t, err, ErrCellOutOfRange)

	_, err = engine.Reveal(ctx, userID, userID, 16)
	assert.ErrorIs(t, err, ErrCellOutOfRange)

	_, err = engine.Reveal(ctx, userID, userID, safe[0])
	require.NoError(t, err)
	_, err = engine.Reveal(ctx, userID, userID, safe[0])
	assert.ErrorIs(t, err, ErrCellAlreadyRevealed)
}

func TestNonOwnerActionsRejected(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	owner := int64(105)
	intruder := int64(106)

	_, err := ledger.GetOrCreateWallet(ctx, owner, "frank")
	require.NoError(t, err)

	_, err = engine.Start(ctx, owner, 100, 3)
	require.NoError(t, err)

	_, safe := mineAndSafeCells(t, engine, owner)

	_, err = engine.Reveal(ctx, intruder, owner, safe[0])
	assert.ErrorIs(t, err, ErrNotYourGame)
	_, err = engine.CashOut(ctx, intruder, owner)
	assert.ErrorIs(t, err, ErrNotYourGame)
	_, err = engine.Cancel(ctx, intruder, owner)
	assert.ErrorIs(t, err, ErrNotYourGame)

	// Neither the session nor the wallet moved.
	sess := engine.getSession(owner)
	require.NotNil(t, sess)
	assert.Empty(t, sess.Revealed)

	balance, err := ledger.Balance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
}

func TestCashOutRequiresReveal(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(107)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "grace")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	_, err = engine.CashOut(ctx, userID, userID)
	assert.ErrorIs(t, err, ErrNoRevealsYet)

	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance, "no settlement before any reveal")
}

func TestCashOutSettlesOnce(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(108)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "heidi")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	_, safe := mineAndSafeCells(t, engine, userID)
	for _, cell := range safe[:2] {
		_, err = engine.Reveal(ctx, userID, userID, cell)
		require.NoError(t, err)
	}

	result, err := engine.CashOut(ctx, userID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCashedOut, result.Status)
	assert.Equal(t, 1.25, result.Multiplier)
	assert.Equal(t, int64(125), result.Payout)

	// 1000 - 100 + 125.
	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1025), balance)

	// The session is gone; a second cashout cannot settle again.
	_, err = engine.CashOut(ctx, userID, userID)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Equal(t, 1, ledger.creditCount())
}

func TestCancelRefundsUntouchedBoard(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(109)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "ivan")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	result, err := engine.Cancel(ctx, userID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, result.Status)
	assert.Equal(t, int64(100), result.Payout)

	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestCancelForfeitsAfterReveal(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(110)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "judy")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	_, safe := mineAndSafeCells(t, engine, userID)
	_, err = engine.Reveal(ctx, userID, userID, safe[0])
	require.NoError(t, err)

	result, err := engine.Cancel(ctx, userID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, result.Status)
	assert.Equal(t, int64(0), result.Payout)

	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
}

func TestSettlementFailureKeepsSessionAlive(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(111)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "mallory")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	_, safe := mineAndSafeCells(t, engine, userID)
	_, err = engine.Reveal(ctx, userID, userID, safe[0])
	require.NoError(t, err)

	ledger.setFailCredits(true)
	_, err = engine.CashOut(ctx, userID, userID)
	require.Error(t, err)

	// The won game must not vanish without payout: the session survives
	// and the retry settles normally.
	require.NotNil(t, engine.getSession(userID))

	ledger.setFailCredits(false)
	result, err := engine.CashOut(ctx, userID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCashedOut, result.Status)
	assert.Equal(t, 1, ledger.creditCount())
}

func TestConcurrentStartDebitsOnce(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(112)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "nick")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Start(ctx, userID, 100, 3)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrSessionAlreadyActive)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, ledger.debitCount())

	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
}

func TestConcurrentRevealAndCashOutSettleOnce(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(113)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "olivia")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	_, safe := mineAndSafeCells(t, engine, userID)
	_, err = engine.Reveal(ctx, userID, userID, safe[0])
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		engine.Reveal(ctx, userID, userID, safe[1])
	}()
	go func() {
		defer wg.Done()
		engine.CashOut(ctx, userID, userID)
	}()
	wg.Wait()

	// Whatever the interleaving, exactly one terminal settlement happened
	// and the session is gone.
	assert.Equal(t, 1, ledger.creditCount())
	assert.Nil(t, engine.getSession(userID))
}

func TestUnknownTierFallsBackToDefault(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(114)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "peggy")
	require.NoError(t, err)

	// 7 mines has no configured ladder; the default tier prices it.
	result, err := engine.Start(ctx, userID, 100, 7)
	require.NoError(t, err)
	assert.Equal(t, 1.10, result.NextMultiplier)
}

func TestRecentResultExpires(t *testing.T) {
	engine, ledger := testEngine(t)
	ctx := context.Background()
	userID := int64(115)

	_, err := ledger.GetOrCreateWallet(ctx, userID, "quinn")
	require.NoError(t, err)

	_, err = engine.Start(ctx, userID, 100, 3)
	require.NoError(t, err)

	mines, _ := mineAndSafeCells(t, engine, userID)
	_, err = engine.Reveal(ctx, userID, userID, mines[0])
	require.NoError(t, err)

	recent, ok := engine.RecentResult(userID)
	require.True(t, ok)
	assert.Equal(t, models.StatusLost, recent.Status)

	time.Sleep(10 * time.Millisecond)
	expired := engine.ExpireStaleResults(time.Millisecond)
	assert.Equal(t, 1, expired)

	_, ok = engine.RecentResult(userID)
	assert.False(t, ok)
}
