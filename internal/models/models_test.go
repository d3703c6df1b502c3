package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePayout(t *testing.T) {
	tests := []struct {
		stake      int64
		multiplier float64
		want       int64
	}{
		{100, 1.25, 125},
		{100, 15.0, 1500},
		{33, 1.10, 36},  // 36.3 truncates down
		{10, 1.01, 10},  // 10.1 truncates down
		{0, 2.0, 0},
		{1000, 80.0, 80000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculatePayout(tt.stake, tt.multiplier),
			"stake %d at %.2fx", tt.stake, tt.multiplier)
	}
}

func TestLoanRepayment(t *testing.T) {
	assert.Equal(t, int64(1100), LoanRepayment(1000, 0.10))
	assert.Equal(t, int64(36), LoanRepayment(33, 0.10)) // 36.3 truncates down
	assert.Equal(t, int64(500), LoanRepayment(500, 0))
}

func TestGenerateIDsAreUniqueAndPrefixed(t *testing.T) {
	gameID := GenerateGameID()
	txID := GenerateTransactionID()

	assert.True(t, strings.HasPrefix(gameID, "game_"))
	assert.True(t, strings.HasPrefix(txID, "tx_"))
	assert.NotEqual(t, GenerateGameID(), gameID)
	assert.NotEqual(t, GenerateTransactionID(), txID)
}

func TestSessionBoardHelpers(t *testing.T) {
	sess := &MinesSession{
		GridSize:  4,
		MineCount: 3,
		Mines:     []int{2, 7, 11},
		Revealed:  []int{0, 5},
	}

	assert.Equal(t, 13, sess.SafeCells())

	assert.True(t, sess.IsMine(7))
	assert.False(t, sess.IsMine(0))

	assert.True(t, sess.IsRevealed(5))
	assert.False(t, sess.IsRevealed(7))
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.False(t, StatusActive.Terminal())

	for _, status := range []SessionStatus{
		StatusWonJackpot, StatusLost, StatusCashedOut, StatusCancelled, StatusExpired,
	} {
		assert.True(t, status.Terminal(), "status %s", status)
	}
}

func TestWalletHasTitle(t *testing.T) {
	wallet := &Wallet{Titles: []string{"VIP Player"}}

	assert.True(t, wallet.HasTitle("VIP Player"))
	assert.False(t, wallet.HasTitle("God Mode"))

	require.False(t, (&Wallet{}).HasTitle("VIP Player"))
}
