package services

import (
	"context"

	"mines-miniapp-backend/internal/models"
)

// Ledger is the wallet persistence boundary. The Redis implementation backs
// production; tests run the engine against an in-memory double. All balance
// mutations are atomic at the storage layer: Debit is
// decrement-if-sufficient, Transfer applies both legs or neither.
type Ledger interface {
	GetOrCreateWallet(ctx context.Context, userID int64, name string) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	Balance(ctx context.Context, userID int64) (int64, error)

	// Credit and Debit adjust the balance by a positive amount and return
	// the new balance. Debit fails with ErrInsufficientFunds instead of
	// going negative.
	Credit(ctx context.Context, userID int64, amount int64) (int64, error)
	Debit(ctx context.Context, userID int64, amount int64) (int64, error)

	Transfer(ctx context.Context, fromID, toID int64, amount int64) error
	IssueLoan(ctx context.Context, userID int64, amount int64) (*models.Wallet, error)
	RepayLoan(ctx context.Context, userID int64) (*models.Wallet, error)

	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	SaveGameResult(ctx context.Context, result *models.MinesResult) error
	ListWallets(ctx context.Context) ([]*models.Wallet, error)
}
