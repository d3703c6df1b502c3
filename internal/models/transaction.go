package models

import "time"

type TransactionType string

const (
	TransactionTypeBet         TransactionType = "bet"
	TransactionTypeWin         TransactionType = "win"
	TransactionTypeRefund      TransactionType = "refund"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeLoan        TransactionType = "loan"
	TransactionTypeRepayment   TransactionType = "loan_repayment"
	TransactionTypePurchase    TransactionType = "purchase"
)

type Transaction struct {
	ID           string          `json:"id" redis:"id"`
	UserID       int64           `json:"user_id" redis:"user_id"`
	Type         TransactionType `json:"type" redis:"type"`
	Amount       int64           `json:"amount" redis:"amount"`
	BalanceAfter int64           `json:"balance_after" redis:"balance_after"`
	GameID       string          `json:"game_id,omitempty" redis:"game_id"`
	Description  string          `json:"description" redis:"description"`
	CreatedAt    time.Time       `json:"created_at" redis:"created_at"`
}
