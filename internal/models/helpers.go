package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func GenerateGameID() string {
	return fmt.Sprintf("game_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// CalculatePayout converts stake x multiplier into integer currency units,
// truncating toward zero so the house never overpays on rounding.
func CalculatePayout(stake int64, multiplier float64) int64 {
	return decimal.NewFromInt(stake).
		Mul(decimal.NewFromFloat(multiplier)).
		IntPart()
}

// LoanRepayment is the amount owed for a loan of the given size.
func LoanRepayment(amount int64, interest float64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(1 + interest)).
		IntPart()
}
