package models

import "time"

// Wallet is the persistent per-player record. Balances are integer currency
// units and never go negative; Loan is the outstanding repayment amount
// (at most one loan active at a time). Holdings are externally priced
// positions consumed read-only by the leaderboard.
type Wallet struct {
	UserID int64  `json:"user_id" redis:"user_id"`
	Name   string `json:"name" redis:"name"`

	Balance int64 `json:"balance" redis:"balance"`
	Loan    int64 `json:"loan" redis:"loan"`

	Holdings map[string]int64 `json:"holdings,omitempty" redis:"holdings"`
	Titles   []string         `json:"titles,omitempty" redis:"titles"`

	TotalWagered int64 `json:"total_wagered" redis:"total_wagered"`
	TotalWon     int64 `json:"total_won" redis:"total_won"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt time.Time `json:"updated_at" redis:"updated_at"`
}

func (w *Wallet) HasTitle(name string) bool {
	for _, t := range w.Titles {
		if t == name {
			return true
		}
	}
	return false
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
	Loan    int64 `json:"loan"`
}

// LeaderboardEntry is one row of the net-worth ranking.
type LeaderboardEntry struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Balance  int64  `json:"balance"`
	NetWorth int64  `json:"net_worth"`
	Rank     int    `json:"rank"`
}
