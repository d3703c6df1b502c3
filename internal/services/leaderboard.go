package services

import (
	"context"
	"sort"

	"mines-miniapp-backend/internal/models"
)

// LeaderboardService ranks players by net worth: cash balance plus holdings
// valued at the oracle's current prices. It reads the ledger and never
// mutates it.
type LeaderboardService struct {
	ledger Ledger
	oracle PriceOracle
}

func NewLeaderboardService(ledger Ledger, oracle PriceOracle) *LeaderboardService {
	return &LeaderboardService{ledger: ledger, oracle: oracle}
}

func (s *LeaderboardService) NetWorth(wallet *models.Wallet) int64 {
	worth := wallet.Balance
	for symbol, quantity := range wallet.Holdings {
		worth += quantity * s.oracle.Price(symbol)
	}
	return worth
}

// TopPlayers returns up to limit entries sorted descending by net worth.
// Ties keep the ledger's enumeration order.
func (s *LeaderboardService) TopPlayers(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	wallets, err := s.ledger.ListWallets(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.LeaderboardEntry, 0, len(wallets))
	for _, wallet := range wallets {
		entries = append(entries, &models.LeaderboardEntry{
			UserID:   wallet.UserID,
			Name:     wallet.Name,
			Balance:  wallet.Balance,
			NetWorth: s.NetWorth(wallet),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].NetWorth > entries[j].NetWorth
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i, entry := range entries {
		entry.Rank = i + 1
	}

	return entries, nil
}
