package services

import "errors"

// Sentinel errors for the game and wallet flows. Handlers map these onto
// HTTP statuses with errors.Is; services wrap them with context via %w.
var (
	// Validation — rejected before any mutation.
	ErrInvalidBet           = errors.New("invalid bet")
	ErrInvalidConfiguration = errors.New("invalid board configuration")
	ErrCellOutOfRange       = errors.New("cell out of range")
	ErrUnknownTier          = errors.New("unknown difficulty tier")

	// State conflicts — no mutation, caller may retry with corrected input.
	ErrSessionAlreadyActive = errors.New("session already active")
	ErrNoActiveSession      = errors.New("no active session")
	ErrCellAlreadyRevealed  = errors.New("cell already revealed")
	ErrNotYourGame          = errors.New("not your game")
	ErrNoRevealsYet         = errors.New("no cells revealed yet")

	// Business rules.
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTarget     = errors.New("invalid transfer target")
	ErrLoanAlreadyActive = errors.New("loan already active")
	ErrNoLoanActive      = errors.New("no loan active")
	ErrLoanLimitExceeded = errors.New("loan limit exceeded")
	ErrItemNotFound      = errors.New("item not found")
	ErrItemAlreadyOwned  = errors.New("item already owned")
)
