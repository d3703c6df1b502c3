package models

// Request/response shapes for the HTTP boundary. Gin binding tags carry the
// cheap validation; business rules live in the services.

type StartRequest struct {
	Stake     int64 `json:"stake" binding:"required,min=1"`
	MineCount int   `json:"mine_count" binding:"required,min=1"`
}

// OwnerID names the session's owner when an action arrives on someone
// else's game surface (shared chat). Zero means "my own game".
type RevealRequest struct {
	Cell    int   `json:"cell" binding:"min=0"`
	OwnerID int64 `json:"owner_id,omitempty"`
}

type SessionActionRequest struct {
	OwnerID int64 `json:"owner_id,omitempty"`
}

type TransferRequest struct {
	ToID   int64 `json:"to_id" binding:"required"`
	Amount int64 `json:"amount" binding:"required,min=1"`
}

type LoanRequest struct {
	Amount int64 `json:"amount" binding:"required,min=1"`
}

type BuyItemRequest struct {
	Item string `json:"item" binding:"required"`
}
