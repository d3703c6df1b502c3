package services

import "mines-miniapp-backend/internal/models"

// Broadcaster pushes engine outcomes to whatever chat surface is attached.
// Delivery is best-effort; committed wallet mutations never roll back on a
// failed push.
type Broadcaster interface {
	BroadcastBalance(userID int64, balance int64)
	BroadcastGameResult(result *models.MinesResult)
}
