package models

import "time"

type TelegramUser struct {
	ID        int64  `json:"id" redis:"id"`
	FirstName string `json:"first_name" redis:"first_name"`
	LastName  string `json:"last_name,omitempty" redis:"last_name"`
	Username  string `json:"username,omitempty" redis:"username"`
}

// DisplayName is what the ledger stores and the leaderboard shows.
func (u *TelegramUser) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

type UserSession struct {
	ID           int64        `json:"id"`
	SessionID    string       `json:"session_id"`
	TelegramUser TelegramUser `json:"telegram_user"`
	CreatedAt    time.Time    `json:"created_at"`
	LastAccessed time.Time    `json:"last_accessed"`
}
