package models

import "time"

type SessionStatus string

const (
	StatusActive     SessionStatus = "active"
	StatusWonJackpot SessionStatus = "won_jackpot"
	StatusLost       SessionStatus = "lost"
	StatusCashedOut  SessionStatus = "cashed_out"
	StatusCancelled  SessionStatus = "cancelled"
	StatusExpired    SessionStatus = "expired"
)

// Terminal reports whether a session in this status can never transition
// again. Everything except active is terminal.
func (s SessionStatus) Terminal() bool {
	return s != StatusActive
}

// MinesSession is one player's live game. The mine layout stays server-side
// until a terminal transition discloses it.
type MinesSession struct {
	ID        string        `json:"id"`
	UserID    int64         `json:"user_id"`
	Stake     int64         `json:"stake"`
	MineCount int           `json:"mine_count"`
	GridSize  int           `json:"grid_size"`
	Mines     []int         `json:"-"`
	Revealed  []int         `json:"revealed"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SafeCells is the number of reveals required for the jackpot.
func (s *MinesSession) SafeCells() int {
	return s.GridSize*s.GridSize - s.MineCount
}

func (s *MinesSession) IsMine(cell int) bool {
	for _, m := range s.Mines {
		if m == cell {
			return true
		}
	}
	return false
}

func (s *MinesSession) IsRevealed(cell int) bool {
	for _, r := range s.Revealed {
		if r == cell {
			return true
		}
	}
	return false
}

// MinesResult is the structured outcome of a session action. Transport
// renders it; the engine never formats presentation strings.
type MinesResult struct {
	GameID         string        `json:"game_id"`
	UserID         int64         `json:"user_id"`
	Status         SessionStatus `json:"status"`
	Revealed       []int         `json:"revealed"`
	Mines          []int         `json:"mines,omitempty"` // disclosed only on terminal transitions
	Multiplier     float64       `json:"multiplier"`
	NextMultiplier float64       `json:"next_multiplier,omitempty"`
	Payout         int64         `json:"payout"`
	BalanceDelta   int64         `json:"balance_delta"`
	Balance        int64         `json:"balance"`
	FinishedAt     time.Time     `json:"finished_at,omitempty"`
}
