package comm

import (
	"encoding/json"
	"time"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "init", "place_bet"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
}

type ServiceShutdown struct {
	ID string `json:"id"` // service id
}

type PlayerData struct {
	Name    string `json:"name"`
	UserId  int64  `json:"user_id"`
	Balance string `json:"balance"`
}

// RoundData is the live round state the clients render.
type RoundData struct {
	Round *models.Round `json:"round"`
}

// BetData announces a newly placed bet on the live round.
type BetData struct {
	RoundNumber int64      `json:"round_number"`
	Bet         models.Bet `json:"bet"`
	TotalPot    string     `json:"total_pot"`
}

// RoundResult announces a finished round. The round-opened event that
// follows carries its replacement.
type RoundResult struct {
	Completed *models.Round `json:"completed"`
}
