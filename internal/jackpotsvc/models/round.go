package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RoundStatus string

const (
	RoundPending   RoundStatus = "pending"
	RoundActive    RoundStatus = "active"
	RoundDrawing   RoundStatus = "drawing" // frozen for the draw, no new bets
	RoundCompleted RoundStatus = "completed"
	RoundCancelled RoundStatus = "cancelled"
)

// RoundConfig is fixed at round creation and copied into the next round
// when the current one settles.
type RoundConfig struct {
	MaxParticipants int             `json:"max_participants"`
	MinBet          decimal.Decimal `json:"min_bet"`
	FeePercent      decimal.Decimal `json:"fee_percent"`
}

// Bet is one user's stake in one round. Ticket numbers are 1-based and
// inclusive on both ends.
type Bet struct {
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	TicketStart int64           `json:"ticket_start"`
	TicketEnd   int64           `json:"ticket_end"`
	BetTime     time.Time       `json:"bet_time"`
}

func (b Bet) TicketCount() int64 {
	return b.TicketEnd - b.TicketStart + 1
}

func (b Bet) Holds(ticket int64) bool {
	return ticket >= b.TicketStart && ticket <= b.TicketEnd
}

type Winner struct {
	UserID int64           `json:"user_id"`
	Ticket int64           `json:"ticket"`
	Prize  decimal.Decimal `json:"prize"`
}

// Round is the unit of play. Participants keep arrival order, which is
// what makes ticket ranges contiguous.
type Round struct {
	RoundNumber      int64       `json:"round_number"`
	Status           RoundStatus `json:"status"`
	StartTime        time.Time   `json:"start_time"`
	EndTime          *time.Time  `json:"end_time,omitempty"`
	Participants     []Bet       `json:"participants"`
	MaxParticipants  int         `json:"max_participants"`
	MinBet           decimal.Decimal `json:"min_bet"`
	FeePercent       decimal.Decimal `json:"fee_percent"`
	TotalPot         decimal.Decimal `json:"total_pot"`
	TotalTickets     int64           `json:"total_tickets"`
	Winner           *Winner         `json:"winner,omitempty"`
	WinningTicket    int64           `json:"winning_ticket,omitempty"`
	VerificationHash string          `json:"verification_hash,omitempty"`
	DrawProof        string          `json:"draw_proof,omitempty"`
}

func (r *Round) Config() RoundConfig {
	return RoundConfig{
		MaxParticipants: r.MaxParticipants,
		MinBet:          r.MinBet,
		FeePercent:      r.FeePercent,
	}
}

func (r *Round) ApplyConfig(cfg RoundConfig) {
	r.MaxParticipants = cfg.MaxParticipants
	r.MinBet = cfg.MinBet
	r.FeePercent = cfg.FeePercent
}

// BetsByUser counts how many bets a user holds in this round.
func (r *Round) BetsByUser(userID int64) int {
	n := 0
	for _, b := range r.Participants {
		if b.UserID == userID {
			n++
		}
	}
	return n
}

// Snapshot returns a deep copy safe to hand out while the original keeps
// being mutated behind the scheduler lock.
func (r *Round) Snapshot() *Round {
	cp := *r
	cp.Participants = append([]Bet(nil), r.Participants...)
	if r.EndTime != nil {
		t := *r.EndTime
		cp.EndTime = &t
	}
	if r.Winner != nil {
		w := *r.Winner
		cp.Winner = &w
	}
	return &cp
}
