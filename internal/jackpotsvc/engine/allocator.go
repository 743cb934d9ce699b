package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

// TicketsPerStar is the fixed tickets-per-unit-stake ratio: a bet of N
// whole stars buys a contiguous block of N*10 tickets.
const TicketsPerStar = 10

// MaxBetsPerUser limits how many bets one user may hold in a round.
const MaxBetsPerUser = 3

// reserve appends a bet with the next contiguous ticket range to the round
// and advances its counters. The caller must hold the scheduler lock and is
// responsible for persisting the reservation; on persistence failure it
// must call release with the returned bet.
//
// Nothing is mutated on rejection.
func reserve(r *models.Round, userID int64, amount decimal.Decimal) (models.Bet, error) {
	if r.Status == models.RoundCancelled {
		return models.Bet{}, ErrRoundCancelled
	}
	if r.Status != models.RoundActive {
		return models.Bet{}, ErrRoundClosed
	}
	// stakes are whole stars; prizes may carry cents, bets may not
	if !amount.IsInteger() || amount.LessThan(r.MinBet) {
		return models.Bet{}, ErrBetTooSmall
	}
	if r.BetsByUser(userID) >= MaxBetsPerUser {
		return models.Bet{}, ErrTooManyBets
	}

	tickets := amount.IntPart() * TicketsPerStar
	bet := models.Bet{
		UserID:      userID,
		Amount:      amount,
		TicketStart: r.TotalTickets + 1,
		TicketEnd:   r.TotalTickets + tickets,
		BetTime:     time.Now().UTC(),
	}

	r.Participants = append(r.Participants, bet)
	r.TotalTickets += tickets
	r.TotalPot = r.TotalPot.Add(amount)
	return bet, nil
}

// release undoes the most recent reservation. It only ever runs under the
// same lock as reserve, so the bet to drop is always the last one.
func release(r *models.Round, bet models.Bet) {
	n := len(r.Participants)
	if n == 0 {
		return
	}
	last := r.Participants[n-1]
	if last.UserID != bet.UserID || last.TicketStart != bet.TicketStart {
		return
	}
	r.Participants = r.Participants[:n-1]
	r.TotalTickets -= bet.TicketCount()
	r.TotalPot = r.TotalPot.Sub(bet.Amount)
}
