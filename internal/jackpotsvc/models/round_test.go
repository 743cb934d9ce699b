package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBetTickets(t *testing.T) {
	b := Bet{UserID: 1, TicketStart: 11, TicketEnd: 30}

	assert.EqualValues(t, 20, b.TicketCount())
	assert.True(t, b.Holds(11))
	assert.True(t, b.Holds(30))
	assert.False(t, b.Holds(10))
	assert.False(t, b.Holds(31))
}

func TestBetsByUser(t *testing.T) {
	r := &Round{Participants: []Bet{
		{UserID: 1}, {UserID: 2}, {UserID: 1}, {UserID: 3},
	}}

	assert.Equal(t, 2, r.BetsByUser(1))
	assert.Equal(t, 1, r.BetsByUser(2))
	assert.Equal(t, 0, r.BetsByUser(9))
}

func TestRoundSnapshot(t *testing.T) {
	end := time.Now().UTC()
	r := &Round{
		RoundNumber:  1,
		Status:       RoundCompleted,
		EndTime:      &end,
		Participants: []Bet{{UserID: 1, TicketStart: 1, TicketEnd: 10}},
		Winner:       &Winner{UserID: 1, Ticket: 4, Prize: decimal.NewFromInt(5)},
	}

	snap := r.Snapshot()

	// mutating the original must not reach the snapshot
	orig := end
	r.Participants[0].UserID = 99
	r.Participants = append(r.Participants, Bet{UserID: 2})
	r.Winner.UserID = 99
	*r.EndTime = end.Add(time.Hour)

	assert.Len(t, snap.Participants, 1)
	assert.EqualValues(t, 1, snap.Participants[0].UserID)
	assert.EqualValues(t, 1, snap.Winner.UserID)
	assert.Equal(t, orig, *snap.EndTime)
}

func TestRoundConfigRoundTrip(t *testing.T) {
	cfg := RoundConfig{
		MaxParticipants: 8,
		MinBet:          decimal.NewFromInt(2),
		FeePercent:      decimal.NewFromInt(7),
	}

	r := &Round{}
	r.ApplyConfig(cfg)
	assert.Equal(t, cfg, r.Config())
}
