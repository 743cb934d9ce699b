package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

func testConfig() models.RoundConfig {
	return models.RoundConfig{
		MaxParticipants: 5,
		MinBet:          decimal.NewFromInt(1),
		FeePercent:      decimal.NewFromInt(5),
	}
}

func TestReserve(t *testing.T) {
	t.Run("contiguous ranges in arrival order", func(t *testing.T) {
		r := NewRound(1, testConfig())

		b1, err := reserve(r, 10, decimal.NewFromInt(1))
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if b1.TicketStart != 1 || b1.TicketEnd != 10 {
			t.Fatalf("first bet got [%d,%d], want [1,10]", b1.TicketStart, b1.TicketEnd)
		}

		b2, err := reserve(r, 11, decimal.NewFromInt(3))
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if b2.TicketStart != 11 || b2.TicketEnd != 40 {
			t.Fatalf("second bet got [%d,%d], want [11,40]", b2.TicketStart, b2.TicketEnd)
		}

		if r.TotalTickets != 40 {
			t.Fatalf("total tickets = %d, want 40", r.TotalTickets)
		}
		if !r.TotalPot.Equal(decimal.NewFromInt(4)) {
			t.Fatalf("total pot = %s, want 4", r.TotalPot)
		}
	})

	t.Run("below minimum rejected", func(t *testing.T) {
		r := NewRound(1, testConfig())
		r.MinBet = decimal.NewFromInt(2)
		if _, err := reserve(r, 10, decimal.NewFromInt(1)); !errors.Is(err, ErrBetTooSmall) {
			t.Fatalf("expected ErrBetTooSmall, got %v", err)
		}
		if len(r.Participants) != 0 || r.TotalTickets != 0 {
			t.Fatal("rejected bet mutated the round")
		}
	})

	t.Run("fractional stake rejected", func(t *testing.T) {
		r := NewRound(1, testConfig())
		half, _ := decimal.NewFromString("1.5")
		if _, err := reserve(r, 10, half); !errors.Is(err, ErrBetTooSmall) {
			t.Fatalf("expected ErrBetTooSmall, got %v", err)
		}
	})

	t.Run("per user bet cap", func(t *testing.T) {
		r := NewRound(1, testConfig())
		r.MaxParticipants = 10
		one := decimal.NewFromInt(1)
		for i := 0; i < MaxBetsPerUser; i++ {
			if _, err := reserve(r, 7, one); err != nil {
				t.Fatalf("bet %d: %v", i+1, err)
			}
		}
		if _, err := reserve(r, 7, one); !errors.Is(err, ErrTooManyBets) {
			t.Fatalf("expected ErrTooManyBets, got %v", err)
		}
		// another user is unaffected
		if _, err := reserve(r, 8, one); err != nil {
			t.Fatalf("other user rejected: %v", err)
		}
	})

	t.Run("closed round rejected", func(t *testing.T) {
		r := NewRound(1, testConfig())
		r.Status = models.RoundDrawing
		if _, err := reserve(r, 10, decimal.NewFromInt(1)); !errors.Is(err, ErrRoundClosed) {
			t.Fatalf("expected ErrRoundClosed, got %v", err)
		}
	})

	t.Run("cancelled round rejected", func(t *testing.T) {
		r := NewRound(1, testConfig())
		r.Status = models.RoundCancelled
		if _, err := reserve(r, 10, decimal.NewFromInt(1)); !errors.Is(err, ErrRoundCancelled) {
			t.Fatalf("expected ErrRoundCancelled, got %v", err)
		}
	})
}

func TestRelease(t *testing.T) {
	r := NewRound(1, testConfig())
	one := decimal.NewFromInt(1)

	reserve(r, 1, one)
	bet, _ := reserve(r, 2, decimal.NewFromInt(2))

	release(r, bet)

	if len(r.Participants) != 1 {
		t.Fatalf("participants = %d, want 1", len(r.Participants))
	}
	if r.TotalTickets != 10 {
		t.Fatalf("total tickets = %d, want 10", r.TotalTickets)
	}
	if !r.TotalPot.Equal(one) {
		t.Fatalf("total pot = %s, want 1", r.TotalPot)
	}

	// the freed range is handed to the next bet
	b3, err := reserve(r, 3, one)
	if err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
	if b3.TicketStart != 11 || b3.TicketEnd != 20 {
		t.Fatalf("reused range [%d,%d], want [11,20]", b3.TicketStart, b3.TicketEnd)
	}
}
