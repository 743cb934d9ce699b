package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

// eventLog records every notification the scheduler emits.
type eventLog struct {
	mu        sync.Mutex
	bets      int
	completed []*models.Round
	opened    []*models.Round
}

func (e *eventLog) BetPlaced(round *models.Round, bet models.Bet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bets++
}

func (e *eventLog) RoundCompleted(round *models.Round) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, round)
}

func (e *eventLog) RoundOpened(round *models.Round) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened = append(e.opened, round)
}

func newTestScheduler(ledger Ledger, values ...int64) (*Scheduler, *eventLog) {
	s := NewScheduler(ledger, NewStaticSource(values...), testConfig())
	ev := &eventLog{}
	s.SetEvents(ev)
	return s, ev
}

func TestSchedulerFullRound(t *testing.T) {
	ledger := NewMemoryLedger()
	ten := decimal.NewFromInt(10)
	for userID := int64(1); userID <= 5; userID++ {
		ledger.Credit(userID, ten)
	}

	s, ev := newTestScheduler(ledger, 15)
	ctx := context.Background()
	one := decimal.NewFromInt(1)

	wantRanges := [][2]int64{{1, 10}, {11, 20}, {21, 30}, {31, 40}, {41, 60}}
	for userID := int64(1); userID <= 5; userID++ {
		amount := one
		if userID == 5 {
			amount = decimal.NewFromInt(2)
		}
		receipt, err := s.PlaceBet(ctx, userID, amount)
		if err != nil {
			t.Fatalf("bet by user %d: %v", userID, err)
		}
		want := wantRanges[userID-1]
		if receipt.TicketStart != want[0] || receipt.TicketEnd != want[1] {
			t.Fatalf("user %d got range [%d,%d], want [%d,%d]",
				userID, receipt.TicketStart, receipt.TicketEnd, want[0], want[1])
		}
	}

	completed := ledger.Round(1)
	if completed == nil || completed.Status != models.RoundCompleted {
		t.Fatalf("round 1 not completed: %+v", completed)
	}
	if completed.WinningTicket != 15 {
		t.Fatalf("winning ticket = %d, want 15", completed.WinningTicket)
	}
	if completed.Winner.UserID != 2 {
		t.Fatalf("ticket 15 belongs to user 2, winner = %d", completed.Winner.UserID)
	}

	prize, _ := decimal.NewFromString("5.70")
	if !completed.Winner.Prize.Equal(prize) {
		t.Fatalf("prize = %s, want 5.70", completed.Winner.Prize)
	}

	// 10 staked 1, won 5.70
	wantBal, _ := decimal.NewFromString("14.70")
	if got := ledger.Balance(2); !got.Equal(wantBal) {
		t.Fatalf("winner balance = %s, want %s", got, wantBal)
	}
	if got := ledger.Balance(1); !got.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("loser balance = %s, want 9", ledger.Balance(1))
	}

	next, err := s.ActiveRound(ctx)
	if err != nil {
		t.Fatalf("ActiveRound: %v", err)
	}
	if next.RoundNumber != 2 || next.Status != models.RoundActive || len(next.Participants) != 0 {
		t.Fatalf("next round = %+v, want fresh round 2", next)
	}

	if ev.bets != 5 || len(ev.completed) != 1 || len(ev.opened) != 1 {
		t.Fatalf("events: %d bets, %d completed, %d opened", ev.bets, len(ev.completed), len(ev.opened))
	}
	if ledger.SettleCount() != 1 {
		t.Fatalf("settled %d times, want 1", ledger.SettleCount())
	}
}

func TestSchedulerPlaceBetRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient funds leaves no trace", func(t *testing.T) {
		ledger := NewMemoryLedger()
		s, _ := newTestScheduler(ledger, 1)

		_, err := s.PlaceBet(ctx, 1, decimal.NewFromInt(1))
		if !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}

		r, _ := s.ActiveRound(ctx)
		if len(r.Participants) != 0 || r.TotalTickets != 0 || !r.TotalPot.IsZero() {
			t.Fatalf("failed bet mutated the round: %+v", r)
		}
		if !ledger.Balance(1).IsZero() {
			t.Fatalf("failed bet touched the balance: %s", ledger.Balance(1))
		}
		if len(ledger.Transactions()) != 0 {
			t.Fatal("failed bet left a ledger record")
		}
	})

	t.Run("fourth bet by one user", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Credit(1, decimal.NewFromInt(100))
		s, _ := newTestScheduler(ledger, 1)
		big := 10
		if _, err := s.AdjustConfig(ctx, ConfigPatch{MaxParticipants: &big}); err != nil {
			t.Fatalf("AdjustConfig: %v", err)
		}

		one := decimal.NewFromInt(1)
		for i := 0; i < MaxBetsPerUser; i++ {
			if _, err := s.PlaceBet(ctx, 1, one); err != nil {
				t.Fatalf("bet %d: %v", i+1, err)
			}
		}
		if _, err := s.PlaceBet(ctx, 1, one); !errors.Is(err, ErrTooManyBets) {
			t.Fatalf("expected ErrTooManyBets, got %v", err)
		}
	})
}

func TestSchedulerConcurrentBets(t *testing.T) {
	ledger := NewMemoryLedger()
	s, _ := newTestScheduler(ledger, 1)
	ctx := context.Background()

	big := 100
	if _, err := s.AdjustConfig(ctx, ConfigPatch{MaxParticipants: &big}); err != nil {
		t.Fatalf("AdjustConfig: %v", err)
	}

	const bettors = 16
	var wg sync.WaitGroup
	errs := make(chan error, bettors)
	for userID := int64(1); userID <= bettors; userID++ {
		ledger.Credit(userID, decimal.NewFromInt(10))
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			// stakes 1..4 so ranges differ in size
			if _, err := s.PlaceBet(ctx, id, decimal.NewFromInt(id%4+1)); err != nil {
				errs <- fmt.Errorf("user %d: %w", id, err)
			}
		}(userID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	r, err := s.ActiveRound(ctx)
	if err != nil {
		t.Fatalf("ActiveRound: %v", err)
	}
	if len(r.Participants) != bettors {
		t.Fatalf("participants = %d, want %d", len(r.Participants), bettors)
	}

	// every ticket from 1 to TotalTickets is held by exactly one bet
	sorted := append([]models.Bet(nil), r.Participants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TicketStart < sorted[j].TicketStart })
	var cursor int64 = 0
	for _, b := range sorted {
		if b.TicketStart != cursor+1 {
			t.Fatalf("gap or overlap before ticket %d (previous end %d)", b.TicketStart, cursor)
		}
		cursor = b.TicketEnd
	}
	if cursor != r.TotalTickets {
		t.Fatalf("coverage ends at %d, total tickets %d", cursor, r.TotalTickets)
	}
}

func TestSchedulerCancelRound(t *testing.T) {
	ledger := NewMemoryLedger()
	ledger.Credit(1, decimal.NewFromInt(10))
	ledger.Credit(2, decimal.NewFromInt(10))
	s, ev := newTestScheduler(ledger, 1)
	ctx := context.Background()

	if _, err := s.PlaceBet(ctx, 1, decimal.NewFromInt(2)); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if _, err := s.PlaceBet(ctx, 2, decimal.NewFromInt(3)); err != nil {
		t.Fatalf("bet: %v", err)
	}

	cancelled, err := s.CancelRound(ctx)
	if err != nil {
		t.Fatalf("CancelRound: %v", err)
	}
	if cancelled.Status != models.RoundCancelled || cancelled.EndTime == nil {
		t.Fatalf("cancelled round = %+v", cancelled)
	}

	ten := decimal.NewFromInt(10)
	if !ledger.Balance(1).Equal(ten) || !ledger.Balance(2).Equal(ten) {
		t.Fatalf("refunds incomplete: %s, %s", ledger.Balance(1), ledger.Balance(2))
	}

	next, _ := s.ActiveRound(ctx)
	if next.RoundNumber != cancelled.RoundNumber+1 || next.Status != models.RoundActive {
		t.Fatalf("next round = %+v", next)
	}
	if len(ev.opened) != 1 {
		t.Fatalf("opened events = %d, want 1", len(ev.opened))
	}

	// nothing left to cancel
	if _, err := s.CancelRound(ctx); err == nil {
		t.Fatal("second cancel should fail")
	} else if !errors.Is(err, ErrRoundClosed) {
		t.Fatalf("expected ErrRoundClosed, got %v", err)
	}
}

func TestSchedulerAdjustConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("empty round applies immediately", func(t *testing.T) {
		ledger := NewMemoryLedger()
		s, _ := newTestScheduler(ledger, 1)

		minBet := decimal.NewFromInt(5)
		applied, err := s.AdjustConfig(ctx, ConfigPatch{MinBet: &minBet})
		if err != nil {
			t.Fatalf("AdjustConfig: %v", err)
		}
		if !applied {
			t.Fatal("change on an empty round should apply immediately")
		}

		r, _ := s.ActiveRound(ctx)
		if !r.MinBet.Equal(minBet) {
			t.Fatalf("min bet = %s, want 5", r.MinBet)
		}
	})

	t.Run("round with bets stages for the next", func(t *testing.T) {
		ledger := NewMemoryLedger()
		for userID := int64(1); userID <= 5; userID++ {
			ledger.Credit(userID, decimal.NewFromInt(10))
		}
		s, _ := newTestScheduler(ledger, 3)

		if _, err := s.PlaceBet(ctx, 1, decimal.NewFromInt(1)); err != nil {
			t.Fatalf("bet: %v", err)
		}

		fee := decimal.NewFromInt(10)
		applied, err := s.AdjustConfig(ctx, ConfigPatch{FeePercent: &fee})
		if err != nil {
			t.Fatalf("AdjustConfig: %v", err)
		}
		if applied {
			t.Fatal("change on a round with bets should be staged")
		}

		r, _ := s.ActiveRound(ctx)
		if !r.FeePercent.Equal(decimal.NewFromInt(5)) {
			t.Fatalf("active round fee changed to %s", r.FeePercent)
		}

		// fill the round; the staged fee lands on the next one
		for userID := int64(2); userID <= 5; userID++ {
			if _, err := s.PlaceBet(ctx, userID, decimal.NewFromInt(1)); err != nil {
				t.Fatalf("bet by user %d: %v", userID, err)
			}
		}

		next, _ := s.ActiveRound(ctx)
		if next.RoundNumber != 2 {
			t.Fatalf("round = %d, want 2", next.RoundNumber)
		}
		if !next.FeePercent.Equal(fee) {
			t.Fatalf("next round fee = %s, want 10", next.FeePercent)
		}
	})
}

func TestSchedulerResume(t *testing.T) {
	ctx := context.Background()

	t.Run("finishes a round frozen mid draw", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Credit(1, decimal.NewFromInt(10))
		ledger.Credit(2, decimal.NewFromInt(10))
		frozen := frozenRound(t, ledger, map[int64]int64{1: 1, 2: 1})
		if err := ledger.MarkDrawing(ctx, frozen.RoundNumber); err != nil {
			t.Fatalf("MarkDrawing: %v", err)
		}

		s, ev := newTestScheduler(ledger, 5)
		if err := s.Resume(ctx); err != nil {
			t.Fatalf("Resume: %v", err)
		}

		settled := ledger.Round(1)
		if settled.Status != models.RoundCompleted || settled.Winner.UserID != 1 {
			t.Fatalf("resumed round = %+v", settled)
		}
		r, _ := s.ActiveRound(ctx)
		if r.RoundNumber != 2 {
			t.Fatalf("active round = %d, want 2", r.RoundNumber)
		}
		if len(ev.completed) != 1 {
			t.Fatalf("completed events = %d, want 1", len(ev.completed))
		}
	})

	t.Run("nothing pending is a no-op", func(t *testing.T) {
		ledger := NewMemoryLedger()
		s, _ := newTestScheduler(ledger, 1)
		if err := s.Resume(ctx); err != nil {
			t.Fatalf("Resume: %v", err)
		}
	})
}

func TestSchedulerHaltsOnUncoveredTicket(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	ledger.Credit(1, decimal.NewFromInt(10))

	frozen := frozenRound(t, ledger, map[int64]int64{1: 1})
	// corrupt the counter so the drawn ticket resolves to no bet
	frozen.TotalTickets = 20
	if err := ledger.MarkDrawing(ctx, frozen.RoundNumber); err != nil {
		t.Fatalf("MarkDrawing: %v", err)
	}

	s, _ := newTestScheduler(ledger, 15)
	s.mu.Lock()
	s.round = frozen
	s.mu.Unlock()
	s.runDraw(ctx, frozen.Snapshot(), testConfig())

	if _, err := s.PlaceBet(ctx, 1, decimal.NewFromInt(1)); !errors.Is(err, ErrRoundHalted) {
		t.Fatalf("expected ErrRoundHalted, got %v", err)
	}
	if ledger.SettleCount() != 0 {
		t.Fatal("halted round moved money")
	}

	// operator cancels the broken round; play resumes on the next one
	if _, err := s.CancelRound(ctx); err != nil {
		t.Fatalf("CancelRound: %v", err)
	}
	if _, err := s.PlaceBet(ctx, 1, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("bet after cancel: %v", err)
	}
}
