package engine

import (
	"context"
	"testing"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	"github.com/shopspring/decimal"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

// fastPolicy keeps retry loops out of test wall time.
func fastPolicy() backoff.Policy {
	return backoff.Constant(
		backoff.WithInterval(time.Millisecond),
		backoff.WithMaxRetries(8),
	)
}

func frozenRound(t *testing.T, ledger Ledger, bets map[int64]int64) *models.Round {
	t.Helper()
	r := NewRound(1, testConfig())
	r.MaxParticipants = len(bets)
	if err := ledger.EnsureRound(context.Background(), r); err != nil {
		t.Fatalf("EnsureRound: %v", err)
	}
	for userID := int64(1); userID <= int64(len(bets)); userID++ {
		bet, err := reserve(r, userID, decimal.NewFromInt(bets[userID]))
		if err != nil {
			t.Fatalf("reserve for user %d: %v", userID, err)
		}
		if _, err := ledger.PlaceBet(context.Background(), r, bet); err != nil {
			t.Fatalf("PlaceBet for user %d: %v", userID, err)
		}
	}
	r.Status = models.RoundDrawing
	return r
}

func TestSplitPot(t *testing.T) {
	cases := []struct {
		pot, feePercent, fee, prize string
	}{
		{"6", "5", "0.30", "5.70"},
		{"100", "5", "5", "95"},
		{"7", "5", "0.35", "6.65"},
		{"1", "3", "0.03", "0.97"},
		{"3", "7", "0.21", "2.79"},
		{"10", "0", "0", "10"},
	}
	for _, c := range cases {
		pot, _ := decimal.NewFromString(c.pot)
		pct, _ := decimal.NewFromString(c.feePercent)
		wantFee, _ := decimal.NewFromString(c.fee)
		wantPrize, _ := decimal.NewFromString(c.prize)

		fee, prize := SplitPot(pot, pct)
		if !fee.Equal(wantFee) || !prize.Equal(wantPrize) {
			t.Errorf("SplitPot(%s, %s%%) = (%s, %s), want (%s, %s)",
				c.pot, c.feePercent, fee, prize, c.fee, c.prize)
		}
		if !fee.Add(prize).Equal(pot) {
			t.Errorf("SplitPot(%s, %s%%): fee+prize != pot", c.pot, c.feePercent)
		}
	}
}

func TestDrawEnginePrepare(t *testing.T) {
	t.Run("fills winner, proof and hash", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Credit(1, decimal.NewFromInt(10))
		ledger.Credit(2, decimal.NewFromInt(10))
		r := frozenRound(t, ledger, map[int64]int64{1: 1, 2: 2})

		e := NewDrawEngine(NewStaticSource(15), ledger)
		next, err := e.Prepare(context.Background(), r, testConfig())
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}

		if r.Status != models.RoundCompleted {
			t.Fatalf("status = %s, want completed", r.Status)
		}
		if r.Winner == nil || r.Winner.UserID != 2 {
			t.Fatalf("ticket 15 should belong to user 2, got %+v", r.Winner)
		}
		if r.WinningTicket != 15 || r.DrawProof == "" || r.EndTime == nil {
			t.Fatalf("draw fields incomplete: %+v", r)
		}
		want := VerificationHash(r.RoundNumber, r.TotalTickets, 15, r.DrawProof)
		if r.VerificationHash != want {
			t.Fatalf("verification hash mismatch")
		}
		if next.RoundNumber != 2 || next.Status != models.RoundActive {
			t.Fatalf("next round = %d/%s, want 2/active", next.RoundNumber, next.Status)
		}
	})

	t.Run("retries a flaky source", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Credit(1, decimal.NewFromInt(10))
		r := frozenRound(t, ledger, map[int64]int64{1: 1})

		flaky := NewFlakySource(2, NewStaticSource(5))
		e := NewDrawEngine(flaky, ledger)
		e.policy = fastPolicy()

		if _, err := e.Prepare(context.Background(), r, testConfig()); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		if flaky.Calls() != 3 {
			t.Fatalf("source called %d times, want 3", flaky.Calls())
		}
	})

	t.Run("gives up when the source never recovers", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Credit(1, decimal.NewFromInt(10))
		r := frozenRound(t, ledger, map[int64]int64{1: 1})

		e := NewDrawEngine(NewFlakySource(100, NewStaticSource(5)), ledger)
		e.policy = fastPolicy()

		if _, err := e.Prepare(context.Background(), r, testConfig()); err == nil {
			t.Fatal("expected error from exhausted source")
		}
		if ledger.SettleCount() != 0 {
			t.Fatal("failed draw moved money")
		}
	})

	t.Run("uncovered ticket halts instead of settling", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Credit(1, decimal.NewFromInt(10))
		r := frozenRound(t, ledger, map[int64]int64{1: 1})
		// break the invariant deliberately
		r.TotalTickets = 20

		e := NewDrawEngine(NewStaticSource(15), ledger)
		if _, err := e.Prepare(context.Background(), r, testConfig()); err != ErrNoWinningBet {
			t.Fatalf("expected ErrNoWinningBet, got %v", err)
		}
	})
}

func TestDrawEngineCommit(t *testing.T) {
	t.Run("replay settles once", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Credit(1, decimal.NewFromInt(10))
		ledger.Credit(2, decimal.NewFromInt(10))
		r := frozenRound(t, ledger, map[int64]int64{1: 1, 2: 2})

		e := NewDrawEngine(NewStaticSource(15), ledger)
		next, err := e.Prepare(context.Background(), r, testConfig())
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}

		if err := e.Commit(context.Background(), r, next); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		if err := e.Commit(context.Background(), r, next); err != nil {
			t.Fatalf("Commit replay: %v", err)
		}

		if ledger.SettleCount() != 1 {
			t.Fatalf("settled %d times, want 1", ledger.SettleCount())
		}
		// 10 - 2 staked + 2.85 prize
		want, _ := decimal.NewFromString("10.85")
		if got := ledger.Balance(2); !got.Equal(want) {
			t.Fatalf("winner balance = %s, want %s", got, want)
		}
	})
}
