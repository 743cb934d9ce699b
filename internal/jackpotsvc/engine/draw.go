package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/random"
)

var hundred = decimal.NewFromInt(100)

// DrawEngine runs a full round from frozen to settled: pull one winning
// ticket from the randomness source, resolve it to a bet, split the pot
// and commit. Randomness and commit failures are retried with bounded
// backoff; the round stays frozen the whole time.
type DrawEngine struct {
	source random.Source
	ledger Ledger
	policy backoff.Policy
}

func NewDrawEngine(source random.Source, ledger Ledger) *DrawEngine {
	return &DrawEngine{
		source: source,
		ledger: ledger,
		policy: backoff.Exponential(
			backoff.WithMinInterval(500*time.Millisecond),
			backoff.WithMaxInterval(15*time.Second),
			backoff.WithJitterFactor(0.05),
			backoff.WithMaxRetries(8),
		),
	}
}

// Prepare takes a frozen round through the drawing step: it pulls from the
// randomness source (with retries), resolves the winning bet, splits the
// pot and fills in winner, hash and end time on r. It returns the next
// round to open. No money moves until Commit.
//
// ErrNoWinningBet means the ticket ranges are broken; the caller must halt
// the round rather than retry.
func (e *DrawEngine) Prepare(ctx context.Context, r *models.Round, nextCfg models.RoundConfig) (*models.Round, error) {
	res, err := e.drawWithRetry(ctx, 1, r.TotalTickets)
	if err != nil {
		return nil, fmt.Errorf("round %d: randomness source: %w", r.RoundNumber, err)
	}

	winner := resolveWinner(r, res.Value)
	if winner == nil {
		log.Errorf("round %d: ticket %d resolves to no bet (totalTickets=%d, participants=%d)",
			r.RoundNumber, res.Value, r.TotalTickets, len(r.Participants))
		return nil, ErrNoWinningBet
	}

	_, prize := SplitPot(r.TotalPot, r.FeePercent)
	now := time.Now().UTC()

	r.Status = models.RoundCompleted
	r.EndTime = &now
	r.WinningTicket = res.Value
	r.DrawProof = res.Proof
	r.Winner = &models.Winner{UserID: winner.UserID, Ticket: res.Value, Prize: prize}
	r.VerificationHash = VerificationHash(r.RoundNumber, r.TotalTickets, res.Value, res.Proof)

	return NewRound(r.RoundNumber+1, nextCfg), nil
}

// Commit settles a prepared round: winner credit, 'win' transaction, round
// closure and next-round open as one durable unit. Safe to replay.
func (e *DrawEngine) Commit(ctx context.Context, completed, next *models.Round) error {
	fresh, err := e.settleWithRetry(ctx, completed, next)
	if err != nil {
		return fmt.Errorf("round %d: settle: %w", completed.RoundNumber, err)
	}
	if !fresh {
		log.Warnf("round %d: settlement replayed, no balances touched", completed.RoundNumber)
		return nil
	}

	fee, prize := SplitPot(completed.TotalPot, completed.FeePercent)
	log.Infof("round %d settled: ticket %d, user %d, prize %s (fee %s)",
		completed.RoundNumber, completed.WinningTicket, completed.Winner.UserID,
		prize.StringFixed(2), fee.StringFixed(2))
	return nil
}

func (e *DrawEngine) drawWithRetry(ctx context.Context, min, max int64) (random.Result, error) {
	var lastErr error
	b := e.policy.Start(ctx)
	for backoff.Continue(b) {
		res, err := e.source.Draw(ctx, min, max)
		if err == nil {
			return res, nil
		}
		lastErr = err
		log.Warnf("randomness draw failed, will retry: %v", err)
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return random.Result{}, lastErr
}

func (e *DrawEngine) settleWithRetry(ctx context.Context, completed, next *models.Round) (bool, error) {
	var lastErr error
	b := e.policy.Start(ctx)
	for backoff.Continue(b) {
		// Settle is idempotent on the round number, so replaying after an
		// ambiguous commit cannot double-pay.
		fresh, err := e.ledger.Settle(ctx, completed, next)
		if err == nil {
			return fresh, nil
		}
		lastErr = err
		log.Warnf("settlement commit failed, will retry: %v", err)
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return false, lastErr
}

// resolveWinner finds the unique bet whose range holds the ticket. Linear
// scan; rounds top out at a few dozen participants.
func resolveWinner(r *models.Round, ticket int64) *models.Bet {
	for i := range r.Participants {
		if r.Participants[i].Holds(ticket) {
			return &r.Participants[i]
		}
	}
	return nil
}

// SplitPot returns the fee and prize for a pot. The fee is truncated
// toward zero at two decimal places, so fee+prize always equals the pot
// exactly.
func SplitPot(pot, feePercent decimal.Decimal) (fee, prize decimal.Decimal) {
	fee = pot.Mul(feePercent).Div(hundred).Truncate(2)
	prize = pot.Sub(fee)
	return fee, prize
}

// VerificationHash ties a completed round to its draw inputs. Anyone can
// recompute it from the public round record and the source proof.
func VerificationHash(roundNumber, totalTickets, winningTicket int64, proof string) string {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%d:%d:%d:%s", roundNumber, totalTickets, winningTicket, proof)))
	return hex.EncodeToString(digest[:])
}

// NewRound opens a fresh active round with the given configuration.
func NewRound(number int64, cfg models.RoundConfig) *models.Round {
	return &models.Round{
		RoundNumber:     number,
		Status:          models.RoundActive,
		StartTime:       time.Now().UTC(),
		MaxParticipants: cfg.MaxParticipants,
		MinBet:          cfg.MinBet,
		FeePercent:      cfg.FeePercent,
		TotalPot:        decimal.Zero,
		TotalTickets:    0,
	}
}
