package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

// Ledger is the durable side of the engine. Every method that moves money
// must commit as a single transaction; the engine never touches a balance
// outside these calls.
type Ledger interface {
	// LastRoundNumber returns the highest round number ever persisted,
	// zero when none exist.
	LastRoundNumber(ctx context.Context) (int64, error)

	// EnsureRound persists a freshly opened round. Inserting an already
	// known round number is a no-op.
	EnsureRound(ctx context.Context, r *models.Round) error

	// PlaceBet atomically debits the user, records the bet row, updates
	// the round counters and appends the 'bet' transaction. Returns the
	// new balance. Fails with ErrInsufficientFunds without mutating
	// anything when the balance does not cover the stake.
	PlaceBet(ctx context.Context, r *models.Round, bet models.Bet) (decimal.Decimal, error)

	// MarkDrawing freezes the round durably so a crash mid-draw is
	// visible on restart.
	MarkDrawing(ctx context.Context, roundNumber int64) error

	// Settle commits a completed round and opens the next one as a single
	// unit: winner credit + totalWon, 'win' transaction, round closure,
	// next round insert. Idempotent keyed on the round number; returns
	// false when the round was already settled (in which case nothing is
	// credited again).
	Settle(ctx context.Context, completed *models.Round, next *models.Round) (bool, error)

	// Cancel marks the round cancelled, refunds every bet and opens the
	// next round, all in one transaction. Idempotent like Settle.
	Cancel(ctx context.Context, cancelled *models.Round, next *models.Round) error

	// UpdateConfig persists a config change on a not-yet-started round.
	UpdateConfig(ctx context.Context, roundNumber int64, cfg models.RoundConfig) error

	// PendingRound returns a round persisted as 'drawing', if any, so a
	// restarted process can finish its draw. Nil when there is none.
	PendingRound(ctx context.Context) (*models.Round, error)

	// CompletedRounds lists settled rounds, most recent first.
	CompletedRounds(ctx context.Context, limit int) ([]*models.Round, error)
}
