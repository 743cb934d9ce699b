package engine

import "errors"

// Validation errors are reported to the caller as-is and leave no state
// behind. ErrNoWinningBet is different: it means the allocator broke its
// contract and the round must stop mutating.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBetTooSmall       = errors.New("bet below round minimum")
	ErrTooManyBets       = errors.New("bet limit reached for this round")
	ErrRoundClosed       = errors.New("round is closed for betting")
	ErrRoundCancelled    = errors.New("round was cancelled")
	ErrNoWinningBet      = errors.New("winning ticket matches no bet")
	ErrRoundHalted       = errors.New("round halted after invariant violation")
)
