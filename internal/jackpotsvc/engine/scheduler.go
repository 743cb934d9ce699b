package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/random"
)

// Events receives round lifecycle notifications. All arguments are
// snapshots; implementations may hold on to them.
type Events interface {
	BetPlaced(round *models.Round, bet models.Bet)
	RoundCompleted(round *models.Round)
	RoundOpened(round *models.Round)
}

// BetReceipt is what a successful bet returns to the caller. When the bet
// filled the round it reflects state after settlement, not an intermediate
// one.
type BetReceipt struct {
	RoundNumber int64           `json:"round_number"`
	TicketStart int64           `json:"ticket_start"`
	TicketEnd   int64           `json:"ticket_end"`
	TicketCount int64           `json:"ticket_count"`
	NewBalance  decimal.Decimal `json:"new_balance"`
}

// ConfigPatch is a partial round configuration update.
type ConfigPatch struct {
	MaxParticipants *int             `json:"max_participants,omitempty"`
	MinBet          *decimal.Decimal `json:"min_bet,omitempty"`
	FeePercent      *decimal.Decimal `json:"fee_percent,omitempty"`
}

// Scheduler owns the single active round. Every mutation of it goes
// through the mutex; everything handed out is a snapshot. Reads of
// completed rounds go straight to the ledger and never touch the lock.
type Scheduler struct {
	mu       sync.Mutex
	round    *models.Round
	halted   bool // latched on invariant violation, cleared by cancel
	defaults models.RoundConfig
	staged   *models.RoundConfig // config for the next round, set while the active one has bets

	ledger Ledger
	draw   *DrawEngine
	events Events

	redrawDelay time.Duration
}

func NewScheduler(ledger Ledger, source random.Source, defaults models.RoundConfig) *Scheduler {
	return &Scheduler{
		defaults:    defaults,
		ledger:      ledger,
		draw:        NewDrawEngine(source, ledger),
		redrawDelay: 30 * time.Second,
	}
}

// SetEvents installs the event sink. Call before serving traffic.
func (s *Scheduler) SetEvents(ev Events) { s.events = ev }

// Resume picks up a round left frozen in 'drawing' by a previous process
// and finishes its draw. Call once at startup, before accepting bets.
func (s *Scheduler) Resume(ctx context.Context) error {
	pending, err := s.ledger.PendingRound(ctx)
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}

	log.Warnf("round %d found frozen in drawing, resuming draw", pending.RoundNumber)
	s.mu.Lock()
	s.round = pending
	snapshot := pending.Snapshot()
	nextCfg := s.nextConfigLocked()
	s.mu.Unlock()

	s.runDraw(ctx, snapshot, nextCfg)
	return nil
}

// PlaceBet debits the user and reserves a contiguous ticket range, both as
// one unit. If this bet fills the round the draw runs synchronously and
// the receipt reflects final settlement.
func (s *Scheduler) PlaceBet(ctx context.Context, userID int64, amount decimal.Decimal) (*BetReceipt, error) {
	s.mu.Lock()
	if s.halted {
		s.mu.Unlock()
		return nil, ErrRoundHalted
	}
	if err := s.ensureRoundLocked(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	bet, err := reserve(s.round, userID, amount)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	newBalance, err := s.ledger.PlaceBet(ctx, s.round, bet)
	if err != nil {
		// the debit and the reservation stand or fall together
		release(s.round, bet)
		s.mu.Unlock()
		return nil, err
	}

	receipt := &BetReceipt{
		RoundNumber: s.round.RoundNumber,
		TicketStart: bet.TicketStart,
		TicketEnd:   bet.TicketEnd,
		TicketCount: bet.TicketCount(),
		NewBalance:  newBalance,
	}

	full := len(s.round.Participants) >= s.round.MaxParticipants
	var frozen *models.Round
	var nextCfg models.RoundConfig
	if full {
		s.round.Status = models.RoundDrawing
		frozen = s.round.Snapshot()
		nextCfg = s.nextConfigLocked()
	}
	betSnap := s.round.Snapshot()
	s.mu.Unlock()

	if s.events != nil {
		s.events.BetPlaced(betSnap, bet)
	}

	if full {
		if err := s.ledger.MarkDrawing(ctx, frozen.RoundNumber); err != nil {
			// settlement is the durable gate; a lost freeze marker only
			// costs crash-resume coverage
			log.Warnf("round %d: persist drawing status: %v", frozen.RoundNumber, err)
		}
		s.runDraw(ctx, frozen, nextCfg)
	}
	return receipt, nil
}

// runDraw drives the frozen round to settlement. The mutex is not held
// while the randomness source is in flight; it is re-acquired and the
// round re-validated before any money moves.
func (s *Scheduler) runDraw(ctx context.Context, frozen *models.Round, nextCfg models.RoundConfig) {
	next, err := s.draw.Prepare(ctx, frozen, nextCfg)

	s.mu.Lock()
	if s.round == nil || s.round.RoundNumber != frozen.RoundNumber || s.round.Status != models.RoundDrawing {
		// cancelled (or otherwise moved on) while we waited on randomness
		s.mu.Unlock()
		log.Warnf("round %d: state changed during draw, abandoning", frozen.RoundNumber)
		return
	}

	if err != nil {
		if errors.Is(err, ErrNoWinningBet) {
			s.halted = true
			s.mu.Unlock()
			log.Errorf("round %d halted: %v", frozen.RoundNumber, err)
			return
		}
		s.mu.Unlock()
		log.Errorf("round %d: draw failed, scheduling redraw: %v", frozen.RoundNumber, err)
		s.scheduleRedraw(frozen.RoundNumber)
		return
	}

	if err := s.draw.Commit(ctx, frozen, next); err != nil {
		s.mu.Unlock()
		log.Errorf("round %d: settlement exhausted retries, scheduling redraw: %v", frozen.RoundNumber, err)
		s.scheduleRedraw(frozen.RoundNumber)
		return
	}

	s.round = next
	s.mu.Unlock()

	if s.events != nil {
		s.events.RoundCompleted(frozen)
		s.events.RoundOpened(next.Snapshot())
	}
}

// scheduleRedraw retries a stuck draw after a delay instead of abandoning
// the round.
func (s *Scheduler) scheduleRedraw(roundNumber int64) {
	time.AfterFunc(s.redrawDelay, func() {
		s.mu.Lock()
		if s.halted || s.round == nil ||
			s.round.RoundNumber != roundNumber || s.round.Status != models.RoundDrawing {
			s.mu.Unlock()
			return
		}
		frozen := s.round.Snapshot()
		nextCfg := s.nextConfigLocked()
		s.mu.Unlock()

		log.Infof("round %d: retrying draw", roundNumber)
		s.runDraw(context.Background(), frozen, nextCfg)
	})
}

// ActiveRound returns a snapshot of the current round, lazily opening a
// new one when none exists.
func (s *Scheduler) ActiveRound(ctx context.Context) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureRoundLocked(ctx); err != nil {
		return nil, err
	}
	return s.round.Snapshot(), nil
}

// History lists completed rounds, most recent first. It reads the ledger
// directly and never blocks writers.
func (s *Scheduler) History(ctx context.Context, limit int) ([]*models.Round, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}
	return s.ledger.CompletedRounds(ctx, limit)
}

// AdjustConfig updates round configuration. If the active round already
// has participants the change is staged for the next round; otherwise it
// takes effect immediately. Returns true when applied immediately.
func (s *Scheduler) AdjustConfig(ctx context.Context, patch ConfigPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureRoundLocked(ctx); err != nil {
		return false, err
	}

	if len(s.round.Participants) > 0 || s.round.Status != models.RoundActive {
		base := s.defaults
		if s.staged != nil {
			base = *s.staged
		}
		applyPatch(&base, patch)
		s.staged = &base
		return false, nil
	}

	cfg := s.round.Config()
	applyPatch(&cfg, patch)
	if err := s.ledger.UpdateConfig(ctx, s.round.RoundNumber, cfg); err != nil {
		return false, err
	}
	s.round.ApplyConfig(cfg)
	s.defaults = cfg
	return true, nil
}

// CancelRound terminates the current round, refunding every bet
// atomically, and opens the next one. A round with no bets has nothing to
// refund and cannot be cancelled.
func (s *Scheduler) CancelRound(ctx context.Context) (*models.Round, error) {
	s.mu.Lock()
	if s.round == nil || len(s.round.Participants) == 0 ||
		(s.round.Status != models.RoundActive && s.round.Status != models.RoundDrawing) {
		s.mu.Unlock()
		return nil, ErrRoundClosed
	}

	prior := s.round.Status
	now := time.Now().UTC()
	s.round.Status = models.RoundCancelled
	s.round.EndTime = &now
	next := NewRound(s.round.RoundNumber+1, s.nextConfigLocked())

	if err := s.ledger.Cancel(ctx, s.round, next); err != nil {
		s.round.Status = prior
		s.round.EndTime = nil
		s.mu.Unlock()
		return nil, err
	}

	cancelled := s.round
	s.round = next
	s.halted = false
	s.mu.Unlock()

	log.Infof("round %d cancelled, %d bets refunded", cancelled.RoundNumber, len(cancelled.Participants))
	if s.events != nil {
		s.events.RoundOpened(next.Snapshot())
	}
	return cancelled.Snapshot(), nil
}

// ensureRoundLocked lazily opens a round when none is active. Caller holds
// the mutex.
func (s *Scheduler) ensureRoundLocked(ctx context.Context) error {
	if s.round != nil {
		return nil
	}
	last, err := s.ledger.LastRoundNumber(ctx)
	if err != nil {
		return err
	}
	r := NewRound(last+1, s.nextConfigLocked())
	if err := s.ledger.EnsureRound(ctx, r); err != nil {
		return err
	}
	s.round = r
	log.Infof("round %d opened", r.RoundNumber)
	return nil
}

// nextConfigLocked consumes any staged configuration. Caller holds the
// mutex.
func (s *Scheduler) nextConfigLocked() models.RoundConfig {
	if s.staged != nil {
		s.defaults = *s.staged
		s.staged = nil
	}
	return s.defaults
}

func applyPatch(cfg *models.RoundConfig, patch ConfigPatch) {
	if patch.MaxParticipants != nil {
		cfg.MaxParticipants = *patch.MaxParticipants
	}
	if patch.MinBet != nil {
		cfg.MinBet = *patch.MinBet
	}
	if patch.FeePercent != nil {
		cfg.FeePercent = *patch.FeePercent
	}
}
