package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/random"
)

// MemoryLedger is an in-memory Ledger for tests. It mirrors the store
// implementation's transactional guarantees coarsely with one big lock.
type MemoryLedger struct {
	mu           sync.Mutex
	balances     map[int64]decimal.Decimal
	totalWon     map[int64]decimal.Decimal
	totalBets    map[int64]decimal.Decimal
	rounds       map[int64]*models.Round
	transactions []models.Transaction
	settles      int // counts settlements that actually moved money
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:  make(map[int64]decimal.Decimal),
		totalWon:  make(map[int64]decimal.Decimal),
		totalBets: make(map[int64]decimal.Decimal),
		rounds:    make(map[int64]*models.Round),
	}
}

// Credit seeds a user balance.
func (m *MemoryLedger) Credit(userID int64, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = m.balance(userID).Add(amount)
}

func (m *MemoryLedger) balance(userID int64) decimal.Decimal {
	if b, ok := m.balances[userID]; ok {
		return b
	}
	return decimal.Zero
}

// Balance reports a user's current balance.
func (m *MemoryLedger) Balance(userID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(userID)
}

// TotalWon reports a user's lifetime winnings.
func (m *MemoryLedger) TotalWon(userID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.totalWon[userID]; ok {
		return w
	}
	return decimal.Zero
}

// Transactions returns a copy of the ledger records.
func (m *MemoryLedger) Transactions() []models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Transaction(nil), m.transactions...)
}

// SettleCount reports how many settlements actually moved money.
func (m *MemoryLedger) SettleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settles
}

// Round returns the stored round record, nil if unknown.
func (m *MemoryLedger) Round(number int64) *models.Round {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rounds[number]; ok {
		return r.Snapshot()
	}
	return nil
}

func (m *MemoryLedger) LastRoundNumber(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last int64
	for n := range m.rounds {
		if n > last {
			last = n
		}
	}
	return last, nil
}

func (m *MemoryLedger) EnsureRound(ctx context.Context, r *models.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rounds[r.RoundNumber]; ok {
		return nil
	}
	m.rounds[r.RoundNumber] = r.Snapshot()
	return nil
}

func (m *MemoryLedger) PlaceBet(ctx context.Context, r *models.Round, bet models.Bet) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balance(bet.UserID)
	if bal.LessThan(bet.Amount) {
		return decimal.Zero, ErrInsufficientFunds
	}
	newBal := bal.Sub(bet.Amount)
	m.balances[bet.UserID] = newBal
	m.totalBets[bet.UserID] = m.totalBets[bet.UserID].Add(bet.Amount)
	m.rounds[r.RoundNumber] = r.Snapshot()
	rn := r.RoundNumber
	m.transactions = append(m.transactions, models.Transaction{
		UserID:      bet.UserID,
		TType:       models.TxBet,
		Amount:      bet.Amount.Neg(),
		RoundNumber: &rn,
		Status:      "completed",
	})
	return newBal, nil
}

func (m *MemoryLedger) MarkDrawing(ctx context.Context, roundNumber int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rounds[roundNumber]; ok {
		r.Status = models.RoundDrawing
	}
	return nil
}

func (m *MemoryLedger) Settle(ctx context.Context, completed *models.Round, next *models.Round) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.rounds[completed.RoundNumber]
	if !ok {
		return false, fmt.Errorf("round %d not found", completed.RoundNumber)
	}
	if _, exists := m.rounds[next.RoundNumber]; !exists {
		m.rounds[next.RoundNumber] = next.Snapshot()
	}
	if stored.Status == models.RoundCompleted {
		return false, nil
	}

	m.rounds[completed.RoundNumber] = completed.Snapshot()
	w := completed.Winner
	m.balances[w.UserID] = m.balance(w.UserID).Add(w.Prize)
	m.totalWon[w.UserID] = m.totalWon[w.UserID].Add(w.Prize)
	rn := completed.RoundNumber
	m.transactions = append(m.transactions, models.Transaction{
		UserID:      w.UserID,
		TType:       models.TxWin,
		Amount:      w.Prize,
		RoundNumber: &rn,
		Status:      "completed",
	})
	m.settles++
	return true, nil
}

func (m *MemoryLedger) Cancel(ctx context.Context, cancelled *models.Round, next *models.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.rounds[cancelled.RoundNumber]
	if !ok {
		return fmt.Errorf("round %d not found", cancelled.RoundNumber)
	}
	if stored.Status == models.RoundCompleted || stored.Status == models.RoundCancelled {
		return nil
	}

	m.rounds[cancelled.RoundNumber] = cancelled.Snapshot()
	rn := cancelled.RoundNumber
	for _, b := range cancelled.Participants {
		m.balances[b.UserID] = m.balance(b.UserID).Add(b.Amount)
		m.totalBets[b.UserID] = m.totalBets[b.UserID].Sub(b.Amount)
		m.transactions = append(m.transactions, models.Transaction{
			UserID:      b.UserID,
			TType:       models.TxAdmin,
			Amount:      b.Amount,
			RoundNumber: &rn,
			Status:      "completed",
			Note:        "refund",
		})
	}
	if _, exists := m.rounds[next.RoundNumber]; !exists {
		m.rounds[next.RoundNumber] = next.Snapshot()
	}
	return nil
}

func (m *MemoryLedger) UpdateConfig(ctx context.Context, roundNumber int64, cfg models.RoundConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rounds[roundNumber]; ok {
		r.ApplyConfig(cfg)
	}
	return nil
}

func (m *MemoryLedger) PendingRound(ctx context.Context) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rounds {
		if r.Status == models.RoundDrawing {
			return r.Snapshot(), nil
		}
	}
	return nil, nil
}

func (m *MemoryLedger) CompletedRounds(ctx context.Context, limit int) ([]*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Round
	var n int64
	for rn := range m.rounds {
		if rn > n {
			n = rn
		}
	}
	for ; n >= 1 && len(out) < limit; n-- {
		if r, ok := m.rounds[n]; ok && r.Status == models.RoundCompleted {
			out = append(out, r.Snapshot())
		}
	}
	return out, nil
}

// StaticSource returns scripted values in order, then keeps returning the
// last one. Proofs are synthetic but verifiable in shape.
type StaticSource struct {
	mu     sync.Mutex
	values []int64
	next   int
}

func NewStaticSource(values ...int64) *StaticSource {
	return &StaticSource{values: values}
}

func (s *StaticSource) Draw(ctx context.Context, min, max int64) (random.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.next]
	if s.next < len(s.values)-1 {
		s.next++
	}
	if v < min || v > max {
		return random.Result{}, fmt.Errorf("scripted value %d outside [%d,%d]", v, min, max)
	}
	return random.Result{Value: v, Seed: "static", Nonce: uint64(s.next), Proof: fmt.Sprintf("static:%d:%d", s.next, v)}, nil
}

// FlakySource fails a fixed number of times before delegating.
type FlakySource struct {
	mu       sync.Mutex
	failures int
	inner    random.Source
	calls    int
}

func NewFlakySource(failures int, inner random.Source) *FlakySource {
	return &FlakySource{failures: failures, inner: inner}
}

func (f *FlakySource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FlakySource) Draw(ctx context.Context, min, max int64) (random.Result, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return random.Result{}, errors.New("randomness source unavailable")
	}
	return f.inner.Draw(ctx, min, max)
}
