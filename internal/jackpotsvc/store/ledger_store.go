package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/engine"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

// LedgerStore is the pgx implementation of engine.Ledger. Balances are
// only ever touched inside the transactions below; round_bets and
// transactions rows are append-only.
type LedgerStore struct {
	db *pgxpool.Pool
}

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) LastRoundNumber(ctx context.Context) (int64, error) {
	var last int64
	err := s.db.QueryRow(ctx, `SELECT COALESCE(MAX(round_number), 0) FROM rounds`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("last round number: %w", err)
	}
	return last, nil
}

func (s *LedgerStore) EnsureRound(ctx context.Context, r *models.Round) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rounds (round_number, status, start_time, max_participants, min_bet, fee_percent, total_pot, total_tickets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (round_number) DO NOTHING
	`, r.RoundNumber, r.Status, r.StartTime, r.MaxParticipants, r.MinBet, r.FeePercent, r.TotalPot, r.TotalTickets)
	if err != nil {
		return fmt.Errorf("ensure round %d: %w", r.RoundNumber, err)
	}
	return nil
}

func (s *LedgerStore) PlaceBet(ctx context.Context, r *models.Round, bet models.Bet) (decimal.Decimal, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// row lock keeps the read-check-debit atomic against task rewards,
	// payments and admin adjustments hitting the same user
	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT balance FROM users WHERE user_id = $1 FOR UPDATE
	`, bet.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("user %d not found", bet.UserID)
		}
		return decimal.Zero, fmt.Errorf("lock user %d: %w", bet.UserID, err)
	}

	if balance.LessThan(bet.Amount) {
		return decimal.Zero, engine.ErrInsufficientFunds
	}

	var newBalance decimal.Decimal
	err = tx.QueryRow(ctx, `
		UPDATE users
		SET balance = balance - $2, total_bets = total_bets + $2, last_active = now()
		WHERE user_id = $1
		RETURNING balance
	`, bet.UserID, bet.Amount).Scan(&newBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("debit user %d: %w", bet.UserID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO round_bets (round_number, user_id, amount, ticket_start, ticket_end, bet_time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.RoundNumber, bet.UserID, bet.Amount, bet.TicketStart, bet.TicketEnd, bet.BetTime)
	if err != nil {
		return decimal.Zero, fmt.Errorf("insert bet: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE rounds SET total_pot = $2, total_tickets = $3, updated_at = now()
		WHERE round_number = $1
	`, r.RoundNumber, r.TotalPot, r.TotalTickets)
	if err != nil {
		return decimal.Zero, fmt.Errorf("update round counters: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, ttype, amount, round_number, status, note)
		VALUES ($1, 'bet', $2, $3, 'completed', $4)
	`, bet.UserID, bet.Amount.Neg(), r.RoundNumber,
		fmt.Sprintf("bet of %s stars in round #%d", bet.Amount.StringFixed(0), r.RoundNumber))
	if err != nil {
		return decimal.Zero, fmt.Errorf("insert bet transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("commit bet: %w", err)
	}
	return newBalance, nil
}

func (s *LedgerStore) MarkDrawing(ctx context.Context, roundNumber int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE rounds SET status = 'drawing', updated_at = now()
		WHERE round_number = $1 AND status = 'active'
	`, roundNumber)
	if err != nil {
		return fmt.Errorf("mark round %d drawing: %w", roundNumber, err)
	}
	return nil
}

func (s *LedgerStore) Settle(ctx context.Context, completed *models.Round, next *models.Round) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// the status guard is the idempotency key: a replayed settlement
	// matches zero rows and credits nothing
	ct, err := tx.Exec(ctx, `
		UPDATE rounds
		SET status = 'completed', end_time = $2, winner_user_id = $3, winning_ticket = $4,
		    prize = $5, verification_hash = $6, draw_proof = $7,
		    total_pot = $8, total_tickets = $9, updated_at = now()
		WHERE round_number = $1 AND status IN ('active', 'drawing')
	`, completed.RoundNumber, completed.EndTime, completed.Winner.UserID, completed.WinningTicket,
		completed.Winner.Prize, completed.VerificationHash, completed.DrawProof,
		completed.TotalPot, completed.TotalTickets)
	if err != nil {
		return false, fmt.Errorf("close round %d: %w", completed.RoundNumber, err)
	}
	fresh := ct.RowsAffected() == 1

	if fresh {
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET balance = balance + $2, total_won = total_won + $2
			WHERE user_id = $1
		`, completed.Winner.UserID, completed.Winner.Prize)
		if err != nil {
			return false, fmt.Errorf("credit winner %d: %w", completed.Winner.UserID, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO transactions (user_id, ttype, amount, round_number, status, note)
			VALUES ($1, 'win', $2, $3, 'completed', $4)
		`, completed.Winner.UserID, completed.Winner.Prize, completed.RoundNumber,
			fmt.Sprintf("prize of %s stars in round #%d", completed.Winner.Prize.StringFixed(2), completed.RoundNumber))
		if err != nil {
			return false, fmt.Errorf("insert win transaction: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO rounds (round_number, status, start_time, max_participants, min_bet, fee_percent, total_pot, total_tickets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (round_number) DO NOTHING
	`, next.RoundNumber, next.Status, next.StartTime, next.MaxParticipants, next.MinBet, next.FeePercent, next.TotalPot, next.TotalTickets)
	if err != nil {
		return false, fmt.Errorf("open round %d: %w", next.RoundNumber, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit settlement: %w", err)
	}
	return fresh, nil
}

func (s *LedgerStore) Cancel(ctx context.Context, cancelled *models.Round, next *models.Round) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE rounds SET status = 'cancelled', end_time = $2, updated_at = now()
		WHERE round_number = $1 AND status IN ('active', 'drawing')
	`, cancelled.RoundNumber, cancelled.EndTime)
	if err != nil {
		return fmt.Errorf("cancel round %d: %w", cancelled.RoundNumber, err)
	}

	if ct.RowsAffected() == 1 {
		for _, b := range cancelled.Participants {
			_, err = tx.Exec(ctx, `
				UPDATE users
				SET balance = balance + $2, total_bets = total_bets - $2
				WHERE user_id = $1
			`, b.UserID, b.Amount)
			if err != nil {
				return fmt.Errorf("refund user %d: %w", b.UserID, err)
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO transactions (user_id, ttype, amount, round_number, status, note)
				VALUES ($1, 'admin', $2, $3, 'completed', $4)
			`, b.UserID, b.Amount, cancelled.RoundNumber,
				fmt.Sprintf("refund for cancelled round #%d", cancelled.RoundNumber))
			if err != nil {
				return fmt.Errorf("insert refund transaction: %w", err)
			}
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO rounds (round_number, status, start_time, max_participants, min_bet, fee_percent, total_pot, total_tickets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (round_number) DO NOTHING
	`, next.RoundNumber, next.Status, next.StartTime, next.MaxParticipants, next.MinBet, next.FeePercent, next.TotalPot, next.TotalTickets)
	if err != nil {
		return fmt.Errorf("open round %d: %w", next.RoundNumber, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cancel: %w", err)
	}
	return nil
}

func (s *LedgerStore) UpdateConfig(ctx context.Context, roundNumber int64, cfg models.RoundConfig) error {
	_, err := s.db.Exec(ctx, `
		UPDATE rounds SET max_participants = $2, min_bet = $3, fee_percent = $4, updated_at = now()
		WHERE round_number = $1 AND status IN ('pending', 'active')
	`, roundNumber, cfg.MaxParticipants, cfg.MinBet, cfg.FeePercent)
	if err != nil {
		return fmt.Errorf("update round %d config: %w", roundNumber, err)
	}
	return nil
}

func (s *LedgerStore) PendingRound(ctx context.Context) (*models.Round, error) {
	row := s.db.QueryRow(ctx, roundColumns+` FROM rounds WHERE status = 'drawing' LIMIT 1`)
	r, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pending round: %w", err)
	}
	if err := s.loadBets(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *LedgerStore) CompletedRounds(ctx context.Context, limit int) ([]*models.Round, error) {
	rows, err := s.db.Query(ctx, roundColumns+`
		FROM rounds WHERE status = 'completed'
		ORDER BY end_time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("completed rounds: %w", err)
	}
	defer rows.Close()

	var out []*models.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range out {
		if err := s.loadBets(ctx, r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const roundColumns = `
	SELECT round_number, status, start_time, end_time, max_participants, min_bet, fee_percent,
	       total_pot, total_tickets, winner_user_id, winning_ticket, prize, verification_hash, draw_proof`

func scanRound(row pgx.Row) (*models.Round, error) {
	r := &models.Round{}
	var (
		winnerUserID  *int64
		winningTicket *int64
		prize         *decimal.Decimal
		hash, proof   *string
	)
	err := row.Scan(
		&r.RoundNumber,
		&r.Status,
		&r.StartTime,
		&r.EndTime,
		&r.MaxParticipants,
		&r.MinBet,
		&r.FeePercent,
		&r.TotalPot,
		&r.TotalTickets,
		&winnerUserID,
		&winningTicket,
		&prize,
		&hash,
		&proof,
	)
	if err != nil {
		return nil, err
	}
	if winnerUserID != nil && winningTicket != nil && prize != nil {
		r.WinningTicket = *winningTicket
		r.Winner = &models.Winner{UserID: *winnerUserID, Ticket: *winningTicket, Prize: *prize}
	}
	if hash != nil {
		r.VerificationHash = *hash
	}
	if proof != nil {
		r.DrawProof = *proof
	}
	return r, nil
}

// loadBets fills Participants in insertion order; row ids track arrival.
func (s *LedgerStore) loadBets(ctx context.Context, r *models.Round) error {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, amount, ticket_start, ticket_end, bet_time
		FROM round_bets
		WHERE round_number = $1
		ORDER BY id
	`, r.RoundNumber)
	if err != nil {
		return fmt.Errorf("load bets for round %d: %w", r.RoundNumber, err)
	}
	defer rows.Close()

	for rows.Next() {
		var b models.Bet
		if err := rows.Scan(&b.UserID, &b.Amount, &b.TicketStart, &b.TicketEnd, &b.BetTime); err != nil {
			return fmt.Errorf("scan bet: %w", err)
		}
		r.Participants = append(r.Participants, b)
	}
	return rows.Err()
}
