package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `
	SELECT user_id, telegram_id, username, first_name, last_name, is_anonymous,
	       balance, total_won, total_bets, referrer_id, referral_earnings,
	       language, dark_mode, status, created_at, last_active`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.UserID,
		&u.TelegramID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.IsAnonymous,
		&u.Balance,
		&u.TotalWon,
		&u.TotalBets,
		&u.ReferrerID,
		&u.ReferralEarnings,
		&u.Language,
		&u.DarkMode,
		&u.Status,
		&u.CreatedAt,
		&u.LastActive,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	row := s.db.QueryRow(ctx, userColumns+` FROM users WHERE user_id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u, nil
}

func (s *UserStore) GetByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	row := s.db.QueryRow(ctx, userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return u, nil
}

// Create inserts a new user and returns it with the assigned user_id.
func (s *UserStore) Create(ctx context.Context, u models.User) (*models.User, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name, balance, language, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'ACTIVE')
		RETURNING user_id, created_at, last_active
	`, u.TelegramID, u.Username, u.FirstName, u.LastName, u.Balance, u.Language).
		Scan(&u.UserID, &u.CreatedAt, &u.LastActive)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.Status = "ACTIVE"
	return &u, nil
}

// UpdateIdentity refreshes the telegram-sourced profile fields.
func (s *UserStore) UpdateIdentity(ctx context.Context, userID int64, username, firstName, lastName string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users SET username = $2, first_name = $3, last_name = $4, last_active = now()
		WHERE user_id = $1
	`, userID, username, firstName, lastName)
	if err != nil {
		return fmt.Errorf("update identity for user %d: %w", userID, err)
	}
	return nil
}

// UpdateSettings touches only the fields that are present.
func (s *UserStore) UpdateSettings(ctx context.Context, userID int64, isAnonymous *bool, language *string, darkMode *bool) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET is_anonymous = COALESCE($2, is_anonymous),
		    language     = COALESCE($3, language),
		    dark_mode    = COALESCE($4, dark_mode),
		    last_active  = now()
		WHERE user_id = $1
	`, userID, isAnonymous, language, darkMode)
	if err != nil {
		return fmt.Errorf("update settings for user %d: %w", userID, err)
	}
	return nil
}

// SetReferrer links a referrer once; a second attempt matches no row.
func (s *UserStore) SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	ct, err := s.db.Exec(ctx, `
		UPDATE users SET referrer_id = $2 WHERE user_id = $1 AND referrer_id IS NULL
	`, userID, referrerID)
	if err != nil {
		return false, fmt.Errorf("set referrer for user %d: %w", userID, err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *UserStore) CountReferrals(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE referrer_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count referrals for user %d: %w", userID, err)
	}
	return n, nil
}

// CreditReferral pays a referral reward: balance, running earnings and the
// 'referral' ledger record move together.
func (s *UserStore) CreditReferral(ctx context.Context, referrerID int64, amount decimal.Decimal, note string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET balance = balance + $2, referral_earnings = referral_earnings + $2
		WHERE user_id = $1
	`, referrerID, amount)
	if err != nil {
		return fmt.Errorf("credit referrer %d: %w", referrerID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, ttype, amount, status, note)
		VALUES ($1, 'referral', $2, 'completed', $3)
	`, referrerID, amount, note)
	if err != nil {
		return fmt.Errorf("insert referral transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit referral credit: %w", err)
	}
	return nil
}

// GameRecord is one round as seen from a single user's perspective.
type GameRecord struct {
	RoundNumber int64              `json:"round_number"`
	Staked      decimal.Decimal    `json:"staked"`
	Status      models.RoundStatus `json:"status"`
	Won         bool               `json:"won"`
	Prize       decimal.Decimal    `json:"prize"`
	EndTime     *time.Time         `json:"end_time,omitempty"`
}

// GamesHistory lists the rounds the user has bet in, newest first.
func (s *UserStore) GamesHistory(ctx context.Context, userID int64, limit int) ([]GameRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT rb.round_number, SUM(rb.amount), r.status, r.end_time,
		       COALESCE(r.winner_user_id = $1, false),
		       CASE WHEN r.winner_user_id = $1 THEN COALESCE(r.prize, 0) ELSE 0 END
		FROM round_bets rb
		JOIN rounds r ON r.round_number = rb.round_number
		WHERE rb.user_id = $1
		GROUP BY rb.round_number, r.status, r.end_time, r.winner_user_id, r.prize
		ORDER BY rb.round_number DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("games history for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []GameRecord
	for rows.Next() {
		var g GameRecord
		if err := rows.Scan(&g.RoundNumber, &g.Staked, &g.Status, &g.EndTime, &g.Won, &g.Prize); err != nil {
			return nil, fmt.Errorf("scan game record: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreditPaymentOnce credits a paid order exactly once. The tref check and
// the credit run in one transaction; a replayed tref credits nothing.
func (s *UserStore) CreditPaymentOnce(ctx context.Context, userID int64, amount decimal.Decimal, tref, note string) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE tref = $1)`, tref).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tref %s: %w", tref, err)
	}
	if exists {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET balance = balance + $2 WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return false, fmt.Errorf("credit payment to user %d: %w", userID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, ttype, amount, status, note, tref)
		VALUES ($1, 'admin', $2, 'completed', $3, $4)
	`, userID, amount, note, tref)
	if err != nil {
		return false, fmt.Errorf("insert payment transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit payment credit: %w", err)
	}
	return true, nil
}

// AdjustBalance applies an admin balance change together with its ledger
// record and returns the new balance.
func (s *UserStore) AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, note string) (decimal.Decimal, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var newBalance decimal.Decimal
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $2 WHERE user_id = $1
		RETURNING balance
	`, userID, amount).Scan(&newBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("adjust balance for user %d: %w", userID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, ttype, amount, status, note)
		VALUES ($1, 'admin', $2, 'completed', $3)
	`, userID, amount, note)
	if err != nil {
		return decimal.Zero, fmt.Errorf("insert admin transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("commit balance adjustment: %w", err)
	}
	return newBalance, nil
}
