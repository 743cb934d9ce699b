package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

type TransactionStore struct {
	db *pgxpool.Pool
}

func NewTransactionStore(db *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{db: db}
}

// ListByUser returns the user's most recent ledger records.
func (s *TransactionStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, ttype, amount, round_number, task_id, COALESCE(tref, ''), status, COALESCE(note, ''), created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListRecent returns the newest ledger records across all users.
func (s *TransactionStore) ListRecent(ctx context.Context, limit int) ([]models.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, ttype, amount, round_number, task_id, COALESCE(tref, ''), status, COALESCE(note, ''), created_at
		FROM transactions
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// CountWinsByUser counts how many rounds the user has won.
func (s *TransactionStore) CountWinsByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND ttype = 'win'
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count wins for user %d: %w", userID, err)
	}
	return n, nil
}

func collectTransactions(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.Transaction, error) {
	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.TType,
			&t.Amount,
			&t.RoundNumber,
			&t.TaskID,
			&t.TRef,
			&t.Status,
			&t.Note,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
