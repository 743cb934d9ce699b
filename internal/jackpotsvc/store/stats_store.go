package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Stats is the admin dashboard aggregate.
type Stats struct {
	UsersCount           int64           `json:"users_count"`
	ActiveRoundsCount    int64           `json:"active_rounds_count"`
	CompletedRoundsCount int64           `json:"completed_rounds_count"`
	TotalPotAmount       decimal.Decimal `json:"total_pot_amount"`
	NewUsersLast24h      int64           `json:"new_users_last_24h"`
	CompletedLast24h     int64           `json:"completed_rounds_last_24h"`
}

type StatsStore struct {
	db *pgxpool.Pool
}

func NewStatsStore(db *pgxpool.Pool) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) Collect(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	since := time.Now().Add(-24 * time.Hour)

	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM rounds WHERE status IN ('active', 'drawing')),
			(SELECT COUNT(*) FROM rounds WHERE status = 'completed'),
			(SELECT COALESCE(SUM(total_pot), 0) FROM rounds WHERE status = 'completed'),
			(SELECT COUNT(*) FROM users WHERE created_at >= $1),
			(SELECT COUNT(*) FROM rounds WHERE status = 'completed' AND end_time >= $1)
	`, since).Scan(
		&st.UsersCount,
		&st.ActiveRoundsCount,
		&st.CompletedRoundsCount,
		&st.TotalPotAmount,
		&st.NewUsersLast24h,
		&st.CompletedLast24h,
	)
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}
	return st, nil
}
