package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents the users table in the database.
type User struct {
	UserID           int64           `json:"user_id"`
	TelegramID       string          `json:"telegram_id"`
	Username         string          `json:"username,omitempty"`
	FirstName        string          `json:"first_name,omitempty"`
	LastName         string          `json:"last_name,omitempty"`
	IsAnonymous      bool            `json:"is_anonymous"`
	Balance          decimal.Decimal `json:"balance"`
	TotalWon         decimal.Decimal `json:"total_won"`
	TotalBets        decimal.Decimal `json:"total_bets"`
	ReferrerID       *int64          `json:"referrer_id,omitempty"`
	ReferralEarnings decimal.Decimal `json:"referral_earnings"`
	Language         string          `json:"language"`
	DarkMode         bool            `json:"dark_mode"`
	Status           string          `json:"status,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	LastActive       time.Time       `json:"last_active"`
}
