package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxBet        TransactionType = "bet"
	TxWin        TransactionType = "win"
	TxReferral   TransactionType = "referral"
	TxTaskReward TransactionType = "task_reward"
	TxAdmin      TransactionType = "admin"
)

// Transaction is an append-only ledger record. Amounts are signed: debits
// are negative, credits positive. Rows are never updated once written.
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TType       TransactionType `json:"ttype"`
	Amount      decimal.Decimal `json:"amount"`
	RoundNumber *int64          `json:"round_number,omitempty"`
	TaskID      *int64          `json:"task_id,omitempty"`
	TRef        string          `json:"tref,omitempty"` // external reference, e.g. telegram payment id
	Status      string          `json:"status"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
