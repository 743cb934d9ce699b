package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TaskType string

const (
	TaskSubscription TaskType = "subscription"
	TaskSocialShare  TaskType = "social_share"
	TaskPartner      TaskType = "partner"
)

type Task struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Reward      decimal.Decimal `json:"reward"` // stars credited on completion
	Type        TaskType        `json:"type"`
	Channel     string          `json:"channel,omitempty"` // subscription tasks: channel name
	URL         string          `json:"url,omitempty"`
	IsActive    bool            `json:"is_active"`
	IsPartner   bool            `json:"is_partner"`
	SortOrder   int             `json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`

	// IsCompleted is filled per requesting user, not stored.
	IsCompleted bool `json:"is_completed"`
}
