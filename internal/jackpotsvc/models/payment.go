package models

import (
	"time"
)

// PaymentOrder is a pending star purchase. Orders live in mongo with a TTL
// index on ExpiresAt so abandoned ones disappear on their own. Amount is a
// decimal string to keep the bson document exact.
type PaymentOrder struct {
	OrderID           string    `bson:"order_id" json:"order_id"`
	UserID            int64     `bson:"user_id" json:"user_id"`
	Amount            string    `bson:"amount" json:"amount"`
	Status            string    `bson:"status" json:"status"` // 'pending', 'paid'
	TelegramPaymentID string    `bson:"telegram_payment_id,omitempty" json:"telegram_payment_id,omitempty"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt         time.Time `bson:"expires_at" json:"expires_at"`
}
