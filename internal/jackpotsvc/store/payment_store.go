package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

const paymentCollection = "payment_orders"

// PaymentStore keeps pending star purchases in mongo; the TTL index on
// expires_at reaps abandoned orders.
type PaymentStore struct {
	col *mongo.Collection
}

func NewPaymentStore(db *mongo.Database) *PaymentStore {
	return &PaymentStore{col: db.Collection(paymentCollection)}
}

func (s *PaymentStore) Create(ctx context.Context, order models.PaymentOrder) error {
	if _, err := s.col.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("create payment order: %w", err)
	}
	return nil
}

func (s *PaymentStore) GetByOrderID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := s.col.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment order: %w", err)
	}
	return &order, nil
}

// MarkPaid flips a pending order to paid exactly once; false means the
// order was missing, expired or already paid.
func (s *PaymentStore) MarkPaid(ctx context.Context, orderID, telegramPaymentID string) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"order_id": orderID, "status": "pending", "expires_at": bson.M{"$gt": time.Now().UTC()}},
		bson.M{"$set": bson.M{"status": "paid", "telegram_payment_id": telegramPaymentID}},
	)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
