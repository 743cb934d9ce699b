package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/store"
)

var (
	ErrOrderNotFound = errors.New("payment order not found")
	ErrOrderClosed   = errors.New("payment order already settled or expired")
	ErrBadAmount     = errors.New("purchase amount must be a positive whole number of stars")
)

// orderTTL bounds how long an unpaid order is honored. The mongo TTL index
// reaps the document shortly after.
const orderTTL = 30 * time.Minute

type Notifier interface {
	Notify(telegramID, text string)
}

type PaymentService struct {
	orders   *store.PaymentStore
	users    *store.UserStore
	notifier Notifier
}

func NewPaymentService(orders *store.PaymentStore, users *store.UserStore, notifier Notifier) *PaymentService {
	return &PaymentService{orders: orders, users: users, notifier: notifier}
}

// CreateOrder opens a pending star purchase and returns it for the client
// to complete through telegram payments.
func (s *PaymentService) CreateOrder(ctx context.Context, userID int64, amount decimal.Decimal) (*models.PaymentOrder, error) {
	if !amount.IsInteger() || !amount.IsPositive() {
		return nil, ErrBadAmount
	}

	now := time.Now().UTC()
	order := models.PaymentOrder{
		OrderID:   uuid.NewString(),
		UserID:    userID,
		Amount:    amount.String(),
		Status:    "pending",
		CreatedAt: now,
		ExpiresAt: now.Add(orderTTL),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	log.Infof("payment order %s opened for user %d, %s stars", order.OrderID, userID, order.Amount)
	return &order, nil
}

// ConfirmOrder flips the order to paid and credits the stars. Both steps
// are idempotent: the mongo flip matches only a pending order and the
// postgres credit is keyed by the order id, so a replayed confirmation
// credits nothing.
func (s *PaymentService) ConfirmOrder(ctx context.Context, userID int64, orderID, telegramPaymentID string) (*models.User, error) {
	order, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	flipped, err := s.orders.MarkPaid(ctx, orderID, telegramPaymentID)
	if err != nil {
		return nil, err
	}
	if !flipped && order.Status != "paid" {
		return nil, ErrOrderClosed
	}

	amount, err := decimal.NewFromString(order.Amount)
	if err != nil {
		return nil, fmt.Errorf("order %s has bad amount %q: %w", orderID, order.Amount, err)
	}

	note := fmt.Sprintf("star purchase, order %s", orderID)
	credited, err := s.users.CreditPaymentOnce(ctx, userID, amount, orderID, note)
	if err != nil {
		return nil, err
	}
	if !credited {
		log.Warnf("payment order %s replayed for user %d, credit skipped", orderID, userID)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	if credited && s.notifier != nil {
		s.notifier.Notify(u.TelegramID, fmt.Sprintf("Your purchase of %s stars is complete. Balance: %s", order.Amount, u.Balance))
	}
	return u, nil
}
