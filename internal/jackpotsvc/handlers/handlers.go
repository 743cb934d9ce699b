package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/jwtauth"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/config"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/engine"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/service"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/store"
)

// TransactionLister is the slice of the transaction store the handlers
// read from.
type TransactionLister interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
	ListRecent(ctx context.Context, limit int) ([]models.Transaction, error)
}

// StatsCollector supplies the admin dashboard aggregate.
type StatsCollector interface {
	Collect(ctx context.Context) (*store.Stats, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	cfg       config.Config

	scheduler    *engine.Scheduler
	users        *service.UserService
	tasks        *service.TaskService
	payments     *service.PaymentService
	transactions TransactionLister
	stats        StatsCollector
}

func NewHandler(cfg config.Config, scheduler *engine.Scheduler, users *service.UserService,
	tasks *service.TaskService, payments *service.PaymentService,
	transactions TransactionLister, stats StatsCollector) *Handler {
	return &Handler{
		cfg:          cfg,
		scheduler:    scheduler,
		users:        users,
		tasks:        tasks,
		payments:     payments,
		transactions: transactions,
		stats:        stats,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (rs *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) errorResponse(w http.ResponseWriter, code int, err error) {
	h.CreateResponse(w, Response{Code: code, Error: err.Error()})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "jackpot service is running at port " + os.Getenv("PORT"),
		Code:    200,
		Data:    nil,
	}
	json.NewEncoder(w).Encode(rsp)
}

// userID pulls the authenticated user from the verified JWT claims.
func userID(r *http.Request) (int64, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return 0, err
	}
	switch v := claims["user_id"].(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		return n, err
	}
	return 0, errors.New("user_id claim missing")
}

func telegramID(r *http.Request) (string, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", err
	}
	id, ok := claims["telegram_id"].(string)
	if !ok {
		return "", errors.New("telegram_id claim missing")
	}
	return id, nil
}
