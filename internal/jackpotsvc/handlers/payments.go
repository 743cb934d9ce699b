package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/service"
)

type createOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	order, err := h.payments.CreateOrder(r.Context(), uid, req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrBadAmount) {
			h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
			return
		}
		log.Errorf("create order for user %d: %v", uid, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to create order"})
		return
	}
	h.CreateResponse(w, Response{Message: "order created", Code: http.StatusOK, Data: order})
}

type confirmOrderRequest struct {
	TelegramPaymentID string `json:"telegram_payment_id"`
}

func (h *Handler) ConfirmOrderHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	orderID := chi.URLParam(r, "orderID")
	var req confirmOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	u, err := h.payments.ConfirmOrder(r.Context(), uid, orderID, req.TelegramPaymentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: err.Error()})
		case errors.Is(err, service.ErrOrderClosed):
			h.CreateResponse(w, Response{Code: http.StatusConflict, Error: err.Error()})
		default:
			log.Errorf("confirm order %s for user %d: %v", orderID, uid, err)
			h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to confirm order"})
		}
		return
	}
	h.CreateResponse(w, Response{Message: "order confirmed", Code: http.StatusOK, Data: u})
}
