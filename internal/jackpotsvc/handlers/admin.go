package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/engine"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/store"
)

// AdminOnly passes only tokens whose telegram id is on the allowlist.
func (h *Handler) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid, err := telegramID(r)
		if err != nil {
			h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
			return
		}
		for _, id := range h.cfg.AdminTelegramIDs {
			if id == tid {
				next.ServeHTTP(w, r)
				return
			}
		}
		log.Warnf("admin endpoint denied for telegram id %s", tid)
		h.CreateResponse(w, Response{Code: http.StatusForbidden, Error: "forbidden"})
	})
}

type adminStatsData struct {
	Stats              *store.Stats         `json:"stats"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
}

func (h *Handler) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Collect(r.Context())
	if err != nil {
		log.Errorf("collect stats: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to collect stats"})
		return
	}
	recent, err := h.transactions.ListRecent(r.Context(), 10)
	if err != nil {
		log.Errorf("list recent transactions: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to collect stats"})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK,
		Data: adminStatsData{Stats: stats, RecentTransactions: recent}})
}

type roundSettingsData struct {
	Applied bool `json:"applied"` // false means staged for the next round
}

func (h *Handler) AdminRoundSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var patch engine.ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	if patch.MaxParticipants == nil && patch.MinBet == nil && patch.FeePercent == nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "no settings given"})
		return
	}
	if patch.MaxParticipants != nil && *patch.MaxParticipants < 2 {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "max_participants must be at least 2"})
		return
	}
	if patch.MinBet != nil && (!patch.MinBet.IsPositive() || !patch.MinBet.IsInteger()) {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "min_bet must be a positive whole number of stars"})
		return
	}
	if patch.FeePercent != nil &&
		(patch.FeePercent.IsNegative() || patch.FeePercent.GreaterThanOrEqual(decimal.NewFromInt(100))) {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "fee_percent must be between 0 and 100"})
		return
	}

	applied, err := h.scheduler.AdjustConfig(r.Context(), patch)
	if err != nil {
		log.Errorf("adjust round config: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to update settings"})
		return
	}
	msg := "settings applied to current round"
	if !applied {
		msg = "settings staged for the next round"
	}
	h.CreateResponse(w, Response{Message: msg, Code: http.StatusOK, Data: roundSettingsData{Applied: applied}})
}

func (h *Handler) AdminCancelRoundHandler(w http.ResponseWriter, r *http.Request) {
	next, err := h.scheduler.CancelRound(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrRoundClosed) {
			h.CreateResponse(w, Response{Code: http.StatusConflict, Error: err.Error()})
			return
		}
		log.Errorf("cancel round: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to cancel round"})
		return
	}
	h.CreateResponse(w, Response{Message: "round cancelled, bets refunded", Code: http.StatusOK, Data: next})
}

type adjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

func (h *Handler) AdminAdjustBalanceHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid user id"})
		return
	}
	var req adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount.IsZero() {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "non-zero amount is required"})
		return
	}

	balance, err := h.users.AdjustBalance(r.Context(), uid, req.Amount, req.Note)
	if err != nil {
		log.Errorf("adjust balance for user %d: %v", uid, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to adjust balance"})
		return
	}
	h.CreateResponse(w, Response{Message: "balance adjusted", Code: http.StatusOK, Data: map[string]interface{}{"balance": balance}})
}

func (h *Handler) AdminCreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	if t.Title == "" || !t.Reward.IsPositive() {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "title and a positive reward are required"})
		return
	}

	created, err := h.tasks.CreateTask(r.Context(), t)
	if err != nil {
		log.Errorf("create task: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to create task"})
		return
	}
	h.CreateResponse(w, Response{Message: "task created", Code: http.StatusOK, Data: created})
}
