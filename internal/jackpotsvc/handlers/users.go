package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/service"
)

func (h *Handler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	profile, err := h.users.Profile(r.Context(), uid)
	if err != nil {
		log.Errorf("profile for user %d: %v", uid, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to load profile"})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: profile})
}

type settingsRequest struct {
	IsAnonymous *bool   `json:"is_anonymous,omitempty"`
	Language    *string `json:"language,omitempty"`
	DarkMode    *bool   `json:"dark_mode,omitempty"`
}

func (h *Handler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	u, err := h.users.UpdateSettings(r.Context(), uid, req.IsAnonymous, req.Language, req.DarkMode)
	if err != nil {
		log.Errorf("update settings for user %d: %v", uid, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to update settings"})
		return
	}
	h.CreateResponse(w, Response{Message: "settings updated", Code: http.StatusOK, Data: u})
}

func (h *Handler) ReferralInfoHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	info, err := h.users.ReferralInfo(r.Context(), uid)
	if err != nil {
		log.Errorf("referral info for user %d: %v", uid, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to load referral info"})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: info})
}

type useReferralRequest struct {
	ReferralCode string `json:"referral_code"`
}

func (h *Handler) UseReferralHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	var req useReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReferralCode == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "referral_code is required"})
		return
	}

	referrer, err := h.users.UseReferral(r.Context(), uid, req.ReferralCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReferralUsed),
			errors.Is(err, service.ErrSelfReferral),
			errors.Is(err, service.ErrReferrerNotFound):
			h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
		default:
			log.Errorf("use referral for user %d: %v", uid, err)
			h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to apply referral"})
		}
		return
	}
	h.CreateResponse(w, Response{Message: "referral applied", Code: http.StatusOK, Data: referrer})
}

func (h *Handler) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txs, err := h.transactions.ListByUser(r.Context(), uid, limit)
	if err != nil {
		log.Errorf("transactions for user %d: %v", uid, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to load transactions"})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: txs})
}
