package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

type telegramAuthRequest struct {
	TelegramID   string `json:"telegram_id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	ReferralCode string `json:"referral_code,omitempty"`
}

type authData struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
	IsNew bool        `json:"is_new"`
}

// TelegramAuthHandler signs a telegram user in, creating the account on
// first contact, and issues the session token.
func (h *Handler) TelegramAuthHandler(w http.ResponseWriter, r *http.Request) {
	var req telegramAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	if req.TelegramID == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "telegram_id is required"})
		return
	}

	u, created, err := h.users.GetOrCreateFromTelegram(r.Context(), req.TelegramID, req.Username, req.FirstName, req.LastName)
	if err != nil {
		log.Errorf("telegram auth: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "authentication failed"})
		return
	}

	if created && req.ReferralCode != "" {
		if _, err := h.users.UseReferral(r.Context(), u.UserID, req.ReferralCode); err != nil {
			log.Warnf("referral code %q for user %d rejected: %v", req.ReferralCode, u.UserID, err)
		}
	}

	_, token, err := h.tokenAuth.Encode(map[string]interface{}{
		"user_id":     u.UserID,
		"telegram_id": u.TelegramID,
		"exp":         time.Now().Add(tokenTTL).Unix(),
	})
	if err != nil {
		log.Errorf("encode token for user %d: %v", u.UserID, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "authentication failed"})
		return
	}

	h.CreateResponse(w, Response{
		Message: "authenticated",
		Code:    http.StatusOK,
		Data:    authData{Token: token, User: u, IsNew: created},
	})
}

// AuthVerifyHandler confirms the token is still good and returns the user.
func (h *Handler) AuthVerifyHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	u, err := h.users.GetByID(r.Context(), uid)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "unknown user"})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: u})
}
