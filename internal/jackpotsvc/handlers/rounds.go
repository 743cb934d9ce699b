package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/engine"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/random"
)

func (h *Handler) CurrentRoundHandler(w http.ResponseWriter, r *http.Request) {
	round, err := h.scheduler.ActiveRound(r.Context())
	if err != nil {
		log.Errorf("current round: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to load round"})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: round})
}

func (h *Handler) RoundHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rounds, err := h.scheduler.History(r.Context(), limit)
	if err != nil {
		log.Errorf("round history: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to load history"})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: rounds})
}

type placeBetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) PlaceBetHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	receipt, err := h.scheduler.PlaceBet(r.Context(), uid, req.Amount)
	if err != nil {
		h.CreateResponse(w, Response{Code: betErrorCode(err), Error: err.Error()})
		return
	}
	h.CreateResponse(w, Response{Message: "bet placed", Code: http.StatusOK, Data: receipt})
}

func betErrorCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrBetTooSmall), errors.Is(err, engine.ErrTooManyBets):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrRoundClosed), errors.Is(err, engine.ErrRoundCancelled):
		return http.StatusConflict
	case errors.Is(err, engine.ErrRoundHalted):
		return http.StatusServiceUnavailable
	}
	log.Errorf("place bet: %v", err)
	return http.StatusInternalServerError
}

type verifyData struct {
	VerificationHash string `json:"verification_hash"`
	ProofValid       bool   `json:"proof_valid"`
}

// VerifyDrawHandler lets anyone recompute a completed round's outcome from
// the published proof.
func (h *Handler) VerifyDrawHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roundNumber, err1 := strconv.ParseInt(q.Get("round_number"), 10, 64)
	totalTickets, err2 := strconv.ParseInt(q.Get("total_tickets"), 10, 64)
	winningTicket, err3 := strconv.ParseInt(q.Get("winning_ticket"), 10, 64)
	proof := q.Get("proof")
	if err1 != nil || err2 != nil || err3 != nil || proof == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "round_number, total_tickets, winning_ticket and proof are required"})
		return
	}

	h.CreateResponse(w, Response{
		Message: "ok",
		Code:    http.StatusOK,
		Data: verifyData{
			VerificationHash: engine.VerificationHash(roundNumber, totalTickets, winningTicket, proof),
			ProofValid:       random.Verify(proof, 1, totalTickets, winningTicket),
		},
	})
}
