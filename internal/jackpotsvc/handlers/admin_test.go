package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/engine"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/random"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/store"
)

type stubStats struct {
	stats *store.Stats
}

func (s stubStats) Collect(ctx context.Context) (*store.Stats, error) {
	return s.stats, nil
}

type stubTransactions struct {
	recent []models.Transaction
}

func (s stubTransactions) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	return nil, nil
}

func (s stubTransactions) ListRecent(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit < len(s.recent) {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func TestAdminStatsHandler(t *testing.T) {
	h := &Handler{
		stats: stubStats{stats: &store.Stats{UsersCount: 3, CompletedRoundsCount: 2}},
		transactions: stubTransactions{recent: []models.Transaction{
			{ID: 12, UserID: 1, TType: "win", Amount: decimal.RequireFromString("5.70")},
			{ID: 11, UserID: 2, TType: "bet", Amount: decimal.NewFromInt(1)},
		}},
	}

	w := httptest.NewRecorder()
	h.AdminStatsHandler(w, httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var rsp struct {
		Data struct {
			Stats struct {
				UsersCount int64 `json:"users_count"`
			} `json:"stats"`
			RecentTransactions []models.Transaction `json:"recent_transactions"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&rsp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rsp.Data.Stats.UsersCount != 3 {
		t.Fatalf("users_count = %d, want 3", rsp.Data.Stats.UsersCount)
	}
	if len(rsp.Data.RecentTransactions) != 2 || rsp.Data.RecentTransactions[0].ID != 12 {
		t.Fatalf("recent transactions = %+v", rsp.Data.RecentTransactions)
	}
}

func TestAdminRoundSettingsHandler(t *testing.T) {
	t.Run("rejects unusable settings", func(t *testing.T) {
		h := &Handler{}
		for _, body := range []string{
			`{}`,
			`{"max_participants":0}`,
			`{"max_participants":1}`,
			`{"min_bet":"0"}`,
			`{"min_bet":"-1"}`,
			`{"min_bet":"1.5"}`,
			`{"fee_percent":"-2"}`,
			`{"fee_percent":"100"}`,
		} {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPut, "/v1/admin/rounds/settings", strings.NewReader(body))
			h.AdminRoundSettingsHandler(w, r)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("body %s: status = %d, want 400", body, w.Code)
			}
		}
	})

	t.Run("applies a valid patch to an empty round", func(t *testing.T) {
		sch := engine.NewScheduler(engine.NewMemoryLedger(), random.NewSeedSourceFrom("settings", 0),
			models.RoundConfig{
				MaxParticipants: 5,
				MinBet:          decimal.NewFromInt(1),
				FeePercent:      decimal.NewFromInt(5),
			})
		h := &Handler{scheduler: sch}

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/v1/admin/rounds/settings",
			strings.NewReader(`{"max_participants":8,"fee_percent":"7"}`))
		h.AdminRoundSettingsHandler(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var rsp struct {
			Data roundSettingsData `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&rsp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !rsp.Data.Applied {
			t.Fatal("patch on an empty round should apply immediately")
		}
		round, err := sch.ActiveRound(r.Context())
		if err != nil {
			t.Fatalf("ActiveRound: %v", err)
		}
		if round.MaxParticipants != 8 || !round.FeePercent.Equal(decimal.NewFromInt(7)) {
			t.Fatalf("round config = %+v", round.Config())
		}
	})
}
