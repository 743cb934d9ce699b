package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes
		r.Get("/health", h.HealthHandler)
		r.Post("/auth/telegram", h.TelegramAuthHandler)
		r.Get("/rounds/current", h.CurrentRoundHandler)
		r.Get("/rounds/history", h.RoundHistoryHandler)
		r.Get("/rounds/verify", h.VerifyDrawHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/auth/verify", h.AuthVerifyHandler)

			r.Post("/rounds/bet", h.PlaceBetHandler)

			r.Get("/users/me", h.ProfileHandler)
			r.Put("/users/me/settings", h.UpdateSettingsHandler)
			r.Get("/users/me/referral", h.ReferralInfoHandler)
			r.Post("/users/me/referral", h.UseReferralHandler)
			r.Get("/users/me/transactions", h.TransactionsHandler)

			r.Get("/tasks", h.ListTasksHandler)
			r.Post("/tasks/{taskID}/complete", h.CompleteTaskHandler)

			r.Post("/payments/orders", h.CreateOrderHandler)
			r.Post("/payments/orders/{orderID}/confirm", h.ConfirmOrderHandler)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)
			r.Use(h.AdminOnly)

			r.Get("/admin/stats", h.AdminStatsHandler)
			r.Put("/admin/rounds/settings", h.AdminRoundSettingsHandler)
			r.Post("/admin/rounds/cancel", h.AdminCancelRoundHandler)
			r.Post("/admin/users/{userID}/balance", h.AdminAdjustBalanceHandler)
			r.Post("/admin/tasks", h.AdminCreateTaskHandler)
		})
	})
}

func (h *Handler) InitAuth() {
	h.tokenAuth = jwtauth.New("HS256", []byte(h.cfg.JWTSecret), nil)
}

// tokenTTL is how long an issued session token stays valid.
const tokenTTL = 30 * 24 * time.Hour
