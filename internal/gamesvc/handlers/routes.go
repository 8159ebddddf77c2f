package handlers

import (
	"github.com/avvvet/numbet-services/internal/auth"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Get("/health", h.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {

		// public routes here
		r.Post("/register", h.Register)
		r.Post("/verify-otp", h.VerifyOTP)
		r.Post("/login", h.Login)
		r.Post("/send-otp", h.SendOTP)
		r.Post("/reset-password", h.ResetPassword)
		r.Post("/admin-login", h.AdminLogin)

		r.Get("/users/{userId}", h.GetUser)
		r.Get("/user/{userId}", h.UserStats)
		r.Get("/get-transactiondetails/{userId}", h.TransactionDetails)

		r.Post("/bets", h.PlaceBet)
		r.Get("/bets", h.ListBets)

		r.Get("/get-gameId", h.GetGameID)
		r.Get("/games/winning-numbers/{gameId}", h.WinningNumbers)
		r.Get("/get-gamedata", h.GameData)
		r.Get("/get-game-qr", h.GameQR)
		r.Get("/game-status/{gameId}", h.GameStatus)

		r.Post("/deposit", h.SubmitDeposit)
		r.Post("/withdrawal/banktransfer", h.BankTransferWithdrawal())
		r.Post("/withdrawal/upitransaction", h.UPIWithdrawal())

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)
			r.Use(auth.RequireAdmin)

			r.Post("/game-create", h.CreateGame)
			r.Put("/update-game-details", h.UpdateGameDetails)
			r.Put("/update-game-qr-only", h.UpdateGameQR)
			r.Put("/admin/draw-number", h.DrawNumber)
			r.Put("/admin/process-winners", h.ProcessWinners)

			r.Get("/get-deposits", h.PendingDeposits)
			r.Post("/deposit/{depositId}/approved", h.ApproveDeposit)
			r.Post("/deposit/{depositId}/rejected", h.RejectDeposit)

			r.Get("/withdrawal/get-data", h.PendingWithdrawals)
			r.Post("/withdrawal/{withdrawalReqId}/approved", h.ApproveWithdrawal)
			r.Post("/withdrawal/{withdrawalReqId}/rejected", h.RejectWithdrawal)
		})
	})
}
