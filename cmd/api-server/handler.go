package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *App) initHandlers() {
	app.R.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("I am Healthy"))
	})
	app.R.Handle("/metrics", promhttp.HandlerFor(app.Metrics, promhttp.HandlerOpts{}))
	app.R.Get("/ws/transactions", app.handleWebSocket)

	app.R.Group(func(r chi.Router) {
		r.Use(app.Middleware)

		r.Post("/auth/logout", app.Logout)

		r.Get("/teams", app.ListTeams)
		r.Get("/teams/{teamID}/cap", app.GetCapSummary)
		r.Get("/teams/{teamID}/roster", app.GetRoster)
		r.Get("/teams/{teamID}/exempt", app.GetExempt)

		r.Post("/players", app.RegisterPlayer)
		r.Get("/players/{playerID}", app.GetProfile)
		r.Get("/players/external/{externalID}", app.GetProfileByExternalID)
		r.Post("/players/{playerID}/release", app.ReleasePlayer)
		r.Put("/players/{playerID}/exempt", app.SetExempt)

		r.Post("/contracts/offer", app.OfferContract)
		r.Post("/contracts/elc", app.OfferELC)
		r.Get("/contracts/{contractID}", app.GetContract)
		r.Post("/contracts/{contractID}/accept", app.AcceptContract)
		r.Post("/contracts/{contractID}/reject", app.RejectContract)
		r.Post("/contracts/{contractID}/withdraw", app.WithdrawContract)
		r.Post("/contracts/{contractID}/expire", app.ExpireContract)

		r.Post("/trades", app.ProposeTrade)
		r.Get("/trades", app.OpenTrades)
		r.Get("/trades/{proposalID}", app.GetTrade)
		r.Post("/trades/{proposalID}/accept", app.AcceptTrade)
		r.Post("/trades/{proposalID}/reject", app.RejectTrade)
		r.Post("/trades/{proposalID}/approve", app.ApproveTrade)
		r.Post("/trades/{proposalID}/deny", app.DenyTrade)

		r.Post("/selections", app.BeginSelection)
		r.Post("/selections/{selectionID}/items", app.AddToSelection)
		r.Post("/selections/{selectionID}/trade", app.ProposeFromSelection)
		r.Delete("/selections/{selectionID}", app.CancelSelection)

		r.Get("/waivers/{waiverID}", app.GetWaiver)
		r.Post("/waivers/{waiverID}/claim", app.ClaimWaiver)

		r.Get("/leaderboard", app.GetLeaderboard)
		r.Get("/transactions", app.RecentTransactions)

		r.Group(func(r chi.Router) {
			r.Use(AdminOnly)
			r.Post("/auth/token", app.IssueToken)
			r.Post("/teams", app.CreateTeam)
			r.Post("/admin/sweep", app.RunMaintenance)
			r.Post("/admin/reconcile", app.Reconcile)
		})
	})
}
