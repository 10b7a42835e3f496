package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/libertypfc/Hockeybot-sub000/internals/waivers"
)

func (app *App) ReleasePlayer(w http.ResponseWriter, r *http.Request) {
	waiver, err := app.Waivers.Release(r.Context(), actorFrom(r), chi.URLParam(r, "playerID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusCreated, waiver)
}

func (app *App) GetWaiver(w http.ResponseWriter, r *http.Request) {
	waiver, err := app.Waivers.Get(r.Context(), chi.URLParam(r, "waiverID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, waiver)
}

func (app *App) ClaimWaiver(w http.ResponseWriter, r *http.Request) {
	var body waivers.ClaimRequest
	if err := getBody(r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	contract, err := app.Waivers.Claim(r.Context(), actorFrom(r), chi.URLParam(r, "waiverID"), body)
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusCreated, contract)
}

type exemptBody struct {
	Exempt *bool `json:"exempt"`
}

func (app *App) SetExempt(w http.ResponseWriter, r *http.Request) {
	var body exemptBody
	if err := getBody(r, &body); err != nil || body.Exempt == nil {
		badRequest(w, "exempt is required")
		return
	}

	player, err := app.Exemption.SetExempt(r.Context(), actorFrom(r), chi.URLParam(r, "playerID"), *body.Exempt)
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, player)
}

func (app *App) GetExempt(w http.ResponseWriter, r *http.Request) {
	players, err := app.Exemption.Exempt(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, players)
}

func (app *App) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	sendData(w, http.StatusOK, app.Scheduler.RunOnce(r.Context()))
}

func (app *App) Reconcile(w http.ResponseWriter, r *http.Request) {
	if teamID := r.URL.Query().Get("team_id"); teamID != "" {
		corrected, err := app.Ledger.Reconcile(r.Context(), teamID)
		if err != nil {
			sendError(w, err)
			return
		}
		sendData(w, http.StatusOK, map[string]interface{}{"team_id": teamID, "corrected": corrected})
		return
	}

	corrected, err := app.Ledger.ReconcileAll(r.Context())
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, map[string]interface{}{"corrected": corrected})
}
