package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/libertypfc/Hockeybot-sub000/internals/league"
)

func (app *App) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var body league.CreateTeamRequestBody
	if err := getBody(r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	team, err := app.League.CreateTeam(r.Context(), actorFrom(r), body)
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusCreated, team)
}

func (app *App) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := app.League.Teams(r.Context())
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, teams)
}

func (app *App) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var body league.RegisterPlayerRequestBody
	if err := getBody(r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	player, err := app.League.RegisterPlayer(r.Context(), actorFrom(r), body)
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusCreated, player)
}

func (app *App) GetCapSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := app.Cache.CapSummary(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, summary)
}

func (app *App) GetRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := app.Roster.TeamRoster(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, roster)
}

func (app *App) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	load := app.Leaderboard.CapTable
	if r.URL.Query().Get("below_floor") == "true" {
		load = app.Leaderboard.BelowFloor
	}
	table, err := load(r.Context())
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, table)
}

func (app *App) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := app.Profile.GetProfile(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, profile)
}

func (app *App) GetProfileByExternalID(w http.ResponseWriter, r *http.Request) {
	profile, err := app.Profile.GetProfileByExternalID(r.Context(), chi.URLParam(r, "externalID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, profile)
}
