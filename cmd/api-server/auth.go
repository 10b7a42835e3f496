package main

import (
	"net/http"

	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
)

// IssueToken lets an administrator hand out tokens to team agents, other
// administrators and players.
func (app *App) IssueToken(w http.ResponseWriter, r *http.Request) {
	var body auth.TokenRequestBody
	if err := getBody(r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if body.ActorID == "" {
		badRequest(w, "actor_id is required")
		return
	}

	token, err := app.Auth.GenerateToken(auth.Actor{ID: body.ActorID, TeamID: body.TeamID, Admin: body.Admin})
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, map[string]interface{}{"data": token, "message": "Token issued"})
}

func (app *App) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenKey).(string)
	if err := app.Auth.RevokeToken(actorFrom(r).ID, token); err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, map[string]interface{}{"message": "Logged out successfully"})
}
