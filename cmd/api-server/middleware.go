package main

import (
	"context"
	"net/http"

	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
)

type ctxKey string

const (
	actorKey ctxKey = "actor"
	tokenKey ctxKey = "token"
)

func unauthorized(w http.ResponseWriter) {
	sendResponse(w, httpResp{Status: http.StatusUnauthorized, IsError: true, Error: "Unauthorized"})
}

// Middleware resolves the bearer token into the acting party.
func (app *App) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		var token string
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
		if token == "" {
			unauthorized(w)
			return
		}

		actor, err := app.Auth.ValidateToken(token)
		if err != nil {
			unauthorized(w)
			return
		}
		if !app.Auth.CheckIfTokenIsWhiteListed(actor.ID, token) {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly must run after Middleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r).Admin {
			sendError(w, errs.New(errs.Unauthorized, "league administrators only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFrom(r *http.Request) auth.Actor {
	actor, _ := r.Context().Value(actorKey).(auth.Actor)
	return actor
}
