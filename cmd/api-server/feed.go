package main

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// enqueue runs inside Bus.Publish and must not block the committing request.
func (app *App) enqueue(evt feed.Event) {
	select {
	case app.events <- evt:
	default:
		log.Warn().Str("event", string(evt.Kind)).Msg("transaction feed full, dropping event")
	}
}

// broadcast fans committed events out to websocket subscribers until ctx ends.
func (app *App) broadcast(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			app.ClientsM.Lock()
			for conn := range app.WS {
				conn.Close()
			}
			app.ClientsM.Unlock()
			return
		case evt := <-app.events:
			app.ClientsM.Lock()
			for conn, teamID := range app.WS {
				if teamID != "" && !evt.Touches(teamID) {
					continue
				}
				if err := conn.WriteJSON(evt); err != nil {
					log.Debug().Err(err).Msg("dropping websocket subscriber")
					conn.Close()
					delete(app.WS, conn)
				}
			}
			app.ClientsM.Unlock()
		}
	}
}

// handleWebSocket subscribes the caller to the transaction feed, optionally
// narrowed to one team with ?team_id=.
func (app *App) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	app.ClientsM.Lock()
	app.WS[conn] = teamID
	app.ClientsM.Unlock()

	defer func() {
		conn.Close()
		app.ClientsM.Lock()
		delete(app.WS, conn)
		app.ClientsM.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// RecentTransactions returns the latest committed events, filtered by
// ?team_id= when given.
func (app *App) RecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit <= 0 {
		badRequest(w, "limit must be positive")
		return
	}
	teamID := r.URL.Query().Get("team_id")

	events := app.Env.Bus.Recent(limit)
	if teamID != "" {
		filtered := make([]feed.Event, 0, len(events))
		for _, evt := range events {
			if evt.Touches(teamID) {
				filtered = append(filtered, evt)
			}
		}
		events = filtered
	}
	sendData(w, http.StatusOK, events)
}
