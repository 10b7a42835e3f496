package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/libertypfc/Hockeybot-sub000/internals/trade"
)

func (app *App) ProposeTrade(w http.ResponseWriter, r *http.Request) {
	var body trade.ProposeRequest
	if err := getBody(r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	proposal, err := app.Trade.Propose(r.Context(), actorFrom(r), body)
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusCreated, proposal)
}

func (app *App) OpenTrades(w http.ResponseWriter, r *http.Request) {
	proposals, err := app.Trade.Open(r.Context())
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, proposals)
}

func (app *App) GetTrade(w http.ResponseWriter, r *http.Request) {
	proposal, err := app.Trade.Get(r.Context(), chi.URLParam(r, "proposalID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, proposal)
}

type tradeAction func(ctx context.Context, actor auth.Actor, proposalID string) (store.TradeProposal, error)

func (app *App) stepTrade(w http.ResponseWriter, r *http.Request, action tradeAction) {
	proposal, err := action(r.Context(), actorFrom(r), chi.URLParam(r, "proposalID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, proposal)
}

func (app *App) AcceptTrade(w http.ResponseWriter, r *http.Request) {
	app.stepTrade(w, r, app.Trade.Accept)
}

func (app *App) RejectTrade(w http.ResponseWriter, r *http.Request) {
	app.stepTrade(w, r, app.Trade.Reject)
}

func (app *App) ApproveTrade(w http.ResponseWriter, r *http.Request) {
	app.stepTrade(w, r, app.Trade.Approve)
}

func (app *App) DenyTrade(w http.ResponseWriter, r *http.Request) {
	app.stepTrade(w, r, app.Trade.Deny)
}

type beginSelectionBody struct {
	Purpose string `json:"purpose"`
}

type selectionItemBody struct {
	PlayerID string `json:"player_id"`
}

// selectionTradeBody completes a pick list into a proposal. The picked players
// are the outgoing side.
type selectionTradeBody struct {
	FromTeamID string   `json:"from_team_id"`
	ToTeamID   string   `json:"to_team_id"`
	Incoming   []string `json:"incoming"`
	MessageRef string   `json:"message_ref"`
}

func (app *App) BeginSelection(w http.ResponseWriter, r *http.Request) {
	var body beginSelectionBody
	if err := getBody(r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	sel, err := app.Selection.Begin(actorFrom(r), body.Purpose)
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusCreated, sel)
}

func (app *App) AddToSelection(w http.ResponseWriter, r *http.Request) {
	var body selectionItemBody
	if err := getBody(r, &body); err != nil || body.PlayerID == "" {
		badRequest(w, "player_id is required")
		return
	}

	if err := app.Selection.Add(actorFrom(r), chi.URLParam(r, "selectionID"), body.PlayerID); err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, map[string]interface{}{"message": "Player added"})
}

func (app *App) ProposeFromSelection(w http.ResponseWriter, r *http.Request) {
	var body selectionTradeBody
	if err := getBody(r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	actor := actorFrom(r)
	sel, err := app.Selection.Finish(actor, chi.URLParam(r, "selectionID"))
	if err != nil {
		sendError(w, err)
		return
	}

	proposal, err := app.Trade.Propose(r.Context(), actor, trade.ProposeRequest{
		FromTeamID: body.FromTeamID,
		ToTeamID:   body.ToTeamID,
		Outgoing:   sel.Items,
		Incoming:   body.Incoming,
		MessageRef: body.MessageRef,
	})
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusCreated, proposal)
}

func (app *App) CancelSelection(w http.ResponseWriter, r *http.Request) {
	if err := app.Selection.Cancel(actorFrom(r), chi.URLParam(r, "selectionID")); err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, map[string]interface{}{"message": "Selection cancelled"})
}
