package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/contracts"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
)

func (app *App) OfferContract(w http.ResponseWriter, r *http.Request) {
	var body contracts.OfferRequest
	if err := getBody(r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	contract, err := app.Contracts.Offer(r.Context(), actorFrom(r), body)
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusCreated, contract)
}

func (app *App) OfferELC(w http.ResponseWriter, r *http.Request) {
	var body contracts.ELCRequest
	if err := getBody(r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	contract, err := app.Contracts.OfferELC(r.Context(), actorFrom(r), body)
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusCreated, contract)
}

func (app *App) GetContract(w http.ResponseWriter, r *http.Request) {
	contract, err := app.Contracts.Get(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, contract)
}

type contractAction func(ctx context.Context, actor auth.Actor, contractID string) (store.Contract, error)

func (app *App) answerContract(w http.ResponseWriter, r *http.Request, action contractAction) {
	contract, err := action(r.Context(), actorFrom(r), chi.URLParam(r, "contractID"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendData(w, http.StatusOK, contract)
}

func (app *App) AcceptContract(w http.ResponseWriter, r *http.Request) {
	app.answerContract(w, r, app.Contracts.Accept)
}

func (app *App) RejectContract(w http.ResponseWriter, r *http.Request) {
	app.answerContract(w, r, app.Contracts.Reject)
}

func (app *App) WithdrawContract(w http.ResponseWriter, r *http.Request) {
	app.answerContract(w, r, app.Contracts.Withdraw)
}

func (app *App) ExpireContract(w http.ResponseWriter, r *http.Request) {
	app.answerContract(w, r, app.Contracts.Expire)
}
