package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/rs/zerolog/log"
)

var (
	ErrCouldNotParseBody = errors.New("could not parse request body")
	ErrCouldNotReadBody  = errors.New("could not read request body")
)

type httpResp struct {
	Status  int         `json:"status"`
	IsError bool        `json:"is_error"`
	Kind    errs.Kind   `json:"kind,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func getBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return ErrCouldNotReadBody
	}
	err = json.Unmarshal(body, v)
	if err != nil {
		return ErrCouldNotParseBody
	}
	return nil
}

func sendResponse(rw http.ResponseWriter, resp httpResp) {
	out, err := json.Marshal(resp)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		rw.Write([]byte(`{"status": 500, "is_error": true, "error": "could not marshal response"}`))
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(resp.Status)
	rw.Write(out)
}

func sendData(rw http.ResponseWriter, status int, data interface{}) {
	sendResponse(rw, httpResp{Status: status, Data: data})
}

func badRequest(rw http.ResponseWriter, msg string) {
	sendResponse(rw, httpResp{Status: http.StatusBadRequest, IsError: true, Kind: errs.InvalidArgument, Error: msg})
}

var kindStatus = map[errs.Kind]int{
	errs.NotFound:                   http.StatusNotFound,
	errs.InvalidArgument:            http.StatusBadRequest,
	errs.InvalidStateTransition:     http.StatusConflict,
	errs.InsufficientCap:            http.StatusUnprocessableEntity,
	errs.ExemptionLimitReached:      http.StatusUnprocessableEntity,
	errs.PlayerAlreadyUnderContract: http.StatusConflict,
	errs.OfferExpired:               http.StatusGone,
	errs.StalePrecondition:          http.StatusConflict,
	errs.Timeout:                    http.StatusRequestTimeout,
	errs.Unauthorized:               http.StatusForbidden,
}

// sendError maps engine error kinds onto HTTP statuses. Anything untyped is
// an infrastructure failure and its text is not exposed.
func sendError(rw http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Error().Err(err).Msg("request failed")
		sendResponse(rw, httpResp{Status: http.StatusInternalServerError, IsError: true, Error: "internal error"})
		return
	}
	sendResponse(rw, httpResp{Status: status, IsError: true, Kind: kind, Error: err.Error()})
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
