// Package errs holds the typed failures returned by the roster engine.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable failure category.
type Kind string

const (
	NotFound                   Kind = "NOT_FOUND"
	InvalidArgument            Kind = "INVALID_ARGUMENT"
	InvalidStateTransition     Kind = "INVALID_STATE_TRANSITION"
	InsufficientCap            Kind = "INSUFFICIENT_CAP"
	ExemptionLimitReached      Kind = "EXEMPTION_LIMIT_REACHED"
	PlayerAlreadyUnderContract Kind = "PLAYER_ALREADY_UNDER_CONTRACT"
	OfferExpired               Kind = "OFFER_EXPIRED"
	StalePrecondition          Kind = "STALE_PRECONDITION"
	Timeout                    Kind = "TIMEOUT"
	Unauthorized               Kind = "UNAUTHORIZED"
)

// Error is a business-rule rejection. Entity and ID name the record involved
// when there is one.
type Error struct {
	Kind   Kind
	Entity string
	ID     string
	Msg    string
}

func (e *Error) Error() string {
	switch {
	case e.Entity != "" && e.ID != "":
		return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Msg)
	case e.Entity != "":
		return fmt.Sprintf("%s: %s", e.Entity, e.Msg)
	}
	return e.Msg
}

// Is reports whether target is an *Error of the same kind, so callers can
// write errors.Is(err, errs.ErrInsufficientCap).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound                   = &Error{Kind: NotFound, Msg: "not found"}
	ErrInvalidArgument            = &Error{Kind: InvalidArgument, Msg: "invalid argument"}
	ErrInvalidStateTransition     = &Error{Kind: InvalidStateTransition, Msg: "invalid state transition"}
	ErrInsufficientCap            = &Error{Kind: InsufficientCap, Msg: "insufficient cap"}
	ErrExemptionLimitReached      = &Error{Kind: ExemptionLimitReached, Msg: "exemption limit reached"}
	ErrPlayerAlreadyUnderContract = &Error{Kind: PlayerAlreadyUnderContract, Msg: "player already under contract"}
	ErrOfferExpired               = &Error{Kind: OfferExpired, Msg: "offer expired"}
	ErrStalePrecondition          = &Error{Kind: StalePrecondition, Msg: "stale precondition"}
	ErrTimeout                    = &Error{Kind: Timeout, Msg: "timed out"}
	ErrUnauthorized               = &Error{Kind: Unauthorized, Msg: "unauthorized"}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(entity, id string) *Error {
	return &Error{Kind: NotFound, Entity: entity, ID: id, Msg: "not found"}
}

// TeamNotFound is the NotFound flavour raised when an operation names a team
// that does not exist.
func TeamNotFound(id string) *Error { return NotFoundf("team", id) }

func Transition(entity, id, from, to string) *Error {
	return &Error{
		Kind:   InvalidStateTransition,
		Entity: entity,
		ID:     id,
		Msg:    fmt.Sprintf("cannot move from %s to %s", from, to),
	}
}

// KindOf returns the kind carried by err, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
