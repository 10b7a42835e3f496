package profile

import "github.com/libertypfc/Hockeybot-sub000/internals/store"

// Profile is a player's status, current contract and affiliation history.
type Profile struct {
	Player   store.Player         `json:"player"`
	Contract *store.Contract      `json:"contract,omitempty"`
	Waiver   *store.Waiver        `json:"waiver,omitempty"`
	History  []store.StatusChange `json:"history"`
}
