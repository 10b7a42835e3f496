// Package store defines the persisted roster records and the repository the
// engine reads and writes them through.
package store

import (
	"context"
	"time"
)

// Store runs units of work. Every engine operation is exactly one call to Tx:
// either everything fn wrote commits, or nothing does.
type Store interface {
	// Tx runs fn as a read-write unit. Locks taken through LockTeams and
	// LockPlayers are held until fn returns.
	Tx(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the repository surface available inside a unit of work. Finders
// return an errs NotFound error when the record does not exist.
//
// Only team and player rows are locked. A unit of work takes every team it
// needs first and then every player, each in one call, so all operations
// acquire locks in the same global order. Finders do not lock: a record read
// before its locks were taken must be read again afterwards. Updating a team
// needs its lock; updating a player, or a contract or waiver of that player,
// needs the player's lock; updating a trade proposal needs both teams' locks.
type Tx interface {
	Team(id string) (Team, error)
	// LockTeams loads the given teams, acquiring them in increasing id order.
	LockTeams(ids ...string) ([]Team, error)
	Teams() ([]Team, error)
	SaveTeam(t *Team) error

	Player(id string) (Player, error)
	// LockPlayers loads the given players, acquiring them in increasing id
	// order. Returned in that order.
	LockPlayers(ids ...string) ([]Player, error)
	PlayerByExternalID(externalID string) (Player, error)
	TeamRoster(teamID string) ([]Player, error)
	CountExempt(teamID string) (int, error)
	SavePlayer(p *Player) error

	Contract(id string) (Contract, error)
	FindActiveContract(playerID string) (Contract, error)
	// FindOpenContract returns the player's pending or active contract.
	FindOpenContract(playerID string) (Contract, error)
	ActiveContractsForTeam(teamID string) ([]Contract, error)
	PendingOffersBefore(t time.Time) ([]Contract, error)
	SaveContract(c *Contract) error

	TradeProposal(id string) (TradeProposal, error)
	// OpenProposals returns pending and accepted proposals.
	OpenProposals() ([]TradeProposal, error)
	SaveTradeProposal(p *TradeProposal) error

	Waiver(id string) (Waiver, error)
	ActiveWaiverForPlayer(playerID string) (Waiver, error)
	// DueWaivers returns active waivers whose window ended at or before t.
	DueWaivers(t time.Time) ([]Waiver, error)
	SaveWaiver(w *Waiver) error

	AppendStatusChange(c *StatusChange) error
	StatusHistory(playerID string) ([]StatusChange, error)
}
