// Package status is the player affiliation state machine. It is the only
// code that changes Player.Status and Player.TeamID, and every change it
// makes is recorded in the player's status history.
package status

import (
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
)

const (
	ReasonContract = "contract_accepted"
	ReasonRelease  = "released"
	ReasonClaim    = "waiver_claimed"
	ReasonCleared  = "waivers_cleared"
	ReasonTrade    = "traded"
)

var transitions = map[store.PlayerStatus][]store.PlayerStatus{
	store.FreeAgent: {store.Signed},
	store.Signed:    {store.OnWaivers, store.Signed},
	store.OnWaivers: {store.Signed, store.FreeAgent},
}

func Allowed(from, to store.PlayerStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func check(p *store.Player, to store.PlayerStatus) error {
	if !Allowed(p.Status, to) {
		return errs.Transition("player", p.ID, string(p.Status), string(to))
	}
	return nil
}

func apply(tx store.Tx, p *store.Player, to store.PlayerStatus, teamID, reason string, at time.Time) error {
	from := p.Status
	p.Status = to
	if teamID == "" {
		p.TeamID = nil
	} else {
		id := teamID
		p.TeamID = &id
	}
	if err := tx.SavePlayer(p); err != nil {
		return err
	}
	return tx.AppendStatusChange(&store.StatusChange{
		PlayerID:   p.ID,
		FromStatus: from,
		ToStatus:   to,
		TeamID:     teamID,
		Reason:     reason,
		At:         at,
	})
}

// Sign moves a free agent or waived player onto teamID. Signing starts
// without an exemption.
func Sign(tx store.Tx, p *store.Player, teamID, reason string, at time.Time) error {
	if p.Status == store.Signed {
		return errs.Transition("player", p.ID, string(p.Status), string(store.Signed))
	}
	if err := check(p, store.Signed); err != nil {
		return err
	}
	p.Exempt = false
	return apply(tx, p, store.Signed, teamID, reason, at)
}

// Waive releases a signed player to waivers, dropping team and exemption.
func Waive(tx store.Tx, p *store.Player, at time.Time) error {
	if err := check(p, store.OnWaivers); err != nil {
		return err
	}
	p.Exempt = false
	return apply(tx, p, store.OnWaivers, "", ReasonRelease, at)
}

// Clear returns an unclaimed waived player to free agency.
func Clear(tx store.Tx, p *store.Player, at time.Time) error {
	if err := check(p, store.FreeAgent); err != nil {
		return err
	}
	return apply(tx, p, store.FreeAgent, "", ReasonCleared, at)
}

// Move changes a signed player's team. Only an approved trade does this; the
// exemption flag travels with the player.
func Move(tx store.Tx, p *store.Player, toTeamID string, at time.Time) error {
	if p.Status != store.Signed || toTeamID == "" || p.CurrentTeam() == toTeamID {
		return errs.Transition("player", p.ID, string(p.Status), string(store.Signed))
	}
	return apply(tx, p, store.Signed, toTeamID, ReasonTrade, at)
}

// LockSigned locks a signed player's team and then the player, and returns
// the player as it stands under both locks. action names the intended change
// in the error when the player is not signed.
func LockSigned(tx store.Tx, playerID, action string) (store.Player, error) {
	p, err := tx.Player(playerID)
	if err != nil {
		return p, err
	}
	if p.Status != store.Signed {
		return p, errs.Transition("player", p.ID, string(p.Status), action)
	}
	teamID := p.CurrentTeam()
	if _, err := tx.LockTeams(teamID); err != nil {
		return p, err
	}
	players, err := tx.LockPlayers(playerID)
	if err != nil {
		return p, err
	}
	p = players[0]
	if p.Status != store.Signed {
		return p, errs.Transition("player", p.ID, string(p.Status), action)
	}
	if p.CurrentTeam() != teamID {
		return p, &errs.Error{Kind: errs.StalePrecondition, Entity: "player", ID: p.ID, Msg: "changed teams, try again"}
	}
	return p, nil
}
