// Package roster builds the read views of a team: its cap summary and the
// signed players with their salaries.
package roster

import (
	"context"

	"github.com/libertypfc/Hockeybot-sub000/internals/capledger"
	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
)

type RosterService struct {
	env *env.Env
}

func New(e *env.Env) *RosterService {
	return &RosterService{env: e}
}

// Summarize computes teamID's cap summary from contracts, not from the
// cached available cap.
func Summarize(tx store.Tx, teamID string) (CapSummary, error) {
	team, err := tx.Team(teamID)
	if err != nil {
		return CapSummary{}, err
	}
	u, err := capledger.TeamUsage(tx, teamID)
	if err != nil {
		return CapSummary{}, err
	}
	exempt, err := tx.CountExempt(teamID)
	if err != nil {
		return CapSummary{}, err
	}
	return CapSummary{
		TeamID:            team.ID,
		TeamName:          team.Name,
		CapCeiling:        team.CapCeiling,
		CapFloor:          team.CapFloor,
		AvailableCap:      team.CapCeiling - u.Counted,
		TotalActiveSalary: u.Total,
		CountedSalary:     u.Counted,
		ExemptPlayers:     exempt,
		BelowFloor:        u.Total < team.CapFloor,
	}, nil
}

func (rs *RosterService) CapSummary(ctx context.Context, teamID string) (CapSummary, error) {
	var summary CapSummary
	err := rs.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		summary, err = Summarize(tx, teamID)
		return err
	})
	return summary, err
}

func (rs *RosterService) TeamRoster(ctx context.Context, teamID string) (Roster, error) {
	var r Roster
	err := rs.env.Store.View(ctx, func(tx store.Tx) error {
		summary, err := Summarize(tx, teamID)
		if err != nil {
			return err
		}
		players, err := tx.TeamRoster(teamID)
		if err != nil {
			return err
		}
		r = Roster{Summary: summary, Players: make([]RosterEntry, 0, len(players))}
		for _, p := range players {
			entry := RosterEntry{PlayerID: p.ID, ExternalID: p.ExternalID, Name: p.Name, Exempt: p.Exempt}
			if c, err := tx.FindActiveContract(p.ID); err == nil {
				entry.ContractID = c.ID
				entry.Salary = c.Salary
			}
			r.Players = append(r.Players, entry)
		}
		return nil
	})
	return r, err
}
