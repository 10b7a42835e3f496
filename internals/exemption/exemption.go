// Package exemption manages the per-team list of players whose salary does
// not count against the cap ceiling.
package exemption

import (
	"context"

	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/capledger"
	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/status"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
)

type ExemptionService struct {
	env *env.Env
}

func New(e *env.Env) *ExemptionService {
	return &ExemptionService{env: e}
}

// SetExempt flips a signed player's exemption. Granting it credits the team
// with the player's salary; revoking it charges the salary again and so
// needs the cap room.
func (es *ExemptionService) SetExempt(ctx context.Context, actor auth.Actor, playerID string, exempt bool) (store.Player, error) {
	var player store.Player
	err := es.env.Run(ctx, "set_exempt", func(tx store.Tx) ([]feed.Event, error) {
		p, err := status.LockSigned(tx, playerID, "exempt")
		if err != nil {
			return nil, err
		}
		teamID := p.CurrentTeam()
		if !actor.CanActFor(teamID) {
			return nil, errs.New(errs.Unauthorized, "%s cannot change exemptions of team %s", actor.ID, teamID)
		}
		if p.Exempt == exempt {
			player = p
			return nil, nil
		}
		var salary int64
		if c, err := tx.FindActiveContract(p.ID); err == nil {
			salary = c.Salary
		} else if errs.KindOf(err) != errs.NotFound {
			return nil, err
		}

		if exempt {
			n, err := tx.CountExempt(teamID)
			if err != nil {
				return nil, err
			}
			if n >= es.env.Rules.MaxExempt {
				return nil, &errs.Error{Kind: errs.ExemptionLimitReached, Entity: "team", ID: teamID, Msg: "already has the maximum number of exempt players"}
			}
		} else {
			ok, err := capledger.CanAfford(tx, teamID, salary)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &errs.Error{Kind: errs.InsufficientCap, Entity: "team", ID: teamID, Msg: "cannot take the salary back under the cap"}
			}
		}

		p.Exempt = exempt
		if err := tx.SavePlayer(&p); err != nil {
			return nil, err
		}
		delta := salary
		if !exempt {
			delta = -salary
		}
		if err := capledger.Adjust(tx, teamID, delta); err != nil {
			return nil, err
		}
		player = p
		return []feed.Event{{
			Kind:     feed.ExemptionChanged,
			TeamIDs:  []string{teamID},
			PlayerID: p.ID,
			Actor:    actor.ID,
			At:       es.env.Clock(),
		}}, nil
	})
	return player, err
}

// Exempt lists a team's exempt players.
func (es *ExemptionService) Exempt(ctx context.Context, teamID string) ([]store.Player, error) {
	var out []store.Player
	err := es.env.Store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.Team(teamID); err != nil {
			return err
		}
		roster, err := tx.TeamRoster(teamID)
		if err != nil {
			return err
		}
		for _, p := range roster {
			if p.Exempt {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}
