// Package waivers runs the release and claim window for players cut by their
// team. A waiver ends either claimed by another team or cleared by the sweep
// once its window elapses, never both.
package waivers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/capledger"
	"github.com/libertypfc/Hockeybot-sub000/internals/contracts"
	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/status"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/rs/zerolog/log"
)

type WaiverService struct {
	env *env.Env
}

func New(e *env.Env) *WaiverService {
	return &WaiverService{env: e}
}

// ClaimRequest names the claiming team. A positive Salary replaces the
// player's prior salary.
type ClaimRequest struct {
	TeamID string `json:"team_id"`
	Salary int64  `json:"salary,omitempty"`
}

// Release cuts a signed player: the contract is terminated, the team gets the
// salary back unless the player was exempt, and a waiver window opens.
func (ws *WaiverService) Release(ctx context.Context, actor auth.Actor, playerID string) (store.Waiver, error) {
	var waiver store.Waiver
	err := ws.env.Run(ctx, "release", func(tx store.Tx) ([]feed.Event, error) {
		now := ws.env.Clock()
		p, err := status.LockSigned(tx, playerID, string(store.OnWaivers))
		if err != nil {
			return nil, err
		}
		teamID := p.CurrentTeam()
		if !actor.CanActFor(teamID) {
			return nil, errs.New(errs.Unauthorized, "%s cannot release players of team %s", actor.ID, teamID)
		}

		c, err := tx.FindActiveContract(p.ID)
		if err != nil {
			return nil, err
		}
		refund := capledger.Charge(p, c.Salary)
		if err := contracts.Terminate(tx, &c); err != nil {
			return nil, err
		}
		if err := status.Waive(tx, &p, now); err != nil {
			return nil, err
		}
		if err := capledger.Credit(tx, teamID, refund); err != nil {
			return nil, err
		}

		waiver = store.Waiver{
			ID:          uuid.NewString(),
			PlayerID:    p.ID,
			TeamID:      teamID,
			PriorSalary: c.Salary,
			PriorEndsAt: c.EndsAt,
			StartsAt:    now,
			EndsAt:      now.Add(ws.env.Rules.WaiverWindow),
			Status:      store.WaiverActive,
		}
		if err := tx.SaveWaiver(&waiver); err != nil {
			return nil, err
		}
		return []feed.Event{
			{Kind: feed.ContractTerminated, TeamIDs: []string{teamID}, PlayerID: p.ID, RefID: c.ID, Actor: actor.ID, At: now},
			{Kind: feed.PlayerReleased, TeamIDs: []string{teamID}, PlayerID: p.ID, RefID: waiver.ID, Actor: actor.ID, At: now},
		}, nil
	})
	return waiver, err
}

// Claim signs a waived player to the claiming team with a new active
// contract. The window must still be open and the team must afford the
// salary. A pending offer the releasing team made to the player is expired
// by the claim.
func (ws *WaiverService) Claim(ctx context.Context, actor auth.Actor, waiverID string, req ClaimRequest) (store.Contract, error) {
	if req.Salary < 0 {
		return store.Contract{}, errs.New(errs.InvalidArgument, "salary cannot be negative")
	}
	if !actor.CanActFor(req.TeamID) {
		return store.Contract{}, errs.New(errs.Unauthorized, "%s cannot claim for team %s", actor.ID, req.TeamID)
	}

	var contract store.Contract
	err := ws.env.Run(ctx, "claim_waiver", func(tx store.Tx) ([]feed.Event, error) {
		now := ws.env.Clock()
		w, err := tx.Waiver(waiverID)
		if err != nil {
			return nil, err
		}
		if _, err := tx.LockTeams(req.TeamID); err != nil {
			return nil, err
		}
		players, err := tx.LockPlayers(w.PlayerID)
		if err != nil {
			return nil, err
		}
		p := players[0]
		if w, err = tx.Waiver(waiverID); err != nil {
			return nil, err
		}
		if w.Status != store.WaiverActive {
			return nil, errs.Transition("waiver", w.ID, string(w.Status), string(store.WaiverClaimed))
		}
		if !now.Before(w.EndsAt) {
			return nil, &errs.Error{Kind: errs.Timeout, Entity: "waiver", ID: w.ID, Msg: "claim window has closed"}
		}

		salary := w.PriorSalary
		if req.Salary > 0 {
			salary = req.Salary
		}
		ok, err := capledger.CanAfford(tx, req.TeamID, salary)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &errs.Error{Kind: errs.InsufficientCap, Entity: "team", ID: req.TeamID, Msg: "cannot fit the claimed salary"}
		}

		var events []feed.Event
		offer, err := withdrawOffer(tx, p.ID)
		if err != nil {
			return nil, err
		}
		if offer != nil {
			events = append(events, feed.Event{
				Kind:     feed.ContractExpired,
				TeamIDs:  []string{offer.TeamID},
				PlayerID: p.ID,
				RefID:    offer.ID,
				Actor:    actor.ID,
				At:       now,
			})
		}

		ends := w.PriorEndsAt
		if !ends.After(now) {
			ends = now.AddDate(0, 0, ws.env.Rules.DefaultTermDays)
		}
		contract = store.Contract{
			ID:       uuid.NewString(),
			PlayerID: p.ID,
			TeamID:   req.TeamID,
			Kind:     store.StandardContract,
			Salary:   salary,
			StartsAt: now,
			EndsAt:   ends,
			Status:   store.ContractActive,
		}
		if err := tx.SaveContract(&contract); err != nil {
			return nil, err
		}
		if err := status.Sign(tx, &p, req.TeamID, status.ReasonClaim, now); err != nil {
			return nil, err
		}
		if err := capledger.Debit(tx, req.TeamID, capledger.Charge(p, salary)); err != nil {
			return nil, err
		}

		team, contractID := req.TeamID, contract.ID
		w.Status = store.WaiverClaimed
		w.ClaimedByTeam = &team
		w.ClaimContract = &contractID
		w.ResolvedAt = &now
		if err := tx.SaveWaiver(&w); err != nil {
			return nil, err
		}
		return append(events, feed.Event{
			Kind:     feed.WaiverClaimed,
			TeamIDs:  []string{req.TeamID},
			PlayerID: p.ID,
			RefID:    w.ID,
			Actor:    actor.ID,
			At:       now,
		}), nil
	})
	return contract, err
}

// withdrawOffer expires the waived player's pending offer, if any, so the
// claim contract is the player's only open one.
func withdrawOffer(tx store.Tx, playerID string) (*store.Contract, error) {
	open, err := tx.FindOpenContract(playerID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if open.Status != store.ContractPending {
		return nil, errs.ErrPlayerAlreadyUnderContract
	}
	open.Status = store.ContractExpired
	if err := tx.SaveContract(&open); err != nil {
		return nil, err
	}
	return &open, nil
}

// SweepExpired clears every active waiver whose window ended at or before
// now and returns the players to free agency. Each waiver is its own unit of
// work and is re-read before it changes, so a claim that committed first wins
// and a second sweep finds nothing to do.
func (ws *WaiverService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	var due []store.Waiver
	err := ws.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		due, err = tx.DueWaivers(now)
		return err
	})
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, candidate := range due {
		err := ws.env.Run(ctx, "sweep_waiver", func(tx store.Tx) ([]feed.Event, error) {
			players, err := tx.LockPlayers(candidate.PlayerID)
			if err != nil {
				return nil, err
			}
			p := players[0]
			w, err := tx.Waiver(candidate.ID)
			if err != nil {
				return nil, err
			}
			if w.Status != store.WaiverActive || w.EndsAt.After(now) {
				return nil, nil
			}
			if err := status.Clear(tx, &p, now); err != nil {
				return nil, err
			}
			w.Status = store.WaiverCleared
			w.ResolvedAt = &now
			if err := tx.SaveWaiver(&w); err != nil {
				return nil, err
			}
			cleared++
			return []feed.Event{{
				Kind:     feed.WaiverCleared,
				TeamIDs:  []string{w.TeamID},
				PlayerID: p.ID,
				RefID:    w.ID,
				Actor:    auth.System.ID,
				At:       now,
			}}, nil
		})
		if err != nil {
			return cleared, err
		}
	}

	ws.env.Metrics.Cleared(cleared)
	if cleared > 0 {
		log.Info().Int("cleared", cleared).Time("now", now).Msg("waiver sweep finished")
	}
	return cleared, nil
}

func (ws *WaiverService) Get(ctx context.Context, waiverID string) (store.Waiver, error) {
	var w store.Waiver
	err := ws.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		w, err = tx.Waiver(waiverID)
		return err
	})
	return w, err
}
