// Package trade coordinates two-team player trades: the proposing team
// offers, the receiving team answers, and a league administrator approves.
// Rosters and cap space change only on approval, in one unit of work.
package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/capledger"
	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/status"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/rs/zerolog/log"
)

type TradeService struct {
	env *env.Env
}

func New(e *env.Env) *TradeService {
	return &TradeService{env: e}
}

func validate(req ProposeRequest) error {
	if req.FromTeamID == "" || req.ToTeamID == "" || req.FromTeamID == req.ToTeamID {
		return errs.New(errs.InvalidArgument, "a trade needs two different teams")
	}
	if len(req.Outgoing) == 0 {
		return errs.New(errs.InvalidArgument, "a trade must move at least one player from %s", req.FromTeamID)
	}
	seen := make(map[string]bool)
	for _, id := range append(append([]string(nil), req.Outgoing...), req.Incoming...) {
		if id == "" || seen[id] {
			return errs.New(errs.InvalidArgument, "player %q named twice or empty", id)
		}
		seen[id] = true
	}
	return nil
}

// Propose records a pending trade after checking every named player and the
// cap and exemption room each team would have after it.
func (ts *TradeService) Propose(ctx context.Context, actor auth.Actor, req ProposeRequest) (store.TradeProposal, error) {
	if err := validate(req); err != nil {
		return store.TradeProposal{}, err
	}
	if !actor.Manages(req.FromTeamID) {
		return store.TradeProposal{}, errs.New(errs.Unauthorized, "%s is not the agent of team %s", actor.ID, req.FromTeamID)
	}

	var proposal store.TradeProposal
	err := ts.env.Run(ctx, "propose_trade", func(tx store.Tx) ([]feed.Event, error) {
		now := ts.env.Clock()
		if _, err := tx.LockTeams(req.FromTeamID, req.ToTeamID); err != nil {
			return nil, err
		}

		p := store.TradeProposal{
			ID:                    uuid.NewString(),
			FromTeamID:            req.FromTeamID,
			ToTeamID:              req.ToTeamID,
			ProposedBy:            actor.ID,
			Status:                store.TradePending,
			RespondBy:             now.Add(ts.env.Rules.TradeResponseTimeout),
			OriginatingMessageRef: req.MessageRef,
		}
		for _, id := range req.Outgoing {
			p.Assets = append(p.Assets, store.TradeAsset{PlayerID: id, FromTeamID: req.FromTeamID, ToTeamID: req.ToTeamID})
		}
		for _, id := range req.Incoming {
			p.Assets = append(p.Assets, store.TradeAsset{PlayerID: id, FromTeamID: req.ToTeamID, ToTeamID: req.FromTeamID})
		}

		impacts, err := ts.evaluate(tx, p.Assets, errs.InvalidArgument)
		if err != nil {
			return nil, err
		}
		if err := ts.checkRoom(tx, impacts); err != nil {
			return nil, err
		}
		for i := range p.Assets {
			c, err := tx.FindActiveContract(p.Assets[i].PlayerID)
			if err != nil {
				return nil, err
			}
			p.Assets[i].Salary = c.Salary
		}

		if err := tx.SaveTradeProposal(&p); err != nil {
			return nil, err
		}
		proposal = p
		return []feed.Event{event(feed.TradeProposed, p, actor, now)}, nil
	})
	return proposal, err
}

// evaluate checks that every asset still sits on its sending team under an
// active contract and sums what the trade does to each team. A failed check
// is reported with the given kind.
func (ts *TradeService) evaluate(tx store.Tx, assets []store.TradeAsset, kind errs.Kind) (map[string]*impact, error) {
	impacts := make(map[string]*impact)
	at := func(teamID string) *impact {
		if impacts[teamID] == nil {
			impacts[teamID] = &impact{}
		}
		return impacts[teamID]
	}

	for _, a := range assets {
		p, err := tx.Player(a.PlayerID)
		if err != nil {
			return nil, err
		}
		if !p.OnTeam(a.FromTeamID) {
			return nil, &errs.Error{Kind: kind, Entity: "player", ID: p.ID, Msg: "is not signed to team " + a.FromTeamID}
		}
		c, err := tx.FindActiveContract(p.ID)
		if err != nil || c.TeamID != a.FromTeamID {
			return nil, &errs.Error{Kind: kind, Entity: "player", ID: p.ID, Msg: "has no active contract with team " + a.FromTeamID}
		}

		charge := capledger.Charge(p, c.Salary)
		at(a.FromTeamID).capDelta += charge
		at(a.ToTeamID).capDelta -= charge
		if p.Exempt {
			at(a.FromTeamID).exemptDelta--
			at(a.ToTeamID).exemptDelta++
		}
	}
	return impacts, nil
}

// checkRoom verifies each team can absorb its net salary change and stays
// within the exemption limit.
func (ts *TradeService) checkRoom(tx store.Tx, impacts map[string]*impact) error {
	for teamID, im := range impacts {
		if im.capDelta < 0 {
			ok, err := capledger.CanAfford(tx, teamID, -im.capDelta)
			if err != nil {
				return err
			}
			if !ok {
				return &errs.Error{Kind: errs.InsufficientCap, Entity: "team", ID: teamID, Msg: "cannot absorb the incoming salary"}
			}
		}
		if im.exemptDelta > 0 {
			n, err := tx.CountExempt(teamID)
			if err != nil {
				return err
			}
			if n+im.exemptDelta > ts.env.Rules.MaxExempt {
				return &errs.Error{Kind: errs.ExemptionLimitReached, Entity: "team", ID: teamID, Msg: "would carry too many exempt players"}
			}
		}
	}
	return nil
}

// deadline returns when the proposal's current step times out.
func deadline(p store.TradeProposal) (time.Time, bool) {
	switch p.Status {
	case store.TradePending:
		return p.RespondBy, true
	case store.TradeAccepted:
		if p.ReviewBy != nil {
			return *p.ReviewBy, true
		}
	}
	return time.Time{}, false
}

func lapsed(p store.TradeProposal, now time.Time) bool {
	d, ok := deadline(p)
	return ok && !now.Before(d)
}

// lockProposal locks both teams of a proposal and re-reads it under those
// locks.
func lockProposal(tx store.Tx, id string) (store.TradeProposal, error) {
	p, err := tx.TradeProposal(id)
	if err != nil {
		return p, err
	}
	if _, err := tx.LockTeams(p.FromTeamID, p.ToTeamID); err != nil {
		return p, err
	}
	return tx.TradeProposal(id)
}

// step loads and locks a proposal for a transition out of from, failing with
// Timeout once that step's deadline has passed.
func step(tx store.Tx, id string, from, to store.TradeStatus, now time.Time) (store.TradeProposal, error) {
	p, err := lockProposal(tx, id)
	if err != nil {
		return p, err
	}
	if p.Status != from {
		return p, errs.Transition("trade proposal", p.ID, string(p.Status), string(to))
	}
	if lapsed(p, now) {
		return p, &errs.Error{Kind: errs.Timeout, Entity: "trade proposal", ID: p.ID, Msg: "no answer before the deadline"}
	}
	return p, nil
}

// Accept is the receiving team's agreement; the proposal moves on to league
// review.
func (ts *TradeService) Accept(ctx context.Context, actor auth.Actor, proposalID string) (store.TradeProposal, error) {
	return ts.answer(ctx, "accept_trade", actor, proposalID, store.TradeAccepted, feed.TradeAccepted)
}

// Reject is the receiving team's refusal and ends the proposal.
func (ts *TradeService) Reject(ctx context.Context, actor auth.Actor, proposalID string) (store.TradeProposal, error) {
	return ts.answer(ctx, "reject_trade", actor, proposalID, store.TradeRejected, feed.TradeRejected)
}

func (ts *TradeService) answer(ctx context.Context, op string, actor auth.Actor, proposalID string, to store.TradeStatus, kind feed.Kind) (store.TradeProposal, error) {
	var proposal store.TradeProposal
	err := ts.env.Run(ctx, op, func(tx store.Tx) ([]feed.Event, error) {
		now := ts.env.Clock()
		p, err := step(tx, proposalID, store.TradePending, to, now)
		if err != nil {
			return nil, err
		}
		if !actor.Manages(p.ToTeamID) {
			return nil, errs.New(errs.Unauthorized, "only the agent of team %s can answer this trade", p.ToTeamID)
		}
		p.Status = to
		p.DecidedBy = actor.ID
		if to == store.TradeAccepted {
			review := now.Add(ts.env.Rules.TradeReviewTimeout)
			p.ReviewBy = &review
		}
		if err := tx.SaveTradeProposal(&p); err != nil {
			return nil, err
		}
		proposal = p
		return []feed.Event{event(kind, p, actor, now)}, nil
	})
	return proposal, err
}

func reviewer(actor auth.Actor, p store.TradeProposal) error {
	if !actor.Admin || actor.Manages(p.FromTeamID) || actor.Manages(p.ToTeamID) {
		return errs.New(errs.Unauthorized, "%s cannot review a trade between %s and %s", actor.ID, p.FromTeamID, p.ToTeamID)
	}
	return nil
}

// Approve applies an accepted trade. Every precondition is checked again
// against current state; if any fails nothing changes.
func (ts *TradeService) Approve(ctx context.Context, actor auth.Actor, proposalID string) (store.TradeProposal, error) {
	var proposal store.TradeProposal
	err := ts.env.Run(ctx, "approve_trade", func(tx store.Tx) ([]feed.Event, error) {
		now := ts.env.Clock()
		p, err := step(tx, proposalID, store.TradeAccepted, store.TradeAdminApproved, now)
		if err != nil {
			return nil, err
		}
		if err := reviewer(actor, p); err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(p.Assets))
		for _, a := range p.Assets {
			ids = append(ids, a.PlayerID)
		}
		if _, err := tx.LockPlayers(ids...); err != nil {
			return nil, err
		}

		impacts, err := ts.evaluate(tx, p.Assets, errs.StalePrecondition)
		if err != nil {
			return nil, err
		}
		if err := ts.checkRoom(tx, impacts); err != nil {
			return nil, err
		}

		for _, a := range p.Assets {
			if err := move(tx, a, now); err != nil {
				return nil, err
			}
		}
		for teamID, im := range impacts {
			if err := capledger.Adjust(tx, teamID, im.capDelta); err != nil {
				return nil, err
			}
		}

		p.Status = store.TradeAdminApproved
		p.DecidedBy = actor.ID
		if err := tx.SaveTradeProposal(&p); err != nil {
			return nil, err
		}
		proposal = p
		return []feed.Event{event(feed.TradeApproved, p, actor, now)}, nil
	})
	return proposal, err
}

// move re-points one player's active contract and affiliation to the
// receiving team.
func move(tx store.Tx, a store.TradeAsset, at time.Time) error {
	c, err := tx.FindActiveContract(a.PlayerID)
	if err != nil {
		return err
	}
	c.TeamID = a.ToTeamID
	if err := tx.SaveContract(&c); err != nil {
		return err
	}
	p, err := tx.Player(a.PlayerID)
	if err != nil {
		return err
	}
	return status.Move(tx, &p, a.ToTeamID, at)
}

// Deny is the administrator's refusal of an accepted trade.
func (ts *TradeService) Deny(ctx context.Context, actor auth.Actor, proposalID string) (store.TradeProposal, error) {
	var proposal store.TradeProposal
	err := ts.env.Run(ctx, "deny_trade", func(tx store.Tx) ([]feed.Event, error) {
		now := ts.env.Clock()
		p, err := step(tx, proposalID, store.TradeAccepted, store.TradeAdminRejected, now)
		if err != nil {
			return nil, err
		}
		if err := reviewer(actor, p); err != nil {
			return nil, err
		}
		p.Status = store.TradeAdminRejected
		p.DecidedBy = actor.ID
		if err := tx.SaveTradeProposal(&p); err != nil {
			return nil, err
		}
		proposal = p
		return []feed.Event{event(feed.TradeDenied, p, actor, now)}, nil
	})
	return proposal, err
}

// ExpireStale closes proposals whose current step passed its deadline by now,
// one unit of work per proposal.
func (ts *TradeService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	var open []store.TradeProposal
	err := ts.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		open, err = tx.OpenProposals()
		return err
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range open {
		if !lapsed(candidate, now) {
			continue
		}
		err := ts.env.Run(ctx, "expire_stale_trade", func(tx store.Tx) ([]feed.Event, error) {
			p, err := lockProposal(tx, candidate.ID)
			if err != nil {
				return nil, err
			}
			if !lapsed(p, now) {
				return nil, nil
			}
			p.Status = store.TradeExpired
			if err := tx.SaveTradeProposal(&p); err != nil {
				return nil, err
			}
			expired++
			return []feed.Event{event(feed.TradeExpired, p, auth.System, now)}, nil
		})
		if err != nil {
			return expired, err
		}
	}
	if expired > 0 {
		log.Info().Int("count", expired).Msg("expired stale trade proposals")
	}
	return expired, nil
}

func (ts *TradeService) Get(ctx context.Context, proposalID string) (store.TradeProposal, error) {
	var p store.TradeProposal
	err := ts.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.TradeProposal(proposalID)
		return err
	})
	return p, err
}

// Open lists proposals still waiting on an answer or a review.
func (ts *TradeService) Open(ctx context.Context) ([]store.TradeProposal, error) {
	var out []store.TradeProposal
	err := ts.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.OpenProposals()
		return err
	})
	return out, err
}

func event(kind feed.Kind, p store.TradeProposal, actor auth.Actor, at time.Time) feed.Event {
	return feed.Event{
		Kind:    kind,
		TeamIDs: []string{p.FromTeamID, p.ToTeamID},
		RefID:   p.ID,
		Actor:   actor.ID,
		At:      at,
	}
}
