// Package contracts manages the contract lifecycle: offers, acceptance,
// rejection, expiry and termination. It is the only writer of contract status.
package contracts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/capledger"
	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/status"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
)

type ContractService struct {
	env *env.Env
}

func New(e *env.Env) *ContractService {
	return &ContractService{env: e}
}

// Offer creates a pending contract. Cap is checked here for early feedback
// but nothing is reserved until the player accepts.
func (cs *ContractService) Offer(ctx context.Context, actor auth.Actor, req OfferRequest) (store.Contract, error) {
	if req.Salary <= 0 {
		return store.Contract{}, errs.New(errs.InvalidArgument, "salary must be positive")
	}
	if req.TermDays <= 0 {
		return store.Contract{}, errs.New(errs.InvalidArgument, "term must be at least one day")
	}
	return cs.offer(ctx, "offer", actor, req, store.StandardContract)
}

// OfferELC offers the entry-level template (fixed salary and term) to a free
// agent.
func (cs *ContractService) OfferELC(ctx context.Context, actor auth.Actor, req ELCRequest) (store.Contract, error) {
	return cs.offer(ctx, "offer_elc", actor, OfferRequest{
		PlayerID:   req.PlayerID,
		TeamID:     req.TeamID,
		Salary:     cs.env.Rules.ELCSalary,
		TermDays:   cs.env.Rules.ELCTermDays,
		MessageRef: req.MessageRef,
	}, store.EntryLevel)
}

func (cs *ContractService) offer(ctx context.Context, op string, actor auth.Actor, req OfferRequest, kind store.ContractKind) (store.Contract, error) {
	if !actor.CanActFor(req.TeamID) {
		return store.Contract{}, errs.New(errs.Unauthorized, "%s cannot make offers for team %s", actor.ID, req.TeamID)
	}

	var contract store.Contract
	err := cs.env.Run(ctx, op, func(tx store.Tx) ([]feed.Event, error) {
		now := cs.env.Clock()
		var events []feed.Event

		if _, err := tx.LockTeams(req.TeamID); err != nil {
			return nil, err
		}
		players, err := tx.LockPlayers(req.PlayerID)
		if err != nil {
			return nil, err
		}
		p := players[0]

		stale, err := clearStaleOffer(tx, p.ID, now)
		if err != nil {
			return nil, err
		}
		if stale != nil {
			events = append(events, expiredEvent(*stale, now))
		}

		switch p.Status {
		case store.Signed:
			return nil, errs.ErrPlayerAlreadyUnderContract
		case store.OnWaivers:
			// Waived players are acquired through a claim; only the releasing
			// team may offer to bring them back.
			w, err := tx.ActiveWaiverForPlayer(p.ID)
			if err != nil {
				return nil, err
			}
			if w.TeamID != req.TeamID || kind == store.EntryLevel {
				return nil, errs.Transition("player", p.ID, string(p.Status), string(store.Signed))
			}
		}

		ok, err := capledger.CanAfford(tx, req.TeamID, req.Salary)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.New(errs.InsufficientCap, "team %s cannot fit a salary of %d", req.TeamID, req.Salary)
		}

		expires := now.Add(cs.env.Rules.OfferTimeout)
		contract = store.Contract{
			ID:                    uuid.NewString(),
			PlayerID:              p.ID,
			TeamID:                req.TeamID,
			Kind:                  kind,
			Salary:                req.Salary,
			StartsAt:              now,
			EndsAt:                now.AddDate(0, 0, req.TermDays),
			Status:                store.ContractPending,
			OfferExpiresAt:        &expires,
			OriginatingMessageRef: req.MessageRef,
		}
		if err := tx.SaveContract(&contract); err != nil {
			return nil, err
		}
		return append(events, feed.Event{
			Kind:     feed.ContractOffered,
			TeamIDs:  []string{req.TeamID},
			PlayerID: p.ID,
			RefID:    contract.ID,
			Actor:    actor.ID,
			At:       now,
		}), nil
	})
	return contract, err
}

// clearStaleOffer enforces the one-open-contract rule for a new offer: an
// open contract blocks it unless it is a pending offer past its deadline, in
// which case it is expired here.
func clearStaleOffer(tx store.Tx, playerID string, now time.Time) (*store.Contract, error) {
	open, err := tx.FindOpenContract(playerID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if open.Status == store.ContractPending && offerLapsed(open, now) {
		open.Status = store.ContractExpired
		if err := tx.SaveContract(&open); err != nil {
			return nil, err
		}
		return &open, nil
	}
	return nil, errs.ErrPlayerAlreadyUnderContract
}

func offerLapsed(c store.Contract, now time.Time) bool {
	return c.OfferExpiresAt != nil && !now.Before(*c.OfferExpiresAt)
}

func expiredEvent(c store.Contract, now time.Time) feed.Event {
	return feed.Event{
		Kind:     feed.ContractExpired,
		TeamIDs:  []string{c.TeamID},
		PlayerID: c.PlayerID,
		RefID:    c.ID,
		At:       now,
	}
}

// lockContract locks the contract's team and then its player, and re-reads
// the contract under those locks.
func lockContract(tx store.Tx, contractID string) (store.Contract, store.Player, error) {
	c, err := tx.Contract(contractID)
	if err != nil {
		return c, store.Player{}, err
	}
	if _, err := tx.LockTeams(c.TeamID); err != nil {
		return c, store.Player{}, err
	}
	players, err := tx.LockPlayers(c.PlayerID)
	if err != nil {
		return c, store.Player{}, err
	}
	c, err = tx.Contract(contractID)
	return c, players[0], err
}

// answerable loads a pending contract the actor may answer as the offered
// player.
func answerable(tx store.Tx, actor auth.Actor, contractID string) (store.Contract, store.Player, error) {
	c, p, err := lockContract(tx, contractID)
	if err != nil {
		return c, p, err
	}
	if !actor.Admin && actor.ID != p.ExternalID {
		return c, p, errs.New(errs.Unauthorized, "only the offered player can answer contract %s", c.ID)
	}
	if c.Status != store.ContractPending {
		return c, p, errs.Transition("contract", c.ID, string(c.Status), "answered")
	}
	return c, p, nil
}

// Accept activates a pending offer: the player signs with the offering team
// and the team's cap is charged. Cap is re-checked because it may have been
// spent since the offer.
func (cs *ContractService) Accept(ctx context.Context, actor auth.Actor, contractID string) (store.Contract, error) {
	var contract store.Contract
	err := cs.env.Run(ctx, "accept_contract", func(tx store.Tx) ([]feed.Event, error) {
		now := cs.env.Clock()
		c, p, err := answerable(tx, actor, contractID)
		if err != nil {
			return nil, err
		}
		if offerLapsed(c, now) {
			return nil, &errs.Error{Kind: errs.OfferExpired, Entity: "contract", ID: c.ID, Msg: "offer deadline has passed"}
		}
		if p.Status == store.Signed {
			return nil, errs.ErrPlayerAlreadyUnderContract
		}

		ok, err := capledger.CanAfford(tx, c.TeamID, c.Salary)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.New(errs.InsufficientCap, "team %s no longer fits a salary of %d", c.TeamID, c.Salary)
		}

		if p.Status == store.OnWaivers {
			if err := resolveWaiver(tx, p.ID, c, now); err != nil {
				return nil, err
			}
		}

		c.Status = store.ContractActive
		if err := tx.SaveContract(&c); err != nil {
			return nil, err
		}
		if err := status.Sign(tx, &p, c.TeamID, status.ReasonContract, now); err != nil {
			return nil, err
		}
		if err := capledger.Debit(tx, c.TeamID, capledger.Charge(p, c.Salary)); err != nil {
			return nil, err
		}
		contract = c
		return []feed.Event{{
			Kind:     feed.ContractAccepted,
			TeamIDs:  []string{c.TeamID},
			PlayerID: p.ID,
			RefID:    c.ID,
			Actor:    actor.ID,
			At:       now,
		}}, nil
	})
	return contract, err
}

// resolveWaiver closes the player's active waiver when the releasing team
// brings them back with a new contract.
func resolveWaiver(tx store.Tx, playerID string, c store.Contract, now time.Time) error {
	w, err := tx.ActiveWaiverForPlayer(playerID)
	if err != nil {
		return err
	}
	if !now.Before(w.EndsAt) {
		return &errs.Error{Kind: errs.Timeout, Entity: "waiver", ID: w.ID, Msg: "waiver window has closed"}
	}
	team, contractID := c.TeamID, c.ID
	w.Status = store.WaiverClaimed
	w.ClaimedByTeam = &team
	w.ClaimContract = &contractID
	w.ResolvedAt = &now
	return tx.SaveWaiver(&w)
}

// Reject records the player's refusal. Nothing else changes.
func (cs *ContractService) Reject(ctx context.Context, actor auth.Actor, contractID string) (store.Contract, error) {
	return cs.close(ctx, "reject_contract", contractID, store.ContractRejected, feed.ContractRejected, actor,
		func(tx store.Tx) (store.Contract, error) {
			c, _, err := answerable(tx, actor, contractID)
			return c, err
		})
}

// Withdraw lets the offering team pull a pending offer; it ends declined.
func (cs *ContractService) Withdraw(ctx context.Context, actor auth.Actor, contractID string) (store.Contract, error) {
	return cs.close(ctx, "withdraw_contract", contractID, store.ContractDeclined, feed.ContractRejected, actor,
		func(tx store.Tx) (store.Contract, error) { return teamPending(tx, actor, contractID) })
}

// Expire ends a pending offer without an answer.
func (cs *ContractService) Expire(ctx context.Context, actor auth.Actor, contractID string) (store.Contract, error) {
	return cs.close(ctx, "expire_contract", contractID, store.ContractExpired, feed.ContractExpired, actor,
		func(tx store.Tx) (store.Contract, error) { return teamPending(tx, actor, contractID) })
}

func teamPending(tx store.Tx, actor auth.Actor, contractID string) (store.Contract, error) {
	c, _, err := lockContract(tx, contractID)
	if err != nil {
		return c, err
	}
	if !actor.CanActFor(c.TeamID) {
		return c, errs.New(errs.Unauthorized, "%s does not act for team %s", actor.ID, c.TeamID)
	}
	if c.Status != store.ContractPending {
		return c, errs.Transition("contract", c.ID, string(c.Status), "closed")
	}
	return c, nil
}

func (cs *ContractService) close(ctx context.Context, op, contractID string, to store.ContractStatus, kind feed.Kind, actor auth.Actor, load func(tx store.Tx) (store.Contract, error)) (store.Contract, error) {
	var contract store.Contract
	err := cs.env.Run(ctx, op, func(tx store.Tx) ([]feed.Event, error) {
		c, err := load(tx)
		if err != nil {
			return nil, err
		}
		c.Status = to
		if err := tx.SaveContract(&c); err != nil {
			return nil, err
		}
		contract = c
		return []feed.Event{{
			Kind:     kind,
			TeamIDs:  []string{c.TeamID},
			PlayerID: c.PlayerID,
			RefID:    c.ID,
			Actor:    actor.ID,
			At:       cs.env.Clock(),
		}}, nil
	})
	return contract, err
}

// ExpireStale expires every pending offer whose deadline passed by now, one
// unit of work per offer. It returns how many it expired.
func (cs *ContractService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	var due []store.Contract
	err := cs.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		due, err = tx.PendingOffersBefore(now)
		return err
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, stale := range due {
		err := cs.env.Run(ctx, "expire_stale_offer", func(tx store.Tx) ([]feed.Event, error) {
			c, _, err := lockContract(tx, stale.ID)
			if err != nil {
				return nil, err
			}
			// Accepted or answered since it was listed.
			if c.Status != store.ContractPending || !offerLapsed(c, now) {
				return nil, nil
			}
			c.Status = store.ContractExpired
			if err := tx.SaveContract(&c); err != nil {
				return nil, err
			}
			expired++
			return []feed.Event{expiredEvent(c, now)}, nil
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

// Terminate ends an active contract inside the caller's unit of work. It
// touches nothing but the contract: the caller owns the matching player
// status and cap updates.
func Terminate(tx store.Tx, c *store.Contract) error {
	if c.Status != store.ContractActive {
		return errs.Transition("contract", c.ID, string(c.Status), string(store.ContractTerminated))
	}
	c.Status = store.ContractTerminated
	return tx.SaveContract(c)
}

func (cs *ContractService) Get(ctx context.Context, contractID string) (store.Contract, error) {
	var c store.Contract
	err := cs.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		c, err = tx.Contract(contractID)
		return err
	})
	return c, err
}
