// Package capledger computes team cap space from the store and applies the
// incremental updates that keep each team's cached available cap in step.
package capledger

import (
	"context"

	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/rs/zerolog/log"
)

// Usage is the salary picture of one team at one instant.
type Usage struct {
	// Counted is the salary of active contracts of non-exempt players.
	Counted int64
	// Total is the salary of all active contracts, exempt or not.
	Total int64
}

func TeamUsage(tx store.Tx, teamID string) (Usage, error) {
	contracts, err := tx.ActiveContractsForTeam(teamID)
	if err != nil {
		return Usage{}, err
	}
	var u Usage
	for _, c := range contracts {
		p, err := tx.Player(c.PlayerID)
		if err != nil {
			return Usage{}, err
		}
		u.Total += c.Salary
		if !p.Exempt {
			u.Counted += c.Salary
		}
	}
	return u, nil
}

// AvailableCap is ceiling minus the salary of active, non-exempt contracts,
// computed from the store rather than the cached column.
func AvailableCap(tx store.Tx, teamID string) (int64, error) {
	team, err := tx.Team(teamID)
	if err != nil {
		return 0, err
	}
	u, err := TeamUsage(tx, teamID)
	if err != nil {
		return 0, err
	}
	return team.CapCeiling - u.Counted, nil
}

func CanAfford(tx store.Tx, teamID string, salary int64) (bool, error) {
	available, err := AvailableCap(tx, teamID)
	if err != nil {
		return false, err
	}
	return available >= salary, nil
}

// Charge returns the salary that counts against a team's cap for a player.
func Charge(p store.Player, salary int64) int64 {
	if p.Exempt {
		return 0
	}
	return salary
}

// Adjust moves the cached available cap of teamID by delta (negative debits).
func Adjust(tx store.Tx, teamID string, delta int64) error {
	if delta == 0 {
		return nil
	}
	team, err := tx.Team(teamID)
	if err != nil {
		return err
	}
	team.AvailableCap += delta
	return tx.SaveTeam(&team)
}

func Debit(tx store.Tx, teamID string, amount int64) error {
	return Adjust(tx, teamID, -amount)
}

func Credit(tx store.Tx, teamID string, amount int64) error {
	return Adjust(tx, teamID, amount)
}

type LedgerService struct {
	env *env.Env
}

func New(e *env.Env) *LedgerService {
	return &LedgerService{env: e}
}

func (l *LedgerService) AvailableCap(ctx context.Context, teamID string) (int64, error) {
	var available int64
	err := l.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		available, err = AvailableCap(tx, teamID)
		return err
	})
	return available, err
}

func (l *LedgerService) CanAfford(ctx context.Context, teamID string, salary int64) (bool, error) {
	available, err := l.AvailableCap(ctx, teamID)
	if err != nil {
		return false, err
	}
	return available >= salary, nil
}

// Reconcile rewrites teamID's cached available cap if it drifted from the
// computed value and reports whether it did.
func (l *LedgerService) Reconcile(ctx context.Context, teamID string) (bool, error) {
	var drifted bool
	err := l.env.Run(ctx, "reconcile_cap", func(tx store.Tx) ([]feed.Event, error) {
		drifted = false
		teams, err := tx.LockTeams(teamID)
		if err != nil {
			return nil, err
		}
		team := teams[0]
		available, err := AvailableCap(tx, teamID)
		if err != nil {
			return nil, err
		}
		if team.AvailableCap == available {
			return nil, nil
		}
		log.Warn().
			Str("team", teamID).
			Int64("cached", team.AvailableCap).
			Int64("computed", available).
			Msg("available cap drifted, rewriting")
		team.AvailableCap = available
		if err := tx.SaveTeam(&team); err != nil {
			return nil, err
		}
		drifted = true
		return []feed.Event{{
			Kind:    feed.CapReconciled,
			TeamIDs: []string{teamID},
			At:      l.env.Clock(),
		}}, nil
	})
	if drifted {
		l.env.Metrics.Drift(teamID)
	}
	return drifted, err
}

// ReconcileAll reconciles every team, one unit of work per team, and returns
// how many were corrected.
func (l *LedgerService) ReconcileAll(ctx context.Context) (int, error) {
	var teams []store.Team
	err := l.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		teams, err = tx.Teams()
		return err
	})
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, t := range teams {
		drifted, err := l.Reconcile(ctx, t.ID)
		if err != nil {
			return fixed, err
		}
		if drifted {
			fixed++
		}
	}
	return fixed, nil
}
