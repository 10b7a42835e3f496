// Package leaderboard ranks the league's teams by cap space.
package leaderboard

import (
	"context"
	"sort"

	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/roster"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
)

type Leaderboard struct {
	env *env.Env
}

func New(e *env.Env) *Leaderboard {
	return &Leaderboard{env: e}
}

// CapTable returns every team's cap summary, most available cap first. Ties
// go by team name.
func (l *Leaderboard) CapTable(ctx context.Context) ([]roster.CapSummary, error) {
	table := make([]roster.CapSummary, 0)
	err := l.env.Store.View(ctx, func(tx store.Tx) error {
		teams, err := tx.Teams()
		if err != nil {
			return err
		}
		for _, t := range teams {
			s, err := roster.Summarize(tx, t.ID)
			if err != nil {
				return err
			}
			table = append(table, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(table, func(i, j int) bool {
		if table[i].AvailableCap != table[j].AvailableCap {
			return table[i].AvailableCap > table[j].AvailableCap
		}
		return table[i].TeamName < table[j].TeamName
	})
	return table, nil
}

// BelowFloor lists the teams carrying less salary than their cap floor.
func (l *Leaderboard) BelowFloor(ctx context.Context) ([]roster.CapSummary, error) {
	table, err := l.CapTable(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]roster.CapSummary, 0)
	for _, s := range table {
		if s.BelowFloor {
			out = append(out, s)
		}
	}
	return out, nil
}
