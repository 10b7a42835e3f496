// Package testutil builds engine environments over the in-memory store with
// a controllable clock, and seeds league fixtures directly into the store.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/capledger"
	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/metrics"
	"github.com/libertypfc/Hockeybot-sub000/internals/status"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/libertypfc/Hockeybot-sub000/internals/store/memstore"
	"github.com/libertypfc/Hockeybot-sub000/pkg/conf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var Epoch = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type Fixture struct {
	Env   *env.Env
	Store *memstore.Store
	Clock *Clock

	mu     sync.Mutex
	events []feed.Event
}

func New(t *testing.T) *Fixture {
	t.Helper()
	st := memstore.New()
	clock := &Clock{now: Epoch}
	e := env.New(st, feed.New(), metrics.New(prometheus.NewRegistry()), conf.DefaultEngine())
	e.Now = clock.Now
	f := &Fixture{Env: e, Store: st, Clock: clock}
	e.Bus.Subscribe(func(evt feed.Event) {
		f.mu.Lock()
		f.events = append(f.events, evt)
		f.mu.Unlock()
	})
	return f
}

// Kinds lists the kinds of every event published so far.
func (f *Fixture) Kinds() []feed.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]feed.Kind, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

func (f *Fixture) tx(t *testing.T, fn func(tx store.Tx) error) {
	t.Helper()
	require.NoError(t, f.Store.Tx(context.Background(), fn))
}

func (f *Fixture) AddTeam(t *testing.T, id string, ceiling, floor int64) {
	t.Helper()
	f.tx(t, func(tx store.Tx) error {
		return tx.SaveTeam(&store.Team{ID: id, Name: id, CapCeiling: ceiling, CapFloor: floor, AvailableCap: ceiling})
	})
}

func (f *Fixture) AddPlayer(t *testing.T, id string) {
	t.Helper()
	f.tx(t, func(tx store.Tx) error {
		return tx.SavePlayer(&store.Player{ID: id, ExternalID: "ext-" + id, Name: id, Status: store.FreeAgent})
	})
}

// Sign gives an existing player an active contract with teamID and charges
// the cap, returning the contract id.
func (f *Fixture) Sign(t *testing.T, playerID, teamID string, salary int64) string {
	t.Helper()
	contractID := "c-" + playerID + "-" + teamID
	now := f.Clock.Now()
	f.tx(t, func(tx store.Tx) error {
		if _, err := tx.LockTeams(teamID); err != nil {
			return err
		}
		players, err := tx.LockPlayers(playerID)
		if err != nil {
			return err
		}
		p := players[0]
		if err := status.Sign(tx, &p, teamID, status.ReasonContract, now); err != nil {
			return err
		}
		c := store.Contract{
			ID:       contractID,
			PlayerID: playerID,
			TeamID:   teamID,
			Kind:     store.StandardContract,
			Salary:   salary,
			StartsAt: now,
			EndsAt:   now.AddDate(0, 0, 365),
			Status:   store.ContractActive,
		}
		if err := tx.SaveContract(&c); err != nil {
			return err
		}
		return capledger.Debit(tx, teamID, salary)
	})
	return contractID
}

// SetExempt flips the flag directly, crediting the cap the way the exemption
// service would.
func (f *Fixture) SetExempt(t *testing.T, playerID string) {
	t.Helper()
	f.tx(t, func(tx store.Tx) error {
		p, err := status.LockSigned(tx, playerID, "exempt")
		if err != nil {
			return err
		}
		c, err := tx.FindActiveContract(playerID)
		if err != nil {
			return err
		}
		p.Exempt = true
		if err := tx.SavePlayer(&p); err != nil {
			return err
		}
		return capledger.Credit(tx, p.CurrentTeam(), c.Salary)
	})
}

func (f *Fixture) Team(t *testing.T, id string) store.Team {
	t.Helper()
	var team store.Team
	f.view(t, func(tx store.Tx) (err error) { team, err = tx.Team(id); return })
	return team
}

func (f *Fixture) Player(t *testing.T, id string) store.Player {
	t.Helper()
	var p store.Player
	f.view(t, func(tx store.Tx) (err error) { p, err = tx.Player(id); return })
	return p
}

func (f *Fixture) Contract(t *testing.T, id string) store.Contract {
	t.Helper()
	var c store.Contract
	f.view(t, func(tx store.Tx) (err error) { c, err = tx.Contract(id); return })
	return c
}

func (f *Fixture) view(t *testing.T, fn func(tx store.Tx) error) {
	t.Helper()
	require.NoError(t, f.Store.View(context.Background(), fn))
}

// Computed returns the available cap of teamID recomputed from contracts.
func (f *Fixture) Computed(t *testing.T, teamID string) int64 {
	t.Helper()
	var v int64
	f.view(t, func(tx store.Tx) (err error) { v, err = capledger.AvailableCap(tx, teamID); return })
	return v
}

// RequireConsistent asserts the cap and contract invariants over all teams
// and players.
func (f *Fixture) RequireConsistent(t *testing.T) {
	t.Helper()
	f.view(t, func(tx store.Tx) error {
		teams, err := tx.Teams()
		require.NoError(t, err)
		for _, team := range teams {
			computed, err := capledger.AvailableCap(tx, team.ID)
			require.NoError(t, err)
			require.Equal(t, computed, team.AvailableCap, "cached cap of team %s", team.ID)

			exempt, err := tx.CountExempt(team.ID)
			require.NoError(t, err)
			require.LessOrEqual(t, exempt, f.Env.Rules.MaxExempt, "exempt players on team %s", team.ID)

			roster, err := tx.TeamRoster(team.ID)
			require.NoError(t, err)
			for _, p := range roster {
				c, err := tx.FindActiveContract(p.ID)
				require.NoError(t, err, "signed player %s without active contract", p.ID)
				require.Equal(t, team.ID, c.TeamID, "contract team of player %s", p.ID)
			}
		}
		return nil
	})
}
