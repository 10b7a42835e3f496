package waivers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/contracts"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/libertypfc/Hockeybot-sub000/internals/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	agentX = auth.Actor{ID: "gm-x", TeamID: "X"}
	agentY = auth.Actor{ID: "gm-y", TeamID: "Y"}
)

func setup(t *testing.T) (*testutil.Fixture, *WaiverService) {
	f := testutil.New(t)
	f.AddTeam(t, "X", 1_000_000, 300_000)
	f.AddTeam(t, "Y", 1_000_000, 300_000)
	f.AddPlayer(t, "P1")
	f.Sign(t, "P1", "X", 900_000)
	return f, New(f.Env)
}

func TestRelease(t *testing.T) {
	f, ws := setup(t)

	w, err := ws.Release(context.Background(), agentX, "P1")
	require.NoError(t, err)

	assert.Equal(t, int64(1_000_000), f.Team(t, "X").AvailableCap)
	p := f.Player(t, "P1")
	assert.Equal(t, store.OnWaivers, p.Status)
	assert.Empty(t, p.CurrentTeam())
	assert.False(t, p.Exempt)
	assert.Equal(t, store.ContractTerminated, f.Contract(t, "c-P1-X").Status)

	assert.Equal(t, store.WaiverActive, w.Status)
	assert.Equal(t, "X", w.TeamID)
	assert.Equal(t, int64(900_000), w.PriorSalary)
	assert.Equal(t, testutil.Epoch.Add(48*time.Hour), w.EndsAt)
	assert.Equal(t, []feed.Kind{feed.ContractTerminated, feed.PlayerReleased}, f.Kinds())
	f.RequireConsistent(t)
}

func TestReleaseExemptPlayer(t *testing.T) {
	f, ws := setup(t)
	f.SetExempt(t, "P1")
	require.Equal(t, int64(1_000_000), f.Team(t, "X").AvailableCap)

	_, err := ws.Release(context.Background(), agentX, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), f.Team(t, "X").AvailableCap, "exempt salary was never charged")
	assert.False(t, f.Player(t, "P1").Exempt)
	f.RequireConsistent(t)
}

func TestReleaseChecks(t *testing.T) {
	f, ws := setup(t)
	ctx := context.Background()

	_, err := ws.Release(ctx, agentY, "P1")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	assert.Equal(t, store.Signed, f.Player(t, "P1").Status)

	f.AddPlayer(t, "P2")
	_, err = ws.Release(ctx, auth.System, "P2")
	assert.ErrorIs(t, err, errs.ErrInvalidStateTransition)

	_, err = ws.Release(ctx, auth.System, "nobody")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestClaim(t *testing.T) {
	f, ws := setup(t)
	ctx := context.Background()
	w, err := ws.Release(ctx, agentX, "P1")
	require.NoError(t, err)

	_, err = ws.Claim(ctx, agentX, w.ID, ClaimRequest{TeamID: "Y"})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	f.Clock.Advance(time.Hour)
	c, err := ws.Claim(ctx, agentY, w.ID, ClaimRequest{TeamID: "Y"})
	require.NoError(t, err)
	assert.Equal(t, store.ContractActive, c.Status)
	assert.Equal(t, int64(900_000), c.Salary)
	assert.Equal(t, testutil.Epoch.AddDate(0, 0, 365), c.EndsAt, "claimed contract keeps the prior term")

	p := f.Player(t, "P1")
	assert.Equal(t, store.Signed, p.Status)
	assert.Equal(t, "Y", p.CurrentTeam())
	assert.Equal(t, int64(100_000), f.Team(t, "Y").AvailableCap)

	got, err := ws.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, store.WaiverClaimed, got.Status)
	require.NotNil(t, got.ClaimedByTeam)
	assert.Equal(t, "Y", *got.ClaimedByTeam)

	_, err = ws.Claim(ctx, auth.System, w.ID, ClaimRequest{TeamID: "X"})
	assert.ErrorIs(t, err, errs.ErrInvalidStateTransition)
	f.RequireConsistent(t)
}

func TestClaimExpiresReleasingTeamOffer(t *testing.T) {
	f, ws := setup(t)
	ctx := context.Background()
	w, err := ws.Release(ctx, agentX, "P1")
	require.NoError(t, err)

	cs := contracts.New(f.Env)
	offer, err := cs.Offer(ctx, agentX, contracts.OfferRequest{PlayerID: "P1", TeamID: "X", Salary: 100_000, TermDays: 30})
	require.NoError(t, err)

	c, err := ws.Claim(ctx, agentY, w.ID, ClaimRequest{TeamID: "Y"})
	require.NoError(t, err)
	assert.Equal(t, store.ContractExpired, f.Contract(t, offer.ID).Status)

	require.NoError(t, f.Store.View(ctx, func(tx store.Tx) error {
		open, err := tx.FindOpenContract("P1")
		require.NoError(t, err)
		assert.Equal(t, c.ID, open.ID)
		assert.Equal(t, "Y", open.TeamID)
		return nil
	}))
	assert.Equal(t, []feed.Kind{
		feed.ContractTerminated, feed.PlayerReleased, feed.ContractOffered,
		feed.ContractExpired, feed.WaiverClaimed,
	}, f.Kinds())

	_, err = cs.Accept(ctx, auth.Actor{ID: "ext-P1"}, offer.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidStateTransition)
	assert.Equal(t, "Y", f.Player(t, "P1").CurrentTeam())
	f.RequireConsistent(t)
}

func TestClaimWithNegotiatedSalary(t *testing.T) {
	f, ws := setup(t)
	ctx := context.Background()
	f.AddPlayer(t, "P2")
	f.Sign(t, "P2", "Y", 500_000)
	w, err := ws.Release(ctx, agentX, "P1")
	require.NoError(t, err)

	_, err = ws.Claim(ctx, agentY, w.ID, ClaimRequest{TeamID: "Y"})
	assert.ErrorIs(t, err, errs.ErrInsufficientCap)
	assert.Equal(t, store.OnWaivers, f.Player(t, "P1").Status)

	c, err := ws.Claim(ctx, agentY, w.ID, ClaimRequest{TeamID: "Y", Salary: 450_000})
	require.NoError(t, err)
	assert.Equal(t, int64(450_000), c.Salary)
	assert.Equal(t, int64(50_000), f.Team(t, "Y").AvailableCap)
	f.RequireConsistent(t)
}

func TestClaimAfterWindow(t *testing.T) {
	f, ws := setup(t)
	ctx := context.Background()
	w, err := ws.Release(ctx, agentX, "P1")
	require.NoError(t, err)

	f.Clock.Advance(48 * time.Hour)
	_, err = ws.Claim(ctx, agentY, w.ID, ClaimRequest{TeamID: "Y"})
	assert.ErrorIs(t, err, errs.ErrTimeout)
	assert.Equal(t, int64(1_000_000), f.Team(t, "Y").AvailableCap)
}

func TestSweepExpired(t *testing.T) {
	f, ws := setup(t)
	ctx := context.Background()
	w, err := ws.Release(ctx, agentX, "P1")
	require.NoError(t, err)

	n, err := ws.SweepExpired(ctx, testutil.Epoch.Add(47*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "window still open")

	now := testutil.Epoch.Add(48 * time.Hour)
	n, err = ws.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := ws.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, store.WaiverCleared, got.Status)
	assert.Equal(t, store.FreeAgent, f.Player(t, "P1").Status)

	before := f.Player(t, "P1")
	n, err = ws.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, before, f.Player(t, "P1"))
	assert.Equal(t, float64(1), promtest.ToFloat64(f.Env.Metrics.WaiversCleared))
	f.RequireConsistent(t)
}

func TestClaimBeforeSweepWins(t *testing.T) {
	f, ws := setup(t)
	ctx := context.Background()
	w, err := ws.Release(ctx, agentX, "P1")
	require.NoError(t, err)

	f.Clock.Advance(47 * time.Hour)
	_, err = ws.Claim(ctx, agentY, w.ID, ClaimRequest{TeamID: "Y"})
	require.NoError(t, err)

	n, err := ws.SweepExpired(ctx, testutil.Epoch.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, store.Signed, f.Player(t, "P1").Status)
}

func TestClaimRacingSweep(t *testing.T) {
	f, ws := setup(t)
	ctx := context.Background()
	w, err := ws.Release(ctx, agentX, "P1")
	require.NoError(t, err)
	f.Clock.Advance(48*time.Hour - time.Second)

	var (
		wg       sync.WaitGroup
		claimErr error
		swept    int
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, claimErr = ws.Claim(ctx, agentY, w.ID, ClaimRequest{TeamID: "Y"})
	}()
	go func() {
		defer wg.Done()
		swept, _ = ws.SweepExpired(ctx, testutil.Epoch.Add(48*time.Hour))
	}()
	wg.Wait()

	got, err := ws.Get(ctx, w.ID)
	require.NoError(t, err)
	if claimErr == nil {
		assert.Equal(t, store.WaiverClaimed, got.Status)
		assert.Zero(t, swept)
		assert.Equal(t, store.Signed, f.Player(t, "P1").Status)
	} else {
		assert.ErrorIs(t, claimErr, errs.ErrInvalidStateTransition)
		assert.Equal(t, store.WaiverCleared, got.Status)
		assert.Equal(t, 1, swept)
		assert.Equal(t, store.FreeAgent, f.Player(t, "P1").Status)
	}
	f.RequireConsistent(t)
}
