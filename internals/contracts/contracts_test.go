package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/libertypfc/Hockeybot-sub000/internals/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	agentT1  = auth.Actor{ID: "gm-t1", TeamID: "T1"}
	playerP1 = auth.Actor{ID: "ext-P1"}
)

func setup(t *testing.T) (*testutil.Fixture, *ContractService) {
	f := testutil.New(t)
	f.AddTeam(t, "T1", 1000, 0)
	f.AddPlayer(t, "P1")
	return f, New(f.Env)
}

func TestOfferAndAccept(t *testing.T) {
	f, cs := setup(t)
	ctx := context.Background()

	c, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 400, TermDays: 365, MessageRef: "msg-1"})
	require.NoError(t, err)
	assert.Equal(t, store.ContractPending, c.Status)
	assert.Equal(t, "msg-1", c.OriginatingMessageRef)
	assert.Equal(t, int64(1000), f.Team(t, "T1").AvailableCap, "an offer reserves nothing")

	c, err = cs.Accept(ctx, playerP1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ContractActive, c.Status)

	p := f.Player(t, "P1")
	assert.Equal(t, store.Signed, p.Status)
	assert.Equal(t, "T1", p.CurrentTeam())
	assert.Equal(t, int64(600), f.Team(t, "T1").AvailableCap)
	assert.Equal(t, []feed.Kind{feed.ContractOffered, feed.ContractAccepted}, f.Kinds())
	f.RequireConsistent(t)
}

func TestOfferRejectsUnaffordableSalary(t *testing.T) {
	_, cs := setup(t)
	_, err := cs.Offer(context.Background(), agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 1001, TermDays: 30})
	assert.ErrorIs(t, err, errs.ErrInsufficientCap)
}

func TestOfferValidatesInput(t *testing.T) {
	_, cs := setup(t)
	ctx := context.Background()

	_, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 0, TermDays: 30})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 10})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T9", Salary: 10, TermDays: 30})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = cs.Offer(ctx, auth.System, OfferRequest{PlayerID: "P1", TeamID: "T9", Salary: 10, TermDays: 30})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P9", TeamID: "T1", Salary: 10, TermDays: 30})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestOfferToSignedPlayer(t *testing.T) {
	f, cs := setup(t)
	f.AddTeam(t, "T2", 1000, 0)
	f.Sign(t, "P1", "T2", 100)

	_, err := cs.Offer(context.Background(), agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 100, TermDays: 30})
	assert.ErrorIs(t, err, errs.ErrPlayerAlreadyUnderContract)
}

func TestSecondOfferWhileFirstPending(t *testing.T) {
	f, cs := setup(t)
	f.AddTeam(t, "T2", 1000, 0)
	ctx := context.Background()

	first, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 100, TermDays: 30})
	require.NoError(t, err)

	agentT2 := auth.Actor{ID: "gm-t2", TeamID: "T2"}
	_, err = cs.Offer(ctx, agentT2, OfferRequest{PlayerID: "P1", TeamID: "T2", Salary: 100, TermDays: 30})
	assert.ErrorIs(t, err, errs.ErrPlayerAlreadyUnderContract)

	// Once the first offer lapses, a new one replaces it.
	f.Clock.Advance(f.Env.Rules.OfferTimeout)
	second, err := cs.Offer(ctx, agentT2, OfferRequest{PlayerID: "P1", TeamID: "T2", Salary: 100, TermDays: 30})
	require.NoError(t, err)
	assert.Equal(t, store.ContractExpired, f.Contract(t, first.ID).Status)
	assert.Equal(t, store.ContractPending, second.Status)
	assert.Contains(t, f.Kinds(), feed.ContractExpired)
}

func TestAcceptRechecksCap(t *testing.T) {
	f, cs := setup(t)
	f.AddPlayer(t, "P2")
	ctx := context.Background()

	a, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 700, TermDays: 30})
	require.NoError(t, err)
	b, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P2", TeamID: "T1", Salary: 700, TermDays: 30})
	require.NoError(t, err, "both offers fit the cap on their own")

	_, err = cs.Accept(ctx, playerP1, a.ID)
	require.NoError(t, err)
	_, err = cs.Accept(ctx, auth.Actor{ID: "ext-P2"}, b.ID)
	assert.ErrorIs(t, err, errs.ErrInsufficientCap)

	assert.Equal(t, store.ContractPending, f.Contract(t, b.ID).Status)
	assert.Equal(t, store.FreeAgent, f.Player(t, "P2").Status)
	assert.Equal(t, int64(300), f.Team(t, "T1").AvailableCap)
	f.RequireConsistent(t)
}

func TestAcceptAfterDeadline(t *testing.T) {
	f, cs := setup(t)
	ctx := context.Background()

	c, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 100, TermDays: 30})
	require.NoError(t, err)
	f.Clock.Advance(f.Env.Rules.OfferTimeout + time.Second)

	_, err = cs.Accept(ctx, playerP1, c.ID)
	assert.ErrorIs(t, err, errs.ErrOfferExpired)
	assert.Equal(t, store.FreeAgent, f.Player(t, "P1").Status)
}

func TestOnlyOfferedPlayerAnswers(t *testing.T) {
	f, cs := setup(t)
	ctx := context.Background()

	c, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 100, TermDays: 30})
	require.NoError(t, err)

	_, err = cs.Accept(ctx, agentT1, c.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = cs.Reject(ctx, auth.Actor{ID: "ext-P2"}, c.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	c, err = cs.Reject(ctx, playerP1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ContractRejected, c.Status)

	_, err = cs.Accept(ctx, playerP1, c.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidStateTransition)
	assert.Equal(t, store.FreeAgent, f.Player(t, "P1").Status)
}

func TestWithdrawAndExpire(t *testing.T) {
	f, cs := setup(t)
	f.AddPlayer(t, "P2")
	ctx := context.Background()

	a, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 100, TermDays: 30})
	require.NoError(t, err)
	b, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P2", TeamID: "T1", Salary: 100, TermDays: 30})
	require.NoError(t, err)

	_, err = cs.Withdraw(ctx, auth.Actor{ID: "gm-t2", TeamID: "T2"}, a.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	a, err = cs.Withdraw(ctx, agentT1, a.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ContractDeclined, a.Status)

	b, err = cs.Expire(ctx, auth.System, b.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ContractExpired, b.Status)

	_, err = cs.Expire(ctx, auth.System, b.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidStateTransition)
}

func TestExpireStale(t *testing.T) {
	f, cs := setup(t)
	f.AddPlayer(t, "P2")
	ctx := context.Background()

	a, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P1", TeamID: "T1", Salary: 100, TermDays: 30})
	require.NoError(t, err)
	f.Clock.Advance(10 * time.Second)
	b, err := cs.Offer(ctx, agentT1, OfferRequest{PlayerID: "P2", TeamID: "T1", Salary: 100, TermDays: 30})
	require.NoError(t, err)

	n, err := cs.ExpireStale(ctx, testutil.Epoch.Add(f.Env.Rules.OfferTimeout))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, store.ContractExpired, f.Contract(t, a.ID).Status)
	assert.Equal(t, store.ContractPending, f.Contract(t, b.ID).Status)

	n, err = cs.ExpireStale(ctx, testutil.Epoch.Add(f.Env.Rules.OfferTimeout))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOfferELC(t *testing.T) {
	f, cs := setup(t)
	f.AddTeam(t, "T2", 1000, 0)
	f.Env.Rules.ELCSalary = 500
	ctx := context.Background()

	c, err := cs.OfferELC(ctx, agentT1, ELCRequest{PlayerID: "P1", TeamID: "T1"})
	require.NoError(t, err)
	assert.Equal(t, store.EntryLevel, c.Kind)
	assert.Equal(t, int64(500), c.Salary)
	assert.Equal(t, testutil.Epoch.AddDate(0, 0, f.Env.Rules.ELCTermDays), c.EndsAt)

	_, err = cs.Accept(ctx, playerP1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), f.Team(t, "T1").AvailableCap)
}

func TestTerminate(t *testing.T) {
	f, _ := setup(t)
	id := f.Sign(t, "P1", "T1", 100)

	err := f.Store.Tx(context.Background(), func(tx store.Tx) error {
		_, err := tx.LockPlayers("P1")
		require.NoError(t, err)
		c, err := tx.Contract(id)
		require.NoError(t, err)
		require.NoError(t, Terminate(tx, &c))
		return Terminate(tx, &c)
	})
	assert.ErrorIs(t, err, errs.ErrInvalidStateTransition)
	assert.Equal(t, store.ContractActive, f.Contract(t, id).Status, "failed unit of work rolls back")
}
