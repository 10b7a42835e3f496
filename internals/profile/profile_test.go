package profile

import (
	"context"
	"testing"

	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/status"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/libertypfc/Hockeybot-sub000/internals/testutil"
	"github.com/libertypfc/Hockeybot-sub000/internals/waivers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfile(t *testing.T) {
	f := testutil.New(t)
	f.AddTeam(t, "X", 1_000_000, 0)
	f.AddPlayer(t, "P1")
	f.Sign(t, "P1", "X", 100_000)
	ps := New(f.Env)
	ctx := context.Background()

	prof, err := ps.GetProfile(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, store.Signed, prof.Player.Status)
	require.NotNil(t, prof.Contract)
	assert.Equal(t, "c-P1-X", prof.Contract.ID)
	assert.Nil(t, prof.Waiver)
	require.Len(t, prof.History, 1)
	assert.Equal(t, status.ReasonContract, prof.History[0].Reason)

	_, err = waivers.New(f.Env).Release(ctx, auth.System, "P1")
	require.NoError(t, err)

	prof, err = ps.GetProfileByExternalID(ctx, "ext-P1")
	require.NoError(t, err)
	assert.Equal(t, store.OnWaivers, prof.Player.Status)
	assert.Nil(t, prof.Contract)
	require.NotNil(t, prof.Waiver)
	require.Len(t, prof.History, 2)
	assert.Equal(t, store.Signed, prof.History[1].FromStatus)
	assert.Equal(t, store.OnWaivers, prof.History[1].ToStatus)

	_, err = ps.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
