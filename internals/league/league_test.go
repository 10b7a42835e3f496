package league

import (
	"context"
	"testing"

	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/libertypfc/Hockeybot-sub000/internals/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = auth.Actor{ID: "commissioner", Admin: true}

func TestCreateTeam(t *testing.T) {
	f := testutil.New(t)
	ls := New(f.Env)
	ctx := context.Background()

	team, err := ls.CreateTeam(ctx, admin, CreateTeamRequestBody{Name: " Pirates ", CapCeiling: 1_000_000, CapFloor: 300_000})
	require.NoError(t, err)
	assert.NotEmpty(t, team.ID)
	assert.Equal(t, "Pirates", team.Name)
	assert.Equal(t, int64(1_000_000), team.AvailableCap)

	_, err = ls.CreateTeam(ctx, admin, CreateTeamRequestBody{Name: "pirates", CapCeiling: 1_000_000})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = ls.CreateTeam(ctx, admin, CreateTeamRequestBody{Name: "Sharks", CapCeiling: 100, CapFloor: 200})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = ls.CreateTeam(ctx, auth.Actor{ID: "gm"}, CreateTeamRequestBody{Name: "Sharks", CapCeiling: 100})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	teams, err := ls.Teams(ctx)
	require.NoError(t, err)
	assert.Len(t, teams, 1)
	assert.Equal(t, []feed.Kind{feed.TeamCreated}, f.Kinds())
	f.RequireConsistent(t)
}

func TestRegisterPlayer(t *testing.T) {
	f := testutil.New(t)
	ls := New(f.Env)
	ctx := context.Background()

	p, err := ls.RegisterPlayer(ctx, auth.Actor{ID: "u-42"}, RegisterPlayerRequestBody{ExternalID: "u-42", Name: "Wayne"})
	require.NoError(t, err)
	assert.Equal(t, store.FreeAgent, p.Status)
	assert.Nil(t, p.TeamID)

	_, err = ls.RegisterPlayer(ctx, admin, RegisterPlayerRequestBody{ExternalID: "u-42", Name: "Wayne again"})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = ls.RegisterPlayer(ctx, auth.Actor{ID: "u-1"}, RegisterPlayerRequestBody{ExternalID: "u-2", Name: "Someone"})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	got, err := ls.PlayerByExternalID(ctx, "u-42")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}
