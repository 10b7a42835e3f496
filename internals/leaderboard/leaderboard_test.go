package leaderboard

import (
	"context"
	"testing"

	"github.com/libertypfc/Hockeybot-sub000/internals/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapTable(t *testing.T) {
	f := testutil.New(t)
	f.AddTeam(t, "A", 1_000_000, 100_000)
	f.AddTeam(t, "B", 1_000_000, 100_000)
	f.AddTeam(t, "C", 2_000_000, 0)
	f.AddPlayer(t, "P1")
	f.AddPlayer(t, "P2")
	f.Sign(t, "P1", "A", 400_000)
	f.Sign(t, "P2", "C", 100_000)

	lb := New(f.Env)
	table, err := lb.CapTable(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{table[0].TeamID, table[1].TeamID, table[2].TeamID})
	assert.Equal(t, int64(600_000), table[2].AvailableCap)

	below, err := lb.BelowFloor(context.Background())
	require.NoError(t, err)
	require.Len(t, below, 1)
	assert.Equal(t, "B", below[0].TeamID)
}
