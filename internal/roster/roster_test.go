package roster

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/types"
)

func sampleRoster() []types.Student {
	return []types.Student{
		{ID: 11, FirstName: "Lucie", LastName: "Bernard", ClassName: "1G1"},
		{ID: 12, FirstName: "Karim", LastName: "Haddad", ClassName: "1G2"},
	}
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "roster.db"),
		constants.RosterSnapshotMaxAge, constants.RosterCacheSweepInterval)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, 7, sampleRoster()))

	got, ok := c.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, sampleRoster(), got)
}

func TestCache_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	ctx := context.Background()

	c, err := Open(path, constants.RosterSnapshotMaxAge, constants.RosterCacheSweepInterval)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, 7, sampleRoster()))
	require.NoError(t, c.Close())

	c, err = Open(path, constants.RosterSnapshotMaxAge, constants.RosterCacheSweepInterval)
	require.NoError(t, err)
	defer c.Close()

	got, ok := c.Get(ctx, 7)
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestCache_StaleSnapshotIsAMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	ctx := context.Background()

	c, err := Open(path, 50*time.Millisecond, time.Minute)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, 7, sampleRoster()))
	require.NoError(t, c.Close())

	time.Sleep(80 * time.Millisecond)

	// Reopen so the memory front is cold and the persisted age decides.
	c, err = Open(path, 50*time.Millisecond, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)
}

func TestCache_PutReplacesSnapshot(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "roster.db"),
		constants.RosterSnapshotMaxAge, constants.RosterCacheSweepInterval)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, 7, sampleRoster()))
	require.NoError(t, c.Put(ctx, 7, []types.Student{{ID: 99, LastName: "Novak"}}))

	got, ok := c.Get(ctx, 7)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 99, got[0].ID)
}

func TestCache_Invalidate(t *testing.T) {
	c, err := Open("", constants.RosterSnapshotMaxAge, constants.RosterCacheSweepInterval)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, 7, sampleRoster()))
	c.Invalidate(ctx, 7)

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)
}

func TestCache_SnapshotsAreIsolatedPerAccount(t *testing.T) {
	c, err := Open("", constants.RosterSnapshotMaxAge, constants.RosterCacheSweepInterval)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, 7, sampleRoster()))

	_, ok := c.Get(ctx, 8)
	assert.False(t, ok)
}
