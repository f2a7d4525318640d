package club_test

import (
	"context"
	"testing"

	"github.com/shampsdev/gopadel-sub001/internal/club"
	"github.com/shampsdev/gopadel-sub001/internal/database"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (club.ClubStore, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	return club.New(db), dbTeardown
}

func TestAddAndGetMembers(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	tgID := int64(4242)
	require.NoError(t, store.AddMember(ctx, club.Member{ID: "m1", Name: "Alice", Rank: 2.5, TelegramID: &tgID}))
	require.NoError(t, store.AddMember(ctx, club.Member{ID: "m2", Name: "Bob", Rank: 4.0, IsAdmin: true}))

	assert.True(t, store.IsKnownMember(ctx, "m1"))
	assert.False(t, store.IsKnownMember(ctx, "m3"))

	all, err := store.GetAllMembers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].Name)
	require.NotNil(t, all[0].TelegramID)
	assert.Equal(t, tgID, *all[0].TelegramID)
	assert.True(t, all[1].IsAdmin)

	byRank, err := store.GetMembersSortedByRank(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m2", byRank[0].ID)
}

func TestAddMember_UpdatesExisting(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.AddMember(ctx, club.Member{ID: "m1", Name: "Alice", Rank: 1}))
	require.NoError(t, store.AddMember(ctx, club.Member{ID: "m1", Name: "Alice B.", Rank: 3}))

	m, err := store.GetMember(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", m.Name)
	assert.Equal(t, 3.0, m.Rank)
}

func TestUpsertMembersAndGetMembers(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	err := store.UpsertMembers(ctx, []club.Member{
		{ID: "a", Name: "A", Rank: 1},
		{ID: "b", Name: "B", Rank: 2},
		{ID: "c", Name: "C", Rank: 3},
	})
	require.NoError(t, err)

	members, err := store.GetMembers(ctx, []string{"a", "c", "missing"})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "a", members[0].ID)
	assert.Equal(t, "c", members[1].ID)
}

func TestSetRank(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.AddMember(ctx, club.Member{ID: "m1", Name: "Alice", Rank: 1}))
	require.NoError(t, store.SetRank(ctx, "m1", 3.5))

	m, err := store.GetMember(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 3.5, m.Rank)

	err = store.SetRank(ctx, "nobody", 2)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	_, err = store.GetMember(ctx, "nobody")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}
