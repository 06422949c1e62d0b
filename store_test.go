package session_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/giraffespace/go-session"
)

func runTokenStoreSuite(t *testing.T, newStore func(t *testing.T) session.TokenStore) {
	ctx := context.Background()

	t.Run("empty store loads logged out", func(t *testing.T) {
		store := newStore(t)

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.False(t, state.IsLoggedIn)
		assert.Nil(t, state.User)
		assert.Empty(t, state.Token)
	})

	t.Run("save then load round trips", func(t *testing.T) {
		store := newStore(t)
		user := newTestUser()

		require.NoError(t, store.Save(ctx, "tok-abc", user))

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.True(t, state.IsLoggedIn)
		assert.Equal(t, "tok-abc", state.Token)
		require.NotNil(t, state.User)
		assert.Equal(t, user.ID, state.User.ID)
		assert.Equal(t, user.Email, state.User.Email)
	})

	t.Run("load is idempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, "tok-abc", newTestUser()))

		first, err := store.Load(ctx)
		require.NoError(t, err)
		second, err := store.Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, first.IsLoggedIn, second.IsLoggedIn)
		assert.Equal(t, first.Token, second.Token)
		assert.Equal(t, first.User, second.User)
	})

	t.Run("clear empties everything and is idempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, "tok-abc", newTestUser()))

		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Clear(ctx))

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.False(t, state.IsLoggedIn)
	})

	t.Run("save overwrites previous session", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, "tok-old", newTestUser()))

		other := newTestUser()
		other.ID = "9c1d2e3f-1111-2222-3333-444455556666"
		other.Username = "bjorn"
		require.NoError(t, store.Save(ctx, "tok-new", other))

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-new", state.Token)
		assert.Equal(t, "bjorn", state.User.Username)
	})
}

func TestMemoryStore(t *testing.T) {
	runTokenStoreSuite(t, func(t *testing.T) session.TokenStore {
		return session.NewMemoryStore()
	})
}

func TestBoltStore(t *testing.T) {
	runTokenStoreSuite(t, func(t *testing.T) session.TokenStore {
		store, err := session.NewBoltStoreFromFile(filepath.Join(t.TempDir(), "session.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestMemoryStoreClearsCorruptedProfile(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	store.Seed(session.StoreKeyLoggedIn, "true")
	store.Seed(session.StoreKeyUser, "{not valid json")
	store.Seed(session.StoreKeyToken, "tok-abc")

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, state.IsLoggedIn)

	// The unreadable leftovers are gone after the load.
	_, ok := store.Get(session.StoreKeyUser)
	assert.False(t, ok)
	_, ok = store.Get(session.StoreKeyToken)
	assert.False(t, ok)
}

func TestMemoryStoreClearsPartialWrite(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	// Token without the logged-in flag or profile.
	store.Seed(session.StoreKeyToken, "tok-abc")

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, state.IsLoggedIn)

	_, ok := store.Get(session.StoreKeyToken)
	assert.False(t, ok)
}

func TestMemoryStoreMissingFlagIsLoggedOut(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	store.Seed(session.StoreKeyLoggedIn, "false")

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, state.IsLoggedIn)
}
