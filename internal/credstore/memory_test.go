package credstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcenterhq/client-go/internal/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.LoadCredential(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	cred := &models.Credential{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, store.SaveCredential(ctx, cred))
	require.NoError(t, store.SaveIdentity(ctx, &models.Identity{ID: 42, Username: "member42"}))

	loaded, err := store.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.AccessToken)

	identity, err := store.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.ID)

	require.NoError(t, store.Clear(ctx))
	_, err = store.LoadCredential(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.LoadIdentity(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopiesOnSaveAndLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cred := &models.Credential{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, store.SaveCredential(ctx, cred))

	// Mutating the caller's value must not leak into the store.
	cred.AccessToken = "mutated"
	loaded, err := store.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.AccessToken)

	// Nor may a loaded value alias the stored one.
	loaded.AccessToken = "mutated-again"
	again, err := store.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", again.AccessToken)
}
