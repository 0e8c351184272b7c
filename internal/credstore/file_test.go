package credstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcenterhq/client-go/internal/models"
)

func TestFileStoreCredentialRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "passphrase")
	require.NoError(t, err)

	cred := &models.Credential{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-def",
		IssuedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveCredential(context.Background(), cred))

	loaded, err := store.LoadCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cred.AccessToken, loaded.AccessToken)
	assert.Equal(t, cred.RefreshToken, loaded.RefreshToken)
}

func TestFileStoreCredentialEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "passphrase")
	require.NoError(t, err)

	cred := &models.Credential{AccessToken: "super-secret-access", RefreshToken: "super-secret-refresh"}
	require.NoError(t, store.SaveCredential(context.Background(), cred))

	raw, err := os.ReadFile(filepath.Join(dir, credentialFile))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "super-secret-access")
	assert.NotContains(t, string(raw), "super-secret-refresh")
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "right")
	require.NoError(t, err)
	require.NoError(t, store.SaveCredential(context.Background(), &models.Credential{AccessToken: "a", RefreshToken: "r"}))

	other, err := NewFileStore(dir, "wrong")
	require.NoError(t, err)

	_, err = other.LoadCredential(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFileStoreAbsenceIsNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = store.LoadCredential(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.LoadIdentity(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreIdentityRoundTripAndCorruption(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "")
	require.NoError(t, err)

	identity := &models.Identity{ID: 42, Username: "member42", Role: models.RoleMember, Active: true}
	require.NoError(t, store.SaveIdentity(context.Background(), identity))

	loaded, err := store.LoadIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, identity, loaded)

	require.NoError(t, os.WriteFile(filepath.Join(dir, identityFile), []byte("{not json"), 0o600))
	_, err = store.LoadIdentity(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "decode identity"))
}

func TestFileStoreClear(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "p")
	require.NoError(t, err)

	require.NoError(t, store.SaveCredential(context.Background(), &models.Credential{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, store.SaveIdentity(context.Background(), &models.Identity{ID: 1}))

	require.NoError(t, store.Clear(context.Background()))

	_, err = store.LoadCredential(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.LoadIdentity(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing twice is harmless.
	require.NoError(t, store.Clear(context.Background()))
}

func TestFileStoreReplacesPairAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "p")
	require.NoError(t, err)

	require.NoError(t, store.SaveCredential(context.Background(), &models.Credential{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, store.SaveCredential(context.Background(), &models.Credential{AccessToken: "a2", RefreshToken: "r2"}))

	loaded, err := store.LoadCredential(context.Background())
	require.NoError(t, err)

	// Both halves always come from the same write.
	assert.Equal(t, "a2", loaded.AccessToken)
	assert.Equal(t, "r2", loaded.RefreshToken)
}
