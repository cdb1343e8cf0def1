package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copilotauth/pkg/credential"
)

func TestStore_FreshDirectory(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "credentials"))

	_, ok := s.LoadAccessToken()
	assert.False(t, ok, "fresh directory should have no access token")
	assert.Nil(t, s.LoadAPIKey())
	assert.False(t, s.HasAccessToken())
	assert.False(t, s.HasAPIKey())
	assert.False(t, s.APIKeyExpired(), "missing key has nothing to expire")
}

func TestStore_AccessTokenRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "credentials"))

	require.NoError(t, s.SaveAccessToken("gho_testtoken"))

	token, ok := s.LoadAccessToken()
	require.True(t, ok)
	assert.Equal(t, "gho_testtoken", token)
	assert.True(t, s.HasAccessToken())

	// Saving again overwrites.
	require.NoError(t, s.SaveAccessToken("gho_newer"))
	token, ok = s.LoadAccessToken()
	require.True(t, ok)
	assert.Equal(t, "gho_newer", token)
}

func TestStore_AccessTokenTrimmed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "access-token"), []byte("gho_token\n"), 0600))

	s := New(dir)
	token, ok := s.LoadAccessToken()
	require.True(t, ok)
	assert.Equal(t, "gho_token", token)
}

func TestStore_APIKeyRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "credentials"))

	key := &credential.APIKey{
		Value:     "copilot-key",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, s.SaveAPIKey(key))

	loaded := s.LoadAPIKey()
	require.NotNil(t, loaded)
	assert.Equal(t, "copilot-key", loaded.Value)
	assert.Equal(t, key.ExpiresAt, loaded.ExpiresAt)
	assert.False(t, loaded.CreatedAt.IsZero(), "CreatedAt should be stamped on save")
	assert.True(t, s.HasAPIKey())
	assert.False(t, s.APIKeyExpired())
}

func TestStore_APIKeyExpired(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "credentials"))

	require.NoError(t, s.SaveAPIKey(&credential.APIKey{
		Value:     "stale",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}))

	assert.True(t, s.APIKeyExpired())
	loaded := s.LoadAPIKey()
	require.NotNil(t, loaded, "expired keys are still loadable; validity is the caller's check")
	assert.False(t, loaded.Valid())
}

func TestStore_MalformedAPIKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api-key.json"), []byte("{not json"), 0600))

	s := New(dir)
	assert.Nil(t, s.LoadAPIKey(), "malformed content is treated as absent")
	assert.True(t, s.HasAPIKey(), "the file itself still exists")
	assert.True(t, s.APIKeyExpired(), "malformed content counts as expired")
}

func TestStore_SaveRejectsEmptyKey(t *testing.T) {
	s := New(t.TempDir())

	assert.Error(t, s.SaveAPIKey(nil))
	assert.Error(t, s.SaveAPIKey(&credential.APIKey{}))
}

func TestStore_ClearIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "credentials"))

	require.NoError(t, s.SaveAccessToken("gho_token"))
	require.NoError(t, s.SaveAPIKey(&credential.APIKey{
		Value:     "key",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}))

	require.NoError(t, s.Clear())
	assert.False(t, s.HasAccessToken())
	assert.False(t, s.HasAPIKey())

	// Second clear on an empty directory must also succeed.
	require.NoError(t, s.Clear())
	assert.False(t, s.HasAccessToken())
}

func TestStore_CreatesParentDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper", "credentials")
	s := New(dir)

	require.NoError(t, s.SaveAccessToken("gho_token"))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	fileInfo, err := os.Stat(filepath.Join(dir, "access-token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fileInfo.Mode().Perm())
}
