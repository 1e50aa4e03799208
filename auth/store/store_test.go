package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/viant/scy/kms/blowfish"
	"golang.org/x/oauth2"
)

func TestMemoryStore(t *testing.T) {
	aStore := NewMemoryStore()
	_, ok := aStore.Get()
	assert.False(t, ok, "new store should be empty")

	require.NoError(t, aStore.Set(&oauth2.Token{AccessToken: "A"}))
	token, ok := aStore.Get()
	require.True(t, ok)
	assert.Equal(t, "A", token.AccessToken)

	require.NoError(t, aStore.Set(&oauth2.Token{AccessToken: "B"}))
	token, _ = aStore.Get()
	assert.Equal(t, "B", token.AccessToken)

	require.NoError(t, aStore.Clear())
	_, ok = aStore.Get()
	assert.False(t, ok)
}

func TestMemoryStore_Seeded(t *testing.T) {
	aStore := NewMemoryStore(&oauth2.Token{AccessToken: "seed"})
	token, ok := aStore.Get()
	require.True(t, ok)
	assert.Equal(t, "seed", token.AccessToken)

	assert.NoError(t, aStore.Set(&oauth2.Token{}))
	_, ok = aStore.Get()
	assert.False(t, ok, "empty access token is treated as absent")
}

func TestFileStore(t *testing.T) {
	location := filepath.Join(t.TempDir(), "session", "credential.json")
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	aStore := NewFileStore(location)
	_, ok := aStore.Get()
	assert.False(t, ok)

	require.NoError(t, aStore.Set(&oauth2.Token{AccessToken: "A", TokenType: "Bearer", Expiry: expiry}))
	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"accessToken": "A"`)

	reloaded := NewFileStore(location)
	token, ok := reloaded.Get()
	require.True(t, ok, "credential should survive a restart")
	assert.Equal(t, "A", token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.True(t, expiry.Equal(token.Expiry))

	require.NoError(t, reloaded.Clear())
	_, err = os.Stat(location)
	assert.True(t, os.IsNotExist(err), "snapshot should be removed on clear")
	assert.False(t, hasToken(NewFileStore(location)))
}

func TestFileStore_CorruptSnapshot(t *testing.T) {
	location := filepath.Join(t.TempDir(), "credential.json")
	require.NoError(t, os.WriteFile(location, []byte("{not json"), 0o600))
	assert.False(t, hasToken(NewFileStore(location)))
}

func TestSecretStore(t *testing.T) {
	location := filepath.Join(t.TempDir(), "credential.enc")
	aStore := NewSecretStore(location, "blowfish://default")

	require.NoError(t, aStore.Set(&oauth2.Token{AccessToken: "secret-token", TokenType: "Bearer"}))
	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "secret-token"), "credential should be encrypted at rest")

	reloaded := NewSecretStore(location, "blowfish://default")
	token, ok := reloaded.Get()
	require.True(t, ok)
	assert.Equal(t, "secret-token", token.AccessToken)

	require.NoError(t, reloaded.Clear())
	_, err = os.Stat(location)
	assert.True(t, os.IsNotExist(err))
}

func hasToken(s Store) bool {
	_, ok := s.Get()
	return ok
}

type plainStore struct {
	Store
}

func TestClearIf(t *testing.T) {
	testCases := []struct {
		description string
		newStore    func(t *testing.T) Store
	}{
		{description: "memory", newStore: func(t *testing.T) Store { return NewMemoryStore() }},
		{description: "file", newStore: func(t *testing.T) Store { return NewFileStore(filepath.Join(t.TempDir(), "credential.json")) }},
		{description: "secret", newStore: func(t *testing.T) Store {
			return NewSecretStore(filepath.Join(t.TempDir(), "credential.enc"), "blowfish://default")
		}},
		{description: "without conditional clear", newStore: func(t *testing.T) Store { return &plainStore{Store: NewMemoryStore()} }},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			aStore := testCase.newStore(t)
			require.NoError(t, aStore.Set(&oauth2.Token{AccessToken: "L"}))
			cleared, err := ClearIf(aStore, "A")
			require.NoError(t, err)
			assert.False(t, cleared, "newer credential is kept")
			token, ok := aStore.Get()
			require.True(t, ok)
			assert.Equal(t, "L", token.AccessToken)

			cleared, err = ClearIf(aStore, "L")
			require.NoError(t, err)
			assert.True(t, cleared)
			assert.False(t, hasToken(aStore))

			cleared, err = ClearIf(aStore, "A")
			require.NoError(t, err)
			assert.True(t, cleared, "empty store counts as cleared")
		})
	}
}
