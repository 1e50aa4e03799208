package store

import (
	"sync"

	"golang.org/x/oauth2"
)

// Store is the single source of truth for the current access credential.
// Set always replaces the in-memory value; a returned error only reports that
// a persistence side channel could not be updated.
type Store interface {
	Get() (*oauth2.Token, bool)
	Set(token *oauth2.Token) error
	Clear() error
}

// ConditionalClearer is implemented by stores that can clear the credential
// only while it is still the expected one, atomically with Set.
type ConditionalClearer interface {
	ClearIf(accessToken string) (bool, error)
}

// ClearIf clears aStore when it is empty or holds accessToken. It reports
// false when another credential was stored meanwhile and kept.
func ClearIf(aStore Store, accessToken string) (bool, error) {
	if clearer, ok := aStore.(ConditionalClearer); ok {
		return clearer.ClearIf(accessToken)
	}
	if current, ok := aStore.Get(); ok && current.AccessToken != accessToken {
		return false, nil
	}
	return true, aStore.Clear()
}

type memoryStore struct {
	mu    sync.RWMutex
	token *oauth2.Token
}

func (m *memoryStore) Get() (*oauth2.Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil || m.token.AccessToken == "" {
		return nil, false
	}
	return m.token, true
}

func (m *memoryStore) Set(token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	return nil
}

func (m *memoryStore) ClearIf(accessToken string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != nil && m.token.AccessToken != "" && m.token.AccessToken != accessToken {
		return false, nil
	}
	m.token = nil
	return true, nil
}

// NewMemoryStore creates a process local store, optionally seeded with token.
func NewMemoryStore(token ...*oauth2.Token) Store {
	ret := &memoryStore{}
	if len(token) > 0 {
		ret.token = token[0]
	}
	return ret
}
