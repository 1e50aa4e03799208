package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/scy"
	"golang.org/x/oauth2"
)

// SecretStore is a FileStore variant that encrypts the snapshot with scy.
// Key is a scy key URL, e.g. blowfish://default; the matching kms package
// must be linked in by the caller.
type SecretStore struct {
	mu      sync.Mutex
	URL     string
	Key     string
	fs      afs.Service
	secrets *scy.Service
	memory  *memoryStore
}

// NewSecretStore creates an encrypted Store persisted at URL.
func NewSecretStore(URL, key string) *SecretStore {
	ret := &SecretStore{
		URL:     URL,
		Key:     key,
		fs:      afs.New(),
		secrets: scy.New(),
		memory:  &memoryStore{},
	}
	_ = ret.load(context.Background())
	return ret
}

func (s *SecretStore) Get() (*oauth2.Token, bool) {
	return s.memory.Get()
}

func (s *SecretStore) Set(token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.memory.Set(token)
	if token == nil {
		return s.remove(context.Background())
	}
	resource := scy.NewResource(&snapshot{}, s.URL, s.Key)
	secret := scy.NewSecret(newSnapshot(token), resource)
	if err := s.secrets.Store(context.Background(), secret); err != nil {
		return fmt.Errorf("failed to store encrypted credential %v: %w", s.URL, err)
	}
	return nil
}

func (s *SecretStore) ClearIf(accessToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cleared, _ := s.memory.ClearIf(accessToken); !cleared {
		return false, nil
	}
	return true, s.remove(context.Background())
}

func (s *SecretStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.memory.Clear()
	return s.remove(context.Background())
}

func (s *SecretStore) remove(ctx context.Context) error {
	ok, err := s.fs.Exists(ctx, s.URL)
	if err != nil || !ok {
		return err
	}
	return s.fs.Delete(ctx, s.URL)
}

func (s *SecretStore) load(ctx context.Context) error {
	ok, err := s.fs.Exists(ctx, s.URL)
	if err != nil || !ok {
		return err
	}
	secret, err := s.secrets.Load(ctx, scy.NewResource(&snapshot{}, s.URL, s.Key))
	if err != nil {
		return err
	}
	snap, err := asSnapshot(secret.Target)
	if err != nil {
		return err
	}
	if token := snap.token(); token != nil {
		_ = s.memory.Set(token)
	}
	return nil
}

// asSnapshot normalises whatever scy decoded into a snapshot.
func asSnapshot(target interface{}) (*snapshot, error) {
	switch actual := target.(type) {
	case *snapshot:
		return actual, nil
	case snapshot:
		return &actual, nil
	case nil:
		return nil, fmt.Errorf("empty credential secret")
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, err
	}
	ret := &snapshot{}
	return ret, json.Unmarshal(data, ret)
}
