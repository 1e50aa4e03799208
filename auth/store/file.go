package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/viant/afs"
	"golang.org/x/oauth2"
)

// FileStore keeps the credential in memory and mirrors it to a JSON snapshot
// at URL. Any afs supported scheme can be used; a bare path means local file.
type FileStore struct {
	mu     sync.RWMutex
	URL    string
	fs     afs.Service
	memory *memoryStore
}

// snapshot is the persisted form of a credential.
type snapshot struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType,omitempty"`
	Expiry      time.Time `json:"expiry,omitempty"`
	SavedAt     time.Time `json:"savedAt"`
}

func newSnapshot(token *oauth2.Token) *snapshot {
	return &snapshot{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
		SavedAt:     time.Now().UTC(),
	}
}

func (s *snapshot) token() *oauth2.Token {
	if s == nil || s.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{AccessToken: s.AccessToken, TokenType: s.TokenType, Expiry: s.Expiry}
}

// NewFileStore creates a Store persisted at URL. A missing or unreadable
// snapshot starts the store empty.
func NewFileStore(URL string) *FileStore {
	ret := &FileStore{
		URL:    URL,
		fs:     afs.New(),
		memory: &memoryStore{},
	}
	_ = ret.load(context.Background())
	return ret
}

func (f *FileStore) Get() (*oauth2.Token, bool) {
	return f.memory.Get()
}

func (f *FileStore) Set(token *oauth2.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.memory.Set(token)
	if token == nil {
		return f.remove(context.Background())
	}
	return f.save(context.Background(), token)
}

func (f *FileStore) ClearIf(accessToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cleared, _ := f.memory.ClearIf(accessToken); !cleared {
		return false, nil
	}
	return true, f.remove(context.Background())
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.memory.Clear()
	return f.remove(context.Background())
}

func (f *FileStore) save(ctx context.Context, token *oauth2.Token) error {
	data, err := json.MarshalIndent(newSnapshot(token), "", "  ")
	if err != nil {
		return err
	}
	if err = f.fs.Upload(ctx, f.URL, 0o600, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to persist credential %v: %w", f.URL, err)
	}
	return nil
}

func (f *FileStore) remove(ctx context.Context) error {
	ok, err := f.fs.Exists(ctx, f.URL)
	if err != nil || !ok {
		return err
	}
	if err = f.fs.Delete(ctx, f.URL); err != nil {
		return fmt.Errorf("failed to remove credential %v: %w", f.URL, err)
	}
	return nil
}

func (f *FileStore) load(ctx context.Context) error {
	ok, err := f.fs.Exists(ctx, f.URL)
	if err != nil || !ok {
		return err
	}
	data, err := f.fs.DownloadWithURL(ctx, f.URL)
	if err != nil {
		return err
	}
	snap := &snapshot{}
	if err = json.Unmarshal(data, snap); err != nil {
		return err
	}
	if token := snap.token(); token != nil {
		_ = f.memory.Set(token)
	}
	return nil
}
