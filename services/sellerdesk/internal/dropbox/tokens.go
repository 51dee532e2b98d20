package dropbox

import (
	"sync"
	"time"
)

// Token is one user's OAuth credential record. The access token and expiry
// are replaced on refresh; the refresh token survives unless the provider
// rotates it.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	AccountID    string
}

// TokenStore is a process-wide in-memory credential cache keyed by an
// opaque user identifier. It owns all Token records exclusively: entries
// live for the process lifetime, with no persistence and no TTL sweep.
// Stale entries are reaped lazily, when next accessed and found expired
// with no refresh credential. Injected as a dependency so a persistent
// backing store can replace it later.
type TokenStore struct {
	mu     sync.Mutex
	byUser map[string]Token
	now    func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{byUser: map[string]Token{}, now: time.Now}
}

// Get returns the user's token, lazily deleting an expired entry that has
// no refresh credential to renew it.
func (s *TokenStore) Get(userID string) (Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byUser[userID]
	if !ok {
		return Token{}, false
	}
	if s.now().After(tok.ExpiresAt) && tok.RefreshToken == "" {
		delete(s.byUser, userID)
		return Token{}, false
	}
	return tok, true
}

func (s *TokenStore) Set(userID string, tok Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = tok
}

func (s *TokenStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}

// IsValid reports whether an entry exists with its expiry in the future,
// disregarding refresh capability.
func (s *TokenStore) IsValid(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byUser[userID]
	return ok && s.now().Before(tok.ExpiresAt)
}
