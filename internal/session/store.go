// Package session stores refresh tokens and revoked access-token ids.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound reports a missing, expired, or revoked refresh token.
var ErrNotFound = errors.New("refresh token not found or expired")

// TokenData holds what we persist for each refresh token.
type TokenData struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the session storage backend: redis in production, in-memory when
// redis is not configured (single instance only).
type Store interface {
	SaveRefresh(ctx context.Context, tokenHash string, data TokenData, expiresAt time.Time) error
	LookupRefresh(ctx context.Context, tokenHash string) (TokenData, error)
	RevokeRefresh(ctx context.Context, tokenHash string) error
	RevokeAccess(ctx context.Context, jti string, until time.Time) error
	IsAccessRevoked(ctx context.Context, jti string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

type memoryEntry struct {
	data      TokenData
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Suitable for development and
// tests; state is lost on restart and not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	refresh map[string]memoryEntry
	revoked map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		refresh: make(map[string]memoryEntry),
		revoked: make(map[string]time.Time),
	}
}

func (s *MemoryStore) SaveRefresh(_ context.Context, tokenHash string, data TokenData, expiresAt time.Time) error {
	s.mu.Lock()
	s.refresh[tokenHash] = memoryEntry{data: data, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LookupRefresh(_ context.Context, tokenHash string) (TokenData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.refresh[tokenHash]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.refresh, tokenHash)
		return TokenData{}, ErrNotFound
	}
	return entry.data, nil
}

func (s *MemoryStore) RevokeRefresh(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	delete(s.refresh, tokenHash)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) RevokeAccess(_ context.Context, jti string, until time.Time) error {
	s.mu.Lock()
	s.revoked[jti] = until
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) IsAccessRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(s.revoked, jti)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
