// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package session implements the short-lived credential binding an
// account to an authenticated channel (spec §4.3, component C3).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sealbox/sealbox/pkg/ids"
	"github.com/sealbox/sealbox/pkg/verr"
)

// Session binds an account id to an AEAD session key for a bounded time.
type Session struct {
	ID        string
	AccountID string
	Key       []byte
	ExpiresAt time.Time
	revoked   bool
}

// Expired reports whether the session has passed its expiry at t.
func (s *Session) Expired(t time.Time) bool { return t.After(s.ExpiresAt) }

// Store holds issued sessions in an in-memory map; sessions do not survive
// a process restart.
type Store struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]*Session
}

// DefaultTTL is how long a session remains valid after createSession.
const DefaultTTL = 12 * time.Hour

// NewStore returns an in-memory session store with the given TTL for newly
// issued sessions.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, m: map[string]*Session{}}
}

// Create issues a new session for accountID bound to key, expiring after
// the store's TTL from now.
func (s *Store) Create(_ context.Context, accountID string, key []byte, now time.Time) *Session {
	sess := &Session{
		ID:        ids.Generate(),
		AccountID: accountID,
		Key:       key,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Lock()
	s.m[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session by id. Expired or revoked sessions are surfaced
// as AuthenticationFailed, matching spec §4.3 ("subsequent requests fail
// with an authentication error").
func (s *Store) Get(_ context.Context, id string, now time.Time) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return nil, verr.New(verr.AuthenticationFailed, "session not found")
	}
	if sess.revoked || sess.Expired(now) {
		return nil, verr.New(verr.AuthenticationFailed, "session expired or revoked")
	}
	return sess, nil
}

// Revoke deletes a session immediately; subsequent Get calls fail.
func (s *Store) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return verr.New(verr.NotFound, "session not found")
	}
	sess.revoked = true
	delete(s.m, id)
	return nil
}
