// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package api

import (
	"sync"
	"time"

	"github.com/sealbox/sealbox/pkg/ids"
)

// verificationTTL bounds how long a verifyEmail token remains redeemable.
const verificationTTL = 30 * time.Minute

// verificationPurpose mirrors spec §6's verifyEmail purposes.
type verificationPurpose string

const (
	purposeSignup  verificationPurpose = "signup"
	purposeRecover verificationPurpose = "recover"
)

type pendingVerification struct {
	token     string
	purpose   verificationPurpose
	expiresAt time.Time
}

// verificationStore issues and redeems the email-verification tokens
// createAccount/recoverAccount require (spec §6 "verify"). Actual
// delivery of the token to the user's inbox is the email-delivery
// collaborator named out of scope in spec §1; this store only tracks
// which token is currently valid for which email.
type verificationStore struct {
	mu  sync.Mutex
	m   map[string]*pendingVerification // keyed by email
}

func newVerificationStore() *verificationStore {
	return &verificationStore{m: map[string]*pendingVerification{}}
}

// Issue mints a fresh token for email/purpose, replacing any prior pending
// token for that email.
func (s *verificationStore) Issue(email string, purpose verificationPurpose, now time.Time) string {
	token := ids.Generate()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[email] = &pendingVerification{token: token, purpose: purpose, expiresAt: now.Add(verificationTTL)}
	return token
}

// Redeem consumes the pending token for email if it matches purpose and
// token and hasn't expired; it's one-shot, mirroring invite redemption.
func (s *verificationStore) Redeem(email, token string, purpose verificationPurpose, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[email]
	if !ok || p.purpose != purpose || p.token != token || now.After(p.expiresAt) {
		return false
	}
	delete(s.m, email)
	return true
}
