// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package invite implements the HMAC-authenticated join channel (spec
// §4.9, component C9): an org-published, one-shot, expiring token an
// invitee redeems to become a signed org member without any prior
// public-key trust relationship.
package invite

import (
	"crypto/subtle"
	"encoding/binary"
	"sync"
	"time"

	"github.com/sealbox/sealbox/pkg/container"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/ids"
	"github.com/sealbox/sealbox/pkg/org"
	"github.com/sealbox/sealbox/pkg/verr"
)

// Invite is the record published out-of-band to an invitee (spec §4.9).
type Invite struct {
	ID        string
	OrgID     string
	Email     string
	Expires   time.Time
	Token     []byte
	Signature []byte

	redeemed bool
}

// Store holds invites pending redemption, keyed by id, in an in-memory
// map; pending invites do not survive a process restart.
type Store struct {
	mu sync.Mutex
	m  map[string]*Invite
}

// NewStore returns an empty in-memory invite store.
func NewStore() *Store {
	return &Store{m: map[string]*Invite{}}
}

func tokenInput(email, id string, expires time.Time) []byte {
	var buf []byte
	buf = append(buf, []byte(email)...)
	buf = append(buf, []byte(id)...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(expires.Unix()))
	buf = append(buf, ts[:]...)
	return buf
}

// Create mints a new invite for email against o's invite key and signs the
// record with o's signing key, so a holder of the invite id can prove
// (via Accept) that the invite genuinely came from this org (spec §4.9:
// `{id, vaultOrOrg, email, expires, token, signature}`).
func Create(cp crypto.Provider, o *org.Org, email string, ttl time.Time) (*Invite, error) {
	id := ids.Generate()
	invitesKey, err := o.InvitesKey()
	if err != nil {
		return nil, err
	}
	token := cp.HMAC(invitesKey, tokenInput(email, id, ttl))

	sig, err := o.SignBytes(token)
	if err != nil {
		return nil, err
	}

	return &Invite{
		ID:        id,
		OrgID:     o.ID(),
		Email:     email,
		Expires:   ttl,
		Token:     token,
		Signature: sig,
	}, nil
}

// Put stores inv for later lookup/redemption by id.
func (s *Store) Put(inv *Invite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[inv.ID] = inv
}

// Get returns the invite record by id (spec §6 "getInvite"), without
// redeeming it.
func (s *Store) Get(id string) (*Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.m[id]
	if !ok {
		return nil, verr.New(verr.NotFound, "invite not found")
	}
	return inv, nil
}

// Accept redeems the invite: the caller presents proof of holding the same
// token the org minted (spec §4.9's "proof of holding the same token"), the
// server recomputes it under the org's invites key and compares. On match
// it adds the invitee as an org member and marks the invite spent; any
// other outcome — unknown id, expired, already redeemed, mismatched
// proof — fails uniformly with InviteExpired, so a replay of a consumed
// invite is indistinguishable from a stale one (spec §8 scenario S5).
func (s *Store) Accept(o *org.Org, id string, proof []byte, account container.Accessor, now time.Time) (org.Member, error) {
	s.mu.Lock()
	inv, ok := s.m[id]
	if !ok {
		s.mu.Unlock()
		return org.Member{}, verr.New(verr.InviteExpired, "invite not found or already consumed")
	}
	if inv.redeemed || now.After(inv.Expires) {
		s.mu.Unlock()
		return org.Member{}, verr.New(verr.InviteExpired, "invite expired, already redeemed, or proof mismatch")
	}
	invitesKey, err := o.InvitesKey()
	if err != nil {
		s.mu.Unlock()
		return org.Member{}, err
	}
	want := crypto.New().HMAC(invitesKey, tokenInput(inv.Email, inv.ID, inv.Expires))
	if subtle.ConstantTimeCompare(want, proof) != 1 {
		s.mu.Unlock()
		return org.Member{}, verr.New(verr.InviteExpired, "invite expired, already redeemed, or proof mismatch")
	}
	inv.redeemed = true
	s.mu.Unlock()

	return o.AddMember(account)
}
