// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package group implements the accessor-group primitive (spec §4.6,
// component C6): a Container whose payload is an RSA private key shared by
// every member. A Group is itself a container.Accessor, so it can be
// granted access to other containers (vaults, orgs) and every current
// member transitively gains that access by first unwrapping the group.
package group

import (
	"crypto/rsa"
	"sync"

	"github.com/sealbox/sealbox/pkg/container"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/verr"
)

// Group wraps a Container whose payload is a shared RSA private key.
type Group struct {
	mu sync.RWMutex

	cp        crypto.Provider
	c         *container.Container
	id        string
	publicKey *rsa.PublicKey

	signedPublicKey []byte
}

// New constructs an empty Group. Call GenerateKeys before it can be used
// as an accessor elsewhere.
func New(cp crypto.Provider, id string) *Group {
	return &Group{cp: cp, c: container.New(id, cp), id: id}
}

// AccessorID implements container.Accessor.
func (g *Group) AccessorID() string { return g.id }

// AccessorPublicKey implements container.Accessor. Returns nil if called
// before GenerateKeys or Access has populated the key.
func (g *Group) AccessorPublicKey() *rsa.PublicKey {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.publicKey
}

// HasKeys reports whether this Group's keypair has been generated (or
// restored via Access) in this process.
func (g *Group) HasKeys() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.publicKey != nil
}

// SignedPublicKey returns the org signature over this group's current
// public key (spec §3 Org invariant: "every group's signedPublicKey
// verifies against the Org's signing public key"), or nil if the owning
// org hasn't signed it yet.
func (g *Group) SignedPublicKey() []byte {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.signedPublicKey
}

// SetSignedPublicKey attaches sig as the org signature over this group's
// current public key. Called by pkg/org after Sign-ing the group's key,
// never by the group itself — a Group has no signing authority of its own.
func (g *Group) SetSignedPublicKey(sig []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signedPublicKey = sig
}

// GenerateKeys creates the group's shared RSA keypair, seals the private
// key as the container's payload, and grants the initial member set access
// to it (spec §4.6 "createGroup").
func (g *Group) GenerateKeys(initialMembers []container.Accessor) (*rsa.PublicKey, error) {
	priv, pub, err := g.cp.RSAGenerate()
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "generate group keypair", err)
	}
	privDER := g.cp.MarshalPrivateKey(priv)

	if err := g.c.SetData(privDER); err != nil {
		return nil, err
	}
	if err := g.c.UpdateAccessors(initialMembers); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.publicKey = pub
	g.mu.Unlock()
	return pub, nil
}

// Access unwraps the group's data key for accessor and loads the group's
// public key for subsequent AccessorPublicKey calls. The caller must then
// call PrivateKey to obtain the shared private key.
func (g *Group) Access(accessor container.Accessor, priv *rsa.PrivateKey) error {
	if err := g.c.Access(accessor, priv); err != nil {
		return err
	}
	return g.loadPublicKeyLocked()
}

// PrivateKey decrypts and parses the group's shared private key. Requires a
// prior successful Access (or GenerateKeys, in the same process).
func (g *Group) PrivateKey() (*rsa.PrivateKey, error) {
	der, err := g.c.GetData()
	if err != nil {
		return nil, err
	}
	priv, err := g.cp.ParsePrivateKey(der)
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "parse group private key", err)
	}
	return priv, nil
}

func (g *Group) loadPublicKeyLocked() error {
	priv, err := g.PrivateKey()
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.publicKey = &priv.PublicKey
	g.mu.Unlock()
	return nil
}

// UpdateMembers replaces the group's member set atomically (spec §4.6, §8
// property 8: removed members lose transitive access immediately).
func (g *Group) UpdateMembers(members []container.Accessor) error {
	return g.c.UpdateAccessors(members)
}

// RotateKeys issues a fresh group keypair, re-wrapping it for the given
// (current) member set. Unlike Container.RotateKey this replaces the
// payload itself (a new keypair), not just the container's data key, since
// a group's "data" is its private key (spec §9 open question: group key
// rotation is full re-keying, not just a container rewrap).
func (g *Group) RotateKeys(members []container.Accessor) (*rsa.PublicKey, error) {
	priv, pub, err := g.cp.RSAGenerate()
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "generate group keypair", err)
	}
	if err := g.c.SetData(g.cp.MarshalPrivateKey(priv)); err != nil {
		return nil, err
	}
	if err := g.c.UpdateAccessors(members); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.publicKey = pub
	g.mu.Unlock()
	return pub, nil
}

// Members returns the ids of the group's current accessor table.
func (g *Group) Members() []string { return g.c.Accessors() }

// ID returns the group's identifier.
func (g *Group) ID() string { return g.id }

// Snapshot returns everything needed to persist and later restore this
// group: the underlying container state, the (public, non-sensitive)
// group public key, and the org's signature over it, which callers need to
// present this group as a trustable accessor without first unwrapping it.
func (g *Group) Snapshot() (container.State, *rsa.PublicKey, []byte) {
	g.mu.RLock()
	sig := g.signedPublicKey
	g.mu.RUnlock()
	return g.c.Snapshot(), g.AccessorPublicKey(), sig
}

// Restore loads a previously snapshotted group into a freshly constructed
// Group (see New), without loading the group's private key — Access is
// still required before PrivateKey works.
func (g *Group) Restore(s container.State, pub *rsa.PublicKey, signedPub []byte) {
	g.c.Restore(s)
	g.mu.Lock()
	g.publicKey = pub
	g.signedPublicKey = signedPub
	g.mu.Unlock()
}
