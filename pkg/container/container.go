// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package container implements the shared-container primitive (spec §4.5,
// component C5): a symmetric data key K wrapped separately per accessor,
// and a single AEAD-sealed payload under K. Group, Vault and Org each
// embed a Container and add their own typed payload semantics on top.
package container

import (
	"bytes"
	"crypto/rsa"
	"sync"

	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/verr"
)

// Accessor is any principal entitled to decrypt a Container: an Account or
// a Group (spec §4.5/§9 "polymorphism over accessor"). Containers store
// accessors by id + public-key fingerprint only — a weak reference — and
// never hold a pointer to the accessor itself.
type Accessor interface {
	AccessorID() string
	AccessorPublicKey() *rsa.PublicKey
}

// Entry is one row of a Container's accessor table.
type Entry struct {
	AccessorID  string
	Fingerprint []byte
	WrappedKey  []byte
}

// Container is the shared-container primitive. The zero value is not
// usable; construct with New.
type Container struct {
	mu sync.Mutex

	id string
	cp crypto.Provider

	key        []byte // K; present only once generated or unwrapped via Access
	nonce      []byte
	ciphertext []byte

	accessors map[string]*Entry
	order     []string // preserves a stable iteration order for tests/listing
}

// New constructs an empty Container identified by id. id is bound into
// every AEAD operation as associated data, so ciphertext from one
// container can never be replayed as another's.
func New(id string, cp crypto.Provider) *Container {
	return &Container{id: id, cp: cp, accessors: map[string]*Entry{}}
}

// ID returns the container's identifier.
func (c *Container) ID() string { return c.id }

// HasKey reports whether K is currently loaded in memory (i.e. SetData or
// a successful Access has already run this process lifetime).
func (c *Container) HasKey() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key != nil
}

func (c *Container) ensureKeyLocked() error {
	if c.key != nil {
		return nil
	}
	k, err := c.cp.RandomBytes(32)
	if err != nil {
		return verr.Wrap(verr.ServerError, "generate data key", err)
	}
	c.key = k
	return nil
}

// SetData seals plaintext under K (generating K if this is the first
// write) with a fresh nonce. Existing accessor wraps are unaffected: K
// doesn't change just because the payload did.
func (c *Container) SetData(plaintext []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureKeyLocked(); err != nil {
		return err
	}
	nonce, err := c.cp.NewNonce()
	if err != nil {
		return verr.Wrap(verr.ServerError, "generate nonce", err)
	}
	ct, err := c.cp.AEADSeal(c.key, nonce, []byte(c.id), plaintext)
	if err != nil {
		return verr.Wrap(verr.ServerError, "seal payload", err)
	}
	c.nonce = nonce
	c.ciphertext = ct
	return nil
}

// GetData decrypts and returns the current payload. Requires K to already
// be resident in memory — callers must Access the container (or SetData
// it themselves) first.
func (c *Container) GetData() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key == nil {
		return nil, verr.New(verr.InsufficientPerms, "container key not loaded; call Access first")
	}
	if c.ciphertext == nil {
		return nil, verr.New(verr.NotFound, "container has no payload yet")
	}
	pt, err := c.cp.AEADOpen(c.key, c.nonce, []byte(c.id), c.ciphertext)
	if err != nil {
		// Never recovered locally: a forged tag means tampering, not a
		// transient error (spec §7).
		return nil, verr.Wrap(verr.DecryptionFailed, "payload authentication failed", err)
	}
	return pt, nil
}

// UpdateAccessors replaces the accessor table wholesale. If K is absent it
// is generated first, so accessors can be granted before any data exists.
// The whole table is rebuilt and swapped in under the container lock, so
// concurrent readers never observe a half-updated table (spec §5, §8
// property 8).
func (c *Container) UpdateAccessors(accessors []Accessor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureKeyLocked(); err != nil {
		return err
	}

	next := make(map[string]*Entry, len(accessors))
	order := make([]string, 0, len(accessors))
	for _, a := range accessors {
		fp, err := c.cp.Fingerprint(a.AccessorPublicKey())
		if err != nil {
			return verr.Wrap(verr.ServerError, "fingerprint accessor key", err)
		}
		wrapped, err := c.cp.RSAWrap(a.AccessorPublicKey(), c.key)
		if err != nil {
			return verr.Wrap(verr.ServerError, "wrap data key for accessor", err)
		}
		next[a.AccessorID()] = &Entry{AccessorID: a.AccessorID(), Fingerprint: fp, WrappedKey: wrapped}
		order = append(order, a.AccessorID())
	}

	c.accessors = next
	c.order = order
	return nil
}

// Access locates accessor's table entry, verifies its stored fingerprint
// against the accessor's current public key (trust-on-first-use defense
// against key substitution, spec §4.5/§8 property 3), and unwraps K using
// priv. On success K is loaded into memory for subsequent GetData calls.
func (c *Container) Access(accessor Accessor, priv *rsa.PrivateKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.accessors[accessor.AccessorID()]
	if !ok {
		return verr.New(verr.InsufficientPerms, "accessor has no table entry")
	}

	fp, err := c.cp.Fingerprint(accessor.AccessorPublicKey())
	if err != nil {
		return verr.Wrap(verr.ServerError, "fingerprint accessor key", err)
	}
	if !bytes.Equal(fp, entry.Fingerprint) {
		return verr.New(verr.KeyMismatch, "accessor public key no longer matches the wrapped entry")
	}

	k, err := c.cp.RSAUnwrap(priv, entry.WrappedKey)
	if err != nil {
		return verr.Wrap(verr.DecryptionFailed, "unwrap data key", err)
	}
	c.key = k
	return nil
}

// RotateKey generates a fresh K, re-seals the current payload under it and
// re-wraps it for every accessor in the given (current) list, atomically:
// either the whole operation succeeds and every field moves together, or
// nothing changes. Callers MUST pass the full current accessor set — the
// container itself only holds weak references to accessors, not the
// objects needed to re-wrap (spec §9).
func (c *Container) RotateKey(accessors []Accessor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key == nil {
		return verr.New(verr.InsufficientPerms, "container key not loaded; call Access first")
	}

	var plaintext []byte
	if c.ciphertext != nil {
		pt, err := c.cp.AEADOpen(c.key, c.nonce, []byte(c.id), c.ciphertext)
		if err != nil {
			return verr.Wrap(verr.DecryptionFailed, "payload authentication failed during rotate", err)
		}
		plaintext = pt
	}

	newKey, err := c.cp.RandomBytes(32)
	if err != nil {
		return verr.Wrap(verr.ServerError, "generate data key", err)
	}

	var newNonce, newCiphertext []byte
	if plaintext != nil {
		nonce, err := c.cp.NewNonce()
		if err != nil {
			return verr.Wrap(verr.ServerError, "generate nonce", err)
		}
		ct, err := c.cp.AEADSeal(newKey, nonce, []byte(c.id), plaintext)
		if err != nil {
			return verr.Wrap(verr.ServerError, "reseal payload", err)
		}
		newNonce, newCiphertext = nonce, ct
	}

	next := make(map[string]*Entry, len(accessors))
	order := make([]string, 0, len(accessors))
	for _, a := range accessors {
		fp, err := c.cp.Fingerprint(a.AccessorPublicKey())
		if err != nil {
			return verr.Wrap(verr.ServerError, "fingerprint accessor key", err)
		}
		wrapped, err := c.cp.RSAWrap(a.AccessorPublicKey(), newKey)
		if err != nil {
			return verr.Wrap(verr.ServerError, "wrap data key for accessor", err)
		}
		next[a.AccessorID()] = &Entry{AccessorID: a.AccessorID(), Fingerprint: fp, WrappedKey: wrapped}
		order = append(order, a.AccessorID())
	}

	c.key = newKey
	c.nonce = newNonce
	c.ciphertext = newCiphertext
	c.accessors = next
	c.order = order
	return nil
}

// Accessors returns the ids of the current accessor table, in the order
// they were last set.
func (c *Container) Accessors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// State snapshots everything about a Container that's safe to persist: the
// sealed payload and the accessor table. It never includes K, which is
// either regenerated via ensureKeyLocked or re-obtained via Access.
type State struct {
	Nonce      []byte
	Ciphertext []byte
	Accessors  []Entry
	Order      []string
}

// Snapshot returns the container's persistable State.
func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]Entry, 0, len(c.accessors))
	for _, id := range c.order {
		if e, ok := c.accessors[id]; ok {
			entries = append(entries, *e)
		}
	}
	return State{Nonce: c.nonce, Ciphertext: c.ciphertext, Accessors: entries, Order: append([]string{}, c.order...)}
}

// Restore loads a previously snapshotted State into a freshly constructed
// Container (e.g. just after New), without loading K — a subsequent Access
// call is required before GetData works, exactly as for a fresh process
// attaching to existing storage.
func (c *Container) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonce = s.Nonce
	c.ciphertext = s.Ciphertext
	c.accessors = make(map[string]*Entry, len(s.Accessors))
	for i := range s.Accessors {
		e := s.Accessors[i]
		c.accessors[e.AccessorID] = &e
	}
	c.order = append([]string{}, s.Order...)
}
