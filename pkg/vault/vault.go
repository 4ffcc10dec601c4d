// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package vault implements the credential-storage primitive (spec §4.7,
// component C7): a Container whose payload is a JSON-encoded list of
// Items. The container's own AEAD seal is the only encryption layer —
// items are never separately encrypted, so a vault is exactly "a Container
// plus a typed payload", matching how Group and Org are built on the same
// primitive.
package vault

import (
	"crypto/rsa"
	"encoding/json"
	"sync"

	"github.com/sealbox/sealbox/pkg/container"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/ids"
	"github.com/sealbox/sealbox/pkg/verr"
)

// Item is one stored credential entry.
type Item struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	EncryptedValue []byte   `json:"encrypted_value"`
	Tags           []string `json:"tags,omitempty"`
}

// Vault wraps a Container whose payload is a list of Items.
type Vault struct {
	mu   sync.Mutex
	id   string
	name string
	c    *container.Container
}

// New constructs an empty, unkeyed Vault. Call Create to generate its data
// key and grant the initial accessor set.
func New(cp crypto.Provider, id, name string) *Vault {
	return &Vault{id: id, name: name, c: container.New(id, cp)}
}

// Create initializes the vault's payload (an empty item list) and grants
// access to the initial accessor set — the owning account plus any extra
// accessors for a personal vault, or the org's adminGroup for an org vault
// (spec §4.7 "createVault").
func (v *Vault) Create(initialAccessors []container.Accessor) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.setItemsLocked(nil); err != nil {
		return err
	}
	return v.c.UpdateAccessors(initialAccessors)
}

// ID returns the vault's identifier.
func (v *Vault) ID() string { return v.id }

// Name returns the vault's display name.
func (v *Vault) Name() string { return v.name }

// Access unwraps the vault's data key for accessor, required before
// Items/PutItem/DeleteItem will succeed.
func (v *Vault) Access(accessor container.Accessor, priv *rsa.PrivateKey) error {
	return v.c.Access(accessor, priv)
}

// Items decrypts and returns the vault's current item list.
func (v *Vault) Items() ([]Item, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.itemsLocked()
}

func (v *Vault) itemsLocked() ([]Item, error) {
	data, err := v.c.GetData()
	if err != nil {
		if verr.Is(err, verr.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, verr.Wrap(verr.ServerError, "decode vault items", err)
	}
	return items, nil
}

func (v *Vault) setItemsLocked(items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return verr.Wrap(verr.ServerError, "encode vault items", err)
	}
	return v.c.SetData(data)
}

// PutItem inserts a new item (name, value, tags) into the vault and returns
// its generated id.
func (v *Vault) PutItem(name string, value []byte, tags []string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	items, err := v.itemsLocked()
	if err != nil {
		return "", err
	}
	id := ids.Generate()
	items = append(items, Item{ID: id, Name: name, EncryptedValue: value, Tags: tags})
	if err := v.setItemsLocked(items); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteItem removes the item with the given id, if present.
func (v *Vault) DeleteItem(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	items, err := v.itemsLocked()
	if err != nil {
		return err
	}
	next := items[:0]
	for _, it := range items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	return v.setItemsLocked(next)
}

// UpdateAccessors replaces the vault's accessor table (spec §4.7
// "updateAccessors" — never implicitly rotates the data key; callers that
// need forward secrecy against a removed accessor call RotateKey
// explicitly, per the resolved open question in spec §9).
func (v *Vault) UpdateAccessors(accessors []container.Accessor) error {
	return v.c.UpdateAccessors(accessors)
}

// RotateKey re-seals the vault's payload under a fresh data key and
// re-wraps it for the given (current) accessor set.
func (v *Vault) RotateKey(accessors []container.Accessor) error {
	return v.c.RotateKey(accessors)
}

// Accessors returns the ids of the vault's current accessor table.
func (v *Vault) Accessors() []string { return v.c.Accessors() }

// Snapshot returns the underlying container state for persistence.
func (v *Vault) Snapshot() container.State { return v.c.Snapshot() }

// Restore loads a previously snapshotted vault into a freshly constructed
// Vault (see New). Access is still required before Items/PutItem work.
func (v *Vault) Restore(s container.State) { v.c.Restore(s) }
