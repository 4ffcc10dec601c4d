// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package api

import (
	"sync"

	"github.com/sealbox/sealbox/pkg/org"
	"github.com/sealbox/sealbox/pkg/vault"
)

// liveRegistry holds Org/Vault instances that have already been Access-ed
// in this server process, keyed by id. A freshly created entity is warm
// from the moment it's created; an entity loaded cold from storage needs
// a caller to Access it again (supplying the private key that unwraps its
// accessor-table entry) before registry operations requiring K or the
// signing key — UpdateAccessors, RotateKey, AddMember — will succeed.
//
// This models a long-running service process that keeps unlocked
// containers resident in memory for the life of a session (spec §5), as
// opposed to a purely stateless request handler that would need the
// client to resubmit key material on every call.
type liveRegistry struct {
	mu     sync.Mutex
	orgs   map[string]*org.Org
	vaults map[string]*vault.Vault
}

func newLiveRegistry() *liveRegistry {
	return &liveRegistry{orgs: map[string]*org.Org{}, vaults: map[string]*vault.Vault{}}
}

func (r *liveRegistry) putOrg(o *org.Org) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgs[o.ID()] = o
}

func (r *liveRegistry) getOrg(id string) (*org.Org, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orgs[id]
	return o, ok
}

func (r *liveRegistry) putVault(v *vault.Vault) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vaults[v.ID()] = v
}

func (r *liveRegistry) getVault(id string) (*vault.Vault, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vaults[id]
	return v, ok
}

func (r *liveRegistry) deleteVault(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.vaults, id)
}
