// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package repo maps the crypto-core entities (Account, Org, Vault) onto
// pkg/storage's Record/Backend persistence surface (spec §6 "Persisted
// state"): each entity serializes to a single JSON-encoded field inside
// its Record, keyed by its id within a per-kind namespace. A second,
// id-only namespace indexes accounts by email, since initAuth looks
// accounts up by the claimed email rather than by account id.
package repo

import (
	"context"
	"encoding/json"

	"github.com/sealbox/sealbox/pkg/account"
	"github.com/sealbox/sealbox/pkg/container"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/org"
	"github.com/sealbox/sealbox/pkg/storage"
	"github.com/sealbox/sealbox/pkg/vault"
	"github.com/sealbox/sealbox/pkg/verr"
)

const (
	nsAccount    = "account"
	nsAuth       = "auth"
	nsEmailIndex = "account_by_email"
	nsOrg        = "org"
	nsVault      = "vault"
)

// Accounts persists Account and AuthRecord entities. It implements
// pkg/auth.AccountRepo.
type Accounts struct {
	backend storage.Backend
}

// NewAccounts returns an Accounts repo backed by backend.
func NewAccounts(backend storage.Backend) *Accounts {
	return &Accounts{backend: backend}
}

func putJSON(ctx context.Context, backend storage.Backend, namespace, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return verr.Wrap(verr.ServerError, "encode record", err)
	}
	rec := &storage.Record{ID: id, SchemaVersion: storage.CurrentSchemaVersion, Fields: map[string][]byte{"data": data}}
	return backend.Put(ctx, namespace, id, rec)
}

func getJSON(ctx context.Context, backend storage.Backend, namespace, id string, v interface{}) error {
	rec, err := backend.Get(ctx, namespace, id)
	if err != nil {
		return err
	}
	data, ok := rec.Fields["data"]
	if !ok {
		return verr.New(verr.ServerError, "record missing data field: "+id)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return verr.Wrap(verr.ServerError, "decode record", err)
	}
	return nil
}

// CreateAccount persists a freshly created account bundle's Account and
// AuthRecord, and indexes the account by email. Fails AlreadyExists if the
// email is already taken.
func (a *Accounts) CreateAccount(ctx context.Context, bundle *account.Bundle) error {
	if _, err := a.backend.Get(ctx, nsEmailIndex, bundle.Account.Email); err == nil {
		return verr.New(verr.AlreadyExists, "email already registered")
	} else if !verr.Is(err, verr.NotFound) {
		return err
	}

	if err := putJSON(ctx, a.backend, nsAccount, bundle.Account.ID, bundle.Account); err != nil {
		return err
	}
	if err := putJSON(ctx, a.backend, nsAuth, bundle.Account.ID, bundle.Auth); err != nil {
		return err
	}
	idxRec := &storage.Record{ID: bundle.Account.Email, SchemaVersion: storage.CurrentSchemaVersion,
		Fields: map[string][]byte{"account_id": []byte(bundle.Account.ID)}}
	return a.backend.Put(ctx, nsEmailIndex, bundle.Account.Email, idxRec)
}

// GetAccount loads an Account by id.
func (a *Accounts) GetAccount(ctx context.Context, id string) (*account.Account, error) {
	var acc account.Account
	if err := getJSON(ctx, a.backend, nsAccount, id, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// UpdateAccount overwrites a previously created Account record.
func (a *Accounts) UpdateAccount(ctx context.Context, acc *account.Account) error {
	if _, err := a.GetAccount(ctx, acc.ID); err != nil {
		return err
	}
	return putJSON(ctx, a.backend, nsAccount, acc.ID, acc)
}

// GetAuthByEmail resolves email to an account id via the email index, then
// loads that account's AuthRecord. Implements pkg/auth.AccountRepo.
func (a *Accounts) GetAuthByEmail(ctx context.Context, email string) (*account.AuthRecord, error) {
	idxRec, err := a.backend.Get(ctx, nsEmailIndex, email)
	if err != nil {
		return nil, err
	}
	accountID := string(idxRec.Fields["account_id"])

	var rec account.AuthRecord
	if err := getJSON(ctx, a.backend, nsAuth, accountID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutAuth overwrites an account's AuthRecord, e.g. after recoverAccount or
// an explicit password change. Implements pkg/auth.AccountRepo.
func (a *Accounts) PutAuth(ctx context.Context, rec *account.AuthRecord) error {
	return putJSON(ctx, a.backend, nsAuth, rec.AccountID, rec)
}

// Orgs persists Org snapshots.
type Orgs struct {
	cp      crypto.Provider
	backend storage.Backend
}

// NewOrgs returns an Orgs repo backed by backend.
func NewOrgs(cp crypto.Provider, backend storage.Backend) *Orgs {
	return &Orgs{cp: cp, backend: backend}
}

// Save persists o's current state.
func (r *Orgs) Save(ctx context.Context, o *org.Org) error {
	snap, err := o.Snapshot()
	if err != nil {
		return err
	}
	return putJSON(ctx, r.backend, nsOrg, o.ID(), snap)
}

// Load reconstructs an Org from storage into a fresh, unaccessed instance —
// the caller must still call Access before the org's signing key is
// available in memory.
func (r *Orgs) Load(ctx context.Context, id string) (*org.Org, error) {
	var snap org.Snapshot
	if err := getJSON(ctx, r.backend, nsOrg, id, &snap); err != nil {
		return nil, err
	}
	o := org.New(r.cp, id, snap.Name)
	o.Restore(snap)
	return o, nil
}

// Vaults persists Vault container state plus its name and org
// back-reference.
type Vaults struct {
	cp      crypto.Provider
	backend storage.Backend
}

// NewVaults returns a Vaults repo backed by backend.
func NewVaults(cp crypto.Provider, backend storage.Backend) *Vaults {
	return &Vaults{cp: cp, backend: backend}
}

type vaultRecord struct {
	Name  string
	OrgID string
	State container.State
}

// Save persists v's current state under orgID (empty for a personal
// vault with no owning org).
func (r *Vaults) Save(ctx context.Context, v *vault.Vault, orgID string) error {
	rec := vaultRecord{Name: v.Name(), OrgID: orgID, State: v.Snapshot()}
	return putJSON(ctx, r.backend, nsVault, v.ID(), rec)
}

// Load reconstructs a Vault from storage into a fresh, unaccessed instance,
// along with its owning org id (empty for a personal vault).
func (r *Vaults) Load(ctx context.Context, id string) (*vault.Vault, string, error) {
	var rec vaultRecord
	if err := getJSON(ctx, r.backend, nsVault, id, &rec); err != nil {
		return nil, "", err
	}
	v := vault.New(r.cp, id, rec.Name)
	v.Restore(rec.State)
	return v, rec.OrgID, nil
}

// Delete removes a vault's persisted record.
func (r *Vaults) Delete(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, nsVault, id)
}

// VaultSummary is a listing-friendly (id, name, org) triple that avoids
// restoring full container state.
type VaultSummary struct {
	ID    string
	Name  string
	OrgID string
}

// List returns every vault's summary, for a listing endpoint. It does not
// restore full vault state.
func (r *Vaults) List(ctx context.Context) ([]VaultSummary, error) {
	recs, err := r.backend.List(ctx, nsVault)
	if err != nil {
		return nil, err
	}
	out := make([]VaultSummary, 0, len(recs))
	for _, rec := range recs {
		var vr vaultRecord
		data, ok := rec.Fields["data"]
		if !ok {
			continue
		}
		if err := json.Unmarshal(data, &vr); err != nil {
			return nil, verr.Wrap(verr.ServerError, "decode vault record", err)
		}
		out = append(out, VaultSummary{ID: rec.ID, Name: vr.Name, OrgID: vr.OrgID})
	}
	return out, nil
}
