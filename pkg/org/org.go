// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package org implements the organization primitive (spec §4.8, component
// C8): a Container whose payload is an RSA signing keypair plus an invite
// HMAC key, layered with two distinguished Groups (adminGroup, the org's
// sole accessor, and everyoneGroup, kept in sync with the member list) and
// a signed member roster.
package org

import (
	"crypto/rsa"
	"encoding/json"
	"sync"

	"go.uber.org/multierr"

	"github.com/sealbox/sealbox/pkg/container"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/group"
	"github.com/sealbox/sealbox/pkg/ids"
	"github.com/sealbox/sealbox/pkg/vault"
	"github.com/sealbox/sealbox/pkg/verr"
)

// Member is a signed roster entry (spec §4.8's "OrgMember").
type Member struct {
	ID              string
	Name            string
	Email           string
	PublicKey       *rsa.PublicKey
	SignedPublicKey []byte
}

// AccessorID implements container.Accessor, so a Member (or anything
// structurally alike) can stand in as an accessor reference.
func (m Member) AccessorID() string { return m.ID }

// AccessorPublicKey implements container.Accessor.
func (m Member) AccessorPublicKey() *rsa.PublicKey { return m.PublicKey }

// VaultSummary is the id+name back-reference an Org keeps for each vault it
// owns; the Vault entity itself is stored independently (spec §4.5
// "Ownership summary").
type VaultSummary struct {
	ID   string
	Name string
}

type payload struct {
	PrivateKey []byte
	InvitesKey []byte
}

// Org wraps a Container whose payload is {signing privateKey, invitesKey},
// plus the adminGroup/everyoneGroup and member roster spec §4.8 describes.
type Org struct {
	mu sync.Mutex

	cp   crypto.Provider
	c    *container.Container
	id   string
	name string

	signParams crypto.SignParams

	adminGroup    *group.Group
	everyoneGroup *group.Group

	signingPriv *rsa.PrivateKey
	signingPub  *rsa.PublicKey
	invitesKey  []byte

	members []Member
	vaults  []VaultSummary

	initialized bool
}

// New constructs an empty, uninitialized Org. Call Initialize before any
// other method.
func New(cp crypto.Provider, id, name string) *Org {
	return &Org{
		cp:            cp,
		c:             container.New(id, cp),
		id:            id,
		name:          name,
		signParams:    crypto.DefaultSignParams(),
		adminGroup:    group.New(cp, id+":admin"),
		everyoneGroup: group.New(cp, id+":everyone"),
	}
}

// ID returns the org's identifier.
func (o *Org) ID() string { return o.id }

// AdminGroup returns the org's distinguished admin group.
func (o *Org) AdminGroup() *group.Group { return o.adminGroup }

// EveryoneGroup returns the org's distinguished everyone group.
func (o *Org) EveryoneGroup() *group.Group { return o.everyoneGroup }

// Initialize runs the org bootstrap transaction (spec §4.8): the founding
// account becomes the admin group's sole accessor, the admin group becomes
// the org container's sole accessor, the org's signing keypair and invite
// key are generated and sealed, the founder is added as the first signed
// member, and the everyone group is keyed with the (so far, one-member)
// roster.
//
// Each step after the first has something to undo if a later step fails:
// the org must never end up with an admin group that has keys but no
// matching org accessor grant, or a signed payload with no members. Undo
// attempts are best-effort and independent of each other, so their errors
// are aggregated with multierr rather than one swallowing the other.
func (o *Org) Initialize(account container.Accessor) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.initialized {
		return verr.New(verr.AlreadyExists, "org already initialized")
	}

	if _, err := o.adminGroup.GenerateKeys([]container.Accessor{account}); err != nil {
		return verr.Wrap(verr.ServerError, "generate admin group keys", err)
	}

	if err := o.c.UpdateAccessors([]container.Accessor{o.adminGroup}); err != nil {
		rbErr := o.resetAdminGroup()
		return verr.Wrap(verr.ServerError, "grant admin group org access", multierr.Append(err, rbErr))
	}

	signingPriv, signingPub, err := o.cp.RSAGenerate()
	if err != nil {
		rbErr := o.resetAdminGroup()
		return verr.Wrap(verr.ServerError, "generate org signing keypair", multierr.Append(err, rbErr))
	}
	invitesKey, err := o.cp.RandomBytes(32)
	if err != nil {
		rbErr := o.resetAdminGroup()
		return verr.Wrap(verr.ServerError, "generate invites key", multierr.Append(err, rbErr))
	}

	data, err := json.Marshal(payload{PrivateKey: o.cp.MarshalPrivateKey(signingPriv), InvitesKey: invitesKey})
	if err != nil {
		rbErr := o.resetAdminGroup()
		return verr.Wrap(verr.ServerError, "encode org payload", multierr.Append(err, rbErr))
	}
	if err := o.c.SetData(data); err != nil {
		rbErr := o.resetAdminGroup()
		return verr.Wrap(verr.ServerError, "seal org payload", multierr.Append(err, rbErr))
	}

	o.signingPriv = signingPriv
	o.signingPub = signingPub
	o.invitesKey = invitesKey

	founder, err := o.signMember(account)
	if err != nil {
		rbErr := multierr.Append(o.resetAdminGroup(), o.resetPayload())
		return verr.Wrap(verr.ServerError, "sign founding member", multierr.Append(err, rbErr))
	}
	o.members = []Member{founder}

	if _, err := o.everyoneGroup.GenerateKeys(membersAsAccessors(o.members)); err != nil {
		rbErr := multierr.Append(o.resetAdminGroup(), o.resetPayload())
		return verr.Wrap(verr.ServerError, "generate everyone group keys", multierr.Append(err, rbErr))
	}

	if err := o.signGroupKey(o.adminGroup); err != nil {
		rbErr := multierr.Append(o.resetAdminGroup(), o.resetPayload())
		return verr.Wrap(verr.ServerError, "sign admin group public key", multierr.Append(err, rbErr))
	}
	if err := o.signGroupKey(o.everyoneGroup); err != nil {
		rbErr := multierr.Append(o.resetAdminGroup(), o.resetPayload())
		return verr.Wrap(verr.ServerError, "sign everyone group public key", multierr.Append(err, rbErr))
	}

	o.initialized = true
	return nil
}

// signGroupKey signs g's current public key with the org's signing key and
// attaches the signature to g (spec §4.8 step 7 "sign both admin and
// everyone groups' public keys"; §3 invariant "every group's
// signedPublicKey verifies against the Org's signing public key").
// Callers hold o.mu and have already confirmed o.signingPriv is loaded.
func (o *Org) signGroupKey(g *group.Group) error {
	pubDER, err := o.cp.MarshalPublicKey(g.AccessorPublicKey())
	if err != nil {
		return verr.Wrap(verr.ServerError, "marshal group public key", err)
	}
	sig, err := o.cp.Sign(o.signingPriv, pubDER, o.signParams)
	if err != nil {
		return verr.Wrap(verr.ServerError, "sign group public key", err)
	}
	g.SetSignedPublicKey(sig)
	return nil
}

// resetAdminGroup clears partially-initialized admin group state so a
// failed Initialize can be retried on a fresh Org. The underlying group
// and container implementations have no dedicated "undo" operation, so
// this replaces the admin group with a fresh, unkeyed one; it cannot fail.
func (o *Org) resetAdminGroup() error {
	o.adminGroup = group.New(o.cp, o.id+":admin")
	return nil
}

// resetPayload discards the org's in-memory signing material so a failed
// Initialize doesn't leave a half-signed roster lying around for a retry
// to build on top of.
func (o *Org) resetPayload() error {
	o.signingPriv = nil
	o.signingPub = nil
	zeroize(o.invitesKey)
	o.invitesKey = nil
	o.members = nil
	return nil
}

// zeroize overwrites sensitive material in place before it's released
// (spec §5 "zeroize on drop").
func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func membersAsAccessors(members []Member) []container.Accessor {
	out := make([]container.Accessor, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

// Access reverses the chain Initialize built (spec §4.8): unlock the admin
// group via account, then unlock the org via the (now-unlocked) admin
// group, then decode the sealed payload into memory.
func (o *Org) Access(account container.Accessor, priv *rsa.PrivateKey) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.adminGroup.Access(account, priv); err != nil {
		return err
	}
	adminPriv, err := o.adminGroup.PrivateKey()
	if err != nil {
		return err
	}
	if err := o.c.Access(o.adminGroup, adminPriv); err != nil {
		return err
	}
	return o.loadPayloadLocked()
}

func (o *Org) loadPayloadLocked() error {
	data, err := o.c.GetData()
	if err != nil {
		return err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return verr.Wrap(verr.ServerError, "decode org payload", err)
	}
	priv, err := o.cp.ParsePrivateKey(p.PrivateKey)
	if err != nil {
		return verr.Wrap(verr.ServerError, "parse org signing key", err)
	}
	o.signingPriv = priv
	o.signingPub = &priv.PublicKey
	o.invitesKey = p.InvitesKey
	return nil
}

// AddMember signs account's public key with the org's signing key and
// appends it to the roster, then updates the everyone group's accessors to
// the new roster (spec §4.8 "addMember"). Requires a prior successful
// Access — the signing key must already be loaded in memory.
func (o *Org) AddMember(account container.Accessor) (Member, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.signingPriv == nil {
		return Member{}, verr.New(verr.InsufficientPerms, "org not accessed: signing key not loaded")
	}

	m, err := o.signMember(account)
	if err != nil {
		return Member{}, err
	}
	o.members = append(o.members, m)

	if err := o.everyoneGroup.UpdateMembers(membersAsAccessors(o.members)); err != nil {
		return Member{}, err
	}
	return m, nil
}

// signMember signs account's public key; callers hold o.mu and have
// already verified o.signingPriv is loaded (or are Initialize, which just
// set it).
func (o *Org) signMember(account container.Accessor) (Member, error) {
	pub := account.AccessorPublicKey()
	pubDER, err := o.cp.MarshalPublicKey(pub)
	if err != nil {
		return Member{}, verr.Wrap(verr.ServerError, "marshal member public key", err)
	}
	sig, err := o.cp.Sign(o.signingPriv, pubDER, o.signParams)
	if err != nil {
		return Member{}, verr.Wrap(verr.ServerError, "sign member public key", err)
	}
	return Member{
		ID:              account.AccessorID(),
		PublicKey:       pub,
		SignedPublicKey: sig,
	}, nil
}

// RemoveMember drops id from the roster and updates the everyone group's
// accessors to the remaining members ([EXPANSION] member management; not
// named in the distilled spec). The group's keypair and data key are not
// rotated; RotateEveryoneGroupKeys does that as a separate step.
func (o *Org) RemoveMember(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.signingPriv == nil {
		return verr.New(verr.InsufficientPerms, "org not accessed: signing key not loaded")
	}

	next := o.members[:0:0]
	found := false
	for _, m := range o.members {
		if m.ID == id {
			found = true
			continue
		}
		next = append(next, m)
	}
	if !found {
		return verr.New(verr.NotFound, "member not found")
	}
	o.members = next
	return o.everyoneGroup.UpdateMembers(membersAsAccessors(o.members))
}

// RotateAdminGroupKeys issues the admin group a fresh keypair and re-signs
// its new public key, keeping the §3 invariant intact across a rotation
// ([EXPANSION]: spec leaves group key rotation itself to the Container
// primitive, but re-signing on re-key is required to keep the group
// trustable afterward). Requires a prior successful Access.
func (o *Org) RotateAdminGroupKeys(members []container.Accessor) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.signingPriv == nil {
		return verr.New(verr.InsufficientPerms, "org not accessed: signing key not loaded")
	}
	if _, err := o.adminGroup.RotateKeys(members); err != nil {
		return err
	}
	return o.signGroupKey(o.adminGroup)
}

// RotateEveryoneGroupKeys issues the everyone group a fresh keypair against
// the current member roster and re-signs its new public key. See
// RotateAdminGroupKeys.
func (o *Org) RotateEveryoneGroupKeys() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.signingPriv == nil {
		return verr.New(verr.InsufficientPerms, "org not accessed: signing key not loaded")
	}
	if _, err := o.everyoneGroup.RotateKeys(membersAsAccessors(o.members)); err != nil {
		return err
	}
	return o.signGroupKey(o.everyoneGroup)
}

// Members returns the current signed roster.
func (o *Org) Members() []Member {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Member, len(o.members))
	copy(out, o.members)
	return out
}

// Sign attaches a signature over subject's public key, for any object that
// will later be trusted as an accessor (spec §4.8 "sign").
func (o *Org) Sign(subject container.Accessor) ([]byte, error) {
	pubDER, err := o.cp.MarshalPublicKey(subject.AccessorPublicKey())
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "marshal subject public key", err)
	}
	return o.SignBytes(pubDER)
}

// Verify checks a previously attached signature against the org's signing
// public key (spec §4.8 "verify"). Any consumer trusting a member's or
// group's public key MUST call this before using that key to wrap or
// verify anything else.
func (o *Org) Verify(subject container.Accessor, signature []byte) bool {
	pubDER, err := o.cp.MarshalPublicKey(subject.AccessorPublicKey())
	if err != nil {
		return false
	}
	return o.VerifyBytes(pubDER, signature)
}

// SignBytes signs an arbitrary message with the org's signing key, e.g. the
// invite record pkg/invite mints. Requires a prior successful Access.
func (o *Org) SignBytes(msg []byte) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.signingPriv == nil {
		return nil, verr.New(verr.InsufficientPerms, "org not accessed: signing key not loaded")
	}
	return o.cp.Sign(o.signingPriv, msg, o.signParams)
}

// VerifyBytes checks a signature produced by SignBytes.
func (o *Org) VerifyBytes(msg, signature []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.signingPub == nil {
		return false
	}
	return o.cp.Verify(o.signingPub, msg, signature, o.signParams)
}

// CreateVault constructs a new Vault owned by this org, with the admin
// group as its sole initial accessor (spec §4.8 "createVault"). Requires a
// prior successful Access.
func (o *Org) CreateVault(name string) (*vault.Vault, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.signingPriv == nil {
		return nil, verr.New(verr.InsufficientPerms, "org not accessed: signing key not loaded")
	}

	id := ids.Generate()
	v := vault.New(o.cp, id, name)
	if err := v.Create([]container.Accessor{o.adminGroup}); err != nil {
		return nil, err
	}
	o.vaults = append(o.vaults, VaultSummary{ID: id, Name: name})
	return v, nil
}

// Vaults returns the org's vault summaries.
func (o *Org) Vaults() []VaultSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]VaultSummary, len(o.vaults))
	copy(out, o.vaults)
	return out
}

// InvitesKey returns the org's HMAC invite key, for pkg/invite to mint and
// verify invite tokens. Requires a prior successful Access.
func (o *Org) InvitesKey() ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.invitesKey == nil {
		return nil, verr.New(verr.InsufficientPerms, "org not accessed: invites key not loaded")
	}
	return o.invitesKey, nil
}

// Snapshot is everything needed to persist and later restore an Org: the
// container states of the org itself and its two distinguished groups,
// the org's signing public key (cleartext, needed to Verify without first
// Access-ing the org), and the non-sensitive roster/vault summaries.
type Snapshot struct {
	Name             string
	Container        container.State
	AdminGroup       container.State
	AdminGroupPub    *rsa.PublicKey
	AdminGroupSig    []byte
	EveryoneGroup    container.State
	EveryoneGroupPub *rsa.PublicKey
	EveryoneGroupSig []byte
	SigningPub       *rsa.PublicKey
	Members          []Member
	Vaults           []VaultSummary
}

// Snapshot returns the org's persistable state. Requires a prior
// successful Access, since SigningPub is only known once the payload has
// been decrypted at least once in this process (or set at Initialize).
func (o *Org) Snapshot() (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.signingPub == nil {
		return Snapshot{}, verr.New(verr.InsufficientPerms, "org not accessed: signing key not loaded")
	}
	adminState, adminPub, adminSig := o.adminGroup.Snapshot()
	everyoneState, everyonePub, everyoneSig := o.everyoneGroup.Snapshot()
	return Snapshot{
		Name:             o.name,
		Container:        o.c.Snapshot(),
		AdminGroup:       adminState,
		AdminGroupPub:    adminPub,
		AdminGroupSig:    adminSig,
		EveryoneGroup:    everyoneState,
		EveryoneGroupPub: everyonePub,
		EveryoneGroupSig: everyoneSig,
		SigningPub:       o.signingPub,
		Members:          append([]Member{}, o.members...),
		Vaults:           append([]VaultSummary{}, o.vaults...),
	}, nil
}

// Restore loads a previously snapshotted org into a freshly constructed
// Org (see New). o.signingPriv and o.invitesKey remain unset until Access
// succeeds — matching a fresh process that has not yet unwrapped anything.
func (o *Org) Restore(s Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.name = s.Name
	o.c.Restore(s.Container)
	o.adminGroup.Restore(s.AdminGroup, s.AdminGroupPub, s.AdminGroupSig)
	o.everyoneGroup.Restore(s.EveryoneGroup, s.EveryoneGroupPub, s.EveryoneGroupSig)
	o.signingPub = s.SigningPub
	o.members = append([]Member{}, s.Members...)
	o.vaults = append([]VaultSummary{}, s.Vaults...)
}
