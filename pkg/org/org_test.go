// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package org

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sealbox/sealbox/pkg/account"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/verr"
)

func newTestAccount(t *testing.T, cp crypto.Provider, id, email, name, password string) *account.Account {
	t.Helper()
	bundle, err := account.New(cp, id, email, name, []byte(password))
	require.NoError(t, err)
	return bundle.Account
}

func TestInitializeGrantsFounderAdminAccess(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	founderBundle, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(err)

	o := New(cp, "org-1", "Acme")
	require.NoError(o.Initialize(founderBundle.Account))

	require.NoError(o.Access(founderBundle.Account, founderBundle.PrivateKey))
	members := o.Members()
	require.Len(members, 1)
	require.Equal("acc-1", members[0].ID)
}

func TestInitializeTwiceFails(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	founderBundle, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(err)

	o := New(cp, "org-1", "Acme")
	require.NoError(o.Initialize(founderBundle.Account))
	err = o.Initialize(founderBundle.Account)
	require.True(verr.Is(err, verr.AlreadyExists))
}

func TestOrgSigningSoundness(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	founderBundle, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(err)

	o := New(cp, "org-1", "Acme")
	require.NoError(o.Initialize(founderBundle.Account))
	require.NoError(o.Access(founderBundle.Account, founderBundle.PrivateKey))

	members := o.Members()
	require.Len(members, 1)
	m := members[0]
	require.True(o.Verify(m, m.SignedPublicKey))

	tampered := append([]byte{}, m.SignedPublicKey...)
	tampered[0] ^= 1
	require.False(o.Verify(m, tampered))
}

func TestInitializeSignsDistinguishedGroups(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	founderBundle, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(err)

	o := New(cp, "org-1", "Acme")
	require.NoError(o.Initialize(founderBundle.Account))

	require.True(o.Verify(o.AdminGroup(), o.AdminGroup().SignedPublicKey()))
	require.True(o.Verify(o.EveryoneGroup(), o.EveryoneGroup().SignedPublicKey()))

	tampered := append([]byte{}, o.AdminGroup().SignedPublicKey()...)
	tampered[0] ^= 1
	require.False(o.Verify(o.AdminGroup(), tampered))
}

func TestAddMemberRequiresAccess(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	founderBundle, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(err)
	bob := newTestAccount(t, cp, "acc-2", "bob@x", "Bob", "pw2")

	o := New(cp, "org-1", "Acme")
	require.NoError(o.Initialize(founderBundle.Account))

	_, err = o.AddMember(bob)
	require.True(verr.Is(err, verr.InsufficientPerms))
}

func TestAddMemberJoinsEveryoneGroup(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	founderBundle, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(err)
	bobBundle, err := account.New(cp, "acc-2", "bob@x", "Bob", []byte("pw2"))
	require.NoError(err)

	o := New(cp, "org-1", "Acme")
	require.NoError(o.Initialize(founderBundle.Account))
	require.NoError(o.Access(founderBundle.Account, founderBundle.PrivateKey))

	m, err := o.AddMember(bobBundle.Account)
	require.NoError(err)
	require.True(o.Verify(m, m.SignedPublicKey))

	require.NoError(o.EveryoneGroup().Access(bobBundle.Account, bobBundle.PrivateKey))
	require.Contains(o.EveryoneGroup().Members(), "acc-2")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	founderBundle, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(err)

	o := New(cp, "org-1", "Acme")
	require.NoError(o.Initialize(founderBundle.Account))
	require.NoError(o.Access(founderBundle.Account, founderBundle.PrivateKey))

	snap, err := o.Snapshot()
	require.NoError(err)

	fresh := New(cp, "org-1", "")
	fresh.Restore(snap)
	require.Equal("Acme", fresh.name)

	require.NoError(fresh.Access(founderBundle.Account, founderBundle.PrivateKey))
	require.Len(fresh.Members(), 1)
}

func TestCreateVaultGrantsAdminGroupAccess(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	founderBundle, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(err)

	o := New(cp, "org-1", "Acme")
	require.NoError(o.Initialize(founderBundle.Account))
	require.NoError(o.Access(founderBundle.Account, founderBundle.PrivateKey))

	v, err := o.CreateVault("secrets")
	require.NoError(err)

	require.NoError(o.AdminGroup().Access(founderBundle.Account, founderBundle.PrivateKey))
	adminPriv, err := o.AdminGroup().PrivateKey()
	require.NoError(err)
	require.NoError(v.Access(o.AdminGroup(), adminPriv))

	items, err := v.Items()
	require.NoError(err)
	require.Empty(items)
}
