// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package group

import (
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sealbox/sealbox/pkg/container"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/verr"
)

type testAccessor struct {
	id  string
	pub *rsa.PublicKey
}

func (a testAccessor) AccessorID() string               { return a.id }
func (a testAccessor) AccessorPublicKey() *rsa.PublicKey { return a.pub }

func newTestAccessor(t *testing.T, cp crypto.Provider, id string) (testAccessor, *rsa.PrivateKey) {
	t.Helper()
	priv, pub, err := cp.RSAGenerate()
	require.NoError(t, err)
	return testAccessor{id: id, pub: pub}, priv
}

func TestGenerateKeysGrantsInitialMembers(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()

	alice, alicePriv := newTestAccessor(t, cp, "alice")
	g := New(cp, "group-1")
	pub, err := g.GenerateKeys([]container.Accessor{alice})
	require.NoError(err)
	require.NotNil(pub)

	require.NoError(g.Access(alice, alicePriv))
	priv, err := g.PrivateKey()
	require.NoError(err)
	require.Equal(pub, &priv.PublicKey)
}

func TestGroupIsItselfAnAccessor(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()

	alice, alicePriv := newTestAccessor(t, cp, "alice")
	g := New(cp, "group-1")
	_, err := g.GenerateKeys([]container.Accessor{alice})
	require.NoError(err)
	require.NoError(g.Access(alice, alicePriv))

	// A group can now act as an accessor for some other container: its
	// id and (loaded) public key satisfy container.Accessor.
	var acc container.Accessor = g
	require.Equal("group-1", acc.AccessorID())
	require.NotNil(acc.AccessorPublicKey())
}

func TestNonMemberCannotAccessGroup(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()

	alice, _ := newTestAccessor(t, cp, "alice")
	eve, evePriv := newTestAccessor(t, cp, "eve")

	g := New(cp, "group-1")
	_, err := g.GenerateKeys([]container.Accessor{alice})
	require.NoError(err)

	err = g.Access(eve, evePriv)
	require.True(verr.Is(err, verr.InsufficientPerms))
}

func TestUpdateMembersRevokesRemovedMember(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()

	alice, alicePriv := newTestAccessor(t, cp, "alice")
	bob, bobPriv := newTestAccessor(t, cp, "bob")

	g := New(cp, "group-1")
	_, err := g.GenerateKeys([]container.Accessor{alice, bob})
	require.NoError(err)
	require.NoError(g.UpdateMembers([]container.Accessor{alice}))

	err = g.Access(bob, bobPriv)
	require.True(verr.Is(err, verr.InsufficientPerms))
	require.NoError(g.Access(alice, alicePriv))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	alice, alicePriv := newTestAccessor(t, cp, "alice")

	g := New(cp, "group-1")
	pub, err := g.GenerateKeys([]container.Accessor{alice})
	require.NoError(err)

	g.SetSignedPublicKey([]byte("org-signature"))

	state, snapPub, snapSig := g.Snapshot()
	require.Equal(pub, snapPub)
	require.Equal([]byte("org-signature"), snapSig)

	fresh := New(cp, "group-1")
	fresh.Restore(state, snapPub, snapSig)
	require.Equal([]byte("org-signature"), fresh.SignedPublicKey())
	require.Equal("group-1", fresh.AccessorID())
	require.Equal(pub, fresh.AccessorPublicKey())

	require.NoError(fresh.Access(alice, alicePriv))
	priv, err := fresh.PrivateKey()
	require.NoError(err)
	require.Equal(pub, &priv.PublicKey)
}

func TestRotateKeysIssuesFreshKeypair(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()

	alice, alicePriv := newTestAccessor(t, cp, "alice")
	g := New(cp, "group-1")
	oldPub, err := g.GenerateKeys([]container.Accessor{alice})
	require.NoError(err)

	newPub, err := g.RotateKeys([]container.Accessor{alice})
	require.NoError(err)
	require.NotEqual(oldPub.N, newPub.N)

	require.NoError(g.Access(alice, alicePriv))
	priv, err := g.PrivateKey()
	require.NoError(err)
	require.Equal(newPub.N, priv.PublicKey.N)
}
