// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package container

import (
	"crypto/rsa"
	"testing"

	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/verr"
	"github.com/stretchr/testify/require"
)

func isInsufficientPerms(err error) bool { return verr.Is(err, verr.InsufficientPerms) }
func isKeyMismatch(err error) bool       { return verr.Is(err, verr.KeyMismatch) }
func isDecryptionFailed(err error) bool  { return verr.Is(err, verr.DecryptionFailed) }

type testAccessor struct {
	id  string
	pub *rsa.PublicKey
}

func (a testAccessor) AccessorID() string              { return a.id }
func (a testAccessor) AccessorPublicKey() *rsa.PublicKey { return a.pub }

func newTestAccessor(t *testing.T, cp crypto.Provider, id string) (testAccessor, *rsa.PrivateKey) {
	t.Helper()
	priv, pub, err := cp.RSAGenerate()
	require.NoError(t, err)
	return testAccessor{id: id, pub: pub}, priv
}

func TestRoundTripForEveryAccessorInSet(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	c := New("vault-1", cp)

	alice, alicePriv := newTestAccessor(t, cp, "alice")
	bob, bobPriv := newTestAccessor(t, cp, "bob")

	require.NoError(c.UpdateAccessors([]Accessor{alice, bob}))
	require.NoError(c.SetData([]byte("super secret")))

	for _, pair := range []struct {
		a    testAccessor
		priv *rsa.PrivateKey
	}{{alice, alicePriv}, {bob, bobPriv}} {
		c2 := cloneForAccess(t, cp, c)
		require.NoError(c2.Access(pair.a, pair.priv))
		pt, err := c2.GetData()
		require.NoError(err)
		require.Equal([]byte("super secret"), pt)
	}
}

// cloneForAccess constructs a fresh in-memory view over the same
// ciphertext/table so each accessor starts without K loaded, mirroring a
// fresh process accessing a persisted container.
func cloneForAccess(t *testing.T, cp crypto.Provider, c *Container) *Container {
	t.Helper()
	fresh := New(c.ID(), cp)
	fresh.ciphertext = c.ciphertext
	fresh.nonce = c.nonce
	fresh.accessors = c.accessors
	fresh.order = c.order
	return fresh
}

func TestAccessFailsForAccessorNotInSet(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	c := New("vault-1", cp)

	alice, _ := newTestAccessor(t, cp, "alice")
	eve, evePriv := newTestAccessor(t, cp, "eve")

	require.NoError(c.UpdateAccessors([]Accessor{alice}))
	require.NoError(c.SetData([]byte("secret")))

	err := c.Access(eve, evePriv)
	require.True(isInsufficientPerms(err))
}

func TestAccessDetectsKeyMismatch(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	c := New("vault-1", cp)

	alice, alicePriv := newTestAccessor(t, cp, "alice")
	require.NoError(c.UpdateAccessors([]Accessor{alice}))
	require.NoError(c.SetData([]byte("secret")))

	// Alice's public key changes (e.g. a substitution attack) but her id
	// stays the same; the stored fingerprint no longer matches.
	newPriv, newPub, err := cp.RSAGenerate()
	require.NoError(err)
	rotatedAlice := testAccessor{id: "alice", pub: newPub}

	err = c.Access(rotatedAlice, newPriv)
	require.True(isKeyMismatch(err))

	// Her original key still works until updateAccessors runs again.
	require.NoError(c.Access(alice, alicePriv))
}

func TestGetDataFailsWithoutAccess(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	c := New("vault-1", cp)
	alice, _ := newTestAccessor(t, cp, "alice")
	require.NoError(c.UpdateAccessors([]Accessor{alice}))
	require.NoError(c.SetData([]byte("secret")))

	fresh := cloneForAccess(t, cp, c)
	_, err := fresh.GetData()
	require.Error(err)
}

func TestTamperDetection(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	c := New("vault-1", cp)
	alice, alicePriv := newTestAccessor(t, cp, "alice")
	require.NoError(c.UpdateAccessors([]Accessor{alice}))
	require.NoError(c.SetData([]byte("secret")))

	c.ciphertext[0] ^= 0xFF

	require.NoError(c.Access(alice, alicePriv))
	_, err := c.GetData()
	require.True(isDecryptionFailed(err))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	c := New("vault-1", cp)

	alice, alicePriv := newTestAccessor(t, cp, "alice")
	require.NoError(c.UpdateAccessors([]Accessor{alice}))
	require.NoError(c.SetData([]byte("secret")))

	snap := c.Snapshot()

	fresh := New(c.ID(), cp)
	fresh.Restore(snap)
	require.NoError(fresh.Access(alice, alicePriv))
	pt, err := fresh.GetData()
	require.NoError(err)
	require.Equal([]byte("secret"), pt)
}

func TestRotateKeyRevokesRemovedAccessor(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	c := New("vault-1", cp)

	alice, alicePriv := newTestAccessor(t, cp, "alice")
	bob, _ := newTestAccessor(t, cp, "bob")

	require.NoError(c.UpdateAccessors([]Accessor{alice, bob}))
	require.NoError(c.SetData([]byte("secret")))
	require.NoError(c.Access(alice, alicePriv))

	// Bob is removed from the logical accessor set; rotate re-wraps only
	// for the remaining accessors.
	require.NoError(c.RotateKey([]Accessor{alice}))

	pt, err := c.GetData()
	require.NoError(err)
	require.Equal([]byte("secret"), pt)

	fresh := cloneForAccess(t, cp, c)
	_, bobPriv := newTestAccessor(t, cp, "bob-unused")
	err = fresh.Access(bob, bobPriv)
	require.True(isInsufficientPerms(err))
}
