// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package vault

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

func TestCreateStartsWithEmptyItemList(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	alice, alicePriv := newTestAccessor(t, cp, "alice")

	v := New(cp, "vault-1", "personal")
	require.NoError(v.Create([]container.Accessor{alice}))
	require.NoError(v.Access(alice, alicePriv))

	items, err := v.Items()
	require.NoError(err)
	require.Empty(items)
}

func TestPutItemAndDeleteItem(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	alice, alicePriv := newTestAccessor(t, cp, "alice")

	v := New(cp, "vault-1", "personal")
	require.NoError(v.Create([]container.Accessor{alice}))
	require.NoError(v.Access(alice, alicePriv))

	id, err := v.PutItem("github token", []byte("ghp_xxx"), []string{"dev"})
	require.NoError(err)
	require.NotEmpty(id)

	items, err := v.Items()
	require.NoError(err)
	require.Len(items, 1)
	require.Equal("github token", items[0].Name)
	require.Equal([]byte("ghp_xxx"), items[0].EncryptedValue)

	require.NoError(v.DeleteItem(id))
	items, err = v.Items()
	require.NoError(err)
	require.Empty(items)
}

func TestAccessDeniedForNonAccessor(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	alice, _ := newTestAccessor(t, cp, "alice")
	eve, evePriv := newTestAccessor(t, cp, "eve")

	v := New(cp, "vault-1", "personal")
	require.NoError(v.Create([]container.Accessor{alice}))

	err := v.Access(eve, evePriv)
	require.True(verr.Is(err, verr.InsufficientPerms))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	alice, alicePriv := newTestAccessor(t, cp, "alice")

	v := New(cp, "vault-1", "personal")
	require.NoError(v.Create([]container.Accessor{alice}))
	require.NoError(v.Access(alice, alicePriv))
	_, err := v.PutItem("secret", []byte("value"), nil)
	require.NoError(err)

	state := v.Snapshot()
	fresh := New(cp, "vault-1", "personal")
	fresh.Restore(state)
	require.NoError(fresh.Access(alice, alicePriv))

	items, err := fresh.Items()
	require.NoError(err)
	require.Len(items, 1)
}

func TestRotateKeyPreservesItems(t *testing.T) {
	require := require.New(t)
	cp := crypto.New()
	alice, alicePriv := newTestAccessor(t, cp, "alice")
	bob, _ := newTestAccessor(t, cp, "bob")

	v := New(cp, "vault-1", "personal")
	require.NoError(v.Create([]container.Accessor{alice, bob}))
	require.NoError(v.Access(alice, alicePriv))
	_, err := v.PutItem("secret", []byte("value"), nil)
	require.NoError(err)

	require.NoError(v.RotateKey([]container.Accessor{alice}))

	items, err := v.Items()
	require.NoError(err)
	require.Len(items, 1)
	require.Equal("secret", items[0].Name)
}
