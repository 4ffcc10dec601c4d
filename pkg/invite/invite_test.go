// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package invite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sealbox/sealbox/pkg/account"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/org"
	"github.com/sealbox/sealbox/pkg/verr"
)

func setupOrg(t *testing.T) (crypto.Provider, *org.Org, *account.Bundle) {
	t.Helper()
	cp := crypto.New()
	founder, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(t, err)

	o := org.New(cp, "org-1", "Acme")
	require.NoError(t, o.Initialize(founder.Account))
	require.NoError(t, o.Access(founder.Account, founder.PrivateKey))
	return cp, o, founder
}

func TestAcceptInviteAddsMember(t *testing.T) {
	require := require.New(t)
	cp, o, _ := setupOrg(t)
	store := NewStore()

	inv, err := Create(cp, o, "carol@x", time.Now().Add(time.Hour))
	require.NoError(err)
	store.Put(inv)

	carolBundle, err := account.New(cp, "acc-carol", "carol@x", "Carol", []byte("pw3"))
	require.NoError(err)

	m, err := store.Accept(o, inv.ID, inv.Token, carolBundle.Account, time.Now())
	require.NoError(err)
	require.Equal("acc-carol", m.ID)
	require.True(o.Verify(m, m.SignedPublicKey))
}

func TestReplayOfAcceptedInviteFails(t *testing.T) {
	require := require.New(t)
	cp, o, _ := setupOrg(t)
	store := NewStore()

	inv, err := Create(cp, o, "carol@x", time.Now().Add(time.Hour))
	require.NoError(err)
	store.Put(inv)

	carolBundle, err := account.New(cp, "acc-carol", "carol@x", "Carol", []byte("pw3"))
	require.NoError(err)

	_, err = store.Accept(o, inv.ID, inv.Token, carolBundle.Account, time.Now())
	require.NoError(err)

	_, err = store.Accept(o, inv.ID, inv.Token, carolBundle.Account, time.Now())
	require.True(verr.Is(err, verr.InviteExpired))
}

func TestExpiredInviteFails(t *testing.T) {
	require := require.New(t)
	cp, o, _ := setupOrg(t)
	store := NewStore()

	inv, err := Create(cp, o, "carol@x", time.Now().Add(-time.Minute))
	require.NoError(err)
	store.Put(inv)

	carolBundle, err := account.New(cp, "acc-carol", "carol@x", "Carol", []byte("pw3"))
	require.NoError(err)

	_, err = store.Accept(o, inv.ID, inv.Token, carolBundle.Account, time.Now())
	require.True(verr.Is(err, verr.InviteExpired))
}

func TestWrongProofFails(t *testing.T) {
	require := require.New(t)
	cp, o, _ := setupOrg(t)
	store := NewStore()

	inv, err := Create(cp, o, "carol@x", time.Now().Add(time.Hour))
	require.NoError(err)
	store.Put(inv)

	carolBundle, err := account.New(cp, "acc-carol", "carol@x", "Carol", []byte("pw3"))
	require.NoError(err)

	_, err = store.Accept(o, inv.ID, []byte("wrong-token"), carolBundle.Account, time.Now())
	require.True(verr.Is(err, verr.InviteExpired))
}
