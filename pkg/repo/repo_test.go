// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package repo

import (
	"context"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sealbox/sealbox/pkg/account"
	"github.com/sealbox/sealbox/pkg/container"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/org"
	"github.com/sealbox/sealbox/pkg/storage"
	"github.com/sealbox/sealbox/pkg/vault"
	"github.com/sealbox/sealbox/pkg/verr"
)

func TestAccountsCreateAndLoad(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	cp := crypto.New()
	repo := NewAccounts(storage.NewMemory())

	bundle, err := account.New(cp, "acc-1", "alice@x", "Alice", []byte("pw"))
	require.NoError(err)
	require.NoError(repo.CreateAccount(ctx, bundle))

	got, err := repo.GetAccount(ctx, "acc-1")
	require.NoError(err)
	require.Equal("alice@x", got.Email)

	auth, err := repo.GetAuthByEmail(ctx, "alice@x")
	require.NoError(err)
	require.Equal("acc-1", auth.AccountID)
}

func TestAccountsCreateRejectsDuplicateEmail(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	cp := crypto.New()
	repo := NewAccounts(storage.NewMemory())

	bundle1, err := account.New(cp, "acc-1", "alice@x", "Alice", []byte("pw"))
	require.NoError(err)
	bundle2, err := account.New(cp, "acc-2", "alice@x", "Alice Again", []byte("pw2"))
	require.NoError(err)

	require.NoError(repo.CreateAccount(ctx, bundle1))
	err = repo.CreateAccount(ctx, bundle2)
	require.True(verr.Is(err, verr.AlreadyExists))
}

func TestAccountsPutAuthOverwrites(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	cp := crypto.New()
	repo := NewAccounts(storage.NewMemory())

	bundle, err := account.New(cp, "acc-1", "alice@x", "Alice", []byte("pw"))
	require.NoError(err)
	require.NoError(repo.CreateAccount(ctx, bundle))

	newBundle, err := account.New(cp, "acc-1", "alice@x", "Alice", []byte("new-pw"))
	require.NoError(err)
	require.NoError(repo.PutAuth(ctx, newBundle.Auth))

	auth, err := repo.GetAuthByEmail(ctx, "alice@x")
	require.NoError(err)
	require.Equal(newBundle.Auth.Verifier.Salt, auth.Verifier.Salt)
}

func TestOrgsSaveAndLoadRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	cp := crypto.New()
	founderBundle, err := account.New(cp, "acc-1", "founder@x", "Founder", []byte("pw"))
	require.NoError(err)

	o := org.New(cp, "org-1", "Acme")
	require.NoError(o.Initialize(founderBundle.Account))
	require.NoError(o.Access(founderBundle.Account, founderBundle.PrivateKey))

	repo := NewOrgs(cp, storage.NewMemory())
	require.NoError(repo.Save(ctx, o))

	loaded, err := repo.Load(ctx, "org-1")
	require.NoError(err)
	require.NoError(loaded.Access(founderBundle.Account, founderBundle.PrivateKey))
	require.Len(loaded.Members(), 1)
}

func TestVaultsSaveLoadAndList(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	cp := crypto.New()
	priv, pub, err := cp.RSAGenerate()
	require.NoError(err)
	owner := memberAccessor{id: "acc-1", pub: pub}

	v := vault.New(cp, "vault-1", "personal")
	require.NoError(v.Create([]container.Accessor{owner}))
	require.NoError(v.Access(owner, priv))
	_, err = v.PutItem("token", []byte("secret"), nil)
	require.NoError(err)

	repo := NewVaults(cp, storage.NewMemory())
	require.NoError(repo.Save(ctx, v, "org-1"))

	loaded, orgID, err := repo.Load(ctx, "vault-1")
	require.NoError(err)
	require.Equal("org-1", orgID)
	require.NoError(loaded.Access(owner, priv))
	items, err := loaded.Items()
	require.NoError(err)
	require.Len(items, 1)

	summaries, err := repo.List(ctx)
	require.NoError(err)
	require.Len(summaries, 1)
	require.Equal("vault-1", summaries[0].ID)
	require.Equal("personal", summaries[0].Name)
}

type memberAccessor struct {
	id  string
	pub *rsa.PublicKey
}

func (a memberAccessor) AccessorID() string               { return a.id }
func (a memberAccessor) AccessorPublicKey() *rsa.PublicKey { return a.pub }
