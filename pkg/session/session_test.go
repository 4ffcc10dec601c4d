// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"testing"
	"time"

	"github.com/sealbox/sealbox/pkg/verr"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := NewStore(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sess := store.Create(ctx, "acc-1", []byte("key"), now)
	got, err := store.Get(ctx, sess.ID, now.Add(time.Minute))
	require.NoError(err)
	require.Equal(sess.AccountID, got.AccountID)
}

func TestExpiredSessionFailsAuth(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := NewStore(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sess := store.Create(ctx, "acc-1", []byte("key"), now)
	_, err := store.Get(ctx, sess.ID, now.Add(2*time.Hour))
	require.True(verr.Is(err, verr.AuthenticationFailed))
}

func TestRevokedSessionFailsAuth(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := NewStore(time.Hour)
	now := time.Now()

	sess := store.Create(ctx, "acc-1", []byte("key"), now)
	require.NoError(store.Revoke(ctx, sess.ID))

	_, err := store.Get(ctx, sess.ID, now)
	require.True(verr.Is(err, verr.AuthenticationFailed))
}
