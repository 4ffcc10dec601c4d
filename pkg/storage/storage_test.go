// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"testing"

	"github.com/sealbox/sealbox/pkg/verr"
	"github.com/stretchr/testify/require"
)

func TestMarshalRecordIsDeterministic(t *testing.T) {
	require := require.New(t)

	rec := &Record{
		ID:            "acc-1",
		SchemaVersion: CurrentSchemaVersion,
		Fields: map[string][]byte{
			"email": []byte("a@x"),
			"name":  []byte("Alice"),
		},
	}
	a, err := MarshalRecord(rec)
	require.NoError(err)
	b, err := MarshalRecord(rec)
	require.NoError(err)
	require.Equal(a, b)

	back, err := UnmarshalRecord(a)
	require.NoError(err)
	require.Equal(rec.ID, back.ID)
	require.Equal(rec.Fields, back.Fields)
}

func TestMemoryBackendRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	b := NewMemory()

	rec := &Record{ID: "v1", SchemaVersion: 1, Fields: map[string][]byte{"name": []byte("Secrets")}}
	require.NoError(b.Put(ctx, "vaults", "v1", rec))

	got, err := b.Get(ctx, "vaults", "v1")
	require.NoError(err)
	require.Equal(rec.Fields, got.Fields)

	require.NoError(b.Delete(ctx, "vaults", "v1"))
	_, err = b.Get(ctx, "vaults", "v1")
	require.True(verr.Is(err, verr.NotFound))
}

func TestMemoryBackendList(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	b := NewMemory()

	require.NoError(b.Put(ctx, "vaults", "v1", &Record{ID: "v1", Fields: map[string][]byte{}}))
	require.NoError(b.Put(ctx, "vaults", "v2", &Record{ID: "v2", Fields: map[string][]byte{}}))
	require.NoError(b.Put(ctx, "orgs", "o1", &Record{ID: "o1", Fields: map[string][]byte{}}))

	vaults, err := b.List(ctx, "vaults")
	require.NoError(err)
	require.Len(vaults, 2)
}

func TestBadgerBackendRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	b, err := NewBadger("")
	require.NoError(err)
	defer b.Close()

	rec := &Record{ID: "v1", SchemaVersion: 1, Fields: map[string][]byte{"name": []byte("Secrets")}}
	require.NoError(b.Put(ctx, "vaults", "v1", rec))

	got, err := b.Get(ctx, "vaults", "v1")
	require.NoError(err)
	require.Equal(rec.Fields, got.Fields)

	_, err = b.Get(ctx, "vaults", "missing")
	require.True(verr.Is(err, verr.NotFound))
}
