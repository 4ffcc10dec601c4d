// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package srp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandshakeSucceedsWithCorrectPassword(t *testing.T) {
	require := require.New(t)

	identity := []byte("a@x")
	password := []byte("pw1")
	salt := []byte("0123456789abcdef")
	ver := ComputeVerifier(identity, password, salt)

	server, err := NewServer(identity, ver)
	require.NoError(err)

	client, err := NewClient(identity, password)
	require.NoError(err)

	clientProof, err := client.Finish(ver.Salt, server.Public())
	require.NoError(err)

	serverProof, ok := server.VerifyAndFinish(client.Public(), clientProof)
	require.True(ok)
	require.True(client.VerifyServerProof(serverProof))
	require.Equal(client.SessionKey(), server.SessionKey())
}

func TestHandshakeFailsWithWrongPassword(t *testing.T) {
	require := require.New(t)

	identity := []byte("a@x")
	salt := []byte("0123456789abcdef")
	ver := ComputeVerifier(identity, []byte("pw1"), salt)

	server, err := NewServer(identity, ver)
	require.NoError(err)

	client, err := NewClient(identity, []byte("pw2"))
	require.NoError(err)

	clientProof, err := client.Finish(ver.Salt, server.Public())
	require.NoError(err)

	_, ok := server.VerifyAndFinish(client.Public(), clientProof)
	require.False(ok)
}

func TestServerRejectsZeroA(t *testing.T) {
	require := require.New(t)

	identity := []byte("a@x")
	salt := []byte("0123456789abcdef")
	ver := ComputeVerifier(identity, []byte("pw1"), salt)

	server, err := NewServer(identity, ver)
	require.NoError(err)

	zero := new(big.Int).Mul(groupN, big.NewInt(2))
	_, ok := server.VerifyAndFinish(zero, []byte("whatever"))
	require.False(ok)
}

func TestSimulatedVerifierIsDeterministic(t *testing.T) {
	require := require.New(t)

	secret := []byte("server-secret")
	v1 := NewSimulatedVerifier(secret, []byte("unknown@x"))
	v2 := NewSimulatedVerifier(secret, []byte("unknown@x"))
	require.Equal(v1.V, v2.V)
	require.Equal(v1.Salt, v2.Salt)

	v3 := NewSimulatedVerifier(secret, []byte("other@x"))
	require.NotEqual(v1.V, v3.V)
}
