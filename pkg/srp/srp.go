// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package srp implements the SRP-6a augmented PAKE (spec §4.2, component
// C2) over the RFC 5054 2048-bit group, using SHA-256 in place of the
// reference implementation's Blake2b so the module stays on crypto/sha256
// plus math/big and needs no extra hash dependency.
//
// Conventions (RFC 5054 / http://srp.stanford.edu/design.html):
//
//	N, g   safe-prime group modulus and generator
//	k      multiplier, k = H(N, pad(g))
//	s      user salt
//	I      identity (email)
//	p      password
//	x      private key, x = H(s, I, p)
//	v      password verifier, v = g^x
//	a, b   ephemeral secrets
//	A, B   ephemeral public values
//	u      scrambling parameter, u = H(pad(A), pad(B))
//	S      premaster secret
//	K      session key, K = H(S)
//	M, M'  mutual proofs
package srp

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"math/big"
)

var (
	// ErrZeroPublicValue is returned when a peer's ephemeral public value
	// is congruent to 0 mod N — spec §4.2's ordering rule ("server MUST
	// reject A ≡ 0 (mod N)"), applied symmetrically to B on the client.
	ErrZeroPublicValue = errors.New("srp: ephemeral public value is zero mod N")
	ErrBadProof        = errors.New("srp: proof mismatch")
)

var (
	groupN *big.Int
	groupG = big.NewInt(2)
)

func init() {
	// RFC 5054 §A 2048-bit group.
	const hexN = "AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAAE82918A9962F0B93B855F97993EC975EEAA80D740ADBF4FF747359D041D5C33EA71D281E446B14773BCA97B43A23FB801676BD207A436C6481F1D2B9078717461A5B9D32E688F87748544523B524B0D57D5EA77A2775D2ECFA032CFBDBF52FB3786160279004E57AE6AF874E7303CE53299CCC041C7BC308D82A5698F3A8D0C38271AE35F8E9DBFBB694B5C803D89F7AE435DE236D525F54759B65E372FCD68EF20FA7111F9E4AFF73"
	n, ok := new(big.Int).SetString(hexN, 16)
	if !ok {
		panic("srp: failed to parse RFC 5054 2048-bit group modulus")
	}
	groupN = n
}

// fieldBytes is the byte width N is padded to for all hash inputs.
func fieldBytes() int { return (groupN.BitLen() + 7) / 8 }

func h(parts ...[]byte) []byte {
	hh := sha256.New()
	for _, p := range parts {
		hh.Write(p)
	}
	return hh.Sum(nil)
}

func hInt(parts ...[]byte) *big.Int {
	return new(big.Int).SetBytes(h(parts...))
}

// pad left-pads b's big-endian bytes to n bytes.
func pad(x *big.Int, n int) []byte {
	b := x.Bytes()
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

func randBigInt(bits int) (*big.Int, error) {
	buf := make([]byte, (bits+7)/8)
	if _, err := cryptoRandRead(buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(buf), nil
}

// multiplier is k = H(N, pad(g)), computed once since N and g are fixed.
func multiplier() *big.Int {
	return hInt(groupN.Bytes(), pad(groupG, fieldBytes()))
}

// Verifier is the long-term record stored server-side (spec §3 Auth
// record's SRP verifier v and group parameters).
type Verifier struct {
	Salt  []byte
	V     *big.Int
}

// ComputeVerifier derives {salt, v} for a freshly chosen password, to be
// run once on the client at signup/recovery time. salt must already be
// random and unique per account.
func ComputeVerifier(identity, password, salt []byte) *Verifier {
	x := hInt(salt, identity, password)
	v := new(big.Int).Exp(groupG, x, groupN)
	return &Verifier{Salt: salt, V: v}
}

// ClientSession holds per-handshake client state between generating A and
// computing the final key/proof.
type ClientSession struct {
	identity, password []byte
	a, A               *big.Int
	k                  []byte // session key K, set after Finish
	m                  []byte // proof M, set after Finish
}

// NewClient begins a client-side handshake, generating the ephemeral
// secret a and public value A = g^a mod N.
func NewClient(identity, password []byte) (*ClientSession, error) {
	a, err := randBigInt(groupN.BitLen())
	if err != nil {
		return nil, err
	}
	A := new(big.Int).Exp(groupG, a, groupN)
	return &ClientSession{identity: identity, password: password, a: a, A: A}, nil
}

// Public returns this client's ephemeral public value A, to be sent to the
// server alongside the identity.
func (c *ClientSession) Public() *big.Int { return c.A }

// Finish completes the handshake given the server's salt and public value
// B, returning the client's proof M to send to the server. It fails with
// ErrZeroPublicValue if B ≡ 0 (mod N) — the client-side half of the
// "reject zero public value" rule in spec §4.2.
func (c *ClientSession) Finish(salt []byte, B *big.Int) ([]byte, error) {
	n := fieldBytes()
	if new(big.Int).Mod(B, groupN).Sign() == 0 {
		return nil, ErrZeroPublicValue
	}

	u := hInt(pad(c.A, n), pad(B, n))
	if u.Sign() == 0 {
		return nil, ErrZeroPublicValue
	}

	x := hInt(salt, c.identity, c.password)
	k := multiplier()

	// S = (B - k*g^x) ^ (a + u*x) mod N
	gx := new(big.Int).Exp(groupG, x, groupN)
	t0 := new(big.Int).Sub(B, new(big.Int).Mul(k, gx))
	t0.Mod(t0, groupN)
	t1 := new(big.Int).Add(c.a, new(big.Int).Mul(u, x))
	S := new(big.Int).Exp(t0, t1, groupN)

	c.k = h(S.Bytes())
	c.m = h(c.k, pad(c.A, n), pad(B, n), c.identity, salt, groupN.Bytes(), groupG.Bytes())
	return c.m, nil
}

// SessionKey returns the negotiated key K. Only valid after Finish.
func (c *ClientSession) SessionKey() []byte { return c.k }

// VerifyServerProof checks the server's M' against this client's own
// view of the handshake.
func (c *ClientSession) VerifyServerProof(serverProof []byte) bool {
	want := h(c.k, c.m)
	return subtle.ConstantTimeCompare(want, serverProof) == 1
}

// ServerSession holds per-handshake server state. Unlike a textbook SRP
// walkthrough that hands the server A up front, spec §4.2 splits the
// handshake across two requests: initAuth(email) returns only {auth, B}
// (computed from the stored verifier and a fresh b — the server never
// sees A at this point), and A arrives later bundled with the client's
// proof M in createSession. NewServer therefore only derives B; A and the
// resulting u/S/K/M' are computed once in VerifyAndFinish.
type ServerSession struct {
	identity, salt []byte
	v              *big.Int
	b, B           *big.Int
	k              []byte
	m              []byte
}

// NewServer begins a server-side handshake against a stored Verifier,
// generating the server's ephemeral secret b and public value B.
func NewServer(identity []byte, ver *Verifier) (*ServerSession, error) {
	b, err := randBigInt(groupN.BitLen())
	if err != nil {
		return nil, err
	}
	k := multiplier()
	// B = k*v + g^b mod N
	B := new(big.Int).Add(new(big.Int).Mul(k, ver.V), new(big.Int).Exp(groupG, b, groupN))
	B.Mod(B, groupN)

	return &ServerSession{identity: identity, salt: ver.Salt, v: ver.V, b: b, B: B}, nil
}

// Public returns this server's ephemeral public value B, to be returned
// from initAuth alongside the stored KDF/group parameters.
func (s *ServerSession) Public() *big.Int { return s.B }

// VerifyAndFinish consumes the client's public value A and proof M,
// together — the point at which createSession actually runs the rest of
// the protocol. It rejects A ≡ 0 (mod N) per spec §4.2's ordering rule,
// then computes u, the shared secret S, the session key K and the
// server's own expected proof, and compares it against clientProof.
//
// On any failure (zero A, zero u, or proof mismatch) it returns
// (nil, false) uniformly — the caller MUST surface a generic
// AuthenticationFailed in every case, never a distinct error for "bad
// public value" vs "bad proof" (spec §4.2/§7: no oracle about why the
// handshake failed).
func (s *ServerSession) VerifyAndFinish(A *big.Int, clientProof []byte) (serverProof []byte, ok bool) {
	if new(big.Int).Mod(A, groupN).Sign() == 0 {
		return nil, false
	}

	n := fieldBytes()
	u := hInt(pad(A, n), pad(s.B, n))
	if u.Sign() == 0 {
		return nil, false
	}

	// S = (A * v^u) ^ b mod N
	t0 := new(big.Int).Mul(A, new(big.Int).Exp(s.v, u, groupN))
	t0.Mod(t0, groupN)
	S := new(big.Int).Exp(t0, s.b, groupN)

	k := h(S.Bytes())
	m := h(k, pad(A, n), pad(s.B, n), s.identity, s.salt, groupN.Bytes(), groupG.Bytes())

	if subtle.ConstantTimeCompare(m, clientProof) != 1 {
		return nil, false
	}
	s.k = k
	s.m = m
	return h(s.k, s.m), true
}

// SessionKey returns the negotiated key K. Only meaningful after a
// successful VerifyAndFinish.
func (s *ServerSession) SessionKey() []byte { return s.k }

// GroupBitLen exposes the modulus size, e.g. for simulated-verifier
// construction in pkg/auth.
func GroupBitLen() int { return groupN.BitLen() }

// NewSimulatedVerifier deterministically derives a verifier that looks
// structurally identical to a real one but is seeded from serverSecret and
// identity rather than any password, for the initAuth anti-enumeration
// response (spec §4.2, §8 property 4).
func NewSimulatedVerifier(serverSecret, identity []byte) *Verifier {
	mac := hmac.New(sha256.New, serverSecret)
	mac.Write(identity)
	seed := mac.Sum(nil)
	salt := h(seed, []byte("salt"))
	x := hInt(seed, []byte("verifier"))
	v := new(big.Int).Exp(groupG, x, groupN)
	return &Verifier{Salt: salt[:16], V: v}
}
