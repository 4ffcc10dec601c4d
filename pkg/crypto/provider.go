// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package crypto implements the raw cryptographic primitives the rest of
// the vault core builds on (spec §4.1, component C1): AEAD seal/open,
// RSA keygen/sign/verify/wrap/unwrap, HMAC and a password KDF. Everything
// above this package treats these as black boxes and never reaches past
// Provider into crypto/rsa or crypto/cipher directly.
package crypto

import (
	stdcrypto "crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// KDFParams identifies a concrete PBKDF2 invocation. Params travel with the
// derived material (in an Account's auth record) so a later derivation with
// the same password reproduces the same key.
type KDFParams struct {
	Algo       string // "pbkdf2-sha256"
	Iterations int
	Salt       []byte
	KeyLen     int
}

// DefaultKDFParams returns parameters suitable for deriving a new
// account's master key; Salt is left empty for the caller to fill with
// fresh randomness.
func DefaultKDFParams() KDFParams {
	return KDFParams{Algo: "pbkdf2-sha256", Iterations: 200_000, KeyLen: 32}
}

// SignParams identifies a concrete signature scheme. Signing params travel
// with the signed object (spec §4.1) so verification doesn't have to guess
// the scheme.
type SignParams struct {
	Scheme   string // "rsa-pss-sha256"
	SaltLen  int
}

// DefaultSignParams is RSA-PSS with SHA-256 and the hash-length salt,
// the scheme org signatures use throughout this module.
func DefaultSignParams() SignParams {
	return SignParams{Scheme: "rsa-pss-sha256", SaltLen: rsa.PSSSaltLengthEqualsHash}
}

var (
	ErrUnwrapFailed = errors.New("crypto: unwrap failed")
	ErrOpenFailed   = errors.New("crypto: aead open failed")
	ErrBadScheme    = errors.New("crypto: unsupported signing scheme")
)

const rsaKeyBits = 3072

// Provider is the crypto primitive surface. A single process-wide instance
// is safe for concurrent use: it is stateless beyond the system CSPRNG.
type Provider interface {
	RandomBytes(n int) ([]byte, error)
	KDF(password []byte, p KDFParams) ([]byte, error)
	AEADSeal(key, nonce, aad, plaintext []byte) ([]byte, error)
	AEADOpen(key, nonce, aad, ciphertext []byte) ([]byte, error)
	NewNonce() ([]byte, error)

	RSAGenerate() (*rsa.PrivateKey, *rsa.PublicKey, error)
	RSAWrap(pub *rsa.PublicKey, key []byte) ([]byte, error)
	RSAUnwrap(priv *rsa.PrivateKey, blob []byte) ([]byte, error)
	Sign(priv *rsa.PrivateKey, msg []byte, p SignParams) ([]byte, error)
	Verify(pub *rsa.PublicKey, msg, sig []byte, p SignParams) bool

	HMAC(key, msg []byte) []byte
	DeriveKey(secret, salt, info []byte, length int) ([]byte, error)

	MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error)
	ParsePublicKey(der []byte) (*rsa.PublicKey, error)
	MarshalPrivateKey(priv *rsa.PrivateKey) []byte
	ParsePrivateKey(der []byte) (*rsa.PrivateKey, error)
	Fingerprint(pub *rsa.PublicKey) ([]byte, error)
}

type provider struct{}

// New returns the default Provider. It is stateless and may be shared
// across goroutines without locking.
func New() Provider { return provider{} }

func (provider) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (provider) NewNonce() ([]byte, error) {
	b := make([]byte, 12) // AES-GCM standard nonce size
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (provider) KDF(password []byte, p KDFParams) ([]byte, error) {
	if p.KeyLen <= 0 {
		return nil, errors.New("crypto: KDFParams.KeyLen must be > 0")
	}
	if p.Iterations <= 0 {
		return nil, errors.New("crypto: KDFParams.Iterations must be > 0")
	}
	return pbkdf2.Key(password, p.Salt, p.Iterations, p.KeyLen, sha256.New), nil
}

func (provider) AEADSeal(key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// AEADOpen returns ErrOpenFailed on any tampering. Callers MUST treat this
// as fatal and never attempt local recovery (spec §7): a forged tag means
// either a bit-flip in transit or an active attacker, and the difference
// is not ours to guess.
func (provider) AEADOpen(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return pt, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (provider) RSAGenerate() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, nil, err
	}
	return priv, &priv.PublicKey, nil
}

func (provider) RSAWrap(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
}

// RSAUnwrap returns ErrUnwrapFailed (a distinguished result per spec §4.1)
// rather than the underlying crypto/rsa error, so callers can branch on
// "this accessor cannot open K" without parsing library-internal text.
func (provider) RSAUnwrap(priv *rsa.PrivateKey, blob []byte) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, blob, nil)
	if err != nil {
		return nil, ErrUnwrapFailed
	}
	return key, nil
}

func (provider) Sign(priv *rsa.PrivateKey, msg []byte, p SignParams) ([]byte, error) {
	if p.Scheme != "rsa-pss-sha256" {
		return nil, ErrBadScheme
	}
	h := sha256.Sum256(msg)
	return rsa.SignPSS(rand.Reader, priv, stdcrypto.SHA256, h[:], pssOpts(p))
}

func (provider) Verify(pub *rsa.PublicKey, msg, sig []byte, p SignParams) bool {
	if p.Scheme != "rsa-pss-sha256" {
		return false
	}
	h := sha256.Sum256(msg)
	return rsa.VerifyPSS(pub, stdcrypto.SHA256, h[:], sig, pssOpts(p)) == nil
}

func pssOpts(p SignParams) *rsa.PSSOptions {
	saltLen := p.SaltLen
	if saltLen == 0 {
		saltLen = rsa.PSSSaltLengthEqualsHash
	}
	return &rsa.PSSOptions{SaltLength: saltLen, Hash: stdcrypto.SHA256}
}

func (provider) HMAC(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// DeriveKey expands secret (e.g. an SRP premaster key) into length bytes of
// session key material via HKDF-SHA256. salt may be nil; info binds the
// derived key to its purpose, so a raw handshake secret is never used
// directly as an AEAD key.
func (provider) DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	out := make([]byte, length)
	r := hkdf.New(sha256.New, secret, salt, info)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (provider) MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

func (provider) ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("crypto: not an RSA public key")
	}
	return rsaPub, nil
}

func (provider) MarshalPrivateKey(priv *rsa.PrivateKey) []byte {
	return x509.MarshalPKCS1PrivateKey(priv)
}

func (provider) ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	return x509.ParsePKCS1PrivateKey(der)
}

// Fingerprint is the trust-on-first-use hash stored in a container's
// accessor table (spec §4.5): SHA-256 over the marshaled SPKI public key.
func (p provider) Fingerprint(pub *rsa.PublicKey) ([]byte, error) {
	der, err := p.MarshalPublicKey(pub)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(der)
	return h[:], nil
}
