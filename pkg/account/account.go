// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package account implements the user identity primitive (spec §4.4,
// component C4): a long-term RSA keypair whose private half never leaves
// the client in the clear — it is sealed in an envelope under a
// password-derived master key and submitted alongside an SRP auth record.
package account

import (
	"crypto/rsa"

	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/srp"
	"github.com/sealbox/sealbox/pkg/verr"
)

// Account is the server-visible identity record (spec §3 "Account").
type Account struct {
	ID        string
	Email     string
	Name      string
	PublicKey *rsa.PublicKey

	// Envelope seals the private key under a master key derived from the
	// account owner's password; EnvelopeNonce/KDFParams are needed to
	// reproduce that master key and open it.
	Envelope      []byte
	EnvelopeNonce []byte
	KDFParams     crypto.KDFParams
}

// AccessorID implements container.Accessor.
func (a *Account) AccessorID() string { return a.ID }

// AccessorPublicKey implements container.Accessor.
func (a *Account) AccessorPublicKey() *rsa.PublicKey { return a.PublicKey }

// AuthRecord is the server-stored SRP material for an account (spec §3
// "Auth record"): never the password itself, only what's needed to run
// the handshake and re-derive the master key client-side.
type AuthRecord struct {
	AccountID string
	Email     string
	KDFParams crypto.KDFParams // envelope master-key derivation params
	Verifier  *srp.Verifier    // SRP verifier v + salt
}

// Bundle is everything produced by a client-side signup, ready to be
// submitted to createAccount (spec §6).
type Bundle struct {
	Account    *Account
	Auth       *AuthRecord
	PrivateKey *rsa.PrivateKey // kept by the client only; never persisted server-side
}

// New performs the client-side half of account creation: choose a salt,
// derive the envelope master key and the SRP verifier from password,
// generate the long-term RSA keypair, and seal the private key.
func New(cp crypto.Provider, id, email, name string, password []byte) (*Bundle, error) {
	priv, pub, err := cp.RSAGenerate()
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "generate account keypair", err)
	}

	envSalt, err := cp.RandomBytes(16)
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "generate envelope salt", err)
	}
	kdfParams := crypto.DefaultKDFParams()
	kdfParams.Salt = envSalt

	masterKey, err := cp.KDF(password, kdfParams)
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "derive master key", err)
	}

	nonce, err := cp.NewNonce()
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "generate envelope nonce", err)
	}
	privDER := cp.MarshalPrivateKey(priv)
	envelope, err := cp.AEADSeal(masterKey, nonce, []byte(id), privDER)
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "seal private-key envelope", err)
	}

	srpSalt, err := cp.RandomBytes(16)
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "generate srp salt", err)
	}
	verifier := srp.ComputeVerifier([]byte(email), password, srpSalt)

	acc := &Account{
		ID:            id,
		Email:         email,
		Name:          name,
		PublicKey:     pub,
		Envelope:      envelope,
		EnvelopeNonce: nonce,
		KDFParams:     kdfParams,
	}
	auth := &AuthRecord{AccountID: id, Email: email, KDFParams: kdfParams, Verifier: verifier}

	return &Bundle{Account: acc, Auth: auth, PrivateKey: priv}, nil
}

// Unseal recovers the long-term private key from the account's envelope
// given the caller's master key (re-derived from the password via
// cp.KDF(password, account.KDFParams)).
func (a *Account) Unseal(cp crypto.Provider, masterKey []byte) (*rsa.PrivateKey, error) {
	der, err := cp.AEADOpen(masterKey, a.EnvelopeNonce, []byte(a.ID), a.Envelope)
	if err != nil {
		return nil, verr.Wrap(verr.DecryptionFailed, "unseal private-key envelope", err)
	}
	priv, err := cp.ParsePrivateKey(der)
	if err != nil {
		return nil, verr.Wrap(verr.ServerError, "parse unsealed private key", err)
	}
	return priv, nil
}

// RecoverResult is returned by Recover; NeedsReEnrollment signals that a
// new keypair was issued and every container the account accessed needs
// an out-of-band updateAccessors to re-wrap its data key for the new
// public key (spec §9 open question, resolved: recovery always rotates
// the keypair since the source gives no way to recover a lost password).
type RecoverResult struct {
	Bundle           *Bundle
	NeedsReEnrollment bool
}

// Recover builds a replacement account bundle (new auth material and
// private-key envelope) for a freshly chosen password; it stores nothing
// itself. Because the old private key
// cannot be recovered without the old password, this always issues a new
// RSA keypair — existing shared-container entries keyed to the old public
// key can no longer be unwrapped by this account and must be re-wrapped.
func Recover(cp crypto.Provider, id, email, name string, newPassword []byte) (*RecoverResult, error) {
	bundle, err := New(cp, id, email, name, newPassword)
	if err != nil {
		return nil, err
	}
	return &RecoverResult{Bundle: bundle, NeedsReEnrollment: true}, nil
}
