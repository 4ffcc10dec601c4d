// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package api implements the HTTP surface named in spec §6: the request
// methods external collaborators call, and the wire encoding (JSON with
// base64 binary fields) they call them with. Every handler translates a
// wire DTO into a pkg/ call and a verr.Kind into an HTTP status; no
// cryptographic logic lives in this package.
package api

import (
	"crypto/rsa"
	"math/big"

	"github.com/sealbox/sealbox/pkg/account"
	"github.com/sealbox/sealbox/pkg/crypto"
	"github.com/sealbox/sealbox/pkg/org"
	"github.com/sealbox/sealbox/pkg/srp"
	"github.com/sealbox/sealbox/pkg/vault"
	"github.com/sealbox/sealbox/pkg/verr"
)

// wireAccessor adapts an API-supplied {id, publicKey} pair to
// container.Accessor, for accessor-table operations where the caller
// names accessors by id and public key only (spec §4.5: containers hold
// accessors by weak reference, never by pointer to the real object).
type wireAccessor struct {
	id  string
	pub *rsa.PublicKey
}

func (a wireAccessor) AccessorID() string               { return a.id }
func (a wireAccessor) AccessorPublicKey() *rsa.PublicKey { return a.pub }

// accessorWire is the wire shape of a single accessor table entry. OrgID
// and SignedPublicKey are only set when the entry names a Group accessor —
// see decodeAccessors.
type accessorWire struct {
	ID              string `json:"id"`
	PublicKey       []byte `json:"publicKey"` // DER, SPKI
	OrgID           string `json:"orgId,omitempty"`
	SignedPublicKey []byte `json:"signedPublicKey,omitempty"`
}

// kdfParamsWire is the wire shape of crypto.KDFParams.
type kdfParamsWire struct {
	Algo       string `json:"algo"`
	Iterations int    `json:"iterations"`
	Salt       []byte `json:"salt"`
	KeyLen     int    `json:"keyLength"`
}

func kdfParamsToWire(p crypto.KDFParams) kdfParamsWire {
	return kdfParamsWire{Algo: p.Algo, Iterations: p.Iterations, Salt: p.Salt, KeyLen: p.KeyLen}
}

func kdfParamsFromWire(w kdfParamsWire) crypto.KDFParams {
	return crypto.KDFParams{Algo: w.Algo, Iterations: w.Iterations, Salt: w.Salt, KeyLen: w.KeyLen}
}

// accountWire is the wire shape of account.Account (spec §3 "Account").
type accountWire struct {
	ID            string        `json:"id"`
	Email         string        `json:"email"`
	Name          string        `json:"name"`
	PublicKey     []byte        `json:"publicKey"` // DER, SPKI
	Envelope      []byte        `json:"envelope"`
	EnvelopeNonce []byte        `json:"envelopeNonce"`
	KDFParams     kdfParamsWire `json:"kdfParams"`
}

func accountToWire(cp crypto.Provider, a *account.Account) (accountWire, error) {
	pubDER, err := cp.MarshalPublicKey(a.PublicKey)
	if err != nil {
		return accountWire{}, verr.Wrap(verr.ServerError, "marshal account public key", err)
	}
	return accountWire{
		ID: a.ID, Email: a.Email, Name: a.Name,
		PublicKey: pubDER, Envelope: a.Envelope, EnvelopeNonce: a.EnvelopeNonce,
		KDFParams: kdfParamsToWire(a.KDFParams),
	}, nil
}

func accountFromWire(cp crypto.Provider, w accountWire) (*account.Account, error) {
	pub, err := cp.ParsePublicKey(w.PublicKey)
	if err != nil {
		return nil, verr.Wrap(verr.InvalidRequest, "parse account public key", err)
	}
	return &account.Account{
		ID: w.ID, Email: w.Email, Name: w.Name,
		PublicKey: pub, Envelope: w.Envelope, EnvelopeNonce: w.EnvelopeNonce,
		KDFParams: kdfParamsFromWire(w.KDFParams),
	}, nil
}

// verifierWire is the wire shape of srp.Verifier.
type verifierWire struct {
	Salt []byte   `json:"salt"`
	V    *big.Int `json:"v"`
}

// authRecordWire is the wire shape of account.AuthRecord (spec §3 "Auth
// record"). It never carries the password, only what's needed to resume
// or replay the SRP handshake.
type authRecordWire struct {
	AccountID string        `json:"accountId"`
	Email     string        `json:"email"`
	KDFParams kdfParamsWire `json:"kdfParams"`
	Verifier  verifierWire  `json:"verifier"`
}

func authRecordToWire(r *account.AuthRecord) authRecordWire {
	return authRecordWire{
		AccountID: r.AccountID, Email: r.Email, KDFParams: kdfParamsToWire(r.KDFParams),
		Verifier: verifierWire{Salt: r.Verifier.Salt, V: r.Verifier.V},
	}
}

func authRecordFromWire(w authRecordWire) *account.AuthRecord {
	return &account.AuthRecord{
		AccountID: w.AccountID, Email: w.Email, KDFParams: kdfParamsFromWire(w.KDFParams),
		Verifier: &srp.Verifier{Salt: w.Verifier.Salt, V: w.Verifier.V},
	}
}

// vaultItemWire is the wire shape of vault.Item.
type vaultItemWire struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	EncryptedValue []byte   `json:"encryptedValue"`
	Tags           []string `json:"tags,omitempty"`
}

func vaultItemsToWire(items []vault.Item) []vaultItemWire {
	out := make([]vaultItemWire, len(items))
	for i, it := range items {
		out[i] = vaultItemWire{ID: it.ID, Name: it.Name, EncryptedValue: it.EncryptedValue, Tags: it.Tags}
	}
	return out
}

// memberWire is the wire shape of org.Member.
type memberWire struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	PublicKey       []byte `json:"publicKey"`
	SignedPublicKey []byte `json:"signedPublicKey"`
}

// parseBigInt decodes a base-10 string into a *big.Int, for wire fields
// (A, B) that carry SRP ephemeral public values too large for JSON numbers.
func parseBigInt(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}

func memberToWire(cp crypto.Provider, m org.Member) (memberWire, error) {
	pubDER, err := cp.MarshalPublicKey(m.PublicKey)
	if err != nil {
		return memberWire{}, verr.Wrap(verr.ServerError, "marshal member public key", err)
	}
	return memberWire{ID: m.ID, Name: m.Name, Email: m.Email, PublicKey: pubDER, SignedPublicKey: m.SignedPublicKey}, nil
}
