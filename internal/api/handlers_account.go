// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sealbox/sealbox/pkg/account"
	"github.com/sealbox/sealbox/pkg/verr"
)

type createAccountRequest struct {
	Account accountWire    `json:"account"`
	Auth    authRecordWire `json:"auth"`
	Verify  string         `json:"verify" binding:"required"`
	Invite  string         `json:"invite,omitempty"`
}

// handleCreateAccount persists a client-prepared signup bundle (spec §6
// "createAccount"). The RSA keypair and the auth verifier were generated
// client-side (pkg/account.New mirrors that computation for tests); this
// handler never sees the password or the private key, only the wire
// account/auth records.
func (s *Server) handleCreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}

	acc, err := accountFromWire(s.cp, req.Account)
	if err != nil {
		respondError(c, err)
		return
	}
	if !s.verifications.Redeem(acc.Email, req.Verify, purposeSignup, time.Now()) {
		respondError(c, verr.New(verr.VerificationRequired, "missing or expired email verification"))
		return
	}

	bundle := &account.Bundle{Account: acc, Auth: authRecordFromWire(req.Auth)}
	if err := s.accounts.CreateAccount(c.Request.Context(), bundle); err != nil {
		respondError(c, err)
		return
	}

	wire, err := accountToWire(s.cp, acc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wire)
}

func (s *Server) handleGetAccount(c *gin.Context) {
	id := c.Param("id")
	acc, err := s.accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	wire, err := accountToWire(s.cp, acc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wire)
}

type updateAccountRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleUpdateAccount(c *gin.Context) {
	id := c.Param("id")
	if id != sessionAccountID(c) {
		respondError(c, verr.New(verr.InsufficientPerms, "cannot update another account"))
		return
	}
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	acc, err := s.accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Name != "" {
		acc.Name = req.Name
	}
	if err := s.accounts.UpdateAccount(c.Request.Context(), acc); err != nil {
		respondError(c, err)
		return
	}
	wire, err := accountToWire(s.cp, acc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wire)
}

type recoverAccountRequest struct {
	Account accountWire    `json:"account"`
	Auth    authRecordWire `json:"auth"`
	Verify  string         `json:"verify" binding:"required"`
}

type recoverAccountResponse struct {
	Account           accountWire `json:"account"`
	NeedsReEnrollment bool        `json:"needsReEnrollment"`
}

// handleRecoverAccount replaces an account's auth record and public-key
// envelope atomically (spec §4.4 "recoverAccount"). Per the resolved open
// question in spec §9/SPEC_FULL §9.1, the client always issues a fresh
// keypair on recovery, so the response flags NeedsReEnrollment so callers
// know every container this account used to access needs an out-of-band
// updateAccessors before it can be reached again.
func (s *Server) handleRecoverAccount(c *gin.Context) {
	var req recoverAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	acc, err := accountFromWire(s.cp, req.Account)
	if err != nil {
		respondError(c, err)
		return
	}
	if !s.verifications.Redeem(acc.Email, req.Verify, purposeRecover, time.Now()) {
		respondError(c, verr.New(verr.VerificationRequired, "missing or expired email verification"))
		return
	}
	if _, err := s.accounts.GetAccount(c.Request.Context(), acc.ID); err != nil {
		respondError(c, err)
		return
	}

	if err := s.accounts.UpdateAccount(c.Request.Context(), acc); err != nil {
		respondError(c, err)
		return
	}
	if err := s.accounts.PutAuth(c.Request.Context(), authRecordFromWire(req.Auth)); err != nil {
		respondError(c, err)
		return
	}

	wire, err := accountToWire(s.cp, acc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recoverAccountResponse{Account: wire, NeedsReEnrollment: true})
}
