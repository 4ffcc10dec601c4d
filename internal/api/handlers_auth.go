// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sealbox/sealbox/pkg/auth"
	"github.com/sealbox/sealbox/pkg/verr"
)

type verifyEmailRequest struct {
	Email   string `json:"email" binding:"required"`
	Purpose string `json:"purpose"`
}

type verifyEmailResponse struct {
	// Token is only populated outside production: real delivery is the
	// email-sending collaborator spec §1 places out of scope, so there is
	// no inbox for a development server to hand this to.
	Token string `json:"token,omitempty"`
}

func (s *Server) handleVerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	purpose := verificationPurpose(req.Purpose)
	if purpose != purposeSignup && purpose != purposeRecover {
		purpose = purposeSignup
	}
	token := s.verifications.Issue(req.Email, purpose, time.Now())

	resp := verifyEmailResponse{}
	if s.env != "production" {
		resp.Token = token
	}
	c.JSON(http.StatusOK, resp)
}

type initAuthRequest struct {
	Email string `json:"email" binding:"required"`
}

type initAuthResponseWire struct {
	KDFParams kdfParamsWire `json:"kdfParams"`
	Salt      []byte        `json:"salt"`
	B         string        `json:"b"` // big.Int decimal
}

func (s *Server) handleInitAuth(c *gin.Context) {
	var req initAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	resp, err := s.auth.InitAuth(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, initAuthResponseWire{
		KDFParams: kdfParamsToWire(resp.KDFParams),
		Salt:      resp.Salt,
		B:         resp.B.String(),
	})
}

type updateAuthRequest struct {
	Auth authRecordWire `json:"auth"`
}

func (s *Server) handleUpdateAuth(c *gin.Context) {
	var req updateAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	rec := authRecordFromWire(req.Auth)
	if rec.AccountID != sessionAccountID(c) {
		respondError(c, verr.New(verr.InsufficientPerms, "cannot update another account's auth record"))
		return
	}
	if err := s.accounts.PutAuth(c.Request.Context(), rec); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createSessionRequest struct {
	Email string `json:"email" binding:"required"`
	A     string `json:"a" binding:"required"` // big.Int decimal
	M     []byte `json:"m" binding:"required"` // client proof
}

type createSessionResponse struct {
	SessionID   string `json:"sessionId"`
	AccountID   string `json:"accountId"`
	ExpiresAt   int64  `json:"expiresAt"`
	ServerProof []byte `json:"serverProof"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	A, ok := parseBigInt(req.A)
	if !ok {
		respondError(c, verr.New(verr.InvalidRequest, "malformed ephemeral public value A"))
		return
	}
	resp, err := s.auth.CreateSession(c.Request.Context(), auth.CreateSessionRequest{
		Email: req.Email, A: A, Proof: req.M,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createSessionResponse{
		SessionID:   resp.Session.ID,
		AccountID:   resp.Session.AccountID,
		ExpiresAt:   resp.Session.ExpiresAt.Unix(),
		ServerProof: resp.ServerProof,
	})
}

func (s *Server) handleRevokeSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.sessions.Revoke(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsRevoked.Inc()
	}
	c.Status(http.StatusNoContent)
}
