// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sealbox/sealbox/pkg/invite"
	"github.com/sealbox/sealbox/pkg/verr"
)

type inviteWire struct {
	ID      string    `json:"id"`
	OrgID   string    `json:"orgId"`
	Email   string    `json:"email"`
	Expires time.Time `json:"expires"`
}

func inviteToWire(inv *invite.Invite) inviteWire {
	return inviteWire{ID: inv.ID, OrgID: inv.OrgID, Email: inv.Email, Expires: inv.Expires}
}

// handleGetInvite returns an invite's public metadata (spec §6
// "getInvite"), without the token or signature, for an invitee deciding
// whether to accept.
func (s *Server) handleGetInvite(c *gin.Context) {
	inv, err := s.invites.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inviteToWire(inv))
}

type createInviteRequest struct {
	OrgID string    `json:"orgId" binding:"required"`
	Email string    `json:"email" binding:"required"`
	TTL   time.Time `json:"expires" binding:"required"`
}

// handleCreateInvite mints an invite against the caller's org (spec §4.9
// "createInvite"). The org must already be warm, since minting a token
// requires the invites key and signing it requires the signing key.
func (s *Server) handleCreateInvite(c *gin.Context) {
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	o, warm := s.registry.getOrg(req.OrgID)
	if !warm {
		respondError(c, verr.New(verr.InsufficientPerms, "org must be accessed in this session before minting an invite"))
		return
	}

	inv, err := invite.Create(s.cp, o, req.Email, req.TTL)
	if err != nil {
		respondError(c, err)
		return
	}
	s.invites.Put(inv)
	c.JSON(http.StatusCreated, inviteWire{ID: inv.ID, OrgID: inv.OrgID, Email: inv.Email, Expires: inv.Expires})
}

type acceptInviteRequest struct {
	Proof   []byte      `json:"proof" binding:"required"`
	Account accountWire `json:"account" binding:"required"`
}

// handleAcceptInvite redeems an invite into org membership (spec §4.9
// "acceptInvite"). The org need not be warm in this process: AddMember is
// called on the same *org.Org instance the registry already holds if
// present, else a cold load — which fails InsufficientPermissions inside
// AddMember since a cold org has no signing key loaded. An invite can only
// be accepted, in practice, against an org some admin session is holding
// open, matching how invites are minted in the first place.
func (s *Server) handleAcceptInvite(c *gin.Context) {
	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	inv, err := s.invites.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	o, err := s.loadOrg(c, inv.OrgID)
	if err != nil {
		respondError(c, err)
		return
	}
	acc, err := accountFromWire(s.cp, req.Account)
	if err != nil {
		respondError(c, err)
		return
	}

	m, err := s.invites.Accept(o, c.Param("id"), req.Proof, acc, time.Now())
	if err != nil {
		if s.metrics != nil && verr.Code(err) == verr.InviteExpired {
			s.metrics.InvitesExpired.Inc()
		}
		respondError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.InvitesAccepted.Inc()
	}
	s.registry.putOrg(o)
	if err := s.orgsRepo.Save(c.Request.Context(), o); err != nil {
		respondError(c, err)
		return
	}

	wire, err := memberToWire(s.cp, m)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wire)
}
