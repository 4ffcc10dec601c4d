// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/sealbox/sealbox/pkg/container"
	"github.com/sealbox/sealbox/pkg/ids"
	"github.com/sealbox/sealbox/pkg/vault"
	"github.com/sealbox/sealbox/pkg/verr"
)

// decodeAccessors turns wire accessor entries into container.Accessor
// values trusted enough to wrap a data key for. An entry naming orgId is
// asserting it names a Group accessor; its signedPublicKey must then
// verify against that org's signing key before it is trusted (spec §4.8:
// "any consumer that will trust a member's or group's public key MUST
// verify the signature against the org's signing public key before using
// that key for wrap or verify"). Entries with no orgId are accepted as
// plain account references, same as before.
func (s *Server) decodeAccessors(c *gin.Context, in []accessorWire) ([]container.Accessor, error) {
	out := make([]container.Accessor, 0, len(in))
	for _, a := range in {
		pub, err := s.cp.ParsePublicKey(a.PublicKey)
		if err != nil {
			return nil, verr.Wrap(verr.InvalidRequest, "parse accessor public key", err)
		}
		acc := wireAccessor{id: a.ID, pub: pub}
		if a.OrgID != "" {
			o, err := s.loadOrg(c, a.OrgID)
			if err != nil {
				return nil, err
			}
			if len(a.SignedPublicKey) == 0 || !o.Verify(acc, a.SignedPublicKey) {
				return nil, verr.New(verr.InvalidRequest, "group accessor public key does not verify against org")
			}
		}
		out = append(out, acc)
	}
	return out, nil
}

type createVaultRequest struct {
	Name      string         `json:"name" binding:"required"`
	OrgID     string         `json:"orgId,omitempty"`
	Accessors []accessorWire `json:"accessors,omitempty"`
}

type vaultWire struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Accessors []string        `json:"accessors"`
	Items     []vaultItemWire `json:"items,omitempty"`
	Warm      bool            `json:"warm"`
}

// handleCreateVault constructs a vault. A personal vault grants the
// calling account plus any additional accessors named in the request
// (spec §4.7 "createVault"); when orgId is set, the vault is instead
// constructed by org.CreateVault, which makes the org's admin group its
// sole initial accessor (spec §4.8 "createVault") — the org must already
// be warm in this process (just created, or previously access()ed).
func (s *Server) handleCreateVault(c *gin.Context) {
	var req createVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}

	if req.OrgID != "" {
		o, warm := s.registry.getOrg(req.OrgID)
		if !warm {
			respondError(c, verr.New(verr.InsufficientPerms, "org must be accessed in this session before creating a vault"))
			return
		}
		v, err := o.CreateVault(req.Name)
		if err != nil {
			respondError(c, err)
			return
		}
		s.registry.putVault(v)
		if err := s.vaults.Save(c.Request.Context(), v, o.ID()); err != nil {
			respondError(c, err)
			return
		}
		if err := s.orgsRepo.Save(c.Request.Context(), o); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, vaultWire{ID: v.ID(), Name: v.Name(), Accessors: v.Accessors(), Warm: true})
		return
	}

	owner, err := s.accounts.GetAccount(c.Request.Context(), sessionAccountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	extra, err := s.decodeAccessors(c, req.Accessors)
	if err != nil {
		respondError(c, err)
		return
	}
	accessors := append([]container.Accessor{owner}, extra...)

	v := vault.New(s.cp, ids.Generate(), req.Name)
	if err := v.Create(accessors); err != nil {
		respondError(c, err)
		return
	}

	s.registry.putVault(v)
	if err := s.vaults.Save(c.Request.Context(), v, ""); err != nil {
		respondError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ContainerRewraps.Inc()
	}

	c.JSON(http.StatusCreated, vaultWire{ID: v.ID(), Name: v.Name(), Accessors: v.Accessors(), Warm: true})
}

func (s *Server) handleGetVault(c *gin.Context) {
	id := c.Param("id")

	if v, warm := s.registry.getVault(id); warm {
		if !slices.Contains(v.Accessors(), sessionAccountID(c)) {
			respondError(c, verr.New(verr.InsufficientPerms, "not an accessor of this vault"))
			return
		}
		items, err := v.Items()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, vaultWire{ID: v.ID(), Name: v.Name(), Accessors: v.Accessors(), Items: vaultItemsToWire(items), Warm: true})
		return
	}

	v, _, err := s.vaults.Load(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !slices.Contains(v.Accessors(), sessionAccountID(c)) {
		respondError(c, verr.New(verr.InsufficientPerms, "not an accessor of this vault"))
		return
	}
	c.JSON(http.StatusOK, vaultWire{ID: v.ID(), Name: v.Name(), Accessors: v.Accessors(), Warm: false})
}

type updateVaultRequest struct {
	PutItems      []vaultItemWire `json:"putItems,omitempty"`
	DeleteItemIDs []string        `json:"deleteItemIds,omitempty"`
}

// handleUpdateVault mutates item content. It requires the vault to be
// warm (created or previously accessed in this process) since sealing a
// new payload requires the data key K in memory, and this process never
// holds an account's private key to derive K cold from storage.
func (s *Server) handleUpdateVault(c *gin.Context) {
	id := c.Param("id")
	v, warm := s.registry.getVault(id)
	if !warm {
		respondError(c, verr.New(verr.InsufficientPerms, "vault must be accessed in this session before it can be updated"))
		return
	}
	if !slices.Contains(v.Accessors(), sessionAccountID(c)) {
		respondError(c, verr.New(verr.InsufficientPerms, "not an accessor of this vault"))
		return
	}

	var req updateVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	for _, id := range req.DeleteItemIDs {
		if err := v.DeleteItem(id); err != nil {
			respondError(c, err)
			return
		}
	}
	for _, it := range req.PutItems {
		if _, err := v.PutItem(it.Name, it.EncryptedValue, it.Tags); err != nil {
			respondError(c, err)
			return
		}
	}

	if err := s.vaults.Save(c.Request.Context(), v, ""); err != nil {
		respondError(c, err)
		return
	}

	items, err := v.Items()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vaultWire{ID: v.ID(), Name: v.Name(), Accessors: v.Accessors(), Items: vaultItemsToWire(items), Warm: true})
}

func (s *Server) handleDeleteVault(c *gin.Context) {
	id := c.Param("id")

	var accessorIDs []string
	if v, warm := s.registry.getVault(id); warm {
		accessorIDs = v.Accessors()
	} else {
		v, _, err := s.vaults.Load(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		accessorIDs = v.Accessors()
	}
	if !slices.Contains(accessorIDs, sessionAccountID(c)) {
		respondError(c, verr.New(verr.InsufficientPerms, "not an accessor of this vault"))
		return
	}

	if err := s.vaults.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	s.registry.deleteVault(id)
	c.Status(http.StatusNoContent)
}

type updateVaultAccessorsRequest struct {
	Accessors []accessorWire `json:"accessors" binding:"required"`
}

// handleUpdateVaultAccessors replaces the vault's accessor table (spec
// §4.5 "updateAccessors"; also the `[EXPANSION]` POST /vaults/:id/accessors
// route named in SPEC_FULL §6). Requires the vault to already be warm for
// the same reason handleUpdateVault does — see its comment.
func (s *Server) handleUpdateVaultAccessors(c *gin.Context) {
	id := c.Param("id")
	v, warm := s.registry.getVault(id)
	if !warm {
		respondError(c, verr.New(verr.InsufficientPerms, "vault must be accessed in this session before its accessors can change"))
		return
	}
	if !slices.Contains(v.Accessors(), sessionAccountID(c)) {
		respondError(c, verr.New(verr.InsufficientPerms, "not an accessor of this vault"))
		return
	}

	var req updateVaultAccessorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, verr.Wrap(verr.InvalidRequest, "decode request", err))
		return
	}
	accessors, err := s.decodeAccessors(c, req.Accessors)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := v.UpdateAccessors(accessors); err != nil {
		respondError(c, err)
		return
	}
	if err := s.vaults.Save(c.Request.Context(), v, ""); err != nil {
		respondError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ContainerRewraps.Inc()
	}
	c.JSON(http.StatusOK, vaultWire{ID: v.ID(), Name: v.Name(), Accessors: v.Accessors(), Warm: true})
}
