// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sealbox/sealbox/pkg/verr"
)

const accountIDKey = "sealbox.accountID"

// statusForKind maps the stable external error codes (spec §7) onto HTTP
// status codes. The code itself — not the HTTP status — is the part of
// the contract callers are meant to branch on; the status is just
// transport convention.
func statusForKind(k verr.Kind) int {
	switch k {
	case verr.AuthenticationFailed:
		return http.StatusUnauthorized
	case verr.InsufficientPerms:
		return http.StatusForbidden
	case verr.NotFound:
		return http.StatusNotFound
	case verr.AlreadyExists:
		return http.StatusConflict
	case verr.InvalidRequest:
		return http.StatusBadRequest
	case verr.VerificationRequired:
		return http.StatusPreconditionRequired
	case verr.InviteExpired:
		return http.StatusGone
	case verr.KeyMismatch:
		return http.StatusConflict
	case verr.DecryptionFailed:
		return http.StatusUnprocessableEntity
	case verr.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape every failed response carries (spec §6
// "Error signaling": a code plus a human message).
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, err error) {
	kind := verr.Code(err)
	c.AbortWithStatusJSON(statusForKind(kind), errorBody{Code: string(kind), Message: err.Error()})
}

// requireSession resolves the Authorization: Bearer <sessionID> header
// into an account id, failing AuthenticationFailed on anything else — an
// absent or malformed header uses the same code and shape as an expired
// session, per spec §7's no-oracle rule between auth failure modes.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, verr.New(verr.AuthenticationFailed, "missing bearer session token"))
			return
		}
		sess, err := s.sessions.Get(c.Request.Context(), token, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(accountIDKey, sess.AccountID)
		c.Next()
	}
}

func sessionAccountID(c *gin.Context) string {
	v, _ := c.Get(accountIDKey)
	id, _ := v.(string)
	return id
}
