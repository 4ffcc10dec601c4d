// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package ids generates opaque identifiers for vault entities.
package ids

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// Generate returns a fresh opaque id with at least 128 bits of entropy.
// IDs are rendered as unpadded URL-safe base64 over a v4 UUID's 16 bytes,
// so they stay short while keeping the caller's id space flat and scope-free.
func Generate() string {
	u := uuid.New()
	return base64.RawURLEncoding.EncodeToString(u[:])
}
