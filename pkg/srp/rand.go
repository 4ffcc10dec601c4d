// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package srp

import "crypto/rand"

func cryptoRandRead(b []byte) (int, error) {
	return rand.Read(b)
}
