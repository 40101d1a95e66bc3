// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the hex BLAKE2b-256 digest of name followed by the
// big-endian nanosecond timestamp of at.
//
// The same (name, at) pair always yields the same digest; two series opened
// with the same name at different instants never share one in practice.
func Fingerprint(name string, at time.Time) string {
	var stamp [8]byte
	binary.BigEndian.PutUint64(stamp[:], uint64(at.UTC().UnixNano()))

	hasher, _ := blake2b.New256(nil)
	hasher.Write([]byte(name))
	hasher.Write(stamp[:])

	return hex.EncodeToString(hasher.Sum(nil))
}
