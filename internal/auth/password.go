// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth implements the credential digest used for stored passwords.
// The digest is a plain SHA-256 hex string with no salt and no cost factor,
// kept for compatibility with accounts created by earlier deployments.
// Two users with the same password therefore share a digest.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword returns the lowercase hex SHA-256 digest of the plaintext.
// Deterministic: the same input always produces the same output.
func HashPassword(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// CheckPassword re-hashes the candidate and compares it against the stored
// digest in constant time.
func CheckPassword(storedDigest, candidate string) bool {
	digest := HashPassword(candidate)
	return subtle.ConstantTimeCompare([]byte(storedDigest), []byte(digest)) == 1
}
