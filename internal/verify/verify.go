// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package verify manages short-lived email verification codes in Redis.
// A code is a 6-digit numeric string valid for five minutes and usable at
// most once. Issuing a second code for the same address within sixty
// seconds is refused via a separate rate-limit marker key, regardless of
// whether the first code was consumed. Codes are stored as bcrypt hashes
// so a Redis dump does not expose live credentials.
package verify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeTTL is how long an issued code stays valid.
	CodeTTL = 5 * time.Minute

	// ResendWindow is the minimum gap between two code issuances for the
	// same email address.
	ResendWindow = 60 * time.Second

	codePrefix = "code:"
	ratePrefix = "code_rate:"
)

// ErrRateLimited is returned by Issue when a code was already sent to the
// address within the resend window.
var ErrRateLimited = errors.New("verification code requested too recently")

// Store manages verification-code lifecycle in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a verification-code store backed by the given Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Issue generates a fresh 6-digit code for the email, stores its bcrypt
// hash with the code TTL, and sets the rate-limit marker. Returns
// ErrRateLimited when the marker for this address is still live.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	// Generate and hash before touching Redis so a local failure cannot
	// claim the rate window.
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("verify generate: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("verify hash: %w", err)
	}

	// SetNX both checks and claims the rate window in one round trip.
	ok, err := s.client.SetNX(ctx, ratePrefix+email, "1", ResendWindow).Result()
	if err != nil {
		return "", fmt.Errorf("verify rate check: %w", err)
	}
	if !ok {
		return "", ErrRateLimited
	}

	if err := s.client.Set(ctx, codePrefix+email, hash, CodeTTL).Err(); err != nil {
		// Release the claimed window; a marker with no live code would
		// lock the address out for nothing.
		s.client.Del(ctx, ratePrefix+email)
		return "", fmt.Errorf("verify store: %w", err)
	}

	return code, nil
}

// Check reports whether the submitted code matches the live code for the
// email. It does NOT consume the code; a failed attempt leaves the stored
// code in place.
func (s *Store) Check(ctx context.Context, email, code string) (bool, error) {
	hash, err := s.client.Get(ctx, codePrefix+email).Bytes()
	if err == redis.Nil {
		return false, nil // No code issued or already expired/consumed
	}
	if err != nil {
		return false, fmt.Errorf("verify get: %w", err)
	}

	return bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil, nil
}

// Consume deletes the live code for the email. Call only after a
// successful Check; the code is single-use.
func (s *Store) Consume(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, codePrefix+email).Err(); err != nil {
		return fmt.Errorf("verify consume: %w", err)
	}
	return nil
}

// generateCode returns a uniformly random 6-digit numeric string,
// zero-padded ("042137" is a valid code).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
