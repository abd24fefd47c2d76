// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session provides Redis-backed bearer-token session management.
// Tokens are opaque random identifiers mapped to a JSON identity snapshot
// with automatic TTL expiry. The snapshot is frozen at issuance: it does
// not track later changes to the user record unless a caller explicitly
// rewrites it via Update.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notepress/internal/models"
)

const (
	// DefaultTTL is how long a token lives in Redis before automatic expiry.
	// The expiry is absolute, fixed at issuance.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces token keys in Redis to avoid collisions.
	keyPrefix = "token:"
)

// Identity is the snapshot of a user stored against a session token.
type Identity struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    *string     `json:"email,omitempty"`
	Phone    *string     `json:"phone,omitempty"`
	Role     models.Role `json:"role"`
}

// IsAdmin returns true if the snapshot carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// IdentityFromUser builds a session snapshot from a user record.
func IdentityFromUser(u *models.User) *Identity {
	return &Identity{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
		Role:     u.Role,
	}
}

// Store manages session lifecycle in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store backed by the given Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
	}
}

// Create issues a new token for the identity and stores the snapshot in
// Redis with the default TTL. Returns the token.
func (s *Store) Create(ctx context.Context, ident *Identity) (string, error) {
	token := uuid.NewString()

	payload, err := json.Marshal(ident)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	return token, nil
}

// Get retrieves the identity snapshot for a token. Returns nil for an
// absent or expired token; callers treat that as anonymous, not an error.
func (s *Store) Get(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, nil // Token expired or never existed
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var ident Identity
	if err := json.Unmarshal(payload, &ident); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}

	return &ident, nil
}

// Update replaces the snapshot stored against an existing token without
// changing the token itself. Resets the TTL.
func (s *Store) Update(ctx context.Context, token string, ident *Identity) error {
	payload, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+token, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session update: %w", err)
	}

	return nil
}

// Destroy removes the token from Redis. Destroying an unknown token is not
// an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}
