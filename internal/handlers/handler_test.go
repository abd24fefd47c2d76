// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Redis are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"notepress/internal/database"
	"notepress/internal/middleware"
	"notepress/internal/models"
	"notepress/internal/session"
	"notepress/internal/store"
	"notepress/internal/verify"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "notepress")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "notepress")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testRedis returns a Redis client for handler tests on DB 15.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("REDIS_HOST", "localhost")
	port := envOr("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Redis not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{"token:*", "code:*", "code_rate:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB       *sql.DB
	Redis    *redis.Client
	Sessions *session.Store
	Codes    *verify.Store
	Users    *store.UserStore
	Notes    *store.NoteStore
	Comments *store.CommentStore
	Auth     *Auth
	Admin    *Users
	Posts    *Posts
}

// newTestEnv creates a complete test environment with all handler
// dependencies. Mail and object storage stay nil, matching a bare
// development deployment.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	rdb := testRedis(t)

	sessions := session.NewStore(rdb)
	codes := verify.NewStore(rdb)
	users := store.NewUserStore(db)
	notes := store.NewNoteStore(db)
	comments := store.NewCommentStore(db)

	return &testEnv{
		DB:       db,
		Redis:    rdb,
		Sessions: sessions,
		Codes:    codes,
		Users:    users,
		Notes:    notes,
		Comments: comments,
		Auth:     NewAuth(users, sessions, codes, nil),
		Admin:    NewUsers(users),
		Posts:    NewPosts(notes, comments),
	}
}

// cleanUsers removes test users by username. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, usernames ...string) {
	t.Helper()
	for _, username := range usernames {
		db.Exec("DELETE FROM users WHERE username = $1", username)
	}
}

// ctxWithIdentity injects an authenticated identity the way the session
// middleware would.
func ctxWithIdentity(ctx context.Context, ident *session.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, middleware.IdentityKey, ident)
	return context.WithValue(ctx, middleware.TokenKey, token)
}

// createTestUser registers a user row directly through the store.
func createTestUser(t *testing.T, env *testEnv, username string, role models.Role) *models.User {
	t.Helper()
	user, err := env.Users.FindByUsername(username)
	if err != nil {
		t.Fatalf("find test user: %v", err)
	}
	if user != nil {
		t.Fatalf("test user %q already exists", username)
	}
	user, err = env.Users.Create(username, nil, nil, "digest", role)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}
