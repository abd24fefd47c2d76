// auth_flow_test.go contains handler integration tests for registration,
// login, verification codes, and profile management. Tests exercise real
// database and Redis connections; they are skipped when those services
// are unavailable.
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"notepress/internal/auth"
	"notepress/internal/models"
	"notepress/internal/session"
)

func postJSON(t *testing.T, handler http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-register") })

	rec := postJSON(t, env.Auth.Register, "/api/auth/register",
		`{"username":"flow-register","password":"Password1"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	user, err := env.Users.FindByUsername("flow-register")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if user == nil {
		t.Fatal("registered user not persisted")
	}
	if user.PasswordHash != auth.HashPassword("Password1") {
		t.Error("stored digest does not match the password")
	}
}

func TestRegister_FirstUserBecomesAdmin(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-first", "flow-second") })

	// The bootstrap branch only fires on an empty table. Emptying it
	// cascades notes and comments too; the test database is disposable.
	if _, err := env.DB.Exec("DELETE FROM users"); err != nil {
		t.Fatalf("empty users table: %v", err)
	}

	rec := postJSON(t, env.Auth.Register, "/api/auth/register",
		`{"username":"flow-first","password":"Password1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register: got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, env.Auth.Register, "/api/auth/register",
		`{"username":"flow-second","password":"Password1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second register: got %d (%s)", rec.Code, rec.Body.String())
	}

	first, err := env.Users.FindByUsername("flow-first")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	second, err := env.Users.FindByUsername("flow-second")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if first == nil || first.Role != models.RoleAdmin {
		t.Errorf("first user role: got %+v, want admin", first)
	}
	if second == nil || second.Role != models.RoleUser {
		t.Errorf("second user role: got %+v, want user", second)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-dup") })
	createTestUser(t, env, "flow-dup", models.RoleUser)

	rec := postJSON(t, env.Auth.Register, "/api/auth/register",
		`{"username":"flow-dup","password":"Password1"}`)

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1"},
		{"no uppercase", "password1"},
		{"no lowercase", "PASSWORD1"},
		{"no digit", "Passwordx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, env.Auth.Register, "/api/auth/register",
				`{"username":"flow-weak","password":"`+tc.password+`"}`)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestRegister_EmailRequiresCode(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-email") })

	// Without a code the registration is rejected.
	rec := postJSON(t, env.Auth.Register, "/api/auth/register",
		`{"username":"flow-email","email":"flow-email@test.local","password":"Password1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("no code: got %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// Issue a real code and retry.
	code, err := env.Codes.Issue(t.Context(), "flow-email@test.local")
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}

	rec = postJSON(t, env.Auth.Register, "/api/auth/register",
		`{"username":"flow-email","email":"flow-email@test.local","password":"Password1","code":"`+code+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("with code: got %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	// The code is consumed on success.
	ok, err := env.Codes.Check(t.Context(), "flow-email@test.local", code)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ok {
		t.Error("code should be consumed after successful registration")
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-login") })

	if _, err := env.Users.Create("flow-login", nil, nil, auth.HashPassword("Password1"), models.RoleUser); err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := postJSON(t, env.Auth.Login, "/api/auth/login",
		`{"username":"flow-login","password":"Password1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Token    string `json:"token"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if resp.Username != "flow-login" || resp.Role != "user" {
		t.Errorf("identity: got %q/%q", resp.Username, resp.Role)
	}

	// The token resolves to a live session.
	ident, err := env.Sessions.Get(t.Context(), resp.Token)
	if err != nil {
		t.Fatalf("session get: %v", err)
	}
	if ident == nil || ident.Username != "flow-login" {
		t.Error("token did not resolve to the logged-in identity")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-badcred") })

	if _, err := env.Users.Create("flow-badcred", nil, nil, auth.HashPassword("Password1"), models.RoleUser); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Wrong password and unknown user produce the same status and body.
	wrongPass := postJSON(t, env.Auth.Login, "/api/auth/login",
		`{"username":"flow-badcred","password":"Password2"}`)
	unknown := postJSON(t, env.Auth.Login, "/api/auth/login",
		`{"username":"flow-nobody","password":"Password1"}`)

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d and %d, want both %d", wrongPass.Code, unknown.Code, http.StatusUnauthorized)
	}
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Error("error bodies should not distinguish unknown user from wrong password")
	}
}

func TestSendCode_RegisterConflictsWithExistingEmail(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-sendcode") })

	email := "flow-sendcode@test.local"
	if _, err := env.Users.Create("flow-sendcode", &email, nil, "digest", models.RoleUser); err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := postJSON(t, env.Auth.SendCode, "/api/auth/send-code",
		`{"email":"flow-sendcode@test.local","type":"register"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("register for taken email: got %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = postJSON(t, env.Auth.SendCode, "/api/auth/send-code",
		`{"email":"flow-unknown@test.local","type":"login"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("login for unknown email: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSendCode_RateLimited(t *testing.T) {
	env := newTestEnv(t)

	email := "flow-rate@test.local"

	first := postJSON(t, env.Auth.SendCode, "/api/auth/send-code",
		`{"email":"`+email+`","type":"register"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first send: got %d, want %d (%s)", first.Code, http.StatusOK, first.Body.String())
	}

	second := postJSON(t, env.Auth.SendCode, "/api/auth/send-code",
		`{"email":"`+email+`","type":"register"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second send: got %d, want %d", second.Code, http.StatusTooManyRequests)
	}
}

func TestLoginWithCode(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-codelogin") })

	email := "flow-codelogin@test.local"
	if _, err := env.Users.Create("flow-codelogin", &email, nil, "digest", models.RoleUser); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Unknown email is a 404 on this endpoint.
	rec := postJSON(t, env.Auth.LoginWithCode, "/api/auth/login-code",
		`{"email":"flow-ghost@test.local","code":"000000"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown email: got %d, want %d", rec.Code, http.StatusNotFound)
	}

	code, err := env.Codes.Issue(t.Context(), email)
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}

	// Wrong code does not consume the real one.
	rec = postJSON(t, env.Auth.LoginWithCode, "/api/auth/login-code",
		`{"email":"`+email+`","code":"999999"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong code: got %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = postJSON(t, env.Auth.LoginWithCode, "/api/auth/login-code",
		`{"email":"`+email+`","code":"`+code+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("correct code: got %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a session token")
	}

	// The code is single use.
	rec = postJSON(t, env.Auth.LoginWithCode, "/api/auth/login-code",
		`{"email":"`+email+`","code":"`+code+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("replayed code: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestMe_ReturnsSessionSnapshot(t *testing.T) {
	env := newTestEnv(t)

	ident := &session.Identity{ID: 42, Username: "flow-me", Role: models.RoleUser}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = req.WithContext(ctxWithIdentity(req.Context(), ident, "tok"))
	rec := httptest.NewRecorder()

	env.Auth.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	var resp session.Identity
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID != 42 || resp.Username != "flow-me" {
		t.Errorf("snapshot: got %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("me response must not carry password material")
	}
}

func TestUpdateMe_RewritesSession(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-updateme", "flow-renamed") })

	user := createTestUser(t, env, "flow-updateme", models.RoleUser)
	ident := session.IdentityFromUser(user)
	token, err := env.Sessions.Create(t.Context(), ident)
	if err != nil {
		t.Fatalf("session create: %v", err)
	}

	body := `{"username":"flow-renamed","email":"renamed@test.local"}`
	req := httptest.NewRequest(http.MethodPut, "/api/auth/me", strings.NewReader(body))
	req = req.WithContext(ctxWithIdentity(req.Context(), ident, token))
	rec := httptest.NewRecorder()

	env.Auth.UpdateMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	// The database row changed.
	fresh, err := env.Users.FindByID(user.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if fresh.Username != "flow-renamed" || fresh.EmailValue() != "renamed@test.local" {
		t.Errorf("row: got %q/%q", fresh.Username, fresh.EmailValue())
	}

	// The presented token's snapshot changed too.
	got, err := env.Sessions.Get(t.Context(), token)
	if err != nil {
		t.Fatalf("session get: %v", err)
	}
	if got == nil || got.Username != "flow-renamed" {
		t.Error("session snapshot was not rewritten")
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() { cleanUsers(t, env.DB, "flow-chpass") })

	user, err := env.Users.Create("flow-chpass", nil, nil, auth.HashPassword("Password1"), models.RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	ident := session.IdentityFromUser(user)

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/password", strings.NewReader(body))
		req = req.WithContext(ctxWithIdentity(req.Context(), ident, "tok"))
		rec := httptest.NewRecorder()
		env.Auth.ChangePassword(rec, req)
		return rec
	}

	if rec := do(`{"oldPassword":"Wrong1pass","newPassword":"Password2"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong old password: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := do(`{"oldPassword":"Password1","newPassword":"weak"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("weak new password: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := do(`{"oldPassword":"Password1","newPassword":"Password2"}`); rec.Code != http.StatusOK {
		t.Errorf("valid change: got %d, want %d", rec.Code, http.StatusOK)
	}

	fresh, err := env.Users.FindByID(user.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if fresh.PasswordHash != auth.HashPassword("Password2") {
		t.Error("password digest was not updated")
	}
}
