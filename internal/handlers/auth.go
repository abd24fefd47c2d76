// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"notepress/internal/auth"
	"notepress/internal/mail"
	"notepress/internal/middleware"
	"notepress/internal/models"
	"notepress/internal/session"
	"notepress/internal/store"
	"notepress/internal/verify"
)

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	users    *store.UserStore
	sessions *session.Store
	codes    *verify.Store
	mailer   mail.Sender // nil when email delivery is not configured
}

// NewAuth creates a new Auth handler group.
func NewAuth(users *store.UserStore, sessions *session.Store, codes *verify.Store, mailer mail.Sender) *Auth {
	return &Auth{
		users:    users,
		sessions: sessions,
		codes:    codes,
		mailer:   mailer,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Register creates a new account. The first account ever created receives
// the admin role; everyone after that is a regular user. Registrations
// that carry an email must prove ownership with a verification code.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Username == "" && req.Email == "" {
		writeError(w, http.StatusBadRequest, "Username or email is required.")
		return
	}
	// Email-only registrations use the address as the account name.
	if req.Username == "" {
		req.Username = req.Email
	}
	if msg := validateUsername(req.Username); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Email != "" {
		if msg := validateEmail(req.Email); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}

	// Uniqueness pre-checks. These short-circuit with a friendly message;
	// the database constraints remain the source of truth underneath.
	if existing, err := a.users.FindByUsername(req.Username); err != nil {
		a.serverError(w, "register username check", err)
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "Username is already taken.")
		return
	}
	if req.Email != "" {
		if existing, err := a.users.FindByEmail(req.Email); err != nil {
			a.serverError(w, "register email check", err)
			return
		} else if existing != nil {
			writeError(w, http.StatusConflict, "Email is already registered.")
			return
		}
	}
	if req.Phone != "" {
		if existing, err := a.users.FindByPhone(req.Phone); err != nil {
			a.serverError(w, "register phone check", err)
			return
		} else if existing != nil {
			writeError(w, http.StatusConflict, "Phone number is already registered.")
			return
		}
	}

	// Registrations carrying an email must present a live code for it.
	// The code survives a failed attempt and is only consumed on success.
	if req.Email != "" {
		ok, err := a.codes.Check(r.Context(), req.Email, req.Code)
		if err != nil {
			a.serverError(w, "register code check", err)
			return
		}
		if req.Code == "" || !ok {
			writeError(w, http.StatusBadRequest, "Verification code is missing or incorrect.")
			return
		}
	}

	if msg := validatePassword(req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	// First registration on an empty table bootstraps the admin account.
	// Not atomic with the insert; see DESIGN.md.
	count, err := a.users.Count()
	if err != nil {
		a.serverError(w, "register count", err)
		return
	}
	role := models.RoleUser
	if count == 0 {
		role = models.RoleAdmin
	}

	_, err = a.users.Create(
		req.Username,
		optionalString(req.Email),
		optionalString(req.Phone),
		auth.HashPassword(req.Password),
		role,
	)
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "Username, email, or phone is already in use.")
		return
	}
	if err != nil {
		a.serverError(w, "register create", err)
		return
	}

	if req.Email != "" {
		if err := a.codes.Consume(r.Context(), req.Email); err != nil {
			slog.Warn("verification code consume failed", "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string      `json:"token"`
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    *string     `json:"email,omitempty"`
	Phone    *string     `json:"phone,omitempty"`
	Role     models.Role `json:"role"`
}

// Login verifies a username (or email) and password and issues a session
// token. Unknown user and wrong password produce the same generic message.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := a.users.FindByIdentifier(strings.TrimSpace(req.Username))
	if err != nil {
		a.serverError(w, "login lookup", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	a.issueToken(w, r, user)
}

type sendCodeRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"` // "register" or "login"
}

// SendCode emails a verification code. For registration the address must
// be unused; for login it must belong to an account. Reissuing within the
// resend window returns 429.
func (a *Auth) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if msg := validateEmail(req.Email); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	user, err := a.users.FindByEmail(req.Email)
	if err != nil {
		a.serverError(w, "send code lookup", err)
		return
	}

	switch req.Type {
	case "register":
		if user != nil {
			writeError(w, http.StatusConflict, "Email is already registered.")
			return
		}
	case "login":
		if user == nil {
			writeError(w, http.StatusNotFound, "No account uses this email.")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "Type must be \"register\" or \"login\".")
		return
	}

	code, err := a.codes.Issue(r.Context(), req.Email)
	if errors.Is(err, verify.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "A code was sent recently. Try again in a minute.")
		return
	}
	if err != nil {
		a.serverError(w, "send code issue", err)
		return
	}

	if a.mailer == nil {
		// No mail provider configured — dev setups read the code from logs.
		slog.Warn("mail not configured, logging verification code", "email", req.Email, "code", code)
	} else if err := a.mailer.SendCode(r.Context(), req.Email, code); err != nil {
		a.serverError(w, "send code mail", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type codeLoginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// LoginWithCode authenticates with an emailed verification code instead of
// a password. Unlike password login, an unknown email is reported as 404.
func (a *Auth) LoginWithCode(w http.ResponseWriter, r *http.Request) {
	var req codeLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	user, err := a.users.FindByEmail(req.Email)
	if err != nil {
		a.serverError(w, "code login lookup", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "No account uses this email.")
		return
	}

	ok, err := a.codes.Check(r.Context(), req.Email, req.Code)
	if err != nil {
		a.serverError(w, "code login check", err)
		return
	}
	if req.Code == "" || !ok {
		writeError(w, http.StatusBadRequest, "Verification code is missing or incorrect.")
		return
	}
	if err := a.codes.Consume(r.Context(), req.Email); err != nil {
		slog.Warn("verification code consume failed", "error", err)
	}

	a.issueToken(w, r, user)
}

// Me returns the identity snapshot bound to the presented token. The
// snapshot is frozen at login; it reflects later profile edits only when
// the update path rewrote it.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	writeJSON(w, http.StatusOK, ident)
}

type updateMeRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// UpdateMe changes the caller's profile fields and rewrites the snapshot
// stored against the presented token so the session reflects the change.
func (a *Auth) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())

	var req updateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if msg := validateUsername(req.Username); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Email != "" {
		if msg := validateEmail(req.Email); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}

	if !a.fieldsAvailable(w, req.Username, req.Email, req.Phone, ident.ID) {
		return
	}

	err := a.users.Update(ident.ID, req.Username, optionalString(req.Email), optionalString(req.Phone))
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "Username, email, or phone is already in use.")
		return
	}
	if err != nil {
		a.serverError(w, "profile update", err)
		return
	}

	updated := &session.Identity{
		ID:       ident.ID,
		Username: req.Username,
		Email:    optionalString(req.Email),
		Phone:    optionalString(req.Phone),
		Role:     ident.Role,
	}
	if err := a.sessions.Update(r.Context(), middleware.TokenFromCtx(r.Context()), updated); err != nil {
		a.serverError(w, "session rewrite", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": updated})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword re-verifies the current password before accepting a new
// one subject to the registration policy.
func (a *Auth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := a.users.FindByID(ident.ID)
	if err != nil {
		a.serverError(w, "password change lookup", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.OldPassword) {
		writeError(w, http.StatusUnauthorized, "Current password is incorrect.")
		return
	}

	if msg := validatePassword(req.NewPassword); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := a.users.UpdatePassword(user.ID, auth.HashPassword(req.NewPassword)); err != nil {
		a.serverError(w, "password change update", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// issueToken creates a session for the user and writes the login response.
func (a *Auth) issueToken(w http.ResponseWriter, r *http.Request, user *models.User) {
	token, err := a.sessions.Create(r.Context(), session.IdentityFromUser(user))
	if err != nil {
		a.serverError(w, "session create", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:    token,
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Phone:    user.Phone,
		Role:     user.Role,
	})
}

// fieldsAvailable verifies that username/email/phone are unused by any
// OTHER account. exceptID skips the caller's own row so unchanged fields
// do not collide with themselves.
func (a *Auth) fieldsAvailable(w http.ResponseWriter, username, email, phone string, exceptID int64) bool {
	if existing, err := a.users.FindByUsername(username); err != nil {
		a.serverError(w, "username check", err)
		return false
	} else if existing != nil && existing.ID != exceptID {
		writeError(w, http.StatusConflict, "Username is already taken.")
		return false
	}
	if email != "" {
		if existing, err := a.users.FindByEmail(email); err != nil {
			a.serverError(w, "email check", err)
			return false
		} else if existing != nil && existing.ID != exceptID {
			writeError(w, http.StatusConflict, "Email is already registered.")
			return false
		}
	}
	if phone != "" {
		if existing, err := a.users.FindByPhone(phone); err != nil {
			a.serverError(w, "phone check", err)
			return false
		} else if existing != nil && existing.ID != exceptID {
			writeError(w, http.StatusConflict, "Phone number is already registered.")
			return false
		}
	}
	return true
}

// serverError logs the failure and sends the generic 500 body.
func (a *Auth) serverError(w http.ResponseWriter, op string, err error) {
	slogError(op, err)
	writeError(w, http.StatusInternalServerError, "Internal server error.")
}
